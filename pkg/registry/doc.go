// Package registry indexes compiled transition graphs by their
// (entity type, attribute) pair and owns graph discovery.
//
// The Registry is an explicit, constructed object passed to the engine by
// reference; there is no process-wide mutable singleton. Registration is
// idempotent with last-write-wins semantics and lookups are exact-match,
// case-sensitive string pairs.
//
// # Discovery
//
// Discover compiles every Source it is given and registers the graphs that
// compile cleanly. A source that fails to compile is recorded in the
// DiscoveryReport and never aborts discovery of the remaining sources.
//
// Sources can be static graphs built in code, declarative YAML definitions
// resolved against a Catalog of named guard and handler functions, or a
// redis-backed cache of previously compiled definitions that lets a process
// skip re-parsing on startup:
//
//	catalog := registry.NewCatalog()
//	catalog.RegisterGuard("stock_available", hasStock)
//	catalog.RegisterFunc("notify_warehouse", notifyWarehouse)
//
//	reg := registry.New()
//	sources, _ := registry.YAMLDir(os.DirFS("definitions"), catalog)
//	report := reg.Discover(ctx, sources...)
//	for _, f := range report.Failed {
//	    log.Warn("graph skipped", "source", f.Source, "error", f.Err)
//	}
package registry
