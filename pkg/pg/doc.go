// Package pg bootstraps the PostgreSQL layer shared by the entity store and
// the transition log: a pgx/v5 connection pool with retrying startup, goose
// schema migrations embedded in the binary, and a health check closure.
//
// # Usage
//
//	var cfg pg.Config
//	if err := env.Parse(&cfg); err != nil {
//		panic(err)
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		panic(err)
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, slog.Default()); err != nil {
//		panic(err)
//	}
//
// Configuration comes from environment variables; see the field tags on
// Config for names and defaults.
package pg
