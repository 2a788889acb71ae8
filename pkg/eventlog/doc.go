// Package eventlog keeps an append-only record of committed state
// transitions and derives history, replay, validation and statistics
// from it.
//
// Entries are immutable once written. Storage backends only need to
// append and read back in chronological order; everything else is
// computed by the Service on top of that stream.
//
// # Basic Usage
//
//	log := eventlog.NewService(eventlog.NewMemory(), registry)
//
//	entries, err := log.History(ctx, eventlog.Key{
//		EntityType: "order",
//		EntityID:   "ord_123",
//		Attribute:  "status",
//	})
//
// Replay folds the recorded entries back into the current state, which
// is useful for reconciling the log against the entity store:
//
//	result, err := log.Replay(ctx, key)
//	fmt.Println(result.FinalState, result.TransitionCount)
//
// ValidateHistory checks the chain for gaps without failing on them;
// inconsistencies are reported as issues, not errors:
//
//	report, err := log.ValidateHistory(ctx, key)
//	for _, issue := range report.Issues {
//		fmt.Println(issue.Position, issue.Detail)
//	}
package eventlog
