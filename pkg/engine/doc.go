// Package engine executes state transitions against a registered transition
// graph, an entity store and a side-effect dispatcher.
//
// Every attempt moves through fixed stages: resolve the transition, check
// guards and run pre-commit work, commit the new state with a conditional
// write, then dispatch post-commit callbacks and actions. Failures at any
// stage normalize into *graph.TransitionError; the stage and failure code
// identify where and why the attempt stopped.
//
// # Basic Usage
//
//	eng, err := engine.New(reg, st, dispatcher,
//		engine.WithRecorder(log),
//		engine.WithLogger(logger),
//	)
//
//	err = eng.Transition(ctx, engine.Request{
//		EntityType: "order",
//		EntityID:   "ord_123",
//		Attribute:  "status",
//		To:         "shipped",
//		Context:    map[string]any{"carrier": "dhl"},
//	})
//
// Fire resolves the destination from an event name instead of a target
// state. DryRun answers "would this succeed" without touching the store or
// running any callback.
package engine
