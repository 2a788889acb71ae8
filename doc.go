// Package stateflow is a persistent finite-state transition engine for
// entity attributes. It validates attempted state changes against declared
// transition graphs, evaluates guard conditions, commits the new state with
// an atomic compare-and-set, dispatches callbacks and actions, and records
// every committed transition in an append-only log.
//
// The root package wires the pieces from pkg/ into a single Flow facade;
// hosts with unusual topologies can assemble the same pieces by hand.
//
//	flow, err := stateflow.New(stateflow.Config{
//		Store:   store.NewMemory(),
//		EventLog: eventlog.NewMemory(),
//	})
//	if err != nil { ... }
//
//	flow.Catalog().RegisterFunc("notify_owner", notifyOwner)
//	flow.Registry().Register(orderStatus)
//
//	err = flow.Transition(ctx, engine.Request{
//		EntityType: "order",
//		EntityID:   "ord_123",
//		Attribute:  "status",
//		To:         "paid",
//	})
package stateflow
