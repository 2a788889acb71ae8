package dispatch

import "errors"

var (
	// ErrResolverNil is returned when a dispatcher is built without a resolver.
	ErrResolverNil = errors.New("dispatch: resolver cannot be nil")

	// ErrNoQueue is returned by Submit when no queue repository is configured.
	ErrNoQueue = errors.New("dispatch: no queue repository configured")

	// ErrNotQueueable is returned when a non-named callable reaches Submit.
	ErrNotQueueable = errors.New("dispatch: only named callables can be queued")

	// ErrUnknownHandler is returned when a named callable has no registered
	// function in the resolver.
	ErrUnknownHandler = errors.New("dispatch: no handler registered for name")

	// ErrNoTask signals an empty queue to the worker loop.
	ErrNoTask = errors.New("dispatch: no task to claim")

	// ErrRepositoryNil is returned when a worker is built without storage.
	ErrRepositoryNil = errors.New("dispatch: repository cannot be nil")
)
