package engine

import "errors"

var (
	// ErrGraphsNil is returned when an engine is constructed without a
	// graph provider.
	ErrGraphsNil = errors.New("engine: graph provider is nil")

	// ErrStoreNil is returned when an engine is constructed without an
	// entity store.
	ErrStoreNil = errors.New("engine: entity store is nil")

	// ErrRunnerNil is returned when an engine is constructed without a
	// side-effect runner.
	ErrRunnerNil = errors.New("engine: runner is nil")

	// ErrDefinitionNotFound is returned when no graph is registered for the
	// requested entity type and attribute. This is a configuration problem,
	// not a transition failure.
	ErrDefinitionNotFound = errors.New("engine: no graph registered for entity type and attribute")

	// ErrInvalidRequest is returned when a request misses a required field.
	ErrInvalidRequest = errors.New("engine: entity type, id and attribute are required")
)
