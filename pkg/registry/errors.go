package registry

import "errors"

var (
	// ErrUnknownGuard is returned when a definition references a guard name
	// the catalog does not know.
	ErrUnknownGuard = errors.New("guard is not registered in the catalog")

	// ErrUnknownFunc is returned when a definition references a handler name
	// the catalog does not know.
	ErrUnknownFunc = errors.New("handler func is not registered in the catalog")

	// ErrCacheMiss is returned when no cached definition exists for the key.
	ErrCacheMiss = errors.New("no cached definition for key")

	// ErrInvalidDefinition is returned when a declarative definition cannot
	// be parsed or compiled.
	ErrInvalidDefinition = errors.New("invalid graph definition")
)
