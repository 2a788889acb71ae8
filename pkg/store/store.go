package store

import "context"

// Ref addresses one persisted entity.
type Ref struct {
	Type string
	ID   string
}

// String returns "type/id" for log output.
func (r Ref) String() string {
	return r.Type + "/" + r.ID
}

// EntityStore is the durable store consumed by the engine. Implementations
// must make ConditionalWrite atomic with respect to other writers of the
// same (entity, attribute) field.
type EntityStore interface {
	// ReadState returns the persisted attribute value. found is false when
	// no value has ever been written.
	ReadState(ctx context.Context, ref Ref, attribute string) (value string, found bool, err error)

	// ConditionalWrite persists value only if the current persisted value
	// equals expected; an empty expected means the write succeeds only when
	// no value exists yet. Returns ok=false, with no partial write, when a
	// concurrent writer got there first.
	ConditionalWrite(ctx context.Context, ref Ref, attribute, expected, value string) (ok bool, err error)

	// Exists reports whether the entity has any persisted attribute at all.
	// Queue workers use it to turn work for deleted entities into a no-op.
	Exists(ctx context.Context, ref Ref) (bool, error)
}
