package eventlog

import "errors"

var (
	// ErrStorageNil is returned when a service is constructed without storage.
	ErrStorageNil = errors.New("eventlog: storage is nil")

	// ErrInvalidKey is returned when a query key misses a required field.
	ErrInvalidKey = errors.New("eventlog: entity type, id and attribute are required")

	// ErrEmptyHistory is returned by Replay when no entries exist for the key.
	ErrEmptyHistory = errors.New("eventlog: no recorded transitions")
)
