package eventlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Key identifies one attribute of one entity. All queries are scoped to a key.
type Key struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Attribute  string `json:"attribute"`
}

// Validate reports whether the key is fully specified.
func (k Key) Validate() error {
	if k.EntityType == "" || k.EntityID == "" || k.Attribute == "" {
		return ErrInvalidKey
	}
	return nil
}

// Entry is a single committed transition. Entries are append-only and never
// mutated after being written.
type Entry struct {
	ID         uuid.UUID      `json:"id" bson:"_id"`
	EntityType string         `json:"entity_type" bson:"entity_type"`
	EntityID   string         `json:"entity_id" bson:"entity_id"`
	Attribute  string         `json:"attribute" bson:"attribute"`
	From       string         `json:"from" bson:"from"`
	To         string         `json:"to" bson:"to"`
	Event      string         `json:"event,omitempty" bson:"event,omitempty"`
	Context    map[string]any `json:"context,omitempty" bson:"context,omitempty"`
	Meta       map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
	OccurredAt time.Time      `json:"occurred_at" bson:"occurred_at"`
}

// Key returns the entry's scope key.
func (e Entry) Key() Key {
	return Key{EntityType: e.EntityType, EntityID: e.EntityID, Attribute: e.Attribute}
}

// Storage persists entries. Implementations must return entries for a key in
// the order they were appended.
type Storage interface {
	Append(ctx context.Context, entry Entry) error
	Query(ctx context.Context, key Key) ([]Entry, error)
}

// ReplayResult is the outcome of folding a key's history from its
// initial state.
type ReplayResult struct {
	FinalState      string  `json:"final_state"`
	TransitionCount int     `json:"transition_count"`
	Steps           []Entry `json:"steps"`
}

// Issue describes one inconsistency found while validating a history.
// Position is 1-based and refers to the entry where the problem was detected.
type Issue struct {
	Position int    `json:"position"`
	Detail   string `json:"detail"`
}

// ValidationReport is the result of ValidateHistory. Inconsistencies are
// reported as issues; the call itself only errors on storage failures.
type ValidationReport struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

// Statistics aggregates a key's history.
type Statistics struct {
	TotalTransitions int            `json:"total_transitions"`
	StateFrequencies map[string]int `json:"state_frequencies"`
	PatternCounts    map[string]int `json:"pattern_counts"`
}
