package graph

import "maps"

// Input is the runtime context of a single transition attempt. It is created
// per attempt, handed to guards, callbacks and actions, and discarded when
// the attempt completes.
type Input struct {
	EntityType string
	EntityID   string
	Attribute  string
	From       string
	To         string
	Event      string
	// Context is the caller-supplied payload for this attempt.
	Context map[string]any
	// Meta collects metadata contributed by guards and callbacks during the
	// attempt; it is persisted with the event log entry on success.
	Meta map[string]any
}

// SetMeta records a metadata value on the attempt, allocating the map lazily.
func (in *Input) SetMeta(key string, value any) {
	if in.Meta == nil {
		in.Meta = make(map[string]any)
	}
	in.Meta[key] = value
}

// Snapshot is the serializable form of an Input, used when handing work to
// the task queue. The worker side reconstructs an Input and reloads the
// entity by id.
type Snapshot struct {
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Attribute  string         `json:"attribute"`
	From       string         `json:"from_state"`
	To         string         `json:"to_state"`
	Event      string         `json:"event,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Snapshot captures the attempt state as a serializable value. Maps are
// copied so queued work does not race with the live attempt.
func (in *Input) Snapshot() Snapshot {
	return Snapshot{
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		Attribute:  in.Attribute,
		From:       in.From,
		To:         in.To,
		Event:      in.Event,
		Context:    maps.Clone(in.Context),
		Meta:       maps.Clone(in.Meta),
	}
}

// Input rebuilds a runtime Input from the snapshot.
func (s Snapshot) Input() *Input {
	return &Input{
		EntityType: s.EntityType,
		EntityID:   s.EntityID,
		Attribute:  s.Attribute,
		From:       s.From,
		To:         s.To,
		Event:      s.Event,
		Context:    s.Context,
		Meta:       s.Meta,
	}
}
