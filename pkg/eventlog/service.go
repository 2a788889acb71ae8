package eventlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InitialStateResolver reports the initial state for an entity type and
// attribute. The definition registry satisfies it.
type InitialStateResolver interface {
	InitialState(entityType, attribute string) (string, bool)
}

// Service records transitions and answers history queries.
type Service struct {
	storage  Storage
	resolver InitialStateResolver

	mu   sync.Mutex
	last time.Time
}

// NewService creates a service on top of the given storage. resolver may be
// nil; replay and validation then treat the first recorded entry's origin
// state as the starting point.
func NewService(storage Storage, resolver InitialStateResolver) (*Service, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	return &Service{storage: storage, resolver: resolver}, nil
}

// Record appends a committed transition to the log. Missing IDs and
// timestamps are filled in; timestamps are kept strictly increasing per
// process so same-millisecond transitions preserve their order.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	if err := entry.Key().Validate(); err != nil {
		return err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	entry.OccurredAt = s.monotonic(entry.OccurredAt)
	return s.storage.Append(ctx, entry)
}

func (s *Service) monotonic(t time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// History returns all recorded transitions for the key in chronological order.
func (s *Service) History(ctx context.Context, key Key) ([]Entry, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return s.storage.Query(ctx, key)
}

// Replay folds the key's history from the initial state and returns the
// reconstructed final state. Returns ErrEmptyHistory when nothing was
// recorded for the key.
func (s *Service) Replay(ctx context.Context, key Key) (ReplayResult, error) {
	entries, err := s.History(ctx, key)
	if err != nil {
		return ReplayResult{}, err
	}
	if len(entries) == 0 {
		return ReplayResult{}, ErrEmptyHistory
	}

	return ReplayResult{
		FinalState:      entries[len(entries)-1].To,
		TransitionCount: len(entries),
		Steps:           entries,
	}, nil
}

// ValidateHistory checks the key's recorded chain for consistency: the first
// entry must leave the definition's initial state, and each entry must start
// where the previous one ended. Inconsistencies become issues in the report;
// the returned error covers storage failures only.
func (s *Service) ValidateHistory(ctx context.Context, key Key) (ValidationReport, error) {
	entries, err := s.History(ctx, key)
	if err != nil {
		return ValidationReport{}, err
	}

	report := ValidationReport{Valid: true}
	if len(entries) == 0 {
		return report, nil
	}

	if s.resolver != nil {
		if initial, ok := s.resolver.InitialState(key.EntityType, key.Attribute); ok && entries[0].From != initial {
			report.Issues = append(report.Issues, Issue{
				Position: 1,
				Detail:   fmt.Sprintf("history starts at %q, definition initial state is %q", entries[0].From, initial),
			})
		}
	}

	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.From != prev.To {
			report.Issues = append(report.Issues, Issue{
				Position: i + 1,
				Detail:   fmt.Sprintf("entry leaves %q but previous entry ended at %q", cur.From, prev.To),
			})
		}
	}

	report.Valid = len(report.Issues) == 0
	return report, nil
}

// Statistics aggregates the key's history: total transitions, how often each
// state was entered, and how often each from->to pattern occurred.
func (s *Service) Statistics(ctx context.Context, key Key) (Statistics, error) {
	entries, err := s.History(ctx, key)
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		TotalTransitions: len(entries),
		StateFrequencies: make(map[string]int),
		PatternCounts:    make(map[string]int),
	}
	for _, e := range entries {
		stats.StateFrequencies[e.To]++
		stats.PatternCounts[e.From+"->"+e.To]++
	}
	return stats, nil
}
