package graph

import (
	"errors"
	"fmt"
)

// Build-time errors returned by the Builder.
var (
	// ErrNoInitialState is returned when a graph declares no initial state.
	ErrNoInitialState = errors.New("graph has no initial state")

	// ErrDuplicateInitialState is returned when Initial is set twice.
	ErrDuplicateInitialState = errors.New("graph already has an initial state")

	// ErrQueuedClosure is returned when a queued action or callback holds an
	// inline closure instead of a named reference.
	ErrQueuedClosure = errors.New("queued callable must be a named reference, not a closure")

	// ErrEmptyCallable is returned when an action or callback holds neither
	// a function nor a named reference.
	ErrEmptyCallable = errors.New("callable holds neither a function nor a named reference")
)

// FailureCode classifies why a transition attempt failed.
type FailureCode string

const (
	CodeNoSuchTransition       FailureCode = "no_such_transition"
	CodeGuardRejected          FailureCode = "guard_rejected"
	CodeCallbackFailure        FailureCode = "callback_failure"
	CodeConcurrentModification FailureCode = "concurrent_modification"
	CodeQueuedClosureRejected  FailureCode = "queued_closure_rejected"
)

// Stage names the pipeline stage a failure occurred in.
type Stage string

const (
	StageResolving   Stage = "resolving"
	StageGuards      Stage = "guard_checking"
	StageCommitting  Stage = "committing"
	StageDispatching Stage = "dispatching"
)

// TransitionError is the single failure type every pipeline stage normalizes
// into. It carries both state values, the stage, and the wrapped cause so a
// failure is debuggable without inspecting engine internals.
type TransitionError struct {
	Code       FailureCode
	Stage      Stage
	EntityType string
	Attribute  string
	From       string
	To         string
	Reason     string
	Err        error
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("transition %s.%s [%s -> %s] failed at %s: %s",
		e.EntityType, e.Attribute, e.From, e.To, e.Stage, e.Reason)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// NewNoSuchTransition builds the failure for an attempt with no matching
// graph entry. The reason includes the literal state values.
func NewNoSuchTransition(entityType, attribute, from, to string) *TransitionError {
	return &TransitionError{
		Code:       CodeNoSuchTransition,
		Stage:      StageResolving,
		EntityType: entityType,
		Attribute:  attribute,
		From:       from,
		To:         to,
		Reason:     fmt.Sprintf("no defined transition from %q to %q for %s.%s", from, to, entityType, attribute),
	}
}

// NewGuardRejected builds the failure for a rejected guard set.
func NewGuardRejected(entityType, attribute, from, to, reason string, err error) *TransitionError {
	return &TransitionError{
		Code:       CodeGuardRejected,
		Stage:      StageGuards,
		EntityType: entityType,
		Attribute:  attribute,
		From:       from,
		To:         to,
		Reason:     reason,
		Err:        err,
	}
}

// NewCallbackFailure builds the failure for a callback or action that
// returned an error, preserving the original error and the stage.
func NewCallbackFailure(stage Stage, entityType, attribute, from, to, reason string, err error) *TransitionError {
	return &TransitionError{
		Code:       CodeCallbackFailure,
		Stage:      stage,
		EntityType: entityType,
		Attribute:  attribute,
		From:       from,
		To:         to,
		Reason:     reason,
		Err:        err,
	}
}

// NewConcurrentModification builds the failure for a lost CAS at commit time.
func NewConcurrentModification(entityType, attribute, from, to string, err error) *TransitionError {
	return &TransitionError{
		Code:       CodeConcurrentModification,
		Stage:      StageCommitting,
		EntityType: entityType,
		Attribute:  attribute,
		From:       from,
		To:         to,
		Reason:     fmt.Sprintf("persisted value no longer %q, concurrent writer won", from),
		Err:        err,
	}
}

// NewQueuedClosureRejected builds the contract-violation failure raised
// before any guard or commit work runs.
func NewQueuedClosureRejected(entityType, attribute, from, to, description string) *TransitionError {
	return &TransitionError{
		Code:       CodeQueuedClosureRejected,
		Stage:      StageResolving,
		EntityType: entityType,
		Attribute:  attribute,
		From:       from,
		To:         to,
		Reason:     fmt.Sprintf("queued callable %q is a closure; only named references can be queued", description),
		Err:        ErrQueuedClosure,
	}
}

func hasCode(err error, code FailureCode) bool {
	var te *TransitionError
	return errors.As(err, &te) && te.Code == code
}

// IsNoSuchTransition reports whether err is a no-such-transition failure.
func IsNoSuchTransition(err error) bool {
	return hasCode(err, CodeNoSuchTransition)
}

// IsGuardRejected reports whether err is a guard rejection.
func IsGuardRejected(err error) bool {
	return hasCode(err, CodeGuardRejected)
}

// IsCallbackFailure reports whether err wraps a failed callback or action.
func IsCallbackFailure(err error) bool {
	return hasCode(err, CodeCallbackFailure)
}

// IsConcurrentModification reports whether err is a lost concurrent write.
func IsConcurrentModification(err error) bool {
	return hasCode(err, CodeConcurrentModification)
}

// IsQueuedClosureRejected reports whether err is the queued-closure contract
// violation.
func IsQueuedClosureRejected(err error) bool {
	return hasCode(err, CodeQueuedClosureRejected)
}
