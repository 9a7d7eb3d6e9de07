package plan

import "github.com/artpar/stackd/internal/core/domain"

// =============================================================================
// Stack State Transition Planning
// =============================================================================

// StartPath represents the result of planning a stack start operation.
// It contains the sequence of state transitions needed to start a stack.
type StartPath struct {
	// Valid indicates whether the start operation can proceed.
	Valid bool

	// Transitions is the sequence of states to transition through.
	// Empty if Valid is false.
	Transitions []domain.StackStatus

	// ErrorReason contains the reason why the start is not allowed.
	// Empty if Valid is true.
	ErrorReason string
}

// DetermineStartPath determines the sequence of state transitions needed
// to start a stack from its current status.
//
// This is a pure function that encapsulates the state machine logic for
// starting stacks, following ADR-002 "Values as Boundaries".
//
// Valid start paths:
//   - pending → starting (first start)
//   - stopped → starting (restart)
//   - failed → starting (retry)
//
// Invalid states for starting:
//   - running: already running
//   - starting/stopping/removing: operation in progress
//   - removed: cannot restart removed stack
//
// Example:
//
//	path := DetermineStartPath(stack.Status)
//	if !path.Valid {
//	    return errors.New(path.ErrorReason)
//	}
//	for _, status := range path.Transitions {
//	    stack.Transition(status)
//	}
func DetermineStartPath(currentStatus domain.StackStatus) StartPath {
	switch currentStatus {
	case domain.StatusPending, domain.StatusStopped, domain.StatusFailed:
		return StartPath{
			Valid:       true,
			Transitions: []domain.StackStatus{domain.StatusStarting},
		}

	case domain.StatusRunning:
		return StartPath{
			Valid:       false,
			ErrorReason: "stack is already running",
		}

	case domain.StatusStarting:
		return StartPath{
			Valid:       false,
			ErrorReason: "stack is already starting",
		}

	case domain.StatusStopping:
		return StartPath{
			Valid:       false,
			ErrorReason: "stack is currently stopping",
		}

	case domain.StatusRemoving:
		return StartPath{
			Valid:       false,
			ErrorReason: "stack is being removed",
		}

	case domain.StatusRemoved:
		return StartPath{
			Valid:       false,
			ErrorReason: "cannot start removed stack",
		}

	default:
		return StartPath{
			Valid:       false,
			ErrorReason: "cannot start stack in current state",
		}
	}
}

// CanStopStack checks if a stack can be stopped from its current status.
// Running stacks can be stopped; failed stacks too, since a partial start
// may have left containers behind that need tearing down.
//
// Returns whether the stop is allowed and an optional reason if not.
func CanStopStack(currentStatus domain.StackStatus) (bool, string) {
	switch currentStatus {
	case domain.StatusRunning, domain.StatusFailed:
		return true, ""
	default:
		return false, "stack is not running"
	}
}

// CanDestroyStack checks if a stack can be removed from its current status.
// A stack must be at rest (pending, stopped, or failed) before its
// containers, network, and volumes are deleted.
func CanDestroyStack(currentStatus domain.StackStatus) (bool, string) {
	switch currentStatus {
	case domain.StatusPending, domain.StatusStopped, domain.StatusFailed:
		return true, ""
	case domain.StatusRemoved:
		return false, "stack is already removed"
	default:
		return false, "stack must be stopped before it can be removed"
	}
}
