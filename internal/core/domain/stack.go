package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Stack Errors
// =============================================================================

var (
	ErrMissingVariable   = errors.New("required variable is missing")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// =============================================================================
// Stack Status
// =============================================================================

type StackStatus string

const (
	StatusPending  StackStatus = "pending"
	StatusStarting StackStatus = "starting"
	StatusRunning  StackStatus = "running"
	StatusStopping StackStatus = "stopping"
	StatusStopped  StackStatus = "stopped"
	StatusFailed   StackStatus = "failed"
	StatusRemoving StackStatus = "removing"
	StatusRemoved  StackStatus = "removed"
)

// =============================================================================
// Container Info
// =============================================================================

// PortMapping represents a port mapping.
type PortMapping struct {
	ContainerPort int    `json:"container_port"`
	HostPort      int    `json:"host_port"`
	Protocol      string `json:"protocol"` // tcp, udp
}

// ServiceInfo represents the observed state of one service's container.
//
// StartedAt is the engine-reported container start time. It is the record
// that makes start ordering verifiable after the fact: for every depends_on
// edge, the dependency's StartedAt must not be after the dependent's.
type ServiceInfo struct {
	Service     string        `json:"service"`
	ContainerID string        `json:"container_id"`
	Image       string        `json:"image"`
	State       string        `json:"state"` // created, running, restarting, exited, dead
	Health      HealthStatus  `json:"health,omitempty"`
	ExitCode    int           `json:"exit_code,omitempty"`
	OOMKilled   bool          `json:"oom_killed,omitempty"`
	Restarts    int           `json:"restarts"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	Ports       []PortMapping `json:"ports,omitempty"`
}

// =============================================================================
// Stack
// =============================================================================

// Stack represents a deployed instance of a variant.
type Stack struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Variant      string            `json:"variant"`
	ComposeYAML  string            `json:"-"`
	Variables    map[string]string `json:"variables,omitempty"`
	Status       StackStatus       `json:"status"`
	Health       HealthStatus      `json:"health,omitempty"`
	Services     []ServiceInfo     `json:"services,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	StoppedAt    *time.Time        `json:"stopped_at,omitempty"`
}

// NewStack creates a new stack from a variant.
// The name defaults to a generated one when empty.
func NewStack(variant Variant, name string, variables map[string]string) (*Stack, error) {
	errs := ValidateStackVariables(variant.Variables, variables)
	if len(errs) > 0 {
		return nil, errs[0]
	}

	if name == "" {
		name = GenerateStackName(variant.Name)
	}

	now := time.Now().UTC()
	return &Stack{
		ID:          uuid.New().String(),
		Name:        name,
		Variant:     variant.Name,
		ComposeYAML: variant.ComposeYAML,
		Variables:   variables,
		Status:      StatusPending,
		Health:      HealthStatusUnknown,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Transition attempts to transition the stack to a new status.
func (s *Stack) Transition(to StackStatus) error {
	if err := ValidateTransition(s.Status, to); err != nil {
		return err
	}

	s.Status = to
	s.UpdatedAt = time.Now().UTC()

	// Clear error on retry
	if s.Status == StatusStarting {
		s.ErrorMessage = ""
	}

	// Set timestamps
	if to == StatusRunning {
		now := time.Now().UTC()
		s.StartedAt = &now
	}
	if to == StatusStopped {
		now := time.Now().UTC()
		s.StoppedAt = &now
	}

	return nil
}

// TransitionToFailed transitions to failed status with an error message.
func (s *Stack) TransitionToFailed(errorMessage string) error {
	switch s.Status {
	case StatusStarting, StatusRunning, StatusStopping, StatusRemoving:
		s.Status = StatusFailed
		s.ErrorMessage = errorMessage
		s.UpdatedAt = time.Now().UTC()
		return nil
	default:
		return ErrInvalidTransition
	}
}

// =============================================================================
// State Machine
// =============================================================================

// validTransitions defines the allowed state transitions.
var validTransitions = map[StackStatus][]StackStatus{
	StatusPending:  {StatusStarting, StatusRemoving},
	StatusStarting: {StatusRunning, StatusFailed, StatusStopping},
	StatusRunning:  {StatusStopping, StatusStopped, StatusFailed},
	StatusStopping: {StatusStopped, StatusFailed},
	StatusStopped:  {StatusStarting, StatusRemoving},
	StatusFailed:   {StatusStarting, StatusStopping, StatusRemoving},
	StatusRemoving: {StatusRemoved, StatusFailed},
	StatusRemoved:  {}, // Terminal state
}

// ValidateTransition checks if a status transition is valid.
func ValidateTransition(from, to StackStatus) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return ErrInvalidTransition
	}

	for _, s := range allowed {
		if s == to {
			return nil
		}
	}

	return ErrInvalidTransition
}

// DeriveStatus derives a stack status from observed container states.
//
// A running or starting stack whose containers have all left the running
// state is either stopped (every container exited cleanly) or failed (at
// least one container exited nonzero or is dead). Restart policies mean a
// crashed container usually reappears as restarting, which keeps the stack
// in its current status.
//
// Returns the derived status and whether it differs from current.
func DeriveStatus(current StackStatus, services []ServiceInfo) (StackStatus, bool) {
	if current != StatusRunning && current != StatusStarting {
		return current, false
	}
	if len(services) == 0 {
		return current, false
	}

	anyAlive := false
	anyFailed := false
	for _, svc := range services {
		switch svc.State {
		case "running", "restarting", "created":
			anyAlive = true
		case "dead":
			anyFailed = true
		case "exited":
			if svc.ExitCode != 0 {
				anyFailed = true
			}
		}
	}

	if anyAlive {
		return current, false
	}
	if anyFailed {
		return StatusFailed, true
	}
	return StatusStopped, true
}

// =============================================================================
// Name Generation
// =============================================================================

// GenerateStackName generates a unique stack name from a variant name.
func GenerateStackName(variantName string) string {
	suffix := make([]byte, 3)
	rand.Read(suffix)
	return fmt.Sprintf("%s-%s", Slugify(variantName), hex.EncodeToString(suffix))
}

// =============================================================================
// Variable Validation
// =============================================================================

// ValidateStackVariables validates that all required variables are provided.
// Variables with defaults count as provided.
func ValidateStackVariables(variantVars []Variable, providedVars map[string]string) []error {
	var errs []error

	for _, v := range variantVars {
		if !v.Required || v.Default != "" {
			continue
		}
		if _, exists := providedVars[v.Name]; !exists {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingVariable, v.Name))
		}
	}

	return errs
}

// ResolveVariables merges variant defaults with provided values; provided
// values win.
func ResolveVariables(variantVars []Variable, providedVars map[string]string) map[string]string {
	resolved := make(map[string]string, len(variantVars)+len(providedVars))
	for _, v := range variantVars {
		if v.Default != "" {
			resolved[v.Name] = v.Default
		}
	}
	for k, v := range providedVars {
		resolved[k] = v
	}
	return resolved
}
