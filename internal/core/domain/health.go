// Package domain contains the core domain types for stackd.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Health Types
// =============================================================================

// HealthStatus represents the overall health of a stack or container.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// StackHealth represents the aggregated health of a stack.
type StackHealth struct {
	Status     HealthStatus      `json:"status"`
	Containers []ContainerHealth `json:"containers"`
	CheckedAt  time.Time         `json:"checked_at"`
}

// ContainerHealth represents the health status of a single container.
type ContainerHealth struct {
	Name      string       `json:"name"`
	Status    string       `json:"status"` // running, stopped, paused, restarting, exited
	Health    HealthStatus `json:"health"`
	StartedAt *time.Time   `json:"started_at,omitempty"`
	Restarts  int          `json:"restarts"`
}

// =============================================================================
// Event Types (Container Lifecycle)
// =============================================================================

// ContainerEventType represents the type of container lifecycle event.
type ContainerEventType string

const (
	EventImagePulling       ContainerEventType = "image_pulling"
	EventImagePulled        ContainerEventType = "image_pulled"
	EventContainerCreated   ContainerEventType = "container_created"
	EventContainerStarted   ContainerEventType = "container_started"
	EventContainerStopped   ContainerEventType = "container_stopped"
	EventContainerRestarted ContainerEventType = "container_restarted"
	EventContainerDied      ContainerEventType = "container_died"
	EventContainerOOM       ContainerEventType = "container_oom"
	EventHealthUnhealthy    ContainerEventType = "health_unhealthy"
	EventHealthHealthy      ContainerEventType = "health_healthy"
)

// ContainerEvent represents a container lifecycle event.
type ContainerEvent struct {
	ID          int64              `json:"-"`
	ReferenceID string             `json:"id"`
	StackID     string             `json:"-"`
	Type        ContainerEventType `json:"type"`
	Container   string             `json:"container"`
	Message     string             `json:"message"`
	Timestamp   time.Time          `json:"timestamp"`
	CreatedAt   time.Time          `json:"created_at"`
}

// NewContainerEvent creates a new container event timestamped now.
func NewContainerEvent(stackID string, eventType ContainerEventType, container, message string) ContainerEvent {
	now := time.Now().UTC()
	return ContainerEvent{
		ReferenceID: "evt_" + uuid.New().String()[:8],
		StackID:     stackID,
		Type:        eventType,
		Container:   container,
		Message:     message,
		Timestamp:   now,
		CreatedAt:   now,
	}
}
