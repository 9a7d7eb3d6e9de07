// Package monitoring provides pure functions for stack monitoring logic.
// Following ADR-002: Values as Boundaries - this package contains NO I/O.
package monitoring

import (
	"fmt"
	"time"

	"github.com/artpar/stackd/internal/core/domain"
)

// =============================================================================
// Health Aggregation (Pure Functions)
// =============================================================================

// AggregateHealth determines overall stack health from container states.
// This is a pure function - it takes container health values and returns a status.
func AggregateHealth(containers []domain.ContainerHealth) domain.HealthStatus {
	if len(containers) == 0 {
		return domain.HealthStatusUnknown
	}

	unhealthy := 0
	degraded := 0

	for _, c := range containers {
		switch c.Health {
		case domain.HealthStatusUnhealthy:
			unhealthy++
		case domain.HealthStatusDegraded:
			degraded++
		case domain.HealthStatusUnknown:
			// Unknown containers count as degraded
			degraded++
		}
	}

	// All unhealthy = unhealthy
	if unhealthy == len(containers) {
		return domain.HealthStatusUnhealthy
	}
	// Any unhealthy or degraded = degraded
	if unhealthy > 0 || degraded > 0 {
		return domain.HealthStatusDegraded
	}
	// All healthy = healthy
	return domain.HealthStatusHealthy
}

// DetermineContainerHealth determines health from container state and metrics.
// This is a pure function that maps container state to health status.
//
// Parameters:
// - status: Container status (running, stopped, paused, restarting, exited)
// - healthCheck: Docker health check result if available (healthy, unhealthy, starting)
// - restarts: Number of restarts since container creation
func DetermineContainerHealth(status string, healthCheck *string, restarts int) domain.HealthStatus {
	// Non-running containers are unhealthy
	if status != "running" {
		return domain.HealthStatusUnhealthy
	}

	// If Docker health check reports unhealthy
	if healthCheck != nil && *healthCheck == "unhealthy" {
		return domain.HealthStatusUnhealthy
	}

	// Many restarts indicate instability
	if restarts > 3 {
		return domain.HealthStatusDegraded
	}

	// Health check still starting
	if healthCheck != nil && *healthCheck == "starting" {
		return domain.HealthStatusDegraded
	}

	return domain.HealthStatusHealthy
}

// BuildStackHealth folds observed service states into an aggregated stack
// health report. ServiceInfo.Health carries the raw Docker health check
// result; most services here define no health check, so per-container
// health is derived from state and restart churn instead, and a running
// container without a check counts as healthy. The caller supplies
// checkedAt so this stays pure.
func BuildStackHealth(services []domain.ServiceInfo, checkedAt time.Time) domain.StackHealth {
	containers := make([]domain.ContainerHealth, 0, len(services))
	for _, svc := range services {
		var check *string
		if svc.Health == domain.HealthStatusHealthy || svc.Health == domain.HealthStatusUnhealthy {
			s := string(svc.Health)
			check = &s
		}
		containers = append(containers, domain.ContainerHealth{
			Name:      svc.Service,
			Status:    svc.State,
			Health:    DetermineContainerHealth(svc.State, check, svc.Restarts),
			StartedAt: svc.StartedAt,
			Restarts:  svc.Restarts,
		})
	}

	return domain.StackHealth{
		Status:     AggregateHealth(containers),
		Containers: containers,
		CheckedAt:  checkedAt,
	}
}

// =============================================================================
// Event Message Generation (Pure Functions)
// =============================================================================

// ContainerEventMessage generates a human-readable message for container events.
func ContainerEventMessage(eventType domain.ContainerEventType, containerName string) string {
	switch eventType {
	case domain.EventImagePulling:
		return "Pulling image for " + containerName
	case domain.EventImagePulled:
		return "Image for " + containerName + " pulled"
	case domain.EventContainerCreated:
		return "Container " + containerName + " created"
	case domain.EventContainerStarted:
		return "Container " + containerName + " started successfully"
	case domain.EventContainerStopped:
		return "Container " + containerName + " stopped"
	case domain.EventContainerRestarted:
		return "Container " + containerName + " restarted"
	case domain.EventContainerDied:
		return "Container " + containerName + " died unexpectedly"
	case domain.EventContainerOOM:
		return "Container " + containerName + " killed due to out of memory"
	case domain.EventHealthUnhealthy:
		return "Container " + containerName + " health check failed"
	case domain.EventHealthHealthy:
		return "Container " + containerName + " health check passed"
	default:
		return "Container " + containerName + " event: " + string(eventType)
	}
}

// =============================================================================
// Transition Detection (Pure Functions)
// =============================================================================

// HealthTransition records a container whose health changed between two
// monitoring passes.
type HealthTransition struct {
	Container string
	Type      domain.ContainerEventType
}

// HealthTransitions compares two service snapshots and returns events for
// containers whose Docker health check result crossed the healthy line.
// It reads the raw check result, so containers without a health check
// never report one; their failures surface as lifecycle events instead.
// Only containers present in both snapshots are compared.
func HealthTransitions(previous, current []domain.ServiceInfo) []HealthTransition {
	prevByName := make(map[string]domain.ServiceInfo, len(previous))
	for _, svc := range previous {
		prevByName[svc.Service] = svc
	}

	var transitions []HealthTransition
	for _, svc := range current {
		prev, seen := prevByName[svc.Service]
		if !seen || prev.Health == svc.Health {
			continue
		}
		switch {
		case svc.Health == domain.HealthStatusUnhealthy:
			transitions = append(transitions, HealthTransition{Container: svc.Service, Type: domain.EventHealthUnhealthy})
		case svc.Health == domain.HealthStatusHealthy && prev.Health == domain.HealthStatusUnhealthy:
			transitions = append(transitions, HealthTransition{Container: svc.Service, Type: domain.EventHealthHealthy})
		}
	}
	return transitions
}

// LifecycleTransitions compares two service snapshots and returns the
// container lifecycle events implied by the differences. Only containers
// present in both snapshots are compared; a container that appears or
// disappears between passes belongs to stack start and stop handling, not
// to the monitor.
func LifecycleTransitions(previous, current []domain.ServiceInfo) []HealthTransition {
	prevByName := make(map[string]domain.ServiceInfo, len(previous))
	for _, svc := range previous {
		prevByName[svc.Service] = svc
	}

	var transitions []HealthTransition
	for _, svc := range current {
		prev, seen := prevByName[svc.Service]
		if !seen {
			continue
		}

		switch {
		case svc.Restarts > prev.Restarts:
			// The restart policy revived the container between passes. The
			// intermediate death is folded into the restart event.
			transitions = append(transitions, HealthTransition{Container: svc.Service, Type: domain.EventContainerRestarted})
		case prev.State != "running" && svc.State == "running":
			transitions = append(transitions, HealthTransition{Container: svc.Service, Type: domain.EventContainerStarted})
		case prev.State == "running" && (svc.State == "exited" || svc.State == "dead"):
			switch {
			case svc.OOMKilled:
				transitions = append(transitions, HealthTransition{Container: svc.Service, Type: domain.EventContainerOOM})
			case svc.ExitCode != 0:
				transitions = append(transitions, HealthTransition{Container: svc.Service, Type: domain.EventContainerDied})
			default:
				transitions = append(transitions, HealthTransition{Container: svc.Service, Type: domain.EventContainerStopped})
			}
		}
	}
	return transitions
}

// FailureMessage summarizes the container that brought a stack down, for
// use as the stack's error message.
func FailureMessage(services []domain.ServiceInfo) string {
	for _, svc := range services {
		switch {
		case svc.OOMKilled:
			return "container " + svc.Service + " was killed out of memory"
		case svc.State == "dead":
			return "container " + svc.Service + " is dead"
		case svc.State == "exited" && svc.ExitCode != 0:
			return fmt.Sprintf("container %s exited with code %d", svc.Service, svc.ExitCode)
		}
	}
	return "all containers stopped unexpectedly"
}
