package plan

import (
	"time"

	"github.com/artpar/stackd/internal/core/compose"
)

// =============================================================================
// Container Plan Types
// =============================================================================

// ContainerPlan represents a planned container configuration.
// This is the pure output of planning, ready for the shell to execute.
type ContainerPlan struct {
	Name          string
	Image         string
	Command       []string
	Entrypoint    []string
	Env           map[string]string
	Labels        map[string]string
	Ports         []PortPlan
	Mounts        []MountPlan
	Networks      []string
	RestartPolicy RestartPolicyPlan
	HealthCheck   *HealthCheckPlan
}

// PortPlan represents a planned port binding.
type PortPlan struct {
	ContainerPort int
	HostPort      int
	Protocol      string
	HostIP        string
}

// MountPlan represents a planned volume or bind mount.
type MountPlan struct {
	Source   string
	Target   string
	ReadOnly bool
}

// RestartPolicyPlan represents a restart policy in Docker terms.
type RestartPolicyPlan struct {
	Name              string
	MaximumRetryCount int
}

// HealthCheckPlan represents a health check configuration.
type HealthCheckPlan struct {
	Test        []string
	Interval    time.Duration
	Timeout     time.Duration
	Retries     int
	StartPeriod time.Duration
}

// =============================================================================
// Builder Parameter Types
// =============================================================================

// BuildContainerPlanParams contains all inputs for building a container plan.
type BuildContainerPlanParams struct {
	StackID     string
	Variant     string
	ServiceName string
	Service     compose.Service
	Variables   map[string]string
	NetworkName string
}

// =============================================================================
// Container Labels
// =============================================================================

// Label keys used to identify containers managed by stackd.
const (
	LabelManaged = "com.stackd.managed"
	LabelStack   = "com.stackd.stack"
	LabelVariant = "com.stackd.variant"
	LabelService = "com.stackd.service"
)
