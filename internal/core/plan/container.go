package plan

import (
	"time"

	"github.com/artpar/stackd/internal/core/compose"
)

// =============================================================================
// Container Plan Building Functions
// =============================================================================

// BuildContainerPlan builds a ContainerPlan from a compose service and
// stack-level inputs.
//
// This is a pure function that transforms a service definition plus deploy
// parameters into a container plan the shell can execute via the Docker API.
//
// The function:
//   - Generates the container name using ContainerName()
//   - Copies image, command, and entrypoint from the service
//   - Substitutes deploy variables into environment values
//   - Prefixes named volumes with the stack ID
//   - Parses health check durations
//   - Maps the compose restart policy to Docker format
//   - Attaches stackd identity labels, then the service's own labels
func BuildContainerPlan(params BuildContainerPlanParams) ContainerPlan {
	svc := params.Service

	cp := ContainerPlan{
		Name:       ContainerName(params.StackID, params.ServiceName),
		Image:      svc.Image,
		Command:    svc.Command,
		Entrypoint: svc.Entrypoint,
		// Service env with deploy variables substituted
		Env: SubstituteAll(svc.Environment, params.Variables),
		Labels: map[string]string{
			LabelManaged: "true",
			LabelStack:   params.StackID,
			LabelVariant: params.Variant,
			LabelService: params.ServiceName,
		},
		Networks: []string{params.NetworkName},
	}

	// Port bindings
	for _, p := range svc.Ports {
		cp.Ports = append(cp.Ports, PortPlan{
			ContainerPort: int(p.Target),
			HostPort:      int(p.Published),
			Protocol:      p.Protocol,
			HostIP:        p.HostIP,
		})
	}

	// Mounts: named volumes get the stack prefix, binds pass through
	for _, m := range svc.Mounts {
		source := m.Source
		if m.Type == compose.MountTypeVolume {
			source = VolumeName(params.StackID, m.Source)
		}
		cp.Mounts = append(cp.Mounts, MountPlan{
			Source:   source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	// Health check
	if svc.HealthCheck != nil {
		cp.HealthCheck = &HealthCheckPlan{
			Test:    svc.HealthCheck.Test,
			Retries: svc.HealthCheck.Retries,
		}
		if d, err := time.ParseDuration(svc.HealthCheck.Interval); err == nil {
			cp.HealthCheck.Interval = d
		}
		if d, err := time.ParseDuration(svc.HealthCheck.Timeout); err == nil {
			cp.HealthCheck.Timeout = d
		}
		if d, err := time.ParseDuration(svc.HealthCheck.StartPeriod); err == nil {
			cp.HealthCheck.StartPeriod = d
		}
	}

	// Restart policy
	cp.RestartPolicy = mapRestartPolicy(svc.Restart)

	// Copy service labels
	for k, v := range svc.Labels {
		cp.Labels[k] = v
	}

	return cp
}

// mapRestartPolicy maps a compose restart policy to the Docker policy name.
// A service that declares no policy gets "no", which leaves crash handling
// entirely to the operator.
func mapRestartPolicy(policy compose.RestartPolicy) RestartPolicyPlan {
	switch policy {
	case compose.RestartAlways:
		return RestartPolicyPlan{Name: "always"}
	case compose.RestartOnFailure:
		return RestartPolicyPlan{Name: "on-failure"}
	case compose.RestartUnlessStopped:
		return RestartPolicyPlan{Name: "unless-stopped"}
	default:
		return RestartPolicyPlan{Name: "no"}
	}
}
