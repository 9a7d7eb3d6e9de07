// Package runner executes stack lifecycle operations against Docker.
//
// The runner consumes the pure outputs of the compose and plan packages and
// performs the actual container work: networks, volumes, image pulls, and
// container create/start/stop/remove. Containers are started strictly in
// dependency order, and a dependency is only guaranteed to have been
// *started* before its dependents - never to be ready. Services that need a
// live dependency (an accepting socket, a completed migration) must retry on
// their own; the readiness gap is reported by the probe package, not closed
// here.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/artpar/stackd/internal/core/compose"
	"github.com/artpar/stackd/internal/core/domain"
	"github.com/artpar/stackd/internal/core/monitoring"
	"github.com/artpar/stackd/internal/core/plan"
	"github.com/artpar/stackd/internal/shell/docker"
)

// =============================================================================
// Runner - Manages Stack Lifecycle
// =============================================================================

// EventRecorder receives container lifecycle events as the runner produces
// them. Recording is best effort: implementations swallow their own errors
// and must not block.
type EventRecorder interface {
	RecordEvent(ctx context.Context, event domain.ContainerEvent)
}

// Pull policies controlling when Up fetches images.
const (
	PullMissing = "missing" // Pull only images absent from the local daemon
	PullAlways  = "always"  // Pull every image on each Up
	PullNever   = "never"   // Never pull; container creation fails if absent
)

// Runner manages the lifecycle of stacks using Docker.
type Runner struct {
	docker      docker.Client
	events      EventRecorder
	logger      *slog.Logger
	configDir   string // Base directory for storing rendered config files
	stopTimeout time.Duration
	pullPolicy  string
}

// NewRunner creates a new runner.
// configDir is the base directory for storing per-stack config files.
// events may be nil, in which case no events are recorded.
func NewRunner(dockerClient docker.Client, events EventRecorder, logger *slog.Logger, configDir string) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if configDir == "" {
		configDir = "/var/lib/stackd/configs"
	}
	return &Runner{
		docker:      dockerClient,
		events:      events,
		logger:      logger,
		configDir:   configDir,
		stopTimeout: 10 * time.Second,
		pullPolicy:  PullMissing,
	}
}

// SetStopTimeout overrides the grace period containers are given on stop.
// Values of zero or less are ignored.
func (r *Runner) SetStopTimeout(d time.Duration) {
	if d > 0 {
		r.stopTimeout = d
	}
}

// SetPullPolicy overrides when Up pulls images. Unknown values are ignored.
func (r *Runner) SetPullPolicy(policy string) {
	switch policy {
	case PullMissing, PullAlways, PullNever:
		r.pullPolicy = policy
	}
}

// =============================================================================
// Up
// =============================================================================

// Up creates and starts all containers for a stack.
//
// Containers are created and started sequentially in dependency order: for
// every depends_on edge, the dependency's container has been started (its
// daemon start timestamp recorded) before the dependent's start call is
// issued. No health or readiness gate is applied between starts.
//
// variables supplies values for compose interpolation and environment
// substitution. configFiles are written under the stack's config directory
// and mounted read-only into their services; a relative bind source in the
// document (./prometheus.yml) resolves to the same directory.
//
// On failure every container created by this call is removed along with the
// stack network, and the error is returned. Returns per-service info
// including container IDs and start timestamps.
func (r *Runner) Up(ctx context.Context, stack *domain.Stack, composeYAML string, variables map[string]string, configFiles []domain.ConfigFile) ([]domain.ServiceInfo, error) {
	r.logger.Info("starting stack",
		"stack_id", stack.ID,
		"variant", stack.Variant,
		"config_files", len(configFiles),
	)

	// 1. Write config files to disk
	stackDir := r.stackConfigDir(stack.ID)
	configPaths, err := r.writeConfigFiles(stackDir, configFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to write config files: %w", err)
	}

	// 2. Parse the compose document
	doc, err := compose.Parse(composeYAML, variables)
	if err != nil {
		return nil, fmt.Errorf("failed to parse compose document: %w", err)
	}

	r.logger.Debug("parsed compose document",
		"services", len(doc.Services),
		"networks", len(doc.Networks),
		"volumes", len(doc.Volumes),
	)

	// 3. Create the stack network
	networkName := plan.NetworkName(stack.ID)
	networkID, err := r.createStackNetwork(stack.ID, networkName)
	if err != nil {
		return nil, fmt.Errorf("failed to create network: %w", err)
	}
	r.logger.Debug("created network", "network_id", networkID, "network_name", networkName)

	// 4. Create named volumes
	for _, vol := range doc.Volumes {
		if vol.External {
			continue // Skip external volumes
		}
		volumeName := plan.VolumeName(stack.ID, vol.Name)
		if err := r.createStackVolume(stack.ID, volumeName); err != nil {
			_ = r.docker.RemoveNetwork(networkID)
			return nil, fmt.Errorf("failed to create volume %s: %w", vol.Name, err)
		}
		r.logger.Debug("created volume", "volume_name", volumeName)
	}

	// 5. Pull images according to the pull policy
	for _, svc := range doc.Services {
		if svc.Image == "" {
			continue // Build-only services have nothing to pull
		}
		if r.pullPolicy == PullNever {
			continue
		}
		if r.pullPolicy != PullAlways {
			if exists, _ := r.docker.ImageExists(svc.Image); exists {
				continue
			}
		}
		r.logger.Info("pulling image", "image", svc.Image)
		r.recordEvent(ctx, stack.ID, domain.EventImagePulling, svc.Name)
		if err := r.docker.PullImage(svc.Image, docker.PullOptions{}); err != nil {
			r.logger.Warn("failed to pull image, trying anyway", "image", svc.Image, "error", err)
		} else {
			r.recordEvent(ctx, stack.ID, domain.EventImagePulled, svc.Name)
		}
	}

	// 6. Check for existing containers (restart case)
	existingContainers, _ := r.docker.ListContainers(docker.ListOptions{
		All: true,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=%s", plan.LabelStack, stack.ID),
		},
	})

	existingByService := make(map[string]docker.ContainerInfo)
	for _, c := range existingContainers {
		if svc, ok := c.Labels[plan.LabelService]; ok {
			existingByService[svc] = c
		}
	}

	// 7. Create and start containers in dependency order
	var services []domain.ServiceInfo
	createdContainers := make(map[string]string) // serviceName -> containerID

	for _, svc := range plan.TopologicalSort(doc.Services) {
		var containerID string

		// Reuse an existing container when restarting a stopped stack
		if existing, found := existingByService[svc.Name]; found {
			containerID = existing.ID
			r.logger.Debug("using existing container", "service", svc.Name, "container_id", shortID(containerID))
		} else {
			cp := plan.BuildContainerPlan(plan.BuildContainerPlanParams{
				StackID:     stack.ID,
				Variant:     stack.Variant,
				ServiceName: svc.Name,
				Service:     svc,
				Variables:   variables,
				NetworkName: networkName,
			})
			spec := specFromPlan(cp, svc.Name, stackDir, configFiles, configPaths)

			containerID, err = r.docker.CreateContainer(spec)
			if err != nil {
				r.cleanupCreatedContainers(createdContainers)
				_ = r.docker.RemoveNetwork(networkID)
				return nil, fmt.Errorf("failed to create container %s: %w", svc.Name, err)
			}
			r.logger.Debug("created container", "service", svc.Name, "container_id", shortID(containerID))
			r.recordEvent(ctx, stack.ID, domain.EventContainerCreated, svc.Name)
		}

		createdContainers[svc.Name] = containerID

		// Start the container (works for both new and existing stopped containers)
		if err := r.docker.StartContainer(containerID); err != nil {
			if !errors.Is(err, docker.ErrContainerAlreadyRunning) {
				r.cleanupCreatedContainers(createdContainers)
				_ = r.docker.RemoveNetwork(networkID)
				return nil, fmt.Errorf("failed to start container %s: %w", svc.Name, err)
			}
		}

		info, err := r.docker.InspectContainer(containerID)
		if err != nil {
			r.cleanupCreatedContainers(createdContainers)
			_ = r.docker.RemoveNetwork(networkID)
			return nil, fmt.Errorf("failed to inspect container %s: %w", svc.Name, err)
		}

		// The daemon stamps StartedAt when the container process starts.
		// A missing timestamp means the start never happened, which would
		// break the ordering guarantee for every dependent of this service.
		if info.StartedAt == nil {
			r.cleanupCreatedContainers(createdContainers)
			_ = r.docker.RemoveNetwork(networkID)
			return nil, fmt.Errorf("container %s reported no start timestamp", svc.Name)
		}

		r.logger.Debug("started container",
			"service", svc.Name,
			"container_id", shortID(containerID),
			"started_at", info.StartedAt.Format(time.RFC3339Nano),
		)
		r.recordEvent(ctx, stack.ID, domain.EventContainerStarted, svc.Name)

		services = append(services, domain.ServiceInfo{
			Service:     svc.Name,
			ContainerID: info.ID,
			Image:       svc.Image,
			State:       info.State,
			Health:      healthStatus(info.Health),
			ExitCode:    info.ExitCode,
			OOMKilled:   info.OOMKilled,
			Restarts:    info.Restarts,
			StartedAt:   info.StartedAt,
			Ports:       convertPorts(info.Ports),
		})
	}

	r.logger.Info("stack started",
		"stack_id", stack.ID,
		"containers", len(services),
	)

	return services, nil
}

// =============================================================================
// Down
// =============================================================================

// Down stops all containers for a stack in reverse dependency order, so
// dependents stop before the services they depend on. Containers are stopped,
// not removed: a restart-policy "always" container is stopped cleanly here
// because Docker restart policies apply to crashes, not explicit stops.
func (r *Runner) Down(ctx context.Context, stack *domain.Stack) error {
	r.logger.Info("stopping stack", "stack_id", stack.ID)

	containers, err := r.docker.ListContainers(docker.ListOptions{
		All: true,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=%s", plan.LabelStack, stack.ID),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	stopped := 0
	for _, c := range r.stopOrder(stack, containers) {
		if c.Status != docker.ContainerStatusRunning && c.Status != docker.ContainerStatusRestarting {
			continue
		}
		r.logger.Debug("stopping container", "container_id", shortID(c.ID), "name", c.Name)
		if err := r.docker.StopContainer(c.ID, &r.stopTimeout); err != nil {
			r.logger.Warn("failed to stop container", "container_id", shortID(c.ID), "error", err)
			continue
		}
		stopped++
		r.recordEvent(ctx, stack.ID, domain.EventContainerStopped, c.Labels[plan.LabelService])
	}

	r.logger.Info("stack stopped", "stack_id", stack.ID, "containers_stopped", stopped)
	return nil
}

// stopOrder returns the stack's containers in reverse start order. When the
// stack record carries no parseable compose document the listing order is
// used as-is.
func (r *Runner) stopOrder(stack *domain.Stack, containers []docker.ContainerInfo) []docker.ContainerInfo {
	doc, err := compose.Parse(stack.ComposeYAML, stack.Variables)
	if err != nil {
		return containers
	}

	byService := make(map[string]docker.ContainerInfo)
	var unmatched []docker.ContainerInfo
	for _, c := range containers {
		svc, ok := c.Labels[plan.LabelService]
		if !ok {
			unmatched = append(unmatched, c)
			continue
		}
		byService[svc] = c
	}

	ordered := plan.TopologicalSort(doc.Services)
	result := make([]docker.ContainerInfo, 0, len(containers))
	for i := len(ordered) - 1; i >= 0; i-- {
		if c, ok := byService[ordered[i].Name]; ok {
			result = append(result, c)
			delete(byService, ordered[i].Name)
		}
	}

	// Containers labeled with services the document no longer declares
	for _, c := range byService {
		unmatched = append(unmatched, c)
	}
	sort.Slice(unmatched, func(i, j int) bool { return unmatched[i].Name < unmatched[j].Name })
	return append(result, unmatched...)
}

// =============================================================================
// Destroy
// =============================================================================

// Destroy removes all resources for a stack.
// Order: containers, network, volumes, config files.
func (r *Runner) Destroy(ctx context.Context, stack *domain.Stack) error {
	r.logger.Info("removing stack", "stack_id", stack.ID)

	// 1. List and remove containers
	containers, err := r.docker.ListContainers(docker.ListOptions{
		All: true,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=%s", plan.LabelStack, stack.ID),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	for _, c := range containers {
		if c.Status == docker.ContainerStatusRunning {
			_ = r.docker.StopContainer(c.ID, &r.stopTimeout)
		}
		if err := r.docker.RemoveContainer(c.ID, docker.RemoveOptions{Force: true, RemoveVolumes: false}); err != nil {
			r.logger.Warn("failed to remove container", "container_id", shortID(c.ID), "error", err)
		} else {
			r.logger.Debug("removed container", "container_id", shortID(c.ID))
		}
	}

	// 2. Remove network
	networkName := plan.NetworkName(stack.ID)
	if err := r.docker.RemoveNetwork(networkName); err != nil {
		if !errors.Is(err, docker.ErrNetworkNotFound) {
			r.logger.Warn("failed to remove network", "network", networkName, "error", err)
		}
	} else {
		r.logger.Debug("removed network", "network", networkName)
	}

	// 3. Remove volumes by stack label
	volumes, err := r.docker.ListVolumes(map[string]string{plan.LabelStack: stack.ID})
	if err != nil {
		r.logger.Warn("failed to list volumes", "error", err)
	}
	for _, v := range volumes {
		if err := r.docker.RemoveVolume(v, false); err != nil {
			r.logger.Warn("failed to remove volume", "volume", v, "error", err)
		} else {
			r.logger.Debug("removed volume", "volume", v)
		}
	}

	// 4. Remove rendered config files
	if err := r.CleanupConfigFiles(stack.ID); err != nil {
		r.logger.Warn("failed to clean up config files", "error", err)
	}

	r.logger.Info("stack removed", "stack_id", stack.ID)
	return nil
}

// =============================================================================
// Refresh
// =============================================================================

// Refresh re-inspects the stack's containers and returns fresh service info,
// sorted by service name. Containers that disappear between the list and the
// inspect are skipped.
func (r *Runner) Refresh(ctx context.Context, stack *domain.Stack) ([]domain.ServiceInfo, error) {
	containers, err := r.docker.ListContainers(docker.ListOptions{
		All: true,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=%s", plan.LabelStack, stack.ID),
		},
	})
	if err != nil {
		return nil, err
	}

	var result []domain.ServiceInfo
	for _, c := range containers {
		serviceName := c.Labels[plan.LabelService]
		if serviceName == "" {
			// Extract from container name: stackd_<stackID>_<service>
			parts := strings.Split(c.Name, "_")
			if len(parts) >= 3 {
				serviceName = parts[len(parts)-1]
			}
		}

		info, err := r.docker.InspectContainer(c.ID)
		if err != nil {
			if errors.Is(err, docker.ErrContainerNotFound) {
				continue
			}
			return nil, err
		}

		result = append(result, domain.ServiceInfo{
			Service:     serviceName,
			ContainerID: info.ID,
			Image:       c.Image,
			State:       info.State,
			Health:      healthStatus(info.Health),
			ExitCode:    info.ExitCode,
			OOMKilled:   info.OOMKilled,
			Restarts:    info.Restarts,
			StartedAt:   info.StartedAt,
			Ports:       convertPorts(info.Ports),
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Service < result[j].Service })
	return result, nil
}

// =============================================================================
// Logs
// =============================================================================

// Logs returns the tail of a container's log with timestamps.
func (r *Runner) Logs(ctx context.Context, containerID string, tail string) (string, error) {
	reader, err := r.docker.ContainerLogs(containerID, docker.LogOptions{
		Tail:       tail,
		Timestamps: true,
	})
	if err != nil {
		return "", err
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read container logs: %w", err)
	}
	return string(out), nil
}

// =============================================================================
// Helper Methods
// =============================================================================

// createStackNetwork creates a network for a stack or reuses an existing one.
func (r *Runner) createStackNetwork(stackID, networkName string) (string, error) {
	networkID, err := r.docker.CreateNetwork(docker.NetworkSpec{
		Name:   networkName,
		Driver: "bridge",
		Labels: map[string]string{
			plan.LabelManaged: "true",
			plan.LabelStack:   stackID,
		},
	})
	if err != nil {
		if errors.Is(err, docker.ErrNetworkAlreadyExists) {
			r.logger.Debug("network already exists, reusing", "network_name", networkName)
			// Docker accepts the name anywhere an ID is expected
			return networkName, nil
		}
		return "", err
	}
	return networkID, nil
}

// createStackVolume creates a volume for a stack. Creating an existing
// volume with the same driver is a no-op in Docker, so restarts are safe.
func (r *Runner) createStackVolume(stackID, volumeName string) error {
	_, err := r.docker.CreateVolume(docker.VolumeSpec{
		Name: volumeName,
		Labels: map[string]string{
			plan.LabelManaged: "true",
			plan.LabelStack:   stackID,
		},
	})
	return err
}

// specFromPlan converts a planned container into a Docker spec.
//
// Relative bind sources (./x) resolve into the stack's config directory,
// where rendered config files live. Config files for the service are mounted
// read-only unless the document already mounts their target path.
func specFromPlan(cp plan.ContainerPlan, serviceName, stackDir string, configFiles []domain.ConfigFile, configPaths map[string]string) docker.ContainerSpec {
	spec := docker.ContainerSpec{
		Name:       cp.Name,
		Image:      cp.Image,
		Command:    cp.Command,
		Entrypoint: cp.Entrypoint,
		Env:        cp.Env,
		Labels:     cp.Labels,
		Networks:   cp.Networks,
		RestartPolicy: docker.RestartPolicy{
			Name:              cp.RestartPolicy.Name,
			MaximumRetryCount: cp.RestartPolicy.MaximumRetryCount,
		},
	}

	// Containers resolve each other by compose service name on every
	// stack network (DATABASE_URL host "db", REDIS_URL host "redis")
	spec.NetworkAliases = make(map[string][]string, len(cp.Networks))
	for _, n := range cp.Networks {
		spec.NetworkAliases[n] = []string{serviceName}
	}

	for _, p := range cp.Ports {
		spec.Ports = append(spec.Ports, docker.PortBinding{
			ContainerPort: p.ContainerPort,
			HostPort:      p.HostPort,
			Protocol:      p.Protocol,
			HostIP:        p.HostIP,
		})
	}

	mounted := make(map[string]bool)
	for _, m := range cp.Mounts {
		source := m.Source
		if strings.HasPrefix(source, "./") {
			source = filepath.Join(stackDir, sanitizeFileName(strings.TrimPrefix(source, "./")))
		}
		spec.Volumes = append(spec.Volumes, docker.VolumeMount{
			Source:   source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
		mounted[m.Target] = true
	}

	for _, cf := range configFiles {
		if cf.Service != "" && cf.Service != serviceName {
			continue
		}
		if mounted[cf.Path] {
			continue
		}
		hostPath, ok := configPaths[cf.Path]
		if !ok {
			continue
		}
		spec.Volumes = append(spec.Volumes, docker.VolumeMount{
			Source:   hostPath,
			Target:   cf.Path,
			ReadOnly: true, // Config files are read-only
		})
	}

	if cp.HealthCheck != nil {
		spec.HealthCheck = &docker.HealthCheck{
			Test:        cp.HealthCheck.Test,
			Interval:    cp.HealthCheck.Interval,
			Timeout:     cp.HealthCheck.Timeout,
			Retries:     cp.HealthCheck.Retries,
			StartPeriod: cp.HealthCheck.StartPeriod,
		}
	}

	return spec
}

// cleanupCreatedContainers stops and removes all created containers.
func (r *Runner) cleanupCreatedContainers(containers map[string]string) {
	timeout := 5 * time.Second
	for name, id := range containers {
		_ = r.docker.StopContainer(id, &timeout)
		_ = r.docker.RemoveContainer(id, docker.RemoveOptions{Force: true})
		r.logger.Debug("cleaned up container", "service", name, "container_id", shortID(id))
	}
}

// recordEvent records a container lifecycle event if a recorder is attached.
func (r *Runner) recordEvent(ctx context.Context, stackID string, eventType domain.ContainerEventType, container string) {
	if r.events == nil {
		return
	}
	message := monitoring.ContainerEventMessage(eventType, container)
	r.events.RecordEvent(ctx, domain.NewContainerEvent(stackID, eventType, container, message))
}

// convertPorts converts Docker port bindings to domain port mappings.
func convertPorts(ports []docker.PortBinding) []domain.PortMapping {
	planPorts := make([]plan.PortBinding, 0, len(ports))
	for _, p := range ports {
		planPorts = append(planPorts, plan.PortBinding{
			ContainerPort: p.ContainerPort,
			HostPort:      p.HostPort,
			Protocol:      p.Protocol,
			HostIP:        p.HostIP,
		})
	}
	return plan.ConvertPorts(planPorts)
}

// healthStatus maps a Docker health string to a domain health status.
func healthStatus(health string) domain.HealthStatus {
	switch health {
	case "healthy":
		return domain.HealthStatusHealthy
	case "unhealthy":
		return domain.HealthStatusUnhealthy
	default:
		return domain.HealthStatusUnknown
	}
}

// shortID truncates a container ID for log output.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
