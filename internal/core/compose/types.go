package compose

// =============================================================================
// Document - Main Output Type
// =============================================================================

// Document represents a fully parsed Compose document.
// This is the stackd-specific representation, decoupled from compose-go types.
type Document struct {
	Services []Service `json:"services"`
	Networks []Network `json:"networks,omitempty"`
	Volumes  []Volume  `json:"volumes,omitempty"`
}

// ServiceNames returns the names of all services in declaration order.
func (s *Document) ServiceNames() []string {
	names := make([]string, 0, len(s.Services))
	for _, svc := range s.Services {
		names = append(names, svc.Name)
	}
	return names
}

// Service returns the service with the given name, or nil.
func (s *Document) Service(name string) *Service {
	for i := range s.Services {
		if s.Services[i].Name == name {
			return &s.Services[i]
		}
	}
	return nil
}

// HasVolume reports whether a named volume is declared at the top level.
func (s *Document) HasVolume(name string) bool {
	for _, v := range s.Volumes {
		if v.Name == name {
			return true
		}
	}
	return false
}

// =============================================================================
// Service Types
// =============================================================================

// Service represents a single service definition.
type Service struct {
	Name        string            `json:"name"`
	Image       string            `json:"image,omitempty"`
	Build       *BuildConfig      `json:"build,omitempty"`
	Command     []string          `json:"command,omitempty"`
	Entrypoint  []string          `json:"entrypoint,omitempty"`
	Ports       []Port            `json:"ports,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	EnvFiles    []string          `json:"env_files,omitempty"`
	Mounts      []Mount           `json:"mounts,omitempty"`
	Networks    []string          `json:"networks,omitempty"`
	DependsOn   []Dependency      `json:"depends_on,omitempty"`
	Restart     RestartPolicy     `json:"restart,omitempty"`
	HealthCheck *HealthCheck      `json:"healthcheck,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// DependencyNames returns the names of all services this service depends on.
func (s *Service) DependencyNames() []string {
	names := make([]string, 0, len(s.DependsOn))
	for _, dep := range s.DependsOn {
		names = append(names, dep.Service)
	}
	return names
}

// BuildConfig represents build configuration (optional).
type BuildConfig struct {
	Context    string `json:"context"`
	Dockerfile string `json:"dockerfile,omitempty"`
}

// Dependency represents one depends_on edge.
//
// Conditions beyond "service_started" are recorded as declared but do not
// change start behavior: the runner guarantees start ordering only. A started
// dependency is not necessarily ready to accept connections; dependents are
// expected to retry on their own.
type Dependency struct {
	Service   string              `json:"service"`
	Condition DependencyCondition `json:"condition,omitempty"`
}

// DependencyCondition is the declared depends_on condition.
type DependencyCondition string

const (
	ConditionStarted   DependencyCondition = "service_started"
	ConditionHealthy   DependencyCondition = "service_healthy"
	ConditionCompleted DependencyCondition = "service_completed_successfully"
)

// Port represents a port mapping.
type Port struct {
	Target    uint32 `json:"target"`              // Container port
	Published uint32 `json:"published,omitempty"` // Host port (0 = dynamic)
	Protocol  string `json:"protocol,omitempty"`  // tcp, udp
	HostIP    string `json:"host_ip,omitempty"`   // Bind IP
}

// Mount represents a volume or bind mount in a service.
type Mount struct {
	Type     MountType `json:"type"`   // bind, volume, tmpfs
	Source   string    `json:"source"` // Host path or volume name
	Target   string    `json:"target"` // Container path
	ReadOnly bool      `json:"readonly"`
}

// MountType represents the type of mount.
type MountType string

const (
	MountTypeBind   MountType = "bind"
	MountTypeVolume MountType = "volume"
	MountTypeTmpfs  MountType = "tmpfs"
)

// RestartPolicy represents the restart policy.
type RestartPolicy string

const (
	RestartNo            RestartPolicy = "no"
	RestartAlways        RestartPolicy = "always"
	RestartOnFailure     RestartPolicy = "on-failure"
	RestartUnlessStopped RestartPolicy = "unless-stopped"
)

// HealthCheck represents health check configuration.
type HealthCheck struct {
	Test        []string `json:"test"`
	Interval    string   `json:"interval,omitempty"`
	Timeout     string   `json:"timeout,omitempty"`
	Retries     int      `json:"retries,omitempty"`
	StartPeriod string   `json:"start_period,omitempty"`
}

// =============================================================================
// Network Types
// =============================================================================

// Network represents a network definition.
type Network struct {
	Name     string            `json:"name"`
	Driver   string            `json:"driver,omitempty"`
	External bool              `json:"external"`
	Internal bool              `json:"internal"`
	Labels   map[string]string `json:"labels,omitempty"`
}

// =============================================================================
// Volume Types
// =============================================================================

// Volume represents a named volume definition.
type Volume struct {
	Name     string            `json:"name"`
	Driver   string            `json:"driver,omitempty"`
	External bool              `json:"external"`
	Labels   map[string]string `json:"labels,omitempty"`
}
