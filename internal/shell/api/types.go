package api

import "time"

// =============================================================================
// Error Response
// =============================================================================

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// =============================================================================
// Health Responses
// =============================================================================

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents a readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// =============================================================================
// Variant Responses
// =============================================================================

// VariableResponse represents a variant variable in responses.
type VariableResponse struct {
	Name        string   `json:"name"`
	Label       string   `json:"label,omitempty"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type"`
	Default     string   `json:"default,omitempty"`
	Required    bool     `json:"required"`
	Options     []string `json:"options,omitempty"`
}

// ConfigFileResponse represents a config file in responses.
type ConfigFileResponse struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
	Mode    string `json:"mode,omitempty"`
	Service string `json:"service,omitempty"`
}

// VariantResponse represents a catalog variant in list responses.
type VariantResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Slug        string             `json:"slug"`
	Description string             `json:"description,omitempty"`
	Version     string             `json:"version"`
	Variables   []VariableResponse `json:"variables"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// VariantDetailResponse is the full variant including the compose document
// and any config file contents (the monitoring variant carries its
// prometheus.yml this way).
type VariantDetailResponse struct {
	VariantResponse
	ComposeYAML       string               `json:"compose_yaml"`
	RequiredVariables []string             `json:"required_variables,omitempty"`
	ConfigFiles       []ConfigFileResponse `json:"config_files,omitempty"`
}

// ListVariantsResponse represents a list of variants.
type ListVariantsResponse struct {
	Variants []VariantResponse `json:"variants"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// =============================================================================
// Stack Requests
// =============================================================================

// CreateStackRequest represents a request to create a stack from a variant.
// EnvFile is raw dotenv content; values given explicitly in Variables win
// over values parsed from it, and both win over variant defaults.
type CreateStackRequest struct {
	Variant   string            `json:"variant"`
	Name      string            `json:"name,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
	EnvFile   string            `json:"env_file,omitempty"`
}

// ValidateRequest represents a request to validate a compose document.
type ValidateRequest struct {
	ComposeYAML string            `json:"compose_yaml"`
	Variables   map[string]string `json:"variables,omitempty"`
}

// =============================================================================
// Stack Responses
// =============================================================================

// PortResponse represents a published port in responses.
type PortResponse struct {
	ContainerPort int    `json:"container_port"`
	HostPort      int    `json:"host_port"`
	Protocol      string `json:"protocol"`
}

// ServiceResponse represents the observed state of one service's container.
type ServiceResponse struct {
	Service     string         `json:"service"`
	ContainerID string         `json:"container_id"`
	Image       string         `json:"image"`
	State       string         `json:"state"`
	Health      string         `json:"health,omitempty"`
	ExitCode    int            `json:"exit_code,omitempty"`
	OOMKilled   bool           `json:"oom_killed,omitempty"`
	Restarts    int            `json:"restarts"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	Ports       []PortResponse `json:"ports,omitempty"`
}

// StackResponse represents a stack in API responses.
type StackResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Variant      string            `json:"variant"`
	Status       string            `json:"status"`
	Health       string            `json:"health,omitempty"`
	Variables    map[string]string `json:"variables"`
	Services     []ServiceResponse `json:"services"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	StoppedAt    *time.Time        `json:"stopped_at,omitempty"`
}

// ListStacksResponse represents a list of stacks.
type ListStacksResponse struct {
	Stacks []StackResponse `json:"stacks"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// =============================================================================
// Event Responses
// =============================================================================

// EventResponse represents a container lifecycle event.
type EventResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Container string    `json:"container"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ListEventsResponse represents a stack's event log.
type ListEventsResponse struct {
	Events []EventResponse `json:"events"`
	Total  int             `json:"total"`
}

// =============================================================================
// Readiness Responses
// =============================================================================

// ProbeResponse represents the outcome of one readiness probe.
type ProbeResponse struct {
	Service   string  `json:"service"`
	Kind      string  `json:"kind"`
	Target    string  `json:"target,omitempty"`
	Ready     bool    `json:"ready"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// ReadinessResponse reports per-service readiness for a stack. Starting a
// stack only guarantees that dependencies were started before dependents;
// this report is how the remaining gap is observed.
type ReadinessResponse struct {
	StackID   string          `json:"stack_id"`
	Ready     bool            `json:"ready"`
	Probes    []ProbeResponse `json:"probes"`
	CheckedAt time.Time       `json:"checked_at"`
}

// =============================================================================
// Logs Response
// =============================================================================

// LogsResponse carries the tail of one service's container log.
type LogsResponse struct {
	Service     string `json:"service"`
	ContainerID string `json:"container_id"`
	Tail        string `json:"tail"`
	Logs        string `json:"logs"`
}

// =============================================================================
// Stats Response
// =============================================================================

// ServiceStatsResponse holds one container's resource usage snapshot.
type ServiceStatsResponse struct {
	Service          string  `json:"service"`
	CPUPercent       float64 `json:"cpu_percent"`
	MemoryUsageBytes int64   `json:"memory_usage_bytes"`
	MemoryLimitBytes int64   `json:"memory_limit_bytes"`
	MemoryPercent    float64 `json:"memory_percent"`
	NetworkRxBytes   int64   `json:"network_rx_bytes"`
	NetworkTxBytes   int64   `json:"network_tx_bytes"`
	BlockReadBytes   int64   `json:"block_read_bytes"`
	BlockWriteBytes  int64   `json:"block_write_bytes"`
	PIDs             int     `json:"pids"`
}

// StackStatsResponse reports resource usage across a stack's containers.
// Services whose containers cannot be queried are omitted.
type StackStatsResponse struct {
	StackID     string                 `json:"stack_id"`
	Services    []ServiceStatsResponse `json:"services"`
	CollectedAt time.Time              `json:"collected_at"`
}

// =============================================================================
// Validate Response
// =============================================================================

// ValidateResponse reports the outcome of validating a compose document.
// Findings are rule violations: unresolvable depends_on references, host
// port collisions, undeclared volumes or networks, unconventional ports.
type ValidateResponse struct {
	Valid    bool     `json:"valid"`
	Services []string `json:"services,omitempty"`
	Findings []string `json:"findings"`
}
