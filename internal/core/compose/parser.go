package compose

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Parser Functions
// =============================================================================

// Parse parses Compose YAML into a Document.
// This is a pure function - no I/O, no side effects.
//
// env supplies values for ${VAR} interpolation. Placeholders without a value
// in env fall back to their ${VAR:-default} default, or the empty string.
func Parse(yamlContent string, env map[string]string) (*Document, error) {
	// Input validation
	if strings.TrimSpace(yamlContent) == "" {
		return nil, ErrEmptyInput
	}

	// Parse using compose-go
	project, err := loadProject(yamlContent, env)
	if err != nil {
		return nil, err
	}

	// Check for unsupported features first
	if err := checkUnsupportedFeatures(project); err != nil {
		return nil, err
	}

	// Validate required fields
	if len(project.Services) == 0 {
		return nil, ErrNoServices
	}

	stack := &Document{
		Services: make([]Service, 0, len(project.Services)),
		Networks: make([]Network, 0, len(project.Networks)),
		Volumes:  make([]Volume, 0, len(project.Volumes)),
	}

	// Convert services in name order for deterministic output
	for _, name := range sortedServiceNames(project) {
		converted, err := convertService(project.Services[name])
		if err != nil {
			return nil, err
		}
		stack.Services = append(stack.Services, converted)
	}

	// Validate no dependency cycles
	if err := detectDependencyCycles(stack.Services); err != nil {
		return nil, err
	}

	// Validate ports
	if err := validatePorts(stack.Services); err != nil {
		return nil, err
	}

	// Convert networks
	for name, net := range project.Networks {
		stack.Networks = append(stack.Networks, convertNetwork(name, net))
	}
	sort.Slice(stack.Networks, func(i, j int) bool { return stack.Networks[i].Name < stack.Networks[j].Name })

	// Convert volumes
	for name, vol := range project.Volumes {
		stack.Volumes = append(stack.Volumes, convertVolume(name, vol))
	}
	sort.Slice(stack.Volumes, func(i, j int) bool { return stack.Volumes[i].Name < stack.Volumes[j].Name })

	return stack, nil
}

func sortedServiceNames(project *types.Project) []string {
	names := make([]string, 0, len(project.Services))
	for name := range project.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// loadProject loads a compose document using compose-go.
func loadProject(yamlContent string, env map[string]string) (*types.Project, error) {
	// Parse YAML into a map first for a clearer syntax error
	var dict map[string]interface{}
	if err := yaml.Unmarshal([]byte(yamlContent), &dict); err != nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}
	if dict == nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: []byte(yamlContent),
				Config:  dict,
			},
		},
		Environment: types.Mapping(env),
	}, func(opts *loader.Options) {
		opts.SetProjectName("stackd", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = false
		// In-memory document, no paths to resolve
		opts.SkipNormalization = true
		opts.SkipExtends = true
		// Reference resolution (depends_on, volumes, networks) is handled by
		// Validate, which reports every violation instead of the first.
		opts.SkipConsistencyCheck = true
	})
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "dependency cycle detected") {
			return nil, NewParseError("", "dependency cycle detected", ErrDependencyCycle)
		}
		if strings.Contains(errStr, "image") && strings.Contains(errStr, "build") {
			return nil, NewParseError("", "service must have image or build", ErrServiceNoImage)
		}
		return nil, NewParseError("", errStr, ErrInvalidYAML)
	}

	return project, nil
}

// checkUnsupportedFeatures checks for compose features stackd does not run.
func checkUnsupportedFeatures(project *types.Project) error {
	if len(project.Secrets) > 0 {
		return NewParseError("secrets", "secrets are not supported", ErrUnsupportedFeature)
	}
	if len(project.Configs) > 0 {
		return NewParseError("configs", "configs are not supported", ErrUnsupportedFeature)
	}
	for _, svc := range project.Services {
		if svc.Extends != nil && svc.Extends.File != "" {
			return NewParseError("services."+svc.Name+".extends", "extends is not supported", ErrUnsupportedFeature)
		}
	}
	return nil
}

// convertService converts a compose-go service to our Service type.
func convertService(svc types.ServiceConfig) (Service, error) {
	service := Service{
		Name:        svc.Name,
		Image:       svc.Image,
		Command:     svc.Command,
		Entrypoint:  svc.Entrypoint,
		Environment: make(map[string]string),
		Labels:      make(map[string]string),
		Networks:    make([]string, 0),
		DependsOn:   make([]Dependency, 0),
	}

	// Build config
	if svc.Build != nil {
		service.Build = &BuildConfig{
			Context:    svc.Build.Context,
			Dockerfile: svc.Build.Dockerfile,
		}
	}

	// Validate image or build
	if service.Image == "" && service.Build == nil {
		return Service{}, NewParseError("services."+svc.Name, "service must have image or build", ErrServiceNoImage)
	}

	// Ports
	for _, p := range svc.Ports {
		var published uint32
		if p.Published != "" {
			pub, err := strconv.ParseUint(p.Published, 10, 32)
			if err == nil {
				published = uint32(pub)
			}
		}
		service.Ports = append(service.Ports, Port{
			Target:    p.Target,
			Published: published,
			Protocol:  p.Protocol,
			HostIP:    p.HostIP,
		})
	}

	// Environment
	for k, v := range svc.Environment {
		if v != nil {
			service.Environment[k] = *v
		}
	}

	// env_file references are recorded for callers that resolve them
	for _, ef := range svc.EnvFiles {
		service.EnvFiles = append(service.EnvFiles, ef.Path)
	}

	// Mounts
	for _, v := range svc.Volumes {
		mount := Mount{
			Source:   v.Source,
			Target:   v.Target,
			ReadOnly: v.ReadOnly,
		}
		switch v.Type {
		case "bind":
			mount.Type = MountTypeBind
		case "volume":
			mount.Type = MountTypeVolume
		case "tmpfs":
			mount.Type = MountTypeTmpfs
		default:
			// Infer type from source
			if strings.HasPrefix(v.Source, "./") || strings.HasPrefix(v.Source, "/") || strings.HasPrefix(v.Source, "~") {
				mount.Type = MountTypeBind
			} else {
				mount.Type = MountTypeVolume
			}
		}
		service.Mounts = append(service.Mounts, mount)
	}

	// Networks
	for net := range svc.Networks {
		service.Networks = append(service.Networks, net)
	}
	sort.Strings(service.Networks)

	// DependsOn: both short (list) and long (map with condition) syntax
	// arrive from compose-go as a map. Conditions are recorded; ordering
	// treats every edge as service_started.
	for dep, cfg := range svc.DependsOn {
		condition := DependencyCondition(cfg.Condition)
		if condition == "" {
			condition = ConditionStarted
		}
		service.DependsOn = append(service.DependsOn, Dependency{
			Service:   dep,
			Condition: condition,
		})
	}
	sort.Slice(service.DependsOn, func(i, j int) bool {
		return service.DependsOn[i].Service < service.DependsOn[j].Service
	})

	// Restart policy
	service.Restart = RestartPolicy(svc.Restart)

	// Labels
	for k, v := range svc.Labels {
		service.Labels[k] = v
	}

	// HealthCheck
	if svc.HealthCheck != nil && !svc.HealthCheck.Disable {
		service.HealthCheck = &HealthCheck{
			Test: svc.HealthCheck.Test,
		}
		if svc.HealthCheck.Retries != nil {
			service.HealthCheck.Retries = int(*svc.HealthCheck.Retries)
		}
		if svc.HealthCheck.Interval != nil {
			service.HealthCheck.Interval = svc.HealthCheck.Interval.String()
		}
		if svc.HealthCheck.Timeout != nil {
			service.HealthCheck.Timeout = svc.HealthCheck.Timeout.String()
		}
		if svc.HealthCheck.StartPeriod != nil {
			service.HealthCheck.StartPeriod = svc.HealthCheck.StartPeriod.String()
		}
	}

	return service, nil
}

// convertNetwork converts a compose-go network to our Network type.
func convertNetwork(name string, net types.NetworkConfig) Network {
	return Network{
		Name:     name,
		Driver:   net.Driver,
		External: bool(net.External),
		Internal: net.Internal,
		Labels:   net.Labels,
	}
}

// convertVolume converts a compose-go volume to our Volume type.
func convertVolume(name string, vol types.VolumeConfig) Volume {
	return Volume{
		Name:     name,
		Driver:   vol.Driver,
		External: bool(vol.External),
		Labels:   vol.Labels,
	}
}

// detectDependencyCycles detects cycles in service depends_on edges.
func detectDependencyCycles(services []Service) error {
	// Build adjacency list
	deps := make(map[string][]string)
	for _, svc := range services {
		deps[svc.Name] = svc.DependencyNames()
	}

	// Track visited and recursion stack for DFS
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var hasCycle func(node string) bool
	hasCycle = func(node string) bool {
		visited[node] = true
		recStack[node] = true

		for _, dep := range deps[node] {
			// Self-reference
			if dep == node {
				return true
			}
			if !visited[dep] {
				if hasCycle(dep) {
					return true
				}
			} else if recStack[dep] {
				return true
			}
		}

		recStack[node] = false
		return false
	}

	for _, svc := range services {
		if !visited[svc.Name] {
			if hasCycle(svc.Name) {
				return ErrDependencyCycle
			}
		}
	}

	return nil
}

// validatePorts validates all port configurations.
func validatePorts(services []Service) error {
	for _, svc := range services {
		for i, port := range svc.Ports {
			field := fmt.Sprintf("services.%s.ports[%d]", svc.Name, i)
			if port.Target == 0 {
				return NewParseError(field, "target port cannot be 0", ErrServiceInvalidPort)
			}
			if port.Target > 65535 {
				return NewParseError(field, "target port must be <= 65535", ErrServiceInvalidPort)
			}
			if port.Published > 65535 {
				return NewParseError(field, "published port must be <= 65535", ErrServiceInvalidPort)
			}
		}
	}
	return nil
}

// =============================================================================
// Variable Extraction
// =============================================================================

// variablePlaceholderRegex matches ${VAR_NAME} or ${VAR_NAME:-default}
var variablePlaceholderRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::?[-?][^}]*)?\}`)

// requiredPlaceholderRegex matches ${VAR_NAME} with no default clause
var requiredPlaceholderRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExtractVariables extracts variable placeholder names from raw YAML content,
// before compose-go interpolates them. Returns unique names without the ${}
// wrapper, in order of first appearance.
func ExtractVariables(yamlContent string) []string {
	return matchPlaceholders(variablePlaceholderRegex, yamlContent)
}

// RequiredVariables extracts placeholder names that carry no default, i.e.
// the ones that must be supplied by the environment or an env file.
func RequiredVariables(yamlContent string) []string {
	return matchPlaceholders(requiredPlaceholderRegex, yamlContent)
}

func matchPlaceholders(re *regexp.Regexp, content string) []string {
	seen := make(map[string]bool)
	var vars []string

	for _, match := range re.FindAllStringSubmatch(content, -1) {
		if len(match) < 2 {
			continue
		}
		name := match[1]
		if !seen[name] {
			seen[name] = true
			vars = append(vars, name)
		}
	}

	return vars
}
