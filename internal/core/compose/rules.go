package compose

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// Document Validation Rules
// =============================================================================

// conventionalPorts maps well-known images to the container port their
// protocol conventionally uses. Matching is on the image base name, so
// "postgres:15", "library/postgres" and "bitnami/postgresql" all count as
// postgres.
var conventionalPorts = map[string]uint32{
	"postgres":   5432,
	"postgresql": 5432,
	"redis":      6379,
	"prometheus": 9090,
	"mysql":      3306,
	"mariadb":    3306,
	"mongo":      27017,
	"rabbitmq":   5672,
	"memcached":  11211,
}

// Validate applies configuration-level rules to a parsed stack and returns
// every violation found, not just the first. A nil return means the stack
// passes all rules.
//
// The rules cover the properties that make a multi-service arrangement
// deployable on a single host: dependency edges resolve in-document, host
// ports do not collide, named volumes are declared before use, and container
// ports line up with what the image actually listens on.
func Validate(stack *Document) []error {
	var errs []error

	errs = append(errs, checkDependencyResolution(stack)...)
	errs = append(errs, checkDuplicateHostPorts(stack)...)
	errs = append(errs, checkUndeclaredVolumes(stack)...)
	errs = append(errs, checkUndeclaredNetworks(stack)...)
	errs = append(errs, checkConventionalPorts(stack)...)

	return errs
}

// checkDependencyResolution verifies every depends_on target names a service
// defined in the same document, and that no service names itself.
func checkDependencyResolution(stack *Document) []error {
	defined := make(map[string]bool, len(stack.Services))
	for _, svc := range stack.Services {
		defined[svc.Name] = true
	}

	var errs []error
	for _, svc := range stack.Services {
		for _, dep := range svc.DependsOn {
			field := fmt.Sprintf("services.%s.depends_on", svc.Name)
			if dep.Service == svc.Name {
				errs = append(errs, NewParseError(field,
					fmt.Sprintf("service %q depends on itself", svc.Name),
					ErrSelfDependency))
				continue
			}
			if !defined[dep.Service] {
				errs = append(errs, NewParseError(field,
					fmt.Sprintf("service %q is not defined in this document", dep.Service),
					ErrUnknownDependency))
			}
		}
	}
	return errs
}

// checkDuplicateHostPorts verifies published host ports are distinct across
// all services. Two services publishing the same host port cannot both bind.
func checkDuplicateHostPorts(stack *Document) []error {
	type binding struct {
		service string
		port    Port
	}
	seen := make(map[string]binding)

	var errs []error
	for _, svc := range stack.Services {
		for i, port := range svc.Ports {
			if port.Published == 0 {
				continue // dynamic, no collision possible
			}
			proto := port.Protocol
			if proto == "" {
				proto = "tcp"
			}
			hostIP := port.HostIP
			if hostIP == "" {
				hostIP = "0.0.0.0"
			}
			key := fmt.Sprintf("%s:%d/%s", hostIP, port.Published, proto)
			if prev, ok := seen[key]; ok {
				errs = append(errs, NewParseError(
					fmt.Sprintf("services.%s.ports[%d]", svc.Name, i),
					fmt.Sprintf("host port %d already published by service %q", port.Published, prev.service),
					ErrDuplicateHostPort))
				continue
			}
			seen[key] = binding{service: svc.Name, port: port}
		}
	}
	return errs
}

// checkUndeclaredVolumes verifies every volume-type mount references a volume
// declared in the top-level volumes section.
func checkUndeclaredVolumes(stack *Document) []error {
	var errs []error
	for _, svc := range stack.Services {
		for i, mount := range svc.Mounts {
			if mount.Type != MountTypeVolume {
				continue
			}
			if !stack.HasVolume(mount.Source) {
				errs = append(errs, NewParseError(
					fmt.Sprintf("services.%s.volumes[%d]", svc.Name, i),
					fmt.Sprintf("volume %q is not declared in the top-level volumes section", mount.Source),
					ErrUndeclaredVolume))
			}
		}
	}
	return errs
}

// checkUndeclaredNetworks verifies every network a service joins is declared
// in the top-level networks section.
func checkUndeclaredNetworks(stack *Document) []error {
	declared := make(map[string]bool, len(stack.Networks))
	for _, n := range stack.Networks {
		declared[n.Name] = true
	}

	var errs []error
	for _, svc := range stack.Services {
		for _, net := range svc.Networks {
			if !declared[net] {
				errs = append(errs, NewParseError(
					fmt.Sprintf("services.%s.networks", svc.Name),
					fmt.Sprintf("network %q is not declared in the top-level networks section", net),
					ErrUndeclaredNetwork))
			}
		}
	}
	return errs
}

// checkConventionalPorts flags port mappings whose container side differs
// from the well-known default of the service's image. Publishing postgres on
// container port 5000 is almost always a typo in the mapping, not a
// reconfigured server.
func checkConventionalPorts(stack *Document) []error {
	var errs []error
	for _, svc := range stack.Services {
		conventional, ok := conventionalPorts[imageBaseName(svc.Image)]
		if !ok {
			continue
		}
		for i, port := range svc.Ports {
			if port.Target != conventional {
				errs = append(errs, NewParseError(
					fmt.Sprintf("services.%s.ports[%d]", svc.Name, i),
					fmt.Sprintf("image %q conventionally listens on %d, not %d", svc.Image, conventional, port.Target),
					ErrUnconventionalPort))
			}
		}
	}
	return errs
}

// imageBaseName reduces an image reference to its bare repository name:
// "prom/prometheus:v2.45" -> "prometheus", "postgres:15" -> "postgres".
func imageBaseName(image string) string {
	if image == "" {
		return ""
	}
	name := image
	// Strip digest, then tag. The tag separator is a colon after the last
	// slash; earlier colons belong to a registry host:port.
	if i := strings.Index(name, "@"); i >= 0 {
		name = name[:i]
	}
	slash := strings.LastIndex(name, "/")
	if i := strings.LastIndex(name, ":"); i > slash {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// =============================================================================
// Dependency Graph
// =============================================================================

// DependencyGraph returns the stack's depends_on edges as an adjacency list,
// service -> services it depends on. Every service appears as a key, with
// edges sorted for determinism.
func DependencyGraph(stack *Document) map[string][]string {
	graph := make(map[string][]string, len(stack.Services))
	for _, svc := range stack.Services {
		deps := svc.DependencyNames()
		sort.Strings(deps)
		graph[svc.Name] = deps
	}
	return graph
}
