package plan

import (
	"sort"

	"github.com/artpar/stackd/internal/core/compose"
)

// =============================================================================
// Service Ordering Functions
// =============================================================================

// Waves groups services into dependency layers using Kahn's algorithm.
// Wave 0 holds services with no dependencies; wave N holds services whose
// dependencies all appear in earlier waves. Services within a wave are
// mutually unordered and sorted by name for determinism.
//
// Edges to services not present in the input are ignored; unresolved
// references are a validation concern, not an ordering one. If a cycle
// survives parsing, the services on it are appended as a final wave in
// input order.
//
// Example:
//
//	// db and redis have no dependencies, app needs db, worker needs app+redis
//	waves := Waves(services)
//	// Result: [[db redis] [app] [worker]]
func Waves(services []compose.Service) [][]compose.Service {
	if len(services) == 0 {
		return nil
	}

	present := make(map[string]bool, len(services))
	for _, svc := range services {
		present[svc.Name] = true
	}

	serviceMap := make(map[string]compose.Service, len(services))
	inDegree := make(map[string]int, len(services))
	dependents := make(map[string][]string)

	for _, svc := range services {
		serviceMap[svc.Name] = svc
		degree := 0
		for _, dep := range svc.DependsOn {
			if dep.Service == svc.Name || !present[dep.Service] {
				continue
			}
			degree++
			dependents[dep.Service] = append(dependents[dep.Service], svc.Name)
		}
		inDegree[svc.Name] = degree
	}

	// Collect the current zero-degree frontier, emit it as a wave, repeat.
	var waves [][]compose.Service
	placed := make(map[string]bool, len(services))

	var frontier []string
	for name, degree := range inDegree {
		if degree == 0 {
			frontier = append(frontier, name)
		}
	}

	for len(frontier) > 0 {
		sort.Strings(frontier)

		wave := make([]compose.Service, 0, len(frontier))
		for _, name := range frontier {
			wave = append(wave, serviceMap[name])
			placed[name] = true
		}
		waves = append(waves, wave)

		var next []string
		for _, name := range frontier {
			for _, dep := range dependents[name] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		frontier = next
	}

	// Cycle fallback: append whatever never reached zero, in input order.
	if len(placed) < len(services) {
		var rest []compose.Service
		for _, svc := range services {
			if !placed[svc.Name] {
				rest = append(rest, svc)
			}
		}
		waves = append(waves, rest)
	}

	return waves
}

// TopologicalSort sorts services by their dependencies, dependencies first.
// Ties within a dependency layer are broken by service name, so the order
// is fully deterministic for a given input.
//
// Example:
//
//	// Services: celery_worker → app → db, celery_worker → redis
//	sorted := TopologicalSort(services)
//	// Result: [db redis app celery_worker]
func TopologicalSort(services []compose.Service) []compose.Service {
	var result []compose.Service
	for _, wave := range Waves(services) {
		result = append(result, wave...)
	}
	return result
}
