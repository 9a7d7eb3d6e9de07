package plan

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/artpar/stackd/internal/core/compose"
)

// =============================================================================
// Start Order Verification
// =============================================================================

var (
	// ErrStartOrderViolated means a container started before a dependency.
	ErrStartOrderViolated = errors.New("start order violated")
	// ErrStartTimeMissing means a service has no recorded start timestamp.
	ErrStartTimeMissing = errors.New("start timestamp missing")
)

// VerifyStartOrder checks observed container start timestamps against the
// stack's dependency graph: for every depends_on edge the dependency's
// container must not have started after the dependent's.
//
// This is the verifiable form of the ordering guarantee: coarse start
// ordering by container start time, nothing about readiness. Returns one
// error per violated edge and per service missing a timestamp; nil means
// the observed order is consistent with the graph.
func VerifyStartOrder(services []compose.Service, startedAt map[string]time.Time) []error {
	var errs []error

	names := make([]string, 0, len(services))
	byName := make(map[string]compose.Service, len(services))
	for _, svc := range services {
		names = append(names, svc.Name)
		byName[svc.Name] = svc
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := startedAt[name]; !ok {
			errs = append(errs, fmt.Errorf("service %q: %w", name, ErrStartTimeMissing))
		}
	}

	for _, name := range names {
		svc := byName[name]
		dependentStart, ok := startedAt[svc.Name]
		if !ok {
			continue
		}
		for _, dep := range svc.DependsOn {
			depStart, ok := startedAt[dep.Service]
			if !ok {
				continue
			}
			if depStart.After(dependentStart) {
				errs = append(errs, fmt.Errorf(
					"service %q started at %s before its dependency %q at %s: %w",
					svc.Name, dependentStart.Format(time.RFC3339Nano),
					dep.Service, depStart.Format(time.RFC3339Nano),
					ErrStartOrderViolated))
			}
		}
	}

	return errs
}
