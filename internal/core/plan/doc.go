// Package plan provides pure functions for stack execution planning.
//
// This package contains the functional core logic for transforming parsed
// compose documents into Docker execution plans. All functions are pure
// (no I/O, no side effects).
//
// # Functions
//
//   - Naming: Generate consistent resource names (NetworkName, VolumeName, ContainerName)
//   - Ordering: Sort services by dependencies (TopologicalSort, Waves)
//   - Verification: Check observed start timestamps against the graph (VerifyStartOrder)
//   - Variables: Substitute environment variable placeholders (SubstituteVariables)
//   - Ports: Convert port bindings to domain types (ConvertPorts)
//   - Container: Build container plans from compose services (BuildContainerPlan)
//
// # Usage
//
// The imperative shell (internal/shell/runner) uses these pure functions
// to plan a stack bring-up, then executes the plans via the Docker API.
//
//	networkName := plan.NetworkName(stackID)
//	ordered := plan.TopologicalSort(stack.Services)
//	cp := plan.BuildContainerPlan(params)
package plan
