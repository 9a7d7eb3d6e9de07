package plan

import "fmt"

// =============================================================================
// Resource Naming Functions
// =============================================================================

// NetworkName generates the network name for a stack.
// Pattern: stackd_{stackID}
//
// Example:
//
//	NetworkName("abc123") // returns "stackd_abc123"
func NetworkName(stackID string) string {
	return fmt.Sprintf("stackd_%s", stackID)
}

// VolumeName generates the Docker volume name for a named volume in a stack.
// Pattern: stackd_{stackID}_{volumeName}
//
// Example:
//
//	VolumeName("abc123", "postgres_data") // returns "stackd_abc123_postgres_data"
func VolumeName(stackID, volumeName string) string {
	return fmt.Sprintf("stackd_%s_%s", stackID, volumeName)
}

// ContainerName generates the container name for a service in a stack.
// Pattern: stackd_{stackID}_{serviceName}
//
// Example:
//
//	ContainerName("abc123", "db") // returns "stackd_abc123_db"
func ContainerName(stackID, serviceName string) string {
	return fmt.Sprintf("stackd_%s_%s", stackID, serviceName)
}
