package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ConvertPorts Tests
// =============================================================================

func TestConvertPorts_Basic(t *testing.T) {
	ports := []PortBinding{
		{ContainerPort: 8000, HostPort: 8000, Protocol: "tcp"},
	}

	mappings := ConvertPorts(ports)

	require.Len(t, mappings, 1)
	assert.Equal(t, 8000, mappings[0].ContainerPort)
	assert.Equal(t, 8000, mappings[0].HostPort)
	assert.Equal(t, "tcp", mappings[0].Protocol)
}

func TestConvertPorts_DefaultProtocol(t *testing.T) {
	ports := []PortBinding{
		{ContainerPort: 5432, HostPort: 5432},
	}

	mappings := ConvertPorts(ports)

	require.Len(t, mappings, 1)
	assert.Equal(t, "tcp", mappings[0].Protocol)
}

func TestConvertPorts_UDPPreserved(t *testing.T) {
	ports := []PortBinding{
		{ContainerPort: 53, HostPort: 5353, Protocol: "udp"},
	}

	mappings := ConvertPorts(ports)

	require.Len(t, mappings, 1)
	assert.Equal(t, "udp", mappings[0].Protocol)
}

func TestConvertPorts_Empty(t *testing.T) {
	mappings := ConvertPorts(nil)

	assert.NotNil(t, mappings)
	assert.Empty(t, mappings)
}

func TestConvertPorts_Multiple(t *testing.T) {
	ports := []PortBinding{
		{ContainerPort: 5432, HostPort: 5432},
		{ContainerPort: 6379, HostPort: 6379},
		{ContainerPort: 9090, HostPort: 9090},
	}

	mappings := ConvertPorts(ports)

	require.Len(t, mappings, 3)
	assert.Equal(t, 5432, mappings[0].HostPort)
	assert.Equal(t, 6379, mappings[1].HostPort)
	assert.Equal(t, 9090, mappings[2].HostPort)
}
