package probe

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/stackd/internal/core/domain"
)

// =============================================================================
// Test Helpers
// =============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testProber() *Prober {
	return NewProber("127.0.0.1", 500*time.Millisecond, testLogger())
}

func svc(name, image string, ports ...domain.PortMapping) domain.ServiceInfo {
	return domain.ServiceInfo{
		Service: name,
		Image:   image,
		State:   "running",
		Ports:   ports,
	}
}

func tcpPort(containerPort, hostPort int) domain.PortMapping {
	return domain.PortMapping{ContainerPort: containerPort, HostPort: hostPort, Protocol: "tcp"}
}

func stackWith(services ...domain.ServiceInfo) *domain.Stack {
	return &domain.Stack{
		ID:       "stack-123",
		Name:     "notes",
		Services: services,
	}
}

// startFakeRedis answers the first line of every connection with reply.
func startFakeRedis(t *testing.T, reply string) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				if _, err := bufio.NewReader(c).ReadString('\n'); err != nil {
					return
				}
				c.Write([]byte(reply))
			}(conn)
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

func serverPort(t *testing.T, ts *httptest.Server) int {
	t.Helper()
	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return port
}

// closedPort returns a port nothing is listening on.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

// =============================================================================
// Probe Selection Tests
// =============================================================================

func TestImageFamily(t *testing.T) {
	tests := []struct {
		image string
		want  string
	}{
		{"postgres:15", "postgres"},
		{"redis:7", "redis"},
		{"prom/prometheus", "prometheus"},
		{"prom/prometheus:v2.45.0", "prometheus"},
		{"notes-api:latest", "notes-api"},
		{"ghcr.io/acme/notes-api:1.2", "notes-api"},
		{"registry:5000/acme/thing", "thing"},
		{"postgres@sha256:abc123", "postgres"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.image, func(t *testing.T) {
			assert.Equal(t, tt.want, imageFamily(tt.image))
		})
	}
}

func TestSelectProbe_ByImageFamily(t *testing.T) {
	p := testProber()

	kind, target := p.selectProbe(svc("db", "postgres:15", tcpPort(5432, 5432)))
	assert.Equal(t, KindPostgres, kind)
	assert.Equal(t, "127.0.0.1:5432", target)

	kind, target = p.selectProbe(svc("redis", "redis:7", tcpPort(6379, 6379)))
	assert.Equal(t, KindRedis, kind)
	assert.Equal(t, "127.0.0.1:6379", target)

	kind, target = p.selectProbe(svc("app", "notes-api:latest", tcpPort(8000, 8000)))
	assert.Equal(t, KindHTTP, kind)
	assert.Equal(t, "http://127.0.0.1:8000/health", target)

	kind, target = p.selectProbe(svc("prometheus", "prom/prometheus", tcpPort(9090, 9090)))
	assert.Equal(t, KindHTTP, kind)
	assert.Equal(t, "http://127.0.0.1:9090/-/ready", target)
}

func TestSelectProbe_UnknownImageWithPort(t *testing.T) {
	p := testProber()

	kind, target := p.selectProbe(svc("cache", "memcached:1.6", tcpPort(11211, 21211)))
	assert.Equal(t, KindTCP, kind)
	assert.Equal(t, "127.0.0.1:21211", target)
}

func TestSelectProbe_NoPublishedPorts(t *testing.T) {
	p := testProber()

	kind, target := p.selectProbe(svc("celery_worker", "notes-api:latest"))
	assert.Equal(t, KindContainer, kind)
	assert.Empty(t, target)
}

// =============================================================================
// Report Tests
// =============================================================================

func TestReport_TCPDial(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	port := ln.Addr().(*net.TCPAddr).Port

	p := testProber()
	results := p.Report(context.Background(), stackWith(
		svc("cache", "memcached:1.6", tcpPort(11211, port)),
	))

	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "cache", r.Service)
	assert.Equal(t, KindTCP, r.Kind)
	assert.True(t, r.Ready)
	assert.Empty(t, r.Error)
	assert.GreaterOrEqual(t, r.LatencyMS, 0.0)
	assert.False(t, r.CheckedAt.IsZero())
}

func TestReport_TCPRefused(t *testing.T) {
	p := testProber()
	results := p.Report(context.Background(), stackWith(
		svc("cache", "memcached:1.6", tcpPort(11211, closedPort(t))),
	))

	require.Len(t, results, 1)
	assert.False(t, results[0].Ready)
	assert.NotEmpty(t, results[0].Error)
}

func TestReport_RedisPong(t *testing.T) {
	port := startFakeRedis(t, "+PONG\r\n")

	p := testProber()
	results := p.Report(context.Background(), stackWith(
		svc("redis", "redis:7", tcpPort(6379, port)),
	))

	require.Len(t, results, 1)
	assert.Equal(t, KindRedis, results[0].Kind)
	assert.True(t, results[0].Ready)
}

func TestReport_RedisBadReply(t *testing.T) {
	port := startFakeRedis(t, "-ERR unknown command\r\n")

	p := testProber()
	results := p.Report(context.Background(), stackWith(
		svc("redis", "redis:7", tcpPort(6379, port)),
	))

	require.Len(t, results, 1)
	assert.False(t, results[0].Ready)
	assert.Contains(t, results[0].Error, "unexpected redis reply")
}

func TestReport_HTTPHealthy(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)

	p := testProber()
	results := p.Report(context.Background(), stackWith(
		svc("app", "notes-api:latest", tcpPort(8000, serverPort(t, ts))),
	))

	require.Len(t, results, 1)
	assert.True(t, results[0].Ready)
	assert.Equal(t, "/health", gotPath)
}

func TestReport_HTTPUnhealthy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(ts.Close)

	p := testProber()
	results := p.Report(context.Background(), stackWith(
		svc("app", "notes-api:latest", tcpPort(8000, serverPort(t, ts))),
	))

	require.Len(t, results, 1)
	assert.False(t, results[0].Ready)
	assert.Contains(t, results[0].Error, "unexpected status 503")
}

func TestReport_PrometheusReadyPath(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)

	p := testProber()
	results := p.Report(context.Background(), stackWith(
		svc("prometheus", "prom/prometheus", tcpPort(9090, serverPort(t, ts))),
	))

	require.Len(t, results, 1)
	assert.True(t, results[0].Ready)
	assert.Equal(t, "/-/ready", gotPath)
}

func TestReport_ContainerStateFallback(t *testing.T) {
	p := testProber()

	running := svc("celery_worker", "notes-api:latest")
	exited := svc("celery_worker", "notes-api:latest")
	exited.State = "exited"

	results := p.Report(context.Background(), stackWith(running))
	require.Len(t, results, 1)
	assert.Equal(t, KindContainer, results[0].Kind)
	assert.True(t, results[0].Ready)

	results = p.Report(context.Background(), stackWith(exited))
	require.Len(t, results, 1)
	assert.False(t, results[0].Ready)
	assert.Contains(t, results[0].Error, "container state is exited")
}

func TestReport_PostgresConnectionRefused(t *testing.T) {
	stack := stackWith(svc("db", "postgres:15", tcpPort(5432, closedPort(t))))
	stack.ComposeYAML = `services:
  db:
    image: postgres:15
    environment:
      POSTGRES_USER: amina
      POSTGRES_PASSWORD: secret
      POSTGRES_DB: aminadb
    ports:
      - "5432:5432"
`

	p := testProber()
	results := p.Report(context.Background(), stack)

	require.Len(t, results, 1)
	assert.Equal(t, KindPostgres, results[0].Kind)
	assert.False(t, results[0].Ready)
	assert.NotEmpty(t, results[0].Error)
}

func TestReport_SortsByServiceName(t *testing.T) {
	p := testProber()
	results := p.Report(context.Background(), stackWith(
		svc("redis", "redis:7"),
		svc("app", "notes-api:latest"),
		svc("db", "postgres:15"),
	))

	require.Len(t, results, 3)
	assert.Equal(t, "app", results[0].Service)
	assert.Equal(t, "db", results[1].Service)
	assert.Equal(t, "redis", results[2].Service)
}

// =============================================================================
// Credential Extraction Tests
// =============================================================================

func TestServiceEnvironment_SubstitutedVariables(t *testing.T) {
	stack := stackWith(svc("db", "postgres:15", tcpPort(5432, 5432)))
	stack.ComposeYAML = `services:
  db:
    image: postgres:15
    environment:
      POSTGRES_USER: amina
      POSTGRES_PASSWORD: ${POSTGRES_PASSWORD}
    ports:
      - "5432:5432"
`
	stack.Variables = map[string]string{"POSTGRES_PASSWORD": "s3cret"}

	p := testProber()
	env := p.serviceEnvironment(stack)

	require.Contains(t, env, "db")
	assert.Equal(t, "amina", env["db"]["POSTGRES_USER"])
	assert.Equal(t, "s3cret", env["db"]["POSTGRES_PASSWORD"])
}

func TestServiceEnvironment_UnparseableDocument(t *testing.T) {
	stack := stackWith(svc("db", "postgres:15"))
	stack.ComposeYAML = "{{not yaml"

	p := testProber()
	env := p.serviceEnvironment(stack)
	assert.Empty(t, env)
}

func TestEnvOr(t *testing.T) {
	env := map[string]string{"POSTGRES_USER": "amina", "POSTGRES_DB": ""}
	assert.Equal(t, "amina", envOr(env, "POSTGRES_USER", "postgres"))
	assert.Equal(t, "postgres", envOr(env, "MISSING", "postgres"))
	assert.Equal(t, "fallback", envOr(env, "POSTGRES_DB", "fallback"))
}
