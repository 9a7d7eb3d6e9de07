// Package probe observes service readiness for deployed stacks.
//
// Probes are observational. Stack startup orders containers and never waits
// for readiness: a started dependency may still refuse connections while it
// initializes. These probes report that window instead of closing it.
package probe

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/artpar/stackd/internal/core/compose"
	"github.com/artpar/stackd/internal/core/domain"
)

// =============================================================================
// Types
// =============================================================================

// Kind identifies how a service was probed.
type Kind string

const (
	KindTCP       Kind = "tcp"
	KindPostgres  Kind = "postgres"
	KindRedis     Kind = "redis"
	KindHTTP      Kind = "http"
	KindContainer Kind = "container"
)

// ServiceReadiness is the outcome of probing one service.
type ServiceReadiness struct {
	Service   string    `json:"service"`
	Kind      Kind      `json:"kind"`
	Target    string    `json:"target,omitempty"`
	Ready     bool      `json:"ready"`
	LatencyMS float64   `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// =============================================================================
// Prober
// =============================================================================

const (
	defaultHost    = "127.0.0.1"
	defaultTimeout = 3 * time.Second
)

// Prober runs readiness probes against a stack's published ports.
type Prober struct {
	host    string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// NewProber creates a prober. host is where published ports are reachable
// (default 127.0.0.1); timeout bounds each individual probe.
func NewProber(host string, timeout time.Duration, logger *slog.Logger) *Prober {
	if host == "" {
		host = defaultHost
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		host:    host,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With("component", "probe"),
	}
}

// Report probes every service of the stack concurrently and returns one
// result per service, sorted by service name.
func (p *Prober) Report(ctx context.Context, stack *domain.Stack) []ServiceReadiness {
	services := make([]domain.ServiceInfo, len(stack.Services))
	copy(services, stack.Services)
	sort.Slice(services, func(i, j int) bool {
		return services[i].Service < services[j].Service
	})

	env := p.serviceEnvironment(stack)

	results := make([]ServiceReadiness, len(services))
	var wg sync.WaitGroup
	for i, svc := range services {
		wg.Add(1)
		go func(i int, svc domain.ServiceInfo) {
			defer wg.Done()
			results[i] = p.probeService(ctx, svc, env[svc.Service])
		}(i, svc)
	}
	wg.Wait()

	return results
}

func (p *Prober) probeService(ctx context.Context, svc domain.ServiceInfo, env map[string]string) ServiceReadiness {
	result := ServiceReadiness{
		Service:   svc.Service,
		CheckedAt: time.Now().UTC(),
	}

	kind, target := p.selectProbe(svc)
	result.Kind = kind
	result.Target = target

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	var err error
	switch kind {
	case KindPostgres:
		err = p.probePostgres(probeCtx, target, env)
	case KindRedis:
		err = p.probeRedis(probeCtx, target)
	case KindHTTP:
		err = p.probeHTTP(probeCtx, target)
	case KindTCP:
		err = p.probeTCP(probeCtx, target)
	case KindContainer:
		if svc.State != "running" {
			err = fmt.Errorf("container state is %s", svc.State)
		}
	}
	result.LatencyMS = float64(time.Since(start).Nanoseconds()) / 1e6

	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Ready = true
	return result
}

// selectProbe picks a probe by image family, falling back to a TCP dial on
// the first published port, then to the engine-reported container state for
// services that publish nothing (the worker, for one).
func (p *Prober) selectProbe(svc domain.ServiceInfo) (Kind, string) {
	switch imageFamily(svc.Image) {
	case "postgres":
		if port := hostPortFor(svc, 5432); port != 0 {
			return KindPostgres, net.JoinHostPort(p.host, strconv.Itoa(port))
		}
	case "redis":
		if port := hostPortFor(svc, 6379); port != 0 {
			return KindRedis, net.JoinHostPort(p.host, strconv.Itoa(port))
		}
	case "prometheus":
		if port := hostPortFor(svc, 9090); port != 0 {
			return KindHTTP, fmt.Sprintf("http://%s/-/ready", net.JoinHostPort(p.host, strconv.Itoa(port)))
		}
	}

	if port := hostPortFor(svc, 8000); port != 0 {
		return KindHTTP, fmt.Sprintf("http://%s/health", net.JoinHostPort(p.host, strconv.Itoa(port)))
	}
	if len(svc.Ports) > 0 && svc.Ports[0].HostPort != 0 {
		return KindTCP, net.JoinHostPort(p.host, strconv.Itoa(svc.Ports[0].HostPort))
	}
	return KindContainer, ""
}

// serviceEnvironment parses the stack's document to recover each service's
// environment. Inline values and substituted variables both land here, so
// the postgres probe sees credentials no matter which style the stack's
// variant used.
func (p *Prober) serviceEnvironment(stack *domain.Stack) map[string]map[string]string {
	env := make(map[string]map[string]string)
	if stack.ComposeYAML == "" {
		return env
	}

	doc, err := compose.Parse(stack.ComposeYAML, stack.Variables)
	if err != nil {
		p.logger.Debug("failed to parse stack document for probe credentials",
			"stack_id", stack.ID, "error", err)
		return env
	}

	for _, svc := range doc.Services {
		env[svc.Name] = svc.Environment
	}
	return env
}

// =============================================================================
// Probe Implementations
// =============================================================================

func (p *Prober) probeTCP(ctx context.Context, addr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// probePostgres runs SELECT 1 with the credentials the stack's document
// hands the database service. The postgres image defaults the database name
// to the user, so the probe does too.
func (p *Prober) probePostgres(ctx context.Context, addr string, env map[string]string) error {
	user := envOr(env, "POSTGRES_USER", "postgres")
	password := env["POSTGRES_PASSWORD"]
	dbname := envOr(env, "POSTGRES_DB", user)

	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		url.QueryEscape(user), url.QueryEscape(password), addr, url.PathEscape(dbname))

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	var one int
	return conn.QueryRow(ctx, "SELECT 1").Scan(&one)
}

// probeRedis speaks just enough RESP to verify the server answers: an
// inline PING must come back +PONG.
func (p *Prober) probeRedis(ctx context.Context, addr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}

	if _, err := conn.Write([]byte("PING\r\n")); err != nil {
		return err
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return err
	}
	if !strings.HasPrefix(reply, "+PONG") {
		return fmt.Errorf("unexpected redis reply: %s", strings.TrimSpace(reply))
	}
	return nil
}

func (p *Prober) probeHTTP(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// imageFamily reduces an image reference to its bare repository name:
// "postgres:15" -> "postgres", "prom/prometheus:v2.45" -> "prometheus".
func imageFamily(image string) string {
	name := image
	if i := strings.LastIndex(name, "@"); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, ":"); i > strings.LastIndex(name, "/") {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func hostPortFor(svc domain.ServiceInfo, containerPort int) int {
	for _, p := range svc.Ports {
		if p.ContainerPort == containerPort && p.HostPort != 0 {
			return p.HostPort
		}
	}
	return 0
}

func envOr(env map[string]string, key, fallback string) string {
	if v := env[key]; v != "" {
		return v
	}
	return fallback
}
