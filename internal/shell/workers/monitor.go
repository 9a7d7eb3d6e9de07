// Package workers contains background workers for stackd.
package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/artpar/stackd/internal/core/domain"
	"github.com/artpar/stackd/internal/core/monitoring"
	"github.com/artpar/stackd/internal/shell/metrics"
	"github.com/artpar/stackd/internal/shell/store"
)

// StackRefresher reports the observed container state of a stack's services.
// Satisfied by *runner.Runner.
type StackRefresher interface {
	Refresh(ctx context.Context, stack *domain.Stack) ([]domain.ServiceInfo, error)
}

// MonitorConfig configures the monitor worker.
type MonitorConfig struct {
	// Interval is the time between monitoring cycles.
	// Default: 30 seconds.
	Interval time.Duration

	// StackTimeout is the timeout for refreshing a single stack.
	// Default: 10 seconds.
	StackTimeout time.Duration

	// MaxConcurrent is the maximum number of stacks to refresh concurrently.
	// Default: 5.
	MaxConcurrent int
}

// DefaultMonitorConfig returns the default configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:      30 * time.Second,
		StackTimeout:  10 * time.Second,
		MaxConcurrent: 5,
	}
}

// Monitor periodically refreshes container state for starting and running
// stacks. It records lifecycle events for the transitions it observes,
// derives stack health from container state, and flips stack status when
// every container has left the running state. Containers revived by their
// restart policy show up here as restarted events; the monitor itself never
// restarts anything.
type Monitor struct {
	store  store.Store
	runner StackRefresher
	config MonitorConfig
	logger *slog.Logger

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a new monitor worker.
func NewMonitor(s store.Store, runner StackRefresher, config MonitorConfig, logger *slog.Logger) *Monitor {
	if config.Interval == 0 {
		config.Interval = 30 * time.Second
	}
	if config.StackTimeout == 0 {
		config.StackTimeout = 10 * time.Second
	}
	if config.MaxConcurrent == 0 {
		config.MaxConcurrent = 5
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		store:  s,
		runner: runner,
		config: config,
		logger: logger.With("component", "monitor"),
	}
}

// Start begins the monitor background goroutine.
// It runs monitoring cycles periodically according to the configured interval.
func (m *Monitor) Start() {
	m.ctx, m.cancel = context.WithCancel(context.Background())

	m.wg.Add(1)
	go m.run()

	m.logger.Info("monitor started",
		"interval", m.config.Interval,
		"max_concurrent", m.config.MaxConcurrent,
	)
}

// Stop gracefully stops the monitor.
// It waits for any in-progress checks to complete.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("monitor stopped")
}

// run is the main loop that runs monitoring cycles periodically.
func (m *Monitor) run() {
	defer m.wg.Done()

	// Run immediately on start
	m.runCycle()

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.runCycle()
		}
	}
}

// runCycle executes a single monitoring cycle across all live stacks.
func (m *Monitor) runCycle() {
	ctx, cancel := context.WithTimeout(m.ctx, m.config.Interval)
	defer cancel()

	m.publishStackCounts(ctx)

	// Pending, stopped and terminal stacks have nothing running to watch.
	stacks, err := m.store.ListStacksByStatus(ctx, domain.StatusStarting, domain.StatusRunning)
	if err != nil {
		m.logger.Error("failed to list stacks to monitor", "error", err)
		return
	}

	if len(stacks) == 0 {
		m.logger.Debug("no stacks to monitor")
		return
	}

	m.logger.Debug("starting monitor cycle", "stack_count", len(stacks))

	// Use a semaphore to limit concurrent checks
	sem := make(chan struct{}, m.config.MaxConcurrent)
	var wg sync.WaitGroup

	for i := range stacks {
		stack := &stacks[i]

		wg.Add(1)
		go func(s *domain.Stack) {
			defer wg.Done()

			// Acquire semaphore
			select {
			case <-ctx.Done():
				return
			case sem <- struct{}{}:
				defer func() { <-sem }()
			}

			m.checkStack(ctx, s)
		}(stack)
	}

	wg.Wait()

	m.publishContainerStates(stacks)
	m.logger.Debug("completed monitor cycle", "stack_count", len(stacks))
}

// checkStack refreshes one stack's container state and persists whatever
// changed: events for observed transitions, derived health, and the stack
// status when the containers left it behind.
func (m *Monitor) checkStack(ctx context.Context, stack *domain.Stack) {
	stackCtx, cancel := context.WithTimeout(ctx, m.config.StackTimeout)
	defer cancel()

	logger := m.logger.With("stack_id", stack.ID, "stack_name", stack.Name)

	services, err := m.runner.Refresh(stackCtx, stack)
	if err != nil {
		logger.Warn("failed to refresh stack state", "error", err)
		return
	}

	now := time.Now().UTC()
	previous := stack.Services

	transitions := monitoring.LifecycleTransitions(previous, services)
	transitions = append(transitions, monitoring.HealthTransitions(previous, services)...)

	for _, tr := range transitions {
		event := domain.NewContainerEvent(stack.ID, tr.Type, tr.Container,
			monitoring.ContainerEventMessage(tr.Type, tr.Container))
		if err := m.store.CreateEvent(stackCtx, &event); err != nil {
			logger.Warn("failed to record container event",
				"type", tr.Type,
				"container", tr.Container,
				"error", err,
			)
			continue
		}
		metrics.ContainerEvents.WithLabelValues(string(tr.Type)).Inc()
		logger.Info("container event", "type", tr.Type, "container", tr.Container)
	}

	health := monitoring.BuildStackHealth(services, now)

	stack.Services = services
	stack.Health = health.Status
	stack.UpdatedAt = now

	m.applyStatus(logger, stack, services)

	if err := m.store.UpdateStack(stackCtx, stack); err != nil {
		logger.Error("failed to update stack", "error", err)
	}
}

// applyStatus flips the stack status when the observations demand it.
func (m *Monitor) applyStatus(logger *slog.Logger, stack *domain.Stack, services []domain.ServiceInfo) {
	from := stack.Status

	derived, changed := domain.DeriveStatus(stack.Status, services)
	switch {
	case changed && derived == domain.StatusFailed:
		if err := stack.TransitionToFailed(monitoring.FailureMessage(services)); err != nil {
			logger.Error("failed to mark stack failed", "error", err)
			return
		}
	case changed:
		if err := stack.Transition(derived); err != nil {
			logger.Error("failed to transition stack", "to", derived, "error", err)
			return
		}
	case stack.Status == domain.StatusStarting && allRunning(services):
		// A stack stuck in starting, usually after a daemon restart cut the
		// start short, is running once every container is up.
		if err := stack.Transition(domain.StatusRunning); err != nil {
			logger.Error("failed to transition stack", "to", domain.StatusRunning, "error", err)
			return
		}
	default:
		return
	}

	logger.Info("stack status changed", "from", from, "to", stack.Status)
}

// CheckStackNow performs an immediate check on a specific stack.
// This is useful right after a start or stop, when waiting for the next
// cycle would leave the record stale.
func (m *Monitor) CheckStackNow(ctx context.Context, stackID string) error {
	stack, err := m.store.GetStack(ctx, stackID)
	if err != nil {
		return err
	}

	switch stack.Status {
	case domain.StatusStarting, domain.StatusRunning:
		m.checkStack(ctx, stack)
	}
	return nil
}

// publishStackCounts refreshes the stacks-by-status gauge.
func (m *Monitor) publishStackCounts(ctx context.Context) {
	counts, err := m.store.CountStacksByStatus(ctx)
	if err != nil {
		m.logger.Warn("failed to count stacks", "error", err)
		return
	}

	metrics.Stacks.Reset()
	for status, n := range counts {
		metrics.Stacks.WithLabelValues(string(status)).Set(float64(n))
	}
}

// publishContainerStates refreshes the containers-by-state gauge from the
// snapshots taken this cycle.
func (m *Monitor) publishContainerStates(stacks []domain.Stack) {
	states := make(map[string]int)
	for _, stack := range stacks {
		for _, svc := range stack.Services {
			states[svc.State]++
		}
	}

	metrics.Containers.Reset()
	for state, n := range states {
		metrics.Containers.WithLabelValues(state).Set(float64(n))
	}
}

func allRunning(services []domain.ServiceInfo) bool {
	if len(services) == 0 {
		return false
	}
	for _, svc := range services {
		if svc.State != "running" {
			return false
		}
	}
	return true
}
