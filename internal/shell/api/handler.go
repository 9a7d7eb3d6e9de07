// Package api provides HTTP handlers for the stackd API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/stackd/internal/core/compose"
	"github.com/artpar/stackd/internal/core/domain"
	"github.com/artpar/stackd/internal/core/envfile"
	"github.com/artpar/stackd/internal/core/plan"
	"github.com/artpar/stackd/internal/shell/api/openapi"
	"github.com/artpar/stackd/internal/shell/docker"
	"github.com/artpar/stackd/internal/shell/metrics"
	"github.com/artpar/stackd/internal/shell/probe"
	"github.com/artpar/stackd/internal/shell/runner"
	"github.com/artpar/stackd/internal/shell/store"
	"github.com/artpar/stackd/internal/shell/workers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/artpar/stackd/internal/shell/api/middleware"
)

// =============================================================================
// Handler
// =============================================================================

// Handler provides HTTP handlers for the API.
type Handler struct {
	store     store.Store
	docker    docker.Client
	runner    *runner.Runner
	prober    *probe.Prober
	monitor   *workers.Monitor
	limiter   *mw.RateLimiter
	openapi   *openapi.Generator
	logger    *slog.Logger
	configDir string
}

// HandlerConfig holds optional handler configuration.
type HandlerConfig struct {
	// ConfigDir is the base directory for rendered stack config files.
	ConfigDir string

	// StopTimeout is the grace period containers get on stop (default 10s).
	StopTimeout time.Duration

	// PullPolicy controls when stack starts pull images (default "missing").
	PullPolicy string

	// ProbeHost is where published ports are reachable (default 127.0.0.1).
	ProbeHost string

	// ProbeTimeout bounds each individual readiness probe.
	ProbeTimeout time.Duration

	// Version is reported in the OpenAPI document.
	Version string

	// RateLimit configures the fixed-window limiter on /api/v1 routes.
	// A zero Limit disables it.
	RateLimit mw.RateLimitConfig

	// Monitor, when set, serves on-demand refreshes for GET /stacks/{id}.
	Monitor *workers.Monitor
}

// NewHandler creates a new API handler.
// configDir is the base directory for storing stack config files.
func NewHandler(s store.Store, d docker.Client, l *slog.Logger, configDir string) *Handler {
	return NewHandlerWithConfig(s, d, l, HandlerConfig{ConfigDir: configDir})
}

// NewHandlerWithConfig creates a new API handler with explicit configuration.
func NewHandlerWithConfig(s store.Store, d docker.Client, l *slog.Logger, cfg HandlerConfig) *Handler {
	if l == nil {
		l = slog.Default()
	}
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = "/var/lib/stackd/configs"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	var limiter *mw.RateLimiter
	if cfg.RateLimit.Limit > 0 {
		if cfg.RateLimit.Logger == nil {
			cfg.RateLimit.Logger = l
		}
		limiter = mw.NewRateLimiter(cfg.RateLimit)
	}

	run := runner.NewRunner(d, store.NewEventRecorder(s, l), l, cfg.ConfigDir)
	run.SetStopTimeout(cfg.StopTimeout)
	run.SetPullPolicy(cfg.PullPolicy)

	return &Handler{
		store:     s,
		docker:    d,
		runner:    run,
		prober:    probe.NewProber(cfg.ProbeHost, cfg.ProbeTimeout, l),
		monitor:   cfg.Monitor,
		limiter:   limiter,
		openapi:   buildOpenAPI(cfg.Version),
		logger:    l,
		configDir: cfg.ConfigDir,
	}
}

// buildOpenAPI registers the API's resources with the reflective generator.
func buildOpenAPI(version string) *openapi.Generator {
	gen := openapi.NewGenerator(openapi.WithVersion(version))
	gen.RegisterResource(openapi.ResourceInfo{
		Name:         "variants",
		Model:        VariantDetailResponse{},
		SupportsFind: true,
	})
	gen.RegisterResource(openapi.ResourceInfo{
		Name:           "stacks",
		Model:          StackResponse{},
		SupportsFind:   true,
		SupportsCreate: true,
		SupportsDelete: true,
		Actions:        []string{"start", "stop"},
	})
	return gen
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	// Health and introspection endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.json", h.openapi.Handler())

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Scraping /metrics and probing /health stay exempt from the
		// request budget; only the operational API is limited.
		if h.limiter != nil {
			r.Use(h.limiter.Handler)
		}

		// Variant catalog routes
		r.Route("/variants", func(r chi.Router) {
			r.Get("/", h.handleListVariants)
			r.Get("/{slug}", h.handleGetVariant)
		})

		// Stack routes
		r.Route("/stacks", func(r chi.Router) {
			r.Post("/", h.handleCreateStack)
			r.Get("/", h.handleListStacks)
			r.Get("/{id}", h.handleGetStack)
			r.Delete("/{id}", h.handleDeleteStack)
			r.Post("/{id}/start", h.handleStartStack)
			r.Post("/{id}/stop", h.handleStopStack)
			r.Get("/{id}/events", h.handleStackEvents)
			r.Get("/{id}/readiness", h.handleStackReadiness)
			r.Get("/{id}/stats", h.handleStackStats)
			r.Get("/{id}/services/{service}/logs", h.handleServiceLogs)
		})

		r.Post("/validate", h.handleValidate)
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each request and feeds the request counter.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		h.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", float64(time.Since(start).Nanoseconds())/1e6,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	// Check database (implicit - if we got here, store was created)
	checks["database"] = "ok"

	// Check Docker
	if err := h.docker.Ping(); err != nil {
		checks["docker"] = "failed"
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Checks: checks,
		})
		return
	}
	checks["docker"] = "ok"

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Variant Handlers
// =============================================================================

func (h *Handler) handleListVariants(w http.ResponseWriter, r *http.Request) {
	opts := parseListOptions(r)

	variants, err := h.store.ListVariants(r.Context(), opts)
	if err != nil {
		h.logger.Error("failed to list variants", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list variants", "internal_error")
		return
	}

	resp := ListVariantsResponse{
		Variants: make([]VariantResponse, 0, len(variants)),
		Total:    len(variants),
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	}
	for _, v := range variants {
		resp.Variants = append(resp.Variants, h.variantToResponse(&v))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetVariant(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	variant, err := h.store.GetVariant(r.Context(), slug)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "variant not found", "variant_not_found")
			return
		}
		h.logger.Error("failed to get variant", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get variant", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, h.variantToDetailResponse(variant))
}

// =============================================================================
// Stack Handlers
// =============================================================================

func (h *Handler) handleCreateStack(w http.ResponseWriter, r *http.Request) {
	var req CreateStackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	if req.Variant == "" {
		h.writeError(w, http.StatusBadRequest, "variant is required", "validation_error")
		return
	}

	variant, err := h.store.GetVariant(r.Context(), req.Variant)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "variant not found", "variant_not_found")
			return
		}
		h.logger.Error("failed to get variant", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get variant", "internal_error")
		return
	}

	fileVars := map[string]string{}
	if req.EnvFile != "" {
		fileVars, err = envfile.ParseString(req.EnvFile)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid env file: "+err.Error(), "validation_error")
			return
		}
	}

	// Layering: variant defaults, then env file values, then explicit ones.
	variables := domain.ResolveVariables(variant.Variables, envfile.Merge(fileVars, req.Variables))

	// The variant's declared variables may not cover every placeholder in
	// the document itself; check against the document so a missing value
	// fails here instead of at start time.
	if missing := envfile.MissingVariables(compose.RequiredVariables(variant.ComposeYAML), variables); len(missing) > 0 {
		h.writeError(w, http.StatusBadRequest, "missing required variables: "+strings.Join(missing, ", "), "validation_error")
		return
	}

	stack, err := domain.NewStack(*variant, req.Name, variables)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}

	if err := h.store.CreateStack(r.Context(), stack); err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			h.writeError(w, http.StatusConflict, "stack name is already in use", "name_conflict")
			return
		}
		h.logger.Error("failed to create stack", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to create stack", "internal_error")
		return
	}

	h.logger.Info("stack created",
		"stack_id", stack.ID,
		"name", stack.Name,
		"variant", variant.Slug,
	)

	h.writeJSON(w, http.StatusCreated, h.stackToResponse(stack))
}

func (h *Handler) handleListStacks(w http.ResponseWriter, r *http.Request) {
	opts := parseListOptions(r)

	var stacks []domain.Stack
	var err error
	if raw := r.URL.Query().Get("status"); raw != "" {
		statuses, ok := parseStatuses(raw)
		if !ok {
			h.writeError(w, http.StatusBadRequest, "invalid status filter", "validation_error")
			return
		}
		stacks, err = h.store.ListStacksByStatus(r.Context(), statuses...)
	} else {
		stacks, err = h.store.ListStacks(r.Context(), opts)
	}
	if err != nil {
		h.logger.Error("failed to list stacks", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list stacks", "internal_error")
		return
	}

	resp := ListStacksResponse{
		Stacks: make([]StackResponse, 0, len(stacks)),
		Total:  len(stacks),
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}
	for i := range stacks {
		resp.Stacks = append(resp.Stacks, h.stackToResponse(&stacks[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetStack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// An on-demand refresh re-inspects the containers now instead of
	// waiting for the next monitor pass.
	if r.URL.Query().Get("refresh") == "true" && h.monitor != nil {
		if err := h.monitor.CheckStackNow(r.Context(), id); err != nil && !isNotFound(err) {
			h.logger.Warn("on-demand refresh failed", "stack_id", id, "error", err)
		}
	}

	stack, err := h.store.GetStack(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "stack not found", "stack_not_found")
			return
		}
		h.logger.Error("failed to get stack", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get stack", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, h.stackToResponse(stack))
}

func (h *Handler) handleDeleteStack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	stack, err := h.store.GetStack(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "stack not found", "stack_not_found")
			return
		}
		h.logger.Error("failed to get stack", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get stack", "internal_error")
		return
	}

	if allowed, reason := plan.CanDestroyStack(stack.Status); !allowed {
		h.writeError(w, http.StatusConflict, reason, "invalid_transition")
		return
	}

	if err := stack.Transition(domain.StatusRemoving); err != nil {
		h.logger.Error("failed to transition to removing", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to delete stack", "internal_error")
		return
	}
	if err := h.store.UpdateStack(r.Context(), stack); err != nil {
		h.logger.Error("failed to update stack status", "error", err)
	}

	// Remove containers, network, volumes and the config directory. The
	// record goes regardless; leftover resources still carry the stack
	// label for manual cleanup.
	if err := h.runner.Destroy(r.Context(), stack); err != nil {
		h.logger.Warn("failed to remove stack resources", "error", err)
	}

	if err := h.store.DeleteStack(r.Context(), id); err != nil {
		h.logger.Error("failed to delete stack", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to delete stack", "internal_error")
		return
	}

	h.logger.Info("stack deleted", "stack_id", id)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStartStack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	stack, err := h.store.GetStack(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "stack not found", "stack_not_found")
			return
		}
		h.logger.Error("failed to get stack", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get stack", "internal_error")
		return
	}

	// Check if already running
	if stack.Status == domain.StatusRunning {
		h.writeError(w, http.StatusConflict, "stack is already running", "already_running")
		return
	}

	// Determine start path using core plan logic
	startPath := plan.DetermineStartPath(stack.Status)
	if !startPath.Valid {
		h.writeError(w, http.StatusConflict, startPath.ErrorReason, "invalid_transition")
		return
	}

	// The variant supplies the config files written at start time; the
	// compose document and variables were captured on the stack itself.
	variant, err := h.store.GetVariant(r.Context(), domain.Slugify(stack.Variant))
	if err != nil {
		h.logger.Error("failed to get variant", "variant", stack.Variant, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load variant", "internal_error")
		return
	}

	// Execute the state transitions
	for _, status := range startPath.Transitions {
		if err := stack.Transition(status); err != nil {
			h.logger.Error("failed to transition", "to", status, "error", err)
			h.writeError(w, http.StatusInternalServerError, "failed to start stack", "internal_error")
			return
		}
	}
	if err := h.store.UpdateStack(r.Context(), stack); err != nil {
		h.logger.Error("failed to update stack status", "error", err)
	}

	services, err := h.runner.Up(r.Context(), stack, stack.ComposeYAML, stack.Variables, variant.ConfigFiles)
	if err != nil {
		h.logger.Error("failed to start stack containers", "error", err)
		_ = stack.TransitionToFailed(err.Error())
		_ = h.store.UpdateStack(r.Context(), stack)
		h.writeError(w, http.StatusInternalServerError, "failed to start stack: "+err.Error(), "container_error")
		return
	}

	// Update stack with container info and transition to running
	stack.Services = services
	if err := stack.Transition(domain.StatusRunning); err != nil {
		h.logger.Error("failed to transition to running", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to start stack", "internal_error")
		return
	}

	if err := h.store.UpdateStack(r.Context(), stack); err != nil {
		h.logger.Error("failed to update stack", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to update stack", "internal_error")
		return
	}

	h.logger.Info("stack started",
		"stack_id", stack.ID,
		"variant", stack.Variant,
		"containers", len(services),
	)

	h.writeJSON(w, http.StatusOK, h.stackToResponse(stack))
}

func (h *Handler) handleStopStack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	stack, err := h.store.GetStack(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "stack not found", "stack_not_found")
			return
		}
		h.logger.Error("failed to get stack", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get stack", "internal_error")
		return
	}

	// Check if transition is valid using core plan logic
	if allowed, reason := plan.CanStopStack(stack.Status); !allowed {
		h.writeError(w, http.StatusConflict, reason, "invalid_transition")
		return
	}

	// Transition to stopping
	if err := stack.Transition(domain.StatusStopping); err != nil {
		h.logger.Error("failed to transition to stopping", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to stop stack", "internal_error")
		return
	}
	if err := h.store.UpdateStack(r.Context(), stack); err != nil {
		h.logger.Error("failed to update stack status", "error", err)
	}

	// Stop containers in reverse dependency order
	if err := h.runner.Down(r.Context(), stack); err != nil {
		h.logger.Error("failed to stop stack containers", "error", err)
		_ = stack.TransitionToFailed(err.Error())
		_ = h.store.UpdateStack(r.Context(), stack)
		h.writeError(w, http.StatusInternalServerError, "failed to stop stack: "+err.Error(), "container_error")
		return
	}

	// Capture the final container states while the containers still exist.
	if services, err := h.runner.Refresh(r.Context(), stack); err == nil {
		stack.Services = services
	}

	// Transition to stopped
	if err := stack.Transition(domain.StatusStopped); err != nil {
		h.logger.Error("failed to transition to stopped", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to stop stack", "internal_error")
		return
	}

	if err := h.store.UpdateStack(r.Context(), stack); err != nil {
		h.logger.Error("failed to update stack", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to update stack", "internal_error")
		return
	}

	h.logger.Info("stack stopped", "stack_id", stack.ID)

	h.writeJSON(w, http.StatusOK, h.stackToResponse(stack))
}

// =============================================================================
// Observation Handlers
// =============================================================================

func (h *Handler) handleStackEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.store.GetStack(r.Context(), id); err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "stack not found", "stack_not_found")
			return
		}
		h.logger.Error("failed to get stack", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get stack", "internal_error")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil {
			limit = l
		}
	}
	var eventType *string
	if t := r.URL.Query().Get("type"); t != "" {
		eventType = &t
	}

	events, err := h.store.ListEvents(r.Context(), id, limit, eventType)
	if err != nil {
		h.logger.Error("failed to list events", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list events", "internal_error")
		return
	}

	resp := ListEventsResponse{
		Events: make([]EventResponse, 0, len(events)),
		Total:  len(events),
	}
	for _, e := range events {
		resp.Events = append(resp.Events, EventResponse{
			ID:        e.ReferenceID,
			Type:      string(e.Type),
			Container: e.Container,
			Message:   e.Message,
			Timestamp: e.Timestamp,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleStackReadiness(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	stack, err := h.store.GetStack(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "stack not found", "stack_not_found")
			return
		}
		h.logger.Error("failed to get stack", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get stack", "internal_error")
		return
	}

	report := h.prober.Report(r.Context(), stack)

	ready := len(report) > 0
	probes := make([]ProbeResponse, 0, len(report))
	for _, sr := range report {
		metrics.ProbeDuration.WithLabelValues(string(sr.Kind)).Observe(sr.LatencyMS / 1000)
		if !sr.Ready {
			ready = false
		}
		probes = append(probes, ProbeResponse{
			Service:   sr.Service,
			Kind:      string(sr.Kind),
			Target:    sr.Target,
			Ready:     sr.Ready,
			LatencyMS: sr.LatencyMS,
			Error:     sr.Error,
		})
	}

	h.writeJSON(w, http.StatusOK, ReadinessResponse{
		StackID:   stack.ID,
		Ready:     ready,
		Probes:    probes,
		CheckedAt: time.Now().UTC(),
	})
}

func (h *Handler) handleServiceLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	service := chi.URLParam(r, "service")

	stack, err := h.store.GetStack(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "stack not found", "stack_not_found")
			return
		}
		h.logger.Error("failed to get stack", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get stack", "internal_error")
		return
	}

	var containerID string
	for _, svc := range stack.Services {
		if svc.Service == service {
			containerID = svc.ContainerID
			break
		}
	}
	if containerID == "" {
		h.writeError(w, http.StatusNotFound, "service not found", "service_not_found")
		return
	}

	tail := r.URL.Query().Get("tail")
	if tail == "" {
		tail = "100"
	}
	if tail != "all" {
		if _, err := strconv.Atoi(tail); err != nil {
			h.writeError(w, http.StatusBadRequest, `tail must be a number or "all"`, "validation_error")
			return
		}
	}

	logs, err := h.runner.Logs(r.Context(), containerID, tail)
	if err != nil {
		h.logger.Error("failed to fetch logs", "container_id", containerID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to fetch logs", "container_error")
		return
	}

	h.writeJSON(w, http.StatusOK, LogsResponse{
		Service:     service,
		ContainerID: containerID,
		Tail:        tail,
		Logs:        logs,
	})
}

func (h *Handler) handleStackStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	stack, err := h.store.GetStack(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "stack not found", "stack_not_found")
			return
		}
		h.logger.Error("failed to get stack", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get stack", "internal_error")
		return
	}

	services := make([]ServiceStatsResponse, 0, len(stack.Services))
	for _, svc := range stack.Services {
		if svc.ContainerID == "" {
			continue
		}
		stats, err := h.docker.ContainerStats(svc.ContainerID)
		if err != nil {
			h.logger.Debug("failed to read container stats",
				"stack_id", id, "service", svc.Service, "error", err)
			continue
		}
		services = append(services, ServiceStatsResponse{
			Service:          svc.Service,
			CPUPercent:       stats.CPUPercent,
			MemoryUsageBytes: stats.MemoryUsageBytes,
			MemoryLimitBytes: stats.MemoryLimitBytes,
			MemoryPercent:    stats.MemoryPercent,
			NetworkRxBytes:   stats.NetworkRxBytes,
			NetworkTxBytes:   stats.NetworkTxBytes,
			BlockReadBytes:   stats.BlockReadBytes,
			BlockWriteBytes:  stats.BlockWriteBytes,
			PIDs:             stats.PIDs,
		})
	}

	h.writeJSON(w, http.StatusOK, StackStatsResponse{
		StackID:     stack.ID,
		Services:    services,
		CollectedAt: time.Now().UTC(),
	})
}

// =============================================================================
// Validate Handler
// =============================================================================

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	if strings.TrimSpace(req.ComposeYAML) == "" {
		h.writeError(w, http.StatusBadRequest, "compose_yaml is required", "validation_error")
		return
	}

	// A document that does not parse is a validation outcome, not a bad
	// request.
	doc, err := compose.Parse(req.ComposeYAML, req.Variables)
	if err != nil {
		h.writeJSON(w, http.StatusOK, ValidateResponse{
			Valid:    false,
			Findings: []string{err.Error()},
		})
		return
	}

	findings := make([]string, 0)
	for _, ferr := range compose.Validate(doc) {
		findings = append(findings, ferr.Error())
	}

	h.writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:    len(findings) == 0,
		Services: doc.ServiceNames(),
		Findings: findings,
	})
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// parseListOptions reads limit/offset query parameters.
func parseListOptions(r *http.Request) store.ListOptions {
	opts := store.DefaultListOptions()

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			opts.Limit = l
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil {
			opts.Offset = o
		}
	}

	return opts.Normalize()
}

// parseStatuses parses a comma-separated status filter.
func parseStatuses(raw string) ([]domain.StackStatus, bool) {
	var statuses []domain.StackStatus
	for _, part := range strings.Split(raw, ",") {
		status := domain.StackStatus(strings.TrimSpace(part))
		switch status {
		case domain.StatusPending, domain.StatusStarting, domain.StatusRunning,
			domain.StatusStopping, domain.StatusStopped, domain.StatusFailed,
			domain.StatusRemoving, domain.StatusRemoved:
			statuses = append(statuses, status)
		default:
			return nil, false
		}
	}
	return statuses, true
}

func (h *Handler) variantToResponse(v *domain.Variant) VariantResponse {
	resp := VariantResponse{
		ID:          v.ReferenceID,
		Name:        v.Name,
		Slug:        v.Slug,
		Description: v.Description,
		Version:     v.Version,
		Variables:   make([]VariableResponse, 0, len(v.Variables)),
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
	for _, vr := range v.Variables {
		resp.Variables = append(resp.Variables, VariableResponse{
			Name:        vr.Name,
			Label:       vr.Label,
			Description: vr.Description,
			Type:        string(vr.Type),
			Default:     vr.Default,
			Required:    vr.Required,
			Options:     vr.Options,
		})
	}
	return resp
}

func (h *Handler) variantToDetailResponse(v *domain.Variant) VariantDetailResponse {
	resp := VariantDetailResponse{
		VariantResponse:   h.variantToResponse(v),
		ComposeYAML:       v.ComposeYAML,
		RequiredVariables: compose.RequiredVariables(v.ComposeYAML),
		ConfigFiles:       make([]ConfigFileResponse, 0, len(v.ConfigFiles)),
	}
	for _, cf := range v.ConfigFiles {
		resp.ConfigFiles = append(resp.ConfigFiles, ConfigFileResponse{
			Name:    cf.Name,
			Path:    cf.Path,
			Content: cf.Content,
			Mode:    cf.Mode,
			Service: cf.Service,
		})
	}
	return resp
}

func (h *Handler) stackToResponse(s *domain.Stack) StackResponse {
	resp := StackResponse{
		ID:           s.ID,
		Name:         s.Name,
		Variant:      s.Variant,
		Status:       string(s.Status),
		Health:       string(s.Health),
		Variables:    s.Variables,
		Services:     make([]ServiceResponse, 0, len(s.Services)),
		ErrorMessage: s.ErrorMessage,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		StartedAt:    s.StartedAt,
		StoppedAt:    s.StoppedAt,
	}
	if resp.Variables == nil {
		resp.Variables = make(map[string]string)
	}
	for _, svc := range s.Services {
		sr := ServiceResponse{
			Service:     svc.Service,
			ContainerID: svc.ContainerID,
			Image:       svc.Image,
			State:       svc.State,
			Health:      string(svc.Health),
			ExitCode:    svc.ExitCode,
			OOMKilled:   svc.OOMKilled,
			Restarts:    svc.Restarts,
			StartedAt:   svc.StartedAt,
			Ports:       make([]PortResponse, 0, len(svc.Ports)),
		}
		for _, p := range svc.Ports {
			sr.Ports = append(sr.Ports, PortResponse{
				ContainerPort: p.ContainerPort,
				HostPort:      p.HostPort,
				Protocol:      p.Protocol,
			})
		}
		resp.Services = append(resp.Services, sr)
	}
	return resp
}

// isNotFound checks if an error is a not found error.
func isNotFound(err error) bool {
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		return errors.Is(storeErr.Unwrap(), store.ErrNotFound)
	}
	return false
}
