// Package api provides the HTTP surface for the rollout engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/artpar/rollout/internal/core/capability"
	"github.com/artpar/rollout/internal/core/domain"
	"github.com/artpar/rollout/internal/core/manifest"
	"github.com/artpar/rollout/internal/core/phase"
	"github.com/artpar/rollout/internal/orchestrator"
	"github.com/artpar/rollout/internal/shell/audit"
	"github.com/artpar/rollout/internal/shell/deploy"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// =============================================================================
// Audit Store Contract
// =============================================================================

// AuditStore is the persistence the API needs: the orchestrator's write side
// plus the query side for the introspection endpoints.
type AuditStore interface {
	orchestrator.Auditor

	GetDeploymentAudit(ctx context.Context, deploymentID string) (*audit.DeploymentAudit, error)
	ListRecentAudits(ctx context.Context, limit int) ([]audit.DeploymentAudit, error)
	ListPhaseLogs(ctx context.Context, deploymentID string) ([]audit.PhaseLog, error)
	ListErrorLogs(ctx context.Context, deploymentID string) ([]audit.ErrorLog, error)
}

// =============================================================================
// Handler
// =============================================================================

// Config wires a Handler's collaborators. Store is required; the rest are
// optional and gate which capabilities a rollout can exercise.
type Config struct {
	Store       AuditStore
	Docker      deploy.Client
	Prober      orchestrator.Prober
	Provisioner orchestrator.EnvProvisioner
	Migrations  orchestrator.MigrationChecker
	SealingKey  []byte
	Logger      *slog.Logger
}

// Handler provides HTTP handlers for the rollout API.
type Handler struct {
	store       AuditStore
	docker      deploy.Client
	prober      orchestrator.Prober
	provisioner orchestrator.EnvProvisioner
	migrations  orchestrator.MigrationChecker
	sealingKey  []byte
	logger      *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(cfg Config) *Handler {
	l := cfg.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Handler{
		store:       cfg.Store,
		docker:      cfg.Docker,
		prober:      cfg.Prober,
		provisioner: cfg.Provisioner,
		migrations:  cfg.Migrations,
		sealingKey:  cfg.SealingKey,
		logger:      l,
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	// Health endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/capabilities", h.handleListCapabilities)

		r.Route("/rollouts", func(r chi.Router) {
			r.Post("/", h.handleCreateRollout)
			r.Get("/", h.handleListRollouts)
			r.Get("/{id}", h.handleGetRollout)
			r.Get("/{id}/report", h.handleGetRolloutReport)
		})
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

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	// Check database (implicit - if we got here, the audit store was created)
	checks["database"] = "ok"

	// Check Docker when deployments are wired
	if h.docker != nil {
		if err := h.docker.Ping(r.Context()); err != nil {
			checks["docker"] = "failed"
			h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
				Status: "not_ready",
				Checks: checks,
			})
			return
		}
		checks["docker"] = "ok"
	}

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Rollout Handlers
// =============================================================================

func (h *Handler) handleCreateRollout(w http.ResponseWriter, r *http.Request) {
	var req CreateRolloutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}
	if req.Manifest == "" {
		h.writeError(w, http.StatusBadRequest, "manifest is required", "validation_error")
		return
	}

	m, spec, err := manifest.Parse([]byte(req.Manifest))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}

	mode, err := capability.ParseMode(m.Mode)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "unknown_mode")
		return
	}

	rollout, err := domain.NewRollout(m.Name, string(mode), spec)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}

	composer, err := h.buildComposer(rollout, mode, req.Capabilities)
	if err != nil {
		if errors.Is(err, capability.ErrUnknownCapability) {
			h.writeError(w, http.StatusBadRequest, err.Error(), "unknown_capability")
			return
		}
		h.logger.Error("failed to build composer", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to build rollout", "internal_error")
		return
	}

	summary, err := composer.Execute(r.Context(), orchestrator.Options{
		ContinueOnError: req.ContinueOnError,
	})
	if err != nil {
		// The rollout ran and failed; the partial summary is the post-mortem.
		h.logger.Warn("rollout failed",
			"rollout_id", rollout.ID,
			"mode", rollout.Mode,
			"error", err,
		)
		h.writeJSON(w, http.StatusOK, rolloutToResponse(rollout, composer.Summary()))
		return
	}

	h.logger.Info("rollout succeeded",
		"rollout_id", rollout.ID,
		"mode", rollout.Mode,
		"duration", summary.Duration,
	)
	h.writeJSON(w, http.StatusCreated, rolloutToResponse(rollout, summary))
}

// buildComposer assembles a single-use composer for one rollout: mode preset
// first, then caller capabilities on top (latest config wins).
func (h *Handler) buildComposer(rollout *domain.Rollout, mode capability.Mode, extra map[string]map[string]any) (*orchestrator.Composer, error) {
	var deployer orchestrator.Deployer
	if h.docker != nil {
		deployer = deploy.NewDockerDeployer(h.docker, rollout.ID, h.logger)
	}

	composer, err := orchestrator.NewComposer(orchestrator.ComposerConfig{
		Rollout:     rollout,
		Deployer:    deployer,
		Prober:      h.prober,
		Provisioner: h.provisioner,
		Migrations:  h.migrations,
		Auditor:     h.store,
		SealingKey:  h.sealingKey,
		Logger:      h.logger,
	})
	if err != nil {
		return nil, err
	}

	if err := composer.SetDeploymentMode(mode, true); err != nil {
		return nil, err
	}

	// Sorted so repeated requests configure capabilities in the same order.
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := composer.EnableCapability(name, map[string]any(extra[name])); err != nil {
			return nil, err
		}
	}

	return composer, nil
}

func (h *Handler) handleListRollouts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer", "validation_error")
			return
		}
		limit = n
	}

	audits, err := h.store.ListRecentAudits(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list rollouts", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list rollouts", "internal_error")
		return
	}

	resp := AuditListResponse{Audits: make([]AuditResponse, 0, len(audits))}
	for _, a := range audits {
		resp.Audits = append(resp.Audits, auditToResponse(a))
	}
	resp.Count = len(resp.Audits)

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetRollout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	a, err := h.store.GetDeploymentAudit(r.Context(), id)
	if err != nil {
		if errors.Is(err, audit.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "rollout not found", "rollout_not_found")
			return
		}
		h.logger.Error("failed to get rollout", "rollout_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get rollout", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, auditToResponse(*a))
}

func (h *Handler) handleGetRolloutReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	a, err := h.store.GetDeploymentAudit(ctx, id)
	if err != nil {
		if errors.Is(err, audit.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "rollout not found", "rollout_not_found")
			return
		}
		h.logger.Error("failed to get rollout", "rollout_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get rollout", "internal_error")
		return
	}

	phaseLogs, err := h.store.ListPhaseLogs(ctx, id)
	if err != nil {
		h.logger.Error("failed to list phase logs", "rollout_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to build report", "internal_error")
		return
	}

	errorLogs, err := h.store.ListErrorLogs(ctx, id)
	if err != nil {
		h.logger.Error("failed to list error logs", "rollout_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to build report", "internal_error")
		return
	}

	resp := ReportResponse{
		Audit:     auditToResponse(*a),
		PhaseLogs: make([]PhaseLogResponse, 0, len(phaseLogs)),
		ErrorLogs: make([]ErrorLogResponse, 0, len(errorLogs)),
	}
	for _, pl := range phaseLogs {
		resp.PhaseLogs = append(resp.PhaseLogs, PhaseLogResponse{
			Phase:      pl.Phase,
			Status:     pl.Status,
			Details:    pl.Details,
			RecordedAt: pl.LoggedAt,
		})
	}
	for _, el := range errorLogs {
		resp.ErrorLogs = append(resp.ErrorLogs, ErrorLogResponse{
			Message:    el.Message,
			Context:    el.Context,
			RecordedAt: el.LoggedAt,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Capability Handlers
// =============================================================================

func (h *Handler) handleListCapabilities(w http.ResponseWriter, r *http.Request) {
	reg := capability.Builtin()

	resp := CapabilityListResponse{
		Capabilities: make([]CapabilityResponse, 0, reg.Size()),
		Modes:        make(map[string][]string),
		Total:        reg.Size(),
	}
	for _, def := range reg.All() {
		resp.Capabilities = append(resp.Capabilities, CapabilityResponse{
			Name:         def.Name,
			Description:  def.Description,
			Subsystem:    def.Subsystem,
			Phase:        string(def.Phase),
			Requirements: def.Requirements,
		})
	}
	for _, mode := range []capability.Mode{
		capability.ModeSingle,
		capability.ModeMulti,
		capability.ModePortfolio,
		capability.ModeEnterprise,
	} {
		resp.Modes[string(mode)] = capability.RecommendedFor(mode)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Response Helpers
// =============================================================================

func rolloutToResponse(r *domain.Rollout, summary *phase.Summary) RolloutResponse {
	return RolloutResponse{
		ID:           r.ID,
		Name:         r.Name,
		Mode:         r.Mode,
		Status:       string(r.Status),
		ErrorMessage: r.ErrorMessage,
		CreatedAt:    r.CreatedAt,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Summary:      summary,
	}
}

func auditToResponse(a audit.DeploymentAudit) AuditResponse {
	return AuditResponse{
		DeploymentID: a.DeploymentID,
		Kind:         a.Kind,
		Meta:         a.Meta,
		Outcome:      a.Outcome,
		OutcomeMeta:  a.OutcomeMeta,
		StartedAt:    a.StartedAt,
		FinishedAt:   a.FinishedAt,
	}
}

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
