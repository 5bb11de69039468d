package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
	schedulerapp "github.com/beanstack/docchase/internal/scheduler_service/app"
)

// AdminHandler exposes manual triggers for the scheduling passes. The
// scheduler binary runs them on a ticker; these endpoints exist for
// operations work, so a missed or misconfigured pass can be re-run by hand.
type AdminHandler struct {
	engine *schedulerapp.Engine
	logger *slog.Logger
}

func NewAdminHandler(engine *schedulerapp.Engine, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{engine: engine, logger: logger}
}

// RunPass executes a full scheduling pass: both reminder tiers and the
// stuck-flag step.
func (h *AdminHandler) RunPass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now().UTC()

	pass, err := h.engine.RunPass(ctx, now)
	if err != nil {
		h.logger.ErrorContext(ctx, "Manual scheduling pass finished with errors", "error", err)
	}

	resp := SchedulerPassResponse{
		Tier1:   TierResultResponse{Sent: pass.Tier1.Sent, Failed: pass.Tier1.Failed, Skipped: pass.Tier1.Skipped},
		Tier2:   TierResultResponse{Sent: pass.Tier2.Sent, Failed: pass.Tier2.Failed, Skipped: pass.Tier2.Skipped},
		Flagged: pass.Flag.Flagged,
	}
	resp.Errors = append(resp.Errors, pass.Tier1.Errors...)
	resp.Errors = append(resp.Errors, pass.Tier2.Errors...)
	resp.Errors = append(resp.Errors, pass.Flag.Errors...)
	if err != nil {
		resp.Errors = append(resp.Errors, err.Error())
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// RunTier executes a single reminder tier pass.
func (h *AdminHandler) RunTier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tierNum, err := strconv.Atoi(chi.URLParam(r, "tier"))
	if err != nil || (tierNum != 1 && tierNum != 2) {
		writeError(w, http.StatusBadRequest, "Tier must be 1 or 2")
		return
	}

	result, err := h.engine.RunTier(ctx, domain.ReminderTier(tierNum), time.Now().UTC())
	if err != nil {
		h.logger.ErrorContext(ctx, "Manual tier pass failed", "tier", tierNum, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// RunFlagStep executes the stuck-flag step alone.
func (h *AdminHandler) RunFlagStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.engine.RunFlagStep(ctx, time.Now().UTC())
	if err != nil {
		h.logger.ErrorContext(ctx, "Manual flag step failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/scheduler/pass", h.RunPass)
	r.Post("/scheduler/tiers/{tier}", h.RunTier)
	r.Post("/scheduler/flag", h.RunFlagStep)
}
