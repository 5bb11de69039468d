package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	campaignapp "github.com/beanstack/docchase/internal/campaign_service/app"
	"github.com/beanstack/docchase/internal/core_campaign/domain"
	"github.com/beanstack/docchase/internal/public_api_service/middleware"
)

type CampaignHandler struct {
	campaignService *campaignapp.CampaignService
	launcher        *campaignapp.Launcher
	campaigns       domain.CampaignRepository
	enrollments     domain.EnrollmentRepository
	clients         domain.ClientRepository
	logger          *slog.Logger
	validate        *validator.Validate
}

func NewCampaignHandler(
	campaignService *campaignapp.CampaignService,
	launcher *campaignapp.Launcher,
	campaigns domain.CampaignRepository,
	enrollments domain.EnrollmentRepository,
	clients domain.ClientRepository,
	logger *slog.Logger,
	validate *validator.Validate,
) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
		launcher:        launcher,
		campaigns:       campaigns,
		enrollments:     enrollments,
		clients:         clients,
		logger:          logger,
		validate:        validate,
	}
}

// mapDomainErrorToHTTPStatus translates application errors into HTTP
// responses.
func mapDomainErrorToHTTPStatus(w http.ResponseWriter, logger *slog.Logger, err error, operation string) {
	if err == nil {
		return
	}
	logEntry := logger.With("operation", operation, "error", err)

	switch {
	case errors.Is(err, domain.ErrNotFound):
		logEntry.Warn("Resource not found")
		writeError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, domain.ErrForbidden):
		logEntry.Warn("Access to resource denied")
		writeError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, domain.ErrCampaignNotDraft), errors.Is(err, domain.ErrInvalidTransition):
		logEntry.Warn("Operation conflicts with campaign state")
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrQuotaExceeded):
		logEntry.Warn("Campaign quota exceeded")
		writeError(w, http.StatusPaymentRequired, "Campaign quota exceeded")
	default:
		logEntry.Error("Unhandled application error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := middleware.AccountFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Account authentication details not found")
		return
	}

	var reqDTO CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Failed to decode request body for CreateCampaign", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Validation failed for CreateCampaign", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", err.Error()))
		return
	}

	in := campaignapp.CreateCampaignInput{
		AccountID:       account.AccountID,
		Name:            reqDTO.Name,
		DocumentType:    reqDTO.DocumentType,
		PeriodLabel:     reqDTO.PeriodLabel,
		CustomIntroText: reqDTO.CustomIntroText,
	}
	if reqDTO.SendHour != nil {
		in.SendHour = *reqDTO.SendHour
	} else {
		in.SendHour = 10
	}
	if reqDTO.SendMinute != nil {
		in.SendMinute = *reqDTO.SendMinute
	}
	if reqDTO.Reminder1Days != nil {
		in.Reminder1Days = *reqDTO.Reminder1Days
	}
	if reqDTO.Reminder2Days != nil {
		in.Reminder2Days = *reqDTO.Reminder2Days
	}
	if reqDTO.Reminder3Days != nil {
		in.Reminder3Days = *reqDTO.Reminder3Days
	}
	if reqDTO.Reminder1Enabled != nil {
		in.DisableTier1 = !*reqDTO.Reminder1Enabled
	}
	if reqDTO.Reminder2Enabled != nil {
		in.DisableTier2 = !*reqDTO.Reminder2Enabled
	}
	if reqDTO.FlagStepEnabled != nil {
		in.DisableFlagStep = !*reqDTO.FlagStepEnabled
	}

	campaign, err := h.campaignService.CreateCampaign(ctx, in)
	if err != nil {
		mapDomainErrorToHTTPStatus(w, h.logger, err, "CreateCampaign")
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, NewCampaignResponse(campaign))
}

func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := middleware.AccountFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Account authentication details not found")
		return
	}

	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid campaign ID")
		return
	}

	campaign, err := h.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		mapDomainErrorToHTTPStatus(w, h.logger, err, "GetCampaign")
		return
	}
	if campaign.AccountID != account.AccountID {
		mapDomainErrorToHTTPStatus(w, h.logger, domain.ErrForbidden, "GetCampaign")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, NewCampaignResponse(campaign))
}

// ListEnrollments returns the campaign roster with per-client progress.
func (h *CampaignHandler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := middleware.AccountFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Account authentication details not found")
		return
	}

	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid campaign ID")
		return
	}

	campaign, err := h.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		mapDomainErrorToHTTPStatus(w, h.logger, err, "ListEnrollments")
		return
	}
	if campaign.AccountID != account.AccountID {
		mapDomainErrorToHTTPStatus(w, h.logger, domain.ErrForbidden, "ListEnrollments")
		return
	}

	roster, err := h.enrollments.ListByCampaign(ctx, campaignID)
	if err != nil {
		mapDomainErrorToHTTPStatus(w, h.logger, err, "ListEnrollments")
		return
	}

	resDTOs := make([]EnrollmentResponse, len(roster))
	for i, entry := range roster {
		resDTOs[i] = NewEnrollmentResponse(*entry)
	}
	writeJSON(w, h.logger, http.StatusOK, resDTOs)
}

func (h *CampaignHandler) AddClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := middleware.AccountFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Account authentication details not found")
		return
	}

	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid campaign ID")
		return
	}

	var reqDTO AddClientRequest
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Failed to decode request body for AddClient", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Validation failed for AddClient", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", err.Error()))
		return
	}
	clientID, err := uuid.Parse(reqDTO.ClientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid client ID")
		return
	}

	enrollment, err := h.campaignService.AddClient(ctx, account.AccountID, campaignID, clientID)
	if err != nil {
		mapDomainErrorToHTTPStatus(w, h.logger, err, "AddClient")
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, map[string]string{
		"enrollment_id": enrollment.ID.String(),
		"status":        string(enrollment.Status),
	})
}

func (h *CampaignHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := middleware.AccountFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Account authentication details not found")
		return
	}

	var reqDTO CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Failed to decode request body for CreateClient", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Validation failed for CreateClient", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", err.Error()))
		return
	}

	client := &domain.Client{
		ID:        uuid.New(),
		AccountID: account.AccountID,
		Name:      reqDTO.Name,
		Phone:     reqDTO.Phone,
	}
	if err := h.clients.Create(ctx, client); err != nil {
		mapDomainErrorToHTTPStatus(w, h.logger, err, "CreateClient")
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, NewClientResponse(client))
}

// LaunchCampaign flips a draft campaign to active and sends the initial
// messages. Partial send failures still return 200 with per-client errors.
func (h *CampaignHandler) LaunchCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := middleware.AccountFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Account authentication details not found")
		return
	}

	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid campaign ID")
		return
	}

	result, err := h.launcher.Launch(ctx, account.AccountID, campaignID)
	if err != nil {
		mapDomainErrorToHTTPStatus(w, h.logger, err, "LaunchCampaign")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, LaunchResponse{
		CampaignID: campaignID.String(),
		Status:     string(domain.CampaignStatusActive),
		Success:    result.Success,
		Failed:     result.Failed,
		Errors:     result.Errors,
	})
}

func (h *CampaignHandler) CompleteCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := middleware.AccountFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Account authentication details not found")
		return
	}

	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid campaign ID")
		return
	}

	if err := h.campaignService.CompleteCampaign(ctx, account.AccountID, campaignID); err != nil {
		mapDomainErrorToHTTPStatus(w, h.logger, err, "CompleteCampaign")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{
		"campaign_id": campaignID.String(),
		"status":      string(domain.CampaignStatusCompleted),
	})
}

// RegisterRoutes registers campaign routes onto a Chi router. The caller
// mounts this under the authenticated API group.
func (h *CampaignHandler) RegisterRoutes(r chi.Router) {
	r.Post("/campaigns", h.CreateCampaign)
	r.Get("/campaigns/{campaignID}", h.GetCampaign)
	r.Get("/campaigns/{campaignID}/enrollments", h.ListEnrollments)
	r.Post("/campaigns/{campaignID}/clients", h.AddClient)
	r.Post("/campaigns/{campaignID}/launch", h.LaunchCampaign)
	r.Post("/campaigns/{campaignID}/complete", h.CompleteCampaign)
	r.Post("/clients", h.CreateClient)
}
