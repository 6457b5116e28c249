package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/tendant/simple-mfa/pkg/challenge"
	"github.com/tendant/simple-mfa/pkg/mfa"
)

// Handler exposes the MFA service over HTTP
type Handler struct {
	service mfa.Service
}

// NewHandler creates a new MFA API handler
func NewHandler(service mfa.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// Routes mounts all MFA endpoints on a chi router
func (h *Handler) Routes(r chi.Router) {
	r.Post("/setup", h.Setup)
	r.Post("/enable", h.EnableMethod)
	r.Post("/disable", h.DisableMethod)
	r.Post("/disable-all", h.DisableAll)
	r.Get("/status/{userId}", h.GetStatus)
	r.Post("/challenge/send", h.SendChallenge)
	r.Post("/challenge/verify", h.VerifyChallenge)
	r.Post("/verify/totp", h.VerifyTOTP)
	r.Post("/verify/backup", h.VerifyBackupCode)
}

// Setup handles POST /setup
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	var req SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	userID, ok := parseUserID(w, r, req.UserId)
	if !ok {
		return
	}

	methods := make([]mfa.Method, 0, len(req.Methods))
	for _, m := range req.Methods {
		methods = append(methods, mfa.Method(m))
	}

	result, err := h.service.SetupMFA(r.Context(), mfa.SetupMfaParams{
		UserID:      userID,
		Methods:     methods,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SetupResponse{
		Secret:      result.Secret,
		OtpauthUrl:  result.OtpauthURL,
		BackupCodes: result.BackupCodes,
	})
}

// EnableMethod handles POST /enable
func (h *Handler) EnableMethod(w http.ResponseWriter, r *http.Request) {
	var req EnableMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	userID, ok := parseUserID(w, r, req.UserId)
	if !ok {
		return
	}

	if err := h.service.EnableMethod(r.Context(), userID, mfa.Method(req.Method), req.Code); err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"message": "Method enabled"})
}

// DisableMethod handles POST /disable
func (h *Handler) DisableMethod(w http.ResponseWriter, r *http.Request) {
	var req DisableMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	userID, ok := parseUserID(w, r, req.UserId)
	if !ok {
		return
	}

	if err := h.service.DisableMethod(r.Context(), userID, mfa.Method(req.Method)); err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"message": "Method disabled"})
}

// DisableAll handles POST /disable-all. This wipes the TOTP secret and
// backup codes; recovery requires full re-enrollment. Access control is
// the caller's responsibility.
func (h *Handler) DisableAll(w http.ResponseWriter, r *http.Request) {
	var req DisableAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	userID, ok := parseUserID(w, r, req.UserId)
	if !ok {
		return
	}

	if err := h.service.DisableAllMFA(r.Context(), userID); err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"message": "MFA disabled"})
}

// GetStatus handles GET /status/{userId}
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r, chi.URLParam(r, "userId"))
	if !ok {
		return
	}

	status, err := h.service.GetStatus(r.Context(), userID)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	var resp StatusResponse
	if err := copier.Copy(&resp, &status); err != nil {
		slog.Error("Failed to map status response", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred while retrieving MFA status"})
		return
	}
	resp.UserId = status.UserID.String()
	resp.CreatedAt = status.CreatedAt.Format(time.RFC3339)
	// copier fills LastUsedAt from the zero time.Time; the valid flag
	// decides, so reset it before the guard.
	resp.LastUsedAt = nil
	if status.LastUsedAtValid {
		lastUsed := status.LastUsedAt.Format(time.RFC3339)
		resp.LastUsedAt = &lastUsed
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// SendChallenge handles POST /challenge/send
func (h *Handler) SendChallenge(w http.ResponseWriter, r *http.Request) {
	var req SendChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	userID, ok := parseUserID(w, r, req.UserId)
	if !ok {
		return
	}

	challengeID, err := h.service.SendChallenge(r.Context(), userID, mfa.Method(req.Method))
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SendChallengeResponse{ChallengeId: challengeID})
}

// VerifyChallenge handles POST /challenge/verify
func (h *Handler) VerifyChallenge(w http.ResponseWriter, r *http.Request) {
	var req VerifyChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.ChallengeId == "" || req.Code == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Challenge ID and code are required"})
		return
	}

	result, err := h.service.VerifyChallenge(r.Context(), req.ChallengeId, req.Code)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	h.renderVerifyResult(w, r, result)
}

// VerifyTOTP handles POST /verify/totp
func (h *Handler) VerifyTOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	userID, ok := parseUserID(w, r, req.UserId)
	if !ok {
		return
	}

	result, err := h.service.VerifyTOTPCode(r.Context(), userID, req.Code)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	h.renderVerifyResult(w, r, result)
}

// VerifyBackupCode handles POST /verify/backup
func (h *Handler) VerifyBackupCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	userID, ok := parseUserID(w, r, req.UserId)
	if !ok {
		return
	}

	result, err := h.service.VerifyBackupCode(r.Context(), userID, req.Code)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	h.renderVerifyResult(w, r, result)
}

func (h *Handler) renderVerifyResult(w http.ResponseWriter, r *http.Request, result mfa.VerifyResult) {
	resp := VerifyResponse{
		UserId: result.UserID.String(),
		Token:  result.Token,
	}
	if !result.ExpiresAt.IsZero() {
		resp.ExpiresAt = result.ExpiresAt.Format(time.RFC3339)
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// renderServiceError maps service errors to HTTP responses. All
// verification failures collapse into one generic 401 so a caller
// probing codes or challenge IDs learns nothing about which part was
// wrong.
func (h *Handler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "An unexpected error occurred"

	switch {
	case errors.Is(err, mfa.ErrInvalidCode),
		errors.Is(err, challenge.ErrNotFound),
		errors.Is(err, challenge.ErrExpired),
		errors.Is(err, challenge.ErrAttemptsExceeded),
		errors.Is(err, challenge.ErrCodeMismatch):
		status = http.StatusUnauthorized
		message = "Verification failed"
	case errors.Is(err, mfa.ErrNotSetUp):
		status = http.StatusBadRequest
		message = "MFA is not set up for this user"
	case errors.Is(err, mfa.ErrMethodNotEnabled):
		status = http.StatusBadRequest
		message = "MFA method is not enabled"
	case errors.Is(err, mfa.ErrInvalidMethod):
		status = http.StatusBadRequest
		message = "Invalid MFA method"
	case errors.Is(err, mfa.ErrNoPhoneNumber):
		status = http.StatusBadRequest
		message = "No phone number on file"
	case errors.Is(err, mfa.ErrDeliveryFailed):
		slog.Error("Challenge delivery failed", "error", err)
		status = http.StatusBadGateway
		message = "Failed to deliver verification code"
	default:
		slog.Error("MFA operation failed", "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}

func parseUserID(w http.ResponseWriter, r *http.Request, raw string) (uuid.UUID, bool) {
	if raw == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "User ID is required"})
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid user ID"})
		return uuid.Nil, false
	}
	return userID, true
}
