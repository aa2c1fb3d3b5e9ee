/**
 * @description
 * HTTP handlers for the confirmation service.
 */
package api

import (
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"strings"

	"github.com/walletgate/confirmation-service/internal/app"
	"github.com/walletgate/confirmation-service/internal/domain"
)

// Handler holds the workflow that handlers delegate to.
type Handler struct {
	workflow *app.Workflow
	logger   *slog.Logger
}

// NewHandler creates a new Handler with the given workflow.
func NewHandler(workflow *app.Workflow, logger *slog.Logger) *Handler {
	return &Handler{workflow: workflow, logger: logger}
}

// handleConfirm serves the confirmation link. Accepts either separate
// username/secret query params or the combined data=<secret>/<username>
// form, split on the first slash.
func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Get("logout") == "1" {
		respondWithJSON(w, http.StatusOK, domain.Outcome{Kind: domain.OutcomeLogout, RedirectURL: "/"})
		return
	}

	username := query.Get("username")
	secret := query.Get("secret")
	if data := query.Get("data"); data != "" && username == "" {
		parts := strings.SplitN(data, "/", 2)
		if len(parts) != 2 {
			http.Error(w, "Malformed confirmation data", http.StatusBadRequest)
			return
		}
		secret, username = parts[0], parts[1]
	}
	if username == "" {
		http.Error(w, "Username is required", http.StatusBadRequest)
		return
	}

	sessionID := r.Header.Get("X-Session-ID")
	returnURL := query.Get("returnUrl")

	outcome, err := h.workflow.HandleConfirmationRequest(r.Context(), sessionID, username, secret, returnURL)
	if err != nil {
		h.respondWithWorkflowError(w, username, err)
		return
	}

	if outcome.RedirectURL != "" && outcome.Kind != domain.OutcomePaymentRequired {
		w.Header().Set("Location", outcome.RedirectURL)
		respondWithJSON(w, http.StatusSeeOther, outcome)
		return
	}
	if outcome.Kind == domain.OutcomePaymentRequired {
		respondWithJSON(w, http.StatusPaymentRequired, outcome)
		return
	}
	respondWithJSON(w, http.StatusOK, outcome)
}

type bulkConfirmRequest struct {
	AccountIDs []string `json:"account_ids"`
}

// handleBulkConfirm confirms a set of accounts, bypassing the payment
// criterion. Admin only.
func (h *Handler) handleBulkConfirm(w http.ResponseWriter, r *http.Request) {
	var req bulkConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.AccountIDs) == 0 {
		http.Error(w, "No accounts selected", http.StatusBadRequest)
		return
	}

	result, err := h.workflow.BulkConfirm(r.Context(), req.AccountIDs)
	if err != nil {
		log.Printf("Error running bulk confirmation: %v", err)
		http.Error(w, "Bulk confirmation failed", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

type signupHookRequest struct {
	AccountID string `json:"account_id"`
	WantsURL  string `json:"wants_url,omitempty"`
}

// handleSignupHook registers a freshly created account with the
// confirmation flow: record creation, return-url capture, and the
// confirmation email when the email stage is enabled.
func (h *Handler) handleSignupHook(w http.ResponseWriter, r *http.Request) {
	var req signupHookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AccountID == "" {
		http.Error(w, "Account ID is required", http.StatusBadRequest)
		return
	}

	if err := h.workflow.RegisterSignup(r.Context(), req.AccountID, req.WantsURL); err != nil {
		if errors.Is(err, domain.ErrUnknownAccount) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, domain.ErrNotificationFailure) {
			log.Printf("Error sending confirmation email for account %s: %v", req.AccountID, err)
			http.Error(w, "Could not send the confirmation email", http.StatusBadGateway)
			return
		}
		log.Printf("Error registering signup for account %s: %v", req.AccountID, err)
		http.Error(w, "Signup registration failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type interceptRequest struct {
	AccountID string `json:"account_id"`
	Route     string `json:"route"`
	SessionID string `json:"session_id,omitempty"`
}

// handleIntercept answers the host's per-request gate check with a
// redirect decision.
func (h *Handler) handleIntercept(w http.ResponseWriter, r *http.Request) {
	var req interceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AccountID == "" {
		http.Error(w, "Account ID is required", http.StatusBadRequest)
		return
	}

	account, err := h.workflow.FindAccount(r.Context(), req.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownAccount) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		log.Printf("Error loading account %s for intercept: %v", req.AccountID, err)
		http.Error(w, "Intercept failed", http.StatusInternalServerError)
		return
	}

	decision, err := h.workflow.InterceptRequest(r.Context(), req.SessionID, account, domain.RouteID(req.Route))
	if err != nil {
		log.Printf("Error intercepting request for account %s: %v", req.AccountID, err)
		http.Error(w, "Intercept failed", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, decision)
}

// handleRunCleanup triggers a cleanup pass outside the cron schedule.
func (h *Handler) handleRunCleanup(w http.ResponseWriter, r *http.Request) {
	result, err := h.workflow.CleanupStaleUnconfirmed(r.Context(), h.logger)
	if err != nil {
		log.Printf("Error running cleanup: %v", err)
		http.Error(w, "Cleanup failed", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) respondWithWorkflowError(w http.ResponseWriter, username string, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownAccount):
		http.Error(w, "No account matches this confirmation link", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidConfirmationData):
		http.Error(w, "The confirmation link is invalid or has expired", http.StatusBadRequest)
	case errors.Is(err, domain.ErrAccountSuspended):
		http.Error(w, "This account is suspended", http.StatusForbidden)
	case errors.Is(err, domain.ErrInsufficientBalance):
		http.Error(w, "Your balance no longer covers the confirmation fee", http.StatusPaymentRequired)
	default:
		log.Printf("Error confirming user %s: %v", username, err)
		http.Error(w, "Confirmation failed", http.StatusInternalServerError)
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
