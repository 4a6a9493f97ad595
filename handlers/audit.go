package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"sitegate/audit"
	"sitegate/models"
	"sitegate/utils"
)

// AuditHandler lets the rest of the site record sensitive mutations in the
// same log the login gate reads.
type AuditHandler struct {
	store  audit.Store
	logger *zap.Logger
}

func NewAuditHandler(store audit.Store, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{store: store, logger: logger}
}

type auditRequest struct {
	EventType models.EventType `json:"event_type"`
	Details   map[string]any   `json:"details"`
}

// RecordHandler appends one event. Login outcomes are written by the gate
// only and are refused here.
func (h *AuditHandler) RecordHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body auditRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if !body.EventType.Valid() || body.EventType == models.EventFailedLogin || body.EventType == models.EventSuccessfulLogin {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid event type"})
		return
	}

	err := h.store.Append(r.Context(), models.AuditEvent{
		EventType: body.EventType,
		IPAddress: utils.GetIP(r),
		UserAgent: utils.GetUserAgent(r),
		Details:   body.Details,
	})
	if err != nil {
		h.logger.Error("failed to record audit event", zap.String("event_type", string(body.EventType)), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}
