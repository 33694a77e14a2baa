package ipn

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/paygate-io/subscription-gateway/internal/domain"
	notificationsvc "github.com/paygate-io/subscription-gateway/internal/services/notification"
)

// Handler receives vendor payment notifications (IPN)
type Handler struct {
	notifications *notificationsvc.Service
	logger        *zap.Logger
}

// NewHandler creates a new IPN handler
func NewHandler(notifications *notificationsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{
		notifications: notifications,
		logger:        logger,
	}
}

type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Handle processes GET/POST /ipn. The vendor sends several notification
// shapes over time; each gets its own branch:
//   - legacy direct cancel/refund actions
//   - topic + id (fetch the resource, then apply it)
//   - data_id + type (API v1, acknowledge only)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: "malformed request"})
		return
	}
	params := r.Form

	if params.Get("action_mp_payment_id") != "" {
		h.handleLegacyAction(w, r, params.Get("action_mp_payment_id"),
			params.Get("action_mp_payment_amount"), params.Get("action_mp_payment_action"))
		return
	}

	if topic, id := params.Get("topic"), params.Get("id"); topic != "" && id != "" {
		h.handleTopic(w, r, topic, id)
		return
	}

	if params.Get("data_id") != "" && params.Get("type") != "" {
		// API v1 shape: acknowledge receipt, nothing else.
		writeJSON(w, http.StatusOK, response{Status: "ok", Message: "acknowledged"})
		return
	}

	writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: "unrecognized notification"})
}

func (h *Handler) handleTopic(w http.ResponseWriter, r *http.Request, topic, id string) {
	n, err := h.notifications.Fetch(r.Context(), topic, id)
	if err == domain.ErrUnknownTopic {
		writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: "unknown topic"})
		return
	}
	if err != nil {
		// A 5xx tells the vendor to retry the delivery later.
		h.logger.Error("could not fetch notified resource",
			zap.String("topic", topic),
			zap.String("id", id),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, response{Status: "error", Message: "vendor fetch failed"})
		return
	}

	if err := h.notifications.Process(r.Context(), n); err != nil {
		h.logger.Error("could not process notification",
			zap.String("topic", topic),
			zap.String("id", id),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, response{Status: "error", Message: "processing failed"})
		return
	}

	writeJSON(w, http.StatusOK, response{Status: "ok", Message: "processed"})
}

func (h *Handler) handleLegacyAction(w http.ResponseWriter, r *http.Request, paymentID, rawAmount, action string) {
	if action != "cancel" && action != "refund" {
		writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: "unknown action"})
		return
	}

	amount := decimal.Zero
	if rawAmount != "" {
		parsed, err := decimal.NewFromString(rawAmount)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: "invalid amount"})
			return
		}
		amount = parsed
	}

	result, err := h.notifications.LegacyAction(r.Context(), action, paymentID, amount)
	if err != nil {
		h.logger.Error("legacy action failed",
			zap.String("action", action),
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, response{Status: "error", Message: "vendor call failed"})
		return
	}

	// The vendor outcome is forwarded in the body; HTTP stays 200.
	writeJSON(w, http.StatusOK, response{Status: "ok", Message: result.Message})
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
