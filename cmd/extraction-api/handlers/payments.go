package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docmill/extraction-engine/internal/billing"
	"github.com/docmill/extraction-engine/internal/observability"
)

// PaymentsHandler exposes tenant payment management backed by Stripe.
type PaymentsHandler struct {
	logger *observability.Logger
	client billing.Client
}

// NewPaymentsHandler creates a new payments handler.
func NewPaymentsHandler(logger *observability.Logger, client billing.Client) *PaymentsHandler {
	return &PaymentsHandler{logger: logger, client: client}
}

// CreateSetupIntent handles POST /api/v1/payments/{customerId}/setup-intent.
func (h *PaymentsHandler) CreateSetupIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := chi.URLParam(r, "customerId")

	intent, err := h.client.CreateSetupIntent(ctx, customerID)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Str("customer_id", customerID).Msg("Setup intent creation failed")
		writeError(w, http.StatusBadGateway, "payment provider error", "")
		return
	}

	writeJSON(w, http.StatusOK, intent)
}

// CreateSession handles POST /api/v1/payments/{customerId}/session.
func (h *PaymentsHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := chi.URLParam(r, "customerId")

	session, err := h.client.CreateCustomerSession(ctx, customerID)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Str("customer_id", customerID).Msg("Customer session creation failed")
		writeError(w, http.StatusBadGateway, "payment provider error", "")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// ListPaymentMethods handles GET /api/v1/payments/{customerId}/methods.
func (h *PaymentsHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := chi.URLParam(r, "customerId")

	methods, err := h.client.ListPaymentMethods(ctx, customerID)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Str("customer_id", customerID).Msg("Payment method listing failed")
		writeError(w, http.StatusBadGateway, "payment provider error", "")
		return
	}

	writeJSON(w, http.StatusOK, methods)
}

// DetachPaymentMethod handles DELETE /api/v1/payments/methods/{methodId}.
func (h *PaymentsHandler) DetachPaymentMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	methodID := chi.URLParam(r, "methodId")

	if err := h.client.DetachPaymentMethod(ctx, methodID); err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Str("method_id", methodID).Msg("Payment method detach failed")
		writeError(w, http.StatusBadGateway, "payment provider error", "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
