package handler

import (
	"net/http"

	"campuspark/internal/payments/service"
	httputil "campuspark/pkg/http"
	"campuspark/pkg/logger"
	"campuspark/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type PaymentHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, log: log}
}

// Confirm is the checkout provider's success callback. The request signature
// is checked by middleware before it gets here.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.PaymentConfirmation
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, err)
		return
	}

	view, err := h.service.Confirm(r.Context(), &req, model.SourceWebhook)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "Confirm", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", "Confirm", "operation", "WriteError", "error", writeErr)
	}
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/payments/confirm", h.Confirm)
}
