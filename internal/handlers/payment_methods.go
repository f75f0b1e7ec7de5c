package handlers

import (
	"net/http"

	"store-system/internal/logger"
)

// PaymentMethodHandler отдаёт доступные способы оплаты.
type PaymentMethodHandler struct {
	paymentMethodService PaymentMethodService
	log                  *logger.Logger
}

// NewPaymentMethodHandler создаёт новый обработчик способов оплаты.
func NewPaymentMethodHandler(paymentMethodService PaymentMethodService, log *logger.Logger) *PaymentMethodHandler {
	return &PaymentMethodHandler{
		paymentMethodService: paymentMethodService,
		log:                  log,
	}
}

// List возвращает активные способы оплаты
func (h *PaymentMethodHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	methods, err := h.paymentMethodService.ListActive(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list payment methods")
		return
	}

	writeSuccess(w, http.StatusOK, methods)
}
