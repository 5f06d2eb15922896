package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

// errorBody — единый формат ошибки во всех REST-ответах.
type errorBody struct {
	Error errorDetails `json:"error"`
}

type errorDetails struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.WithError(err).Warn("failed to encode response")
		}
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetails{Code: code, Message: message}})
}

// settlementErrorStatus транслирует ошибки машины состояний расчёта в HTTP.
// Частичный сбой (списание прошло, фиксация — нет) отдаётся как 502
// RECONCILE_REQUIRED и никогда не схлопывается в обычную ошибку.
func settlementErrorStatus(err error) (int, string, string) {
	switch {
	case domain.IsPartialFailure(err):
		return http.StatusBadGateway, "RECONCILE_REQUIRED", err.Error()
	case domain.IsBusy(err):
		return http.StatusConflict, "SETTLEMENT_IN_PROGRESS", err.Error()
	case errors.Is(err, domain.ErrNoUnpaidPayment):
		return http.StatusNotFound, "NO_UNPAID_PAYMENT", err.Error()
	case errors.Is(err, domain.ErrPaymentNotFound):
		return http.StatusNotFound, "PAYMENT_NOT_FOUND", err.Error()
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "ACCOUNT_NOT_FOUND", err.Error()
	case errors.Is(err, domain.ErrPaymentAlreadySettled):
		return http.StatusConflict, "PAYMENT_ALREADY_SETTLED", err.Error()
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest, "INSUFFICIENT_FUNDS", err.Error()
	case errors.Is(err, domain.ErrBalanceUpdateFailed):
		return http.StatusBadRequest, "BALANCE_UPDATE_FAILED", err.Error()
	case domain.IsUnavailable(err):
		return http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", err.Error()
	case errors.Is(err, domain.ErrCustomerRequired),
		errors.Is(err, domain.ErrAccountRequired),
		errors.Is(err, domain.ErrAmountInvalid),
		errors.Is(err, domain.ErrCurrencyRequired),
		errors.Is(err, domain.ErrPaymentIDRequired):
		return http.StatusBadRequest, "INVALID_REQUEST", err.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal error"
	}
}

// mapLedgerError транслирует ошибки леджера в HTTP Account service.
// Коды согласованы с клиентом Account service на стороне Payment service.
func mapLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "ACCOUNT_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, domain.ErrAccountRequired),
		errors.Is(err, domain.ErrCustomerRequired),
		errors.Is(err, domain.ErrAmountInvalid),
		errors.Is(err, domain.ErrIdempotencyKeyRequired):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}
