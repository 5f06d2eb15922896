package rest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
	"github.com/vladislavdragonenkov/ibanking/internal/service/settlement"
)

const (
	idempotencyHeader    = "Idempotency-Key"
	idempotencyRecordTTL = 24 * time.Hour
)

// PaymentAPI — REST-поверхность Payment service.
type PaymentAPI struct {
	payments     domain.PaymentRepository
	timeline     domain.TimelineRepository
	outbox       domain.OutboxRepository
	idempotency  domain.IdempotencyRepository
	orchestrator settlement.Orchestrator
	verifier     domain.TokenVerifier
	logger       *log.Entry
}

// NewPaymentAPI создаёт API Payment service.
func NewPaymentAPI(
	payments domain.PaymentRepository,
	timeline domain.TimelineRepository,
	outbox domain.OutboxRepository,
	idempotency domain.IdempotencyRepository,
	orchestrator settlement.Orchestrator,
	verifier domain.TokenVerifier,
	logger *log.Entry,
) *PaymentAPI {
	if logger == nil {
		logger = log.WithField("component", "payment-api")
	}
	return &PaymentAPI{
		payments:     payments,
		timeline:     timeline,
		outbox:       outbox,
		idempotency:  idempotency,
		orchestrator: orchestrator,
		verifier:     verifier,
		logger:       logger,
	}
}

// Router собирает маршруты Payment service.
// Все операции /payment/* требуют валидный bearer-токен.
func (a *PaymentAPI) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(a.logger))

	r.Route("/payment", func(r chi.Router) {
		r.Use(BearerAuth(a.verifier, a.logger))

		r.Post("/create", a.handleCreate)
		r.Post("/make", a.handleMake)
		r.Get("/unpaid/{customerID}", a.handleUnpaid)
		r.Get("/paid/{customerID}", a.handlePaid)
		r.Get("/{paymentID}/timeline", a.handleTimeline)
	})

	return r
}

type paymentResponse struct {
	ID          string     `json:"id"`
	CustomerID  string     `json:"customer_id"`
	AccountID   string     `json:"account_id"`
	AmountMinor int64      `json:"amount_minor"`
	Currency    string     `json:"currency"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toPaymentResponse(p domain.Payment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		CustomerID:  p.CustomerID,
		AccountID:   p.AccountID,
		AmountMinor: p.AmountMinor,
		Currency:    p.Currency,
		Description: p.Description,
		Status:      string(p.Status),
		DueDate:     p.DueDate,
		PaidAt:      p.PaidAt,
		CreatedAt:   p.CreatedAt,
	}
}

type createPaymentRequest struct {
	CustomerID  string     `json:"customer_id"`
	AccountID   string     `json:"account_id"`
	AmountMinor int64      `json:"amount_minor"`
	Currency    string     `json:"currency"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

func (a *PaymentAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	raw, replayed := a.decodeIdempotent(w, r, &req)
	if replayed {
		return
	}
	if raw == nil {
		return
	}

	now := time.Now().UTC()
	payment := domain.Payment{
		ID:          uuid.NewString(),
		CustomerID:  req.CustomerID,
		AccountID:   req.AccountID,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Description: req.Description,
		Status:      domain.PaymentStatusUnpaid,
		DueDate:     req.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.AccountID == "" {
		a.finish(w, r, raw, http.StatusBadRequest, errorBody{Error: errorDetails{Code: "INVALID_REQUEST", Message: domain.ErrAccountRequired.Error()}})
		return
	}
	if errs := payment.ValidateInvariants(); len(errs) > 0 {
		a.finish(w, r, raw, http.StatusBadRequest, errorBody{Error: errorDetails{Code: "INVALID_REQUEST", Message: errs[0].Error()}})
		return
	}

	if err := a.payments.Create(payment); err != nil {
		a.logger.WithError(err).WithField("customer_id", req.CustomerID).Error("create payment failed")
		a.finish(w, r, raw, http.StatusInternalServerError, errorBody{Error: errorDetails{Code: "INTERNAL_ERROR", Message: "internal error"}})
		return
	}

	a.recordCreated(payment)

	a.logger.WithFields(log.Fields{
		"payment_id":   payment.ID,
		"customer_id":  payment.CustomerID,
		"amount_minor": payment.AmountMinor,
	}).Info("payment created")

	a.finish(w, r, raw, http.StatusCreated, toPaymentResponse(payment))
}

// recordCreated фиксирует создание требования в timeline и outbox.
func (a *PaymentAPI) recordCreated(payment domain.Payment) {
	if a.timeline != nil {
		event := domain.TimelineEvent{
			PaymentID: payment.ID,
			Type:      "PaymentCreated",
			Occurred:  payment.CreatedAt,
		}
		if err := a.timeline.Append(event); err != nil {
			a.logger.WithError(err).WithField("payment_id", payment.ID).Warn("append timeline event failed")
		}
	}

	if a.outbox != nil {
		payload, err := json.Marshal(map[string]any{
			"payment_id":   payment.ID,
			"customer_id":  payment.CustomerID,
			"amount_minor": payment.AmountMinor,
			"currency":     payment.Currency,
			"ts":           payment.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			a.logger.WithError(err).WithField("payment_id", payment.ID).Error("marshal payment.created failed")
			return
		}
		msg := domain.OutboxMessage{
			AggregateType: "payment",
			AggregateID:   payment.ID,
			EventType:     "PaymentCreated",
			Payload:       payload,
		}
		if _, err := a.outbox.Enqueue(msg); err != nil {
			a.logger.WithError(err).WithField("payment_id", payment.ID).Error("enqueue payment.created failed")
		}
	}
}

type makePaymentRequest struct {
	CustomerID string `json:"customer_id"`
	PaymentID  string `json:"payment_id"`
	AccountID  string `json:"account_id"`
}

type makePaymentResponse struct {
	TransactionID   string `json:"transaction_id"`
	PaymentID       string `json:"payment_id"`
	AmountMinor     int64  `json:"amount_minor"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
	NewBalanceMinor int64  `json:"new_balance_minor"`
}

func (a *PaymentAPI) handleMake(w http.ResponseWriter, r *http.Request) {
	var req makePaymentRequest
	raw, replayed := a.decodeIdempotent(w, r, &req)
	if replayed {
		return
	}
	if raw == nil {
		return
	}

	result, err := a.orchestrator.Settle(r.Context(), settlement.SettleRequest{
		CustomerID: req.CustomerID,
		PaymentID:  req.PaymentID,
	})
	if err != nil {
		a.finishError(w, r, raw, err)
		return
	}

	a.finish(w, r, raw, http.StatusOK, makePaymentResponse{
		TransactionID:   uuid.NewString(),
		PaymentID:       result.PaymentID,
		AmountMinor:     result.AmountMinor,
		Currency:        result.Currency,
		Status:          string(result.Status),
		NewBalanceMinor: result.BalanceAfterMinor,
	})
}

func (a *PaymentAPI) handleUnpaid(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	payment, err := a.payments.FindUnpaid(customerID)
	if err != nil {
		if errors.Is(err, domain.ErrNoUnpaidPayment) {
			writeError(w, http.StatusNotFound, "NO_UNPAID_PAYMENT", err.Error())
			return
		}
		a.logger.WithError(err).WithField("customer_id", customerID).Error("find unpaid failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

func (a *PaymentAPI) handlePaid(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	payments, err := a.payments.ListByStatus(customerID, domain.PaymentStatusPaid, 0)
	if err != nil {
		a.logger.WithError(err).WithField("customer_id", customerID).Error("list paid failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}

	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": out})
}

type timelineEventResponse struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred_at"`
}

func (a *PaymentAPI) handleTimeline(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")

	if _, err := a.payments.Get(paymentID); err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			writeError(w, http.StatusNotFound, "PAYMENT_NOT_FOUND", err.Error())
			return
		}
		a.logger.WithError(err).WithField("payment_id", paymentID).Error("get payment failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}

	events, err := a.timeline.List(paymentID)
	if err != nil {
		a.logger.WithError(err).WithField("payment_id", paymentID).Error("list timeline failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}

	out := make([]timelineEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, timelineEventResponse{Type: e.Type, Reason: e.Reason, Occurred: e.Occurred})
	}
	writeJSON(w, http.StatusOK, map[string]any{"payment_id": paymentID, "events": out})
}

// decodeIdempotent читает тело запроса и, если клиент прислал Idempotency-Key,
// регистрирует попытку обработки. Повторный запрос с тем же ключом и телом
// возвращает сохранённый ответ; тот же ключ с другим телом отклоняется.
// Возвращает (nil, false), если ответ уже записан.
func (a *PaymentAPI) decodeIdempotent(w http.ResponseWriter, r *http.Request, dst any) (*idempotentCall, bool) {
	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "failed to parse request body")
		return nil, false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "failed to parse request body")
		return nil, false
	}

	key := r.Header.Get(idempotencyHeader)
	if key == "" || a.idempotency == nil {
		return &idempotentCall{}, false
	}

	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])

	_, err := a.idempotency.CreateProcessing(key, hash, time.Now().UTC().Add(idempotencyRecordTTL))
	if err == nil {
		return &idempotentCall{key: key}, false
	}

	switch {
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		writeError(w, http.StatusConflict, "IDEMPOTENCY_MISMATCH", "idempotency key reused with different request")
		return nil, true
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		record, getErr := a.idempotency.Get(key)
		if getErr != nil {
			a.logger.WithError(getErr).WithField("idempotency_key", key).Error("load idempotency record failed")
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
			return nil, true
		}
		if record.Status == domain.IdempotencyStatusProcessing {
			writeError(w, http.StatusConflict, "REQUEST_IN_PROGRESS", "request with this idempotency key is being processed")
			return nil, true
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(record.HTTPStatus)
		w.Write(record.ResponseBody)
		return nil, true
	default:
		a.logger.WithError(err).WithField("idempotency_key", key).Error("register idempotency key failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return nil, true
	}
}

type idempotentCall struct {
	key string
}

// finish пишет ответ и фиксирует его в idempotency-записи, если ключ был задан.
func (a *PaymentAPI) finish(w http.ResponseWriter, _ *http.Request, call *idempotentCall, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		a.logger.WithError(err).Error("marshal response failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}

	if call.key != "" && a.idempotency != nil {
		mark := a.idempotency.MarkDone
		if status >= 400 {
			mark = a.idempotency.MarkFailed
		}
		if err := mark(call.key, body, status); err != nil {
			a.logger.WithError(err).WithField("idempotency_key", call.key).Warn("store idempotency response failed")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func (a *PaymentAPI) finishError(w http.ResponseWriter, r *http.Request, call *idempotentCall, err error) {
	status, code, message := settlementErrorStatus(err)
	if status >= 500 {
		a.logger.WithError(err).WithField("path", r.URL.Path).Error("settlement attempt failed")
	}
	a.finish(w, r, call, status, errorBody{Error: errorDetails{Code: code, Message: message}})
}
