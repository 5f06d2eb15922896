package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
	"github.com/vladislavdragonenkov/ibanking/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ibanking/internal/metrics"
	"github.com/vladislavdragonenkov/ibanking/internal/service/lockreg"
)

// SettleRequest описывает попытку расчёта по счёту клиента.
// PaymentID опционален: пустое значение означает "ближайшее unpaid-требование".
type SettleRequest struct {
	CustomerID string
	PaymentID  string
}

// SettleResult возвращается при успешном расчёте.
type SettleResult struct {
	PaymentID         string
	AmountMinor       int64
	Currency          string
	Status            domain.PaymentStatus
	BalanceAfterMinor int64
}

// Orchestrator управляет машиной состояний расчёта:
// lock → lookup → balance → debit → commit.
type Orchestrator interface {
	Settle(ctx context.Context, req SettleRequest) (SettleResult, error)
}

type orchestrator struct {
	payments      domain.PaymentRepository
	accounts      domain.AccountGateway
	locks         *lockreg.Registry
	outbox        domain.OutboxRepository
	timeline      domain.TimelineRepository
	logger        *log.Entry
	metrics       *metrics.SettlementMetrics
	kafkaProducer *kafka.Producer // опциональный Kafka producer для event-driven архитектуры
}

// NewOrchestrator создаёт рабочий экземпляр оркестратора.
func NewOrchestrator(
	payments domain.PaymentRepository,
	accounts domain.AccountGateway,
	locks *lockreg.Registry,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "settlement")
	}
	return &orchestrator{
		payments: payments,
		accounts: accounts,
		locks:    locks,
		outbox:   outbox,
		timeline: timeline,
		logger:   logger,
		metrics:  metrics.NewSettlementMetrics(),
	}
}

// NewOrchestratorWithKafka создаёт оркестратор с Kafka producer для event-driven архитектуры.
func NewOrchestratorWithKafka(
	payments domain.PaymentRepository,
	accounts domain.AccountGateway,
	locks *lockreg.Registry,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	kafkaProducer *kafka.Producer,
	logger *log.Entry,
) Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "settlement")
	}
	return &orchestrator{
		payments:      payments,
		accounts:      accounts,
		locks:         locks,
		outbox:        outbox,
		timeline:      timeline,
		logger:        logger,
		metrics:       metrics.NewSettlementMetrics(),
		kafkaProducer: kafkaProducer,
	}
}

// NewOrchestratorWithoutMetrics создаёт оркестратор без метрик (для тестов).
func NewOrchestratorWithoutMetrics(
	payments domain.PaymentRepository,
	accounts domain.AccountGateway,
	locks *lockreg.Registry,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "settlement")
	}
	return &orchestrator{
		payments: payments,
		accounts: accounts,
		locks:    locks,
		outbox:   outbox,
		timeline: timeline,
		logger:   logger,
	}
}

// Settle выполняет одну попытку расчёта.
// Любая ошибка до шага debit — rejection без побочных эффектов.
// Ошибка фиксации после успешного списания возвращается как ErrReconcileRequired
// и никогда не маскируется под success или rejection.
func (o *orchestrator) Settle(ctx context.Context, req SettleRequest) (SettleResult, error) {
	if req.CustomerID == "" {
		return SettleResult{}, domain.ErrCustomerRequired
	}

	start := time.Now()
	if o.metrics != nil {
		o.metrics.RecordSettlementStarted()
	}
	defer func() {
		if o.metrics != nil {
			o.metrics.RecordSettlementDuration(time.Since(start))
			o.metrics.RecordSettlementFinished()
		}
	}()

	lockStart := time.Now()
	handle, ok := o.locks.TryAcquire(req.CustomerID)
	o.recordStep(domain.SettlementStepLock, lockStart)
	if !ok {
		o.logger.WithField("customer_id", req.CustomerID).Debug("settlement already in progress")
		if o.metrics != nil {
			o.metrics.RecordLockBusy()
			o.metrics.RecordSettlementRejected("busy")
		}
		return SettleResult{}, domain.ErrSettlementInProgress
	}
	defer handle.Release()

	lookupStart := time.Now()
	payment, err := o.lookupPayment(req)
	o.recordStep(domain.SettlementStepLookup, lookupStart)
	if err != nil {
		o.logger.WithError(err).WithField("customer_id", req.CustomerID).Warn("payment lookup failed")
		o.recordRejection(err)
		return SettleResult{}, err
	}

	logger := o.logger.WithFields(log.Fields{
		"payment_id":  payment.ID,
		"customer_id": payment.CustomerID,
		"account_id":  payment.AccountID,
	})

	o.publishSettlementEvent(kafka.EventTypeSettlementStarted, &payment, map[string]interface{}{
		"amount_minor": payment.AmountMinor,
		"currency":     payment.Currency,
	})

	balanceStart := time.Now()
	balance, err := o.accounts.GetBalance(ctx, payment.AccountID)
	o.recordStep(domain.SettlementStepBalance, balanceStart)
	if err != nil {
		logger.WithError(err).Warn("balance check failed")
		o.rejectPayment(&payment, "BalanceCheckFailed", err)
		return SettleResult{}, err
	}

	if balance < payment.AmountMinor {
		logger.WithFields(log.Fields{
			"balance_minor": balance,
			"amount_minor":  payment.AmountMinor,
		}).Info("settlement rejected: insufficient funds")
		// Требование остаётся unpaid: после пополнения счёта попытку можно повторить.
		o.rejectPayment(&payment, "InsufficientFunds", domain.ErrInsufficientFunds)
		return SettleResult{}, domain.ErrInsufficientFunds
	}

	o.emitEvent(&payment, "BalanceChecked", map[string]interface{}{
		"balance_minor": balance,
		"amount_minor":  payment.AmountMinor,
		"ts":            time.Now().UTC().Format(time.RFC3339Nano),
	})

	debitStart := time.Now()
	// payment.ID служит идемпотентным ключом: повтор после сбоя не спишет дважды.
	debit, err := o.accounts.Debit(ctx, payment.AccountID, payment.AmountMinor, payment.ID)
	o.recordStep(domain.SettlementStepDebit, debitStart)
	if err != nil {
		logger.WithError(err).Warn("debit failed")
		o.rejectPayment(&payment, "DebitRejected", err)
		return SettleResult{}, err
	}

	commitStart := time.Now()
	err = o.markPaid(&payment)
	o.recordStep(domain.SettlementStepCommit, commitStart)
	if err != nil {
		// Списание в леджере уже применено, локальная фиксация не состоялась.
		// Состояние требует операторской сверки по идемпотентному ключу.
		logger.WithError(err).WithFields(log.Fields{
			"idempotency_key":     payment.ID,
			"balance_after_minor": debit.BalanceAfterMinor,
			"debit_applied":       debit.Applied,
		}).Error("settlement partial failure: debit applied but commit failed")
		if o.metrics != nil {
			o.metrics.RecordSettlementPartialFailure()
		}
		o.emitEvent(&payment, "SettlementPartialFailure", map[string]interface{}{
			"reason": err.Error(),
			"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		})
		o.publishSettlementEvent(kafka.EventTypeSettlementPartialFailure, &payment, map[string]interface{}{
			"reason":          err.Error(),
			"idempotency_key": payment.ID,
		})
		return SettleResult{}, fmt.Errorf("%w: %v", domain.ErrReconcileRequired, err)
	}

	logger.WithField("balance_after_minor", debit.BalanceAfterMinor).Info("settlement completed")
	if o.metrics != nil {
		o.metrics.RecordSettlementCompleted()
	}

	o.emitEvent(&payment, "PaymentPaid", map[string]interface{}{
		"amount_minor":        payment.AmountMinor,
		"balance_after_minor": debit.BalanceAfterMinor,
		"ts":                  time.Now().UTC().Format(time.RFC3339Nano),
	})
	o.publishSettlementEvent(kafka.EventTypeSettlementCompleted, &payment, map[string]interface{}{
		"amount_minor":        payment.AmountMinor,
		"balance_after_minor": debit.BalanceAfterMinor,
	})

	return SettleResult{
		PaymentID:         payment.ID,
		AmountMinor:       payment.AmountMinor,
		Currency:          payment.Currency,
		Status:            payment.Status,
		BalanceAfterMinor: debit.BalanceAfterMinor,
	}, nil
}

// lookupPayment находит требование для расчёта: либо явно указанное,
// либо ближайшее unpaid-требование клиента.
func (o *orchestrator) lookupPayment(req SettleRequest) (domain.Payment, error) {
	if req.PaymentID == "" {
		return o.payments.FindUnpaid(req.CustomerID)
	}

	payment, err := o.payments.Get(req.PaymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	if payment.CustomerID != req.CustomerID {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	if payment.Status.Terminal() {
		return domain.Payment{}, domain.ErrPaymentAlreadySettled
	}
	return payment, nil
}

// markPaid переводит требование в paid с retry на version conflict.
func (o *orchestrator) markPaid(payment *domain.Payment) error {
	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		now := time.Now().UTC()
		payment.Status = domain.PaymentStatusPaid
		payment.PaidAt = &now
		payment.UpdatedAt = now
		prevVersion := payment.Version

		err := o.payments.Save(*payment)
		if err == nil {
			payment.Version = prevVersion + 1
			return nil
		}

		if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
			o.logger.WithFields(log.Fields{
				"payment_id": payment.ID,
				"attempt":    attempt + 1,
				"version":    payment.Version,
			}).Warn("version conflict detected, retrying")

			fresh, loadErr := o.payments.Get(payment.ID)
			if loadErr != nil {
				return loadErr
			}
			if fresh.Status.Terminal() {
				// Кто-то уже зафиксировал конечный статус; paid означает, что
				// списание учтено, и повторная фиксация не нужна.
				if fresh.Status == domain.PaymentStatusPaid {
					*payment = fresh
					return nil
				}
				return domain.ErrPaymentAlreadySettled
			}
			*payment = fresh

			time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
			continue
		}

		return err
	}

	return domain.ErrPaymentVersionConflict
}

// rejectPayment фиксирует отклонение попытки: требование не меняется,
// в timeline и метрики попадает причина отказа.
func (o *orchestrator) rejectPayment(payment *domain.Payment, eventType string, rootErr error) {
	o.recordRejection(rootErr)
	o.emitEvent(payment, eventType, map[string]interface{}{
		"reason": rootErr.Error(),
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
	})
	o.publishSettlementEvent(kafka.EventTypeSettlementRejected, payment, map[string]interface{}{
		"reason": rootErr.Error(),
	})
}

func (o *orchestrator) recordRejection(err error) {
	if o.metrics == nil {
		return
	}
	switch {
	case domain.IsRejection(err):
		o.metrics.RecordSettlementRejected(rejectionReason(err))
	default:
		o.metrics.RecordSettlementFailed()
	}
}

func rejectionReason(err error) string {
	switch {
	case domain.IsBusy(err):
		return "busy"
	case domain.IsUnavailable(err):
		return "account_unavailable"
	case errors.Is(err, domain.ErrNoUnpaidPayment):
		return "no_unpaid_payment"
	case errors.Is(err, domain.ErrPaymentNotFound):
		return "payment_not_found"
	case errors.Is(err, domain.ErrPaymentAlreadySettled):
		return "already_settled"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrBalanceUpdateFailed):
		return "balance_update_failed"
	default:
		return "other"
	}
}

func (o *orchestrator) recordStep(step domain.SettlementStep, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordStepDuration(string(step), time.Since(start))
	}
}

func (o *orchestrator) emitEvent(payment *domain.Payment, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["payment_id"] = payment.ID
	data, err := json.Marshal(payload)
	if err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"payment_id": payment.ID,
			"event":      eventType,
		}).Error("marshal event failed")
		return
	}

	if o.outbox != nil {
		msg := domain.OutboxMessage{
			AggregateType: "payment",
			AggregateID:   payment.ID,
			EventType:     eventType,
			Payload:       data,
		}
		if _, err := o.outbox.Enqueue(msg); err != nil {
			o.logger.WithError(err).WithFields(log.Fields{
				"payment_id": payment.ID,
				"event":      eventType,
			}).Error("enqueue event failed")
		} else if o.metrics != nil {
			o.metrics.RecordOutboxEvent()
		}
	}

	if o.timeline != nil {
		var reason string
		if r, ok := payload["reason"].(string); ok {
			reason = r
		}
		occurred := time.Now().UTC()
		if ts, ok := payload["ts"].(string); ok {
			if parsed, parseErr := time.Parse(time.RFC3339Nano, ts); parseErr == nil {
				occurred = parsed
			}
		}
		event := domain.TimelineEvent{
			PaymentID: payment.ID,
			Type:      eventType,
			Reason:    reason,
			Occurred:  occurred,
		}
		if err := o.timeline.Append(event); err != nil {
			o.logger.WithError(err).WithFields(log.Fields{
				"payment_id": payment.ID,
				"event":      eventType,
			}).Warn("append timeline event failed")
		} else if o.metrics != nil {
			o.metrics.RecordTimelineEvent()
		}
	}
}

// publishSettlementEvent публикует событие расчёта в Kafka (если producer настроен)
func (o *orchestrator) publishSettlementEvent(eventType kafka.EventType, payment *domain.Payment, metadata map[string]interface{}) {
	if o.kafkaProducer == nil {
		return
	}

	event := kafka.NewSettlementEvent(eventType, payment.ID, payment.CustomerID, metadata)
	if err := o.kafkaProducer.PublishEvent(kafka.TopicSettlementEvents, payment.ID, event); err != nil {
		// Kafka опциональна: ошибка публикации не прерывает расчёт
		o.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"payment_id": payment.ID,
		}).Warn("failed to publish settlement event to kafka")
	}
}

var _ Orchestrator = (*orchestrator)(nil)
