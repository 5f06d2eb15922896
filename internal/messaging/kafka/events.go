package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// События расчёта
	EventTypeSettlementStarted        EventType = "settlement.started"
	EventTypeSettlementCompleted      EventType = "settlement.completed"
	EventTypeSettlementRejected       EventType = "settlement.rejected"
	EventTypeSettlementFailed         EventType = "settlement.failed"
	EventTypeSettlementPartialFailure EventType = "settlement.partial_failure"

	// События платёжного требования
	EventTypePaymentCreated EventType = "payment.created"
	EventTypePaymentPaid    EventType = "payment.paid"
	EventTypePaymentFailed  EventType = "payment.failed"
)

// Topics для Kafka
const (
	TopicSettlementEvents = "ibanking.settlement.events"
	TopicPaymentEvents    = "ibanking.payment.events"
	TopicDeadLetterQueue  = "ibanking.dlq"
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// SettlementEvent представляет событие попытки расчёта
type SettlementEvent struct {
	EventType  EventType              `json:"event_type"`
	PaymentID  string                 `json:"payment_id"`
	CustomerID string                 `json:"customer_id"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// PaymentEvent представляет событие платёжного требования
type PaymentEvent struct {
	EventType   EventType              `json:"event_type"`
	PaymentID   string                 `json:"payment_id"`
	CustomerID  string                 `json:"customer_id"`
	Status      string                 `json:"status"`
	AmountMinor int64                  `json:"amount_minor"`
	Timestamp   time.Time              `json:"timestamp"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewSettlementEvent создает новое событие расчёта
func NewSettlementEvent(eventType EventType, paymentID, customerID string, metadata map[string]interface{}) *SettlementEvent {
	return &SettlementEvent{
		EventType:  eventType,
		PaymentID:  paymentID,
		CustomerID: customerID,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}

// NewPaymentEvent создает новое событие платёжного требования
func NewPaymentEvent(eventType EventType, paymentID, customerID, status string, amountMinor int64, metadata map[string]interface{}) *PaymentEvent {
	return &PaymentEvent{
		EventType:   eventType,
		PaymentID:   paymentID,
		CustomerID:  customerID,
		Status:      status,
		AmountMinor: amountMinor,
		Timestamp:   time.Now(),
		Metadata:    metadata,
	}
}
