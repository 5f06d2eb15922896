package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
	"github.com/vladislavdragonenkov/ibanking/internal/messaging/kafka"
)

const handleTimeout = 15 * time.Second

// Worker рассылает письма по событиям расчёта из Kafka.
// Интересует только settlement.completed: профиль клиента подтягивается
// из Customer service, письмо уходит через почтовый шлюз.
type Worker struct {
	customers domain.CustomerGateway
	emails    domain.EmailGateway
	logger    *log.Entry
}

// NewWorker создаёт worker нотификаций.
func NewWorker(customers domain.CustomerGateway, emails domain.EmailGateway, logger *log.Entry) *Worker {
	if logger == nil {
		logger = log.WithField("component", "notify-worker")
	}
	return &Worker{customers: customers, emails: emails, logger: logger}
}

// HandleMessage — kafka.MessageHandler для топика событий расчёта.
// Ошибка возвращается только при недоступности Customer service:
// такие сообщения переигрываются consumer-ом и уходят в DLQ после
// исчерпания попыток. Остальные сбои логируются и не блокируют поток.
func (w *Worker) HandleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	event, err := kafka.ParseSettlementEvent(message)
	if err != nil {
		w.logger.WithError(err).WithField("offset", message.Offset).Warn("skipping malformed settlement event")
		return nil
	}

	if event.EventType != kafka.EventTypeSettlementCompleted {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	return w.notifyCompleted(ctx, event)
}

func (w *Worker) notifyCompleted(ctx context.Context, event *kafka.SettlementEvent) error {
	profile, err := w.customers.Profile(ctx, event.CustomerID)
	if err != nil {
		w.logger.WithError(err).WithFields(log.Fields{
			"customer_id": event.CustomerID,
			"payment_id":  event.PaymentID,
		}).Warn("failed to load customer profile")
		return fmt.Errorf("load profile for %s: %w", event.CustomerID, err)
	}

	subject := "Платёж выполнен"
	body := fmt.Sprintf(
		"Здравствуйте, %s!\n\nПлатёжное требование %s оплачено %s.\n",
		profile.FullName,
		event.PaymentID,
		event.Timestamp.Format("02.01.2006 15:04"),
	)

	if err := w.emails.Send(ctx, profile.Email, subject, body); err != nil {
		// Письмо — fire-and-forget: сбой шлюза не блокирует поток событий.
		w.logger.WithError(err).WithFields(log.Fields{
			"customer_id": event.CustomerID,
			"payment_id":  event.PaymentID,
			"recipient":   profile.Email,
		}).Warn("failed to send notification email")
		return nil
	}

	w.logger.WithFields(log.Fields{
		"customer_id": event.CustomerID,
		"payment_id":  event.PaymentID,
		"recipient":   profile.Email,
	}).Info("settlement notification sent")
	return nil
}
