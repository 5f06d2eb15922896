package domain

import "time"

// TimelineEvent описывает событие в истории транзакции платёжного требования.
// История append-only: события никогда не изменяются и не удаляются.
type TimelineEvent struct {
	PaymentID string
	Type      string
	Reason    string
	Occurred  time.Time
}
