package domain

import "time"

// PaymentStatus описывает жизненный цикл платёжного требования.
type PaymentStatus string

const (
	// PaymentStatusUnpaid — требование создано, списание ещё не выполнено.
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	// PaymentStatusPaid — средства списаны, требование закрыто.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusFailed — требование закрыто без оплаты (операторское решение).
	PaymentStatusFailed PaymentStatus = "failed"
)

// Payment агрегирует состояние платёжного требования.
// ID одновременно служит идемпотентным ключом списания на стороне Account service.
type Payment struct {
	ID          string
	CustomerID  string
	AccountID   string
	AmountMinor int64
	Currency    string
	Description string
	Status      PaymentStatus
	DueDate     *time.Time
	PaidAt      *time.Time
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Terminal сообщает, является ли статус конечным.
// Переходы из paid и failed запрещены.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransition проверяет допустимость перехода статуса.
// Допустим только unpaid → {paid, failed}; конечные статусы неизменяемы.
func (p *Payment) CanTransition(next PaymentStatus) bool {
	if !next.Valid() || p.Status.Terminal() {
		return false
	}
	return p.Status == PaymentStatusUnpaid && next.Terminal()
}

// ValidateInvariants проверяет базовые инварианты требования и возвращает список замечаний.
func (p *Payment) ValidateInvariants() []error {
	var errs []error

	if p.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if p.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if p.AmountMinor <= 0 {
		errs = append(errs, ErrAmountInvalid)
	}
	if !p.Status.Valid() {
		errs = append(errs, ErrPaymentStatusInvalid)
	}

	return errs
}
