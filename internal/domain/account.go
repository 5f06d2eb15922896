package domain

import "time"

// Account описывает счёт клиента в леджере Account service.
// Баланс хранится в минимальных денежных единицах и никогда не опускается ниже нуля.
type Account struct {
	ID           string
	CustomerID   string
	BalanceMinor int64
	Currency     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DebitResult — результат атомарного compare-and-debit.
// Applied=false означает повтор по уже применённому idempotency-key:
// баланс не менялся, возвращается зафиксированный ранее результат.
type DebitResult struct {
	BalanceAfterMinor int64
	Applied           bool
}

// CanDebit проверяет достаточность средств без мутации.
// Сама мутация допустима только через атомарный Debit репозитория.
func (a *Account) CanDebit(amountMinor int64) bool {
	return amountMinor > 0 && a.BalanceMinor >= amountMinor
}

// ValidateInvariants проверяет базовые инварианты счёта.
func (a *Account) ValidateInvariants() []error {
	var errs []error

	if a.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if a.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if a.BalanceMinor < 0 {
		errs = append(errs, ErrBalanceNegative)
	}

	return errs
}
