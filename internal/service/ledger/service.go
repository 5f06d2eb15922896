package ledger

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

// Service — бизнес-слой Account service поверх хранилища счетов.
// Вся атомарность compare-and-debit живёт в репозитории; сервис отвечает
// за валидацию входа и согласованное логирование операций.
type Service struct {
	accounts domain.AccountRepository
	logger   *log.Entry
}

// NewService создаёт сервис леджера.
func NewService(accounts domain.AccountRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "ledger")
	}
	return &Service{accounts: accounts, logger: logger}
}

// Account возвращает счёт по идентификатору.
func (s *Service) Account(id string) (domain.Account, error) {
	if id == "" {
		return domain.Account{}, domain.ErrAccountRequired
	}
	return s.accounts.Get(id)
}

// AccountByCustomer возвращает счёт владельца.
func (s *Service) AccountByCustomer(customerID string) (domain.Account, error) {
	if customerID == "" {
		return domain.Account{}, domain.ErrCustomerRequired
	}
	return s.accounts.GetByCustomer(customerID)
}

// Debit выполняет идемпотентное списание со счёта.
func (s *Service) Debit(accountID string, amountMinor int64, idempotencyKey string) (domain.DebitResult, error) {
	if accountID == "" {
		return domain.DebitResult{}, domain.ErrAccountRequired
	}
	if amountMinor <= 0 {
		return domain.DebitResult{}, domain.ErrAmountInvalid
	}
	if idempotencyKey == "" {
		return domain.DebitResult{}, domain.ErrIdempotencyKeyRequired
	}

	res, err := s.accounts.Debit(accountID, amountMinor, idempotencyKey)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"account_id":      accountID,
			"amount_minor":    amountMinor,
			"idempotency_key": idempotencyKey,
		}).Warn("debit rejected")
		return domain.DebitResult{}, err
	}

	s.logger.WithFields(log.Fields{
		"account_id":          accountID,
		"amount_minor":        amountMinor,
		"idempotency_key":     idempotencyKey,
		"balance_after_minor": res.BalanceAfterMinor,
		"applied":             res.Applied,
	}).Info("debit processed")

	return res, nil
}
