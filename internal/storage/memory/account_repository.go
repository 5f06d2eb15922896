package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

// appliedDebit фиксирует уже применённое списание для идемпотентного повтора.
type appliedDebit struct {
	accountID         string
	amountMinor       int64
	balanceAfterMinor int64
	appliedAt         time.Time
}

// accountRepositoryInMemory — in-memory леджер счетов.
// Compare-and-debit выполняется под общим мьютексом хранилища, что даёт
// тот же эффект, что row-level exclusivity в PostgreSQL-реализации.
type accountRepositoryInMemory struct {
	mu      sync.RWMutex
	items   map[string]domain.Account
	applied map[string]appliedDebit
}

// NewAccountRepository возвращает in-memory реализацию AccountRepository.
func NewAccountRepository() domain.AccountRepository {
	return &accountRepositoryInMemory{
		items:   make(map[string]domain.Account),
		applied: make(map[string]appliedDebit),
	}
}

// Create сохраняет новый счёт, если ID ещё не занят.
func (r *accountRepositoryInMemory) Create(account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[account.ID]; exists {
		return domain.ErrAccountNotFound
	}
	r.items[account.ID] = account
	return nil
}

// Get возвращает счёт или ErrAccountNotFound.
func (r *accountRepositoryInMemory) Get(id string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.items[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account, nil
}

// GetByCustomer возвращает счёт по владельцу.
func (r *accountRepositoryInMemory) GetByCustomer(customerID string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.items {
		if account.CustomerID == customerID {
			return account, nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound
}

// Debit атомарно проверяет достаточность средств и применяет списание.
// Повтор idempotencyKey возвращает сохранённый результат без мутации баланса.
func (r *accountRepositoryInMemory) Debit(accountID string, amountMinor int64, idempotencyKey string) (domain.DebitResult, error) {
	if idempotencyKey == "" {
		return domain.DebitResult{}, domain.ErrIdempotencyKeyRequired
	}
	if amountMinor <= 0 {
		return domain.DebitResult{}, domain.ErrAmountInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.applied[idempotencyKey]; ok {
		return domain.DebitResult{BalanceAfterMinor: prev.balanceAfterMinor, Applied: false}, nil
	}

	account, ok := r.items[accountID]
	if !ok {
		return domain.DebitResult{}, domain.ErrAccountNotFound
	}
	if account.BalanceMinor < amountMinor {
		return domain.DebitResult{}, domain.ErrInsufficientFunds
	}

	account.BalanceMinor -= amountMinor
	account.UpdatedAt = time.Now().UTC()
	r.items[accountID] = account
	r.applied[idempotencyKey] = appliedDebit{
		accountID:         accountID,
		amountMinor:       amountMinor,
		balanceAfterMinor: account.BalanceMinor,
		appliedAt:         account.UpdatedAt,
	}

	return domain.DebitResult{BalanceAfterMinor: account.BalanceMinor, Applied: true}, nil
}

var _ domain.AccountRepository = (*accountRepositoryInMemory)(nil)
