package account

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

// MockGateway — конфигурируемая заглушка AccountGateway для тестов.
type MockGateway struct {
	mu sync.Mutex

	BalanceMinor int64
	BalanceErr   error
	DebitErr     error

	BalanceCalls int
	DebitCalls   int

	applied map[string]int64
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway(balanceMinor int64) *MockGateway {
	return &MockGateway{
		BalanceMinor: balanceMinor,
		applied:      make(map[string]int64),
	}
}

// GetBalance возвращает настроенный баланс и считает вызовы.
func (m *MockGateway) GetBalance(_ context.Context, _ string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.BalanceCalls++
	if m.BalanceErr != nil {
		return 0, m.BalanceErr
	}
	return m.BalanceMinor, nil
}

// Debit имитирует идемпотентное списание поверх настроенного баланса.
func (m *MockGateway) Debit(_ context.Context, _ string, amountMinor int64, idempotencyKey string) (domain.DebitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DebitCalls++
	if m.DebitErr != nil {
		return domain.DebitResult{}, m.DebitErr
	}
	if after, ok := m.applied[idempotencyKey]; ok {
		return domain.DebitResult{BalanceAfterMinor: after, Applied: false}, nil
	}
	if m.BalanceMinor < amountMinor {
		return domain.DebitResult{}, domain.ErrInsufficientFunds
	}
	m.BalanceMinor -= amountMinor
	m.applied[idempotencyKey] = m.BalanceMinor
	return domain.DebitResult{BalanceAfterMinor: m.BalanceMinor, Applied: true}, nil
}

var _ domain.AccountGateway = (*MockGateway)(nil)
