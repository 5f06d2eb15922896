package customer

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

// MockGateway — in-memory реализация CustomerGateway для тестов и dev-режима.
type MockGateway struct {
	mu       sync.Mutex
	profiles map[string]domain.CustomerProfile

	// ProfileErr подменяет результат Profile для симуляции недоступности.
	ProfileErr error

	ProfileCalls int
}

// NewMockGateway создаёт mock с заданными профилями.
func NewMockGateway(profiles ...domain.CustomerProfile) *MockGateway {
	m := &MockGateway{profiles: make(map[string]domain.CustomerProfile)}
	for _, p := range profiles {
		m.profiles[p.CustomerID] = p
	}
	return m
}

// Profile возвращает профиль клиента из памяти.
func (m *MockGateway) Profile(_ context.Context, customerID string) (domain.CustomerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ProfileCalls++
	if m.ProfileErr != nil {
		return domain.CustomerProfile{}, m.ProfileErr
	}
	profile, ok := m.profiles[customerID]
	if !ok {
		return domain.CustomerProfile{}, domain.ErrCustomerNotFound
	}
	return profile, nil
}

var _ domain.CustomerGateway = (*MockGateway)(nil)
