package email

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

// SentMessage — письмо, зафиксированное mock-шлюзом.
type SentMessage struct {
	Recipient string
	Subject   string
	Body      string
}

// MockGateway — in-memory реализация EmailGateway для тестов и dev-режима.
type MockGateway struct {
	mu   sync.Mutex
	sent []SentMessage

	// SendErr подменяет результат Send для симуляции сбоя шлюза.
	SendErr error
}

// NewMockGateway создаёт пустой mock-шлюз.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Send фиксирует письмо в памяти.
func (m *MockGateway) Send(_ context.Context, recipient, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendErr != nil {
		return m.SendErr
	}
	m.sent = append(m.sent, SentMessage{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

// Sent возвращает копию всех зафиксированных писем.
func (m *MockGateway) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

var _ domain.EmailGateway = (*MockGateway)(nil)
