package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
	"github.com/vladislavdragonenkov/ibanking/internal/storage/memory"
	"github.com/vladislavdragonenkov/ibanking/internal/storage/postgres"
)

// PaymentDependencies содержит хранилища Payment service.
// При пустом DSN собирается in-memory-набор; иначе — PostgreSQL
// с применением embedded-миграций на старте.
type PaymentDependencies struct {
	Payments    domain.PaymentRepository
	Outbox      domain.OutboxRepository
	Timeline    domain.TimelineRepository
	Idempotency domain.IdempotencyRepository
	Store       *postgres.Store
	Logger      *log.Entry
}

// NewPaymentDependencies создаёт зависимости Payment service.
func NewPaymentDependencies(ctx context.Context, dsn string, logger *log.Entry) (*PaymentDependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if dsn == "" {
		logger.Info("postgres dsn is empty, using in-memory storage")
		return &PaymentDependencies{
			Payments:    memory.NewPaymentRepository(),
			Outbox:      memory.NewOutboxRepository(),
			Timeline:    memory.NewTimelineRepository(),
			Idempotency: memory.NewIdempotencyRepository(),
			Logger:      logger,
		}, nil
	}

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("postgres storage initialized")

	return &PaymentDependencies{
		Payments:    postgres.NewPaymentRepository(store),
		Outbox:      postgres.NewOutboxRepository(store),
		Timeline:    postgres.NewTimelineRepository(store),
		Idempotency: postgres.NewIdempotencyRepository(store),
		Store:       store,
		Logger:      logger,
	}, nil
}

// Close освобождает ресурсы хранилища.
func (d *PaymentDependencies) Close() {
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}

// AccountDependencies содержит хранилище Account service.
type AccountDependencies struct {
	Accounts domain.AccountRepository
	Store    *postgres.Store
	Logger   *log.Entry
}

// NewAccountDependencies создаёт зависимости Account service.
// В in-memory-режиме создаётся демо-счёт, чтобы сервис был пригоден
// для ручной проверки сразу после запуска.
func NewAccountDependencies(ctx context.Context, dsn string, logger *log.Entry) (*AccountDependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if dsn == "" {
		logger.Info("postgres dsn is empty, using in-memory storage")
		repo := memory.NewAccountRepository()
		seedDevAccount(repo, logger)
		return &AccountDependencies{Accounts: repo, Logger: logger}, nil
	}

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("postgres storage initialized")

	return &AccountDependencies{
		Accounts: postgres.NewAccountRepository(store),
		Store:    store,
		Logger:   logger,
	}, nil
}

// Close освобождает ресурсы хранилища.
func (d *AccountDependencies) Close() {
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}

func seedDevAccount(repo domain.AccountRepository, logger *log.Entry) {
	now := time.Now().UTC()
	account := domain.Account{
		ID:           "acc-1",
		CustomerID:   "cust-1",
		BalanceMinor: 10000,
		Currency:     "RUB",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(account); err != nil {
		logger.WithError(err).Warn("failed to seed dev account")
		return
	}
	logger.WithFields(log.Fields{
		"account_id":    account.ID,
		"customer_id":   account.CustomerID,
		"balance_minor": account.BalanceMinor,
	}).Info("dev account seeded")
}
