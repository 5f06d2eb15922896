package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

type accountRepository struct {
	db *sql.DB
}

// NewAccountRepository создаёт PostgreSQL-реализацию AccountRepository.
func NewAccountRepository(store *Store) domain.AccountRepository {
	return &accountRepository{db: store.DB()}
}

func (r *accountRepository) Create(account domain.Account) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (
			id, customer_id, balance_minor, currency, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		account.ID, account.CustomerID, account.BalanceMinor,
		account.Currency, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAccountNotFound
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

func (r *accountRepository) Get(id string) (domain.Account, error) {
	return r.selectAccount(`WHERE id = $1`, id)
}

func (r *accountRepository) GetByCustomer(customerID string) (domain.Account, error) {
	return r.selectAccount(`WHERE customer_id = $1`, customerID)
}

func (r *accountRepository) selectAccount(where string, arg any) (domain.Account, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var account domain.Account
	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, balance_minor, currency, created_at, updated_at
		FROM accounts
	`+where, arg).Scan(
		&account.ID, &account.CustomerID, &account.BalanceMinor,
		&account.Currency, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("select account: %w", err)
	}

	return account, nil
}

// Debit выполняет compare-and-debit одной транзакцией:
// строка счёта блокируется через SELECT ... FOR UPDATE, проверка достаточности
// и мутация происходят под этой блокировкой, запись в debit_ledger делает
// повтор ключа безопасным для любого числа конкурентных процессов.
func (r *accountRepository) Debit(accountID string, amountMinor int64, idempotencyKey string) (domain.DebitResult, error) {
	if idempotencyKey == "" {
		return domain.DebitResult{}, domain.ErrIdempotencyKeyRequired
	}
	if amountMinor <= 0 {
		return domain.DebitResult{}, domain.ErrAmountInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.DebitResult{}, fmt.Errorf("begin debit tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Повтор ключа возвращает ранее зафиксированный результат.
	var replayBalance int64
	err = tx.QueryRowContext(ctx, `
		SELECT balance_after_minor FROM debit_ledger WHERE idempotency_key = $1
	`, idempotencyKey).Scan(&replayBalance)
	if err == nil {
		_ = tx.Rollback()
		return domain.DebitResult{BalanceAfterMinor: replayBalance, Applied: false}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.DebitResult{}, fmt.Errorf("check debit ledger: %w", err)
	}

	var balance int64
	err = tx.QueryRowContext(ctx, `
		SELECT balance_minor FROM accounts WHERE id = $1 FOR UPDATE
	`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrAccountNotFound
			return domain.DebitResult{}, err
		}
		return domain.DebitResult{}, fmt.Errorf("lock account row: %w", err)
	}

	if balance < amountMinor {
		err = domain.ErrInsufficientFunds
		return domain.DebitResult{}, err
	}

	balanceAfter := balance - amountMinor
	if _, err = tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance_minor = $1,
		    updated_at = $2
		WHERE id = $3
	`, balanceAfter, time.Now().UTC(), accountID); err != nil {
		return domain.DebitResult{}, fmt.Errorf("update account balance: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO debit_ledger (
			idempotency_key, account_id, amount_minor, balance_after_minor, applied_at
		) VALUES ($1,$2,$3,$4,NOW())
	`, idempotencyKey, accountID, amountMinor, balanceAfter); err != nil {
		return domain.DebitResult{}, fmt.Errorf("record debit: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.DebitResult{}, fmt.Errorf("commit debit: %w", err)
	}

	return domain.DebitResult{BalanceAfterMinor: balanceAfter, Applied: true}, nil
}

var _ domain.AccountRepository = (*accountRepository)(nil)
