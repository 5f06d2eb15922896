package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository создаёт PostgreSQL-реализацию PaymentRepository.
func NewPaymentRepository(store *Store) domain.PaymentRepository {
	return &paymentRepository{db: store.DB()}
}

const paymentColumns = `
	id, customer_id, account_id, amount_minor, currency, description,
	status, due_date, paid_at, version, created_at, updated_at
`

func (r *paymentRepository) Create(payment domain.Payment) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		payment.ID, payment.CustomerID, payment.AccountID, payment.AmountMinor,
		payment.Currency, payment.Description, string(payment.Status),
		payment.DueDate, payment.PaidAt, payment.Version, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPaymentVersionConflict
		}
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

func (r *paymentRepository) Get(id string) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE id = $1
	`, id)

	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("select payment: %w", err)
	}

	return payment, nil
}

// FindUnpaid выбирает одно unpaid-требование клиента.
// Порядок фиксирован индексом: раннее created_at, затем меньший id.
func (r *paymentRepository) FindUnpaid(customerID string) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE customer_id = $1
		  AND status = 'unpaid'
		ORDER BY created_at, id
		LIMIT 1
	`, customerID)

	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, domain.ErrNoUnpaidPayment
		}
		return domain.Payment{}, fmt.Errorf("select unpaid payment: %w", err)
	}

	return payment, nil
}

func (r *paymentRepository) ListByStatus(customerID string, status domain.PaymentStatus, limit int) ([]domain.Payment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE customer_id = $1
		  AND status = $2
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $3", customerID, string(status), limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, customerID, string(status))
	}
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}

	return payments, nil
}

func (r *paymentRepository) Save(payment domain.Payment) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	// Переходы из конечного статуса запрещены на уровне запроса:
	// обновляется либо unpaid-строка, либо строка без смены статуса.
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $1,
		    description = $2,
		    due_date = $3,
		    paid_at = $4,
		    version = version + 1,
		    updated_at = $5
		WHERE id = $6
		  AND version = $7
		  AND (status = 'unpaid' OR status = $1)
	`,
		string(payment.Status),
		payment.Description,
		payment.DueDate,
		payment.PaidAt,
		payment.UpdatedAt,
		payment.ID,
		payment.Version,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return r.classifySaveConflict(ctx, payment)
	}

	return nil
}

// classifySaveConflict различает not-found, конфликт версий и попытку
// изменить требование в конечном статусе.
func (r *paymentRepository) classifySaveConflict(ctx context.Context, payment domain.Payment) error {
	var (
		status  string
		version int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT status, version FROM payments WHERE id = $1
	`, payment.ID).Scan(&status, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrPaymentNotFound
		}
		return fmt.Errorf("check payment exists: %w", err)
	}

	if domain.PaymentStatus(status).Terminal() && domain.PaymentStatus(status) != payment.Status {
		return domain.ErrPaymentAlreadySettled
	}
	return domain.ErrPaymentVersionConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (domain.Payment, error) {
	var (
		payment domain.Payment
		status  string
		dueDate sql.NullTime
		paidAt  sql.NullTime
	)

	err := row.Scan(
		&payment.ID, &payment.CustomerID, &payment.AccountID, &payment.AmountMinor,
		&payment.Currency, &payment.Description, &status,
		&dueDate, &paidAt, &payment.Version, &payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		return domain.Payment{}, err
	}

	payment.Status = domain.PaymentStatus(status)
	if dueDate.Valid {
		t := dueDate.Time.UTC()
		payment.DueDate = &t
	}
	if paidAt.Valid {
		t := paidAt.Time.UTC()
		payment.PaidAt = &t
	}

	return payment, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
