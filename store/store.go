package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/ibogihq/payments-service/models"
)

// ErrDuplicateReference is returned by Insert when a payment with the same
// transaction_ref already exists. The unique constraint is the final
// idempotency backstop for racing verification triggers.
var ErrDuplicateReference = errors.New("duplicate transaction reference")

// PaymentStore is a durable, append-only record of verified payments
// keyed by transaction reference.
type PaymentStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at dbPath
func Open(dbPath string) (*PaymentStore, error) {
	// busy_timeout keeps concurrent writers waiting on the lock instead
	// of failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &PaymentStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// migrate creates the payments table
func (s *PaymentStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS payments (
			id TEXT PRIMARY KEY,
			amount INTEGER NOT NULL,
			email TEXT NOT NULL,
			transaction_ref TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *PaymentStore) Close() error {
	return s.db.Close()
}

// Insert persists a verified payment. The caller may leave ID and the
// timestamps zero; they are filled in here.
func (s *PaymentStore) Insert(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, amount, email, transaction_ref, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Amount, p.Email, p.TransactionRef, p.Status, p.CreatedAt, p.UpdatedAt)

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return ErrDuplicateReference
	}
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// FindByReference looks up a payment by transaction reference. A missing
// row is not an error: it returns (nil, nil).
func (s *PaymentStore) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, amount, email, transaction_ref, status, created_at, updated_at
		FROM payments WHERE transaction_ref = ?
	`, reference)

	var p models.Payment
	err := row.Scan(&p.ID, &p.Amount, &p.Email, &p.TransactionRef, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find payment %s: %w", reference, err)
	}
	return &p, nil
}

// ListAll returns every persisted payment, oldest first
func (s *PaymentStore) ListAll(ctx context.Context) ([]models.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, email, transaction_ref, status, created_at, updated_at
		FROM payments ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.Amount, &p.Email, &p.TransactionRef, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
