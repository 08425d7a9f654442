package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// PostgresRepository implements AccountRepository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the accounts table if missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			display_name  TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL DEFAULT 'analyst',
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create accounts schema: %w", err)
	}
	return nil
}

// Create inserts a new account into the database.
func (r *PostgresRepository) Create(ctx context.Context, account *Account) error {
	account.ID = uuid.New().String()

	query := `
		INSERT INTO accounts (id, email, display_name, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		account.ID,
		account.Email,
		account.DisplayName,
		account.Role,
		account.PasswordHash,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail retrieves an account by its email address.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.getBy(ctx, "email", email)
}

func (r *PostgresRepository) getBy(ctx context.Context, column, value string) (*Account, error) {
	query := fmt.Sprintf(`
		SELECT id, email, display_name, role, password_hash, created_at, updated_at
		FROM accounts
		WHERE %s = $1
	`, column)

	account := &Account{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&account.Role,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by %s: %w", column, err)
	}

	return account, nil
}

// MemoryRepository is an in-process AccountRepository for running
// without a database.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*Account
	byEmail map[string]*Account
}

// NewMemoryRepository creates an empty in-process repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]*Account),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, account *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[account.Email]; exists {
		return ErrAccountExists
	}

	account.ID = uuid.New().String()
	copied := *account
	r.byID[account.ID] = &copied
	r.byEmail[account.Email] = &copied
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byEmail[email]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}
