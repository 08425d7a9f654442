package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)
	now := time.Now()

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(sqlmock.AnyArg(), "a@b.com", "Analyst One", RoleAnalyst, "hashed", now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	account := &Account{
		Email:        "a@b.com",
		DisplayName:  "Analyst One",
		Role:         RoleAnalyst,
		PasswordHash: "hashed",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(context.Background(), account); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.ID == "" {
		t.Error("Create must assign an ID")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRepository_GetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "display_name", "role", "password_hash", "created_at", "updated_at"}).
			AddRow("id-1", "a@b.com", "Analyst One", RoleAnalyst, "hashed", now, now))

	account, err := repo.GetByEmail(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.ID != "id-1" || account.Role != RoleAnalyst {
		t.Errorf("unexpected account: %+v", account)
	}
}

func TestPostgresRepository_GetByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WithArgs("nobody@b.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "display_name", "role", "password_hash", "created_at", "updated_at"}))

	if _, err := repo.GetByEmail(context.Background(), "nobody@b.com"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	account := &Account{Email: "a@b.com", Role: RoleAnalyst, PasswordHash: "hashed"}
	if err := repo.Create(ctx, account); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byEmail, err := repo.GetByEmail(ctx, "a@b.com")
	if err != nil || byEmail.ID != account.ID {
		t.Fatalf("lookup by email failed: %v %+v", err, byEmail)
	}

	byID, err := repo.GetByID(ctx, account.ID)
	if err != nil || byID.Email != "a@b.com" {
		t.Fatalf("lookup by ID failed: %v %+v", err, byID)
	}

	if err := repo.Create(ctx, &Account{Email: "a@b.com"}); !errors.Is(err, ErrAccountExists) {
		t.Errorf("expected ErrAccountExists, got %v", err)
	}
}
