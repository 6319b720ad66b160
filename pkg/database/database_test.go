package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"library_service/pkg/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInMemoryMigratesSchema(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)

	for _, table := range []string{"users", "books", "borrowed_books", "auth_sessions", "pending_registrations"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Loan{}, "idx_loans_open"))
	assert.NoError(t, Ping(db))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "plain error", err: errors.New("boom"), expected: false},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, expected: true},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, expected: true},
		{name: "lock not available", err: fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "55P03"}), expected: true},
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}, expected: false},
		{name: "sqlite busy", err: sqlite3.Error{Code: sqlite3.ErrBusy}, expected: true},
		{name: "sqlite locked", err: sqlite3.Error{Code: sqlite3.ErrLocked}, expected: true},
		{name: "sqlite constraint", err: sqlite3.Error{Code: sqlite3.ErrConstraint}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTransient(tt.err))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}))
	assert.False(t, IsUniqueViolation(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintCheck}))
	assert.False(t, IsUniqueViolation(errors.New("duplicate")))
}

func TestIsUniqueViolationFromDatabase(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)

	user := models.User{FirstName: "A", LastName: "B", Email: "a@example.com", UserName: "ab", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	dup := models.User{FirstName: "C", LastName: "D", Email: "a@example.com", UserName: "cd", PasswordHash: "x"}
	err = db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	}, WithBaseDelay(time.Millisecond))

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryFailsFastOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	err := Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return permanent
	}, WithBaseDelay(time.Millisecond))

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return sqlite3.Error{Code: sqlite3.ErrBusy}
	}, WithMaxAttempts(4), WithBaseDelay(time.Millisecond))

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 4, calls)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return &pgconn.PgError{Code: "40P01"}
	}, WithBaseDelay(time.Second))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryCustomPredicate(t *testing.T) {
	retryMe := errors.New("retry me")
	calls := 0
	err := Retry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return retryMe
		}
		return nil
	}, WithBaseDelay(0), WithRetryable(func(err error) bool { return errors.Is(err, retryMe) }))

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}
