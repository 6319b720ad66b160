// Package lending owns book availability: borrowing, returning, restocking
// and the read side over books and the borrow ledger. It is the only code
// that changes books.quantity.
package lending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"library_service/pkg/database"
	"library_service/pkg/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var forUpdate = clause.Locking{Strength: "UPDATE"}

type Service struct {
	db           *gorm.DB
	logger       *zap.Logger
	now          func() time.Time
	retryOptions []database.RetryOption
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithRetryOptions(options ...database.RetryOption) Option {
	return func(s *Service) { s.retryOptions = append(s.retryOptions, options...) }
}

func NewService(db *gorm.DB, logger *zap.Logger, options ...Option) *Service {
	s := &Service{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// inTx runs fn in a transaction, replaying it on lock and serialization
// failures. A conflicting insert on the open-loan index is replayed too: the
// next attempt finds the row and merges into it.
func (s *Service) inTx(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error {
	options := append([]database.RetryOption{
		database.WithRetryable(func(err error) bool {
			return database.IsTransient(err) || database.IsUniqueViolation(err)
		}),
	}, s.retryOptions...)

	err := database.Retry(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(fn)
	}, options...)
	if err == nil || IsBusinessError(err) {
		return err
	}

	s.logger.Error("transaction failed",
		zap.String("operation", operation),
		zap.Error(err))
	return fmt.Errorf("%w: %s", ErrStorageFailure, operation)
}

func (s *Service) requireUser(ctx context.Context, userID uint) error {
	if userID == 0 {
		return ErrUnauthorizedActor
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error
	if err != nil {
		s.logger.Error("failed to resolve actor", zap.Uint("user_id", userID), zap.Error(err))
		return fmt.Errorf("%w: resolve actor", ErrStorageFailure)
	}
	if count == 0 {
		return ErrUnauthorizedActor
	}
	return nil
}

func (s *Service) storageError(operation string, err error) error {
	s.logger.Error("query failed", zap.String("operation", operation), zap.Error(err))
	return fmt.Errorf("%w: %s", ErrStorageFailure, operation)
}

func lockBook(tx *gorm.DB, bookID uint) (models.Book, error) {
	var book models.Book
	err := tx.Clauses(forUpdate).First(&book, bookID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return book, &BookError{BookID: bookID, Err: ErrBookNotFound}
	}
	return book, err
}
