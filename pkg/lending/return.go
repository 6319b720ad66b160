package lending

import (
	"context"
	"errors"

	"library_service/pkg/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Return closes the loan and credits its amount back to the book.
func (s *Service) Return(ctx context.Context, loanID uint) (*models.Loan, error) {
	return s.returnLoan(ctx, loanID, 0)
}

// ReturnOwned is Return restricted to loans of actorID; anybody else's loan
// is reported as not found.
func (s *Service) ReturnOwned(ctx context.Context, actorID, loanID uint) (*models.Loan, error) {
	if actorID == 0 {
		return nil, ErrUnauthorizedActor
	}
	return s.returnLoan(ctx, loanID, actorID)
}

func (s *Service) returnLoan(ctx context.Context, loanID, ownerID uint) (*models.Loan, error) {
	var (
		returned models.Loan
		restored bool
	)
	err := s.inTx(ctx, "return", func(tx *gorm.DB) error {
		var loan models.Loan
		err := tx.Clauses(forUpdate).First(&loan, loanID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &LoanError{LoanID: loanID, Err: ErrLoanNotFound}
		}
		if err != nil {
			return err
		}
		if ownerID != 0 && loan.UserID != ownerID {
			return &LoanError{LoanID: loanID, Err: ErrLoanNotFound}
		}
		if loan.Status == models.LoanReturned {
			return &LoanError{LoanID: loanID, Err: ErrAlreadyReturned}
		}

		now := s.now()
		err = tx.Model(&loan).Updates(map[string]interface{}{
			"status":      models.LoanReturned,
			"returned_at": now,
		}).Error
		if err != nil {
			return err
		}
		loan.Status = models.LoanReturned
		loan.ReturnedAt = &now

		// A deleted book only skips the credit; the loan still closes.
		res := tx.Model(&models.Book{}).
			Where("id = ?", loan.BookID).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", loan.Amount))
		if res.Error != nil {
			return res.Error
		}
		restored = res.RowsAffected > 0

		returned = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !restored {
		s.logger.Warn("loan returned for a deleted book, quantity not restored",
			zap.Uint("loan_id", returned.ID),
			zap.Uint("book_id", returned.BookID),
			zap.Int("amount", returned.Amount))
	} else {
		s.logger.Info("loan returned",
			zap.Uint("loan_id", returned.ID),
			zap.Uint("user_id", returned.UserID),
			zap.Uint("book_id", returned.BookID),
			zap.Int("amount", returned.Amount))
	}
	return &returned, nil
}
