package lending

import (
	"context"

	"library_service/pkg/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Restock adds delta copies to a book; a negative delta withdraws copies
// but never below zero. Runs under the same row lock as Borrow.
func (s *Service) Restock(ctx context.Context, bookID uint, delta int) (*models.Book, error) {
	if delta == 0 {
		return nil, &BookError{BookID: bookID, Reason: "restock amount must not be zero", Err: ErrInvalidLine}
	}

	var updated models.Book
	err := s.inTx(ctx, "restock", func(tx *gorm.DB) error {
		book, err := lockBook(tx, bookID)
		if err != nil {
			return err
		}
		if book.Quantity+delta < 0 {
			return &BookError{
				BookID:    book.ID,
				BookName:  book.Name,
				Requested: -delta,
				Available: book.Quantity,
				Err:       ErrInsufficientQuantity,
			}
		}
		err = tx.Model(&book).UpdateColumn("quantity", gorm.Expr("quantity + ?", delta)).Error
		if err != nil {
			return err
		}
		book.Quantity += delta
		updated = book
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book restocked",
		zap.Uint("book_id", updated.ID),
		zap.Int("delta", delta),
		zap.Int("quantity", updated.Quantity))
	return &updated, nil
}
