package lending

import (
	"context"
	"errors"
	"strings"
	"time"

	"library_service/pkg/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const DateLayout = "2006-01-02"

// Line is one entry of a borrow request as submitted by the client.
type Line struct {
	BookID  uint
	Amount  int
	DueDate string
}

type parsedLine struct {
	bookID  uint
	amount  int
	dueDate time.Time
}

type ReceiptLine struct {
	Loan      models.Loan
	Merged    bool
	Requested int
	Remaining int
}

type Receipt struct {
	Lines []ReceiptLine
}

// TotalAmount is the number of copies taken by the whole request.
func (r *Receipt) TotalAmount() int {
	total := 0
	for _, line := range r.Lines {
		total += line.Requested
	}
	return total
}

// Borrow applies every line for actorID in one transaction: the book row is
// locked, the open loan for (actor, book) is merged into or created, and the
// book's quantity is decremented. The first failing line aborts the batch
// and nothing is written.
func (s *Service) Borrow(ctx context.Context, actorID uint, lines []Line) (*Receipt, error) {
	if err := s.requireUser(ctx, actorID); err != nil {
		return nil, err
	}

	parsed, err := parseLines(lines)
	if err != nil {
		return nil, err
	}

	var receipt *Receipt
	err = s.inTx(ctx, "borrow", func(tx *gorm.DB) error {
		r := &Receipt{Lines: make([]ReceiptLine, 0, len(parsed))}
		for i, line := range parsed {
			entry, err := borrowLine(tx, actorID, i+1, line)
			if err != nil {
				return err
			}
			r.Lines = append(r.Lines, entry)
		}
		receipt = r
		return nil
	})
	if err != nil {
		s.logger.Info("borrow rejected",
			zap.Uint("user_id", actorID),
			zap.Int("lines", len(lines)),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("books borrowed",
		zap.Uint("user_id", actorID),
		zap.Int("lines", len(receipt.Lines)),
		zap.Int("copies", receipt.TotalAmount()))
	return receipt, nil
}

func parseLines(lines []Line) ([]parsedLine, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyRequest
	}

	parsed := make([]parsedLine, len(lines))
	for i, line := range lines {
		n := i + 1
		if line.BookID == 0 {
			return nil, &BookError{Line: n, Reason: "book id is required", Err: ErrInvalidLine}
		}
		if line.Amount <= 0 {
			return nil, &BookError{Line: n, BookID: line.BookID, Reason: "amount must be a positive integer", Err: ErrInvalidLine}
		}
		dueDate, err := time.Parse(DateLayout, strings.TrimSpace(line.DueDate))
		if err != nil {
			return nil, &BookError{Line: n, BookID: line.BookID, Reason: "due date must use the YYYY-MM-DD format", Err: ErrInvalidLine}
		}
		parsed[i] = parsedLine{bookID: line.BookID, amount: line.Amount, dueDate: dueDate}
	}
	return parsed, nil
}

func borrowLine(tx *gorm.DB, actorID uint, n int, line parsedLine) (ReceiptLine, error) {
	book, err := lockBook(tx, line.bookID)
	if err != nil {
		var bookErr *BookError
		if errors.As(err, &bookErr) {
			bookErr.Line = n
		}
		return ReceiptLine{}, err
	}
	if book.Status == models.StatusArchived {
		return ReceiptLine{}, &BookError{Line: n, BookID: book.ID, BookName: book.Name, Err: ErrBookArchived}
	}
	insufficient := &BookError{
		Line:      n,
		BookID:    book.ID,
		BookName:  book.Name,
		Requested: line.amount,
		Available: book.Quantity,
		Err:       ErrInsufficientQuantity,
	}
	if book.Quantity < line.amount {
		return ReceiptLine{}, insufficient
	}

	entry := ReceiptLine{Requested: line.amount}
	var loan models.Loan
	err = tx.Clauses(forUpdate).
		Where("user_id = ? AND book_id = ? AND status = ?", actorID, book.ID, models.LoanBorrowed).
		First(&loan).Error
	switch {
	case err == nil:
		loan.Amount += line.amount
		if line.dueDate.After(loan.DueDate) {
			loan.DueDate = line.dueDate
		}
		err = tx.Model(&loan).Updates(map[string]interface{}{
			"amount":   loan.Amount,
			"due_date": loan.DueDate,
		}).Error
		if err != nil {
			return ReceiptLine{}, err
		}
		entry.Merged = true
	case errors.Is(err, gorm.ErrRecordNotFound):
		loan = models.Loan{
			UserID:  actorID,
			BookID:  book.ID,
			Amount:  line.amount,
			DueDate: line.dueDate,
			Status:  models.LoanBorrowed,
		}
		if err := tx.Create(&loan).Error; err != nil {
			return ReceiptLine{}, err
		}
	default:
		return ReceiptLine{}, err
	}

	res := tx.Model(&models.Book{}).
		Where("id = ? AND quantity >= ?", book.ID, line.amount).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", line.amount))
	if res.Error != nil {
		return ReceiptLine{}, res.Error
	}
	if res.RowsAffected == 0 {
		return ReceiptLine{}, insufficient
	}

	loan.BookName = book.Name
	entry.Loan = loan
	entry.Remaining = book.Quantity - line.amount
	return entry, nil
}
