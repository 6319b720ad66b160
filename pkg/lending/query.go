package lending

import (
	"context"
	"strconv"
	"strings"

	"library_service/pkg/models"

	"gorm.io/gorm"
)

type LoanFilter struct {
	Status string
	Search string
	UserID uint
}

// ListActiveBooks returns the borrow-eligible catalog, newest first.
func (s *Service) ListActiveBooks(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusActive).
		Order("created_at DESC").
		Order("id DESC").
		Find(&books).Error
	if err != nil {
		return nil, s.storageError("list active books", err)
	}
	return books, nil
}

// ListLoans returns the loans of actorID. Status and Search are exact
// matches; Search is compared against the loan id. filter.UserID is ignored.
func (s *Service) ListLoans(ctx context.Context, actorID uint, filter LoanFilter) ([]models.Loan, error) {
	if err := s.requireUser(ctx, actorID); err != nil {
		return nil, err
	}
	filter.UserID = actorID
	return s.findLoans(ctx, filter)
}

// ListAllLoans is the cross-user listing used by administrators.
func (s *Service) ListAllLoans(ctx context.Context, filter LoanFilter) ([]models.Loan, error) {
	return s.findLoans(ctx, filter)
}

func (s *Service) findLoans(ctx context.Context, filter LoanFilter) ([]models.Loan, error) {
	query := s.db.WithContext(ctx).Model(&models.Loan{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		loanID, err := strconv.ParseUint(search, 10, 64)
		if err != nil {
			return []models.Loan{}, nil
		}
		query = query.Where("id = ?", loanID)
	}

	loans := []models.Loan{}
	if err := query.Order("created_at DESC").Order("id DESC").Find(&loans).Error; err != nil {
		return nil, s.storageError("list loans", err)
	}
	if err := attachBookNames(s.db.WithContext(ctx), loans); err != nil {
		return nil, s.storageError("load loan books", err)
	}
	return loans, nil
}

func attachBookNames(db *gorm.DB, loans []models.Loan) error {
	if len(loans) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(loans))
	seen := make(map[uint]bool, len(loans))
	for _, loan := range loans {
		if !seen[loan.BookID] {
			seen[loan.BookID] = true
			ids = append(ids, loan.BookID)
		}
	}

	var books []models.Book
	if err := db.Select("id", "name").Where("id IN ?", ids).Find(&books).Error; err != nil {
		return err
	}
	names := make(map[uint]string, len(books))
	for _, book := range books {
		names[book.ID] = book.Name
	}
	for i := range loans {
		loans[i].BookName = names[loans[i].BookID]
	}
	return nil
}
