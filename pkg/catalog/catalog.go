// Package catalog administers book records. Quantity is only set on
// creation; later changes go through lending.Service.Restock.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"library_service/pkg/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrMissingFields   = errors.New("name, author and category are required")
	ErrInvalidQuantity = errors.New("quantity must not be negative")
	ErrBookNotFound    = errors.New("book not found")
)

type BookInput struct {
	Name     string
	Author   string
	Category string
	Quantity int
}

func (in *BookInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Author = strings.TrimSpace(in.Author)
	in.Category = strings.TrimSpace(in.Category)
}

type Filter struct {
	Search   string
	Status   string
	Category string
}

type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

func (s *Service) AddBook(ctx context.Context, in BookInput) (*models.Book, error) {
	in.trim()
	if in.Name == "" || in.Author == "" || in.Category == "" {
		return nil, ErrMissingFields
	}
	if in.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	book := models.Book{
		Name:     in.Name,
		Author:   in.Author,
		Category: in.Category,
		Quantity: in.Quantity,
		Status:   models.StatusActive,
	}
	if err := s.db.WithContext(ctx).Create(&book).Error; err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.logger.Info("book added",
		zap.Uint("book_id", book.ID),
		zap.String("name", book.Name),
		zap.Int("quantity", book.Quantity))
	return &book, nil
}

func (s *Service) GetBook(ctx context.Context, id uint) (*models.Book, error) {
	return findBook(s.db.WithContext(ctx), id)
}

func findBook(db *gorm.DB, id uint) (*models.Book, error) {
	var book models.Book
	err := db.First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find book: %w", err)
	}
	return &book, nil
}

// UpdateBook changes name, author and category. Blank fields keep their
// current value; quantity is ignored.
func (s *Service) UpdateBook(ctx context.Context, id uint, in BookInput) (*models.Book, error) {
	in.trim()

	var book *models.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		book, err = findBook(tx, id)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.Name != "" {
			updates["name"] = in.Name
		}
		if in.Author != "" {
			updates["author"] = in.Author
		}
		if in.Category != "" {
			updates["category"] = in.Category
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(book).Updates(updates).Error; err != nil {
			return fmt.Errorf("update book: %w", err)
		}
		book, err = findBook(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book updated", zap.Uint("book_id", book.ID))
	return book, nil
}

// ToggleArchive flips a book between active and archived. Archived books
// stay returnable but cannot be borrowed.
func (s *Service) ToggleArchive(ctx context.Context, id uint) (*models.Book, error) {
	var book *models.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		book, err = findBook(tx, id)
		if err != nil {
			return err
		}
		status := models.StatusArchived
		if book.Status == models.StatusArchived {
			status = models.StatusActive
		}
		if err := tx.Model(book).Update("status", status).Error; err != nil {
			return fmt.Errorf("update book status: %w", err)
		}
		book.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book status changed", zap.Uint("book_id", book.ID), zap.String("status", book.Status))
	return book, nil
}

// DeleteBook removes the record. Loans keep the book id; returning them
// later closes the loan without restoring stock.
func (s *Service) DeleteBook(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)
	if _, err := findBook(db, id); err != nil {
		return err
	}

	var open int64
	err := db.Model(&models.Loan{}).
		Where("book_id = ? AND status = ?", id, models.LoanBorrowed).
		Count(&open).Error
	if err != nil {
		return fmt.Errorf("count open loans: %w", err)
	}

	if err := db.Delete(&models.Book{}, id).Error; err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if open > 0 {
		s.logger.Warn("book deleted with open loans", zap.Uint("book_id", id), zap.Int64("open_loans", open))
	} else {
		s.logger.Info("book deleted", zap.Uint("book_id", id))
	}
	return nil
}

// Search matches name, author or category case-insensitively, newest first.
func (s *Service) Search(ctx context.Context, filter Filter) ([]models.Book, error) {
	query := s.db.WithContext(ctx).Model(&models.Book{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(author) LIKE ? OR LOWER(category) LIKE ?", like, like, like)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	books := make([]models.Book, 0)
	if err := query.Order("created_at DESC").Order("id DESC").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return books, nil
}
