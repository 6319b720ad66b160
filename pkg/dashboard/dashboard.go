// Package dashboard computes the admin overview figures.
package dashboard

import (
	"context"
	"fmt"

	"library_service/pkg/models"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"gorm.io/gorm"
)

const (
	recentLimit   = 5
	categoryLimit = 5
)

type CategoryStat struct {
	Category      string `json:"category"`
	Count         int64  `json:"count"`
	TotalQuantity int64  `json:"totalQuantity"`
}

type Stats struct {
	TotalUsers      int64
	TotalBooks      int64
	TotalBookCopies int64
	ArchivedBooks   int64
	BorrowedBooks   int64
	BooksByCategory []CategoryStat
	RecentBooks     []models.Book
	RecentUsers     []models.User
}

type bookTotals struct {
	TotalBooks      int64
	TotalBookCopies int64
	ArchivedBooks   int64
}

// dialect maps the gorm driver to the goqu dialect that quotes its
// identifiers.
func dialect(db *gorm.DB) goqu.DialectWrapper {
	if db.Dialector.Name() == "sqlite" {
		return goqu.Dialect("sqlite3")
	}
	return goqu.Dialect("postgres")
}

func bookTotalsQuery(d goqu.DialectWrapper) (string, error) {
	active := goqu.C("status").Eq(models.StatusActive)
	archived := goqu.C("status").Eq(models.StatusArchived)

	sql, _, err := d.From("books").Select(
		goqu.COALESCE(goqu.SUM(goqu.Case().When(active, 1).Else(0)), 0).As("total_books"),
		goqu.COALESCE(goqu.SUM(goqu.Case().When(active, goqu.C("quantity")).Else(0)), 0).As("total_book_copies"),
		goqu.COALESCE(goqu.SUM(goqu.Case().When(archived, 1).Else(0)), 0).As("archived_books"),
	).ToSQL()
	return sql, err
}

func categoriesQuery(d goqu.DialectWrapper) (string, error) {
	sql, _, err := d.From("books").
		Select(
			goqu.C("category"),
			goqu.COUNT("id").As("count"),
			goqu.COALESCE(goqu.SUM("quantity"), 0).As("total_quantity"),
		).
		Where(goqu.C("status").Eq(models.StatusActive)).
		GroupBy("category").
		Order(goqu.I("count").Desc(), goqu.C("category").Asc()).
		Limit(categoryLimit).
		ToSQL()
	return sql, err
}

func Collect(ctx context.Context, db *gorm.DB) (*Stats, error) {
	db = db.WithContext(ctx)
	d := dialect(db)
	stats := &Stats{}

	err := db.Model(&models.User{}).Where("status = ?", models.StatusActive).Count(&stats.TotalUsers).Error
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	query, err := bookTotalsQuery(d)
	if err != nil {
		return nil, fmt.Errorf("build book totals query: %w", err)
	}
	var totals bookTotals
	if err := db.Raw(query).Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("book totals: %w", err)
	}
	stats.TotalBooks = totals.TotalBooks
	stats.TotalBookCopies = totals.TotalBookCopies
	stats.ArchivedBooks = totals.ArchivedBooks

	err = db.Model(&models.Loan{}).
		Where("status = ?", models.LoanBorrowed).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.BorrowedBooks).Error
	if err != nil {
		return nil, fmt.Errorf("sum borrowed copies: %w", err)
	}

	query, err = categoriesQuery(d)
	if err != nil {
		return nil, fmt.Errorf("build category query: %w", err)
	}
	stats.BooksByCategory = make([]CategoryStat, 0)
	if err := db.Raw(query).Scan(&stats.BooksByCategory).Error; err != nil {
		return nil, fmt.Errorf("books by category: %w", err)
	}

	stats.RecentBooks = make([]models.Book, 0)
	err = db.Order("created_at DESC").Order("id DESC").Limit(recentLimit).Find(&stats.RecentBooks).Error
	if err != nil {
		return nil, fmt.Errorf("recent books: %w", err)
	}

	stats.RecentUsers = make([]models.User, 0)
	err = db.Order("created_at DESC").Order("id DESC").Limit(recentLimit).Find(&stats.RecentUsers).Error
	if err != nil {
		return nil, fmt.Errorf("recent users: %w", err)
	}

	return stats, nil
}
