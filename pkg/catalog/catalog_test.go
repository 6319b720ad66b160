package catalog

import (
	"context"
	"testing"

	"library_service/pkg/database"
	"library_service/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	return NewService(db, zap.NewNop()), db
}

func TestAddBook(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	book, err := svc.AddBook(ctx, BookInput{Name: " Dune ", Author: "Herbert", Category: "Fiction", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Name)
	assert.Equal(t, models.StatusActive, book.Status)
	assert.Equal(t, 3, book.Quantity)

	_, err = svc.AddBook(ctx, BookInput{Name: "Dune", Author: "", Category: "Fiction"})
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = svc.AddBook(ctx, BookInput{Name: "Dune", Author: "Herbert", Category: "Fiction", Quantity: -1})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestGetBook(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	book, err := svc.AddBook(ctx, BookInput{Name: "Emma", Author: "Austen", Category: "Classic", Quantity: 1})
	require.NoError(t, err)

	got, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Emma", got.Name)

	_, err = svc.GetBook(ctx, 999)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestUpdateBookKeepsBlankFields(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	book, err := svc.AddBook(ctx, BookInput{Name: "Emma", Author: "Austen", Category: "Classic", Quantity: 4})
	require.NoError(t, err)

	updated, err := svc.UpdateBook(ctx, book.ID, BookInput{Name: "Emma (annotated)", Quantity: 100})
	require.NoError(t, err)
	assert.Equal(t, "Emma (annotated)", updated.Name)
	assert.Equal(t, "Austen", updated.Author)
	assert.Equal(t, "Classic", updated.Category)
	assert.Equal(t, 4, updated.Quantity)

	_, err = svc.UpdateBook(ctx, 999, BookInput{Name: "x"})
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestToggleArchive(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	book, err := svc.AddBook(ctx, BookInput{Name: "Emma", Author: "Austen", Category: "Classic", Quantity: 1})
	require.NoError(t, err)

	archived, err := svc.ToggleArchive(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, archived.Status)

	active, err := svc.ToggleArchive(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, active.Status)

	_, err = svc.ToggleArchive(ctx, 999)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestDeleteBookKeepsLoans(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()
	book, err := svc.AddBook(ctx, BookInput{Name: "Emma", Author: "Austen", Category: "Classic", Quantity: 1})
	require.NoError(t, err)

	user := models.User{FirstName: "A", LastName: "B", Role: models.RoleStudent, Email: "a@example.com",
		UserName: "a", PasswordHash: "x", Status: models.StatusActive}
	require.NoError(t, db.Create(&user).Error)
	loan := models.Loan{UserID: user.ID, BookID: book.ID, Amount: 1, Status: models.LoanBorrowed}
	require.NoError(t, db.Create(&loan).Error)

	require.NoError(t, svc.DeleteBook(ctx, book.ID))

	_, err = svc.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Loan{}).Where("book_id = ?", book.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	assert.ErrorIs(t, svc.DeleteBook(ctx, book.ID), ErrBookNotFound)
}

func TestSearch(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	for _, in := range []BookInput{
		{Name: "Dune", Author: "Frank Herbert", Category: "Science Fiction", Quantity: 2},
		{Name: "Emma", Author: "Jane Austen", Category: "Classic", Quantity: 1},
		{Name: "Persuasion", Author: "Jane Austen", Category: "Classic", Quantity: 1},
	} {
		_, err := svc.AddBook(ctx, in)
		require.NoError(t, err)
	}
	persuasion, err := svc.Search(ctx, Filter{Search: "persuasion"})
	require.NoError(t, err)
	require.Len(t, persuasion, 1)
	_, err = svc.ToggleArchive(ctx, persuasion[0].ID)
	require.NoError(t, err)

	all, err := svc.Search(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Persuasion", all[0].Name)

	austen, err := svc.Search(ctx, Filter{Search: "AUSTEN"})
	require.NoError(t, err)
	assert.Len(t, austen, 2)

	activeAusten, err := svc.Search(ctx, Filter{Search: "austen", Status: models.StatusActive})
	require.NoError(t, err)
	require.Len(t, activeAusten, 1)
	assert.Equal(t, "Emma", activeAusten[0].Name)

	scifi, err := svc.Search(ctx, Filter{Category: "Science Fiction"})
	require.NoError(t, err)
	require.Len(t, scifi, 1)
	assert.Equal(t, "Dune", scifi[0].Name)

	none, err := svc.Search(ctx, Filter{Search: "tolkien"})
	require.NoError(t, err)
	assert.Empty(t, none)
}
