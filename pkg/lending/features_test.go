package lending

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"library_service/pkg/database"
	"library_service/pkg/models"

	"github.com/cucumber/godog"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const unknownReaderID = 99999

var namedErrors = map[string]error{
	"unauthorized actor":    ErrUnauthorizedActor,
	"empty request":         ErrEmptyRequest,
	"invalid line":          ErrInvalidLine,
	"book not found":        ErrBookNotFound,
	"book archived":         ErrBookArchived,
	"insufficient quantity": ErrInsufficientQuantity,
	"loan not found":        ErrLoanNotFound,
	"already returned":      ErrAlreadyReturned,
}

type lendingTestContext struct {
	db      *gorm.DB
	svc     *Service
	readers map[string]uint
	books   map[string]uint
	err     error
}

func (c *lendingTestContext) reset() error {
	db, err := database.OpenInMemory()
	if err != nil {
		return err
	}
	c.db = db
	c.svc = NewService(db, zap.NewNop())
	c.readers = map[string]uint{}
	c.books = map[string]uint{}
	c.err = nil
	return nil
}

func (c *lendingTestContext) aBookWithQuantity(name string, quantity int) error {
	book := models.Book{Name: name, Author: "Author", Category: "Fiction", Quantity: quantity, Status: models.StatusActive}
	if err := c.db.Create(&book).Error; err != nil {
		return err
	}
	c.books[name] = book.ID
	return nil
}

func (c *lendingTestContext) theBookIsArchived(name string) error {
	return c.db.Model(&models.Book{}).Where("id = ?", c.books[name]).Update("status", models.StatusArchived).Error
}

func (c *lendingTestContext) aReader(name string) error {
	user := models.User{
		FirstName:    name,
		LastName:     "Reader",
		Role:         models.RoleStudent,
		Email:        name + "@example.com",
		UserName:     name,
		PasswordHash: "hash",
		Status:       models.StatusActive,
	}
	if err := c.db.Create(&user).Error; err != nil {
		return err
	}
	c.readers[name] = user.ID
	return nil
}

func (c *lendingTestContext) readerID(name string) uint {
	if id, ok := c.readers[name]; ok {
		return id
	}
	return unknownReaderID
}

func (c *lendingTestContext) borrows(reader string, amount int, book, due string) error {
	_, c.err = c.svc.Borrow(context.Background(), c.readerID(reader), []Line{
		{BookID: c.books[book], Amount: amount, DueDate: due},
	})
	return nil
}

func (c *lendingTestContext) borrowed(reader string, amount int, book, due string) error {
	_, err := c.svc.Borrow(context.Background(), c.readerID(reader), []Line{
		{BookID: c.books[book], Amount: amount, DueDate: due},
	})
	return err
}

func (c *lendingTestContext) borrowsTable(reader string, table *godog.Table) error {
	if len(table.Rows) < 2 {
		return errors.New("table needs a header and at least one row")
	}
	lines := make([]Line, 0, len(table.Rows)-1)
	for _, row := range table.Rows[1:] {
		amount, err := strconv.Atoi(row.Cells[1].Value)
		if err != nil {
			return err
		}
		lines = append(lines, Line{
			BookID:  c.books[row.Cells[0].Value],
			Amount:  amount,
			DueDate: row.Cells[2].Value,
		})
	}
	_, c.err = c.svc.Borrow(context.Background(), c.readerID(reader), lines)
	return nil
}

func (c *lendingTestContext) returnsTheLoanOf(reader, book string) error {
	var loan models.Loan
	err := c.db.Where("user_id = ? AND book_id = ?", c.readerID(reader), c.books[book]).
		Order("id DESC").First(&loan).Error
	if err != nil {
		return fmt.Errorf("no loan of %q for %q: %w", book, reader, err)
	}
	_, c.err = c.svc.Return(context.Background(), loan.ID)
	return nil
}

func (c *lendingTestContext) theRequestSucceeds() error {
	if c.err != nil {
		return fmt.Errorf("expected success, got %v", c.err)
	}
	return nil
}

func (c *lendingTestContext) theRequestFailsWith(name string) error {
	target, ok := namedErrors[name]
	if !ok {
		return fmt.Errorf("unknown error name %q", name)
	}
	if c.err == nil {
		return fmt.Errorf("expected %q, got success", name)
	}
	if !errors.Is(c.err, target) {
		return fmt.Errorf("expected %q, got %v", name, c.err)
	}
	return nil
}

func (c *lendingTestContext) theErrorMentions(text string) error {
	if c.err == nil || !strings.Contains(c.err.Error(), text) {
		return fmt.Errorf("expected error mentioning %q, got %v", text, c.err)
	}
	return nil
}

func (c *lendingTestContext) hasQuantity(name string, quantity int) error {
	var book models.Book
	if err := c.db.First(&book, c.books[name]).Error; err != nil {
		return err
	}
	if book.Quantity != quantity {
		return fmt.Errorf("expected %q quantity %d, got %d", name, quantity, book.Quantity)
	}
	return nil
}

func (c *lendingTestContext) openLoansOf(reader, book string) ([]models.Loan, error) {
	var loans []models.Loan
	err := c.db.Where("user_id = ? AND book_id = ? AND status = ?",
		c.readerID(reader), c.books[book], models.LoanBorrowed).Find(&loans).Error
	return loans, err
}

func (c *lendingTestContext) hasOneOpenLoan(reader, book string, amount int, due string) error {
	loans, err := c.openLoansOf(reader, book)
	if err != nil {
		return err
	}
	if len(loans) != 1 {
		return fmt.Errorf("expected one open loan, got %d", len(loans))
	}
	if loans[0].Amount != amount {
		return fmt.Errorf("expected amount %d, got %d", amount, loans[0].Amount)
	}
	if got := loans[0].DueDate.Format(DateLayout); got != due {
		return fmt.Errorf("expected due date %s, got %s", due, got)
	}
	return nil
}

func (c *lendingTestContext) hasNoOpenLoan(reader, book string) error {
	loans, err := c.openLoansOf(reader, book)
	if err != nil {
		return err
	}
	if len(loans) != 0 {
		return fmt.Errorf("expected no open loan, got %d", len(loans))
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &lendingTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, tc.reset()
	})

	ctx.Step(`^a book "([^"]*)" with quantity (\d+)$`, tc.aBookWithQuantity)
	ctx.Step(`^the book "([^"]*)" is archived$`, tc.theBookIsArchived)
	ctx.Step(`^a reader "([^"]*)"$`, tc.aReader)
	ctx.Step(`^"([^"]*)" borrowed (\d+) of "([^"]*)" due "([^"]*)"$`, tc.borrowed)

	ctx.Step(`^"([^"]*)" borrows (\d+) of "([^"]*)" due "([^"]*)"$`, tc.borrows)
	ctx.Step(`^"([^"]*)" borrows:$`, tc.borrowsTable)
	ctx.Step(`^"([^"]*)" returns the loan of "([^"]*)"$`, tc.returnsTheLoanOf)

	ctx.Step(`^the request succeeds$`, tc.theRequestSucceeds)
	ctx.Step(`^the request fails with "([^"]*)"$`, tc.theRequestFailsWith)
	ctx.Step(`^the error mentions "([^"]*)"$`, tc.theErrorMentions)
	ctx.Step(`^"([^"]*)" has quantity (\d+)$`, tc.hasQuantity)
	ctx.Step(`^"([^"]*)" has one open loan of "([^"]*)" for (\d+) copies due "([^"]*)"$`, tc.hasOneOpenLoan)
	ctx.Step(`^"([^"]*)" has no open loan of "([^"]*)"$`, tc.hasNoOpenLoan)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
