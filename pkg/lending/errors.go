package lending

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorizedActor    = errors.New("user not found")
	ErrEmptyRequest         = errors.New("no books were requested")
	ErrInvalidLine          = errors.New("invalid borrow line")
	ErrBookNotFound         = errors.New("book not found")
	ErrBookArchived         = errors.New("book is archived")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrLoanNotFound         = errors.New("loan not found")
	ErrAlreadyReturned      = errors.New("loan is already returned")
	ErrStorageFailure       = errors.New("storage failure")
)

// BookError describes a failure tied to one book. Line is the 1-based
// position inside a borrow request and is zero for other operations.
type BookError struct {
	Line      int
	BookID    uint
	BookName  string
	Requested int
	Available int
	Reason    string
	Err       error
}

func (e *BookError) Error() string {
	var msg string
	switch {
	case errors.Is(e.Err, ErrInsufficientQuantity):
		msg = fmt.Sprintf("not enough copies of %q: requested %d, available %d", e.BookName, e.Requested, e.Available)
	case errors.Is(e.Err, ErrBookArchived):
		msg = fmt.Sprintf("%q is archived and cannot be borrowed", e.BookName)
	case errors.Is(e.Err, ErrBookNotFound):
		msg = fmt.Sprintf("book %d not found", e.BookID)
	case e.Reason != "":
		msg = e.Reason
	default:
		msg = e.Err.Error()
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

func (e *BookError) Unwrap() error { return e.Err }

type LoanError struct {
	LoanID uint
	Err    error
}

func (e *LoanError) Error() string {
	switch {
	case errors.Is(e.Err, ErrAlreadyReturned):
		return fmt.Sprintf("loan %d is already returned", e.LoanID)
	case errors.Is(e.Err, ErrLoanNotFound):
		return fmt.Sprintf("loan %d not found", e.LoanID)
	}
	return e.Err.Error()
}

func (e *LoanError) Unwrap() error { return e.Err }

// IsBusinessError reports whether err is one of the validation or rule
// failures above, as opposed to a storage problem.
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrUnauthorizedActor,
		ErrEmptyRequest,
		ErrInvalidLine,
		ErrBookNotFound,
		ErrBookArchived,
		ErrInsufficientQuantity,
		ErrLoanNotFound,
		ErrAlreadyReturned,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
