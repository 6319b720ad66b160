package main

import (
	"errors"
	"net/http"
	"strconv"

	"library_service/pkg/auth"
	"library_service/pkg/catalog"
	"library_service/pkg/lending"
	"library_service/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgInvalidBody = "Invalid request body"
	msgInternal    = "Internal server error"
	msgUnavailable = "The library is temporarily unavailable, please try again"
)

func errorStatus(err error) int {
	switch {
	case errors.Is(err, lending.ErrStorageFailure):
		return http.StatusServiceUnavailable

	case errors.Is(err, lending.ErrUnauthorizedActor),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionInvalid),
		errors.Is(err, auth.ErrResetSessionInvalid):
		return http.StatusUnauthorized

	case errors.Is(err, auth.ErrAccountArchived),
		errors.Is(err, auth.ErrForbiddenRole),
		errors.Is(err, auth.ErrSuperAdminImmutable),
		errors.Is(err, auth.ErrSelfStatusChange):
		return http.StatusForbidden

	case errors.Is(err, lending.ErrEmptyRequest),
		errors.Is(err, lending.ErrInvalidLine),
		errors.Is(err, catalog.ErrMissingFields),
		errors.Is(err, catalog.ErrInvalidQuantity),
		errors.Is(err, auth.ErrMissingFields),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidCode),
		errors.Is(err, auth.ErrCodeExpired),
		errors.Is(err, auth.ErrRegistrationExpired),
		errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, auth.ErrPasswordMismatch):
		return http.StatusBadRequest

	case errors.Is(err, lending.ErrBookNotFound),
		errors.Is(err, lending.ErrLoanNotFound),
		errors.Is(err, catalog.ErrBookNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound

	case errors.Is(err, lending.ErrBookArchived),
		errors.Is(err, lending.ErrInsufficientQuantity),
		errors.Is(err, lending.ErrAlreadyReturned),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrUserNameTaken):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes {success: false, message}. Unclassified errors are
// logged and replaced by a generic message.
func respondError(c *gin.Context, err error) {
	status := errorStatus(err)
	message := err.Error()
	switch status {
	case http.StatusInternalServerError:
		message = msgInternal
	case http.StatusServiceUnavailable:
		message = msgUnavailable
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"success": false, "message": message})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": message})
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondBadRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func bookJSON(b models.Book) gin.H {
	return gin.H{
		"id":        b.ID,
		"name":      b.Name,
		"author":    b.Author,
		"category":  b.Category,
		"quantity":  b.Quantity,
		"status":    b.Status,
		"createdAt": b.CreatedAt,
		"updatedAt": b.UpdatedAt,
	}
}

func booksJSON(books []models.Book) []gin.H {
	items := make([]gin.H, len(books))
	for i, b := range books {
		items[i] = bookJSON(b)
	}
	return items
}

func loanJSON(l models.Loan) gin.H {
	return gin.H{
		"id":         l.ID,
		"userId":     l.UserID,
		"bookId":     l.BookID,
		"bookName":   l.BookName,
		"amount":     l.Amount,
		"dueDate":    l.DueDate.Format(lending.DateLayout),
		"status":     l.Status,
		"returnedAt": l.ReturnedAt,
		"createdAt":  l.CreatedAt,
	}
}

func loansJSON(loans []models.Loan) []gin.H {
	items := make([]gin.H, len(loans))
	for i, l := range loans {
		items[i] = loanJSON(l)
	}
	return items
}

func userJSON(u models.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"email":     u.Email,
		"userName":  u.UserName,
		"role":      u.Role,
		"status":    u.Status,
		"verified":  u.Verified,
		"createdAt": u.CreatedAt,
	}
}

func usersJSON(users []models.User) []gin.H {
	items := make([]gin.H, len(users))
	for i, u := range users {
		items[i] = userJSON(u)
	}
	return items
}
