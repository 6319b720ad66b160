package main

import (
	"fmt"
	"net/http"
	"strconv"

	"library_service/pkg/lending"

	"github.com/gin-gonic/gin"
)

type borrowLineRequest struct {
	BookID  uint   `json:"bookId"`
	Amount  int    `json:"amount"`
	DueDate string `json:"dueDate"`
}

func borrowBooks(c *gin.Context) {
	var req []borrowLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, msgInvalidBody)
		return
	}

	lines := make([]lending.Line, len(req))
	for i, line := range req {
		lines[i] = lending.Line{BookID: line.BookID, Amount: line.Amount, DueDate: line.DueDate}
	}

	receipt, err := lendingSvc.Borrow(c.Request.Context(), currentActor(c).ID, lines)
	if err != nil {
		respondError(c, err)
		return
	}

	loans := make([]gin.H, len(receipt.Lines))
	for i, line := range receipt.Lines {
		loans[i] = loanJSON(line.Loan)
		loans[i]["merged"] = line.Merged
		loans[i]["remaining"] = line.Remaining
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Borrowed %d book(s) successfully", receipt.TotalAmount()),
		"loans":   loans,
	})
}

func loanFilter(c *gin.Context) lending.LoanFilter {
	return lending.LoanFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
	}
}

func listLoans(c *gin.Context) {
	loans, err := lendingSvc.ListLoans(c.Request.Context(), currentActor(c).ID, loanFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "loans": loansJSON(loans)})
}

func listAllLoans(c *gin.Context) {
	filter := loanFilter(c)
	if raw := c.Query("userId"); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondBadRequest(c, "Invalid userId")
			return
		}
		filter.UserID = uint(userID)
	}

	loans, err := lendingSvc.ListAllLoans(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "loans": loansJSON(loans)})
}

// returnLoan lets admins close any loan; other users only their own.
func returnLoan(c *gin.Context) {
	id, ok := parseID(c, "loanId")
	if !ok {
		return
	}

	actor := currentActor(c)
	var err error
	if actor.IsAdmin() {
		_, err = lendingSvc.Return(c.Request.Context(), id)
	} else {
		_, err = lendingSvc.ReturnOwned(c.Request.Context(), actor.ID, id)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Book returned successfully"})
}
