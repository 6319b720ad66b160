package main

import (
	"net/http"

	"library_service/pkg/catalog"

	"github.com/gin-gonic/gin"
)

type bookRequest struct {
	Name     string `json:"name"`
	Author   string `json:"author"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

func (r bookRequest) input() catalog.BookInput {
	return catalog.BookInput{Name: r.Name, Author: r.Author, Category: r.Category, Quantity: r.Quantity}
}

type restockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// listBooks serves the borrow-eligible catalog. Admins asking without
// active=true get the full inventory search instead.
func listBooks(c *gin.Context) {
	actor := currentActor(c)
	if c.Query("active") == "true" || actor == nil || !actor.IsAdmin() {
		books, err := lendingSvc.ListActiveBooks(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "books": booksJSON(books)})
		return
	}

	books, err := catalogSvc.Search(c.Request.Context(), catalog.Filter{
		Search:   c.Query("search"),
		Status:   c.Query("status"),
		Category: c.Query("category"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "books": booksJSON(books)})
}

func getBook(c *gin.Context) {
	id, ok := parseID(c, "bookId")
	if !ok {
		return
	}
	book, err := catalogSvc.GetBook(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "book": bookJSON(*book)})
}

func addBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, msgInvalidBody)
		return
	}
	book, err := catalogSvc.AddBook(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Book added successfully", "book": bookJSON(*book)})
}

func updateBook(c *gin.Context) {
	id, ok := parseID(c, "bookId")
	if !ok {
		return
	}
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, msgInvalidBody)
		return
	}
	book, err := catalogSvc.UpdateBook(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Book updated successfully", "book": bookJSON(*book)})
}

func toggleBookArchive(c *gin.Context) {
	id, ok := parseID(c, "bookId")
	if !ok {
		return
	}
	book, err := catalogSvc.ToggleArchive(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Book is now " + book.Status, "book": bookJSON(*book)})
}

func restockBook(c *gin.Context) {
	id, ok := parseID(c, "bookId")
	if !ok {
		return
	}
	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "delta must be a non-zero integer")
		return
	}
	book, err := lendingSvc.Restock(c.Request.Context(), id, req.Delta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Quantity updated", "book": bookJSON(*book)})
}

func deleteBook(c *gin.Context) {
	id, ok := parseID(c, "bookId")
	if !ok {
		return
	}
	if err := catalogSvc.DeleteBook(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Book deleted successfully"})
}
