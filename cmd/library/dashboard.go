package main

import (
	"net/http"

	"library_service/pkg/dashboard"
	"library_service/pkg/database"

	"github.com/gin-gonic/gin"
)

func dashboardStats(c *gin.Context) {
	stats, err := dashboard.Collect(c.Request.Context(), db)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"totalUsers":      stats.TotalUsers,
			"totalBooks":      stats.TotalBooks,
			"totalBookCopies": stats.TotalBookCopies,
			"archivedBooks":   stats.ArchivedBooks,
			"borrowedBooks":   stats.BorrowedBooks,
			"booksByCategory": stats.BooksByCategory,
			"recentBooks":     booksJSON(stats.RecentBooks),
			"recentUsers":     usersJSON(stats.RecentUsers),
		},
	})
}

func healthCheck(c *gin.Context) {
	if err := database.Ping(db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}
