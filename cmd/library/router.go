package main

import (
	"github.com/gin-gonic/gin"
)

func setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	api := router.Group("/api/v1")

	authRoutes := api.Group("/auth")
	authRoutes.POST("/register", register)
	authRoutes.POST("/register/verify", verifyRegistration)
	authRoutes.POST("/login", login)
	authRoutes.POST("/forgot-password", forgotPassword)
	authRoutes.POST("/forgot-password/verify", verifyResetCode)
	authRoutes.POST("/forgot-password/reset", resetPassword)
	authRoutes.POST("/logout", requireAuth, logout)
	authRoutes.GET("/me", requireAuth, me)
	authRoutes.PATCH("/password", requireAuth, changePassword)

	secured := api.Group("", requireAuth)
	secured.POST("/borrow", borrowBooks)
	secured.GET("/loans", listLoans)
	secured.PUT("/loans/:loanId/return", returnLoan)
	secured.GET("/books", listBooks)
	secured.GET("/books/:bookId", getBook)

	admin := secured.Group("", requireAdmin)
	admin.GET("/admin/loans", listAllLoans)
	admin.POST("/books", addBook)
	admin.PUT("/books/:bookId", updateBook)
	admin.PUT("/books/:bookId/archive", toggleBookArchive)
	admin.POST("/books/:bookId/restock", restockBook)
	admin.DELETE("/books/:bookId", deleteBook)
	admin.GET("/users", listUsers)
	admin.POST("/users", addUser)
	admin.PUT("/users/:userId", updateUser)
	admin.PUT("/users/:userId/toggle-status", toggleUserStatus)
	admin.GET("/dashboard/stats", dashboardStats)

	router.GET("/manage/health", healthCheck)
	return router
}
