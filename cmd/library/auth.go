package main

import (
	"errors"
	"net/http"

	"library_service/pkg/auth"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required"`
	UserName  string `json:"userName" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

type verifyRegistrationRequest struct {
	RegisterKey string `json:"registerKey" binding:"required"`
	Code        string `json:"code" binding:"required"`
}

type loginRequest struct {
	UserName string `json:"userName" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type verifyResetCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

type resetPasswordRequest struct {
	PasswordResetToken string `json:"passwordResetToken" binding:"required"`
	Password           string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

func register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "All fields are required")
		return
	}
	key, err := authSvc.Register(c.Request.Context(), auth.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		UserName:  req.UserName,
		Password:  req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Verification code sent to your email",
		"registerKey": key,
	})
}

func verifyRegistration(c *gin.Context) {
	var req verifyRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "registerKey and code are required")
		return
	}
	user, token, err := authSvc.VerifyRegistration(c.Request.Context(), req.RegisterKey, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Registration complete",
		"token":   token,
		"user":    userJSON(*user),
	})
}

func login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "userName and password are required")
		return
	}
	user, token, err := authSvc.Login(c.Request.Context(), req.UserName, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    userJSON(*user),
	})
}

func logout(c *gin.Context) {
	if err := authSvc.Logout(c.Request.Context(), c.GetString(tokenKey)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

func me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "user": userJSON(*currentActor(c))})
}

func forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "email is required")
		return
	}
	err := authSvc.RequestPasswordReset(c.Request.Context(), req.Email)
	if errors.Is(err, auth.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Please try again with another email."})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset code sent to your email"})
}

func verifyResetCode(c *gin.Context) {
	var req verifyResetCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "code is required")
		return
	}
	token, err := authSvc.VerifyPasswordReset(c.Request.Context(), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"message":            "Code verified",
		"passwordResetToken": token,
	})
}

func resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "passwordResetToken and password are required")
		return
	}
	if err := authSvc.ResetPassword(c.Request.Context(), req.PasswordResetToken, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password has been reset"})
}

func changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "currentPassword and password are required")
		return
	}
	err := authSvc.ChangePassword(c.Request.Context(), currentActor(c).ID, req.CurrentPassword, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password changed"})
}
