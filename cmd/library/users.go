package main

import (
	"net/http"

	"library_service/pkg/auth"

	"github.com/gin-gonic/gin"
)

type userRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	UserName  string `json:"userName"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

func (r userRequest) input() auth.UserInput {
	return auth.UserInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		UserName:  r.UserName,
		Password:  r.Password,
		Role:      r.Role,
	}
}

func listUsers(c *gin.Context) {
	users, err := authSvc.ListUsers(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": usersJSON(users)})
}

func addUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, msgInvalidBody)
		return
	}
	user, err := authSvc.AddUser(c.Request.Context(), currentActor(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "User created", "user": userJSON(*user)})
}

func updateUser(c *gin.Context) {
	id, ok := parseID(c, "userId")
	if !ok {
		return
	}
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, msgInvalidBody)
		return
	}
	user, err := authSvc.UpdateUser(c.Request.Context(), currentActor(c), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User updated", "user": userJSON(*user)})
}

func toggleUserStatus(c *gin.Context) {
	id, ok := parseID(c, "userId")
	if !ok {
		return
	}
	user, err := authSvc.ToggleUserStatus(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User is now " + user.Status, "user": userJSON(*user)})
}
