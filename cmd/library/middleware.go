package main

import (
	"net/http"
	"strings"
	"time"

	"library_service/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	actorKey = "actor"
	tokenKey = "token"
)

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if actor, ok := c.Get(actorKey); ok {
			fields = append(fields, zap.Uint("actor_id", actor.(*models.User).ID))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func requireAuth(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		return
	}

	user, err := authSvc.Authenticate(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		c.Abort()
		return
	}

	c.Set(actorKey, user)
	c.Set(tokenKey, token)
	c.Next()
}

func requireAdmin(c *gin.Context) {
	actor := currentActor(c)
	if actor == nil || !actor.IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Admin access required"})
		return
	}
	c.Next()
}

func currentActor(c *gin.Context) *models.User {
	value, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}
