package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"library_service/pkg/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RequestPasswordReset stores a fresh reset code on the account and mails it.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrMissingFields
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user.Status == models.StatusArchived {
		return ErrAccountArchived
	}

	code, err := newCode()
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(s.opts.ResetCodeTTL)
	err = s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"verification_code":    code,
		"code_expires_at":      expiresAt,
		"password_reset_token": "",
	}).Error
	if err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}

	if err := s.mail.Send(ctx, passwordResetMail(user.Email, user.UserName, code, s.opts.ResetCodeTTL)); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	s.logger.Info("password reset requested", zap.Uint("user_id", user.ID))
	return nil
}

// VerifyPasswordReset exchanges a valid reset code for a one-time reset
// token, valid for another ResetCodeTTL.
func (s *Service) VerifyPasswordReset(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrMissingFields
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("verification_code = ?", code).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrInvalidCode
	}
	if err != nil {
		return "", fmt.Errorf("find reset code: %w", err)
	}
	if user.CodeExpiresAt == nil || !s.now().Before(*user.CodeExpiresAt) {
		return "", ErrCodeExpired
	}

	token := newToken()
	err = s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"verification_code":    "",
		"password_reset_token": token,
		"code_expires_at":      s.now().Add(s.opts.ResetCodeTTL),
	}).Error
	if err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return token, nil
}

// ResetPassword sets a new password using a reset token and closes every
// open session of the account.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return ErrResetSessionInvalid
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("password_reset_token = ?", token).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrResetSessionInvalid
	}
	if err != nil {
		return fmt.Errorf("find reset token: %w", err)
	}
	if user.CodeExpiresAt == nil || !s.now().Before(*user.CodeExpiresAt) {
		return ErrResetSessionInvalid
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&user).Updates(map[string]interface{}{
			"password_hash":        hash,
			"password_reset_token": "",
			"code_expires_at":      nil,
		}).Error
		if err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return s.closeSessions(tx, user.ID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("password reset", zap.Uint("user_id", user.ID))
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, userID uint, current, password string) error {
	if current == "" || password == "" {
		return ErrMissingFields
	}

	var user models.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, current) {
		return ErrPasswordMismatch
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.Info("password changed", zap.Uint("user_id", user.ID))
	return nil
}
