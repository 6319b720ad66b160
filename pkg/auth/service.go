// Package auth handles accounts: registration with an emailed code, login
// sessions, password recovery and administration of users.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"library_service/pkg/database"
	"library_service/pkg/mailer"
	"library_service/pkg/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type Options struct {
	SessionTTL      time.Duration
	RegistrationTTL time.Duration
	ResetCodeTTL    time.Duration
}

type Service struct {
	db      *gorm.DB
	pending PendingStore
	mail    Mailer
	logger  *zap.Logger
	opts    Options
	now     func() time.Time
}

func NewService(db *gorm.DB, pending PendingStore, mail Mailer, logger *zap.Logger, opts Options) *Service {
	return &Service{
		db:      db,
		pending: pending,
		mail:    mail,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	UserName  string
	Password  string
}

func (in *RegisterInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)
	in.UserName = strings.TrimSpace(in.UserName)
}

// Register validates the form and parks it as a pending registration. The
// returned token identifies it when the emailed code is submitted.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	in.normalize()
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.UserName == "" || in.Password == "" {
		return "", ErrMissingFields
	}
	if err := ValidateEmail(in.Email); err != nil {
		return "", err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return "", err
	}
	if err := checkUnique(s.db.WithContext(ctx), in.Email, in.UserName, 0); err != nil {
		return "", err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return "", err
	}
	code, err := newCode()
	if err != nil {
		return "", err
	}

	pending := models.PendingRegistration{
		Token:        newToken(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		UserName:     in.UserName,
		PasswordHash: hash,
		Code:         code,
	}
	if err := s.pending.Save(ctx, pending, s.opts.RegistrationTTL); err != nil {
		return "", err
	}

	if err := s.mail.Send(ctx, registrationMail(in.Email, in.FirstName, code, s.opts.RegistrationTTL)); err != nil {
		return "", fmt.Errorf("send verification mail: %w", err)
	}

	s.logger.Info("registration started", zap.String("user_name", in.UserName))
	return pending.Token, nil
}

// VerifyRegistration turns a pending registration into a verified student
// account and opens a session for it.
func (s *Service) VerifyRegistration(ctx context.Context, token, code string) (*models.User, string, error) {
	pending, err := s.pending.Load(ctx, token)
	if errors.Is(err, ErrPendingNotFound) {
		return nil, "", ErrRegistrationExpired
	}
	if err != nil {
		return nil, "", err
	}
	if !s.now().Before(pending.ExpiresAt) {
		return nil, "", ErrCodeExpired
	}
	if strings.TrimSpace(code) != pending.Code {
		return nil, "", ErrInvalidCode
	}

	user := models.User{
		FirstName:    pending.FirstName,
		LastName:     pending.LastName,
		Role:         models.RoleStudent,
		Email:        pending.Email,
		UserName:     pending.UserName,
		PasswordHash: pending.PasswordHash,
		Verified:     true,
		Status:       models.StatusActive,
	}
	if err := s.createUser(ctx, &user); err != nil {
		return nil, "", err
	}

	if err := s.pending.Delete(ctx, token); err != nil {
		s.logger.Warn("pending registration not removed", zap.Error(err))
	}

	session, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("user_name", user.UserName))
	return &user, session, nil
}

func (s *Service) createUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUnique(tx, user.Email, user.UserName, 0); err != nil {
			return err
		}
		err := tx.Create(user).Error
		if database.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
}

// Login accepts either the user name or the email as identifier.
func (s *Service) Login(ctx context.Context, identifier, password string) (*models.User, string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, "", ErrMissingFields
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("user_name = ? OR email = ?", identifier, normalizeEmail(identifier)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("find user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	if user.Status == models.StatusArchived {
		return nil, "", ErrAccountArchived
	}

	err = s.db.WithContext(ctx).
		Where("user_id = ? AND expires_at <= ?", user.ID, s.now()).
		Delete(&models.AuthSession{}).Error
	if err != nil {
		s.logger.Warn("expired sessions not purged", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	session, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user logged in", zap.Uint("user_id", user.ID))
	return &user, session, nil
}

func (s *Service) openSession(ctx context.Context, userID uint) (string, error) {
	session := models.AuthSession{
		Token:     newToken(),
		UserID:    userID,
		ExpiresAt: s.now().Add(s.opts.SessionTTL),
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	return session.Token, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.AuthSession{}).Error
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}

	var session models.AuthSession
	err := s.db.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, s.now()).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}

	var user models.User
	err = s.db.WithContext(ctx).First(&user, session.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.Status == models.StatusArchived {
		return nil, ErrAccountArchived
	}
	return &user, nil
}

func (s *Service) closeSessions(tx *gorm.DB, userID uint) error {
	if err := tx.Where("user_id = ?", userID).Delete(&models.AuthSession{}).Error; err != nil {
		return fmt.Errorf("close sessions: %w", err)
	}
	return nil
}

// checkUnique reports ErrEmailTaken or ErrUserNameTaken when another user
// (other than excludeID) already holds the value. Empty values are skipped.
func checkUnique(db *gorm.DB, email, userName string, excludeID uint) error {
	if email != "" {
		taken, err := exists(db, "email = ?", email, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}
	}
	if userName != "" {
		taken, err := exists(db, "user_name = ?", userName, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return ErrUserNameTaken
		}
	}
	return nil
}

func exists(db *gorm.DB, query string, value string, excludeID uint) (bool, error) {
	var count int64
	err := db.Model(&models.User{}).Where(query, value).Where("id <> ?", excludeID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check user uniqueness: %w", err)
	}
	return count > 0, nil
}
