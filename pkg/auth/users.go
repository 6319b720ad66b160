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

type UserInput struct {
	FirstName string
	LastName  string
	Email     string
	UserName  string
	Password  string
	Role      string
}

func validRole(role string) bool {
	switch role {
	case models.RoleStudent, models.RoleAdmin, models.RoleSuperAdmin:
		return true
	}
	return false
}

func isPrivileged(role string) bool {
	return role == models.RoleAdmin || role == models.RoleSuperAdmin
}

// ListUsers returns users newest first, optionally filtered by a substring
// of the name, user name or email.
func (s *Service) ListUsers(ctx context.Context, search string) ([]models.User, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(user_name) LIKE ? OR LOWER(email) LIKE ?",
			like, like, like, like)
	}

	var users []models.User
	if err := query.Order("created_at DESC").Order("id DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// AddUser creates a verified account directly. Only a superadmin may create
// admins.
func (s *Service) AddUser(ctx context.Context, actor *models.User, in UserInput) (*models.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)
	in.UserName = strings.TrimSpace(in.UserName)
	if in.Role == "" {
		in.Role = models.RoleStudent
	}

	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.UserName == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if !validRole(in.Role) {
		return nil, ErrInvalidRole
	}
	if isPrivileged(in.Role) && actor.Role != models.RoleSuperAdmin {
		return nil, ErrForbiddenRole
	}
	if err := ValidateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         in.Role,
		Email:        in.Email,
		UserName:     in.UserName,
		PasswordHash: hash,
		Verified:     true,
		Status:       models.StatusActive,
	}
	if err := s.createUser(ctx, &user); err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		zap.Uint("user_id", user.ID),
		zap.String("role", user.Role),
		zap.Uint("actor_id", actor.ID))
	return &user, nil
}

// UpdateUser changes the non-empty fields of in. Granting or revoking an
// admin role needs a superadmin.
func (s *Service) UpdateUser(ctx context.Context, actor *models.User, id uint, in UserInput) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("find user: %w", err)
		}
		if user.Role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
			return ErrSuperAdminImmutable
		}

		updates := map[string]interface{}{}
		if v := strings.TrimSpace(in.FirstName); v != "" {
			updates["first_name"] = v
		}
		if v := strings.TrimSpace(in.LastName); v != "" {
			updates["last_name"] = v
		}
		email := normalizeEmail(in.Email)
		if email != "" && email != user.Email {
			if err := ValidateEmail(email); err != nil {
				return err
			}
			updates["email"] = email
		} else {
			email = ""
		}
		userName := strings.TrimSpace(in.UserName)
		if userName != "" && userName != user.UserName {
			updates["user_name"] = userName
		} else {
			userName = ""
		}
		if err := checkUnique(tx, email, userName, user.ID); err != nil {
			return err
		}

		if in.Role != "" && in.Role != user.Role {
			if !validRole(in.Role) {
				return ErrInvalidRole
			}
			if (isPrivileged(in.Role) || isPrivileged(user.Role)) && actor.Role != models.RoleSuperAdmin {
				return ErrForbiddenRole
			}
			updates["role"] = in.Role
		}
		if in.Password != "" {
			if err := ValidatePassword(in.Password); err != nil {
				return err
			}
			hash, err := HashPassword(in.Password)
			if err != nil {
				return err
			}
			updates["password_hash"] = hash
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return tx.First(&user, user.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user updated", zap.Uint("user_id", user.ID), zap.Uint("actor_id", actor.ID))
	return &user, nil
}

// ToggleUserStatus flips a user between active and archived. Archiving
// closes the user's sessions.
func (s *Service) ToggleUserStatus(ctx context.Context, actor *models.User, id uint) (*models.User, error) {
	if actor.ID == id {
		return nil, ErrSelfStatusChange
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("find user: %w", err)
		}
		if user.Role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
			return ErrSuperAdminImmutable
		}

		status := models.StatusArchived
		if user.Status == models.StatusArchived {
			status = models.StatusActive
		}
		if err := tx.Model(&user).Update("status", status).Error; err != nil {
			return fmt.Errorf("update user status: %w", err)
		}
		user.Status = status
		if status == models.StatusArchived {
			return s.closeSessions(tx, user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user status changed",
		zap.Uint("user_id", user.ID),
		zap.String("status", user.Status),
		zap.Uint("actor_id", actor.ID))
	return &user, nil
}

// EnsureSuperAdmin creates the bootstrap superadmin when no account holds
// the user name yet. An empty password disables seeding.
func (s *Service) EnsureSuperAdmin(ctx context.Context, userName, email, password string) (bool, error) {
	if userName == "" || password == "" {
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("user_name = ?", userName).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("find superadmin: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	user := models.User{
		FirstName:    "Super",
		LastName:     "Admin",
		Role:         models.RoleSuperAdmin,
		Email:        normalizeEmail(email),
		UserName:     userName,
		PasswordHash: hash,
		Verified:     true,
		Status:       models.StatusActive,
	}
	if err := s.createUser(ctx, &user); err != nil {
		return false, err
	}
	s.logger.Info("superadmin seeded", zap.String("user_name", userName))
	return true, nil
}
