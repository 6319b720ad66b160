package auth

import "errors"

var (
	ErrMissingFields       = errors.New("all fields are required")
	ErrInvalidEmail        = errors.New("invalid email address")
	ErrWeakPassword        = errors.New("password must be at least 8 characters and contain a letter and a digit")
	ErrEmailTaken          = errors.New("email is already registered")
	ErrUserNameTaken       = errors.New("username is already taken")
	ErrRegistrationExpired = errors.New("verification expired or not initiated")
	ErrInvalidCode         = errors.New("invalid verification code")
	ErrCodeExpired         = errors.New("verification code has expired")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrAccountArchived     = errors.New("account is archived")
	ErrSessionInvalid      = errors.New("session is invalid or expired")
	ErrResetSessionInvalid = errors.New("password reset session is invalid or expired")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidRole         = errors.New("invalid role")
	ErrForbiddenRole       = errors.New("only a superadmin can grant admin roles")
	ErrPasswordMismatch    = errors.New("current password is incorrect")
	ErrPendingNotFound     = errors.New("pending registration not found")
	ErrSelfStatusChange    = errors.New("cannot change the status of your own account")
	ErrSuperAdminImmutable = errors.New("superadmin accounts can only be changed by a superadmin")
)

// IsClientError reports whether err is caused by the request rather than
// by storage or mail delivery.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrMissingFields, ErrInvalidEmail, ErrWeakPassword, ErrEmailTaken,
		ErrUserNameTaken, ErrRegistrationExpired, ErrInvalidCode, ErrCodeExpired,
		ErrInvalidCredentials, ErrAccountArchived, ErrSessionInvalid,
		ErrResetSessionInvalid, ErrUserNotFound, ErrInvalidRole, ErrForbiddenRole,
		ErrPasswordMismatch, ErrSelfStatusChange, ErrSuperAdminImmutable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
