package models

import (
	"time"
)

const (
	RoleStudent    = "student"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"

	StatusActive   = "active"
	StatusArchived = "archived"

	LoanBorrowed = "borrowed"
	LoanReturned = "returned"
)

type User struct {
	ID                 uint   `gorm:"primaryKey"`
	FirstName          string `gorm:"size:255;not null"`
	LastName           string `gorm:"size:255;not null"`
	Role               string `gorm:"size:20;not null;default:'student'"`
	Email              string `gorm:"size:255;not null;uniqueIndex"`
	UserName           string `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash       string `gorm:"size:255;not null"`
	Verified           bool   `gorm:"not null;default:false"`
	Status             string `gorm:"size:20;not null;default:'active'"`
	VerificationCode   string `gorm:"size:10;index"`
	CodeExpiresAt      *time.Time
	PasswordResetToken string `gorm:"size:64;index"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

type Book struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:255;not null"`
	Author    string `gorm:"size:255;not null"`
	Category  string `gorm:"size:100;not null;index"`
	Quantity  int    `gorm:"not null;default:0;check:quantity >= 0"`
	Status    string `gorm:"size:20;not null;default:'active';index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Loan is a row of the borrow ledger. At most one row per (user, book) may
// be open at a time; the partial unique index backs the merge logic.
type Loan struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     uint      `gorm:"not null;index:idx_loans_open,unique,where:status = 'borrowed'"`
	BookID     uint      `gorm:"not null;index:idx_loans_open,unique,where:status = 'borrowed'"`
	Amount     int       `gorm:"not null;default:1;check:amount > 0"`
	DueDate    time.Time `gorm:"not null"`
	Status     string    `gorm:"size:20;not null;default:'borrowed';index"`
	ReturnedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Filled by the query layer, not persisted.
	BookName string `gorm:"-"`
}

func (Loan) TableName() string { return "borrowed_books" }

type AuthSession struct {
	Token     string    `gorm:"primaryKey;size:64"`
	UserID    uint      `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

type PendingRegistration struct {
	Token        string    `gorm:"primaryKey;size:64" json:"token"`
	FirstName    string    `gorm:"size:255;not null" json:"firstName"`
	LastName     string    `gorm:"size:255;not null" json:"lastName"`
	Email        string    `gorm:"size:255;not null;index" json:"email"`
	UserName     string    `gorm:"size:255;not null" json:"userName"`
	PasswordHash string    `gorm:"size:255;not null" json:"passwordHash"`
	Code         string    `gorm:"size:10;not null" json:"code"`
	ExpiresAt    time.Time `gorm:"not null;index" json:"expiresAt"`
}

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Book{},
		&Loan{},
		&AuthSession{},
		&PendingRegistration{},
	}
}
