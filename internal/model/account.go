package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of privilege levels an account can hold.
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleCreator Role = "creator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleCreator:
		return true
	}
	return false
}

// RoleIn reports whether actual is a member of allowed.
func RoleIn(actual Role, allowed ...Role) bool {
	for _, r := range allowed {
		if r == actual {
			return true
		}
	}
	return false
}

// TokenPurpose distinguishes the two kinds of one-time action tokens.
type TokenPurpose string

const (
	PurposeVerifyEmail   TokenPurpose = "verify_email"
	PurposeResetPassword TokenPurpose = "reset_password"
)

// Registration defaults.
const (
	DefaultPhoto = "https://avatars.githubusercontent.com/u/19819005?v=4"
	DefaultBio   = "I am a new user."
)

// Account represents a registered identity.
type Account struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         Role      `json:"role" gorm:"size:20;not null;default:'user';index"`
	Photo        string    `json:"photo" gorm:"size:512"`
	Bio          string    `json:"bio" gorm:"size:1024"`
	IsVerified   bool      `json:"isVerified" gorm:"not null;default:false"`

	VerifyTokenHash      *string    `json:"-" gorm:"size:64;index"`
	VerifyTokenExpiresAt *time.Time `json:"-"`
	ResetTokenHash       *string    `json:"-" gorm:"size:64;index"`
	ResetTokenExpiresAt  *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// PublicAccount is the subset of Account fields safe to return to a client.
type PublicAccount struct {
	ID         uuid.UUID `json:"_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	Photo      string    `json:"photo"`
	Bio        string    `json:"bio"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Public projects the account without its password digest or token hashes.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:         a.ID,
		Name:       a.Name,
		Email:      a.Email,
		Role:       a.Role,
		Photo:      a.Photo,
		Bio:        a.Bio,
		IsVerified: a.IsVerified,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TokenColumns returns the hash and expiry column names for purpose.
func TokenColumns(purpose TokenPurpose) (hashCol, expiresCol string) {
	if purpose == PurposeResetPassword {
		return "reset_token_hash", "reset_token_expires_at"
	}
	return "verify_token_hash", "verify_token_expires_at"
}
