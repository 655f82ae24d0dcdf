package domain

import (
	"strings"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Account is a user of the platform. Verified transitions false->true exactly
// once, through the confirm flow, and never reverts.
type Account struct {
	AccountID      string     `json:"id" dynamodbav:"account_id"`
	Email          string     `json:"email" dynamodbav:"email"`
	Name           string     `json:"name" dynamodbav:"name"`
	Phone          *string    `json:"phone,omitempty" dynamodbav:"phone"`
	PasswordHash   string     `json:"-" dynamodbav:"password_hash"`
	Role           string     `json:"role" dynamodbav:"role"`
	Verified       bool       `json:"verified" dynamodbav:"verified"`
	PhoneConfirmed bool       `json:"phone_confirmed" dynamodbav:"phone_confirmed"`
	Enable         bool       `json:"enable" dynamodbav:"enable"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt      time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type SignupRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Name     string  `json:"name" validate:"required"`
	Phone    *string `json:"phone" validate:"omitempty,e164"`
}

type ConfirmRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

type ResendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UpdateAccountRequest carries the mutable profile fields. Nil means "leave as is".
type UpdateAccountRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1"`
	Phone *string `json:"phone" validate:"omitempty,e164"`
}

// NormalizeEmail canonicalizes an address for lookups and secret identifiers.
// Addresses are matched case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
