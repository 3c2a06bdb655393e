package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a portal account, identified by its phone number.
type User struct {
	ID           uuid.UUID
	Phone        string
	NationalID   string
	PasswordHash string
	CreatedAt    time.Time
}

// PendingSignup holds a signup waiting for OTP confirmation.
type PendingSignup struct {
	Phone        string    `json:"phone"`
	NationalID   string    `json:"national_id"`
	PasswordHash string    `json:"password_hash"`
	Code         string    `json:"code"`
	SentAt       time.Time `json:"sent_at"`
}
