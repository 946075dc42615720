package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the single persisted entity of the service.
type User struct {
	ID           primitive.ObjectID
	Name         string
	Email        string
	PasswordHash string // Never the plaintext password
	Role         string // "user", "admin"
	IsVerified   bool

	// Present only while an unverified registration is outstanding.
	VerificationToken string

	// Present only while a reset request is outstanding; always set together.
	ResetPasswordToken   string
	ResetPasswordExpires *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleUser is the role assigned to every newly registered account.
const RoleUser = "user"
