package repository

import (
	"context"
	"errors"
	"time"

	"github.com/askarbek/auth-service/internal/entity"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrDuplicateEmail = errors.New("email already exists")
	ErrUserNotFound   = errors.New("user not found")
)

// UserRepository is the persistence port for user records. Implementations must
// guarantee uniqueness of email and of in-flight verification/reset tokens, and
// must apply token consumption atomically with the resulting state change.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error)

	SetVerificationToken(ctx context.Context, id primitive.ObjectID, token string) error
	// ConsumeVerificationToken marks the matching user verified and clears the
	// token in one atomic update. Returns ErrUserNotFound when no user carries
	// the token (including a token that was already consumed).
	ConsumeVerificationToken(ctx context.Context, token string) (*entity.User, error)

	SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expiresAt time.Time) error
	// ConsumeResetToken replaces the password hash and clears both reset fields
	// in one atomic update, matching only tokens that expire after now.
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*entity.User, error)
}
