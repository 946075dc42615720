package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/askarbek/auth-service/internal/entity"
	"github.com/askarbek/auth-service/internal/hasher"
	"github.com/askarbek/auth-service/internal/platform/logger"
	"github.com/askarbek/auth-service/internal/platform/metrics"
	"github.com/askarbek/auth-service/internal/port/cache"
	"github.com/askarbek/auth-service/internal/port/repository"
	"github.com/askarbek/auth-service/internal/token"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrMissingFields = errors.New("all fields are required")
	ErrEmailTaken    = errors.New("user already exists")
	// ErrInvalidToken covers empty, unknown and already-consumed verification tokens.
	ErrInvalidToken          = errors.New("invalid or missing token")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrInvalidCredentials never distinguishes an unknown email from a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Mailer delivers account mail. Callers treat it as best-effort: a failure is
// logged and discarded, never surfaced to the user.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, toEmail, toName, link string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, toName, link string) error
}

// EventPublisher emits user lifecycle events, also best-effort.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *entity.User) error
	PublishUserVerified(ctx context.Context, user *entity.User) error
	PublishPasswordReset(ctx context.Context, user *entity.User) error
}

const (
	profileCacheTTL = 5 * time.Minute
	notifyTimeout   = 15 * time.Second
)

func profileCacheKey(userID string) string {
	return fmt.Sprintf("user:profile:%s", userID)
}

type cachedProfile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

// AuthUsecase orchestrates the credential lifecycle: registration, email
// verification, login, profile resolution and the password reset flow.
type AuthUsecase struct {
	repo          repository.UserRepository
	hasher        *hasher.Hasher
	issuer        *token.Issuer
	mailer        Mailer
	publisher     EventPublisher
	cacheRepo     cache.CacheRepository
	metrics       *metrics.MetricsManager
	baseURL       string
	resetTokenTTL time.Duration
	logger        *logger.Logger
}

func NewAuthUsecase(
	repo repository.UserRepository,
	h *hasher.Hasher,
	issuer *token.Issuer,
	mailer Mailer,
	publisher EventPublisher,
	cacheRepo cache.CacheRepository,
	mm *metrics.MetricsManager,
	baseURL string,
	resetTokenTTL time.Duration,
	log *logger.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		repo:          repo,
		hasher:        h,
		issuer:        issuer,
		mailer:        mailer,
		publisher:     publisher,
		cacheRepo:     cacheRepo,
		metrics:       mm,
		baseURL:       baseURL,
		resetTokenTTL: resetTokenTTL,
		logger:        log.Named("AuthUsecase"),
	}
}

// SessionTTL reports how long issued session credentials live.
func (uc *AuthUsecase) SessionTTL() time.Duration {
	return uc.issuer.SessionTTL()
}

// Register creates an unverified account, stamps a one-time verification token
// on it and mails the verification link. The mail and the lifecycle event are
// fire-and-forget; no session credential is returned.
func (uc *AuthUsecase) Register(ctx context.Context, name, email, password string) error {
	if name == "" || email == "" || password == "" {
		return ErrMissingFields
	}

	passwordHash, err := uc.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("AuthUsecase.Register: failed to hash password: %w", err)
	}

	user := &entity.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         entity.RoleUser,
		IsVerified:   false,
	}

	id, err := uc.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			uc.countFailure("register", "conflict")
			return ErrEmailTaken
		}
		return fmt.Errorf("AuthUsecase.Register: failed to create user: %w", err)
	}
	user.ID = id

	verificationToken, err := uc.issuer.NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("AuthUsecase.Register: failed to generate verification token: %w", err)
	}

	// If this write fails the account exists unverified with no outstanding
	// token; the row itself is intact and a later re-registration attempt will
	// surface the conflict.
	if err := uc.repo.SetVerificationToken(ctx, id, verificationToken); err != nil {
		return fmt.Errorf("AuthUsecase.Register: failed to persist verification token: %w", err)
	}

	if uc.metrics != nil {
		uc.metrics.RegistrationsTotal.Inc()
	}

	link := fmt.Sprintf("%s/api/v1/users/verify/%s", uc.baseURL, verificationToken)
	uc.notify(func(notifyCtx context.Context) error {
		return uc.mailer.SendVerificationEmail(notifyCtx, user.Email, user.Name, link)
	}, "verification email", user.Email)

	if uc.publisher != nil {
		if errPub := uc.publisher.PublishUserRegistered(ctx, user); errPub != nil {
			uc.logger.Warn("Failed to publish user registered event",
				zap.Error(errPub), zap.String("userID", user.ID.Hex()))
		}
	}

	uc.logger.Info("User registered", zap.String("userID", user.ID.Hex()))
	return nil
}

// Verify consumes a verification token. The store clears the token in the same
// update that marks the user verified, so replaying a consumed token fails.
func (uc *AuthUsecase) Verify(ctx context.Context, verificationToken string) error {
	if verificationToken == "" {
		uc.countFailure("verify", "missing_token")
		return ErrInvalidToken
	}

	user, err := uc.repo.ConsumeVerificationToken(ctx, verificationToken)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			uc.countFailure("verify", "invalid_token")
			return ErrInvalidToken
		}
		return fmt.Errorf("AuthUsecase.Verify: failed to consume token: %w", err)
	}

	uc.invalidateProfileCache(ctx, user.ID.Hex())

	if uc.metrics != nil {
		uc.metrics.VerificationsTotal.Inc()
	}
	if uc.publisher != nil {
		if errPub := uc.publisher.PublishUserVerified(ctx, user); errPub != nil {
			uc.logger.Warn("Failed to publish user verified event",
				zap.Error(errPub), zap.String("userID", user.ID.Hex()))
		}
	}

	uc.logger.Info("User verified", zap.String("userID", user.ID.Hex()))
	return nil
}

// Login authenticates an email/password pair and issues a session credential.
// Unknown email and wrong password are indistinguishable to the caller.
func (uc *AuthUsecase) Login(ctx context.Context, email, password string) (string, *entity.User, error) {
	if email == "" || password == "" {
		return "", nil, ErrMissingFields
	}

	user, err := uc.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			uc.countFailure("login", "invalid_credentials")
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("AuthUsecase.Login: failed to fetch user: %w", err)
	}

	if !uc.hasher.Verify(password, user.PasswordHash) {
		uc.countFailure("login", "invalid_credentials")
		return "", nil, ErrInvalidCredentials
	}

	sessionToken, err := uc.issuer.IssueSession(user.ID.Hex(), user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("AuthUsecase.Login: failed to issue session: %w", err)
	}

	if uc.metrics != nil {
		uc.metrics.LoginsTotal.Inc()
	}

	uc.logger.Info("User logged in", zap.String("userID", user.ID.Hex()))
	return sessionToken, user, nil
}

// GetProfile resolves a session guard subject id to the stored user, through a
// cache-aside lookup.
func (uc *AuthUsecase) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, repository.ErrUserNotFound
	}

	if uc.cacheRepo != nil {
		key := profileCacheKey(userID)
		cachedBytes, cacheErr := uc.cacheRepo.Get(ctx, key)
		if cacheErr == nil {
			var profile cachedProfile
			if unmarshalErr := json.Unmarshal(cachedBytes, &profile); unmarshalErr == nil {
				uc.logger.Debug("Profile fetched from cache", zap.String("key", key))
				return &entity.User{
					ID:         objectID,
					Name:       profile.Name,
					Email:      profile.Email,
					Role:       profile.Role,
					IsVerified: profile.IsVerified,
				}, nil
			}
			uc.logger.Warn("Failed to unmarshal cached profile, evicting", zap.String("key", key))
			if delErr := uc.cacheRepo.Delete(ctx, key); delErr != nil {
				uc.logger.Warn("Failed to delete corrupted cache entry", zap.String("key", key), zap.Error(delErr))
			}
		} else if !errors.Is(cacheErr, cache.ErrNotFound) {
			uc.logger.Warn("Failed to get profile from cache (not a cache miss)", zap.Error(cacheErr), zap.String("key", key))
		}
	}

	user, err := uc.repo.GetByID(ctx, objectID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			uc.logger.Error("Failed to get user by ID from repository", zap.Error(err), zap.String("userID", userID))
		}
		return nil, fmt.Errorf("AuthUsecase.GetProfile: failed to get user: %w", err)
	}

	if uc.cacheRepo != nil {
		profileBytes, marshalErr := json.Marshal(cachedProfile{
			ID:         user.ID.Hex(),
			Name:       user.Name,
			Email:      user.Email,
			Role:       user.Role,
			IsVerified: user.IsVerified,
		})
		if marshalErr != nil {
			uc.logger.Warn("Failed to marshal profile for caching", zap.Error(marshalErr))
		} else {
			key := profileCacheKey(userID)
			if setErr := uc.cacheRepo.Set(ctx, key, profileBytes, profileCacheTTL); setErr != nil {
				uc.logger.Warn("Failed to set profile in cache", zap.Error(setErr), zap.String("key", key))
			}
		}
	}

	return user, nil
}

// ForgotPassword starts a time-boxed reset. The outcome is identical whether or
// not the email matches an account, so existence cannot be probed.
func (uc *AuthUsecase) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return ErrMissingFields
	}

	user, err := uc.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			uc.logger.Debug("Forgot password requested for unknown email")
			return nil
		}
		return fmt.Errorf("AuthUsecase.ForgotPassword: failed to fetch user: %w", err)
	}

	resetToken, err := uc.issuer.NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("AuthUsecase.ForgotPassword: failed to generate reset token: %w", err)
	}

	expiresAt := time.Now().Add(uc.resetTokenTTL)
	if err := uc.repo.SetResetToken(ctx, user.ID, resetToken, expiresAt); err != nil {
		return fmt.Errorf("AuthUsecase.ForgotPassword: failed to persist reset token: %w", err)
	}

	link := fmt.Sprintf("%s/api/v1/users/reset-password/%s", uc.baseURL, resetToken)
	uc.notify(func(notifyCtx context.Context) error {
		return uc.mailer.SendPasswordResetEmail(notifyCtx, user.Email, user.Name, link)
	}, "password reset email", user.Email)

	uc.logger.Info("Password reset requested", zap.String("userID", user.ID.Hex()))
	return nil
}

// ResetPassword consumes an unexpired reset token, replacing the password hash
// and clearing both reset fields in one store update.
func (uc *AuthUsecase) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" || newPassword == "" {
		return ErrMissingFields
	}

	passwordHash, err := uc.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("AuthUsecase.ResetPassword: failed to hash password: %w", err)
	}

	user, err := uc.repo.ConsumeResetToken(ctx, resetToken, passwordHash, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			uc.countFailure("reset_password", "invalid_or_expired")
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("AuthUsecase.ResetPassword: failed to consume token: %w", err)
	}

	uc.invalidateProfileCache(ctx, user.ID.Hex())

	if uc.metrics != nil {
		uc.metrics.PasswordResetsTotal.Inc()
	}
	if uc.publisher != nil {
		if errPub := uc.publisher.PublishPasswordReset(ctx, user); errPub != nil {
			uc.logger.Warn("Failed to publish password reset event",
				zap.Error(errPub), zap.String("userID", user.ID.Hex()))
		}
	}

	uc.logger.Info("Password reset completed", zap.String("userID", user.ID.Hex()))
	return nil
}

// notify dispatches a mail send detached from the request; the caller's outcome
// never depends on it.
func (uc *AuthUsecase) notify(send func(context.Context) error, kind, email string) {
	if uc.mailer == nil {
		return
	}
	go func() {
		notifyCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := send(notifyCtx); err != nil {
			uc.logger.Warn("Failed to send "+kind, zap.Error(err), zap.String("email", email))
			if uc.metrics != nil {
				uc.metrics.NotificationErrorsTotal.Inc()
			}
		}
	}()
}

func (uc *AuthUsecase) invalidateProfileCache(ctx context.Context, userID string) {
	if uc.cacheRepo == nil {
		return
	}
	key := profileCacheKey(userID)
	if err := uc.cacheRepo.Delete(ctx, key); err != nil && !errors.Is(err, cache.ErrNotFound) {
		uc.logger.Warn("Failed to invalidate profile cache", zap.String("key", key), zap.Error(err))
	}
}

func (uc *AuthUsecase) countFailure(operation, reason string) {
	if uc.metrics != nil {
		uc.metrics.AuthFailuresTotal.WithLabelValues(operation, reason).Inc()
	}
}
