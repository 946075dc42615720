package mongo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/askarbek/auth-service/internal/entity"
	"github.com/askarbek/auth-service/internal/platform/logger"
	"github.com/askarbek/auth-service/internal/port/repository"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("could not construct docker pool: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker is not available: %v", err)
	}

	resource, err := pool.Run("mongo", "6.0", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pool.Purge(resource)
	})
	_ = resource.Expire(120)

	uri := fmt.Sprintf("mongodb://localhost:%s", resource.GetPort("27017/tcp"))

	var client *mongo.Client
	require.NoError(t, pool.Retry(func() error {
		var connErr error
		client, connErr = NewMongoDBConnection(uri)
		return connErr
	}))
	t.Cleanup(func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	})

	return client.Database("auth_test")
}

func TestUserRepository_Integration(t *testing.T) {
	db := setupMongo(t)
	repo := NewUserRepository(db, logger.NewLogger())
	ctx := context.Background()

	user := &entity.User{
		Name:         "Askar",
		Email:        "askar@example.com",
		PasswordHash: "$2a$04$notarealhashbutirrelevant",
		Role:         entity.RoleUser,
	}

	t.Run("create and fetch", func(t *testing.T) {
		id, err := repo.Create(ctx, user)
		require.NoError(t, err)
		require.False(t, id.IsZero())

		byEmail, err := repo.GetByEmail(ctx, "askar@example.com")
		require.NoError(t, err)
		assert.Equal(t, id, byEmail.ID)
		assert.False(t, byEmail.IsVerified)

		byID, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "askar@example.com", byID.Email)

		user.ID = id
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := repo.Create(ctx, &entity.User{
			Name:         "Imposter",
			Email:        "askar@example.com",
			PasswordHash: "$2a$04$whatever",
			Role:         entity.RoleUser,
		})
		assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
	})

	t.Run("verification token single use", func(t *testing.T) {
		require.NoError(t, repo.SetVerificationToken(ctx, user.ID, "verification-token-1"))

		verified, err := repo.ConsumeVerificationToken(ctx, "verification-token-1")
		require.NoError(t, err)
		assert.True(t, verified.IsVerified)
		assert.Empty(t, verified.VerificationToken)

		_, err = repo.ConsumeVerificationToken(ctx, "verification-token-1")
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})

	t.Run("reset token single use", func(t *testing.T) {
		require.NoError(t, repo.SetResetToken(ctx, user.ID, "reset-token-1", time.Now().Add(10*time.Minute)))

		updated, err := repo.ConsumeResetToken(ctx, "reset-token-1", "$2a$04$newhash", time.Now())
		require.NoError(t, err)
		assert.Equal(t, "$2a$04$newhash", updated.PasswordHash)
		assert.Empty(t, updated.ResetPasswordToken)
		assert.Nil(t, updated.ResetPasswordExpires)

		_, err = repo.ConsumeResetToken(ctx, "reset-token-1", "$2a$04$anotherhash", time.Now())
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})

	t.Run("expired reset token rejected", func(t *testing.T) {
		require.NoError(t, repo.SetResetToken(ctx, user.ID, "reset-token-2", time.Now().Add(-time.Minute)))

		_, err := repo.ConsumeResetToken(ctx, "reset-token-2", "$2a$04$newhash", time.Now())
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})

	t.Run("unknown user not found", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})
}
