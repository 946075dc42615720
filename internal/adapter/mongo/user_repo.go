package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/askarbek/auth-service/internal/entity"
	"github.com/askarbek/auth-service/internal/platform/logger"
	"github.com/askarbek/auth-service/internal/port/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const usersCollection = "users"

type mongoUser struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	Name                 string             `bson:"name"`
	Email                string             `bson:"email"`
	PasswordHash         string             `bson:"password_hash"`
	Role                 string             `bson:"role"`
	IsVerified           bool               `bson:"is_verified"`
	VerificationToken    string             `bson:"verification_token,omitempty"`
	ResetPasswordToken   string             `bson:"reset_password_token,omitempty"`
	ResetPasswordExpires *time.Time         `bson:"reset_password_expires,omitempty"`
	CreatedAt            time.Time          `bson:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at"`
}

func (m *mongoUser) toEntity() *entity.User {
	return &entity.User{
		ID:                   m.ID,
		Name:                 m.Name,
		Email:                m.Email,
		PasswordHash:         m.PasswordHash,
		Role:                 m.Role,
		IsVerified:           m.IsVerified,
		VerificationToken:    m.VerificationToken,
		ResetPasswordToken:   m.ResetPasswordToken,
		ResetPasswordExpires: m.ResetPasswordExpires,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func fromEntity(e *entity.User) *mongoUser {
	return &mongoUser{
		ID:                   e.ID,
		Name:                 e.Name,
		Email:                e.Email,
		PasswordHash:         e.PasswordHash,
		Role:                 e.Role,
		IsVerified:           e.IsVerified,
		VerificationToken:    e.VerificationToken,
		ResetPasswordToken:   e.ResetPasswordToken,
		ResetPasswordExpires: e.ResetPasswordExpires,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

// UserRepository implements the persistence port on a MongoDB collection.
type UserRepository struct {
	db     *mongo.Database
	logger *logger.Logger
}

// NewUserRepository ensures the uniqueness indexes and returns the repository.
// Email is globally unique; the token indexes are sparse so records without an
// in-flight token do not collide.
func NewUserRepository(db *mongo.Database, log *logger.Logger) *UserRepository {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	coll := db.Collection(usersCollection)
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "verification_token", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "reset_password_token", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Warn("Failed to create indexes for users collection (may already exist)", zap.Error(err))
	} else {
		log.Info("Successfully ensured indexes for users collection")
	}

	return &UserRepository{
		db:     db,
		logger: log.Named("UserRepository"),
	}
}

func (r *UserRepository) collection() *mongo.Collection {
	return r.db.Collection(usersCollection)
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) (primitive.ObjectID, error) {
	r.logger.Debug("Creating user", zap.String("email", user.Email))

	dbUser := fromEntity(user)
	if dbUser.ID.IsZero() {
		dbUser.ID = primitive.NewObjectID()
	}
	now := time.Now()
	dbUser.CreatedAt = now
	dbUser.UpdatedAt = now

	if _, err := r.collection().InsertOne(ctx, dbUser); err != nil {
		var writeException mongo.WriteException
		if errors.As(err, &writeException) {
			for _, writeError := range writeException.WriteErrors {
				if writeError.Code == 11000 && strings.Contains(writeError.Message, "email_1") {
					r.logger.Warn("Duplicate email during user creation", zap.String("email", user.Email))
					return primitive.NilObjectID, repository.ErrDuplicateEmail
				}
			}
		}
		r.logger.Error("Database error during user creation", zap.String("email", user.Email), zap.Error(err))
		return primitive.NilObjectID, err
	}

	r.logger.Info("User created", zap.String("userID", dbUser.ID.Hex()))
	return dbUser.ID, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var dbUser mongoUser
	err := r.collection().FindOne(ctx, bson.M{"email": email}).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrUserNotFound
		}
		r.logger.Error("Database error fetching user by email", zap.Error(err))
		return nil, err
	}
	return dbUser.toEntity(), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error) {
	var dbUser mongoUser
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrUserNotFound
		}
		r.logger.Error("Database error fetching user by ID", zap.String("userID", id.Hex()), zap.Error(err))
		return nil, err
	}
	return dbUser.toEntity(), nil
}

func (r *UserRepository) SetVerificationToken(ctx context.Context, id primitive.ObjectID, token string) error {
	update := bson.M{
		"$set": bson.M{
			"verification_token": token,
			"updated_at":         time.Now(),
		},
	}
	result, err := r.collection().UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		r.logger.Error("DB error saving verification token", zap.String("userID", id.Hex()), zap.Error(err))
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

// ConsumeVerificationToken flips is_verified and removes the token in a single
// document update, so a replay of the same token cannot match again.
func (r *UserRepository) ConsumeVerificationToken(ctx context.Context, token string) (*entity.User, error) {
	update := bson.M{
		"$set": bson.M{
			"is_verified": true,
			"updated_at":  time.Now(),
		},
		"$unset": bson.M{
			"verification_token": "",
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var dbUser mongoUser
	err := r.collection().FindOneAndUpdate(ctx, bson.M{"verification_token": token}, update, opts).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrUserNotFound
		}
		r.logger.Error("DB error consuming verification token", zap.Error(err))
		return nil, err
	}

	r.logger.Info("Email marked as verified", zap.String("userID", dbUser.ID.Hex()))
	return dbUser.toEntity(), nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expiresAt time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"reset_password_token":   token,
			"reset_password_expires": expiresAt,
			"updated_at":             time.Now(),
		},
	}
	result, err := r.collection().UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		r.logger.Error("DB error saving reset token", zap.String("userID", id.Hex()), zap.Error(err))
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

// ConsumeResetToken matches only tokens whose expiry is still in the future and
// replaces the password hash while clearing both reset fields atomically.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*entity.User, error) {
	filter := bson.M{
		"reset_password_token":   token,
		"reset_password_expires": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set": bson.M{
			"password_hash": passwordHash,
			"updated_at":    now,
		},
		"$unset": bson.M{
			"reset_password_token":   "",
			"reset_password_expires": "",
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var dbUser mongoUser
	err := r.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrUserNotFound
		}
		r.logger.Error("DB error consuming reset token", zap.Error(err))
		return nil, err
	}

	r.logger.Info("Password reset applied", zap.String("userID", dbUser.ID.Hex()))
	return dbUser.toEntity(), nil
}
