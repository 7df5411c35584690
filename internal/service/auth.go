// Package service contains the business logic behind the handlers. Nothing
// in here knows about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"bitwise74/seed-swap/internal/apperr"
	"bitwise74/seed-swap/internal/model"
	"bitwise74/seed-swap/internal/storage"
	"bitwise74/seed-swap/pkg/security"
	"bitwise74/seed-swap/pkg/util"
	"bitwise74/seed-swap/pkg/validators"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const idLength = 16

const (
	msgEmailTaken    = "Email already in use."
	msgUsernameTaken = "Username already taken."

	msgPasswordTooLong = "Password must be at most 72 bytes"
)

type RegisterInput struct {
	Username string `form:"username" validate:"required,min=3,max=32"`
	Email    string `form:"email" validate:"required,email,max=254"`
	Password string `form:"password" validate:"required,min=6,max=72"`
	Location string `form:"location" validate:"max=100"`
	Bio      string `form:"bio" validate:"max=1000"`
}

type LoginInput struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

type ProfileInput struct {
	Username string `form:"username" validate:"required,min=3,max=32"`
	Email    string `form:"email" validate:"required,email,max=254"`
	Location string `form:"location" validate:"max=100"`
	Bio      string `form:"bio" validate:"max=1000"`
}

type AuthService struct {
	DB     *gorm.DB
	Hasher *security.PasswordHasher
	Images storage.Store
	Mailer Mailer // Optional

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(db *gorm.DB, h *security.PasswordHasher, images storage.Store, m Mailer) *AuthService {
	return &AuthService{
		DB:     db,
		Hasher: h,
		Images: images,
		Mailer: m,
	}
}

// Register creates a new user. The caller is responsible for starting a
// session for the returned user.
func (a *AuthService) Register(ctx context.Context, in RegisterInput, image storage.Upload) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = validators.NormalizeEmail(in.Email)
	in.Location = strings.TrimSpace(in.Location)
	in.Bio = strings.TrimSpace(in.Bio)

	if err := validators.Struct(in); err != nil {
		return nil, err
	}

	// The max tag counts runes, bcrypt counts bytes
	if len(in.Password) > security.MaxPasswordBytes {
		return nil, apperr.Validation("password", msgPasswordTooLong)
	}

	if err := a.checkUnique(ctx, "", in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := a.Hasher.GenerateFromPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password, %w", err)
	}

	userID, err := util.NewID(idLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID, %w", err)
	}

	var profileImage string
	if !image.Empty() {
		profileImage, err = a.Images.Store(ctx, storage.FolderProfiles, image)
		if err != nil {
			return nil, err
		}
	}

	user := &model.User{
		ID:           userID,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Location:     in.Location,
		Bio:          in.Bio,
		ProfileImage: profileImage,
	}

	if err := a.DB.WithContext(ctx).Create(user).Error; err != nil {
		a.dropImage(profileImage)

		// Lost a race with another registration between the check and the insert
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("email", msgEmailTaken)
		}

		return nil, fmt.Errorf("failed to create user, %w", err)
	}

	if a.Mailer != nil {
		if err := a.Mailer.SendWelcome(user.Email, user.Username); err != nil {
			zap.L().Warn("Failed to send welcome mail", zap.String("userID", user.ID), zap.Error(err))
		}
	}

	return user, nil
}

// Login checks the credentials and returns the matching user. Unknown
// emails and wrong passwords produce the exact same error.
func (a *AuthService) Login(ctx context.Context, in LoginInput) (*model.User, error) {
	email := validators.NormalizeEmail(in.Email)

	var user model.User
	err := a.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up user, %w", err)
		}

		// Spend the same time as a real comparison so response times
		// don't tell which emails are registered
		a.Hasher.VerifyPasswd(in.Password, a.fakeHash())
		return nil, apperr.InvalidCredentials()
	}

	ok, err := a.Hasher.VerifyPasswd(in.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		return nil, apperr.InvalidCredentials()
	}

	return &user, nil
}

// CurrentUser returns the user bound to a session
func (a *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperr.NotFound("User not found")
	}

	var user model.User
	err := a.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}

		return nil, fmt.Errorf("failed to fetch user, %w", err)
	}

	return &user, nil
}

// UpdateProfile changes the profile of userID. The profile image is only
// replaced when image carries a new file.
func (a *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileInput, image storage.Upload) (*model.User, error) {
	user, err := a.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = validators.NormalizeEmail(in.Email)
	in.Location = strings.TrimSpace(in.Location)
	in.Bio = strings.TrimSpace(in.Bio)

	if err := validators.Struct(in); err != nil {
		return nil, err
	}

	if err := a.checkUnique(ctx, user.ID, in.Username, in.Email); err != nil {
		return nil, err
	}

	updates := map[string]any{
		"username": in.Username,
		"email":    in.Email,
		"location": in.Location,
		"bio":      in.Bio,
	}

	oldImage := user.ProfileImage
	var newImage string

	if !image.Empty() {
		newImage, err = a.Images.Store(ctx, storage.FolderProfiles, image)
		if err != nil {
			return nil, err
		}

		updates["profile_image"] = newImage
	}

	err = a.DB.WithContext(ctx).
		Model(user).
		Where("id = ?", user.ID).
		Updates(updates).
		Error
	if err != nil {
		a.dropImage(newImage)

		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("email", msgEmailTaken)
		}

		return nil, fmt.Errorf("failed to update profile, %w", err)
	}

	if newImage != "" {
		a.dropImage(oldImage)
	}

	return a.CurrentUser(ctx, user.ID)
}

// checkUnique reports a conflict when another user than exceptID already
// holds the username or the email
func (a *AuthService) checkUnique(ctx context.Context, exceptID, username, email string) error {
	var taken []model.User

	err := a.DB.WithContext(ctx).
		Select("id", "username", "email").
		Where("(email = ? OR username = ?) AND id <> ?", email, username, exceptID).
		Find(&taken).
		Error
	if err != nil {
		return fmt.Errorf("failed to check if user is registered, %w", err)
	}

	for _, u := range taken {
		if u.Email == email {
			return apperr.Conflict("email", msgEmailTaken)
		}
	}

	if len(taken) > 0 {
		return apperr.Conflict("username", msgUsernameTaken)
	}

	return nil
}

func (a *AuthService) fakeHash() string {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = a.Hasher.GenerateFromPassword("seed-swap-timing-equalizer")
	})

	return a.dummyHash
}

// dropImage removes an image that ended up unused. Failures only leave an
// orphaned object behind so they're logged and ignored.
func (a *AuthService) dropImage(ref string) {
	if ref == "" {
		return
	}

	if err := a.Images.Remove(context.Background(), ref); err != nil {
		zap.L().Warn("Failed to remove unused image", zap.String("ref", ref), zap.Error(err))
	}
}
