package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"petii/db"
	"petii/models"
	"strings"

	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"
)

const searchLimit = 20

// RegisterInput is a validated registration request. PetNames pair with Pets by index.
type RegisterInput struct {
	Username       string
	Email          string
	Password       string
	Petname        string
	ProfilePicture *MediaFile
	Pets           []*MediaFile
	PetNames       []string
}

// ProfileUpdate holds the optional fields of a partial profile update.
type ProfileUpdate struct {
	Bio      *string
	Email    *string
	Username *string
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token  string       `json:"token"`
	UserID int64        `json:"userId"`
	User   *models.User `json:"user"`
}

type UserService struct {
	media  *MediaService
	tokens *TokenIssuer
}

func NewUserService(media *MediaService, tokens *TokenIssuer) *UserService {
	return &UserService{media: media, tokens: tokens}
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

func checkPassword(stored, password string) bool {
	saltHex, hashHex, ok := strings.Cut(stored, "$")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return subtle.ConstantTimeCompare(hash, want) == 1
}

// Register создаёт пользователя, загружает аватар и фото питомцев и выдаёт токен.
func (us *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" || email == "" || in.Password == "" {
		return nil, validationError("username, email and password are required")
	}
	if len(in.Pets) > models.MaxPets {
		return nil, fmt.Errorf("%w: at most %d pets allowed", ErrTooManyFiles, models.MaxPets)
	}

	var exists int64
	err := db.GetWriteDB(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&exists).Error
	if err != nil {
		return nil, fmt.Errorf("error checking if user exists: %w", err)
	}
	if exists > 0 {
		return nil, ErrAlreadyExists
	}

	passwordHash, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		Username: username,
		Email:    email,
		Password: passwordHash,
		Petname:  strings.TrimSpace(in.Petname),
	}
	if err := db.GetWriteDB(ctx).Create(&user).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Файлы кладутся под users/{id}/..., поэтому загрузка идёт после вставки.
	if err := us.storeUserMedia(ctx, &user, in); err != nil {
		if delErr := db.GetWriteDB(ctx).Delete(&models.User{}, user.ID).Error; delErr != nil {
			slog.Error("failed to roll back user after upload error", "user_id", user.ID, "error", delErr)
		}
		return nil, err
	}

	token, err := us.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, UserID: user.ID, User: &user}, nil
}

func (us *UserService) storeUserMedia(ctx context.Context, user *models.User, in RegisterInput) error {
	var uploaded []string
	fail := func(err error) error {
		if rmErr := us.media.Remove(context.WithoutCancel(ctx), uploaded...); rmErr != nil {
			slog.Warn("failed to remove user media", "user_id", user.ID, "error", rmErr)
		}
		return err
	}

	if in.ProfilePicture != nil {
		stored, err := us.media.Store(ctx, user.ID, "profile", "profilePicture", in.ProfilePicture)
		if err != nil {
			return fail(err)
		}
		uploaded = append(uploaded, stored.Path)
		user.ProfilePicture = stored.URL
	}

	for i, mf := range in.Pets {
		stored, err := us.media.Store(ctx, user.ID, "pets", fmt.Sprintf("pet%d", i), mf)
		if err != nil {
			return fail(err)
		}
		uploaded = append(uploaded, stored.Path)
		name := fmt.Sprintf("Pet %d", i+1)
		if i < len(in.PetNames) && strings.TrimSpace(in.PetNames[i]) != "" {
			name = strings.TrimSpace(in.PetNames[i])
		}
		user.Pets = append(user.Pets, models.Pet{UserID: user.ID, Name: name, PhotoURL: stored.URL})
	}

	if user.ProfilePicture != "" {
		err := db.GetWriteDB(ctx).Model(user).Update("profile_picture", user.ProfilePicture).Error
		if err != nil {
			return fail(fmt.Errorf("failed to save profile picture: %w", err))
		}
	}
	if len(user.Pets) > 0 {
		if err := db.GetWriteDB(ctx).Create(&user.Pets).Error; err != nil {
			return fail(fmt.Errorf("failed to save pets: %w", err))
		}
	}
	return nil
}

// Login checks the password and issues a fresh token.
func (us *UserService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).Preload("Pets").
		Where("username = ?", strings.TrimSpace(username)).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !checkPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}

	token, err := us.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, UserID: user.ID, User: &user}, nil
}

// GetProfile returns the user with pets and follow counts.
func (us *UserService) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).Preload("Pets").Take(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	profile := &models.Profile{User: user}
	if err := db.GetReadOnlyDB(ctx).Model(&models.Follow{}).
		Where("followee_id = ?", userID).Count(&profile.FollowersCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}
	if err := db.GetReadOnlyDB(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).Count(&profile.FollowingCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count following: %w", err)
	}
	return profile, nil
}

// UpdateProfile applies only the fields that are set.
func (us *UserService) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*models.Profile, error) {
	changes := map[string]any{}
	if upd.Bio != nil {
		changes["bio"] = strings.TrimSpace(*upd.Bio)
	}
	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		if email == "" {
			return nil, validationError("email cannot be empty")
		}
		changes["email"] = email
	}
	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if username == "" {
			return nil, validationError("username cannot be empty")
		}
		changes["username"] = username
	}

	if len(changes) > 0 {
		res := db.GetWriteDB(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(changes)
		if res.Error != nil {
			if db.IsDuplicateKey(res.Error) {
				return nil, ErrAlreadyExists
			}
			return nil, fmt.Errorf("failed to update profile: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}
	return us.GetProfile(ctx, userID)
}

// Search ищет пользователей по подстроке имени без учёта регистра, кроме самого себя.
func (us *UserService) Search(ctx context.Context, viewerID int64, query string) ([]models.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationError("username query is required")
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	users := make([]models.UserSummary, 0)
	err := db.GetReadOnlyDB(ctx).Model(&models.User{}).
		Select("id", "username", "profile_picture").
		Where("LOWER(username) LIKE ? ESCAPE '\\' AND id <> ?", pattern, viewerID).
		Order("username").
		Limit(searchLimit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
