package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"estante/common"
	"estante/database"
	"estante/metrics"
	"estante/models"
)

type IdentityModule struct {
	db     *gorm.DB
	hasher *PasswordHasher
	tokens *TokenIssuer
	log    logrus.FieldLogger
}

// Token is the login response handed to clients.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ProfileUpdate carries optional profile changes; nil fields are left alone.
type ProfileUpdate struct {
	Name *string `json:"name"`
	Bio  *string `json:"bio"`
}

func NewIdentityModule(db *gorm.DB, cfg common.Config, log logrus.FieldLogger) *IdentityModule {
	return &IdentityModule{
		db:     db,
		hasher: NewPasswordHasher(cfg.BcryptCost),
		tokens: NewTokenIssuer(cfg.SecretKey, cfg.TokenTTL),
		log:    log.WithField("module", "identity"),
	}
}

// normalizeEmail is applied on every write and lookup so uniqueness is
// case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (m *IdentityModule) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return nil, common.Invalid("name is required")
	}
	if !strings.Contains(email, "@") {
		return nil, common.Invalid("email is invalid")
	}
	if password == "" {
		return nil, common.Invalid("password is required")
	}
	if len(password) > MaxPasswordBytes {
		return nil, common.Invalid("password must be at most %d bytes", MaxPasswordBytes)
	}

	passwordHash, err := m.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	}

	// the unique index on email arbitrates concurrent signups
	if err := m.db.WithContext(ctx).Create(&user).Error; err != nil {
		metrics.RecordAuth("signup", false)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, err
	}

	metrics.RecordAuth("signup", true)
	m.log.WithField("user_id", user.ID).Info("user registered")
	return &user, nil
}

// Authenticate issues a token for a valid email/password pair. Unknown
// emails and wrong passwords fail identically.
func (m *IdentityModule) Authenticate(ctx context.Context, email, password string) (*Token, error) {
	var user models.User
	err := m.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err != nil || !m.hasher.Verify(password, user.PasswordHash) {
		metrics.RecordAuth("login", false)
		return nil, common.ErrInvalidCredentials
	}

	accessToken, expiresAt, err := m.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	metrics.RecordAuth("login", true)
	return &Token{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// ResolveToken returns the user a token was issued to, provided the token
// is valid and the user still exists.
func (m *IdentityModule) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	userID, err := m.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := m.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}
	return &user, nil
}

func (m *IdentityModule) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := m.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, common.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

func (m *IdentityModule) UpdateProfile(ctx context.Context, actor *models.User, input ProfileUpdate) (*models.User, error) {
	updates := map[string]interface{}{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, common.Invalid("name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Bio != nil {
		updates["bio"] = *input.Bio
	}

	if len(updates) > 0 {
		result := m.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", actor.ID).Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, fmt.Errorf("user %d: %w", actor.ID, common.ErrNotFound)
		}
	}

	return m.GetUser(ctx, actor.ID)
}

// DeleteUser removes the acting user's account and everything they own in
// one transaction.
func (m *IdentityModule) DeleteUser(ctx context.Context, actor *models.User) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return database.DeleteUser(tx, actor.ID)
	})
	if err != nil {
		return err
	}

	m.log.WithField("user_id", actor.ID).Info("user deleted")
	return nil
}
