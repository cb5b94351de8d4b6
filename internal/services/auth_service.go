// internal/services/auth_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/gemstore-backend/internal/config"
	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrAccountSuspended   = errors.New("account is suspended")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrAlreadyVerified    = errors.New("email already verified")
)

type AuthService struct {
	db                  *gorm.DB
	cfg                 *config.Config
	notificationService *NotificationService
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username    string                 `json:"username" validate:"required,username"`
	Email       string                 `json:"email" validate:"required,email"`
	Password    string                 `json:"password" validate:"required,strong_password"`
	Currency    string                 `json:"currency,omitempty" validate:"omitempty,currency_code"`
	ProfileData map[string]interface{} `json:"profile_data,omitempty"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"` // in seconds
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,strong_password"`
}

func NewAuthService(db *gorm.DB, cfg *config.Config, notificationService *NotificationService) *AuthService {
	return &AuthService{
		db:                  db,
		cfg:                 cfg,
		notificationService: notificationService,
	}
}

// Register creates a customer account. Admins are only created by seeding or
// by promoting an existing user.
func (s *AuthService) Register(req *RegisterRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existingUser models.User
	if err := s.db.Where("email = ? OR username = ?", email, req.Username).First(&existingUser).Error; err == nil {
		if existingUser.Email == email {
			return nil, ErrEmailTaken
		}
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" || !s.cfg.Currency.IsSupported(currency) {
		currency = s.cfg.Currency.BaseCurrency
	}

	verificationToken, err := utils.GenerateVerificationCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	profile := models.JSONB(req.ProfileData)
	if profile == nil {
		profile = make(models.JSONB)
	}
	profile["email_verification_token"] = verificationToken

	user := &models.User{
		Username: req.Username,
		Email:    email,
		Role:     models.UserRoleCustomer,
		Status:   models.UserStatusActive,
		Preferences: models.UserPreferences{
			Currency:           currency,
			EmailNotifications: true,
			OrderUpdates:       true,
		},
		ProfileData: profile,
	}

	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.notificationService != nil {
		go func() {
			if err := s.notificationService.SendWelcomeEmail(user, verificationToken); err != nil {
				logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to send welcome email")
			}
		}()
	}

	return s.issueTokens(user)
}

func (s *AuthService) Login(req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var user models.User
	if err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Status == models.UserStatusSuspended {
		return nil, ErrAccountSuspended
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.db.Model(&user).UpdateColumn("last_login_at", now).Error; err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login")
	}

	return s.issueTokens(&user)
}

func (s *AuthService) RefreshToken(refreshToken string) (*AuthResponse, error) {
	userIDStr, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrInvalidToken)
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if user.Status != models.UserStatusActive {
		return nil, ErrAccountSuspended
	}

	return s.issueTokens(user)
}

func (s *AuthService) issueTokens(user *models.User) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(user.ID, user.Username, string(user.Role), s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID, s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.cfg.JWT.AccessTokenTTL * 3600,
	}, nil
}

// ForgotPassword never reveals whether the email exists.
func (s *AuthService) ForgotPassword(req *ForgotPasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var user models.User
	if err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		return nil
	}

	resetToken, err := utils.GenerateVerificationCode()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	// TODO: move reset tokens to their own table so they can be revoked in bulk
	if user.ProfileData == nil {
		user.ProfileData = make(models.JSONB)
	}
	user.ProfileData["reset_token"] = resetToken
	user.ProfileData["reset_token_expires"] = time.Now().Add(1 * time.Hour).Unix()

	if err := s.db.Model(&user).Update("profile_data", user.ProfileData).Error; err != nil {
		return fmt.Errorf("failed to save reset token: %w", err)
	}

	if s.notificationService != nil {
		go func() {
			if err := s.notificationService.SendPasswordResetEmail(&user, resetToken); err != nil {
				logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to send password reset email")
			}
		}()
	}

	return nil
}

func (s *AuthService) ResetPassword(req *ResetPasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var user models.User
	if err := s.db.Where("profile_data->>'reset_token' = ?", req.Token).First(&user).Error; err != nil {
		return ErrInvalidToken
	}

	expiresAt, ok := user.ProfileData["reset_token_expires"].(float64)
	if !ok || time.Now().Unix() > int64(expiresAt) {
		return ErrInvalidToken
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	delete(user.ProfileData, "reset_token")
	delete(user.ProfileData, "reset_token_expires")

	if err := s.db.Model(&user).Updates(map[string]interface{}{
		"password_hash": user.PasswordHash,
		"profile_data":  user.ProfileData,
	}).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

func (s *AuthService) VerifyEmail(token string) error {
	var user models.User
	if err := s.db.Where("profile_data->>'email_verification_token' = ?", token).First(&user).Error; err != nil {
		return ErrInvalidToken
	}

	if user.EmailVerifiedAt != nil {
		return ErrAlreadyVerified
	}

	delete(user.ProfileData, "email_verification_token")
	if err := s.db.Model(&user).Updates(map[string]interface{}{
		"email_verified_at": time.Now(),
		"profile_data":      user.ProfileData,
	}).Error; err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}

	return nil
}

func (s *AuthService) GetUserByID(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}
