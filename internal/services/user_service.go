// internal/services/user_service.go
package services

import (
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/gemstore-backend/internal/config"
	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

var (
	ErrWrongPassword = errors.New("current password is incorrect")
	ErrHasOpenOrders = errors.New("account has orders that are still in progress")
)

type UserService struct {
	db             *gorm.DB
	storageService *StorageService
	currency       config.CurrencyConfig
}

type UpdateUserProfileRequest struct {
	Username    string                 `json:"username,omitempty" validate:"omitempty,username"`
	ProfileData map[string]interface{} `json:"profile_data,omitempty"`
}

type UpdatePreferencesRequest struct {
	Currency             *string `json:"currency,omitempty" validate:"omitempty,currency_code"`
	EmailNotifications   *bool   `json:"email_notifications,omitempty"`
	OrderUpdates         *bool   `json:"order_updates,omitempty"`
	PromotionalEmails    *bool   `json:"promotional_emails,omitempty"`
	NewsletterSubscribed *bool   `json:"newsletter_subscribed,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,strong_password"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// Keys that only the system writes into profile_data.
var protectedProfileKeys = map[string]bool{
	"reset_token":              true,
	"reset_token_expires":      true,
	"email_verification_token": true,
}

func NewUserService(db *gorm.DB, storageService *StorageService, currency config.CurrencyConfig) *UserService {
	return &UserService{
		db:             db,
		storageService: storageService,
		currency:       currency,
	}
}

func (s *UserService) GetUserByID(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(userID uuid.UUID, req *UpdateUserProfileRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if req.Username != "" && req.Username != user.Username {
		var count int64
		if err := s.db.Model(&models.User{}).Where("username = ? AND id <> ?", req.Username, userID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		if count > 0 {
			return nil, ErrUsernameTaken
		}
		user.Username = req.Username
	}

	if req.ProfileData != nil {
		user.ProfileData = MergeProfileData(user.ProfileData, req.ProfileData)
	}

	if err := s.db.Model(user).Updates(map[string]interface{}{
		"username":     user.Username,
		"profile_data": user.ProfileData,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.recordActivity(userID, models.ActivityProfileUpdated, "Updated profile")
	return user, nil
}

// MergeProfileData overlays updates on existing profile data. A nil value
// removes the key; system-owned keys cannot be written.
func MergeProfileData(existing models.JSONB, updates map[string]interface{}) models.JSONB {
	merged := make(models.JSONB, len(existing)+len(updates))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range updates {
		if protectedProfileKeys[k] {
			continue
		}
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	return merged
}

func (s *UserService) UpdatePreferences(userID uuid.UUID, req *UpdatePreferencesRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	prefs := user.Preferences
	if req.Currency != nil {
		code := strings.ToUpper(*req.Currency)
		if !s.currency.IsSupported(code) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, code)
		}
		prefs.Currency = code
	}
	if req.EmailNotifications != nil {
		prefs.EmailNotifications = *req.EmailNotifications
	}
	if req.OrderUpdates != nil {
		prefs.OrderUpdates = *req.OrderUpdates
	}
	if req.PromotionalEmails != nil {
		prefs.PromotionalEmails = *req.PromotionalEmails
	}
	if req.NewsletterSubscribed != nil {
		prefs.NewsletterSubscribed = *req.NewsletterSubscribed
	}

	// Map form so false values are written.
	if err := s.db.Model(user).Updates(map[string]interface{}{
		"pref_currency":              prefs.Currency,
		"pref_email_notifications":   prefs.EmailNotifications,
		"pref_order_updates":         prefs.OrderUpdates,
		"pref_promotional_emails":    prefs.PromotionalEmails,
		"pref_newsletter_subscribed": prefs.NewsletterSubscribed,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}

	user.Preferences = prefs
	s.recordActivity(userID, models.ActivityProfileUpdated, "Updated preferences")
	return user, nil
}

func (s *UserService) ChangePassword(userID uuid.UUID, req *ChangePasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	if err := user.CheckPassword(req.CurrentPassword); err != nil {
		return ErrWrongPassword
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.Model(user).Update("password_hash", user.PasswordHash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.recordActivity(userID, models.ActivityPasswordChanged, "Changed password")
	return nil
}

// DeleteAccount soft-deletes the user after a password check. Accounts with
// orders that are not delivered or cancelled are kept.
func (s *UserService) DeleteAccount(userID uuid.UUID, req *DeleteAccountRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return ErrWrongPassword
	}

	var openOrders int64
	if err := s.db.Model(&models.Order{}).
		Where("user_id = ? AND status NOT IN ?", userID,
			[]models.OrderStatus{models.OrderStatusDelivered, models.OrderStatusCancelled}).
		Count(&openOrders).Error; err != nil {
		return fmt.Errorf("failed to check orders: %w", err)
	}
	if openOrders > 0 {
		return ErrHasOpenOrders
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&models.Favorite{}).Error; err != nil {
			return fmt.Errorf("failed to clear favorites: %w", err)
		}
		if err := tx.Delete(user).Error; err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		return nil
	})
}

func (s *UserService) UploadAvatar(userID uuid.UUID, file multipart.File, header *multipart.FileHeader) (*models.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	result, err := s.storageService.UploadFile(file, header, s.storageService.GetDefaultUploadOptions("avatars"))
	if err != nil {
		return nil, err
	}

	user.ProfileData = MergeProfileData(user.ProfileData, map[string]interface{}{"avatar_url": result.URL})
	if err := s.db.Model(user).Update("profile_data", user.ProfileData).Error; err != nil {
		return nil, fmt.Errorf("failed to save avatar: %w", err)
	}

	return user, nil
}

func (s *UserService) recordActivity(userID uuid.UUID, activityType models.ActivityType, message string) {
	if err := recordActivity(s.db, userID, activityType, message, nil); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("Failed to record activity")
	}
}
