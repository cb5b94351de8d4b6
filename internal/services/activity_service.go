// internal/services/activity_service.go
package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

type ActivityService struct {
	db *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{db: db}
}

func (s *ActivityService) Record(userID uuid.UUID, activityType models.ActivityType, message string, metadata models.JSONB) error {
	return recordActivity(s.db, userID, activityType, message, metadata)
}

// ListForUser returns the feed newest first, optionally narrowed to one type.
func (s *ActivityService) ListForUser(userID uuid.UUID, activityType string, params utils.PaginationParams) ([]models.Activity, int64, error) {
	query := s.db.Model(&models.Activity{}).Where("user_id = ?", userID)
	if activityType != "" {
		query = query.Where("type = ?", activityType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count activities: %w", err)
	}

	var activities []models.Activity
	if err := utils.ApplyPagination(query.Order("created_at DESC"), params).Find(&activities).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch activities: %w", err)
	}
	return activities, total, nil
}

func recordActivity(db *gorm.DB, userID uuid.UUID, activityType models.ActivityType, message string, metadata models.JSONB) error {
	activity := models.Activity{
		UserID:   userID,
		Type:     activityType,
		Message:  message,
		Metadata: metadata,
	}
	if err := db.Create(&activity).Error; err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}
