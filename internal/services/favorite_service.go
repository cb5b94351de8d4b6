// internal/services/favorite_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

type FavoriteService struct {
	db *gorm.DB
}

func NewFavoriteService(db *gorm.DB) *FavoriteService {
	return &FavoriteService{db: db}
}

func (s *FavoriteService) List(userID uuid.UUID, params utils.PaginationParams) ([]models.Favorite, int64, error) {
	query := s.db.Model(&models.Favorite{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count favorites: %w", err)
	}

	var favorites []models.Favorite
	if err := utils.ApplyPagination(query.Preload("Gemstone").Order("created_at DESC"), params).
		Find(&favorites).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch favorites: %w", err)
	}
	return favorites, total, nil
}

// Add is idempotent: favoriting twice returns the existing row.
func (s *FavoriteService) Add(userID, gemstoneID uuid.UUID) (*models.Favorite, error) {
	var gemstone models.Gemstone
	if err := s.db.First(&gemstone, "id = ?", gemstoneID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGemstoneNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !gemstone.IsVisible() {
		return nil, ErrGemstoneNotFound
	}

	favorite := models.Favorite{UserID: userID, GemstoneID: gemstoneID}
	result := s.db.Omit("Gemstone").Clauses(clause.OnConflict{DoNothing: true}).Create(&favorite)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to add favorite: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		if err := s.db.Where("user_id = ? AND gemstone_id = ?", userID, gemstoneID).First(&favorite).Error; err != nil {
			return nil, fmt.Errorf("failed to load favorite: %w", err)
		}
	} else if err := recordActivity(s.db, userID, models.ActivityFavoriteAdded,
		fmt.Sprintf("Added %s to favorites", gemstone.Name),
		models.JSONB{"gemstone_id": gemstoneID.String()}); err != nil {
		logrus.WithError(err).Warn("Failed to record favorite activity")
	}

	favorite.Gemstone = gemstone
	return &favorite, nil
}

func (s *FavoriteService) Remove(userID, gemstoneID uuid.UUID) error {
	result := s.db.Unscoped().Where("user_id = ? AND gemstone_id = ?", userID, gemstoneID).Delete(&models.Favorite{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove favorite: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrGemstoneNotFound
	}
	return nil
}

func (s *FavoriteService) IsFavorite(userID, gemstoneID uuid.UUID) (bool, error) {
	var count int64
	if err := s.db.Model(&models.Favorite{}).
		Where("user_id = ? AND gemstone_id = ?", userID, gemstoneID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("database error: %w", err)
	}
	return count > 0, nil
}
