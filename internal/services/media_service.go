// internal/services/media_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/lambda/lambdaiface"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/gemstore-backend/internal/models"
)

var ErrMediaUnavailable = errors.New("video optimization is not configured")

// MediaService hands uploaded gemstone videos to the optimization function,
// which writes the transcoded file back to the bucket.
type MediaService struct {
	db           *gorm.DB
	lambda       lambdaiface.LambdaAPI
	functionName string
	bucket       string
	storage      *StorageService
}

type OptimizeVideoRequest struct {
	SourceKey string `json:"source_key" validate:"required"`
}

type OptimizeVideoResult struct {
	GemstoneID uuid.UUID `json:"gemstone_id"`
	SourceKey  string    `json:"source_key"`
	OutputKey  string    `json:"output_key"`
	VideoURL   string    `json:"video_url"`
	Status     string    `json:"status"`
}

type videoOptimizePayload struct {
	Bucket     string `json:"bucket"`
	SourceKey  string `json:"source_key"`
	OutputKey  string `json:"output_key"`
	GemstoneID string `json:"gemstone_id"`
}

func NewMediaService(db *gorm.DB, sess *session.Session, functionName, bucket string, storage *StorageService) *MediaService {
	var client lambdaiface.LambdaAPI
	if sess != nil && functionName != "" {
		client = lambda.New(sess)
	}
	return NewMediaServiceWithClient(db, client, functionName, bucket, storage)
}

func NewMediaServiceWithClient(db *gorm.DB, client lambdaiface.LambdaAPI, functionName, bucket string, storage *StorageService) *MediaService {
	return &MediaService{
		db:           db,
		lambda:       client,
		functionName: functionName,
		bucket:       bucket,
		storage:      storage,
	}
}

func (s *MediaService) Enabled() bool {
	return s.lambda != nil && s.functionName != ""
}

// OptimizedKey is where the optimizer writes the transcoded video.
func OptimizedKey(gemstoneID uuid.UUID) string {
	return fmt.Sprintf("videos/optimized/%s.mp4", gemstoneID)
}

// OptimizeVideo invokes the function asynchronously and points the gemstone's
// video_url at the output location.
func (s *MediaService) OptimizeVideo(ctx context.Context, gemstoneID uuid.UUID, sourceKey string) (*OptimizeVideoResult, error) {
	if !s.Enabled() {
		return nil, ErrMediaUnavailable
	}
	if sourceKey == "" {
		return nil, fmt.Errorf("%w: source key is required", ErrInvalidInput)
	}

	var gemstone models.Gemstone
	if err := s.db.WithContext(ctx).Select("id").First(&gemstone, "id = ?", gemstoneID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGemstoneNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	payload := videoOptimizePayload{
		Bucket:     s.bucket,
		SourceKey:  sourceKey,
		OutputKey:  OptimizedKey(gemstoneID),
		GemstoneID: gemstoneID.String(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	out, err := s.lambda.InvokeWithContext(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(s.functionName),
		InvocationType: aws.String(lambda.InvocationTypeEvent),
		Payload:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke video optimizer: %w", err)
	}
	if out.StatusCode != nil && *out.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("video optimizer returned status %d", *out.StatusCode)
	}

	videoURL := payload.OutputKey
	if s.storage != nil {
		videoURL = s.storage.PublicURL(payload.OutputKey)
	}
	if err := s.db.WithContext(ctx).Model(&models.Gemstone{}).Where("id = ?", gemstoneID).
		Update("video_url", videoURL).Error; err != nil {
		return nil, fmt.Errorf("failed to store video url: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"gemstone_id": gemstoneID,
		"source_key":  sourceKey,
		"function":    s.functionName,
	}).Info("Video optimization queued")

	return &OptimizeVideoResult{
		GemstoneID: gemstoneID,
		SourceKey:  sourceKey,
		OutputKey:  payload.OutputKey,
		VideoURL:   videoURL,
		Status:     "queued",
	}, nil
}
