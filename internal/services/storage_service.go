// internal/services/storage_service.go
package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/gemstore-backend/internal/config"
)

var (
	ErrFileTooLarge   = errors.New("file exceeds maximum allowed size")
	ErrFileType       = errors.New("file type is not allowed")
	ErrInvalidImage   = errors.New("invalid image file")
	ErrS3Unconfigured = errors.New("S3 client not configured")
)

const LocalUploadDir = "uploads"

type StorageService struct {
	s3Client  s3iface.S3API
	bucket    string
	region    string
	cdnURL    string
	localDir  string
	publicURL string
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
	IsPublic     bool
}

// NewAWSSession returns nil without error when no AWS credentials are set, so
// storage and media fall back to their local behaviour.
func NewAWSSession(cfg config.AWSConfig) (*session.Session, error) {
	if cfg.AccessKeyID == "" {
		return nil, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return sess, nil
}

func NewStorageService(cfg *config.Config, sess *session.Session) *StorageService {
	var client s3iface.S3API
	if sess != nil {
		client = s3.New(sess)
	}
	return NewStorageServiceWithClient(cfg, client)
}

func NewStorageServiceWithClient(cfg *config.Config, client s3iface.S3API) *StorageService {
	publicURL := fmt.Sprintf("http://%s:%s", cfg.Server.Host, cfg.Server.Port)
	return &StorageService{
		s3Client:  client,
		bucket:    cfg.AWS.S3Bucket,
		region:    cfg.AWS.Region,
		cdnURL:    strings.TrimRight(cfg.AWS.CloudFrontURL, "/"),
		localDir:  LocalUploadDir,
		publicURL: publicURL,
	}
}

func (s *StorageService) UploadFile(file multipart.File, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error) {
	if options.MaxSize > 0 && header.Size > options.MaxSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, header.Size, options.MaxSize)
	}

	fileExt := strings.ToLower(filepath.Ext(header.Filename))
	if len(options.AllowedTypes) > 0 && !containsString(options.AllowedTypes, fileExt) {
		return nil, fmt.Errorf("%w: %s", ErrFileType, fileExt)
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(fileBytes)
	}

	key := s.generateFileName(header.Filename, options.Folder)
	if s.s3Client != nil {
		return s.uploadToS3(fileBytes, key, contentType, options.IsPublic)
	}
	return s.uploadToLocal(fileBytes, key, contentType)
}

// UploadImage checks the file signature before uploading.
func (s *StorageService) UploadImage(file multipart.File, header *multipart.FileHeader, category string) (*UploadResult, error) {
	if err := s.ValidateImage(file); err != nil {
		return nil, err
	}
	return s.UploadFile(file, header, s.GetDefaultUploadOptions(category))
}

func (s *StorageService) uploadToS3(fileBytes []byte, key, contentType string, isPublic bool) (*UploadResult, error) {
	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(fileBytes),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(fileBytes))),
	}
	if isPublic {
		params.ACL = aws.String(s3.ObjectCannedACLPublicRead)
	}

	if _, err := s.s3Client.PutObject(params); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		URL:      s.PublicURL(key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

// uploadToLocal writes under ./uploads, which the router serves at /uploads.
func (s *StorageService) uploadToLocal(fileBytes []byte, key, contentType string) (*UploadResult, error) {
	path := filepath.Join(s.localDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(path, fileBytes, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &UploadResult{
		URL:      s.PublicURL(key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) DeleteFile(key string) error {
	if s.s3Client == nil {
		path := filepath.Join(s.localDir, filepath.FromSlash(key))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete local file: %w", err)
		}
		return nil
	}

	if _, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

func (s *StorageService) GeneratePresignedURL(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		return "", ErrS3Unconfigured
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url, nil
}

// KeyFromURL recovers the object key from a URL this service produced.
func (s *StorageService) KeyFromURL(url string) (string, bool) {
	for _, prefix := range []string{s.cdnURL + "/", s.s3BaseURL(), s.publicURL + "/uploads/"} {
		if prefix != "/" && strings.HasPrefix(url, prefix) {
			return strings.TrimPrefix(url, prefix), true
		}
	}
	return "", false
}

func (s *StorageService) GetDefaultUploadOptions(category string) UploadOptions {
	switch category {
	case "gemstones":
		return UploadOptions{
			Folder:       "gemstones",
			MaxSize:      10 * 1024 * 1024, // 10MB
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".webp"},
			IsPublic:     true,
		}
	case "videos":
		return UploadOptions{
			Folder:       "videos/raw",
			MaxSize:      200 * 1024 * 1024, // 200MB
			AllowedTypes: []string{".mp4", ".mov", ".webm"},
			IsPublic:     false,
		}
	case "avatars":
		return UploadOptions{
			Folder:       "avatars",
			MaxSize:      2 * 1024 * 1024, // 2MB
			AllowedTypes: []string{".jpg", ".jpeg", ".png"},
			IsPublic:     true,
		}
	case "imports":
		return UploadOptions{
			Folder:       "imports",
			MaxSize:      5 * 1024 * 1024, // 5MB
			AllowedTypes: []string{".csv"},
			IsPublic:     false,
		}
	default:
		return UploadOptions{
			Folder:       "general",
			MaxSize:      5 * 1024 * 1024, // 5MB
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".pdf"},
			IsPublic:     false,
		}
	}
}

func (s *StorageService) generateFileName(originalName, folder string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	timestamp := time.Now().Format("20060102")
	filename := fmt.Sprintf("%s_%s%s", timestamp, uuid.New().String()[:8], ext)

	if folder != "" {
		return folder + "/" + filename
	}
	return filename
}

func (s *StorageService) PublicURL(key string) string {
	if s.s3Client == nil {
		return fmt.Sprintf("%s/uploads/%s", s.publicURL, key)
	}
	if s.cdnURL != "" {
		return fmt.Sprintf("%s/%s", s.cdnURL, key)
	}
	return s.s3BaseURL() + key
}

func (s *StorageService) s3BaseURL() string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, s.region)
}

func (s *StorageService) ValidateImage(file multipart.File) error {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind file: %w", err)
	}

	if !isValidImageType(buffer[:n]) {
		logrus.WithField("detected", http.DetectContentType(buffer[:n])).Debug("Rejected upload with unknown image signature")
		return ErrInvalidImage
	}
	return nil
}

func isValidImageType(buffer []byte) bool {
	switch {
	case len(buffer) >= 3 && buffer[0] == 0xFF && buffer[1] == 0xD8 && buffer[2] == 0xFF:
		return true // JPEG
	case len(buffer) >= 8 && bytes.Equal(buffer[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return true
	case len(buffer) >= 12 && string(buffer[0:4]) == "RIFF" && string(buffer[8:12]) == "WEBP":
		return true
	case len(buffer) >= 6 && (string(buffer[0:6]) == "GIF87a" || string(buffer[0:6]) == "GIF89a"):
		return true
	}
	return false
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
