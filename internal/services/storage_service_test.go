// internal/services/storage_service_test.go
package services

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/gemstore-backend/internal/config"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D}

func testStorageConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: "8080"},
		AWS:    config.AWSConfig{S3Bucket: "gems", Region: "us-east-1"},
	}
}

func multipartUpload(t *testing.T, filename string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	file, header, err := req.FormFile("file")
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })
	return file, header
}

func TestIsValidImageType(t *testing.T) {
	assert.True(t, isValidImageType([]byte{0xFF, 0xD8, 0xFF, 0xE0}))
	assert.True(t, isValidImageType(pngHeader))
	assert.True(t, isValidImageType([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")))
	assert.True(t, isValidImageType([]byte("GIF89a")))
	assert.False(t, isValidImageType([]byte("%PDF-1.7")))
	assert.False(t, isValidImageType(nil))
}

func TestUploadImageLocal(t *testing.T) {
	svc := NewStorageServiceWithClient(testStorageConfig(), nil)
	svc.localDir = t.TempDir()

	file, header := multipartUpload(t, "Ruby.PNG", pngHeader)
	result, err := svc.UploadImage(file, header, "gemstones")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Key, "gemstones/"))
	assert.True(t, strings.HasSuffix(result.Key, ".png"))
	assert.Equal(t, "image/png", result.MimeType)
	assert.Equal(t, "http://localhost:8080/uploads/"+result.Key, result.URL)

	_, err = os.Stat(filepath.Join(svc.localDir, filepath.FromSlash(result.Key)))
	require.NoError(t, err)

	key, ok := svc.KeyFromURL(result.URL)
	require.True(t, ok)
	assert.Equal(t, result.Key, key)

	require.NoError(t, svc.DeleteFile(key))
	_, err = os.Stat(filepath.Join(svc.localDir, filepath.FromSlash(result.Key)))
	assert.True(t, os.IsNotExist(err))
}

func TestUploadImageRejections(t *testing.T) {
	svc := NewStorageServiceWithClient(testStorageConfig(), nil)
	svc.localDir = t.TempDir()

	file, header := multipartUpload(t, "notes.png", []byte("plain text, not an image"))
	_, err := svc.UploadImage(file, header, "gemstones")
	assert.True(t, errors.Is(err, ErrInvalidImage))

	file, header = multipartUpload(t, "anim.gif", []byte("GIF89a...."))
	_, err = svc.UploadImage(file, header, "gemstones")
	assert.True(t, errors.Is(err, ErrFileType))

	file, header = multipartUpload(t, "big.png", pngHeader)
	_, err = svc.UploadFile(file, header, UploadOptions{MaxSize: 4})
	assert.True(t, errors.Is(err, ErrFileTooLarge))
}

type fakeS3 struct {
	s3iface.S3API
	puts []*s3.PutObjectInput
}

func (f *fakeS3) PutObject(in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func TestUploadImageS3(t *testing.T) {
	cfg := testStorageConfig()
	cfg.AWS.CloudFrontURL = "https://cdn.example.com/"
	client := &fakeS3{}
	svc := NewStorageServiceWithClient(cfg, client)

	file, header := multipartUpload(t, "ruby.png", pngHeader)
	result, err := svc.UploadImage(file, header, "gemstones")
	require.NoError(t, err)

	require.Len(t, client.puts, 1)
	assert.Equal(t, "gems", aws.StringValue(client.puts[0].Bucket))
	assert.Equal(t, s3.ObjectCannedACLPublicRead, aws.StringValue(client.puts[0].ACL))
	assert.Equal(t, "https://cdn.example.com/"+result.Key, result.URL)

	key, ok := svc.KeyFromURL("https://gems.s3.us-east-1.amazonaws.com/gemstones/x.png")
	assert.True(t, ok)
	assert.Equal(t, "gemstones/x.png", key)

	_, err = NewStorageServiceWithClient(cfg, nil).GeneratePresignedURL("k", 0)
	assert.True(t, errors.Is(err, ErrS3Unconfigured))
}
