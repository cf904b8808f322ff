// internal/services/storage_service.go
package services

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/zenwallet/loan-origination/internal/config"
)

// StorageService archives customer document media in S3. Without AWS
// credentials it degrades to pass-through mode and keeps the original
// WhatsApp media URL, which is enough for local development.
type StorageService struct {
	s3Client *s3.S3
	cfg      *config.AWSConfig
	client   *http.Client
}

type StoredFile struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

func NewStorageService(cfg *config.AWSConfig) (*StorageService, error) {
	service := &StorageService{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}

	if cfg.AccessKeyID == "" {
		return service, nil
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

	service.s3Client = s3.New(sess)
	return service, nil
}

// ArchiveMedia downloads media from its source URL and stores it under
// documents/<leadID>/. In pass-through mode the source URL is returned as is.
func (s *StorageService) ArchiveMedia(leadID uuid.UUID, mediaURL, mimeType string) (*StoredFile, error) {
	if s.s3Client == nil {
		return &StoredFile{URL: mediaURL, Key: mediaURL, MimeType: mimeType}, nil
	}

	resp, err := s.client.Get(mediaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media download returned status %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read media: %w", err)
	}

	key := s.generateKey(leadID, mimeType)
	return s.upload(content, key, mimeType)
}

func (s *StorageService) upload(content []byte, key, mimeType string) (*StoredFile, error) {
	_, err := s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentType:   aws.String(mimeType),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &StoredFile{
		URL:      fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.S3Bucket, s.cfg.Region, key),
		Key:      key,
		Size:     int64(len(content)),
		MimeType: mimeType,
	}, nil
}

func (s *StorageService) DeleteFile(key string) error {
	if s.s3Client == nil {
		return nil
	}

	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

// GeneratePresignedURL issues a temporary download link, used by the admin
// API so reviewers can inspect documents without public bucket access.
func (s *StorageService) GeneratePresignedURL(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		return "", fmt.Errorf("S3 client not configured")
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.cfg.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url, nil
}

func (s *StorageService) generateKey(leadID uuid.UUID, mimeType string) string {
	ext := extensionForMime(mimeType)
	filename := fmt.Sprintf("%s_%s%s", time.Now().Format("20060102"), uuid.New().String()[:8], ext)
	return path.Join("documents", leadID.String(), filename)
}

func extensionForMime(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "application/pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}
