package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"portal-backend/shared/config"
	"portal-backend/shared/logger"
)

// MinIOService stores ID documents and profile pictures.
type MinIOService struct {
	client     *minio.Client
	bucketName string
	urlExpiry  time.Duration
}

func NewMinIOService(ctx context.Context) (*MinIOService, error) {
	cfg := config.GetConfig()

	parsedURL, err := url.Parse(cfg.MinIOServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MinIO endpoint: %w", err)
	}

	endpoint := parsedURL.Host
	logger.L().Info("connecting to MinIO", zap.String("endpoint", endpoint), zap.Bool("ssl", cfg.MinIOUseSSL))

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIORootUser, cfg.MinIORootPassword, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	service := &MinIOService{
		client:     minioClient,
		bucketName: cfg.MinIOBucketName,
		urlExpiry:  cfg.PresignedURLExpiry(),
	}

	if err := service.initializeBucket(ctx); err != nil {
		return nil, err
	}

	return service, nil
}

func (s *MinIOService) initializeBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.L().Info("MinIO bucket created", zap.String("bucket", s.bucketName))
	}

	return nil
}

// TestConnection lists buckets to check credentials and reachability.
func (s *MinIOService) TestConnection(ctx context.Context) error {
	if _, err := s.client.ListBuckets(ctx); err != nil {
		return fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	return nil
}

func (s *MinIOService) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	logger.WithContext(ctx).Info("object uploaded", zap.String("key", key), zap.Int64("size", size))
	return nil
}

// URL returns a presigned GET URL for key.
func (s *MinIOService) URL(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, key, s.urlExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return u.String(), nil
}

func (s *MinIOService) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}
