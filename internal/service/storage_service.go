package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"bimbel_asn_backend/internal/config"
	"bimbel_asn_backend/internal/util"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// FileStorage persists generated artifacts (result PDFs). Two providers:
// local disk for development, MinIO for deployments.
type FileStorage interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// NewFileStorage picks the provider from configuration.
func NewFileStorage(cfg config.StorageConfig) (FileStorage, error) {
	if cfg.Type == util.StorageMinio {
		return newMinioStorage(cfg)
	}
	return &localStorage{basePath: cfg.LocalPath}, nil
}

type localStorage struct {
	basePath string
}

func (s *localStorage) Save(_ context.Context, name string, data []byte, _ string) (string, error) {
	path := filepath.Join(s.basePath, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

type minioStorage struct {
	client *minio.Client
	bucket string
}

func newMinioStorage(cfg config.StorageConfig) (*minioStorage, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	return &minioStorage{client: client, bucket: cfg.MinioBucket}, nil
}

func (s *minioStorage) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return "", err
		}
	}

	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", s.bucket, name), nil
}
