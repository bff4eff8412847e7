package upload

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"moosedocs/internal/document/model"
	"moosedocs/pkg/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioUploader stores attachments in a MinIO (or any S3-compatible) bucket.
type MinioUploader struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base under which uploaded objects are reachable,
	// e.g. "https://blob.example.com".
	PublicURL string
}

func NewMinioUploader(ctx context.Context, cfg MinioConfig) (*MinioUploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &MinioUploader{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

func (u *MinioUploader) Upload(ctx context.Context, name, contentType string, size int64, r io.Reader) (model.FileAttachment, error) {
	object := uuid.NewString() + "-" + path.Base(name)

	_, err := u.client.PutObject(ctx, u.bucket, object, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to upload %s: %v", name, err)
		return model.FileAttachment{}, fmt.Errorf("upload %s: %w", name, err)
	}

	url := fmt.Sprintf("%s/%s/%s", u.publicURL, u.bucket, object)
	return model.FileAttachment{
		ID:   url,
		Name: name,
		URL:  url,
		Type: contentType,
		Size: size,
	}, nil
}
