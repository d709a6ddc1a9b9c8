package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioMirror copies saved images into a bucket so they survive the local directory.
type MinioMirror struct {
	client     *minio.Client
	bucketName string
	region     string
}

// NewMinioMirror buat koneksi MinIO dan pastikan bucket ada
func NewMinioMirror(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*MinioMirror, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &MinioMirror{client: cli, bucketName: bucket, region: region}, nil
}

// Upload copies the local image at localPath to key and returns its URL.
// The local file is left in place; the history still points at it.
func (m *MinioMirror) Upload(ctx context.Context, localPath, key string) (string, error) {
	_, err := m.client.FPutObject(ctx, m.bucketName, key, localPath, minio.PutObjectOptions{
		ContentType: contentTypeFor(localPath),
	})
	if err != nil {
		return "", fmt.Errorf("mirror %s: %w", key, err)
	}

	// URL publik (jika bucket public), kalau private harus generate presigned URL
	return fmt.Sprintf("%s/%s/%s", m.client.EndpointURL().String(), m.bucketName, key), nil
}

// Check implements middleware.HealthChecker.
func (m *MinioMirror) Check(ctx context.Context) error {
	ok, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s not found", m.bucketName)
	}
	return nil
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
