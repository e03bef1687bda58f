package utils

import (
	"context"
	"os"
	"strings"
	"time"
)

const (
	StorageProviderS3 = "s3"

	// Presigned URLs default to 24h.
	DefaultPresignExpiry = 86400 * time.Second
)

// ObjectStorage is the thin per-request client for file storage.
type ObjectStorage interface {
	Upload(ctx context.Context, bucket string, key string, data []byte, contentType string) error
	Presign(ctx context.Context, bucket string, key string, expiresIn time.Duration) (string, error)
	PresignUpload(ctx context.Context, bucket string, key string, contentType string, expiresIn time.Duration) (string, error)
	Delete(ctx context.Context, bucket string, key string) error
}

func GetStorageProvider() string {
	provider := strings.TrimSpace(strings.ToLower(os.Getenv("STORAGE_PROVIDER")))
	if provider == "" {
		return StorageProviderS3
	}
	return provider
}

func GetStorageBucket() string {
	return strings.TrimSpace(os.Getenv("S3_BUCKET"))
}

// BuildFilePath returns the canonical persisted form "s3://{bucket}/{key}".
func BuildFilePath(bucket string, key string) string {
	return "s3://" + bucket + "/" + strings.TrimPrefix(key, "/")
}

// SplitFilePath splits a canonical "s3://{bucket}/{key}" path. Returns
// ok=false for anything else.
func SplitFilePath(filePath string) (bucket string, key string, ok bool) {
	trimmed, found := strings.CutPrefix(filePath, "s3://")
	if !found {
		return "", "", false
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
