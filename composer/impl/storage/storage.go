package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
)

// Client writes objects. Bucket is a GCS bucket name or, for the local client, a directory.
type Client interface {
	SaveBytes(ctx context.Context, bucketName string, objectName string, data []byte) error
}

type gcsClient struct {
	storageClient *storage.Client
}

func New(storageClient *storage.Client) Client {
	return &gcsClient{storageClient: storageClient}
}

func (s *gcsClient) SaveBytes(ctx context.Context, bucketName string, objectName string, data []byte) error {
	writer := s.storageClient.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	writer.ContentType = mime.TypeByExtension(path.Ext(objectName))

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

type localClient struct{}

// NewLocal returns a client that treats the bucket as a directory on disk.
func NewLocal() Client {
	return localClient{}
}

func (localClient) SaveBytes(ctx context.Context, bucketName string, objectName string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := filepath.Join(bucketName, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}
