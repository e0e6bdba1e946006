package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/visionex-project/adcomposite/composer/impl/model"
)

// Number of retries of a single object write.
const MAX_RETRIES = 4

// Sink persists compositing results as <prefix>/<baseImageId>/<layoutId>.png plus a .json
// metadata object next to it.
type Sink struct {
	client Client
	// E.g., "my-bucket", "./out"
	bucket string
	// E.g., "campaigns/2024-new-year"
	prefix          string
	backoffDuration time.Duration
}

func NewSink(client Client, bucket string, prefix string, backoffDuration time.Duration) *Sink {
	return &Sink{client: client, bucket: bucket, prefix: prefix, backoffDuration: backoffDuration}
}

// Save writes every composite of result. It stops at the first object that still fails after retries.
func (s *Sink) Save(ctx context.Context, result model.CompositingResult) error {
	for _, composite := range result.Composites {
		metadata, err := json.MarshalIndent(composite.Metadata, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal metadata of %s: %w", composite.LayoutID, err)
		}

		base := ObjectName(s.prefix, result.BaseImageID, composite.LayoutID)
		if err := s.save(ctx, base+".png", composite.Image); err != nil {
			return err
		}
		if err := s.save(ctx, base+".json", metadata); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) save(ctx context.Context, objectName string, data []byte) error {
	err := backoff.Retry(func() error {
		return s.client.SaveBytes(ctx, s.bucket, objectName, data)
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(s.backoffDuration), MAX_RETRIES), ctx))
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", objectName, err)
	}
	return nil
}

// ObjectName is the object key of a composite without extension. E.g., "out/img-1/layout-2"
func ObjectName(prefix string, baseImageID string, layoutID string) string {
	return path.Join(prefix, baseImageID, layoutID)
}
