// Package archive uploads finished run records to S3-compatible object
// storage. Archiving is optional; upload failures are reported to the
// caller, which logs and continues.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/repopilot/repo-pilot/internal/domain"
)

// Options configures the object storage target
type Options struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Uploader archives run records to a bucket
type Uploader struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// New creates an uploader
func New(opts Options, logger *slog.Logger) (*Uploader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object storage client: %w", err)
	}
	return &Uploader{client: client, bucket: opts.Bucket, logger: logger}, nil
}

// ObjectName returns the bucket key for a run record
func ObjectName(runID string) string {
	return "runs/" + runID + ".json"
}

// ArchiveRun uploads the run record as JSON, creating the bucket on
// first use.
func (u *Uploader) ArchiveRun(ctx context.Context, run *domain.PipelineRun) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket: %w", err)
	}
	if !exists {
		if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("creating bucket %s: %w", u.bucket, err)
		}
	}

	payload, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run: %w", err)
	}

	name := ObjectName(run.RunID)
	_, err = u.client.PutObject(ctx, u.bucket, name,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", name, err)
	}
	u.logger.Info("archived run", "run_id", run.RunID, "object", name, "bytes", len(payload))
	return nil
}
