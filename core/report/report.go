package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ledger-reconciler/core/storage"

	"github.com/minio/minio-go/v7"
)

// Document is the envelope every audit report is written inside, so a report
// read months later still says what produced it and when.
type Document struct {
	Mode        string    `json:"mode"`
	RunID       string    `json:"run_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Results     any       `json:"results"`
}

// NewDocument wraps per-account results in the report envelope.
func NewDocument(mode, runID string, results any) Document {
	return Document{
		Mode:        mode,
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Results:     results,
	}
}

// Filename returns the canonical name for a report produced by a run of the
// given mode, e.g. reconcile_check_1724572800.json. Commands compute the name
// once so the local file and the archived object match.
func Filename(mode string) string {
	return fmt.Sprintf("reconcile_%s_%d.json", mode, time.Now().Unix())
}

// Write renders v as indented JSON and writes it to dir under name. It
// returns the full path written.
func Write(dir, name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}

// Archive renders v as indented JSON and uploads it to the bucket under name,
// creating the bucket first if it does not exist.
func Archive(ctx context.Context, client storage.Client, bucket, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	_, err = client.PutObject(
		ctx,
		bucket,
		name,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("failed to upload report: %w", err)
	}

	return nil
}
