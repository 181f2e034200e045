// Package gcs uploads finished result files to Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/markercheck/internal/hash/sha256"
)

// Config captures the upload destination.
type Config struct {
	Bucket string
	// Object is the destination name. Empty means the local file's base name.
	Object string
}

// Uploader copies a local file into a configured GCS bucket.
type Uploader struct {
	client *storage.Client
	bucket string
	object string
}

// New creates an Uploader. Authentication is left to the client.
func New(client *storage.Client, cfg Config) (*Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Uploader{
		client: client,
		bucket: cfg.Bucket,
		object: cfg.Object,
	}, nil
}

// ObjectName returns the object that localPath is uploaded to.
func (u *Uploader) ObjectName(localPath string) string {
	if u.object != "" {
		return u.object
	}
	return filepath.Base(localPath)
}

// UploadFile uploads the file at localPath as text/csv and returns a gs:// URI.
// The object carries the file's SHA-256 digest in its "sha256" metadata.
func (u *Uploader) UploadFile(ctx context.Context, localPath string) (string, error) {
	digest, err := sha256.File(localPath)
	if err != nil {
		return "", err //nolint:wrapcheck // already names the path
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()
	return u.Put(ctx, u.ObjectName(localPath), "text/csv", map[string]string{"sha256": digest}, f)
}

// Put uploads r to object.
func (u *Uploader) Put(
	ctx context.Context,
	object string,
	contentType string,
	metadata map[string]string,
	r io.Reader,
) (string, error) {
	if strings.TrimSpace(object) == "" {
		return "", fmt.Errorf("object name is required")
	}
	// Canceling the writer's context abandons the upload; Close would commit
	// whatever was copied so far.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	writer := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if len(metadata) > 0 {
		writer.Metadata = metadata
	}
	if _, err := io.Copy(writer, r); err != nil {
		cancel()
		_ = writer.Close()
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", u.bucket, object), nil
}
