package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/config"
	"github.com/phrazzld/studyloop/internal/ingest"
	"google.golang.org/api/option"
)

// defaultPublicHost serves objects of publicly readable buckets.
const defaultPublicHost = "https://storage.googleapis.com"

// uploadTimeout bounds a single object write.
const uploadTimeout = 2 * time.Minute

// ErrEmptyImage is returned when asked to upload an image with no bytes.
var ErrEmptyImage = errors.New("image data is empty")

// ObjectWriter writes one object to a bucket.
type ObjectWriter interface {
	WriteObject(ctx context.Context, bucket, name, contentType string, r io.Reader) error
}

// clientWriter writes objects with a storage client.
type clientWriter struct {
	client *storage.Client
}

func (w clientWriter) WriteObject(ctx context.Context, bucket, name, contentType string, r io.Reader) error {
	ow := w.client.Bucket(bucket).Object(name).NewWriter(ctx)
	ow.ContentType = contentType
	if _, err := io.Copy(ow, r); err != nil {
		_ = ow.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := ow.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

// Uploader implements ingest.Uploader on top of a bucket.
type Uploader struct {
	writer        ObjectWriter
	bucket        string
	prefix        string
	publicBaseURL string
	logger        *slog.Logger
	newName       func() string
}

// NewUploader creates an Uploader with a storage client. It returns the
// client so the caller can close it on shutdown.
func NewUploader(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*Uploader, *storage.Client, error) {
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	u, err := NewUploaderWithWriter(clientWriter{client: client}, cfg, logger)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return u, client, nil
}

// NewUploaderWithWriter creates an Uploader around an existing writer.
func NewUploaderWithWriter(writer ObjectWriter, cfg config.StorageConfig, logger *slog.Logger) (*Uploader, error) {
	if writer == nil {
		return nil, errors.New("object writer cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name cannot be empty")
	}

	return &Uploader{
		writer:        writer,
		bucket:        cfg.Bucket,
		prefix:        strings.Trim(cfg.Prefix, "/"),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		logger:        logger.With("component", "gcs_uploader", "bucket", cfg.Bucket),
		newName:       uuid.NewString,
	}, nil
}

// Upload stores img under a fresh object name and returns its public URL.
func (u *Uploader) Upload(ctx context.Context, img ingest.PageImage) (string, error) {
	if len(img.Data) == 0 {
		return "", ErrEmptyImage
	}

	name := path.Join(u.prefix, u.newName()+extensionFor(img.MIMEType))

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	if err := u.writer.WriteObject(ctx, u.bucket, name, img.MIMEType, bytes.NewReader(img.Data)); err != nil {
		u.logger.ErrorContext(ctx, "screenshot upload failed", "object", name, "error", err)
		return "", err
	}

	url := u.PublicURL(name)
	u.logger.DebugContext(ctx, "screenshot uploaded", "object", name, "bytes", len(img.Data))
	return url, nil
}

// PublicURL returns the URL of object name.
func (u *Uploader) PublicURL(name string) string {
	if u.publicBaseURL != "" {
		return u.publicBaseURL + "/" + name
	}
	return defaultPublicHost + "/" + u.bucket + "/" + name
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}

var _ ingest.Uploader = (*Uploader)(nil)
