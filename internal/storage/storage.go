// Package storage uploads project images to S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/oklog/ulid/v2"
)

// DefaultMaxBytes is the default upload size limit (5 MiB).
const DefaultMaxBytes int64 = 5 << 20

// Sentinel errors for uploads.
var (
	ErrNotConfigured   = errors.New("object storage not configured")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrTooLarge        = errors.New("file too large")
	ErrEmpty           = errors.New("file is empty")
)

// allowedTypes maps accepted content types to object key extensions.
var allowedTypes = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/webp":    ".webp",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
}

// Config configures the object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base URL objects are served from. Defaults to the
	// endpoint with the bucket as first path segment.
	PublicURL string
	MaxBytes  int64
}

// ObjectPutter is the subset of the minio client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts miniogo.PutObjectOptions) (miniogo.UploadInfo, error)
}

// Object is a file to upload.
type Object struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

// Result describes a stored object.
type Result struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Uploader stores images in a bucket.
type Uploader struct {
	client    ObjectPutter
	bucket    string
	publicURL string
	maxBytes  int64
	logger    *slog.Logger
	now       func() time.Time
}

// NewUploader connects to the configured endpoint.
// Returns ErrNotConfigured when endpoint or bucket are empty.
func NewUploader(cfg Config, logger *slog.Logger) (*Uploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	if cfg.PublicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		cfg.PublicURL = scheme + "://" + cfg.Endpoint + "/" + cfg.Bucket
	}

	logger.Info("object storage initialized",
		"endpoint", cfg.Endpoint,
		"bucket", cfg.Bucket,
	)

	return newUploader(client, cfg, logger), nil
}

func newUploader(client ObjectPutter, cfg Config, logger *slog.Logger) *Uploader {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &Uploader{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		maxBytes:  cfg.MaxBytes,
		logger:    logger.With("component", "storage"),
		now:       time.Now,
	}
}

// MaxBytes returns the upload size limit.
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Upload validates and stores obj under projects/YYYY/MM/<ulid><ext>.
func (u *Uploader) Upload(ctx context.Context, obj Object) (*Result, error) {
	contentType := normalizeContentType(obj.ContentType)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, obj.ContentType)
	}
	if obj.Size <= 0 {
		return nil, ErrEmpty
	}
	if obj.Size > u.maxBytes {
		return nil, ErrTooLarge
	}

	key := ObjectKey(u.now(), ext)
	opts := miniogo.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	}
	// SVG is served as a download, never rendered inline from the bucket.
	if contentType == "image/svg+xml" {
		opts.ContentDisposition = "attachment"
	}
	info, err := u.client.PutObject(ctx, u.bucket, key, obj.Body, obj.Size, opts)
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	u.logger.Info("object uploaded",
		"key", key,
		"size", info.Size,
		"content_type", contentType,
	)

	return &Result{
		URL:         u.publicURL + "/" + key,
		Key:         key,
		Size:        obj.Size,
		ContentType: contentType,
	}, nil
}

// ObjectKey builds the key of a new upload made at t.
func ObjectKey(t time.Time, ext string) string {
	t = t.UTC()
	return fmt.Sprintf("projects/%04d/%02d/%s%s", t.Year(), int(t.Month()), ulid.Make().String(), ext)
}

// DetectContentType resolves the type of an upload. Raster formats are
// sniffed from the first bytes; SVG cannot be sniffed and is taken from the
// declared type.
func DetectContentType(declared string, head []byte) string {
	sniffed := normalizeContentType(http.DetectContentType(head))
	if _, ok := allowedTypes[sniffed]; ok {
		return sniffed
	}
	if normalizeContentType(declared) == "image/svg+xml" {
		return "image/svg+xml"
	}
	return sniffed
}

func normalizeContentType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}
