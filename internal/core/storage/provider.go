// Package storage mirrors the raw FATURA dataset between the local input
// directory and a remote object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("object not found")

// Object is one stored file
type Object struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// Provider defines the interface for dataset storage backends
type Provider interface {
	// Put stores body under key, replacing any existing object
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64) error

	// Exists reports whether key is stored
	Exists(ctx context.Context, key string) (bool, error)

	// List returns every object whose key starts with prefix, sorted by key
	List(ctx context.Context, prefix string) ([]Object, error)

	// Get copies the object stored under key into w
	Get(ctx context.Context, key string, w io.Writer) error

	// GetProviderName returns the provider name
	GetProviderName() string
}

// Config selects and configures a Provider.
type Config struct {
	Name      string // "" (disabled), local, s3
	LocalPath string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string // MinIO and other S3-compatible stores; enables path-style addressing
	S3AccessKey string
	S3SecretKey string
}

// NewProvider builds the configured provider. An empty name returns nil, nil:
// remote storage is optional.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Name {
	case "":
		return nil, nil
	case "local":
		if cfg.LocalPath == "" {
			return nil, fmt.Errorf("STORAGE_LOCAL_PATH is required")
		}
		return NewLocalProvider(cfg.LocalPath)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required")
		}
		return NewS3Provider(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Name)
	}
}

// DetectContentType detects the content type based on file extension
func DetectContentType(ext string) string {
	contentTypes := map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".tif":  "image/tiff",
		".tiff": "image/tiff",
		".pdf":  "application/pdf",
		".csv":  "text/csv",
		".json": "application/json",
		".txt":  "text/plain",
		".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}

	if contentType, ok := contentTypes[strings.ToLower(ext)]; ok {
		return contentType
	}
	return "application/octet-stream"
}

// cleanKey normalises a key to forward slashes without a leading slash.
func cleanKey(key string) string {
	return strings.TrimPrefix(strings.ReplaceAll(key, "\\", "/"), "/")
}
