// Package storage archives benchmark reports in object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/numa-dsu/pkg/config"
	apperrors "github.com/numa-dsu/pkg/errors"
	"github.com/numa-dsu/pkg/utils"
)

// Archive stores report files under slash-separated keys.
type Archive interface {
	Put(ctx context.Context, key string, r io.Reader) error
	PutFile(ctx context.Context, key, localPath string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
	// URL returns where key can be fetched from.
	URL(key string) string
}

// Type names an archive backend.
type Type string

const (
	TypeLocal Type = "local"
	TypeCOS   Type = "cos"
)

// New opens the archive described by cfg. An empty type means local.
func New(cfg *config.StorageConfig) (Archive, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "invalid storage config", err)
	}
	if Type(cfg.Type) == TypeCOS {
		return NewCOSArchive(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	}
	return NewLocalArchive(cfg.LocalPath)
}

// ValidateConfig checks that cfg names a backend and carries what it needs.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return fmt.Errorf("storage config is nil")
	}

	switch Type(cfg.Type) {
	case "", TypeLocal:
		if cfg.LocalPath == "" {
			return fmt.Errorf("local storage path is required")
		}
	case TypeCOS:
		if cfg.Bucket == "" {
			return fmt.Errorf("COS bucket is required")
		}
		if cfg.Region == "" {
			return fmt.Errorf("COS region is required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return fmt.Errorf("COS credentials are required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
	return nil
}

// RunKey is the archive key of a report file produced by run runID.
func RunKey(runID, localPath string) string {
	return path.Join("runs", runID, filepath.Base(localPath))
}

// Publish uploads every report file of a run and returns their URLs in order.
// It stops at the first failure and returns the URLs uploaded so far.
func Publish(ctx context.Context, a Archive, runID string, paths []string, logger utils.Logger) ([]string, error) {
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		key := RunKey(runID, p)
		if err := a.PutFile(ctx, key, p); err != nil {
			return urls, apperrors.Wrap(apperrors.CodeStorageError, "failed to upload "+p, err)
		}
		logger.Info("Uploaded %s to %s", p, a.URL(key))
		urls = append(urls, a.URL(key))
	}
	return urls, nil
}
