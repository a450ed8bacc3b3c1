// Package local stores product media on the filesystem for development setups.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/angelmondragon/catalog-admin/pkg/logger"
	"github.com/angelmondragon/catalog-admin/pkg/storage"
)

// MediaPathPrefix is the route under which stored objects are served.
const MediaPathPrefix = "/media/"

// Store keeps objects under <baseDir>/<bucket>/<key>.
type Store struct {
	baseDir       string
	bucket        string
	publicBaseURL string
	logg          *logger.Logger
}

var _ storage.ObjectStore = (*Store)(nil)

func NewStore(baseDir, bucket, publicBaseURL string, logg *logger.Logger) (*Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("bucket name is required")
	}
	if err := os.MkdirAll(filepath.Join(baseDir, bucket), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Store{
		baseDir:       baseDir,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logg:          logg,
	}, nil
}

func (s *Store) Bucket() string {
	return s.bucket
}

func (s *Store) BucketExists(ctx context.Context) (bool, error) {
	info, err := os.Stat(filepath.Join(s.baseDir, s.bucket))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (s *Store) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", storage.ErrObjectExists, key)
		}
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		s.discard(ctx, filePath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		s.discard(ctx, filePath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *Store) PublicURL(key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicBaseURL + MediaPathPrefix + url.PathEscape(s.bucket) + "/" + strings.Join(segments, "/")
}

// Handler serves stored objects; mount it at MediaPathPrefix.
func (s *Store) Handler() http.Handler {
	return http.StripPrefix(strings.TrimRight(MediaPathPrefix, "/"), http.FileServer(http.Dir(s.baseDir)))
}

func (s *Store) discard(ctx context.Context, filePath string) {
	if err := os.Remove(filePath); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "path", filePath), "failed to remove partial upload")
	}
}

// safeJoin resolves key inside the bucket directory and rejects traversal.
func (s *Store) safeJoin(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("object key is required")
	}
	absBase, err := filepath.Abs(filepath.Join(s.baseDir, s.bucket))
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(absBase, key))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", errors.New("path traversal attempt")
	}
	return absPath, nil
}
