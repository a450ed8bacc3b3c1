package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/angelmondragon/catalog-admin/pkg/enums"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
	"github.com/angelmondragon/catalog-admin/pkg/metrics"
	"github.com/angelmondragon/catalog-admin/pkg/storage"
	"github.com/google/uuid"
)

// ProgressSink receives the completion percentage after each attempted item.
type ProgressSink interface {
	Report(ctx context.Context, percent int) error
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(ctx context.Context, percent int) error

// Report implements ProgressSink.
func (f ProgressFunc) Report(ctx context.Context, percent int) error {
	return f(ctx, percent)
}

// Result is one uploaded media entry, in staged order.
type Result struct {
	URL        string              `json:"url"`
	IsMain     bool                `json:"is_main"`
	FileType   enums.MediaFileType `json:"file_type"`
	StorageKey string              `json:"storage_key,omitempty"`
}

// FailedItem names a staged item whose upload failed.
type FailedItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// PartialUploadError reports items that failed while others succeeded.
type PartialUploadError struct {
	Failed []FailedItem
	Total  int
}

func (e *PartialUploadError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		names = append(names, displayName(f.Name))
	}
	return fmt.Sprintf("%d of %d files failed to upload: %s", len(e.Failed), e.Total, strings.Join(names, ", "))
}

// AsPartialUpload extracts a PartialUploadError from err.
func AsPartialUpload(err error) (*PartialUploadError, bool) {
	var partial *PartialUploadError
	if errors.As(err, &partial) {
		return partial, true
	}
	return nil, false
}

// Uploader streams staged files to object storage one at a time.
type Uploader struct {
	store   storage.ObjectStore
	metrics *metrics.UploadMetrics
	logg    *logger.Logger
	newKey  func() string
	now     func() time.Time
}

// NewUploader builds an uploader writing to store. metrics may be nil.
func NewUploader(store storage.ObjectStore, uploadMetrics *metrics.UploadMetrics, logg *logger.Logger) (*Uploader, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Uploader{
		store:   store,
		metrics: uploadMetrics,
		logg:    logg,
		newKey:  uuid.NewString,
		now:     time.Now,
	}, nil
}

// Upload sends every not-yet-uploaded item to storage in staged order.
// Items that were already uploaded keep their URL. Failed items are marked on the
// staging set and reported through a *PartialUploadError next to the successful results.
func (u *Uploader) Upload(ctx context.Context, staging *Staging, progress ProgressSink) ([]Result, error) {
	if staging == nil {
		return nil, fmt.Errorf("staging set required")
	}
	started := u.now()
	pending := staging.pendingIDs()
	total := len(pending)

	var failed []FailedItem
	for i, id := range pending {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item, ok := staging.update(id, func(item *PendingItem) {
			item.Uploading = true
			item.Error = ""
		})
		if !ok {
			continue
		}

		key, err := u.uploadOne(ctx, item)
		staging.update(id, func(p *PendingItem) {
			p.Uploading = false
			if err != nil {
				p.Error = err.Error()
				return
			}
			p.Uploaded = true
			p.StorageKey = key
			p.PublicURL = u.store.PublicURL(key)
			p.PreviewURL = p.PublicURL
			p.File = nil
		})
		if err != nil {
			failed = append(failed, FailedItem{ID: id, Name: item.Name, Error: err.Error()})
			logCtx := u.logg.WithFields(ctx, map[string]any{"item_id": id, "file_name": item.Name})
			u.logg.Error(logCtx, "media.upload.item_failed", err)
		}

		u.report(ctx, progress, percent(i+1, total))
	}
	if total == 0 {
		u.report(ctx, progress, 100)
	}
	u.metrics.ObserveBatch(u.now().Sub(started))

	results := make([]Result, 0, staging.Len())
	for _, item := range staging.Items() {
		if !item.Uploaded {
			continue
		}
		results = append(results, Result{
			URL:        item.PublicURL,
			IsMain:     item.IsMain,
			FileType:   item.FileType,
			StorageKey: item.StorageKey,
		})
	}
	if len(failed) > 0 {
		return results, &PartialUploadError{Failed: failed, Total: total}
	}
	return results, nil
}

func (u *Uploader) uploadOne(ctx context.Context, item PendingItem) (string, error) {
	if item.File == nil {
		return "", fmt.Errorf("%s has no content", displayName(item.Name))
	}
	key := u.newKey() + objectExtension(item.File.Name, item.File.MimeType)
	err := u.store.Upload(ctx, key, item.File.MimeType, bytes.NewReader(item.File.Data))
	u.metrics.ObserveFile(item.FileType.String(), int64(len(item.File.Data)), err)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", displayName(item.Name), err)
	}
	return key, nil
}

func (u *Uploader) report(ctx context.Context, progress ProgressSink, value int) {
	if progress == nil {
		return
	}
	if err := progress.Report(ctx, value); err != nil {
		u.logg.Warn(u.logg.WithField(ctx, "progress_error", err.Error()), "media.upload.progress_failed")
	}
}

func percent(completed, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
