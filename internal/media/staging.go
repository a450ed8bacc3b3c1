package media

import (
	"fmt"
	"sync"

	"github.com/angelmondragon/catalog-admin/pkg/config"
	"github.com/angelmondragon/catalog-admin/pkg/enums"
	pkgerrors "github.com/angelmondragon/catalog-admin/pkg/errors"
	"github.com/google/uuid"
)

// File is a user-selected upload held in memory until it is sent to storage.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// PendingItem is one entry of the staged media set.
type PendingItem struct {
	ID         string              `json:"id"`
	File       *File               `json:"-"`
	Name       string              `json:"name,omitempty"`
	PreviewURL string              `json:"preview_url,omitempty"`
	Uploaded   bool                `json:"uploaded"`
	Uploading  bool                `json:"uploading"`
	Error      string              `json:"error,omitempty"`
	PublicURL  string              `json:"public_url,omitempty"`
	StorageKey string              `json:"storage_key,omitempty"`
	IsMain     bool                `json:"is_main"`
	FileType   enums.MediaFileType `json:"file_type"`
}

// Limits bounds what Stage accepts.
type Limits struct {
	MaxFiles      int
	MaxImageBytes int64
	MaxVideoBytes int64
}

// LimitsFromConfig reads the intake limits from the media config.
func LimitsFromConfig(cfg config.MediaConfig) Limits {
	return Limits{
		MaxFiles:      cfg.MaxFiles,
		MaxImageBytes: cfg.MaxImageBytes(),
		MaxVideoBytes: cfg.MaxVideoBytes(),
	}
}

// Staging holds the ordered media set of one form instance.
// Exactly one item is main whenever the set is non-empty.
type Staging struct {
	mu     sync.Mutex
	limits Limits
	items  []*PendingItem
	// storedMain is set once an already-uploaded item flagged main has been staged.
	storedMain bool
}

// NewStaging returns an empty staged set enforcing limits.
func NewStaging(limits Limits) *Staging {
	return &Staging{limits: limits}
}

// Stage validates and appends a new file. A rejected file leaves the set unchanged.
func (s *Staging) Stage(file File) (PendingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limits.MaxFiles > 0 && len(s.items) >= s.limits.MaxFiles {
		return PendingItem{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("a maximum of %d files is allowed", s.limits.MaxFiles))
	}
	if len(file.Data) == 0 {
		return PendingItem{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is empty", displayName(file.Name)))
	}

	mimeType := resolveMimeType(file.MimeType, file.Data)
	fileType, ok := enums.MediaFileTypeFromMime(mimeType)
	if !ok {
		return PendingItem{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is not an image or video", displayName(file.Name)))
	}

	limit := s.limits.MaxImageBytes
	if fileType == enums.MediaFileTypeVideo {
		limit = s.limits.MaxVideoBytes
	}
	if limit > 0 && int64(len(file.Data)) > limit {
		return PendingItem{}, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s exceeds the %d MB limit for %ss", displayName(file.Name), limit/(1024*1024), fileType))
	}

	file.MimeType = mimeType
	item := &PendingItem{
		ID:       uuid.NewString(),
		File:     &file,
		Name:     file.Name,
		IsMain:   len(s.items) == 0,
		FileType: fileType,
	}
	s.items = append(s.items, item)
	return *item, nil
}

// StageUploaded adds media that already lives in storage, such as the images of a product being edited.
// When several stored items claim main, the first one staged keeps it.
func (s *Staging) StageUploaded(url string, isMain bool, fileType enums.MediaFileType, storageKey string) PendingItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !fileType.IsValid() {
		fileType = enums.MediaFileTypeImage
	}
	item := &PendingItem{
		ID:         uuid.NewString(),
		PreviewURL: url,
		Uploaded:   true,
		PublicURL:  url,
		StorageKey: storageKey,
		FileType:   fileType,
	}
	s.items = append(s.items, item)
	if isMain && !s.storedMain {
		s.storedMain = true
		s.setMainLocked(item.ID)
	} else {
		s.ensureMainLocked()
	}
	return *item
}

// SetMain flags one item as main and clears the flag on every other item.
func (s *Staging) SetMain(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("media item %s not found", id))
	}
	s.setMainLocked(id)
	return nil
}

// Remove drops an item. Removing the main item promotes the first remaining one.
func (s *Staging) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("media item %s not found", id))
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.ensureMainLocked()
	return nil
}

// Items returns a snapshot of the staged set in order.
func (s *Staging) Items() []PendingItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PendingItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, *item)
	}
	return out
}

// Len reports how many items are staged.
func (s *Staging) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Reset empties the set.
func (s *Staging) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.storedMain = false
}

func (s *Staging) pendingIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, item := range s.items {
		if !item.Uploaded {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

func (s *Staging) update(id string, fn func(item *PendingItem)) (PendingItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return PendingItem{}, false
	}
	fn(s.items[idx])
	return *s.items[idx], true
}

func (s *Staging) indexLocked(id string) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (s *Staging) setMainLocked(id string) {
	for _, item := range s.items {
		item.IsMain = item.ID == id
	}
}

func (s *Staging) ensureMainLocked() {
	if len(s.items) == 0 {
		return
	}
	for _, item := range s.items {
		if item.IsMain {
			return
		}
	}
	s.items[0].IsMain = true
}

func displayName(name string) string {
	if name == "" {
		return "file"
	}
	return name
}
