package enums

import "strings"

// MediaFileType distinguishes images from videos in a product's media set.
type MediaFileType string

const (
	MediaFileTypeImage MediaFileType = "image"
	MediaFileTypeVideo MediaFileType = "video"
)

func (m MediaFileType) String() string { return string(m) }

func (m MediaFileType) IsValid() bool {
	return known(m, []MediaFileType{MediaFileTypeImage, MediaFileTypeVideo})
}

// MediaFileTypeFromMime maps a MIME type onto image/video, reporting false for anything else.
func MediaFileTypeFromMime(mimeType string) (MediaFileType, bool) {
	major, _, ok := strings.Cut(strings.ToLower(strings.TrimSpace(mimeType)), "/")
	if !ok {
		return "", false
	}
	switch major {
	case "image":
		return MediaFileTypeImage, true
	case "video":
		return MediaFileTypeVideo, true
	default:
		return "", false
	}
}
