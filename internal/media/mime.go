package media

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/angelmondragon/catalog-admin/pkg/enums"
)

// sniffLen is how many leading bytes net/http inspects when detecting content.
const sniffLen = 512

var preferredExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
}

func parseMimeType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	return strings.ToLower(mediaType), nil
}

// resolveMimeType prefers the declared header and falls back to sniffing the content.
func resolveMimeType(declared string, data []byte) string {
	if parsed, err := parseMimeType(declared); err == nil {
		if _, ok := enums.MediaFileTypeFromMime(parsed); ok {
			return parsed
		}
	}
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	sniffed, err := parseMimeType(http.DetectContentType(head))
	if err != nil {
		return ""
	}
	return sniffed
}

// objectExtension picks the storage key extension from the original name, then the MIME type.
func objectExtension(name, mimeType string) string {
	if ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name))); ext != "" && ext != "." {
		return ext
	}
	if ext, ok := preferredExtensions[mimeType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
