package uploads

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// buildFileKey derives the storage key for an upload. The key is owned by the
// backend and never exposed as the upload identifier; it stays stable for the
// life of the record.
func buildFileKey(ownerID uuid.UUID, createdAt time.Time, id uuid.UUID, extension string) string {
	ext := sanitizeExtension(extension)
	day := createdAt.UTC().Format("2006/01/02")
	if ext == "" {
		return fmt.Sprintf("uploads/%s/%s/%s", ownerID.String(), day, id.String())
	}
	return fmt.Sprintf("uploads/%s/%s/%s.%s", ownerID.String(), day, id.String(), ext)
}

func sanitizeExtension(extension string) string {
	clean := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(extension), "."))
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
