package upload

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const destinationPrefix = "wedding"

// DestinationName builds the collision-resistant object name the backend
// stores, keeping the gallery free of guest-supplied file names.
func DestinationName(fileName, mimeType string, now time.Time, suffix string) string {
	ext := destinationExtension(fileName, mimeType)
	return fmt.Sprintf("%s_%d_%s.%s", destinationPrefix, now.UnixMilli(), suffix, ext)
}

// NewSuffix returns a short random name component.
func NewSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func destinationExtension(fileName, mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		return videoExtension(fileName, mimeType)
	default:
		return imageExtension(fileName)
	}
}

// Video container extensions are special-cased because mobile captures report
// container mime types that do not match their original file extension.
func videoExtension(fileName, mimeType string) string {
	switch mimeType {
	case "video/quicktime":
		return "mov"
	case "video/x-m4v":
		return "m4v"
	}
	if ext := sourceExtension(fileName); ext != "" {
		return ext
	}
	return "mp4"
}

func imageExtension(fileName string) string {
	ext := sourceExtension(fileName)
	switch ext {
	case "", "jpg", "jpeg":
		return "jpg"
	}
	return ext
}

func sourceExtension(fileName string) string {
	idx := strings.LastIndex(fileName, ".")
	if idx < 0 || idx == len(fileName)-1 {
		return ""
	}
	return strings.ToLower(fileName[idx+1:])
}
