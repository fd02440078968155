package transfer

import (
	"fmt"
	"strings"

	pkgerrors "github.com/wedshare/wedshare-backend/pkg/errors"
)

// ValidateFile rejects a file before any network traffic is spent on it.
func ValidateFile(file File, maxVideoBytes int64) error {
	if strings.TrimSpace(file.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}
	if file.Size <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "file size must be positive")
	}
	isImage := strings.HasPrefix(file.MimeType, "image/")
	isVideo := strings.HasPrefix(file.MimeType, "video/")
	if !isImage && !isVideo {
		return pkgerrors.New(pkgerrors.CodeValidation, "only image and video uploads are accepted")
	}
	if isVideo && maxVideoBytes > 0 && file.Size > maxVideoBytes {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("video exceeds the %d MB limit", maxVideoBytes/(1024*1024)))
	}
	if file.Content == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "file content is required")
	}
	return nil
}
