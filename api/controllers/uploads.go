package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/wedshare/wedshare-backend/api/responses"
	"github.com/wedshare/wedshare-backend/api/validators"
	"github.com/wedshare/wedshare-backend/internal/upload"
	pkgerrors "github.com/wedshare/wedshare-backend/pkg/errors"
	"github.com/wedshare/wedshare-backend/pkg/logger"
)

// Multipart parse ceiling. Chunks are 4 MiB in practice; anything near this
// limit is a misbehaving client.
const maxChunkMemory = 32 << 20

type startUploadRequest struct {
	FileName string `json:"fileName" validate:"required"`
	FileSize int64  `json:"fileSize" validate:"required,min=1"`
	MimeType string `json:"mimeType" validate:"required"`
}

// StartUpload issues direct-upload credentials for one file.
func StartUpload(svc upload.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		var payload startUploadRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.StartUpload(r.Context(), upload.StartUploadInput{
			FileName: payload.FileName,
			FileSize: payload.FileSize,
			MimeType: payload.MimeType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, out)
	}
}

// UploadChunk stages one multipart chunk on local disk.
func UploadChunk(svc upload.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		if err := r.ParseMultipartForm(maxChunkMemory); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
			return
		}

		fileID := strings.TrimSpace(r.FormValue("fileId"))
		if fileID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "fileId is required"))
			return
		}

		chunkIndex, err := formInt(r, "chunkIndex")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		totalChunks, err := formInt(r, "totalChunks")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		chunk, _, err := r.FormFile("chunk")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "chunk part is required"))
			return
		}
		defer chunk.Close()

		out, err := svc.SaveChunk(r.Context(), upload.SaveChunkInput{
			FileID:      fileID,
			FileName:    r.FormValue("fileName"),
			ChunkIndex:  chunkIndex,
			TotalChunks: totalChunks,
			Chunk:       chunk,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, out)
	}
}

type finalizeUploadRequest struct {
	FileID      string `json:"fileId" validate:"required"`
	FileName    string `json:"fileName" validate:"required"`
	MimeType    string `json:"mimeType" validate:"required"`
	TotalChunks int    `json:"totalChunks" validate:"required,min=1"`
}

// FinalizeUpload reassembles staged chunks and commits the object.
func FinalizeUpload(svc upload.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		var payload finalizeUploadRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.Finalize(r.Context(), upload.FinalizeInput{
			FileID:      payload.FileID,
			FileName:    payload.FileName,
			MimeType:    payload.MimeType,
			TotalChunks: payload.TotalChunks,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, out)
	}
}

type completeUploadRequest struct {
	FileID string `json:"fileId" validate:"required"`
}

// CompleteUpload grants public read on an object committed via a direct
// session.
func CompleteUpload(svc upload.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		var payload completeUploadRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Complete(r.Context(), payload.FileID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"fileId": payload.FileID})
	}
}

func formInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(key))
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" is required")
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" must be numeric")
	}
	return value, nil
}
