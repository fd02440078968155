package controllers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wedshare/wedshare-backend/api/responses"
	"github.com/wedshare/wedshare-backend/api/validators"
	"github.com/wedshare/wedshare-backend/internal/catalog"
	pkgerrors "github.com/wedshare/wedshare-backend/pkg/errors"
	"github.com/wedshare/wedshare-backend/pkg/logger"
)

// ListMedia returns one page of the gallery, newest first. Pagination is
// cursor-based; the cursor is opaque to clients.
func ListMedia(svc catalog.Service, defaultPageSize int, logg *logger.Logger) http.HandlerFunc {
	if defaultPageSize <= 0 {
		defaultPageSize = catalog.DefaultPageSize
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		pageSize, err := validators.ParseQueryInt(r, "pageSize", defaultPageSize, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pageToken := strings.TrimSpace(r.URL.Query().Get("pageToken"))

		result, err := svc.List(r.Context(), int64(pageSize), pageToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// Fresh uploads must appear on the next reload.
		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, result)
	}
}

// StreamVideo proxies a committed video's bytes to the client.
func StreamVideo(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		fileID := strings.TrimSpace(chi.URLParam(r, "fileId"))
		if fileID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "fileId is required"))
			return
		}

		stream, err := svc.StreamVideo(r.Context(), fileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer stream.Content.Close()

		w.Header().Set("Content-Type", stream.MimeType)
		if stream.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(stream.Size, 10))
		}
		w.Header().Set("Accept-Ranges", "bytes")

		if _, err := io.Copy(w, stream.Content); err != nil && logg != nil {
			logg.Error(r.Context(), "video stream interrupted", err)
		}
	}
}
