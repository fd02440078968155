package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wedshare/wedshare-backend/internal/catalog"
	"github.com/wedshare/wedshare-backend/internal/upload"
	"github.com/wedshare/wedshare-backend/pkg/config"
	pkgerrors "github.com/wedshare/wedshare-backend/pkg/errors"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubUploadService struct{}

func (stubUploadService) StartUpload(context.Context, upload.StartUploadInput) (*upload.StartUploadOutput, error) {
	return &upload.StartUploadOutput{AccessToken: "tok", FolderID: "folder"}, nil
}

func (stubUploadService) SaveChunk(context.Context, upload.SaveChunkInput) (*upload.SaveChunkOutput, error) {
	return &upload.SaveChunkOutput{}, nil
}

func (stubUploadService) Finalize(context.Context, upload.FinalizeInput) (*upload.FinalizeOutput, error) {
	return &upload.FinalizeOutput{FileID: "drive-1"}, nil
}

func (stubUploadService) Complete(context.Context, string) error {
	return nil
}

type stubCatalogService struct{}

func (stubCatalogService) List(context.Context, int64, string) (*catalog.ListResult, error) {
	return &catalog.ListResult{}, nil
}

func (stubCatalogService) StreamVideo(context.Context, string) (*catalog.VideoStream, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "video not found")
}

func newTestRouter() http.Handler {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	return NewRouter(cfg, nil, stubPinger{}, stubUploadService{}, stubCatalogService{})
}

func TestRouterWiresCoreRoutes(t *testing.T) {
	router := newTestRouter()

	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health/live", "", http.StatusOK},
		{http.MethodGet, "/health/ready", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPost, "/api/v1/uploads/start", `{"fileName":"a.jpg","fileSize":10,"mimeType":"image/jpeg"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/uploads/finalize", `{"fileId":"t1","fileName":"a.jpg","mimeType":"image/jpeg","totalChunks":1}`, http.StatusOK},
		{http.MethodPost, "/api/v1/uploads/complete", `{"fileId":"drive-1"}`, http.StatusOK},
		{http.MethodGet, "/api/v1/media", "", http.StatusOK},
		{http.MethodGet, "/api/v1/media/vid-1/video", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}

	for _, tc := range cases {
		var req *http.Request
		if tc.body != "" {
			req = httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(tc.method, tc.path, nil)
		}
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != tc.want {
			t.Fatalf("%s %s: expected %d got %d: %s", tc.method, tc.path, tc.want, rec.Code, rec.Body.String())
		}
	}
}

func TestRouterAssignsRequestID(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected a generated request id header")
	}
}

func TestRouterPreservesCallerRequestID(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-Id", "caller-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "caller-1" {
		t.Fatalf("expected caller-1 got %q", got)
	}
}

func TestRouterRecoversFromPanic(t *testing.T) {
	router := NewRouter(
		&config.Config{App: config.AppConfig{Env: "test"}},
		nil,
		panickyPinger{},
		stubUploadService{},
		stubCatalogService{},
	)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}

type panickyPinger struct{}

func (panickyPinger) Ping(context.Context) error {
	panic("backend exploded")
}
