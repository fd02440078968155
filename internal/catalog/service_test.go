package catalog

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	pkgerrors "github.com/wedshare/wedshare-backend/pkg/errors"
)

type stubDrive struct {
	listFn     func(ctx context.Context, pageSize int64, pageToken string) (*drivev3.FileList, error)
	getFileFn  func(ctx context.Context, fileID string) (*drivev3.File, error)
	downloadFn func(ctx context.Context, fileID string) (*http.Response, error)
}

func (s *stubDrive) List(ctx context.Context, pageSize int64, pageToken string) (*drivev3.FileList, error) {
	return s.listFn(ctx, pageSize, pageToken)
}

func (s *stubDrive) GetFile(ctx context.Context, fileID string) (*drivev3.File, error) {
	return s.getFileFn(ctx, fileID)
}

func (s *stubDrive) Download(ctx context.Context, fileID string) (*http.Response, error) {
	return s.downloadFn(ctx, fileID)
}

func TestListNormalizesEntries(t *testing.T) {
	t.Parallel()

	var gotPageSize int64
	var gotToken string
	driveStub := &stubDrive{
		listFn: func(ctx context.Context, pageSize int64, pageToken string) (*drivev3.FileList, error) {
			gotPageSize = pageSize
			gotToken = pageToken
			return &drivev3.FileList{
				NextPageToken: "cursor-2",
				Files: []*drivev3.File{
					{
						Id:          "vid-1",
						Name:        "wedding_1.mov",
						MimeType:    "video/quicktime",
						CreatedTime: "2026-06-20T18:04:05Z",
					},
					{
						Id:            "img-1",
						Name:          "wedding_2.jpg",
						MimeType:      "image/jpeg",
						CreatedTime:   "2026-06-20T18:03:00Z",
						ThumbnailLink: "https://lh3.example/thumb",
					},
					{Id: "", Name: "malformed"},
				},
			}, nil
		},
	}

	svc, err := NewService(driveStub, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	res, err := svc.List(context.Background(), 15, "cursor-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if gotPageSize != 15 || gotToken != "cursor-1" {
		t.Fatalf("pagination not forwarded: size=%d token=%q", gotPageSize, gotToken)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected malformed entry dropped, got %d items", len(res.Items))
	}
	if !res.Items[0].IsVideo {
		t.Fatal("quicktime entry should be flagged as video")
	}
	if res.Items[1].IsVideo {
		t.Fatal("jpeg entry should not be flagged as video")
	}
	if res.Items[0].ThumbnailLink == "" {
		t.Fatal("missing thumbnail should fall back to direct thumbnail URL")
	}
	if res.Items[1].ThumbnailLink != "https://lh3.example/thumb" {
		t.Fatalf("existing thumbnail overwritten: %q", res.Items[1].ThumbnailLink)
	}
	if res.Items[0].CreatedTime.IsZero() {
		t.Fatal("createdTime should be parsed")
	}
	if !res.HasMore || res.NextPageToken != "cursor-2" {
		t.Fatalf("unexpected pagination result %+v", res)
	}
}

func TestListLastPageHasNoCursor(t *testing.T) {
	t.Parallel()

	driveStub := &stubDrive{
		listFn: func(ctx context.Context, pageSize int64, pageToken string) (*drivev3.FileList, error) {
			return &drivev3.FileList{}, nil
		},
	}
	svc, _ := NewService(driveStub, nil)

	res, err := svc.List(context.Background(), 0, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.HasMore || res.NextPageToken != "" {
		t.Fatalf("expected end of collection, got %+v", res)
	}
}

func TestListNormalizesPageSize(t *testing.T) {
	t.Parallel()

	var gotPageSize int64
	driveStub := &stubDrive{
		listFn: func(ctx context.Context, pageSize int64, pageToken string) (*drivev3.FileList, error) {
			gotPageSize = pageSize
			return &drivev3.FileList{}, nil
		},
	}
	svc, _ := NewService(driveStub, nil)

	if _, err := svc.List(context.Background(), 0, ""); err != nil {
		t.Fatalf("List: %v", err)
	}
	if gotPageSize != DefaultPageSize {
		t.Fatalf("expected default page size, got %d", gotPageSize)
	}

	if _, err := svc.List(context.Background(), 10_000, ""); err != nil {
		t.Fatalf("List: %v", err)
	}
	if gotPageSize != 100 {
		t.Fatalf("expected capped page size, got %d", gotPageSize)
	}
}

func TestStreamVideoSuccess(t *testing.T) {
	t.Parallel()

	driveStub := &stubDrive{
		getFileFn: func(ctx context.Context, fileID string) (*drivev3.File, error) {
			return &drivev3.File{Id: fileID, Name: "wedding_1.mov", MimeType: "video/quicktime", Size: 42}, nil
		},
		downloadFn: func(ctx context.Context, fileID string) (*http.Response, error) {
			return &http.Response{Body: io.NopCloser(strings.NewReader("video-bytes"))}, nil
		},
	}
	svc, _ := NewService(driveStub, nil)

	stream, err := svc.StreamVideo(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("StreamVideo: %v", err)
	}
	defer stream.Content.Close()

	if stream.MimeType != "video/quicktime" || stream.Size != 42 {
		t.Fatalf("unexpected stream metadata %+v", stream)
	}
	body, err := io.ReadAll(stream.Content)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if string(body) != "video-bytes" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestStreamVideoNotFound(t *testing.T) {
	t.Parallel()

	driveStub := &stubDrive{
		getFileFn: func(ctx context.Context, fileID string) (*drivev3.File, error) {
			return nil, &googleapi.Error{Code: http.StatusNotFound}
		},
	}
	svc, _ := NewService(driveStub, nil)

	_, err := svc.StreamVideo(context.Background(), "gone")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStreamVideoRejectsNonVideo(t *testing.T) {
	t.Parallel()

	driveStub := &stubDrive{
		getFileFn: func(ctx context.Context, fileID string) (*drivev3.File, error) {
			return &drivev3.File{Id: fileID, MimeType: "image/jpeg"}, nil
		},
	}
	svc, _ := NewService(driveStub, nil)

	_, err := svc.StreamVideo(context.Background(), "img-1")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for non-video, got %v", err)
	}
}

func TestStreamVideoRequiresFileID(t *testing.T) {
	t.Parallel()

	svc, _ := NewService(&stubDrive{}, nil)
	_, err := svc.StreamVideo(context.Background(), " ")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
