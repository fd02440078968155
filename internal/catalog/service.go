package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	drivev3 "google.golang.org/api/drive/v3"

	pkgerrors "github.com/wedshare/wedshare-backend/pkg/errors"
	"github.com/wedshare/wedshare-backend/pkg/logger"
	"github.com/wedshare/wedshare-backend/pkg/storage/drive"
)

const (
	DefaultPageSize = 15
	maxPageSize     = 100
)

type driveClient interface {
	List(ctx context.Context, pageSize int64, pageToken string) (*drivev3.FileList, error)
	GetFile(ctx context.Context, fileID string) (*drivev3.File, error)
	Download(ctx context.Context, fileID string) (*http.Response, error)
}

// StoredMedia is the closed record type at the ingestion boundary; loosely
// typed backend fields are normalized here and nowhere else.
type StoredMedia struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	MimeType       string    `json:"mimeType"`
	CreatedTime    time.Time `json:"createdTime"`
	ThumbnailLink  string    `json:"thumbnailLink,omitempty"`
	WebContentLink string    `json:"webContentLink,omitempty"`
	IsVideo        bool      `json:"isVideo"`
}

// ListResult is one page of the gallery catalog, newest first.
type ListResult struct {
	Items         []StoredMedia `json:"media"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
	HasMore       bool          `json:"hasMore"`
}

// VideoStream carries a committed video's byte stream and response metadata.
// The caller owns Content.
type VideoStream struct {
	Content  io.ReadCloser
	Name     string
	MimeType string
	Size     int64
}

// Service reads the committed gallery; it never mutates backend state.
type Service interface {
	List(ctx context.Context, pageSize int64, pageToken string) (*ListResult, error)
	StreamVideo(ctx context.Context, fileID string) (*VideoStream, error)
}

type service struct {
	drive driveClient
	logg  *logger.Logger
}

func NewService(driveClient driveClient, logg *logger.Logger) (Service, error) {
	if driveClient == nil {
		return nil, fmt.Errorf("drive client required")
	}
	return &service{drive: driveClient, logg: logg}, nil
}

// List is a pure read with no caching layer: the gallery polls it on an
// interval and compares the head of the first page to detect new uploads.
func (s *service) List(ctx context.Context, pageSize int64, pageToken string) (*ListResult, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	list, err := s.drive.List(ctx, pageSize, pageToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list gallery folder")
	}

	items := make([]StoredMedia, 0, len(list.Files))
	for _, file := range list.Files {
		item, ok := s.normalize(ctx, file)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	return &ListResult{
		Items:         items,
		NextPageToken: list.NextPageToken,
		HasMore:       list.NextPageToken != "",
	}, nil
}

func (s *service) normalize(ctx context.Context, file *drivev3.File) (StoredMedia, bool) {
	if file == nil || file.Id == "" {
		if s.logg != nil {
			s.logg.Warn(ctx, "dropping catalog entry without id")
		}
		return StoredMedia{}, false
	}

	created, err := time.Parse(time.RFC3339, file.CreatedTime)
	if err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithFileID(ctx, file.Id), "catalog entry has unparseable createdTime")
	}

	thumbnail := file.ThumbnailLink
	if thumbnail == "" {
		thumbnail = drive.ThumbnailURL(file.Id)
	}

	return StoredMedia{
		ID:             file.Id,
		Name:           file.Name,
		MimeType:       file.MimeType,
		CreatedTime:    created,
		ThumbnailLink:  thumbnail,
		WebContentLink: file.WebContentLink,
		IsVideo:        strings.HasPrefix(file.MimeType, "video/"),
	}, true
}

func (s *service) StreamVideo(ctx context.Context, fileID string) (*VideoStream, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fileId is required")
	}

	meta, err := s.drive.GetFile(ctx, fileID)
	if err != nil {
		if drive.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "video not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch video metadata")
	}
	if !strings.HasPrefix(meta.MimeType, "video/") {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "object is not a video")
	}

	resp, err := s.drive.Download(ctx, fileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open video stream")
	}

	return &VideoStream{
		Content:  resp.Body,
		Name:     meta.Name,
		MimeType: meta.MimeType,
		Size:     meta.Size,
	}, nil
}
