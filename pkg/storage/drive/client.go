package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/wedshare/wedshare-backend/pkg/config"
	"github.com/wedshare/wedshare-backend/pkg/logger"
)

const (
	driveScope  = "https://www.googleapis.com/auth/drive"
	pingTimeout = 5 * time.Second
)

// mediaQuery matches gallery objects: children of the destination folder that
// are images or videos and not trashed.
const mediaQueryTemplate = "'%s' in parents and (mimeType contains 'image/' or mimeType contains 'video/') and trashed=false"

type Client struct {
	svc         *drivev3.Service
	tokenSource oauth2.TokenSource
	folderID    string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient builds a Drive client acting as the owner of the destination
// folder. Credentials resolve from the OAuth refresh-token triple or a service
// account key, whichever the config carries.
func NewClient(ctx context.Context, cfg config.DriveConfig, gcfg config.GoogleConfig, logg *logger.Logger) (*Client, error) {
	if cfg.FolderID == "" {
		return nil, errors.New("drive folder id is required")
	}

	ts, err := newTokenSource(ctx, gcfg)
	if err != nil {
		return nil, err
	}
	ts = oauth2.ReuseTokenSource(nil, ts)

	svc, err := drivev3.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("building drive service: %w", err)
	}

	client := &Client{
		svc:         svc,
		tokenSource: ts,
		folderID:    cfg.FolderID,
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("drive health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "drive client initialized")
	}

	return client, nil
}

func newTokenSource(ctx context.Context, gcfg config.GoogleConfig) (oauth2.TokenSource, error) {
	switch {
	case gcfg.HasOAuth():
		conf := &oauth2.Config{
			ClientID:     gcfg.ClientID,
			ClientSecret: gcfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{driveScope},
		}
		return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: gcfg.RefreshToken}), nil
	case gcfg.CredentialsJSON != "":
		return serviceAccountTokenSource(ctx, []byte(gcfg.CredentialsJSON))
	case gcfg.ApplicationCredentials != "":
		raw, err := os.ReadFile(gcfg.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		return serviceAccountTokenSource(ctx, raw)
	default:
		return nil, errors.New("no google credentials configured")
	}
}

func serviceAccountTokenSource(ctx context.Context, raw []byte) (oauth2.TokenSource, error) {
	conf, err := google.JWTConfigFromJSON(raw, driveScope)
	if err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	return conf.TokenSource(ctx), nil
}

func (c *Client) FolderID() string {
	if c == nil {
		return ""
	}
	return c.folderID
}

// AccessToken returns a short-lived bearer token suitable for a
// client-conducted resumable session.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c == nil || c.tokenSource == nil {
		return "", errors.New("drive client not initialized")
	}
	token, err := c.tokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("fetching access token: %w", err)
	}
	if token.AccessToken == "" {
		return "", errors.New("token source returned empty access token")
	}
	return token.AccessToken, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.svc == nil {
		return errors.New("drive client not initialized")
	}
	if c.folderID == "" {
		return errors.New("drive folder not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	_, err := c.svc.Files.Get(c.folderID).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("drive folder check failed: %w", err)
	}
	return nil
}

// Upload commits one object under the destination folder and returns the
// backend-assigned id.
func (c *Client) Upload(ctx context.Context, name, mimeType string, content io.Reader) (string, error) {
	meta := &drivev3.File{
		Name:     name,
		MimeType: mimeType,
		Parents:  []string{c.folderID},
	}

	file, err := c.svc.Files.Create(meta).
		Media(content, googleapi.ContentType(mimeType)).
		SupportsAllDrives(true).
		Fields("id, name, webContentLink, thumbnailLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("creating drive file: %w", err)
	}
	if file.Id == "" {
		return "", errors.New("drive returned no file id")
	}
	return file.Id, nil
}

// GrantPublicRead makes the committed object readable by anyone with the link.
func (c *Client) GrantPublicRead(ctx context.Context, fileID string) error {
	_, err := c.svc.Permissions.Create(fileID, &drivev3.Permission{
		Role: "reader",
		Type: "anyone",
	}).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("granting public read on %s: %w", fileID, err)
	}
	return nil
}

// List pages over gallery objects newest-first.
func (c *Client) List(ctx context.Context, pageSize int64, pageToken string) (*drivev3.FileList, error) {
	call := c.svc.Files.List().
		Q(fmt.Sprintf(mediaQueryTemplate, c.folderID)).
		OrderBy("createdTime desc").
		PageSize(pageSize).
		Fields("nextPageToken, files(id, name, thumbnailLink, webContentLink, createdTime, mimeType)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	list, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("listing drive folder: %w", err)
	}
	return list, nil
}

// GetFile fetches object metadata.
func (c *Client) GetFile(ctx context.Context, fileID string) (*drivev3.File, error) {
	file, err := c.svc.Files.Get(fileID).
		SupportsAllDrives(true).
		Fields("id, name, mimeType, size").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("fetching drive file %s: %w", fileID, err)
	}
	return file, nil
}

// Download opens the object's byte stream. The caller owns the response body.
func (c *Client) Download(ctx context.Context, fileID string) (*http.Response, error) {
	resp, err := c.svc.Files.Get(fileID).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return nil, fmt.Errorf("downloading drive file %s: %w", fileID, err)
	}
	return resp, nil
}

// IsNotFound reports whether err is a Drive 404.
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

// ThumbnailURL returns the direct thumbnail endpoint for an object.
func ThumbnailURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/thumbnail?id=%s&sz=w800", fileID)
}
