package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wedshare/wedshare-backend/internal/upload"
	pkgerrors "github.com/wedshare/wedshare-backend/pkg/errors"
	"github.com/wedshare/wedshare-backend/pkg/logger"
)

const (
	relayStartPath    = "/api/v1/uploads/start"
	relayCompletePath = "/api/v1/uploads/complete"
)

// DirectResumableTransport uploads straight to the storage backend over a
// resumable session, touching the relay only to obtain credentials and to
// request the post-commit visibility grant.
type DirectResumableTransport struct {
	relayURL     string
	resumableURL string
	chunkSize    int64
	httpClient   *http.Client
	logg         *logger.Logger
}

func NewDirectResumableTransport(relayURL, resumableURL string, chunkSize int64, httpClient *http.Client, logg *logger.Logger) *DirectResumableTransport {
	if chunkSize <= 0 {
		chunkSize = ResumableChunkSize
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &DirectResumableTransport{
		relayURL:     relayURL,
		resumableURL: resumableURL,
		chunkSize:    chunkSize,
		httpClient:   httpClient,
		logg:         logg,
	}
}

type uploadGrant struct {
	AccessToken string `json:"accessToken"`
	FolderID    string `json:"folderId"`
}

func (t *DirectResumableTransport) Upload(ctx context.Context, file File, report ProgressFunc) (string, error) {
	taskID := NewTaskID()
	emitter := newProgressEmitter(report, taskID, file.Name, file.Size)
	emitter.emit(StatusPending, 0, 0)

	grant, err := t.startUpload(ctx, file)
	if err != nil {
		emitter.fail(err)
		return "", err
	}

	sessionURL, err := t.openSession(ctx, grant, file)
	if err != nil {
		emitter.fail(err)
		return "", err
	}

	durableID, err := t.putChunks(ctx, sessionURL, file, emitter)
	if err != nil {
		emitter.fail(err)
		return "", err
	}

	emitter.emit(StatusFinalizing, 95, file.Size)

	// The grant request must not undo a committed upload.
	if err := t.completeUpload(ctx, durableID); err != nil {
		if t.logg != nil {
			t.logg.Error(t.logg.WithFileID(ctx, durableID), "visibility grant failed after commit", err)
		}
	}

	emitter.emit(StatusCompleted, 100, file.Size)
	return durableID, nil
}

func (t *DirectResumableTransport) startUpload(ctx context.Context, file File) (uploadGrant, error) {
	payload, err := json.Marshal(map[string]any{
		"fileName": file.Name,
		"fileSize": file.Size,
		"mimeType": file.MimeType,
	})
	if err != nil {
		return uploadGrant{}, pkgerrors.Wrap(pkgerrors.CodeCredential, err, "encode start request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.relayURL+relayStartPath, bytes.NewReader(payload))
	if err != nil {
		return uploadGrant{}, pkgerrors.Wrap(pkgerrors.CodeCredential, err, "build start request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return uploadGrant{}, pkgerrors.Wrap(pkgerrors.CodeCredential, err, "request upload credentials")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return uploadGrant{}, pkgerrors.New(pkgerrors.CodeCredential, "upload credentials refused: "+envelopeMessage(resp))
	}

	var envelope struct {
		Data uploadGrant `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return uploadGrant{}, pkgerrors.Wrap(pkgerrors.CodeCredential, err, "decode upload credentials")
	}
	if envelope.Data.AccessToken == "" || envelope.Data.FolderID == "" {
		return uploadGrant{}, pkgerrors.New(pkgerrors.CodeCredential, "upload credentials incomplete")
	}
	return envelope.Data, nil
}

func (t *DirectResumableTransport) openSession(ctx context.Context, grant uploadGrant, file File) (string, error) {
	name := upload.DestinationName(file.Name, file.MimeType, time.Now(), upload.NewSuffix())
	payload, err := json.Marshal(map[string]any{
		"name":     name,
		"mimeType": file.MimeType,
		"parents":  []string{grant.FolderID},
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeTransport, err, "encode session metadata")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.resumableURL, bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeTransport, err, "build session request")
	}
	req.Header.Set("Authorization", "Bearer "+grant.AccessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", file.MimeType)
	req.Header.Set("X-Upload-Content-Length", fmt.Sprintf("%d", file.Size))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeTransport, err, "open resumable session")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.New(pkgerrors.CodeTransport, "resumable session refused: "+resp.Status)
	}

	sessionURL := resp.Header.Get("Location")
	if sessionURL == "" {
		return "", pkgerrors.New(pkgerrors.CodeTransport, "resumable session missing location header")
	}
	return sessionURL, nil
}

func (t *DirectResumableTransport) putChunks(ctx context.Context, sessionURL string, file File, emitter *progressEmitter) (string, error) {
	ranges := Split(file.Size, t.chunkSize)

	for i, rng := range ranges {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, file.chunkReader(rng))
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeTransport, err, "build chunk request")
		}
		req.ContentLength = rng.Len()
		req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End-1, file.Size))

		resp, err := t.httpClient.Do(req)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeTransport, err, fmt.Sprintf("put chunk %d/%d", i+1, len(ranges)))
		}

		switch resp.StatusCode {
		case http.StatusPermanentRedirect: // 308: more chunks expected
			drainAndClose(resp.Body)
			emitter.emit(StatusUploading, transferPercent(rng.End, file.Size), rng.End)
		case http.StatusOK, http.StatusCreated:
			var committed struct {
				ID string `json:"id"`
			}
			decodeErr := json.NewDecoder(resp.Body).Decode(&committed)
			drainAndClose(resp.Body)
			if decodeErr != nil {
				return "", pkgerrors.Wrap(pkgerrors.CodeTransport, decodeErr, "decode session result")
			}
			if committed.ID == "" {
				return "", pkgerrors.New(pkgerrors.CodeTransport, "session result missing file id")
			}
			emitter.emit(StatusUploading, 90, file.Size)
			return committed.ID, nil
		default:
			status := resp.Status
			drainAndClose(resp.Body)
			return "", pkgerrors.New(pkgerrors.CodeTransport, fmt.Sprintf("chunk %d/%d rejected: %s", i+1, len(ranges), status))
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeTransport, "session ended without a terminal response")
}

func (t *DirectResumableTransport) completeUpload(ctx context.Context, fileID string) error {
	payload, err := json.Marshal(map[string]string{"fileId": fileID})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePermissionGrant, err, "encode complete request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.relayURL+relayCompletePath, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePermissionGrant, err, "build complete request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePermissionGrant, err, "request visibility grant")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return pkgerrors.New(pkgerrors.CodePermissionGrant, "visibility grant refused: "+envelopeMessage(resp))
	}
	return nil
}
