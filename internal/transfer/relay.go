package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	pkgerrors "github.com/wedshare/wedshare-backend/pkg/errors"
	"github.com/wedshare/wedshare-backend/pkg/logger"
)

const (
	relayChunkPath    = "/api/v1/uploads/chunk"
	relayFinalizePath = "/api/v1/uploads/finalize"
)

// RelayTransport streams chunks through the relay, which stages them on disk
// and reassembles on finalize.
type RelayTransport struct {
	baseURL    string
	chunkSize  int64
	httpClient *http.Client
	logg       *logger.Logger
}

func NewRelayTransport(baseURL string, chunkSize int64, httpClient *http.Client, logg *logger.Logger) *RelayTransport {
	if chunkSize <= 0 {
		chunkSize = RelayChunkSize
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &RelayTransport{
		baseURL:    baseURL,
		chunkSize:  chunkSize,
		httpClient: httpClient,
		logg:       logg,
	}
}

func (t *RelayTransport) Upload(ctx context.Context, file File, report ProgressFunc) (string, error) {
	taskID := NewTaskID()
	emitter := newProgressEmitter(report, taskID, file.Name, file.Size)
	emitter.emit(StatusPending, 0, 0)

	ranges := Split(file.Size, t.chunkSize)
	totalChunks := len(ranges)

	// Chunks are sent strictly in order; the relay tolerates out-of-order
	// arrival but reassembles by index.
	for i, rng := range ranges {
		if err := t.sendChunk(ctx, taskID, file, i, totalChunks, rng); err != nil {
			emitter.fail(err)
			return "", err
		}
		emitter.emit(StatusUploading, transferPercent(rng.End, file.Size), rng.End)
	}

	emitter.emit(StatusFinalizing, 90, file.Size)

	durableID, err := t.finalize(ctx, taskID, file, totalChunks)
	if err != nil {
		emitter.fail(err)
		return "", err
	}

	emitter.emit(StatusCompleted, 100, file.Size)
	return durableID, nil
}

func (t *RelayTransport) sendChunk(ctx context.Context, taskID string, file File, index, totalChunks int, rng Range) error {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	fields := map[string]string{
		"chunkIndex":  strconv.Itoa(index),
		"totalChunks": strconv.Itoa(totalChunks),
		"fileId":      taskID,
		"fileName":    file.Name,
	}
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "build chunk form")
		}
	}

	part, err := form.CreateFormFile("chunk", file.Name)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "build chunk form")
	}
	if _, err := io.Copy(part, file.chunkReader(rng)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "read chunk bytes")
	}
	if err := form.Close(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "build chunk form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+relayChunkPath, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "build chunk request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, fmt.Sprintf("upload chunk %d/%d", index+1, totalChunks))
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return pkgerrors.New(pkgerrors.CodeTransport, fmt.Sprintf("chunk %d/%d rejected: %s", index+1, totalChunks, envelopeMessage(resp)))
	}
	return nil
}

func (t *RelayTransport) finalize(ctx context.Context, taskID string, file File, totalChunks int) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"fileId":      taskID,
		"fileName":    file.Name,
		"mimeType":    file.MimeType,
		"totalChunks": totalChunks,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeFinalize, err, "encode finalize request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+relayFinalizePath, bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeFinalize, err, "build finalize request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeFinalize, err, "finalize upload")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.New(pkgerrors.CodeFinalize, "finalize rejected: "+envelopeMessage(resp))
	}

	var envelope struct {
		Data struct {
			FileID string `json:"fileId"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeFinalize, err, "decode finalize response")
	}
	if envelope.Data.FileID == "" {
		return "", pkgerrors.New(pkgerrors.CodeFinalize, "finalize returned no file id")
	}
	return envelope.Data.FileID, nil
}

func envelopeMessage(resp *http.Response) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return resp.Status
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
