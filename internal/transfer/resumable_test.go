package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/wedshare/wedshare-backend/pkg/errors"
)

type resumableBackend struct {
	sessionOpened bool
	sessionName   string
	parents       []string
	ranges        []string
	received      []byte
	durableID     string
}

func newResumableBackend(t *testing.T, backend *resumableBackend, totalSize int64) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/resumable", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))

		var meta struct {
			Name     string   `json:"name"`
			MimeType string   `json:"mimeType"`
			Parents  []string `json:"parents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&meta))
		backend.sessionOpened = true
		backend.sessionName = meta.Name
		backend.parents = meta.Parents

		w.Header().Set("Location", "http://"+r.Host+"/session")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		contentRange := r.Header.Get("Content-Range")
		backend.ranges = append(backend.ranges, contentRange)

		body := new(bytes.Buffer)
		_, err := body.ReadFrom(r.Body)
		require.NoError(t, err)
		backend.received = append(backend.received, body.Bytes()...)

		if int64(len(backend.received)) < totalSize {
			w.WriteHeader(http.StatusPermanentRedirect)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": backend.durableID})
	})

	server := httptest.NewServer(mux)
	return server
}

func newGrantRelay(t *testing.T, token, folderID string, completed *[]string, completeStatus int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(relayStartPath, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FileName string `json:"fileName"`
			FileSize int64  `json:"fileSize"`
			MimeType string `json:"mimeType"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.FileName)
		require.Positive(t, req.FileSize)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"accessToken": token,
			"folderId":    folderID,
		}})
	})
	mux.HandleFunc(relayCompletePath, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FileID string `json:"fileId"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*completed = append(*completed, req.FileID)

		if completeStatus != http.StatusOK {
			w.WriteHeader(completeStatus)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{
				"code":    "PERMISSION_GRANT_ERROR",
				"message": "grant rejected",
			}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"fileId": req.FileID}})
	})
	return httptest.NewServer(mux)
}

func TestDirectResumableUploadHappyPath(t *testing.T) {
	payload := bytes.Repeat([]byte("v"), 2500)
	backend := &resumableBackend{durableID: "drive-video-1"}
	backendServer := newResumableBackend(t, backend, int64(len(payload)))
	defer backendServer.Close()

	var completed []string
	relay := newGrantRelay(t, "tok-123", "folder-9", &completed, http.StatusOK)
	defer relay.Close()

	transport := NewDirectResumableTransport(relay.URL, backendServer.URL+"/resumable", 1024, http.DefaultClient, newTestLogger())

	var events []Progress
	durableID, err := transport.Upload(context.Background(), testFile("ceremony.mov", "video/quicktime", payload), func(p Progress) {
		events = append(events, p)
	})
	require.NoError(t, err)
	assert.Equal(t, "drive-video-1", durableID)

	assert.True(t, backend.sessionOpened)
	assert.Equal(t, []string{"folder-9"}, backend.parents)
	assert.True(t, strings.HasPrefix(backend.sessionName, "wedding_"), "destination name: %s", backend.sessionName)
	assert.True(t, strings.HasSuffix(backend.sessionName, ".mov"))
	assert.Equal(t, payload, backend.received)

	require.Equal(t, []string{
		fmt.Sprintf("bytes 0-1023/%d", len(payload)),
		fmt.Sprintf("bytes 1024-2047/%d", len(payload)),
		fmt.Sprintf("bytes 2048-2499/%d", len(payload)),
	}, backend.ranges)

	assert.Equal(t, []string{"drive-video-1"}, completed)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, StatusCompleted, last.Status)
	assert.Equal(t, 100, last.Percent)
	lastPercent := -1
	for _, event := range events {
		require.GreaterOrEqual(t, event.Percent, lastPercent)
		lastPercent = event.Percent
	}
}

func TestDirectResumableFailsClosedWithoutCredentials(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"accessToken": "",
			"folderId":    "folder-9",
		}})
	}))
	defer relay.Close()

	transport := NewDirectResumableTransport(relay.URL, "http://unused.invalid", 1024, http.DefaultClient, newTestLogger())

	var events []Progress
	_, err := transport.Upload(context.Background(), testFile("a.jpg", "image/jpeg", []byte("x")), func(p Progress) {
		events = append(events, p)
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCredential))
	require.NotEmpty(t, events)
	assert.Equal(t, StatusFailed, events[len(events)-1].Status)
}

func TestDirectResumableCredentialRefusalAborts(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{
			"code":    "CREDENTIAL_ERROR",
			"message": "token refresh failed",
		}})
	}))
	defer relay.Close()

	transport := NewDirectResumableTransport(relay.URL, "http://unused.invalid", 1024, http.DefaultClient, newTestLogger())

	_, err := transport.Upload(context.Background(), testFile("a.jpg", "image/jpeg", []byte("x")), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCredential))
	assert.Contains(t, err.Error(), "token refresh failed")
}

func TestDirectResumableMissingLocationAborts(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	var completed []string
	relay := newGrantRelay(t, "tok-123", "folder-9", &completed, http.StatusOK)
	defer relay.Close()

	transport := NewDirectResumableTransport(relay.URL, backend.URL, 1024, http.DefaultClient, newTestLogger())

	_, err := transport.Upload(context.Background(), testFile("a.jpg", "image/jpeg", []byte("x")), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTransport))
	assert.Empty(t, completed)
}

func TestDirectResumableChunkRejectionAborts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/resumable", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://"+r.Host+"/session")
	})
	var puts int
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		puts++
		w.WriteHeader(http.StatusForbidden)
	})
	backend := httptest.NewServer(mux)
	defer backend.Close()

	var completed []string
	relay := newGrantRelay(t, "tok-123", "folder-9", &completed, http.StatusOK)
	defer relay.Close()

	transport := NewDirectResumableTransport(relay.URL, backend.URL+"/resumable", 1024, http.DefaultClient, newTestLogger())

	_, err := transport.Upload(context.Background(), testFile("a.jpg", "image/jpeg", bytes.Repeat([]byte("x"), 4000)), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTransport))
	assert.Equal(t, 1, puts, "a rejected chunk must abort the session")
	assert.Empty(t, completed, "a failed upload must not request a visibility grant")
}

func TestDirectResumableGrantFailureDoesNotFailUpload(t *testing.T) {
	payload := []byte("short clip")
	backend := &resumableBackend{durableID: "drive-video-2"}
	backendServer := newResumableBackend(t, backend, int64(len(payload)))
	defer backendServer.Close()

	var completed []string
	relay := newGrantRelay(t, "tok-123", "folder-9", &completed, http.StatusBadGateway)
	defer relay.Close()

	transport := NewDirectResumableTransport(relay.URL, backendServer.URL+"/resumable", 1024, http.DefaultClient, newTestLogger())

	var events []Progress
	durableID, err := transport.Upload(context.Background(), testFile("toast.mp4", "video/mp4", payload), func(p Progress) {
		events = append(events, p)
	})
	require.NoError(t, err)
	assert.Equal(t, "drive-video-2", durableID)
	assert.Equal(t, []string{"drive-video-2"}, completed)
	assert.Equal(t, StatusCompleted, events[len(events)-1].Status)
	assert.Equal(t, 100, events[len(events)-1].Percent)
}
