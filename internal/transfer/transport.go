package transfer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// File is an immutable reference to the bytes being transferred.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Content  io.ReaderAt
}

func (f File) chunkReader(r Range) io.Reader {
	return io.NewSectionReader(f.Content, r.Start, r.Len())
}

// Status is the lifecycle of one in-flight transfer. Completed and Failed are
// terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusUploading  Status = "uploading"
	StatusFinalizing Status = "finalizing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Progress is one event on a transfer's single-writer progress stream.
type Progress struct {
	TaskID           string
	FileName         string
	Status           Status
	Percent          int
	BytesTransferred int64
	TotalBytes       int64
	Err              string
}

type ProgressFunc func(Progress)

// Transport moves one file to the backend and returns its durable id.
type Transport interface {
	Upload(ctx context.Context, file File, report ProgressFunc) (string, error)
}

// NewTaskID returns a client-generated correlation token, collision-resistant
// for concurrent uploads.
func NewTaskID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}

// transferPercent maps transferred bytes onto 0-90, reserving the final 10%
// for finalize and permission steps.
func transferPercent(transferred, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(transferred * 90 / total)
}

// progressEmitter guards the stream invariants: percent is monotonically
// non-decreasing, never above 100, and bytes never run backwards.
type progressEmitter struct {
	report      ProgressFunc
	taskID      string
	fileName    string
	totalBytes  int64
	lastPercent int
	lastBytes   int64
}

func newProgressEmitter(report ProgressFunc, taskID, fileName string, totalBytes int64) *progressEmitter {
	return &progressEmitter{
		report:     report,
		taskID:     taskID,
		fileName:   fileName,
		totalBytes: totalBytes,
	}
}

func (e *progressEmitter) emit(status Status, percent int, bytes int64) {
	if percent < e.lastPercent {
		percent = e.lastPercent
	}
	if percent > 100 {
		percent = 100
	}
	if bytes < e.lastBytes {
		bytes = e.lastBytes
	}
	e.lastPercent = percent
	e.lastBytes = bytes

	if e.report == nil {
		return
	}
	e.report(Progress{
		TaskID:           e.taskID,
		FileName:         e.fileName,
		Status:           status,
		Percent:          percent,
		BytesTransferred: bytes,
		TotalBytes:       e.totalBytes,
	})
}

func (e *progressEmitter) fail(err error) {
	if e.report == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	e.report(Progress{
		TaskID:           e.taskID,
		FileName:         e.fileName,
		Status:           StatusFailed,
		Percent:          e.lastPercent,
		BytesTransferred: e.lastBytes,
		TotalBytes:       e.totalBytes,
		Err:              msg,
	})
}
