package transfer

import (
	"context"

	"github.com/wedshare/wedshare-backend/pkg/logger"
)

// FileResult is the outcome of one file in a batch.
type FileResult struct {
	FileName string
	FileID   string
	Err      error
}

// BatchResult aggregates a whole batch. A batch never aborts early; every
// file gets its attempt.
type BatchResult struct {
	UploadedCount int
	FailedCount   int
	Results       []FileResult
}

// Succeeded reports whether at least one file made it to durable storage.
func (r BatchResult) Succeeded() bool {
	return r.UploadedCount > 0
}

// Orchestrator runs a batch of uploads sequentially over one transport.
type Orchestrator struct {
	transport     Transport
	maxVideoBytes int64
	logg          *logger.Logger
}

func NewOrchestrator(transport Transport, maxVideoBytes int64, logg *logger.Logger) *Orchestrator {
	return &Orchestrator{
		transport:     transport,
		maxVideoBytes: maxVideoBytes,
		logg:          logg,
	}
}

// UploadAll pushes the files one at a time, in order. A file that fails
// validation never reaches the network; a file that fails mid-transfer is
// recorded and the batch moves on.
func (o *Orchestrator) UploadAll(ctx context.Context, files []File, report ProgressFunc) BatchResult {
	result := BatchResult{Results: make([]FileResult, 0, len(files))}

	for _, file := range files {
		if err := ValidateFile(file, o.maxVideoBytes); err != nil {
			o.reportRejected(file, err, report)
			result.FailedCount++
			result.Results = append(result.Results, FileResult{FileName: file.Name, Err: err})
			continue
		}

		durableID, err := o.transport.Upload(ctx, file, report)
		if err != nil {
			if o.logg != nil {
				o.logg.Error(ctx, "upload failed", err)
			}
			result.FailedCount++
			result.Results = append(result.Results, FileResult{FileName: file.Name, Err: err})
			continue
		}

		result.UploadedCount++
		result.Results = append(result.Results, FileResult{FileName: file.Name, FileID: durableID})
	}
	return result
}

func (o *Orchestrator) reportRejected(file File, err error, report ProgressFunc) {
	if report == nil {
		return
	}
	report(Progress{
		TaskID:     NewTaskID(),
		FileName:   file.Name,
		Status:     StatusFailed,
		TotalBytes: file.Size,
		Err:        err.Error(),
	})
}
