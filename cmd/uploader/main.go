package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/wedshare/wedshare-backend/internal/transfer"
	"github.com/wedshare/wedshare-backend/pkg/config"
	"github.com/wedshare/wedshare-backend/pkg/logger"
)

func main() {
	mode := flag.String("mode", "auto", "transport mode: auto, relay or direct")
	quiet := flag.Bool("quiet", false, "suppress per-chunk progress output")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "uploader"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: uploader [-mode relay|direct] [-quiet] <file> [file...]")
		os.Exit(2)
	}

	relayTransport := transfer.NewRelayTransport(cfg.Upload.RelayEndpoint, cfg.Upload.RelayChunkBytes, nil, logg)
	directTransport := transfer.NewDirectResumableTransport(cfg.Upload.RelayEndpoint, cfg.Upload.ResumableEndpoint, cfg.Upload.DirectChunkBytes, nil, logg)

	files, handles, err := openFiles(paths)
	if err != nil {
		logg.Error(context.Background(), "failed to open input files", err)
		os.Exit(1)
	}
	defer func() {
		for _, h := range handles {
			h.Close()
		}
	}()

	// Auto mode keeps small files on the relay and sends anything too big
	// for a single staged reassembly straight to the backend.
	var relayFiles, directFiles []transfer.File
	switch *mode {
	case "relay":
		relayFiles = files
	case "direct":
		directFiles = files
	case "auto":
		for _, f := range files {
			if f.Size > cfg.Upload.RelayChunkBytes*8 {
				directFiles = append(directFiles, f)
				continue
			}
			relayFiles = append(relayFiles, f)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}

	report := printProgress
	if *quiet {
		report = nil
	}

	var result transfer.BatchResult
	if len(relayFiles) > 0 {
		orch := transfer.NewOrchestrator(relayTransport, cfg.Upload.MaxVideoBytes(), logg)
		merge(&result, orch.UploadAll(context.Background(), relayFiles, report))
	}
	if len(directFiles) > 0 {
		orch := transfer.NewOrchestrator(directTransport, cfg.Upload.MaxVideoBytes(), logg)
		merge(&result, orch.UploadAll(context.Background(), directFiles, report))
	}

	for _, fr := range result.Results {
		if fr.Err != nil {
			fmt.Printf("FAILED   %s: %v\n", fr.FileName, fr.Err)
			continue
		}
		fmt.Printf("UPLOADED %s -> %s\n", fr.FileName, fr.FileID)
	}
	fmt.Printf("%d uploaded, %d failed\n", result.UploadedCount, result.FailedCount)

	if !result.Succeeded() {
		os.Exit(1)
	}
}

func merge(total *transfer.BatchResult, batch transfer.BatchResult) {
	total.UploadedCount += batch.UploadedCount
	total.FailedCount += batch.FailedCount
	total.Results = append(total.Results, batch.Results...)
}

func openFiles(paths []string) ([]transfer.File, []*os.File, error) {
	files := make([]transfer.File, 0, len(paths))
	handles := make([]*os.File, 0, len(paths))

	for _, path := range paths {
		handle, err := os.Open(path)
		if err != nil {
			for _, h := range handles {
				h.Close()
			}
			return nil, nil, err
		}
		info, err := handle.Stat()
		if err != nil {
			handle.Close()
			for _, h := range handles {
				h.Close()
			}
			return nil, nil, err
		}

		handles = append(handles, handle)
		files = append(files, transfer.File{
			Name:     filepath.Base(path),
			MimeType: detectMime(path),
			Size:     info.Size(),
			Content:  handle,
		})
	}
	return files, handles, nil
}

func detectMime(path string) string {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		return "application/octet-stream"
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return mimeType
}

func printProgress(p transfer.Progress) {
	if p.Status == transfer.StatusFailed {
		fmt.Printf("%-12s %s: %s\n", p.Status, p.FileName, p.Err)
		return
	}
	fmt.Printf("%-12s %s: %d%% (%d/%d bytes)\n", p.Status, p.FileName, p.Percent, p.BytesTransferred, p.TotalBytes)
}
