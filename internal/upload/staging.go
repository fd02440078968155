package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/wedshare/wedshare-backend/pkg/errors"
)

const defaultStagingDirName = "wedshare-uploads"

// Staging persists chunks on local disk, one directory per file id. Each
// chunk write is independent so arrival order does not matter; reassembly
// reads strictly by index.
type Staging struct {
	root string
}

func NewStaging(root string) (*Staging, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), defaultStagingDirName)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging root: %w", err)
	}
	return &Staging{root: root}, nil
}

func (s *Staging) Root() string {
	return s.root
}

// WriteChunk stores one chunk under (fileID, index) and reports its size.
func (s *Staging) WriteChunk(fileID string, index int, chunk io.Reader) (int64, error) {
	dir, err := s.fileDir(fileID)
	if err != nil {
		return 0, err
	}
	if index < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "chunk index must not be negative")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating staging dir: %w", err)
	}

	path := filepath.Join(dir, chunkFileName(index))
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating chunk file: %w", err)
	}
	written, err := io.Copy(f, chunk)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("writing chunk %d: %w", index, err)
	}
	return written, nil
}

// ReadAll concatenates chunks 0..totalChunks-1 in index order. Index order is
// load-bearing: any reordering corrupts the reassembled file.
func (s *Staging) ReadAll(fileID string, totalChunks int) ([]byte, error) {
	dir, err := s.fileDir(fileID)
	if err != nil {
		return nil, err
	}
	if totalChunks <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "totalChunks must be positive")
	}

	var buf []byte
	for i := 0; i < totalChunks; i++ {
		chunk, err := os.ReadFile(filepath.Join(dir, chunkFileName(i)))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeFinalize, err, fmt.Sprintf("chunk %d missing or unreadable", i))
		}
		buf = append(buf, chunk...)
	}
	return buf, nil
}

// Cleanup removes the staging area for one file.
func (s *Staging) Cleanup(fileID string) error {
	dir, err := s.fileDir(fileID)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

func (s *Staging) fileDir(fileID string) (string, error) {
	if err := validateFileID(fileID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, fileID), nil
}

func validateFileID(fileID string) error {
	if strings.TrimSpace(fileID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "fileId is required")
	}
	if strings.ContainsAny(fileID, "/\\") || strings.Contains(fileID, "..") {
		return pkgerrors.New(pkgerrors.CodeValidation, "fileId contains invalid characters")
	}
	return nil
}

func chunkFileName(index int) string {
	return fmt.Sprintf("chunk-%d", index)
}
