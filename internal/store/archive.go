package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// archiveLog compresses a pruned log into archiveDir/<name>.json.zst
// and returns the archive path.
func archiveLog(srcPath, archiveDir string) (string, error) {
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	destPath := archivePath(srcPath, archiveDir)

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer dest.Close()

	encoder, err := zstd.NewWriter(dest)
	if err != nil {
		return "", fmt.Errorf("create zstd encoder: %w", err)
	}

	if _, err := io.Copy(encoder, src); err != nil {
		encoder.Close()
		return "", fmt.Errorf("compress: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("finalize compression: %w", err)
	}

	return destPath, nil
}

// ReadArchivedLog decompresses an archived log back into memory.
func ReadArchivedLog(archivePath string) ([]byte, error) {
	src, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer src.Close()

	decoder, err := zstd.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return data, nil
}

func archivePath(srcPath, archiveDir string) string {
	base := strings.TrimSuffix(filepath.Base(srcPath), ".json")
	return filepath.Join(archiveDir, base+".json.zst")
}

// RestoreLog decompresses a pruned log from the archive back into the
// logs directory. Fails if a live log with that name already exists.
func (s *Store) RestoreLog(name string) (string, error) {
	stem := strings.TrimSuffix(strings.TrimSuffix(filepath.Base(strings.TrimSpace(name)), ".zst"), ".json")
	if stem == "" {
		return "", fmt.Errorf("empty log name")
	}
	logPath := filepath.Join(s.LogsDir, stem+".json")
	if _, err := os.Stat(logPath); err == nil {
		return "", fmt.Errorf("log %s.json already exists", stem)
	}

	data, err := ReadArchivedLog(filepath.Join(s.ArchiveDir, stem+".json.zst"))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.LogsDir, 0o755); err != nil {
		return "", fmt.Errorf("create logs dir: %w", err)
	}
	if err := os.WriteFile(logPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write restored log: %w", err)
	}
	return logPath, nil
}
