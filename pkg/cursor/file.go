package cursor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ghcatalog/extractor/pkg/logging"
	"github.com/rs/zerolog"
)

// FileStore keeps the cursor as plain text in a single well-known path.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore creates a file-backed cursor store. The parent directory is
// created if missing so the first Save cannot fail on a fresh checkout.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("cursor file path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cursor directory: %w", err)
		}
	}
	return &FileStore{
		path:   path,
		logger: logging.NewLogger("cursor-file"),
	}, nil
}

// Load reads the cursor from disk. A missing file means no prior run.
func (s *FileStore) Load(ctx context.Context) (int64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read cursor file: %w", err)
	}

	value, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cursor file %s: %w", s.path, err)
	}
	return value, nil
}

// Save overwrites the cursor atomically via temp file and rename.
func (s *FileStore) Save(ctx context.Context, value int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp cursor file: %w", err)
	}

	if _, err := tmp.WriteString(strconv.FormatInt(value, 10) + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cursor file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cursor file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename cursor file: %w", err)
	}

	s.logger.Debug().Int64("cursor", value).Str("path", s.path).Msg("Cursor saved")
	return nil
}
