package progress

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var safeProfileID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FileStore keeps one JSON file per profile in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("progress directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating progress directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(profileID string) (string, error) {
	if !safeProfileID.MatchString(profileID) {
		return "", fmt.Errorf("invalid profile id %q", profileID)
	}
	return filepath.Join(s.dir, profileID+".json"), nil
}

func (s *FileStore) Load(_ context.Context, profileID string) (*Record, error) {
	path, err := s.path(profileID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read progress file: %w", err)
	}
	return decodeRecord(data)
}

// Save writes to a temp file in the same directory and renames it over the
// previous file, so a crash mid-write leaves the old record intact.
func (s *FileStore) Save(_ context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	path, err := s.path(rec.ProfileID)
	if err != nil {
		return err
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, rec.ProfileID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write progress: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close progress: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace progress file: %w", err)
	}
	return nil
}

func (s *FileStore) HealthCheck(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
