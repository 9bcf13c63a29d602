package infra

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/viik420/bt-mac-changer/internal/domain"
)

const backupFileName = "original_address"

// FileBackupStore implements domain.BackupStore as a single text file.
// The record is written at most once: creation goes through link(2),
// which refuses to replace an existing path.
type FileBackupStore struct {
	dir  string
	path string
}

// NewFileBackupStore creates a backup store in dir.
func NewFileBackupStore(dir string) *FileBackupStore {
	return &FileBackupStore{
		dir:  dir,
		path: filepath.Join(dir, backupFileName),
	}
}

// GetPath returns the record path.
func (s *FileBackupStore) GetPath() string {
	return s.path
}

// Exists checks if the record is present.
func (s *FileBackupStore) Exists() bool {
	_, err := os.Lstat(s.path)
	return err == nil
}

// Read returns the recorded original address.
func (s *FileBackupStore) Read() (domain.Address, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}

	addr, err := domain.ParseAddress(strings.TrimSpace(string(data)))
	if err != nil {
		return "", true, fmt.Errorf("corrupt backup record %s: %w", s.path, err)
	}
	return addr, true, nil
}

// WriteIfAbsent records addr unless a record exists.
// The content is fully written and synced to a temp file before it is
// linked into place, so a reader never sees a partial record.
func (s *FileBackupStore) WriteIfAbsent(addr domain.Address) (domain.BackupWrite, error) {
	if _, err := domain.ParseAddress(addr.String()); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	// MkdirAll leaves an existing directory's mode alone.
	if err := os.Chmod(s.dir, 0700); err != nil {
		return "", fmt.Errorf("failed to restrict backup directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.dir, ".original-tmp-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.WriteString(addr.String() + "\n"); err != nil {
		tmpFile.Close()
		return "", err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		return "", err
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return "", err
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	if err := os.Link(tmpPath, s.path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return domain.BackupAlreadyPresent, nil
		}
		return "", fmt.Errorf("failed to create backup record: %w", err)
	}

	syncDir(s.dir)
	return domain.BackupWritten, nil
}

// Remove deletes the record.
func (s *FileBackupStore) Remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// syncDir flushes directory entries so a rename or link survives a crash.
// Best-effort: not every filesystem supports fsync on directories.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	d.Close()
}

// Ensure FileBackupStore implements domain.BackupStore.
var _ domain.BackupStore = (*FileBackupStore)(nil)
