package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const backupTimeFormat = "20060102T150405.000Z"

// FileStore owns the canonical snapshot file and its timestamped backups
type FileStore struct {
	path      string
	backupDir string
	retention int
}

// NewFileStore creates a file store. retention <= 0 keeps every backup.
func NewFileStore(path, backupDir string, retention int) *FileStore {
	return &FileStore{
		path:      path,
		backupDir: backupDir,
		retention: retention,
	}
}

// Path returns the canonical snapshot location
func (f *FileStore) Path() string {
	return f.path
}

// WriteAtomic replaces the canonical file. Readers see either the old or the new content.
func (f *FileStore) WriteAtomic(data []byte) error {
	if err := writeFileAtomic(f.path, data); err != nil {
		return failure("write snapshot", err)
	}
	return nil
}

// Read returns the canonical file's content, or ErrNoSnapshot if it does not exist
func (f *FileStore) Read() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, failure("read snapshot", err)
	}
	return data, nil
}

// Backup copies the canonical file to the backup directory and prunes old copies.
// It returns the backup path and size.
func (f *FileStore) Backup(now time.Time) (string, int64, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", 0, failure("backup", fmt.Errorf("canonical snapshot %s does not exist", f.path))
	}
	if err != nil {
		return "", 0, failure("backup", err)
	}

	name := fmt.Sprintf("%s-%s.zst", f.backupBase(), now.UTC().Format(backupTimeFormat))
	target := filepath.Join(f.backupDir, name)
	if err := writeFileAtomic(target, data); err != nil {
		return "", 0, failure("backup", err)
	}

	if err := f.prune(); err != nil {
		return target, int64(len(data)), failure("prune backups", err)
	}
	return target, int64(len(data)), nil
}

// ListBackups returns backup paths, oldest first
func (f *FileStore) ListBackups() ([]string, error) {
	entries, err := os.ReadDir(f.backupDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, failure("list backups", err)
	}

	prefix := f.backupBase() + "-"
	var backups []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".zst") {
			continue
		}
		backups = append(backups, filepath.Join(f.backupDir, name))
	}
	// The timestamp format sorts lexically
	sort.Strings(backups)
	return backups, nil
}

func (f *FileStore) prune() error {
	if f.retention <= 0 {
		return nil
	}
	backups, err := f.ListBackups()
	if err != nil {
		return err
	}
	for len(backups) > f.retention {
		if err := os.Remove(backups[0]); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		backups = backups[1:]
	}
	return nil
}

func (f *FileStore) backupBase() string {
	return strings.TrimSuffix(filepath.Base(f.path), ".zst")
}

// writeFileAtomic writes to a temp file in the target directory, syncs it and renames it
// over the target.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err = os.Rename(tmpName, path); err != nil {
		return err
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	// Some platforms cannot fsync a directory
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}
	return nil
}
