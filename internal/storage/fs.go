package storage

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

// FSStore keeps one JSON file per state key under base. It backs lesson
// progress when no database is wanted (STATE_DRIVER=fs).
type FSStore struct{ base string }

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base}, nil
}

func (s *FSStore) path(key string) string {
	return filepath.Join(s.base, url.PathEscape(key)+".json")
}

func (s *FSStore) Get(key string) (string, error) {
	if key == "" {
		return "", errors.New("empty key")
	}
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	return string(b), err
}

// Set replaces the file through a rename so readers never see a partial record.
func (s *FSStore) Set(key, value string) error {
	if key == "" {
		return errors.New("empty key")
	}
	dst := s.path(key)
	f, err := os.CreateTemp(s.base, ".state-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.WriteString(value); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
