// Package store implements the local artifact store: a flat directory of
// model files addressed by name.
//
// Writes go to a temp file in the same directory and are renamed into place,
// and each name has its own lock, so a reader never observes a partial file.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"agentcore/internal/common/fsutil"
	"agentcore/internal/faults"
)

// tempPrefix marks in-progress writes; List skips them.
const tempPrefix = ".partial-"

// Store is a directory of named artifacts. Safe for concurrent use.
type Store struct {
	dir string
	log zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// New opens the store rooted at dir, creating the directory if missing.
func New(dir string, log zerolog.Logger) (*Store, error) {
	abs, err := fsutil.ResolveDir(dir)
	if err != nil {
		return nil, faults.IOFailure("store open", err)
	}
	return &Store{dir: abs, log: log.With().Str("component", "store").Logger(), locks: make(map[string]*sync.RWMutex)}, nil
}

// Dir returns the absolute store directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) lockFor(name string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[name] = l
	}
	return l
}

// RLock holds name's read lock until the returned func is called. Writers of
// the same name block meanwhile.
func (s *Store) RLock(name string) func() {
	l := s.lockFor(name)
	l.RLock()
	return l.RUnlock
}

// Path returns the absolute file path for name. It does not check existence.
func (s *Store) Path(name string) (string, error) {
	if !fsutil.ValidName(name) {
		return "", faults.IOFailure("store path", fmt.Errorf("invalid artifact name %q", name))
	}
	return filepath.Join(s.dir, name), nil
}

// List returns artifact names in directory order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, faults.IOFailure("store list", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Exists reports whether name is stored.
func (s *Store) Exists(name string) bool {
	p, err := s.Path(name)
	if err != nil {
		return false
	}
	return fsutil.IsRegularFile(p)
}

// SizeOf returns the stored size of name, or 0 when absent.
func (s *Store) SizeOf(name string) int64 {
	p, err := s.Path(name)
	if err != nil {
		return 0
	}
	fi, err := os.Stat(p)
	if err != nil || !fi.Mode().IsRegular() {
		return 0
	}
	return fi.Size()
}

// Delete removes name and reports whether a file was removed.
func (s *Store) Delete(name string) bool {
	p, err := s.Path(name)
	if err != nil {
		return false
	}
	l := s.lockFor(name)
	l.Lock()
	defer l.Unlock()
	if err := os.Remove(p); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Str("name", name).Msg("delete failed")
		}
		return false
	}
	s.log.Debug().Str("name", name).Msg("artifact deleted")
	return true
}

// Save writes data under name, replacing any previous content.
func (s *Store) Save(name string, data []byte) error {
	_, err := s.SaveFrom(name, bytes.NewReader(data))
	return err
}

// SaveFrom streams r into name and returns the number of bytes written.
func (s *Store) SaveFrom(name string, r io.Reader) (int64, error) {
	if _, err := s.Path(name); err != nil {
		return 0, err
	}
	f, err := s.CreateTemp()
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return 0, faults.IOFailure("store save", err)
	}
	if err := s.Commit(name, f.Name()); err != nil {
		return 0, err
	}
	return n, nil
}

// CreateTemp opens a new temp file inside the store directory. Callers either
// Commit it or remove it.
func (s *Store) CreateTemp() (*os.File, error) {
	f, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return nil, faults.IOFailure("store temp", err)
	}
	return f, nil
}

// Commit atomically moves a finished temp file into place under name.
func (s *Store) Commit(name, tempPath string) error {
	p, err := s.Path(name)
	if err != nil {
		_ = os.Remove(tempPath)
		return err
	}
	l := s.lockFor(name)
	l.Lock()
	defer l.Unlock()
	if err := os.Rename(tempPath, p); err != nil {
		_ = os.Remove(tempPath)
		return faults.IOFailure("store commit", err)
	}
	s.log.Debug().Str("name", name).Msg("artifact saved")
	return nil
}
