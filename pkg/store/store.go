// Package store persists report artifacts as JSON files, including capped
// history arrays where only the most recent N entries are retained.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/amosWeiskopf/seoautomation/pkg/logger"
)

// History caps
const (
	MetricsCap = 100
	AlertsCap  = 1000
	AuditCap   = 50
)

// Artifact file names under the reports directory
const (
	ContentStateFile      = "content-state.json"
	RankingsFile          = "rankings.json"
	TrafficFile           = "traffic.json"
	ConversionsFile       = "conversions.json"
	TechnicalAuditFile    = "technical-audit.json"
	FullAnalysisFile      = "full-analysis.json"
	NotificationStateFile = "notification-state.json"
	AlertsFile            = "alerts.json"
)

// Store reads and writes JSON artifacts under a base directory.
// Writes go to a temp file in the same directory and are renamed into place.
type Store struct {
	fs  afero.Fs
	dir string
	log *logger.Logger
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Store
type Option func(*Store)

// WithLogger reports recovered history files through log
func WithLogger(log *logger.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store rooted at dir
func New(fsys afero.Fs, dir string, opts ...Option) *Store {
	s := &Store{
		fs:    fsys,
		dir:   dir,
		log:   logger.Nop(),
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fs returns the underlying filesystem
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Dir returns the base directory
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the full path for name
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) lock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// Exists reports whether name exists
func (s *Store) Exists(name string) bool {
	ok, err := afero.Exists(s.fs, s.Path(name))
	return err == nil && ok
}

// ReadFile returns the raw bytes of name
func (s *Store) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(s.fs, s.Path(name))
}

// WriteFile atomically replaces name with data
func (s *Store) WriteFile(name string, data []byte) error {
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()
	return WriteFileAtomic(s.fs, s.Path(name), data)
}

// ReadJSON decodes name into v
func (s *Store) ReadJSON(name string, v any) error {
	data, err := s.ReadFile(name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// WriteJSON encodes v with indentation and atomically replaces name
func (s *Store) WriteJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return s.WriteFile(name, data)
}

// IsNotExist reports whether err means the artifact is missing
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}

// WriteFileAtomic writes data to a temp file next to path and renames it over path
func WriteFileAtomic(fsys afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(fsys, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		fsys.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		fsys.Remove(tmpName)
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		fsys.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		fsys.Remove(tmpName)
		return fmt.Errorf("failed to rename %s: %w", tmpName, err)
	}
	return nil
}
