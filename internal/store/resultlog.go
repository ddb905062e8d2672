package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pbaille/marktwatch/internal/domain"
	"github.com/pbaille/marktwatch/internal/logcodec"
)

// ResultLog is the append-only results file.
// Appends, reads and truncation are serialised within the process.
type ResultLog struct {
	mu   sync.Mutex
	path string
}

// NewResultLog returns a log backed by path. The file is created lazily.
func NewResultLog(path string) *ResultLog {
	return &ResultLog{path: path}
}

// Path returns the backing file path
func (l *ResultLog) Path() string {
	return l.path
}

// EnsureBanner writes the file banner if the log does not exist yet
func (l *ResultLog) EnsureBanner(now time.Time, distanceKm int, postcode string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &domain.StorageError{Op: "stat", Path: l.path, Err: err}
	}

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &domain.StorageError{Op: "create dir", Path: dir, Err: err}
		}
	}

	banner := fmt.Sprintf("Marktplaats Monitor Results - Started %s\nChecking %dkm around %s\n%s\n\n",
		now.Format(logcodec.TimeLayout), distanceKm, postcode, strings.Repeat("=", 64))
	if err := os.WriteFile(l.path, []byte(banner), 0o644); err != nil {
		return &domain.StorageError{Op: "create", Path: l.path, Err: err}
	}
	return nil
}

// Append writes data at the end of the log
func (l *ResultLog) Append(data string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return &domain.StorageError{Op: "open", Path: l.path, Err: err}
	}
	// a write cut short mid-line must not swallow the next header
	if torn, err := endsMidLine(f); err != nil {
		f.Close()
		return &domain.StorageError{Op: "append", Path: l.path, Err: err}
	} else if torn {
		data = "\n" + data
	}
	if _, err := f.WriteString(data); err != nil {
		f.Close()
		return &domain.StorageError{Op: "append", Path: l.path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &domain.StorageError{Op: "close", Path: l.path, Err: err}
	}
	return nil
}

func endsMidLine(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

// ReadAll returns the whole log. A missing file reads as empty.
func (l *ResultLog) ReadAll() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", &domain.StorageError{Op: "read", Path: l.path, Err: err}
	}
	return string(data), nil
}

// Records decodes the whole log
func (l *ResultLog) Records() ([]domain.Record, []logcodec.Warning, error) {
	data, err := l.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	records, warnings := logcodec.DecodeString(data)
	return records, warnings, nil
}

// Truncate empties the log
func (l *ResultLog) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Truncate(l.path, 0); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &domain.StorageError{Op: "truncate", Path: l.path, Err: err}
	}
	return nil
}
