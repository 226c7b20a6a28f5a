package history

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"unicode"

	"github.com/gofrs/flock"
	"github.com/oarkflow/errors"
	"github.com/oarkflow/json"
)

// FileStore keeps runs as a JSON array in a single file. Writers in other
// processes are excluded through a lock file next to it.
type FileStore struct {
	path     string
	file     *os.File
	fileLock *flock.Flock
	mu       sync.Mutex
	tailSize int64
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("history file path is required")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	s := &FileStore{
		path:     path,
		file:     f,
		fileLock: flock.New(path + ".lock"),
		tailSize: 1024,
	}
	if err := s.validateOrInitialize(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func (s *FileStore) validateOrInitialize() error {
	if err := s.fileLock.Lock(); err != nil {
		return err
	}
	defer func() {
		_ = s.fileLock.Unlock()
	}()
	fi, err := s.file.Stat()
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		if _, err := s.file.WriteAt([]byte("[\n]\n"), 0); err != nil {
			return err
		}
		return s.file.Sync()
	}
	data, err := s.readAll()
	if err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("[")) || !bytes.HasSuffix(trimmed, []byte("]")) {
		return errors.New("invalid history file: expected a JSON array")
	}
	return nil
}

func (s *FileStore) Save(_ context.Context, run Run) error {
	element, err := json.Marshal(run)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fileLock.Lock(); err != nil {
		return err
	}
	defer func() {
		_ = s.fileLock.Unlock()
	}()

	fi, err := s.file.Stat()
	if err != nil {
		return err
	}
	tailSize := s.tailSize
	if fi.Size() < tailSize {
		tailSize = fi.Size()
	}
	offset := fi.Size() - tailSize
	buf := make([]byte, tailSize)
	if _, err := s.file.ReadAt(buf, offset); err != nil && err != io.EOF {
		return err
	}
	closing := bytes.LastIndexByte(buf, ']')
	if closing == -1 {
		return errors.New("invalid history file: missing closing bracket")
	}
	pos := closing - 1
	for pos >= 0 && unicode.IsSpace(rune(buf[pos])) {
		pos--
	}
	if pos < 0 {
		return errors.New("invalid history file: unable to find content before closing bracket")
	}
	prefix := []byte(",\n  ")
	if buf[pos] == '[' {
		prefix = []byte("\n  ")
	}
	end := offset + int64(pos) + 1
	if err := s.file.Truncate(end); err != nil {
		return err
	}
	data := append(prefix, element...)
	data = append(data, []byte("\n]\n")...)
	if _, err := s.file.WriteAt(data, end); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *FileStore) Get(ctx context.Context, id string) (Run, error) {
	runs, err := s.List(ctx, 0)
	if err != nil {
		return Run{}, err
	}
	for _, run := range runs {
		if run.ID == id {
			return run, nil
		}
	}
	return Run{}, ErrNotFound
}

func (s *FileStore) List(_ context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fileLock.RLock(); err != nil {
		return nil, err
	}
	defer func() {
		_ = s.fileLock.Unlock()
	}()
	data, err := s.readAll()
	if err != nil {
		return nil, err
	}
	var stored []Run
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	runs := make([]Run, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		runs = append(runs, stored[i])
	}
	return clampList(runs, limit), nil
}

func (s *FileStore) readAll() ([]byte, error) {
	fi, err := s.file.Stat()
	if err != nil {
		return nil, err
	}
	data := make([]byte, fi.Size())
	if _, err := s.file.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return data, nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
