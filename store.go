package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Entry is one stored record. Keys are free-form; map_name, act_name and
// preferred_units are required on the way in and timestamp is added by the
// server.
type Entry = map[string]any

// Store is the persistence layer behind the handlers.
type Store interface {
	// LoadAll returns every element of the array, oldest first. Elements
	// are normally Entry objects, but any JSON value found on disk is
	// returned as is.
	LoadAll() ([]any, error)
	// Append adds entry to the end and returns the new entry count.
	Append(entry Entry) (int, error)
}

// CorruptDataError means the data file is not a JSON array.
type CorruptDataError struct {
	Path string
	Err  error
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("data file %s is corrupted: %v", e.Path, e.Err)
}

func (e *CorruptDataError) Unwrap() error { return e.Err }

// IOError means the data file could not be read or written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IsCorrupt reports whether err is, or wraps, a *CorruptDataError.
func IsCorrupt(err error) bool {
	var ce *CorruptDataError
	return errors.As(err, &ce)
}

// FileStore keeps all entries as one pretty-printed JSON array on disk.
// Every call re-reads the file, so the file stays the only source of truth.
// Appends from this process are serialized; other processes writing the same
// file are not coordinated with.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// EnsureExists writes an empty array to the data file if it is missing.
func (s *FileStore) EnsureExists() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return &IOError{Op: "stat", Path: s.path, Err: err}
	}

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &IOError{Op: "mkdir", Path: dir, Err: err}
		}
	}
	return s.write([]any{})
}

func (s *FileStore) LoadAll() ([]any, error) {
	return s.read()
}

func (s *FileStore) Append(entry Entry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return 0, err
	}
	entries = append(entries, entry)
	if err := s.write(entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *FileStore) read() ([]any, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: s.path, Err: err}
	}

	var entries []any
	if err := decodeJSON(b, &entries); err != nil {
		return nil, &CorruptDataError{Path: s.path, Err: err}
	}
	if entries == nil {
		return nil, &CorruptDataError{Path: s.path, Err: errors.New("top-level value is not an array")}
	}
	return entries, nil
}

// decodeJSON decodes exactly one JSON value from b into v. Numbers are kept
// as json.Number so integers beyond float64 precision survive a rewrite.
func decodeJSON(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after top-level value")
	}
	return nil
}

// write replaces the data file via a temporary file and rename so readers
// never see a partial array.
func (s *FileStore) write(entries []any) error {
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding entries: %w", err)
	}
	b = append(b, '\n')

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &IOError{Op: "create", Path: tmp, Err: err}
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return &IOError{Op: "write", Path: tmp, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &IOError{Op: "sync", Path: tmp, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &IOError{Op: "close", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return &IOError{Op: "rename", Path: s.path, Err: err}
	}
	return nil
}

// MemoryStore is a Store held entirely in memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries []any
}

func NewMemoryStore(entries ...any) *MemoryStore {
	return &MemoryStore{entries: append([]any{}, entries...)}
}

func (s *MemoryStore) LoadAll() ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryStore) Append(entry Entry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return len(s.entries), nil
}
