package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Store reads and appends the corpus file. Appends from one process are
// serialized; the file itself is not locked against other processes.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store for the JSONL file at path. The file does not
// need to exist yet.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the corpus file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads every line of the corpus in order. A missing file is an empty
// corpus. Lines that do not parse are returned as entries with Err set.
func (s *Store) Load() ([]Entry, error) {
	lines, err := s.lines()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(lines))
	for i, line := range lines {
		entries[i] = parseEntry(i+1, line)
	}
	return entries, nil
}

// Count returns the number of test cases in the corpus.
func (s *Store) Count() (int, error) {
	lines, err := s.lines()
	if err != nil {
		return 0, err
	}
	return len(lines), nil
}

// Append writes rec as a new last line and returns its test number.
func (s *Store) Append(rec *Record) (int, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal test case: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("failed to create corpus directory: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	// A hand-edited file may lack the final newline; never glue two
	// records onto one line.
	if missing, err := missingFinalNewline(f); err != nil {
		return 0, err
	} else if missing {
		data = append([]byte("\n"), data...)
	}
	data = append(data, '\n')

	if _, err := f.Write(data); err != nil {
		return 0, fmt.Errorf("failed to append test case: %w", err)
	}

	lines, err := s.lines()
	if err != nil {
		return 0, err
	}
	return len(lines), nil
}

func missingFinalNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat corpus: %w", err)
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read corpus: %w", err)
	}
	return last[0] != '\n', nil
}

// lines splits the file into lines without their terminators. A trailing
// newline does not start a new line.
func (s *Store) lines() ([][]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	data = bytes.TrimSuffix(data, []byte("\n"))
	lines := bytes.Split(data, []byte("\n"))
	for i, line := range lines {
		lines[i] = bytes.TrimSuffix(line, []byte("\r"))
	}
	return lines, nil
}
