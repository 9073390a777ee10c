package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/knowledge-engine/docsearch/internal/search"
)

// SerializationError reports an index that could not be written.
type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("serialize index: %v", e.Err)
	}
	return fmt.Sprintf("serialize index to %s: %v", e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// DeserializationError reports a persisted index that could not be read or
// does not have the expected shape.
type DeserializationError struct {
	Path string
	Err  error
}

func (e *DeserializationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("deserialize index: %v", e.Err)
	}
	return fmt.Sprintf("deserialize index from %s: %v", e.Path, e.Err)
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}

// IndexStorage defines the interface for persisting an index
type IndexStorage interface {
	Save(index search.TermFreqIndex) error
	Load() (search.TermFreqIndex, error)
}

// Serialize writes index as a JSON object mapping each document path to an
// object of token counts.
func Serialize(w io.Writer, index search.TermFreqIndex) error {
	if index == nil {
		index = search.TermFreqIndex{}
	}
	if err := json.NewEncoder(w).Encode(index); err != nil {
		return &SerializationError{Err: err}
	}
	return nil
}

// Deserialize reads an index written by Serialize. Zero counts are dropped;
// negative or fractional counts and trailing data are rejected.
func Deserialize(r io.Reader) (search.TermFreqIndex, error) {
	dec := json.NewDecoder(r)

	var raw map[string]map[string]json.Number
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, &DeserializationError{Err: err}
	}
	if raw == nil {
		return nil, &DeserializationError{Err: errors.New("index is null")}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &DeserializationError{Err: errors.New("unexpected data after index")}
	}

	index := make(search.TermFreqIndex, len(raw))
	for path, counts := range raw {
		if counts == nil {
			return nil, &DeserializationError{Err: fmt.Errorf("document %q: term counts are null", path)}
		}
		tf := make(search.TermFreq, len(counts))
		for term, number := range counts {
			count, err := number.Int64()
			if err != nil || count < 0 {
				return nil, &DeserializationError{Err: fmt.Errorf("document %q: invalid count %s for term %q", path, number, term)}
			}
			if count > 0 {
				tf[term] = int(count)
			}
		}
		index[path] = tf
	}
	return index, nil
}

// FileStorage implements IndexStorage on a single JSON file. Writers take an
// exclusive lock on a sibling lock file and replace the index atomically.
type FileStorage struct {
	path string
	lock *flock.Flock
}

// NewFileStorage creates a file-based index store at path
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the location of the index file.
func (fs *FileStorage) Path() string {
	return fs.path
}

// Save writes the index to disk
func (fs *FileStorage) Save(index search.TermFreqIndex) error {
	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &SerializationError{Path: fs.path, Err: fmt.Errorf("failed to create index directory: %w", err)}
	}

	if err := fs.lock.Lock(); err != nil {
		return &SerializationError{Path: fs.path, Err: fmt.Errorf("failed to acquire lock: %w", err)}
	}
	defer fs.lock.Unlock()

	tmp, err := os.CreateTemp(dir, filepath.Base(fs.path)+".*.tmp")
	if err != nil {
		return &SerializationError{Path: fs.path, Err: err}
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := Serialize(w, index); err != nil {
		tmp.Close()
		return &SerializationError{Path: fs.path, Err: errors.Unwrap(err)}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return &SerializationError{Path: fs.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &SerializationError{Path: fs.path, Err: err}
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return &SerializationError{Path: fs.path, Err: err}
	}
	return nil
}

// Load reads the index from disk. The shared lock is taken only when a
// writer has already created the lock file; Load never creates it, so an
// index in a read-only directory can still be opened.
func (fs *FileStorage) Load() (search.TermFreqIndex, error) {
	f, err := os.Open(fs.path)
	if err != nil {
		return nil, &DeserializationError{Path: fs.path, Err: err}
	}
	defer f.Close()

	// Save renames over the target, so the open handle is a complete index
	// whether or not the lock is held.
	if _, err := os.Stat(fs.lock.Path()); err == nil {
		if err := fs.lock.RLock(); err == nil {
			defer fs.lock.Unlock()
		}
	}

	index, err := Deserialize(bufio.NewReader(f))
	if err != nil {
		return nil, &DeserializationError{Path: fs.path, Err: errors.Unwrap(err)}
	}
	return index, nil
}
