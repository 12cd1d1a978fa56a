// Package index owns the dataset: it reads the configured text file into
// lines, optionally caches a sorted copy, and answers membership queries.
package index

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/linesift/linesift/internal/search"
)

// FileAccessError is returned when the dataset file cannot be opened or read.
// It is recoverable per query: the connection stays open and the message is
// surfaced to the client as an ERROR response.
type FileAccessError struct {
	// Path is the dataset file path that failed.
	Path string
	// Err is the underlying error.
	Err error
}

// Error returns the client-visible message for the failure.
func (e *FileAccessError) Error() string {
	if errors.Is(e.Err, fs.ErrNotExist) {
		return fmt.Sprintf("File not found: %s", e.Path)
	}
	return fmt.Sprintf("Error reading file %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *FileAccessError) Unwrap() error {
	return e.Err
}

// FileIndex answers membership queries against a newline-delimited text file.
//
// With rereadOnQuery enabled every lookup reads the file fresh, so changes on
// disk are visible immediately. With it disabled the file is read and sorted
// at most once, on the first lookup, and the sorted copy is shared read-only
// by all connections for the lifetime of the server.
type FileIndex struct {
	// path is the dataset file path.
	path string
	// rereadOnQuery forces a fresh disk read per lookup.
	rereadOnQuery bool
	// mu guards cache construction so concurrent first lookups build it once.
	mu sync.Mutex
	// cached is the sorted line cache. Nil until the first successful build;
	// never mutated in place after that.
	cached []string
	// loads counts completed disk reads.
	loads atomic.Int64
}

// New creates a FileIndex for the given dataset file.
func New(path string, rereadOnQuery bool) *FileIndex {
	return &FileIndex{
		path:          path,
		rereadOnQuery: rereadOnQuery,
	}
}

// Lookup reports whether query occurs as an exact line in the dataset file.
// It returns a *FileAccessError when the file cannot be read.
func (ix *FileIndex) Lookup(query string) (bool, error) {
	var lines []string
	var err error

	if ix.rereadOnQuery {
		lines, err = ix.readSorted()
	} else {
		lines, err = ix.cachedLines()
	}
	if err != nil {
		return false, err
	}

	return search.Contains(lines, query), nil
}

// Path returns the dataset file path.
func (ix *FileIndex) Path() string {
	return ix.path
}

// LoadCount returns the number of completed disk reads.
func (ix *FileIndex) LoadCount() int64 {
	return ix.loads.Load()
}

// cachedLines returns the sorted line cache, building it on first use.
// A failed build leaves the cache unset so a later lookup retries.
func (ix *FileIndex) cachedLines() ([]string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.cached != nil {
		return ix.cached, nil
	}

	lines, err := ix.readSorted()
	if err != nil {
		return nil, err
	}

	ix.cached = lines
	return lines, nil
}

// readSorted reads the dataset fresh and returns its lines in ascending order.
func (ix *FileIndex) readSorted() ([]string, error) {
	lines, err := readLines(ix.path)
	if err != nil {
		return nil, &FileAccessError{Path: ix.path, Err: err}
	}

	ix.loads.Add(1)
	sort.Strings(lines)
	return lines, nil
}

// readLines reads a file and splits it into lines. The trailing newline does
// not produce an empty final line, and CRLF line endings are accepted.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return []string{}, nil
	}

	text := strings.TrimSuffix(string(data), "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	return lines, nil
}
