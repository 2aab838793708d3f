// Package vfile is the file record that flows through scriptindex: HTML
// documents going in and resolved script files coming out.
//
// A File carries exactly one of three payloads:
//   - none (a null file, forwarded untouched by the indexer)
//   - a complete in-memory buffer
//   - a readable stream, consumed at most once
//
// Whatever the payload, Chunks exposes it as one finite, non-restartable
// sequence of byte slices so consumers have a single code path.
package vfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sync"
)

// chunkSize is the read size used when draining a stream payload.
const chunkSize = 32 * 1024

// ErrConsumed is returned when a stream payload is read a second time.
var ErrConsumed = errors.New("stream payload already consumed")

// File is a virtual file record.
type File struct {
	// Cwd is the working directory the file was loaded relative to.
	Cwd string
	// Base is the directory Relative is computed from. For HTML documents it
	// is the glob parent and doubles as the default script search root.
	Base string
	// Path is the absolute path of the file.
	Path string

	contents []byte
	stream   io.ReadCloser

	mu       sync.Mutex
	consumed bool
}

// NewNull creates a File without payload.
func NewNull(cwd, base, path string) *File {
	return &File{Cwd: cwd, Base: base, Path: path}
}

// NewBuffer creates a File whose payload is data. A nil data slice is
// treated as an empty buffer, not as a null payload.
func NewBuffer(cwd, base, path string, data []byte) *File {
	if data == nil {
		data = []byte{}
	}
	return &File{Cwd: cwd, Base: base, Path: path, contents: data}
}

// NewStream creates a File whose payload is read from r.
func NewStream(cwd, base, path string, r io.ReadCloser) *File {
	if r == nil {
		return NewNull(cwd, base, path)
	}
	return &File{Cwd: cwd, Base: base, Path: path, stream: r}
}

// IsNull reports whether the file has no payload.
func (f *File) IsNull() bool {
	return f.contents == nil && f.stream == nil
}

// IsBuffer reports whether the payload is an in-memory buffer.
func (f *File) IsBuffer() bool {
	return f.contents != nil
}

// IsStream reports whether the payload is a stream.
func (f *File) IsStream() bool {
	return f.stream != nil
}

// Contents returns the buffer payload, or nil for null and stream files.
func (f *File) Contents() []byte {
	return f.contents
}

// Relative returns Path relative to Base, falling back to Path when no
// relative form exists.
func (f *File) Relative() string {
	if f.Base == "" {
		return f.Path
	}
	rel, err := filepath.Rel(f.Base, f.Path)
	if err != nil {
		return f.Path
	}
	return rel
}

// String implements fmt.Stringer.
func (f *File) String() string {
	kind := "null"
	switch {
	case f.IsBuffer():
		kind = "buffer"
	case f.IsStream():
		kind = "stream"
	}
	return fmt.Sprintf("<File %q %s>", f.Relative(), kind)
}

// Chunks yields the payload as a sequence of byte slices. A buffer yields
// itself once; a stream is read in chunkSize pieces and closed when the
// sequence ends. Read failures are yielded as the error element, after which
// the sequence stops. Null files yield nothing.
//
// The sequence is not restartable for streams: a second traversal yields
// ErrConsumed.
func (f *File) Chunks() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		switch {
		case f.IsBuffer():
			if len(f.contents) > 0 {
				yield(f.contents, nil)
			}
		case f.IsStream():
			f.mu.Lock()
			if f.consumed {
				f.mu.Unlock()
				yield(nil, ErrConsumed)
				return
			}
			f.consumed = true
			f.mu.Unlock()

			defer f.stream.Close()
			for {
				buf := make([]byte, chunkSize)
				n, err := f.stream.Read(buf)
				if n > 0 {
					if !yield(buf[:n], nil) {
						return
					}
				}
				if err == io.EOF {
					return
				}
				if err != nil {
					yield(nil, err)
					return
				}
			}
		}
	}
}

// ReadAll drains the payload into memory. A buffer returns its Contents
// without copying.
func (f *File) ReadAll() ([]byte, error) {
	if f.IsBuffer() {
		return f.Contents(), nil
	}
	var buf bytes.Buffer
	for chunk, err := range f.Chunks() {
		if err != nil {
			return nil, err
		}
		buf.Write(chunk)
	}
	return buf.Bytes(), nil
}

// ReadOptions controls how Read loads a file.
type ReadOptions struct {
	Cwd    string // Working directory; relative paths are resolved against it
	Base   string // Base directory; defaults to Cwd
	Stream bool   // Open the file lazily as a stream instead of buffering it
}

// Read loads the file at path as a File.
func Read(path string, opts ReadOptions) (*File, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(opts.Cwd, path)
	}
	path = filepath.Clean(path)
	base := opts.Base
	if base == "" {
		base = opts.Cwd
	}

	if opts.Stream {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("path is a directory: %s", path)
		}
		return NewStream(opts.Cwd, base, path, &lazyFile{path: path}), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewBuffer(opts.Cwd, base, path, data), nil
}

// lazyFile opens its path on the first Read so that holding many stream
// files does not hold as many descriptors.
type lazyFile struct {
	path string
	f    *os.File
}

func (l *lazyFile) Read(p []byte) (int, error) {
	if l.f == nil {
		f, err := os.Open(l.path)
		if err != nil {
			return 0, err
		}
		l.f = f
	}
	return l.f.Read(p)
}

func (l *lazyFile) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}
