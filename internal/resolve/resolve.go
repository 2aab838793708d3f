// Package resolve matches extracted script references against search roots
// on the filesystem and hands the matched files downstream in document
// order.
//
// Lookups run concurrently, one pending slot per reference. Slots are
// flushed strictly left to right: the files of reference N are emitted only
// after every file of references 0..N-1, whatever order the lookups finish in.
package resolve

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/harrison/scriptindex/internal/models"
	"github.com/harrison/scriptindex/internal/vfile"
)

// DefaultConcurrency is the number of lookups in flight when Config leaves
// Concurrency at zero.
const DefaultConcurrency = 8

// GlobFunc expands one absolute pattern into file paths. It must return
// files only, keep its own match order and treat a missing path as no match.
type GlobFunc func(pattern string) ([]string, error)

// FilepathGlob is the default GlobFunc.
func FilepathGlob(pattern string) ([]string, error) {
	return doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
}

// Config configures a Resolver.
type Config struct {
	// Roots are the search roots in priority order, see SearchRoots.
	Roots []string
	// Cwd is the working directory; resolved files are relative to it.
	Cwd string
	// Concurrency bounds parallel lookups (0 = DefaultConcurrency).
	Concurrency int
	// Stream makes resolved files carry lazily opened streams instead of
	// buffers.
	Stream bool
	// Glob overrides the glob primitive (nil = FilepathGlob).
	Glob GlobFunc
}

// Result describes one resolution pass.
type Result struct {
	Emitted   int                      // Files handed to emit
	Unmatched []models.ScriptReference // References that matched nothing, in order
}

// Resolver resolves references for one document.
type Resolver struct {
	cfg Config
}

// New creates a Resolver.
func New(cfg Config) *Resolver {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Glob == nil {
		cfg.Glob = FilepathGlob
	}
	return &Resolver{cfg: cfg}
}

// SearchRoots builds the ordered, duplicate-free list of search roots: the
// document base first, then every search path. Relative entries are made
// absolute against cwd.
func SearchRoots(cwd, base string, searchPaths []string) []string {
	roots := make([]string, 0, len(searchPaths)+1)
	seen := make(map[string]bool, len(searchPaths)+1)

	add := func(p string) {
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, p)
		}
		p = filepath.Clean(p)
		if seen[p] {
			return
		}
		seen[p] = true
		roots = append(roots, p)
	}

	add(base)
	for _, sp := range searchPaths {
		if strings.TrimSpace(sp) == "" {
			continue
		}
		add(sp)
	}
	return roots
}

// slot holds the outcome of one reference lookup. done is closed once files
// or err is set.
type slot struct {
	ref   models.ScriptReference
	files []*vfile.File
	err   error
	done  chan struct{}
}

// Resolve looks up every reference and calls emit for each matched file in
// reference order. References without matches are listed in the result.
//
// A lookup failure stops the pass with a *ResolutionError: files of earlier
// references have already been emitted, nothing after the failing reference
// is. An error returned by emit stops the pass and is returned as is.
func (r *Resolver) Resolve(ctx context.Context, refs []models.ScriptReference, emit func(*vfile.File) error) (*Result, error) {
	result := &Result{}
	if len(refs) == 0 {
		return result, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	slots := make([]*slot, len(refs))
	for i, ref := range refs {
		slots[i] = &slot{ref: ref, done: make(chan struct{})}
	}

	// Launch in order from a separate goroutine so flushing can start while
	// later lookups still wait for a free worker.
	launched := make(chan struct{})
	go func() {
		defer close(launched)
		for _, s := range slots {
			if err := gctx.Err(); err != nil {
				s.err = err
				close(s.done)
				continue
			}
			g.Go(func() error {
				defer close(s.done)
				s.files, s.err = r.lookup(s.ref)
				return s.err
			})
		}
	}()

	var flushErr error
	for _, s := range slots {
		<-s.done
		if s.err != nil {
			flushErr = s.err
			break
		}
		if len(s.files) == 0 {
			result.Unmatched = append(result.Unmatched, s.ref)
			continue
		}
		for _, f := range s.files {
			if err := emit(f); err != nil {
				flushErr = err
				break
			}
			result.Emitted++
		}
		if flushErr != nil {
			break
		}
	}

	cancel()
	<-launched
	waitErr := g.Wait()

	if flushErr == nil {
		flushErr = waitErr
	}
	return result, flushErr
}

// lookup expands one reference against every root, in root order, and
// loads the matches. A path reached through several roots is kept once.
// Roots are literal paths; only the reference is a glob.
func (r *Resolver) lookup(ref models.ScriptReference) ([]*vfile.File, error) {
	if IsRemote(ref.Src) {
		return nil, nil
	}

	var files []*vfile.File
	seen := make(map[string]bool)
	for _, root := range r.cfg.Roots {
		pattern := filepath.Join(vfile.EscapeGlob(root), ref.Src)
		matches, err := r.cfg.Glob(pattern)
		if err != nil {
			return nil, &ResolutionError{Ref: ref, Pattern: pattern, Err: err}
		}

		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true

			f, err := vfile.Read(m, vfile.ReadOptions{Cwd: r.cfg.Cwd, Base: r.cfg.Cwd, Stream: r.cfg.Stream})
			if err != nil {
				return nil, &ResolutionError{Ref: ref, Pattern: pattern, Err: err}
			}
			files = append(files, f)
		}
	}
	return files, nil
}

// IsRemote reports whether src points off the local filesystem (URL with a
// scheme, protocol-relative URL or data URI).
func IsRemote(src string) bool {
	if strings.HasPrefix(src, "//") {
		return true
	}
	scheme, _, ok := strings.Cut(src, ":")
	if !ok || len(scheme) < 2 {
		// "C:" style drive letters are paths, not schemes.
		return false
	}
	for i, c := range scheme {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

// ResolutionError reports a glob or filesystem failure for one reference.
type ResolutionError struct {
	Ref     models.ScriptReference
	Pattern string
	Err     error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve script %q (pattern %s): %v", e.Ref.Src, e.Pattern, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}
