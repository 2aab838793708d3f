// Package scriptindex turns HTML documents into the ordered list of script
// files they load.
//
// For every document the Indexer runs the extract step over the whole
// payload, then one resolve pass over the collected references, pushing the
// matched files to the caller in document order. Documents without payload
// are forwarded unchanged.
//
// Usage:
//
//	ix, err := scriptindex.New(scriptindex.Options{IE: true, SearchPaths: []string{"vendor"}})
//	results, err := ix.Run(ctx, docs, func(f *vfile.File) error {
//		fmt.Println(f.Relative())
//		return nil
//	})
package scriptindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/harrison/scriptindex/internal/extract"
	"github.com/harrison/scriptindex/internal/models"
	"github.com/harrison/scriptindex/internal/resolve"
	"github.com/harrison/scriptindex/internal/vfile"
)

// EmitFunc receives output files in order.
type EmitFunc func(*vfile.File) error

// Options configures an Indexer. It is read-only once New returns.
type Options struct {
	// IE also scans Internet Explorer conditional comments.
	IE bool
	// SearchPaths are searched after the document's own base directory.
	SearchPaths []string
	// Cwd is the working directory (default: os.Getwd).
	Cwd string
	// Concurrency bounds parallel file lookups (0 = resolve.DefaultConcurrency).
	Concurrency int
	// Stream emits resolved files with stream payloads instead of buffers.
	Stream bool
	// Logger receives progress events (nil = discard).
	Logger Logger
	// Glob overrides the glob primitive, mainly for tests.
	Glob resolve.GlobFunc
}

// Indexer processes documents one at a time.
type Indexer struct {
	opts      Options
	extractor *extract.Extractor
	logger    Logger
}

// New creates an Indexer.
func New(opts Options) (*Indexer, error) {
	if opts.Cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		opts.Cwd = wd
	}
	if opts.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency must be >= 0, got %d", opts.Concurrency)
	}
	opts.SearchPaths = append([]string(nil), opts.SearchPaths...)

	logger := opts.Logger
	if logger == nil {
		logger = NopLogger{}
	}

	return &Indexer{
		opts:      opts,
		extractor: extract.New(opts.IE),
		logger:    logger,
	}, nil
}

// Process indexes one document and emits its script files in document
// order, or the document itself when it has no payload. The returned result
// is never nil; on failure its State is models.StateFailed and the error is a
// *DocumentError.
func (ix *Indexer) Process(ctx context.Context, doc *vfile.File, emit EmitFunc) (*models.DocumentResult, error) {
	start := time.Now()
	run := &docRun{
		result: &models.DocumentResult{Path: doc.Path, Relative: doc.Relative()},
	}
	defer func() { run.result.Duration = time.Since(start) }()

	ix.logger.LogDocumentStart(doc)

	if doc.IsNull() {
		run.result.Passthrough = true
		if err := emit(doc); err != nil {
			result, err := run.fail(err)
			ix.logger.LogDocumentComplete(result)
			return result, err
		}
		run.advance(models.StateComplete)
		ix.logger.LogDocumentComplete(run.result)
		return run.result, nil
	}

	run.advance(models.StateExtracting)
	refs, err := ix.extractor.Extract(ctx, doc.Chunks())
	run.result.References = refs
	if err != nil {
		result, err := run.fail(err)
		ix.logger.LogDocumentComplete(result)
		return result, err
	}
	ix.logger.LogReferences(doc, refs)

	run.advance(models.StateResolving)
	resolver := resolve.New(resolve.Config{
		Roots:       resolve.SearchRoots(ix.opts.Cwd, doc.Base, ix.opts.SearchPaths),
		Cwd:         ix.opts.Cwd,
		Concurrency: ix.opts.Concurrency,
		Stream:      ix.opts.Stream,
		Glob:        ix.opts.Glob,
	})

	res, err := resolver.Resolve(ctx, refs, func(f *vfile.File) error {
		if err := emit(f); err != nil {
			return err
		}
		run.result.Resolved = append(run.result.Resolved, f.Relative())
		return nil
	})
	if res != nil {
		run.result.Unmatched = res.Unmatched
		for _, ref := range res.Unmatched {
			ix.logger.LogNoMatch(doc, ref)
		}
	}
	if err != nil {
		result, err := run.fail(err)
		ix.logger.LogDocumentComplete(result)
		return result, err
	}

	run.advance(models.StateComplete)
	ix.logger.LogDocumentComplete(run.result)
	return run.result, nil
}

// Run processes docs serially. A failing document does not stop the ones
// after it; the returned error joins every document failure. A cancelled
// ctx stops the run before the next document.
func (ix *Indexer) Run(ctx context.Context, docs []*vfile.File, emit EmitFunc) ([]*models.DocumentResult, error) {
	results := make([]*models.DocumentResult, 0, len(docs))
	var errs []error

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := ix.Process(ctx, doc, emit)
		results = append(results, result)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return results, errors.Join(errs...)
}

// docRun tracks the state machine of one document.
type docRun struct {
	result *models.DocumentResult
}

func (r *docRun) advance(next models.DocumentState) {
	if !r.result.State.CanTransition(next) {
		panic(fmt.Sprintf("scriptindex: illegal document transition %s -> %s", r.result.State, next))
	}
	r.result.State = next
}

// fail marks the document failed in its current step and wraps err.
func (r *docRun) fail(err error) (*models.DocumentResult, error) {
	docErr := &DocumentError{Path: r.result.Path, Phase: r.result.State, Err: err}
	r.result.State = models.StateFailed
	r.result.Err = docErr
	return r.result, docErr
}
