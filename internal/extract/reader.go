package extract

import (
	"context"
	"io"
	"iter"
)

// chunkReader adapts a chunk sequence to io.Reader so the tokenizer sees one
// continuous input whatever the delivery mode was.
type chunkReader struct {
	ctx  context.Context
	next func() ([]byte, error, bool)
	stop func()
	buf  []byte
	err  error
}

func newChunkReader(ctx context.Context, chunks iter.Seq2[[]byte, error]) *chunkReader {
	next, stop := iter.Pull2(chunks)
	return &chunkReader{ctx: ctx, next: next, stop: stop}
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		if err := r.ctx.Err(); err != nil {
			r.err = err
			continue
		}

		chunk, err, ok := r.next()
		switch {
		case !ok:
			r.err = io.EOF
		case err != nil:
			r.err = err
		default:
			r.buf = chunk
		}
	}

	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
