// Package extract finds script references in HTML markup.
//
// The scan is a token stream, not a DOM parse: it reacts to script start
// tags carrying a src attribute and, when IE mode is on, to comments holding
// Internet Explorer conditional blocks. Everything else is ignored and
// malformed markup is skipped rather than reported.
package extract

import (
	"context"
	"errors"
	"io"
	"iter"
	"regexp"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/harrison/scriptindex/internal/models"
)

var (
	// conditionalBlock matches one "[if ...]> ... <![endif]" block.
	conditionalBlock = regexp.MustCompile(`(?is)\[if\s.*?\]>(.*?)<!\[endif\]`)
	// conditionalScript matches a <script src="..."></script> inside a block.
	conditionalScript = regexp.MustCompile(`(?is)<script\b[^>]*?\bsrc\s*=\s*(?:"([^"]*)"|'([^']*)')[^>]*>\s*</script\s*>`)
)

// Extractor scans markup for script references.
type Extractor struct {
	ie bool
}

// New creates an Extractor. When ie is true, conditional comments are
// scanned too.
func New(ie bool) *Extractor {
	return &Extractor{ie: ie}
}

// Extract consumes chunks to the end and returns every script reference in
// document order. Chunk boundaries have no effect on the result. The only
// failure is a chunk read error or ctx cancellation, returned as a
// *PayloadReadError.
func (e *Extractor) Extract(ctx context.Context, chunks iter.Seq2[[]byte, error]) ([]models.ScriptReference, error) {
	r := newChunkReader(ctx, chunks)
	defer r.stop()

	refs, err := e.scan(r)
	if err != nil {
		return refs, &PayloadReadError{Err: err}
	}
	return refs, nil
}

// ExtractBytes scans a complete buffer.
func (e *Extractor) ExtractBytes(data []byte) []models.ScriptReference {
	refs, _ := e.Extract(context.Background(), func(yield func([]byte, error) bool) {
		yield(data, nil)
	})
	return refs
}

func (e *Extractor) scan(r io.Reader) ([]models.ScriptReference, error) {
	var refs []models.ScriptReference
	add := func(src string, origin models.Origin) {
		refs = append(refs, models.ScriptReference{Src: src, Origin: origin, Index: len(refs)})
	}

	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return refs, err
			}
			return refs, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch atom.Lookup(name) {
			case atom.Noscript, atom.Iframe, atom.Noembed, atom.Noframes, atom.Xmp, atom.Plaintext:
				// Scanned as markup: their bodies may carry script tags.
				z.NextIsNotRawText()
			case atom.Script:
				// The trailing slash of <script/> is ignored, so the body
				// runs to the next </script> either way.
				if src := srcAttr(z, hasAttr); src != "" {
					add(src, models.OriginScriptTag)
				}
			}

		case html.CommentToken:
			if !e.ie {
				continue
			}
			for _, src := range ConditionalScripts(string(z.Text())) {
				add(src, models.OriginConditionalComment)
			}
		}
	}
}

// ConditionalScripts returns the src of every script embedded in the
// conditional blocks of one comment's text, in order of appearance. The
// search restarts after the end of each match, so one comment may hold
// several blocks and one block several scripts.
func ConditionalScripts(comment string) []string {
	var out []string
	for pos := 0; pos < len(comment); {
		block := conditionalBlock.FindStringSubmatchIndex(comment[pos:])
		if block == nil {
			break
		}
		body := comment[pos+block[2] : pos+block[3]]

		for at := 0; at < len(body); {
			m := conditionalScript.FindStringSubmatchIndex(body[at:])
			if m == nil {
				break
			}
			var src string
			if m[2] >= 0 {
				src = body[at+m[2] : at+m[3]]
			} else {
				src = body[at+m[4] : at+m[5]]
			}
			if src != "" {
				out = append(out, src)
			}
			at += m[1]
		}

		pos += block[1]
	}
	return out
}

// srcAttr returns the first src attribute of the current tag. The tokenizer
// lower-cases attribute names and unescapes values.
func srcAttr(z *html.Tokenizer, more bool) string {
	for more {
		var key, val []byte
		key, val, more = z.TagAttr()
		if string(key) == "src" {
			return string(val)
		}
	}
	return ""
}
