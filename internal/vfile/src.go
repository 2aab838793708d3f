package vfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/harrison/scriptindex/internal/filelock"
)

// SrcOptions controls Src.
type SrcOptions struct {
	// Cwd is the directory relative patterns are resolved against.
	// Defaults to the process working directory.
	Cwd string
	// Stream loads matches as stream files instead of buffers.
	Stream bool
}

// Src expands the given glob patterns into Files, in pattern order. Each
// File's Base is the glob parent of the pattern that matched it, the part of
// the pattern before the first glob meta character. Patterns prefixed with
// "!" remove earlier matches. A pattern that matches nothing is not an error.
// A path matched by several patterns is returned once.
func Src(patterns []string, opts SrcOptions) ([]*File, error) {
	cwd := opts.Cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cwd = wd
	}

	var positive []string
	var negative []string
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			negative = append(negative, absPattern(cwd, strings.TrimPrefix(p, "!")))
			continue
		}
		positive = append(positive, p)
	}

	seen := make(map[string]bool)
	var files []*File
	for _, p := range positive {
		pattern := absPattern(cwd, p)
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
		if err != nil {
			return nil, fmt.Errorf("failed to expand %q: %w", p, err)
		}

		base := globParent(pattern)
		for _, m := range matches {
			if seen[m] || excluded(m, negative) {
				continue
			}
			seen[m] = true

			f, err := Read(m, ReadOptions{Cwd: cwd, Base: base, Stream: opts.Stream})
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	return files, nil
}

// Dest writes f below dir at f.Relative() and returns the written path.
// Relative dirs are resolved against f.Cwd. Null files are not written and
// yield an empty path. Files whose relative path climbs out of Base are
// refused. A stream payload is drained by the write.
func Dest(dir string, f *File) (string, error) {
	if f.IsNull() {
		return "", nil
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(f.Cwd, dir)
	}

	rel := f.Relative()
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("refusing to write %s outside %s", f.Path, dir)
	}
	target := filepath.Join(dir, rel)
	data, err := f.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", f.Path, err)
	}
	if err := filelock.WriteFile(target, data, 0644); err != nil {
		return "", err
	}
	return target, nil
}

func absPattern(cwd, pattern string) string {
	if filepath.IsAbs(pattern) {
		return filepath.Clean(pattern)
	}
	return filepath.Join(EscapeGlob(cwd), pattern)
}

var globEscaper = strings.NewReplacer(
	"*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`, "{", `\{`, "}", `\}`,
)

// EscapeGlob escapes the glob meta characters of a literal directory so a
// pattern can be appended to it. Where the path separator is a backslash
// glob escaping is unavailable and dir is returned unchanged.
func EscapeGlob(dir string) string {
	if filepath.Separator == '\\' {
		return dir
	}
	return globEscaper.Replace(dir)
}

// globParent returns the directory part of pattern preceding any glob meta
// character.
func globParent(pattern string) string {
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	return filepath.FromSlash(base)
}

func excluded(path string, negative []string) bool {
	for _, n := range negative {
		if ok, _ := doublestar.PathMatch(n, path); ok {
			return true
		}
	}
	return false
}
