package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrison/scriptindex/internal/fileutil"
	"github.com/harrison/scriptindex/internal/vfile"
)

// workingDir returns dir made absolute, or the process working directory
// when dir is empty.
func workingDir(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid working directory %q: %w", dir, err)
	}
	return abs, nil
}

// loadDocuments turns CLI arguments into documents, in argument order.
// Directories are scanned for HTML files and become the base of what they
// contain; anything else is treated as a glob relative to cwd. A document
// named by several arguments is loaded once.
func loadDocuments(args []string, cwd string, stream bool) ([]*vfile.File, error) {
	var docs []*vfile.File
	seen := make(map[string]bool)

	add := func(f *vfile.File) {
		if seen[f.Path] {
			return
		}
		seen[f.Path] = true
		docs = append(docs, f)
	}

	for _, arg := range args {
		path := arg
		if !filepath.IsAbs(path) {
			path = filepath.Join(cwd, path)
		}

		if info, err := os.Stat(path); err == nil && info.IsDir() {
			result, err := fileutil.FindDocuments(path)
			if err != nil {
				return nil, err
			}
			if len(result.Errors) > 0 {
				return nil, fmt.Errorf("failed to scan %s: %w", arg, result.Errors[0])
			}
			for _, file := range result.Files {
				f, err := vfile.Read(file, vfile.ReadOptions{Cwd: cwd, Base: path, Stream: stream})
				if err != nil {
					return nil, err
				}
				add(f)
			}
			continue
		}

		files, err := vfile.Src([]string{arg}, vfile.SrcOptions{Cwd: cwd, Stream: stream})
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			add(f)
		}
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no HTML documents match %v", args)
	}
	return docs, nil
}
