// Package fileutil finds HTML documents below a directory.
//
// ScanDirectory walks a tree with extension, name-glob, depth and
// directory-exclusion filters; FindDocuments applies the defaults used when
// a directory is given to the CLI:
//
//	files, err := fileutil.FindDocuments("site")
//
// Hidden directories are always skipped. Non-fatal walk errors are collected
// in ScanResult.Errors and the walk continues. Matched paths are absolute and
// sorted, so runs over the same tree process documents in the same order.
package fileutil
