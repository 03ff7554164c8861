// Package util holds sentinel errors shared by the paged B+Tree, pager and
// buffer pool. Kept as un-wrapped sentinels, matching the teacher's own
// convention (bundoc/internal/util/errors.go): these are internal, "this
// should be impossible" signals, wrapped with %w by the caller when they
// cross into a caller-facing error.
package util

import "errors"

var (
	ErrPageNotFound    = errors.New("page not found")
	ErrPageFull        = errors.New("page is full")
	ErrInvalidPageID   = errors.New("invalid page ID")
	ErrDiskReadFailed  = errors.New("disk read failed")
	ErrDiskWriteFailed = errors.New("disk write failed")
	ErrDocumentNotFound = errors.New("key not found")
)
