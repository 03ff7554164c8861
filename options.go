package nitrite

import (
	"log/slog"

	"github.com/nitrite-go/nitrite/index"
)

// SortOrder directs FindOptions.Sort.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// SortSpec orders results by a single field; FindOptions.Sort applies
// them in priority order (first entry wins ties on the rest).
type SortSpec struct {
	Field string
	Order SortOrder
}

// FindOptions controls sort/skip/limit for Collection.FindWithOptions
// (spec §4.6's read path).
type FindOptions struct {
	Sort  []SortSpec
	Skip  int
	Limit int // 0 means unlimited
}

// IndexOptions configures Collection.CreateIndex.
type IndexOptions struct {
	Type index.Type
}

// Options configures a Database at open time.
type Options struct {
	// FieldSeparator is the dotted-path navigation separator (spec §3,
	// default "."). It is fixed once before the first collection
	// operation; the zero value means DefaultPathSeparator.
	FieldSeparator string
	Logger         *slog.Logger
}

func (o Options) separator() string {
	if o.FieldSeparator == "" {
		return DefaultPathSeparator
	}
	return o.FieldSeparator
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
