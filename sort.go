package nitrite

import "sort"

// sortDocuments orders docs by specs in priority order (first entry
// breaks ties using the rest). The teacher's own internal/query/sort.go
// was left as an unfinished placeholder debating generics vs. reflection
// ("Placeholder if I decide to keep it"); this is the real implementation
// that file never grew into, built directly on Value.Compare instead of
// the teacher's planned string-based comparison.
func sortDocuments(docs []*Document, specs []SortSpec, sep string) {
	if len(specs) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, s := range specs {
			vi, _ := docs[i].Get(s.Field, sep)
			vj, _ := docs[j].Get(s.Field, sep)
			c := vi.Compare(vj)
			if c == 0 {
				continue
			}
			if s.Order == Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
