// Package merge combines curated records with records normalized from the
// upstream listing.
package merge

// Record is a record shape that can be deduplicated.
type Record interface {
	// MergeKey is the exact, case-sensitive name records collide on.
	MergeKey() string
	// IsGeneric reports whether the record carries only default values.
	IsGeneric() bool
}

// Merge returns static followed by dynamic with duplicate keys collapsed.
// The first record seen for a key keeps its position. A later duplicate
// replaces it only when the kept record is generic and the later one is not,
// so curated data wins whenever it carries information.
// Neither input is modified.
func Merge[T Record](static, dynamic []T) []T {
	out := make([]T, 0, len(static)+len(dynamic))
	index := make(map[string]int, len(static)+len(dynamic))

	add := func(r T) {
		key := r.MergeKey()
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, r)
			return
		}
		if out[i].IsGeneric() && !r.IsGeneric() {
			out[i] = r
		}
	}

	for _, r := range static {
		add(r)
	}
	for _, r := range dynamic {
		add(r)
	}
	return out
}
