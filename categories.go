package cocoyolo

// Category allow-list handling.

import (
	"sort"
	"strings"
)

// CategoryFilter is a set of category names to keep. An empty filter keeps all categories.
type CategoryFilter map[string]struct{}

// NewCategoryFilter returns a filter for the given names. Empty names are ignored.
func NewCategoryFilter(names ...string) CategoryFilter {
	f := make(CategoryFilter, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			f[n] = struct{}{}
		}
	}
	return f
}

// LoadCategoryFilter resolves the user supplied allow-list. The file at filePath, with one category
// name per line, takes precedence over the whitespace separated names in inline. If neither is
// given, the returned filter is empty and keeps everything.
func LoadCategoryFilter(inline, filePath string) (CategoryFilter, error) {
	if filePath != "" {
		lines, err := readLines(filePath)
		if err != nil {
			return nil, err
		}
		return NewCategoryFilter(lines...), nil
	}

	return NewCategoryFilter(strings.Fields(inline)...), nil
}

// Active reports whether the filter restricts categories at all.
func (f CategoryFilter) Active() bool {
	return len(f) > 0
}

// Contains reports whether name is in the allow-list.
func (f CategoryFilter) Contains(name string) bool {
	_, ok := f[name]
	return ok
}

// Names returns the sorted category names of the filter.
func (f CategoryFilter) Names() []string {
	names := make([]string, 0, len(f))
	for n := range f {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CategoryIDs resolves the filter names to the IDs of the matching categories in cats. Names
// without a matching category are ignored.
func (f CategoryFilter) CategoryIDs(cats []COCOCategory) map[int64]bool {
	ids := make(map[int64]bool, len(f))
	for _, c := range cats {
		if f.Contains(c.Name) {
			ids[c.ID] = true
		}
	}
	return ids
}
