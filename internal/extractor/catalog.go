package extractor

import (
	"regexp"
	"strconv"
)

// The catalog page embeds every thread as an entry of an inline script
// object keyed by thread number: {"threads":{"12345":{...},"12346":{...}}}.
var catalogThreadKey = regexp.MustCompile(`[{,]"(\d+)":\{`)

// ParseCatalog returns the thread ids embedded in a catalog page in
// first-seen order. Later occurrences of an id are dropped; digits that do
// not form a positive int64 are skipped.
func ParseCatalog(markup []byte) []int64 {
	matches := catalogThreadKey.FindAllSubmatch(markup, -1)

	ids := make([]int64, 0, len(matches))
	seen := make(map[int64]struct{}, len(matches))
	for _, m := range matches {
		id, err := strconv.ParseInt(string(m[1]), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
