package catalog

import (
	"fmt"
	"regexp"
	"strconv"
)

// CategoryRange is the inclusive identifier span covered by a tag.
type CategoryRange struct {
	Tag   string `json:"tag"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Contains reports whether id lies within [Start, End].
func (r CategoryRange) Contains(id int) bool {
	return id >= r.Start && id <= r.End
}

// Size returns the number of identifiers in the range.
func (r CategoryRange) Size() int {
	return r.End - r.Start + 1
}

// Generations is the fixed tag table. Ranges are contiguous starting at 1.
var Generations = []CategoryRange{
	{Tag: "gen-i", Start: 1, End: 151},
	{Tag: "gen-ii", Start: 152, End: 251},
	{Tag: "gen-iii", Start: 252, End: 386},
	{Tag: "gen-iv", Start: 387, End: 493},
	{Tag: "gen-v", Start: 494, End: 649},
	{Tag: "gen-vi", Start: 650, End: 721},
	{Tag: "gen-vii", Start: 722, End: 809},
	{Tag: "gen-viii", Start: 810, End: 905},
	{Tag: "gen-ix", Start: 906, End: 1025},
}

// RangeIndex maps tags to identifier ranges. It is read-only after construction.
type RangeIndex struct {
	ranges []CategoryRange
	byTag  map[string]CategoryRange
}

// NewRangeIndex validates that ranges partition a prefix of the positive
// integers without gaps or overlap and builds the lookup table.
func NewRangeIndex(ranges []CategoryRange) (*RangeIndex, error) {
	idx := &RangeIndex{
		ranges: make([]CategoryRange, 0, len(ranges)),
		byTag:  make(map[string]CategoryRange, len(ranges)),
	}
	next := 1
	for _, r := range ranges {
		if r.Tag == "" {
			return nil, fmt.Errorf("range starting at %d has no tag", r.Start)
		}
		if r.Start > r.End {
			return nil, fmt.Errorf("range %s: start %d > end %d", r.Tag, r.Start, r.End)
		}
		if r.Start != next {
			return nil, fmt.Errorf("range %s: starts at %d, want %d", r.Tag, r.Start, next)
		}
		if _, dup := idx.byTag[r.Tag]; dup {
			return nil, fmt.Errorf("duplicate tag %s", r.Tag)
		}
		idx.ranges = append(idx.ranges, r)
		idx.byTag[r.Tag] = r
		next = r.End + 1
	}
	return idx, nil
}

// DefaultRangeIndex returns the index over Generations.
func DefaultRangeIndex() *RangeIndex {
	idx, err := NewRangeIndex(Generations)
	if err != nil {
		panic(err)
	}
	return idx
}

// Lookup returns the range for tag.
func (idx *RangeIndex) Lookup(tag string) (CategoryRange, bool) {
	r, ok := idx.byTag[tag]
	return r, ok
}

// TagFor returns the tag whose range contains id, or UnknownTag.
func (idx *RangeIndex) TagFor(id int) string {
	for _, r := range idx.ranges {
		if r.Contains(id) {
			return r.Tag
		}
	}
	return UnknownTag
}

// Tags lists the known tags in table order.
func (idx *RangeIndex) Tags() []string {
	tags := make([]string, len(idx.ranges))
	for i, r := range idx.ranges {
		tags[i] = r.Tag
	}
	return tags
}

// Ranges returns a copy of the table.
func (idx *RangeIndex) Ranges() []CategoryRange {
	return append([]CategoryRange(nil), idx.ranges...)
}

// IDExtractor pulls numeric identifiers out of resource references such as
// "https://pokeapi.co/api/v2/pokemon/25/".
type IDExtractor struct {
	pattern *regexp.Regexp
}

// NewIDExtractor matches references ending in /<resource>/<digits> with any
// number of trailing slashes.
func NewIDExtractor(resource string) *IDExtractor {
	return &IDExtractor{
		pattern: regexp.MustCompile(`/` + regexp.QuoteMeta(resource) + `/(\d+)/*$`),
	}
}

// ID returns the identifier and true, or 0 and false for any reference that
// does not match or carries a non-positive id.
func (e *IDExtractor) ID(ref string) (int, bool) {
	m := e.pattern.FindStringSubmatch(ref)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
