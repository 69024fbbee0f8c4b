package actdata

import (
	"regexp"
	"strings"

	"actflow/internal/jsonmap"
)

// nonWord matches what Unicode-aware \W would: RE2's \w is ASCII-only and
// would let Cyrillic word endings pass as separators.
const nonWord = `[^\p{L}\p{N}_]*`

var (
	sitePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)объект[:\s\x{00a0}]+([^,\n]+)`),
		regexp.MustCompile(`(?i)площадка[:\s\x{00a0}]+([^,\n]+)`),
		regexp.MustCompile(`(?i)станция[:\s\x{00a0}]+([^,\n]+)`),
		regexp.MustCompile(`(?i)узел[:\s\x{00a0}]+([^,\n]+)`),
	}
	orderPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)заказ` + nonWord + `(\d+)`),
		regexp.MustCompile(`(?i)order` + nonWord + `(\d+)`),
		regexp.MustCompile(`№` + nonWord + `(\d+)`),
	}
)

// Set is an insertion-ordered set of strings.
type Set struct {
	seen   map[string]struct{}
	values []string
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add inserts v unless it is empty or already present.
func (s *Set) Add(v string) bool {
	if v == "" {
		return false
	}
	if _, ok := s.seen[v]; ok {
		return false
	}
	s.seen[v] = struct{}{}
	s.values = append(s.values, v)
	return true
}

// Len returns the number of distinct values.
func (s *Set) Len() int { return len(s.values) }

// Values returns the values in first-seen order, never nil.
func (s *Set) Values() []string {
	return append(make([]string, 0, len(s.values)), s.values...)
}

// ExtractSites returns site names mentioned in a service description.
func ExtractSites(text string) []string {
	return matchAll(sitePatterns, text)
}

// ExtractOrderNumbers returns order numbers mentioned in a service description.
func ExtractOrderNumbers(text string) []string {
	return matchAll(orderPatterns, text)
}

func matchAll(patterns []*regexp.Regexp, text string) []string {
	var out []string
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if v := strings.TrimSpace(m[1]); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// Entities is the deduplicated set of sites and order numbers of a document.
type Entities struct {
	Sites        *Set
	OrderNumbers *Set
}

// CollectEntities scans service_description of every item.
func CollectEntities(items []any) Entities {
	e := Entities{Sites: NewSet(), OrderNumbers: NewSet()}
	for _, raw := range items {
		item, ok := jsonmap.Map(raw)
		if !ok {
			continue
		}
		desc := jsonmap.String(item["service_description"])
		if desc == "" {
			continue
		}
		for _, s := range ExtractSites(desc) {
			e.Sites.Add(s)
		}
		for _, o := range ExtractOrderNumbers(desc) {
			e.OrderNumbers.Add(o)
		}
	}
	return e
}

// Totals sums quantity and total_cost over items. Values that cannot be
// parsed are skipped.
func Totals(items []any) (quantity, cost float64) {
	for _, raw := range items {
		item, ok := jsonmap.Map(raw)
		if !ok {
			continue
		}
		if q, ok := ParseNumber(item["quantity"]); ok {
			quantity += q
		}
		if c, ok := ParseNumber(item["total_cost"]); ok {
			cost += c
		}
	}
	return quantity, cost
}
