package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// decimalNumber is the number syntax shared with compare_metadata_values in
// sql/init.sql. NaN, Inf, hex floats and surrounding spaces are text.
var decimalNumber = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

// RangeCondition restricts a metadata value to [Min, Max]. A nil bound is open.
type RangeCondition struct {
	Key string  `json:"key"`
	Min *string `json:"min,omitempty"`
	Max *string `json:"max,omitempty"`
}

// MetadataFilter selects entries by exact metadata values and value ranges.
// All conditions must hold.
type MetadataFilter struct {
	Equals map[string]string `json:"equals,omitempty"`
	Ranges []RangeCondition  `json:"ranges,omitempty"`
}

// IsEmpty reports whether the filter accepts every entry
func (f *MetadataFilter) IsEmpty() bool {
	return f == nil || (len(f.Equals) == 0 && len(f.Ranges) == 0)
}

// Match reports whether m satisfies the filter
func (f *MetadataFilter) Match(m Metadata) bool {
	if f.IsEmpty() {
		return true
	}

	for k, want := range f.Equals {
		got, ok := m[k]
		if !ok || got != want {
			return false
		}
	}

	for _, r := range f.Ranges {
		v, ok := m[r.Key]
		if !ok {
			return false
		}
		if r.Min != nil && CompareMetadataValues(v, *r.Min) < 0 {
			return false
		}
		if r.Max != nil && CompareMetadataValues(v, *r.Max) > 0 {
			return false
		}
	}

	return true
}

// CompareMetadataValues compares numerically when both values are decimal
// numbers, bytewise otherwise.
func CompareMetadataValues(a, b string) int {
	fa, okA := parseDecimal(a)
	fb, okB := parseDecimal(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

func parseDecimal(value string) (float64, bool) {
	if !decimalNumber.MatchString(value) {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	return f, err == nil
}

// ParseMetadataFilter builds a filter from "key=value" equality terms and
// "key=min:max" range terms. Either side of a range may be empty, not both.
// Without any term the filter is nil.
func ParseMetadataFilter(equals []string, ranges []string) (*MetadataFilter, error) {
	filter := &MetadataFilter{}

	for _, term := range equals {
		key, value, ok := strings.Cut(term, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", term)
		}
		if filter.Equals == nil {
			filter.Equals = map[string]string{}
		}
		filter.Equals[key] = value
	}

	for _, term := range ranges {
		key, bounds, ok := strings.Cut(term, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid range %q, expected key=min:max", term)
		}
		lo, hi, ok := strings.Cut(bounds, ":")
		if !ok {
			return nil, fmt.Errorf("invalid range %q, expected key=min:max", term)
		}
		condition := RangeCondition{Key: key}
		if lo != "" {
			condition.Min = &lo
		}
		if hi != "" {
			condition.Max = &hi
		}
		if condition.Min == nil && condition.Max == nil {
			return nil, fmt.Errorf("range %q has no bounds", term)
		}
		filter.Ranges = append(filter.Ranges, condition)
	}

	if filter.IsEmpty() {
		return nil, nil
	}
	return filter, nil
}
