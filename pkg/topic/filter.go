package topic

import (
	"fmt"
	"regexp"
	"strings"
)

var filterRegex = regexp.MustCompile(`^(([^+#]*|\+)(/([^+#]*|\+))*(/#)?|#)$`)

// Filter matches names, "+" matching one level and a trailing "#" matching
// any number of levels including none.
type Filter struct {
	Value string `json:"value"`
}

func NewFilter(value string) (*Filter, error) {
	if value == "" {
		return nil, fmt.Errorf("topic filter: cannot be empty")
	}

	if len(value) > maxLen {
		return nil, fmt.Errorf("topic filter: %.32s... cannot have more than %d bytes", value, maxLen)
	}

	if !filterRegex.MatchString(value) {
		return nil, fmt.Errorf("topic filter: %s format is invalid", value)
	}

	return &Filter{value}, nil
}

// ListFilter matches every event of a list.
func ListFilter(listID string) (*Filter, error) {
	return NewFilter("lists/" + Escape(listID) + "/#")
}

// Match reports whether name is selected by the filter. Wildcards at the
// first level never match server specific names.
func (f *Filter) Match(name *Name) bool {
	levels := strings.Split(name.Value, "/")
	patterns := strings.Split(f.Value, "/")

	if name.IsServerSpecific() && (patterns[0] == "#" || patterns[0] == "+") {
		return false
	}

	for i, pattern := range patterns {
		if pattern == "#" {
			return true
		}

		if i >= len(levels) {
			return false
		}

		if pattern != "+" && pattern != levels[i] {
			return false
		}
	}

	return len(levels) == len(patterns)
}

func (f *Filter) String() string {
	return f.Value
}
