// Package topic implements MQTT style topic names and wildcard filters used
// to route change events to subscribers.
package topic

import (
	"fmt"
	"regexp"
	"strings"
)

const maxLen = 65535

var nameRegex = regexp.MustCompile("^[^#+]+$")

// Name is a concrete topic such as "lists/abc/items/xyz".
type Name struct {
	Value string `json:"value"`
}

func NewName(value string) (*Name, error) {
	if value == "" {
		return nil, fmt.Errorf("topic name: cannot be empty")
	}

	if len(value) > maxLen {
		return nil, fmt.Errorf("topic name: %.32s... cannot have more than %d bytes", value, maxLen)
	}

	if !nameRegex.MatchString(value) {
		return nil, fmt.Errorf("topic name: %s format is invalid", value)
	}

	return &Name{value}, nil
}

// IsServerSpecific reports whether the name is reserved for the server ($SYS...).
func (n *Name) IsServerSpecific() bool {
	return strings.HasPrefix(n.Value, "$")
}

func (n *Name) String() string {
	return n.Value
}

// Item returns the topic of one item of a list. Both ids are escaped so
// they always form a single wildcard free level.
func Item(listID, itemID string) (*Name, error) {
	return NewName("lists/" + Escape(listID) + "/items/" + Escape(itemID))
}

var levelEscaper = strings.NewReplacer("%", "%25", "+", "%2B", "#", "%23", "/", "%2F")

// Escape percent-encodes the characters that cannot appear in a level.
func Escape(level string) string {
	return levelEscaper.Replace(level)
}
