// Package events fans out list change events to the views subscribed to them,
// optionally through a Pulsar topic so every server node sees every change.
package events

import (
	"github.com/timada-org/todoboard/pkg/topic"
)

// Event reports that a list changed.
type Event struct {
	ListID string      `json:"list_id"`
	Topic  *topic.Name `json:"topic"`
	Name   string      `json:"name"`
	Data   any         `json:"data"`
}

// NewItemEvent builds the event for a change of one item of a list.
func NewItemEvent(listID, name, itemID string) (*Event, error) {
	t, err := topic.Item(listID, itemID)
	if err != nil {
		return nil, err
	}

	return &Event{
		ListID: listID,
		Topic:  t,
		Name:   name,
		Data:   map[string]string{"id": itemID},
	}, nil
}
