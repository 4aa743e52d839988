package todo

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mitchellh/mapstructure"
)

// Intent is one client requested mutation. The set of implementations is
// closed: CreateIntent, ToggleIntent, DeleteIntent and MoveIntent.
type Intent interface {
	intent()
}

type CreateIntent struct {
	Text string
}

type ToggleIntent struct {
	ID string
}

type DeleteIntent struct {
	ID string
}

type MoveIntent struct {
	ID     string
	Column Column
}

func (CreateIntent) intent() {}
func (ToggleIntent) intent() {}
func (DeleteIntent) intent() {}
func (MoveIntent) intent()   {}

// form mirrors the fields a board page submits.
type form struct {
	Intent string `mapstructure:"intent"`
	Text   string `mapstructure:"text"`
	ID     string `mapstructure:"id"`
	Column string `mapstructure:"column"`
}

// ParseIntent decodes a submitted form. Repeated fields keep their first value.
func ParseIntent(values url.Values) (Intent, error) {
	fields := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}

	var f form
	if err := mapstructure.Decode(fields, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIntent, err)
	}

	switch f.Intent {
	case "create":
		if f.Text == "" {
			return nil, ErrInvalidText
		}
		return CreateIntent{Text: f.Text}, nil
	case "toggle":
		return ToggleIntent{ID: f.ID}, nil
	case "delete":
		return DeleteIntent{ID: f.ID}, nil
	case "move":
		column, err := ParseColumn(f.Column)
		if err != nil {
			return nil, err
		}
		return MoveIntent{ID: f.ID, Column: column}, nil
	default:
		return nil, ErrInvalidIntent
	}
}

// Change describes the outcome of an applied intent.
type Change struct {
	Name   string
	ItemID string
}

const (
	ChangeCreated = "Created"
	ChangeToggled = "Toggled"
	ChangeDeleted = "Deleted"
	ChangeMoved   = "Moved"
)

// Apply performs the intent against the manager's list.
func Apply(ctx context.Context, m *Manager, in Intent) (Change, error) {
	switch in := in.(type) {
	case CreateIntent:
		item, err := m.Create(ctx, in.Text)
		if err != nil {
			return Change{}, err
		}
		return Change{Name: ChangeCreated, ItemID: item.ID}, nil
	case ToggleIntent:
		return Change{Name: ChangeToggled, ItemID: in.ID}, m.Toggle(ctx, in.ID)
	case DeleteIntent:
		return Change{Name: ChangeDeleted, ItemID: in.ID}, m.Delete(ctx, in.ID)
	case MoveIntent:
		return Change{Name: ChangeMoved, ItemID: in.ID}, m.MoveToColumn(ctx, in.ID, in.Column)
	default:
		return Change{}, fmt.Errorf("%w: %T", ErrInvalidIntent, in)
	}
}
