// Package todo holds the todo list domain: items, columns, the intents a
// client can submit and the Manager that applies them to a list stored in
// a key-value store.
package todo

import (
	"context"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/timada-org/todoboard/internal/kv"
)

// Namespace is the key prefix lists are stored under.
const Namespace = "lists"

// Manager performs CRUD on a single list. It is cheap to build and meant to
// be constructed per request.
//
// Every mutation reads the whole list, changes it and writes it back.
// Concurrent mutations of the same list are not serialized; the last
// write wins.
type Manager struct {
	lists  *kv.Typed[[]Item]
	listID string
}

func NewManager(store kv.Store, listID string) *Manager {
	return &Manager{
		lists:  kv.Scoped[[]Item](store, Namespace),
		listID: listID,
	}
}

// List returns the items in storage order.
func (m *Manager) List(ctx context.Context) ([]Item, error) {
	items, err := m.lists.Get(ctx, m.listID)
	if errors.Is(err, kv.ErrNotFound) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

func (m *Manager) ListByColumn(ctx context.Context) (Board, error) {
	items, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	return groupByColumn(items), nil
}

func (m *Manager) Create(ctx context.Context, text string) (Item, error) {
	if text == "" {
		return Item{}, ErrInvalidText
	}

	id, err := gonanoid.New()
	if err != nil {
		return Item{}, fmt.Errorf("generate id: %w", err)
	}

	item := Item{
		ID:        id,
		Text:      text,
		Completed: false,
		Column:    ColumnTodo,
	}

	items, err := m.List(ctx)
	if err != nil {
		return Item{}, err
	}

	if err := m.save(ctx, append(items, item)); err != nil {
		return Item{}, err
	}

	return item, nil
}

func (m *Manager) Toggle(ctx context.Context, id string) error {
	return m.update(ctx, id, func(item *Item) {
		item.Completed = !item.Completed
	})
}

func (m *Manager) MoveToColumn(ctx context.Context, id string, column Column) error {
	if !column.Valid() {
		return ErrInvalidColumn
	}

	return m.update(ctx, id, func(item *Item) {
		item.Column = column
	})
}

// Delete removes the item. Unknown ids are ignored.
func (m *Manager) Delete(ctx context.Context, id string) error {
	items, err := m.List(ctx)
	if err != nil {
		return err
	}

	kept := items[:0]
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}

	if len(kept) == len(items) {
		return nil
	}

	return m.save(ctx, kept)
}

// update applies fn to the item with the given id. Unknown ids are ignored.
func (m *Manager) update(ctx context.Context, id string, fn func(*Item)) error {
	items, err := m.List(ctx)
	if err != nil {
		return err
	}

	for i := range items {
		if items[i].ID == id {
			fn(&items[i])
			return m.save(ctx, items)
		}
	}

	return nil
}

func (m *Manager) save(ctx context.Context, items []Item) error {
	if err := m.lists.Put(ctx, m.listID, items); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Drop removes the whole list from the store.
func (m *Manager) Drop(ctx context.Context) error {
	if err := m.lists.Delete(ctx, m.listID); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// ListIDs returns the ids of every stored list, sorted.
func ListIDs(ctx context.Context, store kv.Store) ([]string, error) {
	ids, err := kv.Scoped[[]Item](store, Namespace).Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return ids, nil
}
