package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Typed provides JSON encoded access to a Store for values of type T.
type Typed[T any] struct {
	store  Store
	prefix string
}

// Scoped returns a Typed[T] that prefixes all keys with "namespace:".
func Scoped[T any](store Store, namespace string) *Typed[T] {
	return &Typed[T]{
		store:  store,
		prefix: namespace + ":",
	}
}

// Get retrieves and decodes the value stored under key.
// A missing key returns an error wrapping ErrNotFound.
func (t *Typed[T]) Get(ctx context.Context, key string) (T, error) {
	var v T

	b, err := t.store.Get(ctx, t.prefix+key)
	if err != nil {
		return v, err
	}

	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("kv get %q unmarshal: %w", t.prefix+key, err)
	}

	return v, nil
}

func (t *Typed[T]) Put(ctx context.Context, key string, value T) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv put %q marshal: %w", t.prefix+key, err)
	}

	return t.store.Put(ctx, t.prefix+key, b)
}

func (t *Typed[T]) Delete(ctx context.Context, key string) error {
	return t.store.Delete(ctx, t.prefix+key)
}

// Keys returns the keys of the namespace with the prefix stripped.
func (t *Typed[T]) Keys(ctx context.Context) ([]string, error) {
	keys, err := t.store.List(ctx, t.prefix)
	if err != nil {
		return nil, err
	}

	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, t.prefix)
	}

	return keys, nil
}
