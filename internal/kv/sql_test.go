package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQL {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "todoboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_GetPutOverwrite(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	_, err := s.Get(ctx, "lists:x")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "lists:x", []byte(`[]`)))
	require.NoError(t, s.Put(ctx, "lists:x", []byte(`[{"id":"1"}]`)))

	got, err := s.Get(ctx, "lists:x")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1"}]`, string(got))
}

func TestSQLite_ListEscapesPrefix(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.Put(ctx, "a_b:1", []byte("1")))
	require.NoError(t, s.Put(ctx, "axb:2", []byte("2")))
	require.NoError(t, s.Put(ctx, "a%b:3", []byte("3")))

	keys, err := s.List(ctx, "a_b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a_b:1"}, keys)

	keys, err = s.List(ctx, "a%")
	require.NoError(t, err)
	assert.Equal(t, []string{"a%b:3"}, keys)
}

func TestSQLite_ListSortsByBytes(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	m := NewMemory()

	for _, k := range []string{"lists:b", "lists:B", "lists:a", "lists:A", "lists:_"} {
		require.NoError(t, s.Put(ctx, k, []byte("1")))
		require.NoError(t, m.Put(ctx, k, []byte("1")))
	}

	keys, err := s.List(ctx, "lists:")
	require.NoError(t, err)
	assert.Equal(t, []string{"lists:A", "lists:B", "lists:_", "lists:a", "lists:b"}, keys)

	want, err := m.List(ctx, "lists:")
	require.NoError(t, err)
	assert.Equal(t, want, keys)
}

func TestSQLite_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.Put(ctx, "k", []byte("v")))
	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "todoboard.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestOpenSQL_EmptyDSN(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)

	_, err = OpenMySQL("")
	assert.Error(t, err)
}
