package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func TestGet_Absent(t *testing.T) {
	s := createTestStore(t)

	value, found, err := s.Get(t.Context(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, value)
}

func TestSet_OverwriteKeepsOrder(t *testing.T) {
	s := createTestStore(t)
	seed(t, s,
		Entry{"a", "1"},
		Entry{"b", "2"},
		Entry{"c", "3"},
	)

	require.NoError(t, s.Set(t.Context(), "a", "10"))

	entries, err := s.Entries(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"a", "10"}, {"b", "2"}, {"c", "3"}}, entries)
}

func TestSet_EmptyPath(t *testing.T) {
	s := createTestStore(t)
	assert.Error(t, s.Set(t.Context(), "", "x"))
}

func TestDelete_RemovesSubtreeOnly(t *testing.T) {
	s := createTestStore(t)
	seed(t, s,
		Entry{"Health Bar 1.Name", "a"},
		Entry{"Health Bar 1.Player 0.Name", "Steve"},
		Entry{"Health Bar 10.Name", "b"},
		Entry{"Health Bar 1", "leaf-sibling"},
	)

	require.NoError(t, s.Delete(t.Context(), "Health Bar 1"))

	entries, err := s.Entries(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"Health Bar 10.Name"}, paths(entries))
}

func TestMove_RenamesSubtree(t *testing.T) {
	s := createTestStore(t)
	seed(t, s,
		Entry{"Health Bar 0.Name", "old"},
		Entry{"Health Bar 1.Name", "beta"},
		Entry{"Health Bar 1.Player 0.Name", "Alex"},
	)

	err := s.Update(t.Context(), func(tx *Tx) error {
		return tx.Move("Health Bar 1", "Health Bar 0")
	})
	require.NoError(t, err)

	entries, err := s.Entries(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{"Health Bar 0.Name", "beta"},
		{"Health Bar 0.Player 0.Name", "Alex"},
	}, entries)
}

func TestMove_SamePathIsNoop(t *testing.T) {
	s := createTestStore(t)
	seed(t, s, Entry{"a.b", "1"})

	err := s.Update(t.Context(), func(tx *Tx) error {
		return tx.Move("a", "a")
	})
	require.NoError(t, err)

	value, found, err := s.Get(t.Context(), "a.b")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1", value)
}

func TestExists(t *testing.T) {
	s := createTestStore(t)
	seed(t, s, Entry{"a.b", "1"})

	err := s.View(t.Context(), func(tx *Tx) error {
		ok, err := tx.Exists("a")
		require.NoError(t, err)
		assert.True(t, ok, "interior node")

		ok, err = tx.Exists("a.b")
		require.NoError(t, err)
		assert.True(t, ok, "leaf")

		ok, err = tx.Exists("a.c")
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	seed(t, s, Entry{"count", "1"})

	boom := errors.New("boom")
	err := s.Update(t.Context(), func(tx *Tx) error {
		if err := tx.Set("Health Bar 1.Name", "half"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, found, err := s.Get(t.Context(), "Health Bar 1.Name")
	require.NoError(t, err)
	assert.False(t, found, "partial write must not be visible")
}

func TestView_RejectsWrites(t *testing.T) {
	s := createTestStore(t)

	err := s.View(t.Context(), func(tx *Tx) error {
		return tx.Set("a", "1")
	})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestEntries_Prefix(t *testing.T) {
	s := createTestStore(t)
	seed(t, s,
		Entry{"g.0.a", "1"},
		Entry{"g.1.a", "2"},
		Entry{"g.0.b", "3"},
	)

	err := s.View(t.Context(), func(tx *Tx) error {
		entries, err := tx.Entries("g.0")
		require.NoError(t, err)
		assert.Equal(t, []string{"g.0.a", "g.0.b"}, paths(entries))
		return nil
	})
	require.NoError(t, err)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "Health Bar 0.Player 1.UUID", Join("Health Bar 0", "Player 1", "UUID"))
}
