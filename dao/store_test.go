package dao

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok, err := s.Get(ctx, KeyListings)
	require.NoError(t, err)
	assert.False(t, ok)

	value := []byte(`[1,2]`)
	require.NoError(t, s.Put(ctx, KeyListings, value))
	value[0] = 'x'

	got, ok, err := s.Get(ctx, KeyListings)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[1,2]`, string(got), "stored bytes must not alias the caller's slice")

	got[0] = 'y'
	again, _, _ := s.Get(ctx, KeyListings)
	assert.Equal(t, `[1,2]`, string(again))

	require.NoError(t, s.Delete(ctx, KeyListings))
	_, ok, err = s.Get(ctx, KeyListings)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_RejectsBlankKey(t *testing.T) {
	err := NewMemoryStore().Put(context.Background(), " ", []byte("{}"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	key := ThreadKey("01HTHREAD")
	require.NoError(t, s.Put(ctx, key, []byte(`[{"text":"hi"}]`)))

	got, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"text":"hi"}]`, string(got))

	require.NoError(t, s.Put(ctx, key, []byte(`[]`)))
	got, _, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got), "last write wins")

	require.NoError(t, s.Delete(ctx, key))
	_, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, s.Delete(ctx, key), "deleting a missing key is not an error")
}

func TestFileStore_RejectsPathKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../escape", "a/b", `a\b`} {
		assert.ErrorIs(t, s.Put(context.Background(), key, []byte("{}")), ErrInvalidKey, key)
	}
}

func TestStatementsFor(t *testing.T) {
	my, err := statementsFor(DialectMySQL)
	require.NoError(t, err)
	assert.Contains(t, my.upsert, "ON DUPLICATE KEY UPDATE")
	assert.Contains(t, my.get, "?")

	pg, err := statementsFor(DialectPostgres)
	require.NoError(t, err)
	assert.Contains(t, pg.upsert, "ON CONFLICT (record_key)")
	assert.Contains(t, pg.get, "$1")

	_, err = statementsFor("sqlite")
	assert.Error(t, err)
}

func TestOpenStore_SelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStore(ctx, StoreOptions{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = OpenStore(ctx, StoreOptions{Backend: "file", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = OpenStore(ctx, StoreOptions{Backend: "redis"})
	assert.Error(t, err)
}
