package kvwindow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditgate/internal/platform/kv"
	"creditgate/internal/ratelimit/models"
	id "creditgate/pkg/domain"
	"creditgate/pkg/platform/sentinel"
)

func testSubject(t *testing.T) id.Subject {
	t.Helper()
	subject, err := id.GuestSubject(id.NewDeviceID())
	require.NoError(t, err)
	return subject
}

func TestLoadAbsentReturnsEmptyEntries(t *testing.T) {
	store := New(kv.NewMemory())

	entries, err := store.Load(context.Background(), testSubject(t))
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := New(kv.NewMemory())
	subject := testSubject(t)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	saved := models.Entries{
		models.ActionDocumentGeneration: {Count: 3, FirstRequestAt: now, LastRequestAt: now.Add(time.Minute)},
		models.ActionChatMessage:        {Count: 7, FirstRequestAt: now, LastRequestAt: now},
	}
	require.NoError(t, store.Save(context.Background(), subject, saved))

	loaded, err := store.Load(context.Background(), subject)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded[models.ActionDocumentGeneration].Count)
	assert.Equal(t, 7, loaded[models.ActionChatMessage].Count)
	assert.True(t, loaded[models.ActionDocumentGeneration].FirstRequestAt.Equal(now))
}

func TestLoadCorruptBlobReturnsSentinel(t *testing.T) {
	backend := kv.NewMemory()
	store := New(backend)
	subject := testSubject(t)

	require.NoError(t, backend.Set(context.Background(), "ratelimit:"+subject.Key(), "not json at all"))

	_, err := store.Load(context.Background(), subject)
	require.ErrorIs(t, err, sentinel.ErrCorrupt)
}

func TestClearRemovesBlob(t *testing.T) {
	backend := kv.NewMemory()
	store := New(backend)
	subject := testSubject(t)

	require.NoError(t, store.Save(context.Background(), subject, models.Entries{
		models.ActionDocumentGeneration: {Count: 1},
	}))
	require.NoError(t, store.Clear(context.Background(), subject))

	_, ok, err := backend.Get(context.Background(), "ratelimit:"+subject.Key())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubjectsAreIsolated(t *testing.T) {
	store := New(kv.NewMemory())
	first := testSubject(t)
	second := testSubject(t)

	require.NoError(t, store.Save(context.Background(), first, models.Entries{
		models.ActionDocumentGeneration: {Count: 5},
	}))

	entries, err := store.Load(context.Background(), second)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
