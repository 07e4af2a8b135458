package library

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aipen-studio-api/internal/domain/entity"
	"aipen-studio-api/internal/domain/repository"
	apperrors "aipen-studio-api/pkg/errors"
)

// memStore 内存快照存储，便于断言写入内容
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.data[key]
	if !ok {
		return nil, repository.ErrSnapshotNotFound
	}
	return payload, nil
}

func (s *memStore) Save(ctx context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data[key] = payload
	return nil
}

func (s *memStore) Close() error { return nil }

const testKey = "aipen_projects_v12"

func newBook(title string) *entity.Book {
	return entity.NewBook(title, "Anonymous", "Business/Self-Help", 100, nil)
}

func TestLibraryLoadEmpty(t *testing.T) {
	lib := New(newMemStore(), testKey, "memory")
	require.NoError(t, lib.Load(context.Background()))
	assert.Empty(t, lib.Books())
}

func TestLibraryLoadCorruptSnapshotStartsEmpty(t *testing.T) {
	store := newMemStore()
	store.data[testKey] = []byte("{not json")

	lib := New(store, testKey, "memory")
	require.NoError(t, lib.Load(context.Background()))
	assert.Empty(t, lib.Books())
}

func TestLibraryCreatePrependsAndPersists(t *testing.T) {
	store := newMemStore()
	lib := New(store, testKey, "memory")

	first := newBook("First")
	second := newBook("Second")
	lib.Create(context.Background(), first)
	lib.Create(context.Background(), second)

	books := lib.Books()
	require.Len(t, books, 2)
	assert.Equal(t, "Second", books[0].Title)
	assert.Equal(t, "First", books[1].Title)

	var persisted []*entity.Book
	require.NoError(t, json.Unmarshal(store.data[testKey], &persisted))
	require.Len(t, persisted, 2)
	assert.Equal(t, second.ID, persisted[0].ID)
}

func TestLibraryUpdateMovesToFront(t *testing.T) {
	store := newMemStore()
	lib := New(store, testKey, "memory")

	first := newBook("First")
	second := newBook("Second")
	lib.Create(context.Background(), first)
	lib.Create(context.Background(), second)

	first.Title = "First, Revised"
	lib.Update(context.Background(), first)

	books := lib.Books()
	require.Len(t, books, 2)
	assert.Equal(t, "First, Revised", books[0].Title)
	assert.Equal(t, "Second", books[1].Title)
}

func TestLibraryDelete(t *testing.T) {
	store := newMemStore()
	lib := New(store, testKey, "memory")

	b := newBook("Doomed")
	lib.Create(context.Background(), b)

	require.NoError(t, lib.Delete(context.Background(), b.ID))
	assert.Empty(t, lib.Books())

	err := lib.Delete(context.Background(), b.ID)
	assert.Equal(t, apperrors.ErrBookNotFound, err)
}

func TestLibraryGet(t *testing.T) {
	lib := New(newMemStore(), testKey, "memory")
	b := newBook("Findable")
	lib.Create(context.Background(), b)

	got, err := lib.Get(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Findable", got.Title)

	_, err = lib.Get("missing")
	assert.Equal(t, apperrors.ErrBookNotFound, err)
}

func TestLibraryPersistFailureKeepsMemoryState(t *testing.T) {
	store := newMemStore()
	store.saveErr = errors.New("backend down")
	lib := New(store, testKey, "memory")

	b := newBook("Survivor")
	lib.Create(context.Background(), b)

	// 持久化失败不影响内存态
	books := lib.Books()
	require.Len(t, books, 1)
	assert.Equal(t, "Survivor", books[0].Title)
	assert.Equal(t, 1, store.saves)
}

func TestLibraryLoadRoundTrip(t *testing.T) {
	store := newMemStore()
	lib := New(store, testKey, "memory")
	lib.Create(context.Background(), newBook("Persisted"))

	reloaded := New(store, testKey, "memory")
	require.NoError(t, reloaded.Load(context.Background()))
	books := reloaded.Books()
	require.Len(t, books, 1)
	assert.Equal(t, "Persisted", books[0].Title)
	require.Len(t, books[0].History, 1)
	assert.Equal(t, 1, books[0].History[0].Version)
}
