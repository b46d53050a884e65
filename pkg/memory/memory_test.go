package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndReadOrdering(t *testing.T) {
	m := New(10)
	m.Append(context.Background(), "t1", RoleUser, "hello", nil)
	m.Append(context.Background(), "t1", RoleAssistant, "hi there", nil)

	msgs := m.Read("t1", 10)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "hi there", msgs[1].Content)
}

func TestAppendEvictsOldestWhenRingFull(t *testing.T) {
	m := New(2)
	m.Append(context.Background(), "t1", RoleUser, "one", nil)
	m.Append(context.Background(), "t1", RoleUser, "two", nil)
	m.Append(context.Background(), "t1", RoleUser, "three", nil)

	msgs := m.Read("t1", 10)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Content)
	assert.Equal(t, "three", msgs[1].Content)
}

func TestReadUnknownThreadIsEmpty(t *testing.T) {
	m := New(10)
	assert.Empty(t, m.Read("nope", 10))
}

func TestRenderContextFormatsTranscript(t *testing.T) {
	m := New(10)
	m.Append(context.Background(), "t1", RoleUser, "total sales?", nil)
	m.Append(context.Background(), "t1", RoleAssistant, "1000", nil)

	ctx := m.RenderContext("t1", 10)
	assert.Equal(t, "user: total sales?\nassistant: 1000", ctx)
}

type fakeStore struct {
	mu      sync.Mutex
	written []Message
	err     error
}

func (f *fakeStore) Append(ctx context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, msg)
	return nil
}

func (f *fakeStore) Read(ctx context.Context, threadID string, maxMessages int) ([]Message, error) {
	return nil, nil
}

func TestAppendPersistsToStoreWithoutBlocking(t *testing.T) {
	store := &fakeStore{}
	m := New(10).WithStore(store, nil)

	m.Append(context.Background(), "t1", RoleUser, "hello", nil)
	m.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.written, 1)
	assert.Equal(t, "hello", store.written[0].Content)
}

func TestAppendPersistenceFailureIsFailOpen(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	var reported error
	m := New(10).WithStore(store, func(threadID string, err error) { reported = err })

	m.Append(context.Background(), "t1", RoleUser, "hello", nil)
	m.Wait()

	require.Error(t, reported)
	// the in-process read path must still have the message regardless of
	// whether the durable write succeeded
	assert.Len(t, m.Read("t1", 10), 1)
}
