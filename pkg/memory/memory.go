// Package memory implements Chat Memory (C9): a per-thread bounded
// in-process transcript, optionally persisted best-effort to Postgres.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// DefaultRingSize bounds how many messages are kept per thread in process
// memory, mirroring C3's TTL-bounded map — a fixed resource ceiling instead
// of an unbounded one.
const DefaultRingSize = 50

// Message is one turn in a thread's transcript.
type Message struct {
	ThreadID  string
	Role      string
	Content   string
	Metadata  map[string]any
	CreatedAt time.Time
}

// Store is a persistence hook Memory writes to best-effort, in a detached
// goroutine, when configured. Append should be safe to call concurrently.
type Store interface {
	Append(ctx context.Context, msg Message) error
	Read(ctx context.Context, threadID string, maxMessages int) ([]Message, error)
}

// FailureLogger receives a best-effort persistence failure. Implementations
// must not block or panic.
type FailureLogger func(threadID string, err error)

// Memory is the Chat Memory (C9) component. render_context and read are
// always served from the in-process ring buffer — even when a Store is
// configured, Memory never blocks a read on it — Store only receives
// fire-and-forget writes.
type Memory struct {
	mu      sync.RWMutex
	threads map[string][]Message
	ringCap int

	store   Store
	onFail  FailureLogger
	writeWG sync.WaitGroup
}

// New builds an in-process-only Memory. ringCap <= 0 uses DefaultRingSize.
func New(ringCap int) *Memory {
	if ringCap <= 0 {
		ringCap = DefaultRingSize
	}
	return &Memory{threads: make(map[string][]Message), ringCap: ringCap}
}

// WithStore attaches a best-effort durable Store. onFail is called (never
// blocking) whenever a detached persistence write fails; it may be nil.
func (m *Memory) WithStore(store Store, onFail FailureLogger) *Memory {
	m.store = store
	m.onFail = onFail
	return m
}

// Append adds a message to threadID's in-process transcript immediately and,
// if a Store is configured, dispatches a detached best-effort persistence
// write that never blocks the caller (spec.md §4.9).
func (m *Memory) Append(ctx context.Context, threadID, role, content string, metadata map[string]any) {
	msg := Message{ThreadID: threadID, Role: role, Content: content, Metadata: metadata, CreatedAt: time.Now()}

	m.mu.Lock()
	buf := append(m.threads[threadID], msg)
	if len(buf) > m.ringCap {
		buf = buf[len(buf)-m.ringCap:]
	}
	m.threads[threadID] = buf
	m.mu.Unlock()

	if m.store == nil {
		return
	}
	m.writeWG.Add(1)
	go func() {
		defer m.writeWG.Done()
		writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.store.Append(writeCtx, msg); err != nil && m.onFail != nil {
			m.onFail(threadID, err)
		}
	}()
}

// Wait blocks until every in-flight detached persistence write has
// completed. Intended for tests and graceful shutdown, never for request
// handling.
func (m *Memory) Wait() {
	m.writeWG.Wait()
}

// Read returns up to maxMessages of threadID's most recent turns, oldest
// first.
func (m *Memory) Read(threadID string, maxMessages int) []Message {
	m.mu.RLock()
	buf := m.threads[threadID]
	m.mu.RUnlock()

	if maxMessages <= 0 || maxMessages > len(buf) {
		maxMessages = len(buf)
	}
	out := make([]Message, maxMessages)
	copy(out, buf[len(buf)-maxMessages:])
	return out
}

// RenderContext formats threadID's recent transcript as a short plain-text
// block suitable for inclusion in an LLM prompt.
func (m *Memory) RenderContext(threadID string, maxMessages int) string {
	msgs := m.Read(threadID, maxMessages)
	if len(msgs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, msg := range msgs {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
