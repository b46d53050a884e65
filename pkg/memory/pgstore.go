package memory

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is the optional durable Store backing Memory, one small
// golang-migrate-owned table (pkg/database/migrations) queried through the
// same pgx pool the Query Executor (C2) uses.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore wraps pool for Chat Memory persistence.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Append(ctx context.Context, msg Message) error {
	var metadata []byte
	if len(msg.Metadata) > 0 {
		b, err := sonic.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("memory: marshal metadata: %w", err)
		}
		metadata = b
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_messages (thread_id, role, content, metadata, created_at) VALUES ($1, $2, $3, $4, $5)`,
		msg.ThreadID, msg.Role, msg.Content, metadata, msg.CreatedAt,
	)
	return err
}

func (s *PgStore) Read(ctx context.Context, threadID string, maxMessages int) ([]Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT role, content, metadata, created_at FROM chat_messages
		 WHERE thread_id = $1 ORDER BY created_at DESC LIMIT $2`,
		threadID, maxMessages,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var msg Message
		var metadata []byte
		if err := rows.Scan(&msg.Role, &msg.Content, &metadata, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.ThreadID = threadID
		if len(metadata) > 0 {
			if err := sonic.Unmarshal(metadata, &msg.Metadata); err != nil {
				return nil, fmt.Errorf("memory: unmarshal metadata: %w", err)
			}
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
