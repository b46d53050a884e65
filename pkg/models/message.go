package models

import "time"

// Message roles in a conversation thread.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a chat thread, as handed to and read back
// from Chat Memory (C9).
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
