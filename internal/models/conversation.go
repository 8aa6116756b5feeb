package models

import "time"

// Conversation is the persisted mirror of a chat session. The live session
// itself is in-memory only; finished turns are written through to storage so
// sibling views can list past conversations.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoredMessage is a message row as persisted under a conversation.
type StoredMessage struct {
	ID        int64     `json:"id"`
	ConvID    int64     `json:"conversation_id"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
