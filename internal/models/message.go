package models

import (
	"time"

	"github.com/google/uuid"
)

// Author identifies who produced a message.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// DeliveryState governs whether a message's content may still grow and
// whether copy/react affordances apply.
type DeliveryState string

const (
	// DeliveryComplete means the content is final.
	DeliveryComplete DeliveryState = "complete"
	// DeliveryRevealing means the content is still being appended to.
	DeliveryRevealing DeliveryState = "revealing"
	// DeliveryErrored means generation failed and the content holds a
	// fallback notice. Terminal, like DeliveryComplete.
	DeliveryErrored DeliveryState = "errored"
)

// Terminal reports whether the state permits no further content changes.
func (s DeliveryState) Terminal() bool {
	return s == DeliveryComplete || s == DeliveryErrored
}

// Reactions holds the per-message feedback flags. The two flags are
// independent: both may be set at once.
type Reactions struct {
	Liked    bool `json:"liked"`
	Disliked bool `json:"disliked"`
}

// Message is one unit of conversation.
type Message struct {
	ID        string        `json:"id"`
	Author    Author        `json:"author"`
	Content   string        `json:"content"`
	State     DeliveryState `json:"state"`
	Reactions Reactions     `json:"reactions"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewUserMessage creates a complete user-authored message.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Author:    AuthorUser,
		Content:   content,
		State:     DeliveryComplete,
		CreatedAt: time.Now(),
	}
}

// NewAssistantMessage creates an empty assistant message in the revealing
// state, ready to receive tokens.
func NewAssistantMessage() Message {
	return Message{
		ID:        uuid.NewString(),
		Author:    AuthorAssistant,
		State:     DeliveryRevealing,
		CreatedAt: time.Now(),
	}
}

// NewWelcomeMessage creates the assistant message every session is seeded
// with.
func NewWelcomeMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Author:    AuthorAssistant,
		Content:   content,
		State:     DeliveryComplete,
		CreatedAt: time.Now(),
	}
}
