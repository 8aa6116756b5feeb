package chat

import (
	"sync"

	"github.com/pai-labs/pai/internal/models"
)

// ReactionKind names one of the two per-message feedback flags.
type ReactionKind string

const (
	ReactionLiked    ReactionKind = "liked"
	ReactionDisliked ReactionKind = "disliked"
)

// Store holds the conversation as an ordered sequence of messages. Order is
// creation order and never changes; content of a message may only grow while
// it is revealing. All mutation goes through the store's lock so the session
// controller, the reveal loop and the reaction helpers never see partial
// writes.
type Store struct {
	mu   sync.Mutex
	msgs []models.Message
}

func NewStore() *Store {
	return &Store{}
}

// Append adds a message at the end of the conversation.
func (s *Store) Append(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// Messages returns a copy of the conversation in creation order.
func (s *Store) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Get returns the message with the given id.
func (s *Store) Get(id string) (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.msgs[i], true
	}
	return models.Message{}, false
}

// AppendToken grows the content of a revealing message by one token,
// inserting a separating space except before the first token. Appends to a
// message that is no longer revealing are rejected, which makes a late tick
// after cancellation harmless.
func (s *Store) AppendToken(id, token string) (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 || s.msgs[i].State != models.DeliveryRevealing {
		return models.Message{}, false
	}
	if s.msgs[i].Content != "" {
		s.msgs[i].Content += " "
	}
	s.msgs[i].Content += token
	return s.msgs[i], true
}

// Finish moves a revealing message to the complete state.
func (s *Store) Finish(id string) (models.Message, bool) {
	return s.finish(id, "", models.DeliveryComplete)
}

// FinishWithSuffix completes a revealing message after appending a raw
// suffix, used for the cancellation marker.
func (s *Store) FinishWithSuffix(id, suffix string) (models.Message, bool) {
	return s.finish(id, suffix, models.DeliveryComplete)
}

// Fail replaces the content of a revealing message and moves it to the
// errored state.
func (s *Store) Fail(id, fallback string) (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 || s.msgs[i].State != models.DeliveryRevealing {
		return models.Message{}, false
	}
	s.msgs[i].Content = fallback
	s.msgs[i].State = models.DeliveryErrored
	return s.msgs[i], true
}

// ToggleReaction flips the named feedback flag on a message. The flags are
// independent; toggling one never touches the other.
func (s *Store) ToggleReaction(id string, kind ReactionKind) (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return models.Message{}, false
	}
	switch kind {
	case ReactionLiked:
		s.msgs[i].Reactions.Liked = !s.msgs[i].Reactions.Liked
	case ReactionDisliked:
		s.msgs[i].Reactions.Disliked = !s.msgs[i].Reactions.Disliked
	default:
		return models.Message{}, false
	}
	return s.msgs[i], true
}

func (s *Store) finish(id, suffix string, state models.DeliveryState) (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 || s.msgs[i].State != models.DeliveryRevealing {
		return models.Message{}, false
	}
	s.msgs[i].Content += suffix
	s.msgs[i].State = state
	return s.msgs[i], true
}

func (s *Store) indexLocked(id string) int {
	for i := range s.msgs {
		if s.msgs[i].ID == id {
			return i
		}
	}
	return -1
}
