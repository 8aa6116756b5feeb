// Package chat implements the chat session lifecycle: user submit, the call
// to the text-generation gateway, the word-by-word reveal of the reply, and
// cancellation. The reply is fully buffered before the reveal begins; the
// reveal exists to produce the typing effect the product ships with.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pai-labs/pai/internal/models"
)

const (
	// WelcomeReply seeds every new session.
	WelcomeReply = "Hello! I'm P.AI, your intelligent assistant. How can I help you today?"

	// FallbackReply replaces the in-flight assistant message when the
	// gateway fails. Deliberately not derived from the underlying error.
	FallbackReply = "Sorry, I encountered an error. Please check your API configuration and try again."

	// CancelMarker is appended to the partial content when the user stops
	// generation.
	CancelMarker = " [Generation stopped]"

	// SendFailedNotice is the transient notification raised on gateway
	// failure.
	SendFailedNotice = "Failed to send message. Please check your API keys."
)

const (
	DefaultRevealInterval = 50 * time.Millisecond
	DefaultRequestTimeout = 30 * time.Second
)

// Gateway is a single request/response call to a hosted text-generation
// endpoint. Implementations perform no retry; any transport failure, bad
// status, malformed payload or missing credential surfaces as an error.
type Gateway interface {
	Send(ctx context.Context, text string) (string, error)
}

// Notifier raises transient user-facing notifications (toasts).
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Success(string) {}
func (NopNotifier) Error(string)   {}

// Config tunes a session. Zero values fall back to the defaults above.
type Config struct {
	RevealInterval time.Duration
	RequestTimeout time.Duration
	Welcome        string
}

// Session drives one conversation: it owns the message store, gates submits
// on a busy flag so at most one turn is outstanding, and runs the reveal for
// each assistant reply. Sessions live only as long as the view that created
// them; nothing here persists.
type Session struct {
	store    *Store
	gateway  Gateway
	notifier Notifier
	logger   *zap.Logger
	cfg      Config

	mu       sync.Mutex
	busy     bool
	activeID string
	stop     chan struct{}

	subMu  sync.Mutex
	subSeq int
	subs   map[int]chan models.Message
}

// NewSession creates a session seeded with the welcome message.
func NewSession(gateway Gateway, notifier Notifier, logger *zap.Logger, cfg Config) *Session {
	if cfg.RevealInterval <= 0 {
		cfg.RevealInterval = DefaultRevealInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Welcome == "" {
		cfg.Welcome = WelcomeReply
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		store:    NewStore(),
		gateway:  gateway,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		subs:     make(map[int]chan models.Message),
	}
	s.store.Append(models.NewWelcomeMessage(cfg.Welcome))
	return s
}

// Store exposes the session's message store for reaction and copy helpers.
func (s *Session) Store() *Store {
	return s.store
}

// Messages returns the conversation in creation order.
func (s *Session) Messages() []models.Message {
	return s.store.Messages()
}

// Busy reports whether a turn is outstanding or revealing.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Submit starts one user-to-assistant turn. Blank input and submits while a
// turn is outstanding are no-ops and return false. On acceptance the user
// message and an empty revealing assistant placeholder are appended before
// the gateway call is issued in the background.
func (s *Session) Submit(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return false
	}
	user := models.NewUserMessage(text)
	placeholder := models.NewAssistantMessage()
	s.store.Append(user)
	s.store.Append(placeholder)
	stop := make(chan struct{})
	s.busy = true
	s.activeID = placeholder.ID
	s.stop = stop
	s.mu.Unlock()

	s.broadcast(user)
	s.broadcast(placeholder)
	go s.run(placeholder.ID, text, stop)
	return true
}

// Cancel stops an in-flight reveal, appends the cancellation marker to the
// partial content and completes the message. Calling it when nothing is
// revealing is a no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.stop == nil {
		s.mu.Unlock()
		return
	}
	close(s.stop)
	msg, ok := s.store.FinishWithSuffix(s.activeID, CancelMarker)
	s.stop = nil
	s.activeID = ""
	s.busy = false
	s.mu.Unlock()

	if ok {
		s.broadcast(msg)
	}
}

// Subscribe registers an observer of message mutations. The returned cancel
// func must be called when done. Slow subscribers drop updates rather than
// stall the reveal.
func (s *Session) Subscribe() (<-chan models.Message, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subSeq++
	id := s.subSeq
	ch := make(chan models.Message, 64)
	s.subs[id] = ch
	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
}

func (s *Session) run(msgID, text string, stop chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
	defer cancel()

	reply, err := s.gateway.Send(ctx, text)
	if err != nil {
		s.logger.Error("text generation failed",
			zap.Error(err),
			zap.String("message_id", msgID))
		msg, failed := s.store.Fail(msgID, FallbackReply)
		s.clearTurn(stop)
		if failed {
			s.notifier.Error(SendFailedNotice)
			s.broadcast(msg)
		}
		return
	}
	s.reveal(msgID, reply, stop)
}

// reveal appends the reply to the placeholder one whitespace-separated token
// per tick. The timer chain is sequential, so tokens can never reorder, and
// every append is gated on the message still revealing, so a tick that was
// already scheduled when Cancel ran appends nothing.
func (s *Session) reveal(msgID, full string, stop chan struct{}) {
	for _, token := range strings.Fields(full) {
		select {
		case <-stop:
			return
		case <-time.After(s.cfg.RevealInterval):
		}
		msg, ok := s.store.AppendToken(msgID, token)
		if !ok {
			return
		}
		s.broadcast(msg)
	}
	msg, ok := s.store.Finish(msgID)
	s.clearTurn(stop)
	if ok {
		s.broadcast(msg)
	}
}

// clearTurn releases the busy flag, but only if the turn identified by stop
// is still current; a cancelled turn was already released by Cancel.
func (s *Session) clearTurn(stop chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != stop {
		return
	}
	s.stop = nil
	s.activeID = ""
	s.busy = false
}

func (s *Session) broadcast(msg models.Message) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}
