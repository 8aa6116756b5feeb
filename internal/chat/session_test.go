package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pai-labs/pai/internal/models"
)

type gatewayFunc func(ctx context.Context, text string) (string, error)

func (f gatewayFunc) Send(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

type recordingNotifier struct {
	mu     sync.Mutex
	errors []string
}

func (n *recordingNotifier) Success(string) {}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recordingNotifier) Errors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.errors...)
}

func newTestSession(gateway Gateway, notifier Notifier) *Session {
	return NewSession(gateway, notifier, nil, Config{
		RevealInterval: time.Millisecond,
		RequestTimeout: time.Second,
	})
}

// lastAssistant returns the most recent assistant message.
func lastAssistant(s *Session) (models.Message, bool) {
	msgs := s.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Author == models.AuthorAssistant {
			return msgs[i], true
		}
	}
	return models.Message{}, false
}

func waitTerminal(t *testing.T, s *Session) models.Message {
	t.Helper()
	var out models.Message
	require.Eventually(t, func() bool {
		msg, ok := lastAssistant(s)
		if ok && msg.State.Terminal() {
			out = msg
			return true
		}
		return false
	}, 2*time.Second, time.Millisecond)
	return out
}

func TestNewSessionSeedsWelcome(t *testing.T) {
	s := newTestSession(gatewayFunc(func(context.Context, string) (string, error) {
		return "unused", nil
	}), nil)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.AuthorAssistant, msgs[0].Author)
	assert.Equal(t, WelcomeReply, msgs[0].Content)
	assert.Equal(t, models.DeliveryComplete, msgs[0].State)
	assert.False(t, s.Busy())
}

func TestSubmitRejectsBlank(t *testing.T) {
	s := newTestSession(gatewayFunc(func(context.Context, string) (string, error) {
		return "unused", nil
	}), nil)

	assert.False(t, s.Submit(""))
	assert.False(t, s.Submit("   \t  "))
	assert.Len(t, s.Messages(), 1)
}

func TestSubmitRevealsReply(t *testing.T) {
	s := newTestSession(gatewayFunc(func(_ context.Context, text string) (string, error) {
		require.Equal(t, "hello", text)
		return "Hi there!", nil
	}), nil)

	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	require.True(t, s.Submit("hello"))

	// Assistant snapshots must grow by prefix only.
	var prev string
	deadline := time.After(2 * time.Second)
	for {
		var msg models.Message
		select {
		case msg = <-updates:
		case <-deadline:
			t.Fatal("reveal did not finish")
		}
		if msg.Author != models.AuthorAssistant {
			continue
		}
		require.True(t, strings.HasPrefix(msg.Content, prev),
			"snapshot %q does not extend %q", msg.Content, prev)
		prev = msg.Content
		if msg.State.Terminal() {
			break
		}
	}

	final, ok := lastAssistant(s)
	require.True(t, ok)
	assert.Equal(t, "Hi there!", final.Content)
	assert.Equal(t, models.DeliveryComplete, final.State)
	assert.False(t, s.Busy())

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, models.AuthorUser, msgs[1].Author)
	assert.Equal(t, "hello", msgs[1].Content)
}

func TestSingleTurnInFlight(t *testing.T) {
	release := make(chan struct{})
	s := newTestSession(gatewayFunc(func(context.Context, string) (string, error) {
		<-release
		return "done", nil
	}), nil)

	require.True(t, s.Submit("first"))
	assert.True(t, s.Busy())
	assert.False(t, s.Submit("second"), "submit while a turn is outstanding must be rejected")
	assert.Len(t, s.Messages(), 3, "rejected submit must append nothing")

	close(release)
	waitTerminal(t, s)
	assert.False(t, s.Busy())
	assert.True(t, s.Submit("third"))
	waitTerminal(t, s)
}

func TestGatewayErrorShowsFallback(t *testing.T) {
	notifier := &recordingNotifier{}
	s := newTestSession(gatewayFunc(func(context.Context, string) (string, error) {
		return "", errors.New("boom")
	}), notifier)

	require.True(t, s.Submit("hello"))
	final := waitTerminal(t, s)

	assert.Equal(t, models.DeliveryErrored, final.State)
	assert.Equal(t, FallbackReply, final.Content)
	assert.Equal(t, []string{SendFailedNotice}, notifier.Errors())
	assert.False(t, s.Busy())

	// The failed turn must not wedge the session.
	assert.True(t, s.Submit("again"))
}

func TestCancelMidReveal(t *testing.T) {
	// A reply long enough that cancellation always lands mid-reveal.
	full := strings.TrimSpace(strings.Repeat("tick ", 100))
	s := NewSession(gatewayFunc(func(context.Context, string) (string, error) {
		return full, nil
	}), nil, nil, Config{
		RevealInterval: 10 * time.Millisecond,
		RequestTimeout: time.Second,
	})

	require.True(t, s.Submit("count"))

	// Let part of the reveal land, then stop it.
	require.Eventually(t, func() bool {
		msg, ok := lastAssistant(s)
		return ok && strings.Contains(msg.Content, "tick tick")
	}, 2*time.Second, time.Millisecond)
	s.Cancel()

	final, ok := lastAssistant(s)
	require.True(t, ok)
	assert.Equal(t, models.DeliveryComplete, final.State)
	assert.True(t, strings.HasSuffix(final.Content, CancelMarker))
	revealed := strings.TrimSuffix(final.Content, CancelMarker)
	assert.True(t, strings.HasPrefix(full, revealed))
	assert.Less(t, len(revealed), len(full))
	assert.False(t, s.Busy())

	// No token scheduled before the cancel may land after it.
	time.Sleep(100 * time.Millisecond)
	after, _ := lastAssistant(s)
	assert.Equal(t, final.Content, after.Content)

	assert.True(t, s.Submit("next"), "cancel must release the session")
}

func TestCancelWhenIdleIsNoop(t *testing.T) {
	s := newTestSession(gatewayFunc(func(context.Context, string) (string, error) {
		return "unused", nil
	}), nil)

	s.Cancel()
	assert.Len(t, s.Messages(), 1)
	assert.False(t, s.Busy())
}

func TestSubscribeDeliversUserMessage(t *testing.T) {
	s := newTestSession(gatewayFunc(func(context.Context, string) (string, error) {
		return "ok", nil
	}), nil)

	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	require.True(t, s.Submit("ping"))

	select {
	case msg := <-updates:
		assert.Equal(t, models.AuthorUser, msg.Author)
		assert.Equal(t, "ping", msg.Content)
	case <-time.After(time.Second):
		t.Fatal("no user message broadcast")
	}
	waitTerminal(t, s)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := newTestSession(gatewayFunc(func(context.Context, string) (string, error) {
		return "ok", nil
	}), nil)

	updates, unsubscribe := s.Subscribe()
	unsubscribe()
	unsubscribe() // double call must be safe

	_, open := <-updates
	assert.False(t, open)
}

func TestCopyToClipboardReportsOutcome(t *testing.T) {
	// Clipboard access depends on the host; only the notifier contract is
	// checked: exactly one notification, never a panic.
	n := &countingNotifier{}
	CopyToClipboard("some reply", n)
	assert.Equal(t, 1, n.total())
}

type countingNotifier struct {
	mu        sync.Mutex
	successes int
	failures  int
}

func (n *countingNotifier) Success(string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes++
}

func (n *countingNotifier) Error(string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures++
}

func (n *countingNotifier) total() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.successes + n.failures
}
