// Package llm is the gateway to the hosted text-generation API. One call per
// turn, no retries; the chat session owns all error presentation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/pai-labs/pai/internal/models"
)

// ErrNoCredential is returned before any network call when the API key is
// not configured.
var ErrNoCredential = errors.New("llm: API key not configured")

const systemPrompt = "You are P.AI, a helpful, intelligent, and creative assistant. " +
	"You can help with tasks, answer questions, generate content, and provide insights. " +
	"Be concise but comprehensive in your responses."

// DefaultHistoryWindow is the number of prior turns forwarded as context
// with each request.
const DefaultHistoryWindow = 10

// Service sends conversation turns to an OpenAI-compatible completion
// endpoint and keeps a bounded trailing window of prior turns as context.
type Service struct {
	model  llms.Model
	hasKey bool

	mu      sync.Mutex
	window  int
	history []llms.MessageContent
}

// New builds a gateway against the given endpoint. An empty token is
// accepted here so the server can start without one; Send refuses to issue
// calls until a credential is present.
func New(baseURL, token, model string) (*Service, error) {
	client, err := openai.New(
		openai.WithToken(token),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize completion client: %w", err)
	}
	return newWithModel(client, token != ""), nil
}

func newWithModel(model llms.Model, hasKey bool) *Service {
	return &Service{
		model:  model,
		hasKey: hasKey,
		window: DefaultHistoryWindow,
	}
}

// Send submits one user turn together with the system instruction and the
// trailing history window, and returns the complete reply text.
func (s *Service) Send(ctx context.Context, text string) (string, error) {
	if !s.hasKey {
		return "", ErrNoCredential
	}

	s.mu.Lock()
	messages := make([]llms.MessageContent, 0, len(s.history)+2)
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt))
	messages = append(messages, s.history...)
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, text))
	s.mu.Unlock()

	resp, err := s.model.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in completion response")
	}
	reply := strings.TrimSpace(resp.Choices[0].Content)
	if reply == "" {
		return "", errors.New("empty content in completion response")
	}

	s.remember(text, reply)
	return reply, nil
}

// SetWindow overrides the trailing history window size. Values below one
// are ignored.
func (s *Service) SetWindow(n int) {
	if n < 1 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = n
}

// Reset drops the accumulated history, e.g. when a session ends.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// remember appends the finished turn and trims the window to the last
// `window` exchanges.
func (s *Service) remember(text, reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history,
		llms.TextParts(schema.ChatMessageTypeHuman, text),
		llms.TextParts(schema.ChatMessageTypeAI, reply),
	)
	if max := s.window * 2; len(s.history) > max {
		s.history = s.history[len(s.history)-max:]
	}
}

// HistoryRoles exposes the remembered roles in order, for diagnostics.
func (s *Service) HistoryRoles() []models.Author {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Author, 0, len(s.history))
	for _, m := range s.history {
		if m.Role == schema.ChatMessageTypeHuman {
			out = append(out, models.AuthorUser)
		} else {
			out = append(out, models.AuthorAssistant)
		}
	}
	return out
}
