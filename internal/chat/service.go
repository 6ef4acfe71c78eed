// Package chat runs user turns through the admission controller and the
// configured provider, optionally persisting them.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/quotachat/quotachat/internal/ailink"
	"github.com/quotachat/quotachat/internal/ailink/driver"
	"github.com/quotachat/quotachat/internal/core"
	"github.com/quotachat/quotachat/internal/core/engine"
)

var (
	// ErrEmptyInput is returned for blank input; nothing is sent or recorded.
	ErrEmptyInput = errors.New("input is empty")

	// ErrNoStore is returned by operations that need conversation history.
	ErrNoStore = errors.New("conversation store not configured")

	// ErrNothingToSummarize is returned when a conversation has no messages.
	ErrNothingToSummarize = errors.New("conversation has no messages")
)

const titleMaxRunes = 60

// Store is the persistence the service needs. *store.Store satisfies it.
type Store interface {
	CreateConversation(ctx context.Context, title string) (*core.Conversation, error)
	GetConversation(ctx context.Context, id string) (*core.Conversation, error)
	AppendMessage(ctx context.Context, conversationID string, role core.Role, content string) (*core.Message, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]core.Message, error)
	SaveSummary(ctx context.Context, conversationID, summary string) error
}

// Reply is the result of one logical request.
type Reply struct {
	ConversationID string       `json:"conversation_id,omitempty"`
	Text           string       `json:"reply"`
	Outcome        core.Outcome `json:"-"`
}

// Attempts returns how many provider calls the request made.
func (r Reply) Attempts() int {
	return r.Outcome.Attempts
}

// Service serializes chat requests through a single controller.
type Service struct {
	mu sync.Mutex

	controller *engine.Controller
	driver     driver.Driver
	ai         ailink.Config
	store      Store

	// Logger is optional.
	Logger *logging.Logger
}

// NewService builds a service. store may be nil, in which case nothing is
// persisted and conversation IDs are ignored.
func NewService(controller *engine.Controller, drv driver.Driver, ai ailink.Config, store Store) (*Service, error) {
	if controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	return &Service{
		controller: controller,
		driver:     drv,
		ai:         ai,
		store:      store,
	}, nil
}

// Controller exposes the admission controller, e.g. for status reporting.
func (s *Service) Controller() *engine.Controller {
	return s.controller
}

// HasStore reports whether conversations are persisted.
func (s *Service) HasStore() bool {
	return s.store != nil
}

// Send runs one user turn. A non-success outcome is reported in the Reply
// with a nil error; the error return is reserved for cancellation, blank
// input, and store failures.
func (s *Service) Send(ctx context.Context, conversationID, input string) (Reply, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Reply{}, ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conversationID, err := s.resolveConversation(ctx, conversationID, input)
	if err != nil {
		return Reply{}, err
	}

	outcome, err := s.controller.Do(ctx, ailink.Attempt(s.driver, ailink.BuildRequest(s.ai, input)))
	reply := Reply{ConversationID: conversationID, Outcome: outcome}
	if err != nil {
		return reply, err
	}
	s.logOutcome("chat", outcome)

	if outcome.Kind != core.OutcomeSuccess {
		return reply, nil
	}
	reply.Text = outcome.Completion.DisplayText()

	if s.store != nil {
		if _, err := s.store.AppendMessage(ctx, conversationID, core.RoleUser, input); err != nil {
			return reply, fmt.Errorf("store user message: %w", err)
		}
		if _, err := s.store.AppendMessage(ctx, conversationID, core.RoleModel, reply.Text); err != nil {
			return reply, fmt.Errorf("store model reply: %w", err)
		}
	}
	return reply, nil
}

// Summarize asks the model to summarize a stored conversation and saves the
// result on success.
func (s *Service) Summarize(ctx context.Context, conversationID string) (Reply, error) {
	if s.store == nil {
		return Reply{}, ErrNoStore
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetConversation(ctx, conversationID); err != nil {
		return Reply{}, err
	}
	messages, err := s.store.ListMessages(ctx, conversationID, 0)
	if err != nil {
		return Reply{}, err
	}
	if len(messages) == 0 {
		return Reply{}, ErrNothingToSummarize
	}

	outcome, err := s.controller.Do(ctx, ailink.Attempt(s.driver, ailink.BuildRequest(s.ai, SummaryPrompt(messages))))
	reply := Reply{ConversationID: conversationID, Outcome: outcome}
	if err != nil {
		return reply, err
	}
	s.logOutcome("summary", outcome)

	if outcome.Kind != core.OutcomeSuccess {
		return reply, nil
	}
	reply.Text = outcome.Completion.DisplayText()
	if err := s.store.SaveSummary(ctx, conversationID, reply.Text); err != nil {
		return reply, fmt.Errorf("save summary: %w", err)
	}
	return reply, nil
}

// SummaryPrompt renders a transcript into a summarization request.
func SummaryPrompt(messages []core.Message) string {
	var b strings.Builder
	b.WriteString("Summarize the following conversation in a few sentences.\n\n")
	for _, msg := range messages {
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func (s *Service) resolveConversation(ctx context.Context, conversationID, input string) (string, error) {
	if s.store == nil {
		return "", nil
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID != "" {
		if _, err := s.store.GetConversation(ctx, conversationID); err != nil {
			return "", err
		}
		return conversationID, nil
	}

	conv, err := s.store.CreateConversation(ctx, conversationTitle(input))
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	return conv.ID, nil
}

func conversationTitle(input string) string {
	line := strings.TrimSpace(strings.SplitN(input, "\n", 2)[0])
	runes := []rune(line)
	if len(runes) <= titleMaxRunes {
		return line
	}
	return string(runes[:titleMaxRunes-3]) + "..."
}

func (s *Service) logOutcome(operation string, outcome core.Outcome) {
	if s.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("outcome", outcome.Kind.String()),
		zap.Int("attempts", outcome.Attempts),
	}
	switch outcome.Kind {
	case core.OutcomeSuccess:
		s.Logger.Debug("Request completed", fields...)
	case core.OutcomeQuotaExceeded:
		s.Logger.Warn("Quota exhausted", fields...)
	default:
		s.Logger.Warn("Request failed", append(fields, zap.Int("status", outcome.StatusCode), zap.String("detail", outcome.Detail))...)
	}
}
