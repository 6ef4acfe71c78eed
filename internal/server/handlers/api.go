package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/quotachat/quotachat/internal/chat"
	"github.com/quotachat/quotachat/internal/core"
	"github.com/quotachat/quotachat/internal/core/store"
	apperrors "github.com/quotachat/quotachat/internal/errors"
	"github.com/quotachat/quotachat/internal/metrics"
)

const maxChatBodyBytes = 1 << 20

// ChatService runs user turns and summaries.
type ChatService interface {
	Send(ctx context.Context, conversationID, input string) (chat.Reply, error)
	Summarize(ctx context.Context, conversationID string) (chat.Reply, error)
}

// ConversationReader serves stored history.
type ConversationReader interface {
	GetConversation(ctx context.Context, id string) (*core.Conversation, error)
	ListConversations(ctx context.Context, limit int) ([]core.Conversation, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]core.Message, error)
}

// LimiterStatusSource reports the sliding window state.
type LimiterStatusSource interface {
	Status() core.LimiterStatus
}

// API serves the /api routes. Conversations may be nil when no store is
// configured.
type API struct {
	Chat          ChatService
	Conversations ConversationReader
	Limiter       LimiterStatusSource
}

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// ChatResponse is returned for a successful turn or summary.
type ChatResponse struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Reply          string `json:"reply"`
	Attempts       int    `json:"attempts"`
}

// ConversationsResponse lists recent conversations.
type ConversationsResponse struct {
	Conversations []core.Conversation `json:"conversations"`
}

// MessagesResponse is a conversation with its history.
type MessagesResponse struct {
	Conversation core.Conversation `json:"conversation"`
	Messages     []core.Message    `json:"messages"`
}

// Chat handles POST /api/chat.
func (a *API) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxChatBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapInvalidInput(r.Context(), err, "request body must be JSON with a message field"))
		return
	}

	reply, err := a.Chat.Send(r.Context(), req.ConversationID, req.Message)
	a.respondReply(w, r, "chat", reply, err)
}

// Summary handles POST /api/conversations/{id}/summary.
func (a *API) Summary(w http.ResponseWriter, r *http.Request) {
	reply, err := a.Chat.Summarize(r.Context(), chi.URLParam(r, "id"))
	a.respondReply(w, r, "summary", reply, err)
}

// ListConversations handles GET /api/conversations.
func (a *API) ListConversations(w http.ResponseWriter, r *http.Request) {
	if a.Conversations == nil {
		respondServiceError(w, r, chat.ErrNoStore)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			apperrors.RespondWithEnvelope(w, r, apperrors.NewInvalidInputError("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	conversations, err := a.Conversations.ListConversations(r.Context(), limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if conversations == nil {
		conversations = []core.Conversation{}
	}
	writeJSON(w, http.StatusOK, ConversationsResponse{Conversations: conversations})
}

// Messages handles GET /api/conversations/{id}/messages.
func (a *API) Messages(w http.ResponseWriter, r *http.Request) {
	if a.Conversations == nil {
		respondServiceError(w, r, chat.ErrNoStore)
		return
	}

	id := chi.URLParam(r, "id")
	conv, err := a.Conversations.GetConversation(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	messages, err := a.Conversations.ListMessages(r.Context(), id, 0)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if messages == nil {
		messages = []core.Message{}
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Conversation: *conv, Messages: messages})
}

// LimiterStatus handles GET /api/limiter.
func (a *API) LimiterStatus(w http.ResponseWriter, r *http.Request) {
	status := a.Limiter.Status()
	metrics.SetLimiterInWindow(status.InWindow)
	writeJSON(w, http.StatusOK, status)
}

func (a *API) respondReply(w http.ResponseWriter, r *http.Request, operation string, reply chat.Reply, err error) {
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	metrics.RecordChatRequest(operation, reply.Outcome.Kind.String())
	if envelope := apperrors.FromOutcome(r.Context(), reply.Outcome); envelope != nil {
		apperrors.RespondWithEnvelope(w, r, envelope)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		ConversationID: reply.ConversationID,
		Reply:          reply.Text,
		Attempts:       reply.Attempts(),
	})
}

// respondServiceError maps service and store errors to HTTP envelopes.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case stderrors.Is(err, chat.ErrEmptyInput):
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapInvalidInput(ctx, err, "message must not be blank"))
	case stderrors.Is(err, chat.ErrNothingToSummarize):
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapInvalidInput(ctx, err, "conversation has no messages to summarize"))
	case stderrors.Is(err, store.ErrNotFound):
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapNotFound(ctx, err, "conversation not found"))
	case stderrors.Is(err, chat.ErrNoStore):
		apperrors.RespondWithEnvelope(w, r, apperrors.NewServiceUnavailableError("conversation history is not enabled"))
	case stderrors.Is(err, context.DeadlineExceeded):
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapTimeout(ctx, err, "request timed out"))
	case stderrors.Is(err, context.Canceled):
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapCancelled(ctx, err, "request cancelled"))
	default:
		apperrors.RespondWithEnvelope(w, r, apperrors.WrapDatabaseError(ctx, err, "conversation store error"))
	}
}
