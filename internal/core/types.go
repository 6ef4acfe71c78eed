package core

import "time"

// OutcomeKind classifies the result of a single attempt against the remote model.
type OutcomeKind int

const (
	OutcomeSuccess       OutcomeKind = 0
	OutcomeQuotaExceeded OutcomeKind = 1
	OutcomeOtherFailure  OutcomeKind = 2
)

// String returns the label used in logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeQuotaExceeded:
		return "quota_exceeded"
	case OutcomeOtherFailure:
		return "other_failure"
	default:
		return "unknown"
	}
}

// Completion is the provider-agnostic payload of a successful attempt.
type Completion struct {
	Model            string `json:"model,omitempty"`
	Text             string `json:"text"`
	FinishReason     string `json:"finish_reason,omitempty"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`

	// Fallback is a textual rendering of the raw response, used when Text is empty.
	Fallback string `json:"-"`
}

// DisplayText returns the completion text, or the fallback rendering when the
// provider returned no text parts.
func (c *Completion) DisplayText() string {
	if c == nil {
		return ""
	}
	if c.Text != "" {
		return c.Text
	}
	return c.Fallback
}

// Outcome is the classified result of one attempt, or of a whole retried request
// once the retrier returns it.
type Outcome struct {
	Kind       OutcomeKind
	Completion *Completion
	Detail     string
	StatusCode int

	// Attempts is filled by the retrier with the number of attempts performed.
	Attempts int
}

// Success builds a success outcome.
func Success(c *Completion) Outcome {
	return Outcome{Kind: OutcomeSuccess, Completion: c}
}

// QuotaExceeded builds a quota-exceeded outcome.
func QuotaExceeded(detail string) Outcome {
	return Outcome{Kind: OutcomeQuotaExceeded, Detail: detail, StatusCode: 429}
}

// OtherFailure builds a non-retryable failure outcome.
func OtherFailure(statusCode int, detail string) Outcome {
	return Outcome{Kind: OutcomeOtherFailure, StatusCode: statusCode, Detail: detail}
}

// Role identifies the author of a stored chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one persisted chat turn.
type Message struct {
	ID             int64     `json:"id" yaml:"id"`
	ConversationID string    `json:"conversation_id" yaml:"conversation_id"`
	Role           Role      `json:"role" yaml:"role"`
	Content        string    `json:"content" yaml:"content"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
}

// Conversation groups messages exchanged through the HTTP surface.
type Conversation struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Summary   string    `json:"summary,omitempty" yaml:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
