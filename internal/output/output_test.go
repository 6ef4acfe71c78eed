package output

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/quotachat/quotachat/internal/core"
)

func sampleTranscript() Transcript {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return Transcript{
		Conversation: core.Conversation{
			ID:        "c1",
			Title:     "What is a token bucket",
			Summary:   "Discussed rate limiting.",
			CreatedAt: at,
			UpdatedAt: at,
		},
		Messages: []core.Message{
			{ID: 1, ConversationID: "c1", Role: core.RoleUser, Content: "What is a token bucket?", CreatedAt: at},
			{ID: 2, ConversationID: "c1", Role: core.RoleModel, Content: "A rate limiting scheme.", CreatedAt: at},
		},
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"":         FormatTable,
		"TABLE":    FormatTable,
		" json ":   FormatJSON,
		"yml":      FormatYAML,
		"yaml":     FormatYAML,
		"md":       FormatMarkdown,
		"markdown": FormatMarkdown,
	}
	for input, want := range cases {
		got, err := ParseFormat(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}

	_, err := ParseFormat("xml")
	require.Error(t, err)
}

func TestTableFormatter(t *testing.T) {
	f := NewFormatter(FormatTable)

	empty, err := f.FormatConversations(nil)
	require.NoError(t, err)
	require.Equal(t, "No conversations yet.", empty)

	tr := sampleTranscript()
	list, err := f.FormatConversations([]core.Conversation{tr.Conversation})
	require.NoError(t, err)
	require.Contains(t, list, "c1")
	require.Contains(t, list, "What is a token bucket")
	require.Contains(t, list, "1 total")

	rendered, err := f.FormatTranscript(tr)
	require.NoError(t, err)
	require.Contains(t, rendered, "What is a token bucket?")
	require.Contains(t, rendered, "model")
	require.Contains(t, rendered, "Summary:")
}

func TestDataFormatters(t *testing.T) {
	tr := sampleTranscript()

	rendered, err := NewFormatter(FormatJSON).FormatTranscript(tr)
	require.NoError(t, err)
	var decoded Transcript
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Len(t, decoded.Messages, 2)
	require.Equal(t, "c1", decoded.Conversation.ID)

	rendered, err = NewFormatter(FormatYAML).FormatConversations([]core.Conversation{tr.Conversation})
	require.NoError(t, err)
	var list struct {
		Conversations []core.Conversation `yaml:"conversations"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(rendered), &list))
	require.Len(t, list.Conversations, 1)
	require.Equal(t, "What is a token bucket", list.Conversations[0].Title)

	rendered, err = NewFormatter(FormatJSON).FormatConversations(nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"conversations":[]}`, rendered)
}

func TestMarkdownFormatter(t *testing.T) {
	tr := sampleTranscript()
	tr.Conversation.Title = "pipes | here"

	rendered, err := NewFormatter(FormatMarkdown).FormatTranscript(tr)
	require.NoError(t, err)
	require.Contains(t, rendered, "# pipes | here")
	require.Contains(t, rendered, "**You**")
	require.Contains(t, rendered, "**AI**")
	require.Contains(t, rendered, "## Summary")

	list, err := NewFormatter(FormatMarkdown).FormatConversations([]core.Conversation{tr.Conversation})
	require.NoError(t, err)
	require.Contains(t, list, `pipes \| here`)
}
