package output

import (
	"fmt"
	"strings"

	"github.com/quotachat/quotachat/internal/core"
)

// MarkdownFormatter renders history for pasting into notes.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) FormatConversations(conversations []core.Conversation) (string, error) {
	var b strings.Builder
	b.WriteString("| ID | Title | Updated |\n")
	b.WriteString("| --- | --- | --- |\n")
	for _, conv := range conversations {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", conv.ID, escapeCell(conv.Title), formatTime(conv.UpdatedAt))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (f *MarkdownFormatter) FormatTranscript(transcript Transcript) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", transcript.Conversation.Title)

	for _, msg := range transcript.Messages {
		fmt.Fprintf(&b, "\n**%s** (%s)\n\n%s\n", roleLabel(msg.Role), formatTime(msg.CreatedAt), msg.Content)
	}

	if summary := strings.TrimSpace(transcript.Conversation.Summary); summary != "" {
		fmt.Fprintf(&b, "\n## Summary\n\n%s\n", summary)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func roleLabel(role core.Role) string {
	if role == core.RoleModel {
		return "AI"
	}
	return "You"
}

func escapeCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	return strings.ReplaceAll(value, "\n", " ")
}
