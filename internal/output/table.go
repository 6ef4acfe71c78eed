package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/quotachat/quotachat/internal/core"
)

const (
	titleWidth   = 48
	contentWidth = 80
	timeLayout   = "2006-01-02 15:04"
)

// TableFormatter renders history as rounded ASCII tables.
type TableFormatter struct{}

func (f *TableFormatter) FormatConversations(conversations []core.Conversation) (string, error) {
	if len(conversations) == 0 {
		return "No conversations yet.", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Title", "Updated", "Summary"})
	for _, conv := range conversations {
		summary := "-"
		if strings.TrimSpace(conv.Summary) != "" {
			summary = "yes"
		}
		t.AppendRow(table.Row{
			conv.ID,
			text.Trim(conv.Title, titleWidth),
			formatTime(conv.UpdatedAt),
			summary,
		})
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d total", len(conversations))})
	return t.Render(), nil
}

func (f *TableFormatter) FormatTranscript(transcript Transcript) (string, error) {
	conv := transcript.Conversation

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(conv.Title)
	t.AppendHeader(table.Row{"#", "Role", "Time", "Content"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: contentWidth},
	})
	for i, msg := range transcript.Messages {
		t.AppendRow(table.Row{i + 1, string(msg.Role), formatTime(msg.CreatedAt), msg.Content})
	}

	rendered := t.Render()
	if strings.TrimSpace(conv.Summary) != "" {
		rendered += "\n\nSummary:\n" + text.WrapSoft(conv.Summary, contentWidth)
	}
	return rendered, nil
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format(timeLayout)
}
