// Package output renders stored conversation history for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quotachat/quotachat/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Transcript is one conversation with its messages.
type Transcript struct {
	Conversation core.Conversation `json:"conversation" yaml:"conversation"`
	Messages     []core.Message    `json:"messages" yaml:"messages"`
}

// Formatter renders history.
type Formatter interface {
	FormatConversations(conversations []core.Conversation) (string, error)
	FormatTranscript(transcript Transcript) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON, FormatYAML:
		return &DataFormatter{Format: format}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// DataFormatter emits machine-readable JSON or YAML.
type DataFormatter struct {
	Format Format
}

func (f *DataFormatter) FormatConversations(conversations []core.Conversation) (string, error) {
	if conversations == nil {
		conversations = []core.Conversation{}
	}
	return f.encode(map[string]any{"conversations": conversations})
}

func (f *DataFormatter) FormatTranscript(transcript Transcript) (string, error) {
	if transcript.Messages == nil {
		transcript.Messages = []core.Message{}
	}
	return f.encode(transcript)
}

func (f *DataFormatter) encode(v any) (string, error) {
	if f.Format == FormatYAML {
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode yaml: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(data), nil
}
