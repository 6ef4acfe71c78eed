package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/quotachat/quotachat/internal/core"
)

// Sender is the part of Service the REPL drives.
type Sender interface {
	Send(ctx context.Context, conversationID, input string) (Reply, error)
}

// REPL is a line-oriented chat loop.
type REPL struct {
	Sender Sender
	In     io.Reader
	Out    io.Writer

	// Prompt prints "You: " before each read. NewREPL enables it only when
	// In is a terminal.
	Prompt bool

	// ConversationID is reused across turns once the first reply assigns one.
	ConversationID string
}

// NewREPL wires a REPL to the given streams.
func NewREPL(sender Sender, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		Sender: sender,
		In:     in,
		Out:    out,
		Prompt: isTerminal(in),
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Run reads lines until exit/quit, end of input, or ctx cancellation. It
// returns nil on a normal exit and the context error on cancellation.
func (r *REPL) Run(ctx context.Context) error {
	if r.Sender == nil {
		return fmt.Errorf("sender is required")
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.In)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		r.printPrompt()

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			select {
			case err := <-readErr:
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
			default:
			}
			return ctx.Err()
		}

		input := strings.TrimSpace(line)
		if isExit(input) {
			return nil
		}
		if input == "" {
			continue
		}

		reply, err := r.Sender.Send(ctx, r.ConversationID, input)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return err
			}
			if errors.Is(err, ErrEmptyInput) {
				continue
			}
			fmt.Fprintf(r.Out, "AI: Error: %v\n", err)
			continue
		}
		if reply.ConversationID != "" {
			r.ConversationID = reply.ConversationID
		}
		fmt.Fprintln(r.Out, FormatReply(reply))
	}
}

func (r *REPL) printPrompt() {
	if r.Prompt {
		fmt.Fprint(r.Out, "You: ")
	}
}

func isExit(input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit":
		return true
	}
	return false
}

// FormatReply renders a reply line with the "AI:" prefix.
func FormatReply(reply Reply) string {
	outcome := reply.Outcome
	switch outcome.Kind {
	case core.OutcomeSuccess:
		return "AI: " + reply.Text
	case core.OutcomeQuotaExceeded:
		return fmt.Sprintf("AI: Rate limit exceeded after %d attempt(s). Please wait a moment and try again.", outcome.Attempts)
	default:
		detail := strings.TrimSpace(outcome.Detail)
		if detail == "" {
			detail = "unknown error"
		}
		if outcome.StatusCode > 0 {
			return fmt.Sprintf("AI: Request failed (status %d): %s", outcome.StatusCode, detail)
		}
		return "AI: Request failed: " + detail
	}
}
