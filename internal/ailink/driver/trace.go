package driver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// TraceEntry is one line of the --trace file.
type TraceEntry struct {
	Timestamp  time.Time       `json:"timestamp"`
	Driver     string          `json:"driver"`
	Model      string          `json:"model,omitempty"`
	Input      string          `json:"input,omitempty"`
	StatusCode int             `json:"status_code,omitempty"`
	Response   json.RawMessage `json:"response,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"duration_ms"`
}

// Tracer serializes entries as newline-delimited JSON.
type Tracer struct {
	mu  sync.Mutex
	out io.WriteCloser
	enc *json.Encoder
}

// NewTracer writes entries to w.
func NewTracer(w io.WriteCloser) *Tracer {
	return &Tracer{out: w, enc: json.NewEncoder(w)}
}

var active atomic.Pointer[Tracer]

// EnableTracing appends every provider call to path until the returned
// function (or DisableTracing) runs. A previous trace file is closed.
func EnableTracing(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	if prev := active.Swap(NewTracer(f)); prev != nil {
		_ = prev.Close()
	}
	return DisableTracing, nil
}

func DisableTracing() {
	if prev := active.Swap(nil); prev != nil {
		_ = prev.Close()
	}
}

// Trace records one generate call when tracing is on. API keys never reach
// it: only the request input and the provider's response body are kept.
func Trace(drv string, req *Request, resp *Response, err error, started time.Time) {
	t := active.Load()
	if t == nil {
		return
	}

	entry := TraceEntry{
		Timestamp:  started,
		Driver:     drv,
		DurationMs: time.Since(started).Milliseconds(),
	}
	if req != nil {
		entry.Model, entry.Input = req.Model, req.Input
	}
	if resp != nil && json.Valid(resp.Raw) {
		entry.Response = resp.Raw
	}
	if err != nil {
		entry.Error = err.Error()
		var perr *ProviderError
		if errors.As(err, &perr) {
			entry.StatusCode = perr.StatusCode
		}
	}
	t.Write(entry)
}

// Write appends entry; encoding failures are dropped.
func (t *Tracer) Write(entry TraceEntry) {
	if t == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enc != nil {
		_ = t.enc.Encode(entry)
	}
}

func (t *Tracer) Close() error {
	if t == nil || t.out == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.out.Close()
	t.out, t.enc = nil, nil
	return err
}
