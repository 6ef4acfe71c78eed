package driver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func readTrace(t *testing.T, path string) []TraceEntry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var entries []TraceEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e TraceEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, sc.Err())
	return entries
}

func TestTraceWritesNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.ndjson")
	stop, err := EnableTracing(path)
	require.NoError(t, err)

	started := time.Now().Add(-20 * time.Millisecond)
	req := &Request{Model: "gemini-2.0-flash", Input: "hello"}
	Trace("gemini", req, &Response{Raw: []byte(`{"ok":true}`)}, nil, started)
	Trace("openai", req, nil, fmt.Errorf("wrapped: %w", &ProviderError{Provider: "openai", StatusCode: 429, Message: "quota"}), started)
	stop()

	// Disabled: ignored.
	Trace("gemini", req, nil, nil, started)

	entries := readTrace(t, path)
	require.Len(t, entries, 2)
	require.Equal(t, "gemini", entries[0].Driver)
	require.Equal(t, "hello", entries[0].Input)
	require.JSONEq(t, `{"ok":true}`, string(entries[0].Response))
	require.GreaterOrEqual(t, entries[0].DurationMs, int64(20))

	require.Equal(t, 429, entries[1].StatusCode)
	require.Contains(t, entries[1].Error, "quota")
	require.Empty(t, entries[1].Response)
}

func TestTraceSkipsInvalidRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.ndjson")
	_, err := EnableTracing(path)
	require.NoError(t, err)
	t.Cleanup(DisableTracing)

	Trace("openai", nil, &Response{Raw: []byte("not json")}, nil, time.Now())
	DisableTracing()

	entries := readTrace(t, path)
	require.Len(t, entries, 1)
	require.Empty(t, entries[0].Response)
	require.Empty(t, entries[0].Model)
}

func TestEnableTracingBadPath(t *testing.T) {
	_, err := EnableTracing(filepath.Join(t.TempDir(), "missing", "trace.ndjson"))
	require.Error(t, err)
}
