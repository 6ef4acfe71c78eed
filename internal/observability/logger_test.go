package observability

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestActiveLoggerPrefersServer(t *testing.T) {
	prevCLI, prevServer := CLILogger, ServerLogger
	t.Cleanup(func() { CLILogger, ServerLogger = prevCLI, prevServer })

	CLILogger, ServerLogger = nil, nil
	require.Nil(t, Active())

	InitCLILogger("quotachat-test", true)
	require.NotNil(t, CLILogger)
	require.Same(t, CLILogger, Active())
	Active().Debug("cli logger ready", zap.String("component", "test"))

	InitServerLogger("quotachat-test", "debug", "quotachat")
	require.NotNil(t, ServerLogger)
	require.Same(t, ServerLogger, Active())
	Active().Info("server logger ready", zap.Int("port", 8000))
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"trace":   "TRACE",
		"DEBUG":   "DEBUG",
		" info ":  "INFO",
		"warning": "WARN",
		"error":   "ERROR",
		"bogus":   "INFO",
		"":        "INFO",
	}
	for in, want := range cases {
		require.Equal(t, want, parseLogLevel(in), "level %q", in)
	}
}

func TestEmbeddedCrucibleVersion(t *testing.T) {
	version := crucible.GetVersion()
	require.NotEmpty(t, version.Gofulmen)
	require.NotEmpty(t, version.Crucible)
}

func TestResolvePort(t *testing.T) {
	port, err := resolvePort("127.0.0.1:9464")
	require.NoError(t, err)
	require.Equal(t, 9464, port)

	_, err = resolvePort("no-port")
	require.Error(t, err)
}
