package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

// CLILogger serves one-shot commands and the REPL; ServerLogger serves
// `quotachat serve`. Either may be nil until initialized.
var (
	CLILogger    *logging.Logger
	ServerLogger *logging.Logger
)

// InitCLILogger installs a console logger for interactive commands.
func InitCLILogger(service string, verbose bool) {
	logger, err := logging.NewCLI(service)
	if err != nil {
		fatal("cannot start CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

// InitServerLogger installs a JSON logger on stderr for the HTTP server.
// A non-empty namespace is attached to every entry.
func InitServerLogger(service, level string, namespace ...string) {
	ns := ""
	if len(namespace) > 0 {
		ns = namespace[0]
	}
	logger, err := logging.New(serverLoggerConfig(service, level, ns))
	if err != nil {
		fatal("cannot start server logger", err)
	}
	ServerLogger = logger
}

// Active prefers the server logger when serve has started one.
func Active() *logging.Logger {
	if ServerLogger != nil {
		return ServerLogger
	}
	return CLILogger
}

func serverLoggerConfig(service, level, namespace string) *logging.LoggerConfig {
	fields := map[string]any{}
	if namespace != "" {
		fields["namespace"] = namespace
	}

	env := strings.TrimSpace(os.Getenv("QUOTACHAT_ENV"))
	if env == "" {
		env = "production"
	}

	return &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: parseLogLevel(level),
		Service:      service,
		Environment:  env,
		StaticFields: fields,
		Middleware: []logging.MiddlewareConfig{
			{Name: "correlation", Enabled: true, Order: 100, Config: map[string]any{}},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:    "console",
				Format:  "json",
				Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

var logLevels = map[string]string{
	"trace":   "TRACE",
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// parseLogLevel maps the logging.level setting onto a severity name,
// falling back to INFO.
func parseLogLevel(level string) string {
	if sev, ok := logLevels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return sev
	}
	return "INFO"
}

// fatal reports a logger bootstrap failure on stderr. No logger exists yet
// to carry it.
func fatal(msg string, err error) {
	code := foundry.ExitConfigInvalid
	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	if info, ok := foundry.GetExitCodeInfo(code); ok {
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		os.Exit(info.Code)
	}
	os.Exit(int(code))
}
