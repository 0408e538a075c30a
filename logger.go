package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ANSI color codes for terminal output
const (
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorReset  = "\033[0m"
)

// Log levels with symbols — widths tuned so columns align.
const (
	LogInfo    = "ℹ  info   "
	LogWarning = "⚠  warning"
	LogError   = "✖  error  "
	LogSuccess = "✔  success"
)

// Logger components
const (
	ComponentHTTPServer = "HTTP SERVER"
	ComponentAuth       = "AUTH"
	ComponentValidator  = "VALIDATOR"
	ComponentStore      = "STORE"
	ComponentConfig     = "CONFIG"
)

const (
	headerRequestID = "X-Request-ID"
	localsLogger    = "logger"
)

// Logger prints Prism-style lines: one unindented line per request followed
// by indented component lines.
type Logger struct {
	out       io.Writer
	indent    string
	requestID string
}

// NewLogger creates a Logger writing to out. A nil out means stdout.
func NewLogger(out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}
	return &Logger{out: out, indent: "    "}
}

// ForRequest returns a copy of l tagged with requestID.
func (l *Logger) ForRequest(requestID string) *Logger {
	cp := *l
	cp.requestID = requestID
	return &cp
}

// RequestReceived prints the first line of a request block.
func (l *Logger) RequestReceived(method, path string) {
	fmt.Fprintf(l.out, "[%s] %s %s %s   %s (%s)\n",
		ComponentHTTPServer,
		strings.ToLower(method),
		path,
		LogInfo,
		"Request received",
		l.requestID,
	)
}

func (l *Logger) log(component, level, message string) {
	var colorCode string
	switch level {
	case LogWarning:
		colorCode = colorYellow
	case LogError:
		colorCode = colorRed
	}

	if colorCode != "" {
		fmt.Fprintf(l.out, "%s[%s] %s%s%s   %s\n", l.indent, component, colorCode, level, colorReset, message)
	} else {
		fmt.Fprintf(l.out, "%s[%s] %s   %s\n", l.indent, component, level, message)
	}
}

// Info logs an info message.
func (l *Logger) Info(component, message string) {
	l.log(component, LogInfo, message)
}

// Warning logs a warning message.
func (l *Logger) Warning(component, message string) {
	l.log(component, LogWarning, message)
}

// Error logs an error message.
func (l *Logger) Error(component, message string) {
	l.log(component, LogError, message)
}

// Success logs a success message.
func (l *Logger) Success(component, message string) {
	l.log(component, LogSuccess, message)
}

// RespondWith closes a request block with the status code sent.
func (l *Logger) RespondWith(statusCode int) {
	l.Info(ComponentHTTPServer, fmt.Sprintf("> Responding with \"%d\"", statusCode))
}

// requestLogger tags every request with an id, echoes it in X-Request-ID and
// stores a request-scoped Logger in the context locals.
func requestLogger(base *Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(headerRequestID, id)

		logger := base.ForRequest(id)
		c.Locals(localsLogger, logger)
		logger.RequestReceived(c.Method(), c.Path())
		return c.Next()
	}
}

// loggerFrom returns the request-scoped Logger, or a stdout Logger when the
// request did not pass through requestLogger.
func loggerFrom(c *fiber.Ctx) *Logger {
	if l, ok := c.Locals(localsLogger).(*Logger); ok {
		return l
	}
	return NewLogger(nil)
}
