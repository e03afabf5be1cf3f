package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Event names emitted by the relay. Every event carries a correlation
// id and a session key; provider API keys are never logged.
const (
	EventAPICall           = "api_call"
	EventAPICompletion     = "api_completion"
	EventContextReduction  = "context_reduction"
	EventProviderError     = "provider_error"
	EventReasoningDetected = "reasoning_detected"
	EventSessionExpired    = "session_expired"
)

// Logger provides formatted output methods plus the typed event surface
// used across the relay.
type Logger struct {
	logger *slog.Logger
}

// Log is the global logger instance.
var Log = New(os.Stdout, "info")

// New builds a JSON logger writing to w at the given level.
func New(w io.Writer, level string) *Logger {
	return &Logger{
		logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: ParseLevel(level),
		})),
	}
}

// Configure replaces the global logger level. Called once at startup
// from the loaded configuration.
func Configure(level string) {
	Log = New(os.Stdout, level)
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Infof logs an info level message with formatting
func (l *Logger) Infof(format string, args ...any) {
	l.logger.Info(sprintf(format, args...))
}

// Warnf logs a warning level message with formatting
func (l *Logger) Warnf(format string, args ...any) {
	l.logger.Warn(sprintf(format, args...))
}

// Errorf logs an error level message with formatting
func (l *Logger) Errorf(format string, args ...any) {
	l.logger.Error(sprintf(format, args...))
}

// Debugf logs a debug level message with formatting
func (l *Logger) Debugf(format string, args ...any) {
	l.logger.Debug(sprintf(format, args...))
}

// APICall records an accepted chat completion request.
func (l *Logger) APICall(requestID, sessionKey, model string, stream bool, historyTurns int) {
	l.logger.Info(EventAPICall,
		slog.String("request_id", requestID),
		slog.String("session_key", sessionKey),
		slog.String("model", model),
		slog.Bool("stream", stream),
		slog.Int("history_turns", historyTurns),
	)
}

// APICompletion records a finished request with its token usage.
// tokenSource is "reported" when usage came from the provider and
// "estimated" when the relay had to approximate it.
func (l *Logger) APICompletion(requestID, sessionKey string, promptTokens, completionTokens, totalTokens int, tokenSource string) {
	l.logger.Info(EventAPICompletion,
		slog.String("request_id", requestID),
		slog.String("session_key", sessionKey),
		slog.Int("prompt_tokens", promptTokens),
		slog.Int("completion_tokens", completionTokens),
		slog.Int("total_tokens", totalTokens),
		slog.String("token_source", tokenSource),
	)
}

// ContextReduction records a history reduction pass.
func (l *Logger) ContextReduction(requestID, sessionKey, mode string, beforeMessages, afterMessages, beforeTokens, afterTokens int, fallback bool) {
	l.logger.Info(EventContextReduction,
		slog.String("request_id", requestID),
		slog.String("session_key", sessionKey),
		slog.String("mode", mode),
		slog.Int("messages_before", beforeMessages),
		slog.Int("messages_after", afterMessages),
		slog.Int("tokens_before", beforeTokens),
		slog.Int("tokens_after", afterTokens),
		slog.Bool("fallback", fallback),
	)
}

// ProviderError records an upstream failure.
func (l *Logger) ProviderError(requestID, sessionKey, provider string, status int, err error) {
	l.logger.Error(EventProviderError,
		slog.String("request_id", requestID),
		slog.String("session_key", sessionKey),
		slog.String("provider", provider),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
}

// ReasoningDetected records that a response carried reasoning content.
func (l *Logger) ReasoningDetected(requestID, sessionKey string, reasoningLength int) {
	l.logger.Info(EventReasoningDetected,
		slog.String("request_id", requestID),
		slog.String("session_key", sessionKey),
		slog.Int("reasoning_length", reasoningLength),
	)
}

// SessionExpired records a session removed by TTL expiry.
func (l *Logger) SessionExpired(sessionKey string, age time.Duration) {
	l.logger.Info(EventSessionExpired,
		slog.String("session_key", sessionKey),
		slog.Duration("age", age),
	)
}

// sprintf is a helper function to format strings
func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
