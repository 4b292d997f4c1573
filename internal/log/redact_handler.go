package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// credentialKeys contains attribute keys whose values are always masked.
var credentialKeys = map[string]bool{
	"password":     true,
	"passwd":       true,
	"db_password":  true,
	"api_password": true,
	"lgpassword":   true,
	"token":        true,
	"csrf_token":   true,
	"logintoken":   true,
	"secret":       true,
	"credential":   true,
	"credentials":  true,
}

// dsnPassword matches the password part of a mysql DSN,
// user:password@tcp(host)/db. Only the password is replaced so the rest
// of the DSN stays diagnosable.
var dsnPassword = regexp.MustCompile(`^([^:@/]+):([^@]+)(@(?:tcp|unix)\(.+)$`)

// MaskValue is the string used to replace masked values.
const MaskValue = "***REDACTED***"

// RedactHandler wraps an slog.Handler and masks credential-bearing
// attribute values before passing records on. It works with any
// underlying handler, so text and JSON output share the same masking.
type RedactHandler struct {
	handler slog.Handler
}

// NewRedactHandler creates a RedactHandler wrapping the given handler.
// If handler is nil, slog.Default().Handler() is used.
func NewRedactHandler(handler slog.Handler) *RedactHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &RedactHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and passes it to the underlying
// handler.
func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

// WithAttrs returns a new handler with the given attributes added, masked.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		maskedAttrs[i] = h.redactAttr(a)
	}
	return &RedactHandler{handler: h.handler.WithAttrs(maskedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{handler: h.handler.WithGroup(name)}
}

// redactAttr masks a single attribute, recursively handling groups.
func (h *RedactHandler) redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		maskedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			maskedAttrs[i] = h.redactAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(maskedAttrs...)}
	}

	keyLower := strings.ToLower(a.Key)
	if credentialKeys[keyLower] || containsCredentialKeyword(keyLower) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString {
		if masked, ok := maskDSN(a.Value.String()); ok {
			return slog.String(a.Key, masked)
		}
	}
	return a
}

// containsCredentialKeyword checks if the key contains a credential
// keyword. The bare "key" keyword is excluded on purpose; it causes false
// positives like "cache_key" and "primary_key".
func containsCredentialKeyword(key string) bool {
	for _, keyword := range []string{"password", "passwd", "secret", "token", "credential"} {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// maskDSN replaces the password part of a mysql DSN. The second return
// value reports whether the value looked like a DSN at all.
func maskDSN(value string) (string, bool) {
	m := dsnPassword.FindStringSubmatch(value)
	if m == nil {
		return value, false
	}
	return m[1] + ":" + MaskValue + m[3], true
}

// NewLogger creates a *slog.Logger with credential masking and
// human-readable text output. Verbose selects debug level, otherwise info.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewRedactHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewJSONLogger creates a *slog.Logger with credential masking and JSON
// output for log aggregation.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewRedactHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
