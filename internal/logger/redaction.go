package logger

import (
	"io"
	"regexp"
)

const redacted = "[REDACTED]"

// Redactor scrubs credentials from log output
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a redactor for the secrets this bot handles
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			// OpenRouter keys: sk-or-v1-<hex>
			regexp.MustCompile(`sk-or-[a-zA-Z0-9_-]{16,}`),
			// Anthropic and OpenAI style keys
			regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{20,}`),
			regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),
			regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`),
			// Telegram bot tokens, also as they appear in API URLs (/bot<token>/)
			regexp.MustCompile(`\d{8,10}:[a-zA-Z0-9_-]{30,}`),
		},
	}
}

// AddPattern adds a custom redaction pattern
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, re)
	return nil
}

// Redact replaces every credential match in s
func (r *Redactor) Redact(s string) string {
	for _, pattern := range r.patterns {
		s = pattern.ReplaceAllString(s, redacted)
	}
	return s
}

// Wrap returns a writer that redacts before writing to w
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{writer: w, redactor: r}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success so zerolog does not treat a shorter
// redacted line as a short write.
func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := w.writer.Write([]byte(w.redactor.Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
