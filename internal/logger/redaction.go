package logger

import (
	"io"
	"regexp"
)

const redactedMark = "[REDACTED]"

// Redactor rewrites anything that looks like a credential before it
// reaches a log sink. Patterns cover the secrets this process actually
// handles: provider API keys, bot tokens and bearer headers.
type Redactor struct {
	patterns []*regexp.Regexp
}

func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{20,}`),
			regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),
			regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`),
			// Telegram bot token shape: numeric id, colon, secret
			regexp.MustCompile(`\d{8,10}:[a-zA-Z0-9_-]{30,}`),
			regexp.MustCompile(`password["\s:=]+[^\s"]+`),
			regexp.MustCompile(`token["\s:=]+[a-zA-Z0-9._-]{20,}`),
			regexp.MustCompile(`secret["\s:=]+[^\s"]+`),
		},
	}
}

func (s *Redactor) Redact(line string) string {
	for _, re := range s.patterns {
		line = re.ReplaceAllString(line, redactedMark)
	}
	return line
}

// AddPattern registers an extra redaction pattern; it returns an error
// if the expression does not compile.
func (s *Redactor) AddPattern(expr string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, re)
	return nil
}

func (s *Redactor) wrap(w io.Writer) io.Writer {
	return &scrubbingWriter{next: w, scrubber: s}
}

type scrubbingWriter struct {
	next     io.Writer
	scrubber *Redactor
}

// Write reports the original length so zerolog does not treat the
// shorter scrubbed line as a partial write.
func (w *scrubbingWriter) Write(p []byte) (int, error) {
	if _, err := w.next.Write([]byte(w.scrubber.Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
