// Package email sends templated notification mails.
package email

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Template keys known to the mail renderer.
const (
	TemplateVerifyUserEmail = "VERIFY_USER_EMAIL"
	TemplateWelcomeUser     = "WELCOME_USER"
	TemplateAccountInactive = "ACCOUNT_INACTIVE"
	TemplateResetPassword   = "RESET_PASSWORD"
)

// ErrNoRecipients indicates a mail without any target address.
var ErrNoRecipients = errors.New("email has no recipients")

// Targets lists the recipients of a mail.
type Targets struct {
	To  []string
	CC  []string
	BCC []string
}

// To builds Targets with only To addresses.
func To(addresses ...string) Targets {
	return Targets{To: addresses}
}

// Empty reports whether no address is set.
func (t Targets) Empty() bool {
	return len(t.To) == 0 && len(t.CC) == 0 && len(t.BCC) == 0
}

// Message is a template mail request.
type Message struct {
	From                string
	Template            string
	Targets             Targets
	Placeholders        map[string]string
	SubjectPlaceholders map[string]string
}

// Client sends template mails.
type Client interface {
	SendTemplateMail(ctx context.Context, template string, targets Targets, placeholders, subjectPlaceholders map[string]string) error
}

// LogClient writes every mail request to the log instead of delivering it.
type LogClient struct {
	from   string
	logger zerolog.Logger
}

// NewLogClient creates a LogClient.
func NewLogClient(from string, logger zerolog.Logger) *LogClient {
	return &LogClient{
		from:   from,
		logger: logger.With().Str("component", "email").Logger(),
	}
}

// SendTemplateMail logs the request.
func (c *LogClient) SendTemplateMail(ctx context.Context, template string, targets Targets, placeholders, subjectPlaceholders map[string]string) error {
	if targets.Empty() {
		return ErrNoRecipients
	}

	c.logger.Info().
		Str("from", c.from).
		Str("template", template).
		Strs("to", targets.To).
		Strs("cc", targets.CC).
		Strs("bcc", targets.BCC).
		Str("placeholders", formatPlaceholders(placeholders)).
		Str("subject_placeholders", formatPlaceholders(subjectPlaceholders)).
		Msg("template mail sent")
	return nil
}

// formatPlaceholders renders placeholders as sorted KEY=value pairs.
func formatPlaceholders(p map[string]string) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p[k])
	}
	return b.String()
}

// Recorder keeps every message in memory. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// SendTemplateMail records the request.
func (r *Recorder) SendTemplateMail(ctx context.Context, template string, targets Targets, placeholders, subjectPlaceholders map[string]string) error {
	if targets.Empty() {
		return ErrNoRecipients
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{
		Template:            template,
		Targets:             targets,
		Placeholders:        placeholders,
		SubjectPlaceholders: subjectPlaceholders,
	})
	return nil
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

var (
	_ Client = (*LogClient)(nil)
	_ Client = (*Recorder)(nil)
)
