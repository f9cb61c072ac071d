package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/teemow/queryexport/internal/artifact"
	"github.com/teemow/queryexport/internal/config"
	"github.com/teemow/queryexport/internal/logging"
)

// implicitTLSPort is the SMTPS port; connections on it start in TLS.
const implicitTLSPort = 465

// SentAtLayout formats the send time shown in the message body.
const SentAtLayout = "2006-01-02 15:04:05"

var bodyTemplate = template.Must(template.New("body").Parse(`<html>
  <body>
    <h2>PostgreSQL query result exported</h2>
    <p>Query time: {{.SentAt}}</p>
    <p>Rows: {{.RowCount}}</p>
    <p>The data is attached to this email as {{.Filename}}.</p>
  </body>
</html>
`))

// Deliverer sends an artifact and reports whether the relay accepted it.
type Deliverer interface {
	Send(ctx context.Context, art *artifact.Artifact, subject string) bool
	Recipients() []string
}

// sender is the part of *mail.Client the Agent uses.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type newSenderFunc func(cfg config.MailConfig) (sender, error)

// Agent delivers artifacts to the configured recipients.
type Agent struct {
	cfg       config.MailConfig
	newSender newSenderFunc
	now       func() time.Time
	logger    *slog.Logger
}

// NewAgent returns an Agent for cfg. No connection is made until Send.
func NewAgent(cfg config.MailConfig, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		cfg:       cfg,
		newSender: newSMTPClient,
		now:       time.Now,
		logger:    logging.WithService(logger, "mailer"),
	}
}

func newSMTPClient(cfg config.MailConfig) (sender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Port == implicitTLSPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return client, nil
}

// Recipients returns the configured recipient addresses.
func (a *Agent) Recipients() []string {
	out := make([]string, len(a.cfg.Recipients))
	copy(out, a.cfg.Recipients)
	return out
}

// DefaultSubject is used when the caller does not supply a subject.
func DefaultSubject(timestamp string) string {
	return "Query results — " + timestamp
}

// Compose builds the message for art. An empty subject is replaced with
// DefaultSubject(art.Timestamp).
func (a *Agent) Compose(art *artifact.Artifact, subject string) (*mail.Msg, error) {
	if art == nil {
		return nil, errors.New("no artifact to send")
	}
	if _, err := os.Stat(art.Path); err != nil {
		return nil, fmt.Errorf("attachment not readable: %w", err)
	}
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject(art.Timestamp)
	}

	msg := mail.NewMsg()
	if err := msg.From(a.cfg.Sender); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(a.cfg.Recipients...); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetMessageID()

	var body bytes.Buffer
	err := bodyTemplate.Execute(&body, struct {
		SentAt   string
		RowCount int
		Filename string
	}{
		SentAt:   a.now().Format(SentAtLayout),
		RowCount: art.RowCount,
		Filename: art.Filename,
	})
	if err != nil {
		return nil, fmt.Errorf("render body: %w", err)
	}
	msg.SetBodyString(mail.TypeTextHTML, body.String())

	msg.AttachFile(art.Path, mail.WithFileName(art.Filename))

	return msg, nil
}

// Send delivers art to the configured recipients. It returns true only when
// the relay accepted the message; every failure is logged and reported as false.
func (a *Agent) Send(ctx context.Context, art *artifact.Artifact, subject string) bool {
	logger := logging.WithOperation(a.logger, "send")

	msg, err := a.Compose(art, subject)
	if err != nil {
		logger.Error("composing email failed", logging.Err(err))
		return false
	}

	client, err := a.newSender(a.cfg)
	if err != nil {
		logger.Error("smtp client setup failed", slog.String("host", a.cfg.Host), logging.Err(err))
		return false
	}

	start := time.Now()
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		logger.Error("email delivery failed",
			slog.String("host", a.cfg.Host),
			slog.Int("port", a.cfg.Port),
			slog.Int("recipients", len(a.cfg.Recipients)),
			slog.Duration(logging.KeyDuration, time.Since(start)),
			logging.Err(err),
		)
		return false
	}

	hashes := make([]string, 0, len(a.cfg.Recipients))
	for _, r := range a.cfg.Recipients {
		hashes = append(hashes, logging.AnonymizeEmail(r))
	}
	logger.Info("email sent",
		slog.String("file", art.Filename),
		slog.Any("recipient_hashes", hashes),
		slog.Duration(logging.KeyDuration, time.Since(start)),
	)
	return true
}
