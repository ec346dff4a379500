package delivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"dailybrief/internal/domain"
	"dailybrief/internal/ports"
)

// SMTPConfig carries everything needed to hand mail to a relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	// Admin receives failure notices; falls back to To when empty.
	Admin []string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers rendered digests and failure notices over SMTP.
type Mailer struct {
	cfg  SMTPConfig
	send sendFunc
}

var _ ports.Deliverer = (*Mailer)(nil)

// NewMailer builds a mailer for the given relay.
func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

// Deliver sends the digest to the configured recipients.
func (m *Mailer) Deliver(ctx context.Context, doc domain.Document, report domain.RunReport) error {
	if err := m.validate(); err != nil {
		return err
	}
	msg, err := buildMessage(m.cfg.From, m.cfg.To, doc)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}
	if err := m.sendMail(ctx, m.cfg.To, msg); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}
	return nil
}

// NotifyFailure mails a plain-text account of an aborted run to the
// admin recipients.
func (m *Mailer) NotifyFailure(ctx context.Context, report domain.RunReport) error {
	if err := m.validate(); err != nil {
		return err
	}
	to := m.cfg.Admin
	if len(to) == 0 {
		to = m.cfg.To
	}

	subject := fmt.Sprintf("Briefing run %s aborted", report.Date.Format("2006-01-02"))
	msg := buildPlainMessage(m.cfg.From, to, subject, failureText(report))
	if err := m.sendMail(ctx, to, msg); err != nil {
		return fmt.Errorf("send failure notice: %w", err)
	}
	return nil
}

func (m *Mailer) validate() error {
	if m.cfg.Host == "" || m.cfg.From == "" || len(m.cfg.To) == 0 {
		return fmt.Errorf("smtp mailer misconfigured")
	}
	return nil
}

func (m *Mailer) sendMail(ctx context.Context, to []string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	return m.send(addr, auth, m.cfg.From, to, msg)
}

// buildMessage encodes the document as a MIME message: text and HTML as
// alternatives, the narration as an attachment when present.
func buildMessage(from string, to []string, doc domain.Document) ([]byte, error) {
	var buf bytes.Buffer
	writeHeaders(&buf, from, to, doc.Subject)

	alt := &bytes.Buffer{}
	altWriter := multipart.NewWriter(alt)
	if err := writeBodyParts(altWriter, doc); err != nil {
		return nil, err
	}
	if err := altWriter.Close(); err != nil {
		return nil, err
	}

	if len(doc.Audio) == 0 {
		fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", altWriter.Boundary())
		buf.Write(alt.Bytes())
		return buf.Bytes(), nil
	}

	mixed := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	bodyPart, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {fmt.Sprintf("multipart/alternative; boundary=%q", altWriter.Boundary())},
	})
	if err != nil {
		return nil, err
	}
	if _, err := bodyPart.Write(alt.Bytes()); err != nil {
		return nil, err
	}

	audioPart, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"audio/mpeg"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", doc.AudioName)},
	})
	if err != nil {
		return nil, err
	}
	if _, err := audioPart.Write([]byte(wrapBase64(doc.Audio))); err != nil {
		return nil, err
	}

	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildPlainMessage(from string, to []string, subject, body string) []byte {
	var buf bytes.Buffer
	writeHeaders(&buf, from, to, subject)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	qp := quotedprintable.NewWriter(&buf)
	_, _ = qp.Write([]byte(body))
	_ = qp.Close()
	return buf.Bytes()
}

func writeHeaders(buf *bytes.Buffer, from string, to []string, subject string) {
	fmt.Fprintf(buf, "From: %s\r\n", from)
	fmt.Fprintf(buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
}

func writeBodyParts(w *multipart.Writer, doc domain.Document) error {
	plain, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return err
	}
	if err := writeQuoted(plain, doc.TextBody); err != nil {
		return err
	}

	html, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=utf-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return err
	}
	return writeQuoted(html, doc.HTMLBody)
}

func writeQuoted(w io.Writer, body string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(body)); err != nil {
		return err
	}
	return qp.Close()
}

func wrapBase64(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var b strings.Builder
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded)
	b.WriteString("\r\n")
	return b.String()
}

// failureText summarizes an aborted run for the failure notice.
func failureText(report domain.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s for %s aborted in state %s.\n\n",
		report.RunID, report.Date.Format("2006-01-02"), report.State)

	if len(report.SourcesAttempted) > 0 {
		fmt.Fprintf(&b, "Attempted sources: %s\n", strings.Join(report.SourcesAttempted, ", "))
	}
	if len(report.SourceFailures) > 0 {
		b.WriteString("Failed sources:\n")
		for _, f := range report.SourceFailures {
			fmt.Fprintf(&b, "  - %s: %s (%s)\n", f.Source, f.Kind, f.Reason)
		}
	}
	if len(report.ClusterFailures) > 0 {
		b.WriteString("Dropped clusters:\n")
		for _, f := range report.ClusterFailures {
			fmt.Fprintf(&b, "  - %s: %s\n", f.ClusterID, f.Reason)
		}
	}
	if len(report.RunErrors) > 0 {
		b.WriteString("Run errors:\n")
		for _, e := range report.RunErrors {
			fmt.Fprintf(&b, "  - %s: %s\n", e.Kind, e.Reason)
		}
	}

	states := make([]string, 0, len(report.Trail))
	for _, change := range report.Trail {
		states = append(states, string(change.State))
	}
	fmt.Fprintf(&b, "\nTrail: %s\n", strings.Join(states, " -> "))
	return b.String()
}
