// Package mail sends notification emails. Bodies are written in markdown and
// sent as multipart/alternative with the markdown as the text part and the
// goldmark rendering as the HTML part.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/yuin/goldmark"
)

type Message struct {
	To       string
	Subject  string
	Markdown string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var (
	signedDocumentTmpl = template.Must(template.New("signed").Parse(`Hello,

Please find your signed PDF document at the link below:

[Download the signed PDF]({{.URL}})

If the link does not work, copy this address into your browser:
{{.URL}}
`))

	passwordResetTmpl = template.Must(template.New("reset").Parse(`Your password reset token is:

[Reset your password]({{.URL}})

{{.URL}}

The link expires in {{.Expires}}. If you did not request this, please ignore this email.
`))
)

// SignedDocument builds the mail delivering a signed PDF link.
func SignedDocument(to, fileURL string) (Message, error) {
	var buf bytes.Buffer
	if err := signedDocumentTmpl.Execute(&buf, struct{ URL string }{fileURL}); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Signed PDF Document", Markdown: buf.String()}, nil
}

// PasswordReset builds the password recovery mail.
func PasswordReset(to, resetURL string, expires time.Duration) (Message, error) {
	var buf bytes.Buffer
	data := struct {
		URL     string
		Expires time.Duration
	}{resetURL, expires}
	if err := passwordResetTmpl.Execute(&buf, data); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Password Recovery", Markdown: buf.String()}, nil
}

// HTML renders the message body.
func (m Message) HTML() (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(m.Markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render mail body: %w", err)
	}
	return buf.String(), nil
}

// Bytes returns the RFC 5322 encoding of m.
func (m Message) Bytes(from string, now time.Time) ([]byte, error) {
	html, err := m.HTML()
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, part := range []struct{ contentType, content string }{
		{"text/plain; charset=UTF-8", m.Markdown},
		{"text/html; charset=UTF-8", html},
	} {
		pw, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write([]byte(crlf(part.content))); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\n", from)
	fmt.Fprintf(&out, "To: %s\r\n", m.To)
	fmt.Fprintf(&out, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&out, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&out, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func crlf(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\n", "\r\n")
}

// LogSender is used when no SMTP server is configured. Messages are logged
// and kept in memory.
type LogSender struct {
	mu   sync.Mutex
	sent []Message
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	log.Printf("[WARN] SMTP not configured, mail %q to %s not delivered", msg.Subject, msg.To)
	return nil
}

// Sent returns the messages passed to Send so far.
func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
