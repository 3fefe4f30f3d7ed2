package toolserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"

	"github.com/houndlabs/newshound/internal/config"
)

// EmailTool sends a message over SMTP, optionally attaching the session's
// report file.
type EmailTool struct {
	cfg config.SMTPConfig

	// send is swapped out in tests
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailTool creates the send_email_with_attachment tool.
func NewEmailTool(cfg config.SMTPConfig) *EmailTool {
	return &EmailTool{
		cfg:  cfg,
		send: smtp.SendMail,
	}
}

func (t *EmailTool) Name() string { return "send_email_with_attachment" }

func (t *EmailTool) Description() string {
	return "Send an email with subject and body to a recipient, attaching a file when a path is given."
}

func (t *EmailTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient email address",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Email subject",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Email body text",
			},
			"attachment_path": map[string]any{
				"type":        "string",
				"description": "Path of a file to attach",
			},
		},
		"required": []string{"to", "subject", "body"},
	}
}

func (t *EmailTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	to, _ := args["to"].(string)
	subject, _ := args["subject"].(string)
	body, _ := args["body"].(string)
	if to == "" {
		return "", fmt.Errorf("to is required")
	}
	if t.cfg.Host == "" || t.cfg.User == "" {
		return "", fmt.Errorf("SMTP not configured (set SMTP_USER and SMTP_PASSWORD)")
	}

	from := t.cfg.From
	if from == "" {
		from = t.cfg.User
	}

	var attachment []byte
	var attachmentName string
	if path, _ := args["attachment_path"].(string); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read attachment: %w", err)
		}
		attachment = data
		attachmentName = filepath.Base(path)
	}

	msg := buildMessage(from, to, subject, body, attachmentName, attachment)
	addr := fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port)
	auth := smtp.PlainAuth("", t.cfg.User, t.cfg.Password, t.cfg.Host)
	if err := t.send(addr, auth, from, []string{to}, msg); err != nil {
		return "", fmt.Errorf("send mail: %w", err)
	}

	if attachmentName != "" {
		return fmt.Sprintf("Email sent to %s with attachment %s.", to, attachmentName), nil
	}
	return fmt.Sprintf("Email sent to %s.", to), nil
}

const mimeBoundary = "newshound-mixed-boundary"

// buildMessage assembles a MIME multipart/mixed message with a UTF-8 text
// part and an optional base64 attachment part.
func buildMessage(from, to, subject, body, attachmentName string, attachment []byte) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")

	if attachment == nil {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(body)
		return []byte(b.String())
	}

	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mimeBoundary)

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	fmt.Fprintf(&b, "Content-Type: application/octet-stream; name=%q\r\n", attachmentName)
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n\r\n", attachmentName)

	encoded := base64.StdEncoding.EncodeToString(attachment)
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)

	return []byte(b.String())
}
