package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

type Config struct {
	Sender   string
	Password string
	To       string
	Host     string
	Port     int
}

// Configured reports whether sender, password and recipient are all set.
func (c Config) Configured() bool {
	return c.Sender != "" && c.Password != "" && c.To != ""
}

func (c Config) recipients() []string {
	var out []string
	for _, part := range strings.Split(c.To, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// Mailer sends the run report over SMTP with STARTTLS.
type Mailer struct {
	cfg     Config
	logger  *slog.Logger
	timeout time.Duration
	send    func(addr string, msg []byte) error
}

func New(cfg Config) *Mailer {
	m := &Mailer{
		cfg:     cfg,
		logger:  slog.Default().With("component", "mailer"),
		timeout: 30 * time.Second,
	}
	m.send = m.sendWithSTARTTLS
	return m
}

// SendReport mails body with every attachment that exists on disk. A
// missing configuration skips the mail; send failures are logged and
// returned so callers can decide, but never panic.
func (m *Mailer) SendReport(ctx context.Context, subject, body string, attachments []string) error {
	if !m.cfg.Configured() {
		m.logger.Info("email settings not configured, skipping email")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := BuildMessage(m.cfg.Sender, m.cfg.recipients(), subject, body, attachments)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, msg); err != nil {
		m.logger.Error("failed to send email", "error", err)
		return err
	}

	m.logger.Info("email sent", "to", m.cfg.To)
	return nil
}

// BuildMessage renders a multipart message with a plain text body and the
// given files attached. Paths that do not exist are skipped.
func BuildMessage(from string, to []string, subject, body string, attachments []string) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(subject)
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	list := make([]*mail.Address, 0, len(to))
	for _, addr := range to {
		list = append(list, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", list)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}

	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	w, err := mw.CreateSingleInline(th)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	for _, path := range attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		if err := attach(mw, path, data); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func attach(mw *mail.Writer, path string, data []byte) error {
	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, params = "application/octet-stream", nil
	}

	var ah mail.AttachmentHeader
	ah.SetContentType(mediaType, params)
	ah.SetFilename(name)
	w, err := mw.CreateAttachment(ah)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Close()
}

func (m *Mailer) sendWithSTARTTLS(addr string, msg []byte) error {
	conn, err := net.DialTimeout("tcp", addr, m.timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(m.timeout)); err != nil {
		conn.Close()
		return err
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	auth := smtp.PlainAuth("", m.cfg.Sender, m.cfg.Password, m.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := client.Mail(m.cfg.Sender); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}
	for _, rcpt := range m.cfg.recipients() {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set mail recipient: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
