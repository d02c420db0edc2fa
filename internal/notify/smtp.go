package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"
)

// SMTPNotifier sends notifications as HTML mail over implicit TLS.
type SMTPNotifier struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

var _ Notifier = (*SMTPNotifier)(nil)

func (n *SMTPNotifier) SendSigningRequest(ctx context.Context, req SigningRequest) error {
	subject, body, err := renderSigningRequest(req)
	if err != nil {
		return err
	}
	return n.sendMail(ctx, req.To, subject, body)
}

func (n *SMTPNotifier) SendSignedNotice(ctx context.Context, notice SignedNotice) error {
	subject, body, err := renderSignedNotice(notice)
	if err != nil {
		return err
	}
	return n.sendMail(ctx, notice.To, subject, body)
}

func (n *SMTPNotifier) SendRejectionNotice(ctx context.Context, notice RejectionNotice) error {
	subject, body, err := renderRejectionNotice(notice)
	if err != nil {
		return err
	}
	return n.sendMail(ctx, notice.To, subject, body)
}

func (n *SMTPNotifier) sendMail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var message bytes.Buffer
	fmt.Fprintf(&message, "From: %s\r\n", n.From)
	fmt.Fprintf(&message, "To: %s\r\n", to)
	fmt.Fprintf(&message, "Subject: %s\r\n", subject)
	fmt.Fprintf(&message, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	message.WriteString("\r\n")
	message.WriteString(body)

	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", fmt.Sprintf("%s:%d", n.Host, n.Port), &tls.Config{ServerName: n.Host})
	if err != nil {
		return fmt.Errorf("connect smtp: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, n.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if n.Username != "" {
		auth := smtp.PlainAuth("", n.Username, n.Password, n.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(n.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(message.Bytes()); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return client.Quit()
}
