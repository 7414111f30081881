package service

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/orientamada/orientamada/internal/config"
)

// SMTPSender delivers HTML emails over SMTP / Envoie des emails HTML via SMTP
type SMTPSender struct {
	smtp config.SMTPConfig
}

// NewSMTPSender checks the SMTP settings / Vérifie les paramètres SMTP
func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	if err := validateSMTPConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid SMTP configuration: %w", err)
	}
	return &SMTPSender{smtp: cfg}, nil
}

func validateSMTPConfig(cfg config.SMTPConfig) error {
	if cfg.Host == "" {
		return errors.New("SMTP host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return errors.New("SMTP port must be between 1 and 65535")
	}
	if cfg.From == "" {
		return errors.New("SMTP from address is required")
	}
	return nil
}

// plaintext reports a local catcher (mailpit, mailhog) / Indique un serveur local sans TLS
func (e *SMTPSender) plaintext() bool {
	return e.smtp.Port == 1025 || e.smtp.Host == "localhost" || e.smtp.Host == "127.0.0.1"
}

func (e *SMTPSender) buildMessage(to, subject, body string) []byte {
	var b strings.Builder
	headers := [][2]string{
		{"From", e.smtp.From},
		{"To", to},
		{"Subject", "=?UTF-8?B?" + base64.StdEncoding.EncodeToString([]byte(subject)) + "?="},
		{"Date", time.Now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/html; charset="utf-8"`},
	}
	for _, h := range headers {
		b.WriteString(h[0] + ": " + h[1] + "\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// Send delivers one message and honours ctx cancellation / Envoie un message en respectant ctx
func (e *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := e.buildMessage(to, subject, body)
	addr := net.JoinHostPort(e.smtp.Host, fmt.Sprint(e.smtp.Port))

	dialer := &net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = rawConn.SetDeadline(deadline)
	}

	conn := rawConn
	if !e.plaintext() {
		tlsConn := tls.Client(rawConn, &tls.Config{
			ServerName: e.smtp.Host,
			MinVersion: tls.VersionTLS12,
		})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			rawConn.Close()
			return fmt.Errorf("smtp tls handshake: %w", err)
		}
		conn = tlsConn
	}

	client, err := smtp.NewClient(conn, e.smtp.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if e.smtp.Username != "" {
		auth := smtp.PlainAuth("", e.smtp.Username, e.smtp.Password, e.smtp.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(e.smtp.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
