package smtp

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/rotaplus/driver-billing/internal/config"
	"github.com/rotaplus/driver-billing/internal/lib/sl"
)

// Transport открывает аутентифицированные SMTP-сессии поверх STARTTLS.
type Transport struct {
	host string
	port string
	user string
	pass string
	log  *slog.Logger
}

// NewTransport создает транспорт из SMTP-секции конфига.
func NewTransport(cfg *config.Config, log *slog.Logger) *Transport {
	return &Transport{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		log:  log,
	}
}

// smtpClientWrapper адаптирует *smtp.Client к интерфейсу Client.
type smtpClientWrapper struct {
	client *smtp.Client
}

func (w *smtpClientWrapper) Mail(from string) error { return w.client.Mail(from) }

func (w *smtpClientWrapper) Rcpt(to string) error { return w.client.Rcpt(to) }

func (w *smtpClientWrapper) Data() (io.WriteCloser, error) { return w.client.Data() }

func (w *smtpClientWrapper) Quit() error { return w.client.Quit() }

func (w *smtpClientWrapper) Close() error { return w.client.Close() }

// Connect устанавливает соединение с SMTP-релеем, поднимает TLS и проходит
// аутентификацию. Релей без STARTTLS считается ошибкой конфигурации.
func (t *Transport) Connect() (Client, error) {
	addr := net.JoinHostPort(t.host, t.port)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.log.Error("failed to dial SMTP server", sl.Err(err))
		return nil, fmt.Errorf("failed to dial SMTP server: %w", err)
	}

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		t.log.Error("failed to create SMTP client", sl.Err(err))
		if closeErr := conn.Close(); closeErr != nil {
			t.log.Error("failed to close connection", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := t.secureAndAuth(client); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			t.log.Error("failed to close client", sl.Err(closeErr))
		}
		return nil, err
	}

	return &smtpClientWrapper{client: client}, nil
}

func (t *Transport) secureAndAuth(client *smtp.Client) error {
	if ok, _ := client.Extension("STARTTLS"); !ok {
		t.log.Error("SMTP server does not support STARTTLS")
		return fmt.Errorf("smtp server does not support STARTTLS")
	}

	tlsConfig := &tls.Config{
		ServerName: t.host,
		MinVersion: tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		t.log.Error("failed to start TLS", sl.Err(err))
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	auth := smtp.PlainAuth("", t.user, t.pass, t.host)
	if err := client.Auth(auth); err != nil {
		t.log.Error("smtp auth failed", sl.Err(err))
		return fmt.Errorf("smtp auth failed: %w", err)
	}
	return nil
}

// GetSMTPUser возвращает адрес отправителя писем.
func (t *Transport) GetSMTPUser() string {
	return t.user
}
