// Package sender потребляет задания на уведомления из очередей брокера
// и доставляет их: письма через SMTP, пуши через провайдера уведомлений.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rotaplus/driver-billing/internal/lib/sl"
	"github.com/rotaplus/driver-billing/internal/lib/smtp"
	"github.com/rotaplus/driver-billing/internal/models"
)

// PushSender доставляет push-уведомление пользователю.
type PushSender interface {
	Send(ctx context.Context, userUID, title, body string, data map[string]string) error
}

// Service доставляет задания уведомлений конечным каналам.
type Service struct {
	transport smtp.TransportInterface
	push      PushSender
	log       *slog.Logger
}

// New создает новый Service.
func New(transport smtp.TransportInterface, push PushSender, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		push:      push,
		log:       log,
	}
}

// SendEmailJob обрабатывает одно задание из очереди писем.
func (s *Service) SendEmailJob(body []byte) error {
	var job models.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		s.log.Error("failed to unmarshal email job", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject, bodyText, ok := renderEmail(job)
	if !ok {
		// Неизвестный вид письма не возвращается в очередь.
		s.log.Warn("unknown email kind, dropping job", slog.String("kind", job.Kind))
		return nil
	}

	return s.sendEmail([]string{job.To}, subject, bodyText)
}

// SendPushJob обрабатывает одно задание из очереди пуш-уведомлений.
func (s *Service) SendPushJob(body []byte) error {
	var job models.PushJob
	if err := json.Unmarshal(body, &job); err != nil {
		s.log.Error("failed to unmarshal push job", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	if err := s.push.Send(context.Background(), job.UserUID, job.Title, job.Body, job.Data); err != nil {
		s.log.Error("failed to send push notification",
			slog.String("user_uid", job.UserUID), sl.Err(err))
		return err
	}

	s.log.Info("push notification sent", slog.String("user_uid", job.UserUID))
	return nil
}

// renderEmail собирает тему и текст письма по виду задания.
func renderEmail(job models.EmailJob) (subject, bodyText string, ok bool) {
	name := job.Data["name"]
	if name == "" {
		name = "motorista"
	}

	switch job.Kind {
	case "payment_confirmed":
		subject = "Pagamento confirmado — sua assinatura está ativa"
		bodyText = fmt.Sprintf("Olá, %s!\n\nRecebemos seu pagamento e sua assinatura já está ativa.\n\nBom trabalho!", name)
	case "subscription_expired":
		subject = "Sua assinatura expirou"
		bodyText = fmt.Sprintf("Olá, %s!\n\nSua assinatura %s expirou e o acesso aos benefícios foi suspenso.\n\nRenove quando quiser para voltar a aproveitar.", name, job.Data["plan"])
	case "expiration_warning":
		subject = fmt.Sprintf("Sua assinatura expira em %s dias", job.Data["days"])
		if job.Data["days"] == "1" {
			subject = "Sua assinatura expira amanhã"
		}
		bodyText = fmt.Sprintf("Olá, %s!\n\nSua assinatura %s expira em %s.\n\nRenove para não perder o acesso.", name, job.Data["plan"], job.Data["date"])
	default:
		return "", "", false
	}
	return subject, bodyText, true
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent", slog.String("to", strings.Join(to, ";")))
	return nil
}
