// Package smtp содержит транспорт отправки писем водителям. Соединение
// открывается на каждое письмо: объем рассылки небольшой, а короткие
// сессии проще переживают обрывы связи с релеем.
package smtp

import "io"

// Client описывает одну SMTP-сессию. За интерфейсом прячется *smtp.Client,
// в тестах — мок без сети.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface открывает SMTP-сессии и знает адрес отправителя.
type TransportInterface interface {
	Connect() (Client, error)
	GetSMTPUser() string
}
