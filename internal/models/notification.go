package models

// EmailJob представляет задание на отправку письма, публикуемое в очередь
// notifications.email. Отправка — best-effort: сбой доставки никогда не
// влияет на исход породившей его операции.
type EmailJob struct {
	Kind string            `json:"kind"` // payment_confirmed | subscription_expired | expiration_warning
	To   string            `json:"to"`
	Data map[string]string `json:"data,omitempty"`
}

// PushJob представляет задание на отправку push-уведомления, публикуемое
// в очередь notifications.push.
type PushJob struct {
	UserUID string            `json:"user_uid"`
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Data    map[string]string `json:"data,omitempty"`
}
