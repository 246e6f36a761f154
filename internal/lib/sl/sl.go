// Package sl содержит мелкие помощники для структурированного логгера slog,
// общие для всех сервисов биллинга.
package sl

import "log/slog"

// Err оборачивает ошибку в slog.Attr с ключом "error". Все сервисы пишут
// ошибки в лог через этот помощник, чтобы поле называлось одинаково.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
