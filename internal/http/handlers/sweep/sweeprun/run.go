// Package sweeprun реализует HTTP-обработчик ручного запуска ежедневного
// прохода. Маршрут закрыт ролью admin, используется для операционных
// нужд и проверки после инцидентов.
package sweeprun

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/rotaplus/driver-billing/internal/http/response"
	"github.com/rotaplus/driver-billing/internal/services/sweep"
)

// Handler управляет HTTP-запросами на запуск прохода.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс ежедневного прохода.
type Service interface {
	Run(ctx context.Context, now time.Time) sweep.Report
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Запустить проход по подпискам вручную
// @Description Отменяет истекшие подписки, рассылает предупреждения и чистит осиротевшие оформления. Требует роль admin.
// @Tags Sweep
// @Produce  json
// @Success 200 {object} response.Response{data=sweep.Report} "Итог прохода"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Router /sweep/run [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.sweep.run"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	report := h.service.Run(r.Context(), time.Now().UTC())

	log.Info("manual sweep finished",
		slog.Int("expired", report.Expired),
		slog.Int("warned", report.Warned),
		slog.Int("orphans", report.Orphans))
	render.JSON(w, r, response.OKWithData(report))
}
