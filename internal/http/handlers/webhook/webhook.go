// Package webhook реализует HTTP-обработчик уведомлений платежной сети.
//
// Тело уведомления не считается достоверным: из него берутся только вид
// события и ID объекта, состояние перечитывается из платежной сети на
// стороне сервиса. Ответ всегда 200, чтобы провайдер не копил повторные
// доставки: ошибка обработки логируется, а следующая доставка или
// ежедневный проход доведет состояние до актуального.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/rotaplus/driver-billing/internal/http/response"
	"github.com/rotaplus/driver-billing/internal/lib/sl"
	"github.com/rotaplus/driver-billing/internal/services/reconciler"
)

// Handler управляет HTTP-запросами с уведомлениями платежной сети.
type Handler struct {
	log     *slog.Logger
	service Service
	secret  string
}

// Service описывает интерфейс сверки состояния по уведомлению.
type Service interface {
	Handle(ctx context.Context, n reconciler.Notification) error
}

// payload — ожидаемая форма тела уведомления.
type payload struct {
	EventID string `json:"id,omitempty"`
	Type    string `json:"type"`
	Data    struct {
		ID string `json:"id"`
	} `json:"data"`
}

// New создает новый Handler. Пустой secret отключает проверку токена.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:     log,
		service: service,
		secret:  secret,
	}
}

// ServeHTTP godoc
// @Summary Принять уведомление платежной сети
// @Description Принимает уведомление о платеже или подписке и сверяет локальное состояние с платежной сетью.
// @Tags Webhooks
// @Accept  json
// @Produce  json
// @Success 200 {object} map[string]bool "Уведомление принято"
// @Failure 401 {object} response.ErrorResponse "Неверный токен вебхука"
// @Router /webhooks/payment [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if h.secret != "" {
		token := r.Header.Get("asaas-access-token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
			log.Error("webhook token mismatch")
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("unauthorized"))
			return
		}
	}

	var body payload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Error("failed to decode webhook body", sl.Err(err))
		render.JSON(w, r, map[string]bool{"success": true})
		return
	}

	err := h.service.Handle(r.Context(), reconciler.Notification{
		Kind:     body.Type,
		ObjectID: body.Data.ID,
		EventID:  body.EventID,
	})
	if err != nil {
		log.Error("failed to process webhook", slog.String("kind", body.Type), sl.Err(err))
	} else {
		log.Info("webhook processed", slog.String("kind", body.Type), slog.String("object_id", body.Data.ID))
	}

	render.JSON(w, r, map[string]bool{"success": true})
}
