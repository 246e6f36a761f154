// Package recurring реализует HTTP-обработчик подключения рекуррентного
// списания по карте к активной подписке пользователя.
package recurring

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/rotaplus/driver-billing/internal/gateway"
	"github.com/rotaplus/driver-billing/internal/http/middlewarectx"
	"github.com/rotaplus/driver-billing/internal/http/response"
	"github.com/rotaplus/driver-billing/internal/lib/sl"
	"github.com/rotaplus/driver-billing/internal/models"
)

// Handler управляет HTTP-запросами на подключение рекуррентного списания.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики рекуррентного списания.
type Service interface {
	EnableRecurring(ctx context.Context, userUID string, card gateway.CardDetails) (string, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Подключить рекуррентное списание
// @Description Привязывает рекуррентное списание по карте к активной подписке текущего пользователя.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body models.DummyRecurring true "Данные карты"
// @Success 200 {object} response.Response "Рекуррентное списание подключено"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Активная подписка не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Ошибка платежной сети"
// @Router /subscriptions/recurring [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.recurring"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyRecurring
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	providerSubID, err := h.service.EnableRecurring(r.Context(), userUID, gateway.CardDetails{
		Number:     req.CardNumber,
		HolderName: req.HolderName,
		ExpiryMMYY: req.ExpiryMMYY,
		CVV:        req.CVV,
	})
	if err != nil {
		var gatewayErr *models.GatewayError
		switch {
		case errors.Is(err, models.ErrSubscriptionNotFound):
			log.Error("active subscription not found", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("active subscription not found"))
		case errors.As(err, &gatewayErr):
			log.Error("payment provider error", sl.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("payment provider error"))
		default:
			log.Error("failed to enable recurring billing", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not enable recurring billing"))
		}
		return
	}

	log.Info("recurring billing enabled", slog.String("user_uid", userUID))
	render.JSON(w, r, response.OKWithData(map[string]string{
		"provider_sub_id": providerSubID,
	}))
}
