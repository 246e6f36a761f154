// Package checkoutpix реализует HTTP-обработчик оформления подписки
// через pix.
//
// Handler принимает JSON-запрос с идентификатором плана, валидирует его,
// извлекает uid пользователя из контекста и возвращает QR-код для оплаты.
package checkoutpix

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/rotaplus/driver-billing/internal/http/middlewarectx"
	"github.com/rotaplus/driver-billing/internal/http/response"
	"github.com/rotaplus/driver-billing/internal/lib/sl"
	"github.com/rotaplus/driver-billing/internal/models"
	"github.com/rotaplus/driver-billing/internal/services/checkout"
)

// Handler управляет HTTP-запросами на оформление подписки через pix.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики оформления.
type Service interface {
	Checkout(ctx context.Context, userUID, method string, req checkout.Request) (*models.CheckoutResult, error)
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
// @Summary Оформить подписку через pix
// @Description Создает подписку и pix-списание, возвращает QR-код для оплаты.
// @Tags Checkout
// @Accept  json
// @Produce  json
// @Param request body models.DummyCheckout true "Идентификатор плана"
// @Success 200 {object} response.Response{data=models.CheckoutResult} "Результат оформления"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Профиль пользователя не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или неполный профиль"
// @Failure 502 {object} response.ErrorResponse "Ошибка платежной сети"
// @Router /checkout/pix [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.pix"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyCheckout
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

	result, err := h.service.Checkout(r.Context(), userUID, models.PaymentMethodPix, checkout.Request{PlanID: req.PlanID})
	if err != nil {
		writeCheckoutError(w, r, log, err)
		return
	}

	log.Info("pix checkout created", slog.String("subscription_id", result.SubscriptionID))
	render.JSON(w, r, response.OKWithData(result))
}

// writeCheckoutError переводит ошибки оформления в HTTP-статусы.
func writeCheckoutError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var profileErr *models.ProfileIncompleteError
	var gatewayErr *models.GatewayError

	switch {
	case errors.Is(err, models.ErrPlanInvalid):
		log.Error("invalid plan", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("invalid or inactive plan"))
	case errors.Is(err, models.ErrUserNotFound):
		log.Error("user not found", sl.Err(err))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("user profile not found"))
	case errors.As(err, &profileErr):
		log.Error("profile incomplete", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error(profileErr.Error()))
	case errors.As(err, &gatewayErr):
		log.Error("payment provider error", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("payment provider error"))
	default:
		log.Error("failed to create checkout", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create checkout"))
	}
}
