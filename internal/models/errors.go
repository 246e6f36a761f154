package models

import (
	"errors"
	"fmt"
)

// Ошибки уровня домена. Ошибки валидации и отсутствия сущностей
// возвращаются вызывающей стороне как есть, ошибки провайдера — вместе
// с его собственным ответом, чтобы клиент видел точную причину отказа.
var (
	// ErrPlanInvalid план не найден или снят с продажи.
	ErrPlanInvalid = errors.New("plan not found or inactive")
	// ErrUserNotFound профиль водителя не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrSubscriptionNotFound подписка не найдена.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrUnsupportedMethod неизвестный способ оплаты.
	ErrUnsupportedMethod = errors.New("unsupported payment method")
)

// ProfileIncompleteError означает, что в профиле не хватает поля,
// обязательного для выбранного способа оплаты.
type ProfileIncompleteError struct {
	Field string
}

func (e *ProfileIncompleteError) Error() string {
	return fmt.Sprintf("profile incomplete: missing %s", e.Field)
}

// GatewayError оборачивает отказ платежной сети вместе с её исходным
// ответом.
type GatewayError struct {
	Provider string
	Payload  string
	Err      error
}

func (e *GatewayError) Error() string {
	if e.Payload != "" {
		return fmt.Sprintf("gateway %s: %s", e.Provider, e.Payload)
	}
	return fmt.Sprintf("gateway %s: %v", e.Provider, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
