package domain

import (
	"errors"
	"fmt"
)

// Базовые виды ошибок. Транспортный слой сопоставляет их с HTTP-статусами.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalid         = errors.New("invalid input")
	ErrUnauthenticated = errors.New("authentication required")
)

// Error - ошибка с сообщением, которое безопасно показать клиенту.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

var (
	ErrInviteUnavailable = &Error{Kind: ErrNotFound, Msg: "invite code not found or unavailable"}
	ErrSelfRedemption    = &Error{Kind: ErrInvalid, Msg: "cannot redeem your own invite code"}
	ErrInsufficientStock = &Error{Kind: ErrConflict, Msg: "insufficient stock"}
	ErrInvalidTransition = &Error{Kind: ErrInvalid, Msg: "order status transition not allowed"}
	ErrStaleOrder        = &Error{Kind: ErrConflict, Msg: "order was modified concurrently"}
)

// Invalidf создает ошибку валидации.
func Invalidf(format string, args ...any) error {
	return &Error{Kind: ErrInvalid, Msg: fmt.Sprintf(format, args...)}
}

// NotFound создает ошибку "не найдено" для сущности what.
func NotFound(what string) error {
	return &Error{Kind: ErrNotFound, Msg: what + " not found"}
}

// Conflict создает ошибку конфликта уникальности.
func Conflict(msg string) error {
	return &Error{Kind: ErrConflict, Msg: msg}
}

// Forbidden создает ошибку авторизации.
func Forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Msg: msg}
}
