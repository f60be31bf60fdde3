package executor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"taskBoard/internal/gateway"
)

type Kind string

const (
	KindValidation Kind = "VALIDATION_ERROR"
	KindNotFound   Kind = "NOT_FOUND"
	KindServer     Kind = "SERVER_ERROR"
	KindNetwork    Kind = "NETWORK_ERROR"
	KindUnknown    Kind = "UNKNOWN_ERROR"
)

// Transient - ошибки, которые чтение повторяет
func (k Kind) Transient() bool {
	return k == KindServer || k == KindNetwork
}

// Error - классифицированная ошибка обращения к сервису
type Error struct {
	Kind        Kind
	Message     string
	Status      int
	FieldErrors map[string]string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(fields map[string]string) *Error {
	return &Error{
		Kind:        KindValidation,
		Message:     "Ошибка валидации",
		Status:      http.StatusBadRequest,
		FieldErrors: fields,
	}
}

func NewNotFound(resource string, id int64) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %d не найден(а)", resource, id),
		Status:  http.StatusNotFound,
	}
}

func NewUnknown(message string, err error) *Error {
	return &Error{
		Kind:    KindUnknown,
		Message: message,
		Err:     err,
	}
}

// KindOf возвращает вид ошибки, для чужих ошибок - UnknownError
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Classify приводит любую ошибку шлюза к *Error
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var respErr *gateway.ResponseError
	if errors.As(err, &respErr) {
		return classifyResponse(respErr)
	}

	var trErr *gateway.TransportError
	if errors.As(err, &trErr) {
		return &Error{Kind: KindNetwork, Message: "Сервис недоступен", Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindNetwork, Message: "Превышено время ожидания", Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Kind: KindNetwork, Message: "Сетевая ошибка", Err: err}
	}

	return &Error{Kind: KindUnknown, Message: "Неизвестная ошибка", Err: err}
}

func classifyResponse(respErr *gateway.ResponseError) *Error {
	out := &Error{
		Status:  respErr.StatusCode,
		Message: http.StatusText(respErr.StatusCode),
		Err:     respErr,
	}
	if respErr.Body != nil {
		if respErr.Body.Message != "" {
			out.Message = respErr.Body.Message
		}
		out.FieldErrors = respErr.Body.FieldErrors
	}

	switch code := respErr.StatusCode; {
	case code == http.StatusNotFound:
		out.Kind = KindNotFound
	case code >= 400 && code < 500 && len(out.FieldErrors) > 0:
		out.Kind = KindValidation
	case code >= 500 && code < 600:
		out.Kind = KindServer
	default:
		out.Kind = KindUnknown
	}
	return out
}
