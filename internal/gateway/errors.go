package gateway

import (
	"fmt"
)

// APIError - тело ошибки, которое возвращает сервис задач
type APIError struct {
	Status      int               `json:"status"`
	Error       string            `json:"error"`
	Message     string            `json:"message"`
	Timestamp   string            `json:"timestamp,omitempty"`
	Path        string            `json:"path,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

// ResponseError - сервис ответил статусом не из 2xx
type ResponseError struct {
	StatusCode int
	Method     string
	Path       string
	Body       *APIError
	Raw        []byte
}

func (e *ResponseError) Error() string {
	if e.Body != nil && e.Body.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Body.Message)
	}
	return fmt.Sprintf("%s %s: статус %d", e.Method, e.Path, e.StatusCode)
}

// TransportError - ответа не было: сеть, таймаут, отмена
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError - ответ 2xx, но тело не разобрать
type DecodeError struct {
	Method string
	Path   string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s %s: разбор ответа: %v", e.Method, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
