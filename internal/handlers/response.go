package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"taskBoard/internal/gateway"
	"taskBoard/internal/models/task"
)

type Payload struct {
	Key     string
	Payload any
}

func toPayload(key string, pl any) Payload {
	return Payload{Key: key, Payload: pl}
}

// responseWithJSON собирает объект из пар ключ-значение
func responseWithJSON(w http.ResponseWriter, code int, payload ...Payload) {
	storage := make(map[string]any, len(payload))
	for _, pl := range payload {
		storage[pl.Key] = pl.Payload
	}
	responseWithBody(w, code, storage)
}

func responseWithBody(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if body == nil {
		return
	}
	json.NewEncoder(w).Encode(body)
}

// responseWithError отвечает телом ошибки того же вида, что и у сервиса задач
func responseWithError(w http.ResponseWriter, r *http.Request, code int, message string, fields map[string]string) {
	responseWithBody(w, code, gateway.APIError{
		Status:      code,
		Error:       http.StatusText(code),
		Message:     message,
		Timestamp:   time.Now().UTC().Format(task.LocalLayout),
		Path:        r.URL.Path,
		FieldErrors: fields,
	})
}
