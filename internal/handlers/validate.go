package handlers

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"taskBoard/internal/logger"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

// decodeJSON проверяет тип контента и читает тело, при ошибке ответ уже записан
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, r, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json", nil)
		return false
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		logger.Warn("HTTP: Ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, r, http.StatusBadRequest, "неверное тело запроса: "+err.Error(), nil)
		return false
	}
	return true
}

// parseID читает положительный id из пути
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id < 1 {
		if err == nil {
			err = fmt.Errorf("id должен быть положительным")
		}
		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, r, http.StatusBadRequest, "не удалось получить id: "+err.Error(), map[string]string{"id": err.Error()})
		return 0, false
	}
	return id, true
}
