package handlers

import (
	"net/http"

	"taskBoard/internal/executor"
	"taskBoard/internal/logger"

	"go.uber.org/zap"
)

// handleServiceError переводит классифицированную ошибку в ответ
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	e := executor.Classify(err)
	statusCode := mapKindToHTTP(e.Kind)

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("kind", string(e.Kind)),
		zap.Int("http_status", statusCode),
		zap.String("client_ip", r.RemoteAddr),
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("HTTP: Ошибка Service", err, fields...)
	} else {
		logger.Warn("HTTP: Ошибка Service", append(fields, zap.Error(err))...)
	}

	responseWithError(w, r, statusCode, e.Message, e.FieldErrors)
}

func mapKindToHTTP(kind executor.Kind) int {
	switch kind {
	case executor.KindValidation:
		return http.StatusBadRequest
	case executor.KindNotFound:
		return http.StatusNotFound
	case executor.KindServer:
		return http.StatusBadGateway
	case executor.KindNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
