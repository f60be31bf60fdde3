package handlers

import (
	"net/http"

	"taskBoard/internal/logger"
	"taskBoard/internal/prefs"

	"go.uber.org/zap"
)

func (s *TaskHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := prefs.Load(r.Context(), s.Prefs)
	if err != nil {
		logger.Error("HTTP: Ошибка чтения настроек", err)
		responseWithError(w, r, http.StatusInternalServerError, "не удалось прочитать настройки", nil)
		return
	}
	responseWithBody(w, http.StatusOK, p)
}

func (s *TaskHandler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var p prefs.Preferences
	if !decodeJSON(w, r, &p) {
		return
	}

	if err := p.Validate(); err != nil {
		logger.Warn("HTTP: Ошибка валидации настроек", zap.Error(err))
		responseWithError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if err := prefs.Save(r.Context(), s.Prefs, p); err != nil {
		logger.Error("HTTP: Ошибка сохранения настроек", err)
		responseWithError(w, r, http.StatusInternalServerError, "не удалось сохранить настройки", nil)
		return
	}
	responseWithBody(w, http.StatusOK, p)
}
