package handlers

import (
	"net/http"
	"time"

	"taskBoard/internal/handlers/dto"
	"taskBoard/internal/logger"
	"taskBoard/internal/models/task"
	"taskBoard/internal/prefs"
	"taskBoard/internal/view"

	"go.uber.org/zap"
)

type TaskHandler struct {
	TaskService   TaskService
	Projector     Projector
	Notifications Notifications
	Prefs         prefs.Store
}

func NewTaskHandler(taskService TaskService, projector Projector, notifications Notifications, store prefs.Store) *TaskHandler {
	return &TaskHandler{
		TaskService:   taskService,
		Projector:     projector,
		Notifications: notifications,
		Prefs:         store,
	}
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	checks := map[string]string{"gateway": "ok", "preferences": "ok"}
	code := http.StatusOK
	if err := s.TaskService.HealthCheck(r.Context()); err != nil {
		checks["gateway"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if s.Prefs != nil {
		if err := s.Prefs.HealthCheck(r.Context()); err != nil {
			checks["preferences"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	status := "ok"
	if code != http.StatusOK {
		status = "degraded"
	}
	responseWithJSON(w, code,
		toPayload("status", status),
		toPayload("checks", checks),
		toPayload("time", time.Now().UTC()),
	)
}

// GetTasks отдаёт представление списка из кэша, не дожидаясь загрузки
func (s *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	f, ok := s.parseFilter(w, r)
	if !ok {
		return
	}

	v := s.Projector.ProjectList(f)
	responseWithBody(w, viewStatus(v), dto.FromListView(v))
}

func (s *TaskHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	f, ok := s.parseFilter(w, r)
	if !ok {
		return
	}

	v := s.Projector.ProjectBoard(f)
	responseWithBody(w, viewStatus(v.ListView), dto.FromBoardView(v))
}

func viewStatus(v view.ListView) int {
	switch v.State {
	case view.StatePending:
		return http.StatusAccepted
	case view.StateError:
		if v.Page != nil {
			return http.StatusOK
		}
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

func (s *TaskHandler) parseFilter(w http.ResponseWriter, r *http.Request) (task.Filter, bool) {
	f, err := task.ParseFilter(r.URL.Query())
	if err != nil {
		logger.Warn("HTTP: Ошибка получения параметра",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, r, http.StatusBadRequest, "неверные параметры списка: "+err.Error(), nil)
		return task.Filter{}, false
	}
	return f, true
}

func (s *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	t, err := s.TaskService.Task(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "get_task")
		return
	}
	responseWithBody(w, http.StatusOK, t)
}

func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var draft task.Draft
	if !decodeJSON(w, r, &draft) {
		return
	}

	created, err := s.TaskService.CreateTask(r.Context(), draft)
	if err != nil {
		handleServiceError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.Int64("task_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithBody(w, http.StatusCreated, created)
}

func (s *TaskHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var patch task.Patch
	if !decodeJSON(w, r, &patch) {
		return
	}

	updated, err := s.TaskService.UpdateTask(r.Context(), id, patch)
	if err != nil {
		handleServiceError(w, r, err, "update_task")
		return
	}
	responseWithBody(w, http.StatusOK, updated)
}

func (s *TaskHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req dto.StatusChangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := s.TaskService.ChangeStatus(r.Context(), id, req.TaskStatusID)
	if err != nil {
		handleServiceError(w, r, err, "change_status")
		return
	}
	responseWithBody(w, http.StatusOK, updated)
}

func (s *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.TaskService.DeleteTask(r.Context(), id); err != nil {
		handleServiceError(w, r, err, "delete_task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkDelete отвечает 207, если хотя бы одно удаление не прошло
func (s *TaskHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkDeleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		responseWithError(w, r, http.StatusBadRequest, "список id пуст", map[string]string{"ids": "обязательное поле"})
		return
	}
	for _, id := range req.IDs {
		if id < 1 {
			responseWithError(w, r, http.StatusBadRequest, "id должен быть положительным", map[string]string{"ids": "id должен быть положительным"})
			return
		}
	}

	res := s.TaskService.DeleteTasks(r.Context(), req.IDs)
	code := http.StatusOK
	if len(res.Failed()) > 0 {
		code = http.StatusMultiStatus
	}
	responseWithBody(w, code, dto.FromBulkResult(res))
}

func (s *TaskHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	st, err := s.TaskService.Statistics(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "statistics")
		return
	}
	responseWithBody(w, http.StatusOK, st)
}

func (s *TaskHandler) GetPriorityTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.TaskService.PriorityTypes(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "priority_types")
		return
	}
	responseWithBody(w, http.StatusOK, types)
}

func (s *TaskHandler) GetStatusTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.TaskService.StatusTypes(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "status_types")
		return
	}
	responseWithBody(w, http.StatusOK, types)
}

func (s *TaskHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	responseWithBody(w, http.StatusOK, s.Notifications.List())
}
