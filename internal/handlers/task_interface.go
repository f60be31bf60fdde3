package handlers

import (
	"context"

	"taskBoard/internal/models/task"
	"taskBoard/internal/notify"
	"taskBoard/internal/service"
	"taskBoard/internal/view"
)

type TaskService interface {
	HealthCheck(ctx context.Context) error
	Task(ctx context.Context, id int64) (*task.Task, error)
	CreateTask(ctx context.Context, draft task.Draft) (*task.Task, error)
	UpdateTask(ctx context.Context, id int64, patch task.Patch) (*task.Task, error)
	ChangeStatus(ctx context.Context, id int64, statusID int64) (*task.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	DeleteTasks(ctx context.Context, ids []int64) service.BulkResult
	Statistics(ctx context.Context) (*task.Statistics, error)
	PriorityTypes(ctx context.Context) ([]task.PriorityType, error)
	StatusTypes(ctx context.Context) ([]task.TaskStatusType, error)
}

type Projector interface {
	ProjectList(f task.Filter) view.ListView
	ProjectBoard(f task.Filter) view.BoardView
}

type Notifications interface {
	List() []notify.Notification
}

var (
	_ TaskService   = (*service.TaskService)(nil)
	_ Projector     = (*view.Projector)(nil)
	_ Notifications = (*notify.Journal)(nil)
)
