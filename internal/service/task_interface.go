package service

import (
	"context"

	"taskBoard/internal/models/task"
)

// Gateway - удалённый сервис задач
type Gateway interface {
	ListTasks(ctx context.Context, f task.Filter) (*task.Page, error)
	GetTask(ctx context.Context, id int64) (*task.Task, error)
	CreateTask(ctx context.Context, d task.Draft) (*task.Task, error)
	UpdateTask(ctx context.Context, id int64, p task.Patch) (*task.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	Statistics(ctx context.Context) (*task.Statistics, error)
	PriorityTypes(ctx context.Context) ([]task.PriorityType, error)
	StatusTypes(ctx context.Context) ([]task.TaskStatusType, error)
}
