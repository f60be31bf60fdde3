package service

import (
	"errors"
	"fmt"

	"taskBoard/internal/executor"
	"taskBoard/internal/models/task"

	"go.uber.org/multierr"
)

var ErrNoChanges = errors.New("нет изменений")

func NewValidationError(field, reason string) *executor.Error {
	e := executor.NewValidationError(map[string]string{field: reason})
	e.Message = fmt.Sprintf("Неверное значение поля '%s': %s", field, reason)
	return e
}

func fieldsError(fe task.FieldErrors) *executor.Error {
	if len(fe) == 1 {
		for field, reason := range fe {
			return NewValidationError(field, reason)
		}
	}
	return executor.NewValidationError(fe)
}

// Outcome - итог удаления одной задачи в пакетной операции
type Outcome struct {
	ID  int64 `json:"id"`
	Err error `json:"-"`
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// BulkResult - итоги пакетного удаления по каждому id, в порядке запроса
type BulkResult struct {
	Outcomes []Outcome
}

func (r BulkResult) Succeeded() []int64 {
	var out []int64
	for _, o := range r.Outcomes {
		if o.OK() {
			out = append(out, o.ID)
		}
	}
	return out
}

func (r BulkResult) Failed() []int64 {
	var out []int64
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o.ID)
		}
	}
	return out
}

// Err объединяет ошибки всех неудачных удалений
func (r BulkResult) Err() error {
	var err error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			err = multierr.Append(err, fmt.Errorf("задача %d: %w", o.ID, o.Err))
		}
	}
	return err
}
