package service

import (
	"context"
	"fmt"

	"taskBoard/internal/cache"
	"taskBoard/internal/executor"
	"taskBoard/internal/logger"
	"taskBoard/internal/models/task"
	"taskBoard/internal/notify"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// CreateTask проверяет черновик локально и по справочникам, затем создаёт задачу.
// Оптимистичной записи нет: id выдаёт сервер.
func (s *TaskService) CreateTask(ctx context.Context, draft task.Draft) (*task.Task, error) {
	d := draft.Normalized()
	if fe := d.Validate(); fe != nil {
		err := fieldsError(fe)
		s.reject(OpCreate, 0, err)
		return nil, err
	}

	refs, err := s.References(ctx)
	if err != nil {
		s.reject(OpCreate, 0, err)
		return nil, err
	}
	if _, ok := refs.Priority(d.PriorityID); !ok {
		err := NewValidationError("priorityId", fmt.Sprintf("приоритет %d не существует", d.PriorityID))
		s.reject(OpCreate, 0, err)
		return nil, err
	}
	if _, ok := refs.Status(d.TaskStatusID); !ok {
		err := NewValidationError("taskStatusId", fmt.Sprintf("статус %d не существует", d.TaskStatusID))
		s.reject(OpCreate, 0, err)
		return nil, err
	}

	m := s.issue(OpCreate, 0)
	s.advance(m, StateApplying)

	created, err := executor.Mutate(ctx, s.exec, string(OpCreate), func(ctx context.Context) (*task.Task, error) {
		return s.gateway.CreateTask(ctx, d)
	})
	if err != nil {
		s.fail(m, err)
		return nil, err
	}

	s.mtx.Lock()
	s.cache.Put(cache.TaskKey(created.ID), created.Clone(), s.policies.Task)
	s.invalidateDerivedLocked()
	s.mtx.Unlock()

	m.TaskID = created.ID
	s.succeed(m, fmt.Sprintf("Задача «%s» создана", created.Title))
	return created.Clone(), nil
}

func (s *TaskService) UpdateTask(ctx context.Context, id int64, patch task.Patch) (*task.Task, error) {
	return s.update(ctx, OpUpdate, id, patch)
}

// ChangeStatus - частный случай изменения, меняющий только статус
func (s *TaskService) ChangeStatus(ctx context.Context, id int64, statusID int64) (*task.Task, error) {
	if statusID < 1 {
		err := NewValidationError("taskStatusId", "статус обязателен")
		s.reject(OpStatus, id, err)
		return nil, err
	}
	return s.update(ctx, OpStatus, id, task.NewPatch(task.WithStatus(statusID)))
}

func (s *TaskService) update(ctx context.Context, op Op, id int64, patch task.Patch) (*task.Task, error) {
	if id < 1 {
		err := NewValidationError("id", "id должен быть положительным")
		s.reject(op, id, err)
		return nil, err
	}
	if patch.IsEmpty() {
		err := NewValidationError("patch", ErrNoChanges.Error())
		s.reject(op, id, err)
		return nil, err
	}
	if fe := patch.Validate(); fe != nil {
		err := fieldsError(fe)
		s.reject(op, id, err)
		return nil, err
	}

	var refs task.References
	if patch.PriorityID != nil || patch.TaskStatusID != nil {
		var err error
		if refs, err = s.References(ctx); err != nil {
			s.reject(op, id, err)
			return nil, err
		}
		if patch.PriorityID != nil {
			if _, ok := refs.Priority(*patch.PriorityID); !ok {
				err := NewValidationError("priorityId", fmt.Sprintf("приоритет %d не существует", *patch.PriorityID))
				s.reject(op, id, err)
				return nil, err
			}
		}
		if patch.TaskStatusID != nil {
			if _, ok := refs.Status(*patch.TaskStatusID); !ok {
				err := NewValidationError("taskStatusId", fmt.Sprintf("статус %d не существует", *patch.TaskStatusID))
				s.reject(op, id, err)
				return nil, err
			}
		}
	}

	m := s.issue(op, id)
	if err := s.acquire(ctx, id); err != nil {
		s.fail(m, err)
		return nil, err
	}
	defer s.release(id)

	s.mtx.Lock()
	snap := s.takeSnapshotLocked(id)
	if base := snap.base(); base != nil {
		s.applyOptimisticLocked(snap, patch.ApplyTo(base, refs, s.cache.Now()))
	} else {
		s.pending[id] = &pendingWrite{}
	}
	s.mtx.Unlock()
	s.advance(m, StateApplying)

	updated, err := executor.Mutate(ctx, s.exec, string(op), func(ctx context.Context) (*task.Task, error) {
		return s.gateway.UpdateTask(ctx, id, patch)
	})
	if err != nil {
		s.rollback(snap)
		if executor.KindOf(err) == executor.KindNotFound {
			s.evict(id)
		}
		s.fail(m, err)
		return nil, err
	}

	s.commit(id, updated)
	s.succeed(m, fmt.Sprintf("Задача «%s» обновлена", updated.Title))
	return updated.Clone(), nil
}

// DeleteTask сразу убирает запись из кэша. При ошибке снимок не
// восстанавливается: запись и затронутые страницы перечитываются с сервера.
func (s *TaskService) DeleteTask(ctx context.Context, id int64) error {
	if id < 1 {
		err := NewValidationError("id", "id должен быть положительным")
		s.reject(OpDelete, id, err)
		return err
	}

	m := s.issue(OpDelete, id)
	if err := s.acquire(ctx, id); err != nil {
		s.fail(m, err)
		return err
	}
	defer s.release(id)

	s.mtx.Lock()
	snap := s.takeSnapshotLocked(id)
	touched := snap.pageKeys()
	s.pending[id] = &pendingWrite{deleted: true}
	s.cache.Remove(cache.TaskKey(id))
	for _, k := range touched {
		s.patchPageLocked(k, func(p *task.Page) bool { return p.Without(id) })
	}
	s.mtx.Unlock()
	s.advance(m, StateApplying)

	err := s.exec.Write(ctx, string(OpDelete), func(ctx context.Context) error {
		return s.gateway.DeleteTask(ctx, id)
	})
	if err != nil {
		s.mtx.Lock()
		delete(s.pending, id)
		s.mtx.Unlock()

		if executor.KindOf(err) == executor.KindNotFound {
			s.evict(id, touched...)
		} else {
			s.reconcile(id, touched)
		}
		s.fail(m, err)
		return err
	}

	s.mtx.Lock()
	delete(s.pending, id)
	s.forgetLocked(id)
	s.invalidateDerivedLocked()
	s.mtx.Unlock()

	s.succeed(m, fmt.Sprintf("Задача %d удалена", id))
	return nil
}

// DeleteTasks удаляет задачи независимо друг от друга, итог - по каждому id
func (s *TaskService) DeleteTasks(ctx context.Context, ids []int64) BulkResult {
	seen := make(map[int64]bool, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	res := BulkResult{Outcomes: make([]Outcome, len(unique))}
	p := pool.New().WithMaxGoroutines(s.bulkConcurrency)
	for i, id := range unique {
		p.Go(func() {
			res.Outcomes[i] = Outcome{ID: id, Err: s.DeleteTask(ctx, id)}
		})
	}
	p.Wait()

	logger.Info("Service: Пакетное удаление завершено",
		zap.Int("requested", len(unique)),
		zap.Int("failed", len(res.Failed())))
	return res
}

func (s *TaskService) advance(m *Mutation, to MutationState) {
	if err := m.transition(to); err != nil {
		logger.Error("Service: Ошибка состояния мутации", err)
		return
	}
	s.observe(m)
}

func (s *TaskService) observe(m *Mutation) {
	if s.observer != nil {
		s.observer(*m)
	}
}

func (s *TaskService) fail(m *Mutation, err error) {
	m.Error = err.Error()
	s.advance(m, StateRolledBack)

	logger.Warn("Service: Мутация отменена",
		zap.String("mutation_id", m.ID),
		zap.String("op", string(m.Op)),
		zap.Int64("task_id", m.TaskID),
		zap.String("kind", string(executor.KindOf(err))),
		zap.Error(err))
	s.notifyError(m.Op, m.TaskID, err)
}

func (s *TaskService) succeed(m *Mutation, message string) {
	s.advance(m, StateCommitted)

	logger.Info("Service: Мутация подтверждена",
		zap.String("mutation_id", m.ID),
		zap.String("op", string(m.Op)),
		zap.Int64("task_id", m.TaskID))
	s.notifier.Notify(notify.New(notify.LevelSuccess, string(m.Op), m.TaskID, message))
}

// reject - мутация отклонена до отправки запроса
func (s *TaskService) reject(op Op, id int64, err error) {
	logger.Info("Service: Мутация отклонена до отправки",
		zap.String("op", string(op)),
		zap.Int64("task_id", id),
		zap.Error(err))
	s.notifyError(op, id, err)
}

func (s *TaskService) notifyError(op Op, id int64, err error) {
	n := notify.New(notify.LevelError, string(op), id, userMessage(err))
	n.ErrorKey = string(executor.KindOf(err))
	s.notifier.Notify(n)
}

func userMessage(err error) string {
	switch executor.KindOf(err) {
	case executor.KindValidation:
		return "Проверьте введённые данные: " + executor.Classify(err).Message
	case executor.KindNotFound:
		return "Задача не найдена, возможно она уже удалена"
	case executor.KindNetwork:
		return "Сервис недоступен, попробуйте ещё раз"
	case executor.KindServer:
		return "Ошибка сервиса, попробуйте ещё раз"
	default:
		return "Не удалось выполнить операцию"
	}
}
