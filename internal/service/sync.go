package service

import (
	"context"

	"taskBoard/internal/cache"
	"taskBoard/internal/executor"
	"taskBoard/internal/logger"
	"taskBoard/internal/models/task"

	"go.uber.org/zap"
)

// pendingWrite - оптимистичное значение записи, пока мутация не завершилась
type pendingWrite struct {
	task    *task.Task
	deleted bool
}

// snapshot - записи кэша до оптимистичного изменения
type snapshot struct {
	id          int64
	taskEntry   cache.Entry
	taskExisted bool
	pages       map[cache.Key]cache.Entry
}

func (snap snapshot) base() *task.Task {
	if snap.taskExisted {
		if t, ok := snap.taskEntry.Value.(*task.Task); ok {
			return t
		}
	}
	for _, e := range snap.pages {
		p := e.Value.(*task.Page)
		if i := p.IndexOf(snap.id); i >= 0 {
			return p.Content[i]
		}
	}
	return nil
}

func (snap snapshot) pageKeys() []cache.Key {
	keys := make([]cache.Key, 0, len(snap.pages))
	for k := range snap.pages {
		keys = append(keys, k)
	}
	return keys
}

// issue регистрирует мутацию в порядке выдачи. Номер берётся из общего
// счётчика, поэтому после forget номер записи не повторяется.
func (s *TaskService) issue(op Op, id int64) *Mutation {
	s.mtx.Lock()
	s.epoch++
	var seq uint64
	if id != 0 {
		s.issued++
		s.seq[id] = s.issued
		seq = s.issued
	}
	s.mtx.Unlock()

	m := newMutation(op, id, seq)
	s.observe(m)
	return m
}

// slot - очередь мутаций одной записи; refs считает владельца и ожидающих
type slot struct {
	ch   chan struct{}
	refs int
}

// acquire ждёт, пока предыдущая мутация той же записи завершится
func (s *TaskService) acquire(ctx context.Context, id int64) error {
	s.mtx.Lock()
	sl, ok := s.slots[id]
	if !ok {
		sl = &slot{ch: make(chan struct{}, 1)}
		s.slots[id] = sl
	}
	sl.refs++
	s.mtx.Unlock()

	select {
	case sl.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		s.mtx.Lock()
		s.dropSlotLocked(id, sl)
		s.mtx.Unlock()
		return executor.Classify(ctx.Err())
	}
}

func (s *TaskService) release(id int64) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	sl := s.slots[id]
	<-sl.ch
	s.dropSlotLocked(id, sl)
}

func (s *TaskService) dropSlotLocked(id int64, sl *slot) {
	sl.refs--
	if sl.refs == 0 {
		delete(s.slots, id)
	}
}

// forgetLocked убирает учёт удалённой записи, если её не ждут другие мутации.
// Вызывается владельцем слота.
func (s *TaskService) forgetLocked(id int64) {
	if sl, ok := s.slots[id]; ok && sl.refs > 1 {
		return
	}
	delete(s.seq, id)
}

func (s *TaskService) takeSnapshotLocked(id int64) snapshot {
	snap := snapshot{id: id, pages: make(map[cache.Key]cache.Entry)}
	snap.taskEntry, snap.taskExisted = s.cache.Get(cache.TaskKey(id))

	for _, k := range s.cache.Keys(cache.AllLists()) {
		e, ok := s.cache.Get(k)
		if !ok {
			continue
		}
		if p, ok := e.Value.(*task.Page); ok && p.IndexOf(id) >= 0 {
			snap.pages[k] = e
		}
	}
	return snap
}

// patchPageLocked меняет копию страницы, время получения сохраняется
func (s *TaskService) patchPageLocked(key cache.Key, fn func(p *task.Page) bool) {
	e, ok := s.cache.Get(key)
	if !ok {
		return
	}
	p, ok := e.Value.(*task.Page)
	if !ok {
		return
	}
	c := p.Clone()
	if fn(c) {
		s.cache.Replace(key, c)
	}
}

func (s *TaskService) applyOptimisticLocked(snap snapshot, updated *task.Task) {
	s.pending[snap.id] = &pendingWrite{task: updated.Clone()}
	s.cache.Put(cache.TaskKey(snap.id), updated.Clone(), s.policies.Task)
	for k := range snap.pages {
		s.patchPageLocked(k, func(p *task.Page) bool { return p.Replace(updated) })
	}
}

// rollback возвращает кэш к снимку. Страницы, перезагруженные за время
// мутации, не заменяются целиком: в них возвращается только сама запись.
func (s *TaskService) rollback(snap snapshot) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.pending, snap.id)
	s.cache.Restore(cache.TaskKey(snap.id), snap.taskEntry, snap.taskExisted)

	for k, prev := range snap.pages {
		cur, ok := s.cache.Get(k)
		if !ok {
			continue
		}
		if cur.FetchedAt.Equal(prev.FetchedAt) && cur.Invalidated == prev.Invalidated {
			s.cache.Restore(k, prev, true)
			continue
		}
		prevPage := prev.Value.(*task.Page)
		original := prevPage.Content[prevPage.IndexOf(snap.id)]
		s.patchPageLocked(k, func(p *task.Page) bool { return p.Replace(original) })
	}
}

// commit записывает ответ сервиса и инвалидирует зависимые ключи
func (s *TaskService) commit(id int64, result *task.Task) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.pending, id)
	s.cache.Put(cache.TaskKey(id), result.Clone(), s.policies.Task)
	for _, k := range s.cache.Keys(cache.AllLists()) {
		s.patchPageLocked(k, func(p *task.Page) bool { return p.Replace(result) })
	}
	s.invalidateDerivedLocked()
}

func (s *TaskService) invalidateDerivedLocked() int {
	s.epoch++
	return s.cache.Invalidate(cache.Any(cache.AllLists(), cache.Exact(cache.KeyStatistics)))
}

// overlayLocked накладывает незавершённые оптимистичные изменения на пришедшую страницу
func (s *TaskService) overlayLocked(p *task.Page) *task.Page {
	if len(s.pending) == 0 {
		return p
	}
	out := p.Clone()
	for id, pw := range s.pending {
		switch {
		case pw.deleted:
			out.Without(id)
		case pw.task != nil:
			out.Replace(pw.task)
		}
	}
	return out
}

// evict убирает исчезнувшую на сервере запись и обновляет списки.
// known - страницы, из которых запись уже убрана оптимистично.
func (s *TaskService) evict(id int64, known ...cache.Key) {
	s.mtx.Lock()
	s.cache.Remove(cache.TaskKey(id))
	touched := append([]cache.Key(nil), known...)
	seen := make(map[cache.Key]bool, len(known))
	for _, k := range known {
		seen[k] = true
	}
	for _, k := range s.cache.Keys(cache.AllLists()) {
		hit := false
		s.patchPageLocked(k, func(p *task.Page) bool {
			hit = p.Without(id)
			return hit
		})
		if hit && !seen[k] {
			touched = append(touched, k)
		}
	}
	s.invalidateDerivedLocked()
	s.mtx.Unlock()

	logger.Info("Service: Запись удалена из кэша", zap.Int64("task_id", id), zap.Int("pages", len(touched)))
	for _, k := range touched {
		s.refetchKey(k)
	}
}

func (s *TaskService) refetchKey(key cache.Key) {
	f, err := key.Filter()
	if err != nil {
		logger.Warn("Service: Ключ списка не разобран", zap.String("key", string(key)), zap.Error(err))
		return
	}
	s.Refetch(f)
}

// reconcile после неудачного удаления перечитывает запись и списки
func (s *TaskService) reconcile(id int64, touched []cache.Key) {
	ctx := s.baseCtx

	s.mtx.Lock()
	for _, k := range touched {
		s.cache.Invalidate(cache.Exact(k))
	}
	s.mtx.Unlock()

	if _, err := fetch(ctx, s, cache.TaskKey(id), s.taskLoader(id)); err != nil {
		logger.Warn("Service: Не удалось перечитать запись после ошибки удаления",
			zap.Int64("task_id", id), zap.Error(err))
	}

	// запись была только под своим ключом: перечитывается список по умолчанию
	if len(touched) == 0 {
		touched = []cache.Key{cache.ListKey(task.NewFilter())}
	}
	for _, k := range touched {
		f, err := k.Filter()
		if err != nil {
			continue
		}
		if _, err := fetch(ctx, s, k, s.listLoader(f)); err != nil {
			logger.Warn("Service: Не удалось перечитать страницу после ошибки удаления",
				zap.String("key", string(k)), zap.Error(err))
		}
	}
}
