package view

import (
	"taskBoard/internal/cache"
	"taskBoard/internal/models/task"
)

// BoardStatuses - колонки доски в порядке отображения
var BoardStatuses = []task.Status{task.StatusOpen, task.StatusInProgress, task.StatusDone}

type Column struct {
	Status task.Status  `json:"status"`
	Tasks  []*task.Task `json:"tasks"`
}

type Board struct {
	Columns []Column `json:"columns"`
}

// Column возвращает колонку по статусу, для HOLD и CLOSED колонки нет
func (b Board) Column(s task.Status) (Column, bool) {
	for _, c := range b.Columns {
		if c.Status == s {
			return c, true
		}
	}
	return Column{}, false
}

func (b Board) Len() int {
	n := 0
	for _, c := range b.Columns {
		n += len(c.Tasks)
	}
	return n
}

// ProjectBoard раскладывает записи страницы по колонкам с сохранением порядка.
// Записи в HOLD и CLOSED на доску не попадают.
func ProjectBoard(page *task.Page) Board {
	board := Board{Columns: make([]Column, len(BoardStatuses))}
	index := make(map[task.Status]int, len(BoardStatuses))
	for i, s := range BoardStatuses {
		board.Columns[i] = Column{Status: s, Tasks: []*task.Task{}}
		index[s] = i
	}
	if page == nil {
		return board
	}

	for _, t := range page.Content {
		if t == nil {
			continue
		}
		i, ok := index[t.Status.Type]
		if !ok {
			continue
		}
		board.Columns[i].Tasks = append(board.Columns[i].Tasks, t.Clone())
	}
	return board
}

type State string

const (
	StatePending State = "pending"
	StateReady   State = "ready"
	StateError   State = "error"
)

// ListView - состояние списка для отрисовки. Page может быть заполнена и в
// состоянии pending: это устаревшие данные, показываемые до ответа сервиса.
type ListView struct {
	State  State       `json:"state"`
	Filter task.Filter `json:"filter"`
	Page   *task.Page  `json:"page,omitempty"`
	Stale  bool        `json:"stale"`
	Err    error       `json:"-"`
}

type BoardView struct {
	ListView
	Board Board `json:"board"`
}

// Fetcher запускает загрузку списка и сообщает об ошибке последней загрузки
type Fetcher interface {
	Refetch(f task.Filter)
	LastError(key cache.Key) error
}

// Projector строит представления только из содержимого кэша, сам кэш не меняет
type Projector struct {
	cache   *cache.Cache
	fetcher Fetcher
}

func NewProjector(c *cache.Cache, fetcher Fetcher) *Projector {
	return &Projector{cache: c, fetcher: fetcher}
}

func (p *Projector) ProjectList(f task.Filter) ListView {
	f = f.Normalize()
	key := cache.ListKey(f)
	v := ListView{Filter: f}

	page, fr, ok := cache.Value[*task.Page](p.cache, key)
	if ok && fr == cache.Fresh {
		v.State = StateReady
		v.Page = page.Clone()
		return v
	}

	p.fetcher.Refetch(f)

	if ok && fr == cache.Stale {
		v.State = StateReady
		v.Page = page.Clone()
		v.Stale = true
		return v
	}

	if ok {
		v.Page = page.Clone()
		v.Stale = true
	}
	if err := p.fetcher.LastError(key); err != nil {
		v.State = StateError
		v.Err = err
		return v
	}
	v.State = StatePending
	return v
}

func (p *Projector) ProjectBoard(f task.Filter) BoardView {
	lv := p.ProjectList(f)
	return BoardView{ListView: lv, Board: ProjectBoard(lv.Page)}
}
