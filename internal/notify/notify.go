package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification - сообщение для пользователя об итоге операции
type Notification struct {
	ID       string    `json:"id"`
	Level    Level     `json:"level"`
	Op       string    `json:"op"`
	TaskID   int64     `json:"taskId,omitempty"`
	Message  string    `json:"message"`
	ErrorKey string    `json:"errorKind,omitempty"`
	At       time.Time `json:"at"`
}

func New(level Level, op string, taskID int64, message string) Notification {
	return Notification{
		ID:      uuid.New().String(),
		Level:   level,
		Op:      op,
		TaskID:  taskID,
		Message: message,
		At:      time.Now().UTC(),
	}
}

type Notifier interface {
	Notify(n Notification)
}

// Journal хранит последние уведомления в пределах limit
type Journal struct {
	items []Notification
	limit int
	mtx   *sync.RWMutex
}

func NewJournal(limit int) *Journal {
	if limit <= 0 {
		limit = 100
	}
	return &Journal{
		items: make([]Notification, 0, limit),
		limit: limit,
		mtx:   &sync.RWMutex{},
	}
}

func (j *Journal) Notify(n Notification) {
	j.mtx.Lock()
	defer j.mtx.Unlock()

	if len(j.items) == j.limit {
		copy(j.items, j.items[1:])
		j.items = j.items[:len(j.items)-1]
	}
	j.items = append(j.items, n)
}

// List возвращает уведомления от новых к старым
func (j *Journal) List() []Notification {
	j.mtx.RLock()
	defer j.mtx.RUnlock()

	out := make([]Notification, len(j.items))
	for i, n := range j.items {
		out[len(j.items)-1-i] = n
	}
	return out
}

func (j *Journal) Errors() []Notification {
	var out []Notification
	for _, n := range j.List() {
		if n.Level == LevelError {
			out = append(out, n)
		}
	}
	return out
}

// Multi рассылает уведомление всем получателям
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, nt := range m {
		if nt != nil {
			nt.Notify(n)
		}
	}
}

// Func позволяет использовать функцию как Notifier
type Func func(Notification)

func (f Func) Notify(n Notification) {
	f(n)
}
