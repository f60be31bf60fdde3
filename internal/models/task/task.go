package task

import (
	"fmt"
	"strings"
)

// Task - запись задачи в том виде, в котором её отдаёт удалённый сервис
type Task struct {
	ID                 int64          `json:"id"`
	Title              string         `json:"taskTitle"`
	Description        string         `json:"description,omitempty"`
	CreatedAt          Timestamp      `json:"createDate"`
	LastStatusChangeAt *Timestamp     `json:"lastStatusChangeDate,omitempty"`
	Priority           PriorityType   `json:"priority"`
	Status             TaskStatusType `json:"taskStatus"`
}

type PriorityType struct {
	ID   int64    `json:"id"`
	Type Priority `json:"type"`
}

type TaskStatusType struct {
	ID   int64  `json:"id"`
	Type Status `json:"type"`
}

type Status string
type Priority string

const StatusOpen Status = "OPEN"
const StatusInProgress Status = "IN_PROGRESS"
const StatusHold Status = "HOLD"
const StatusDone Status = "DONE"
const StatusClosed Status = "CLOSED"

const PriorityHigh Priority = "HIGH"
const PriorityMedium Priority = "MEDIUM"
const PriorityLow Priority = "LOW"

// Statuses - все известные статусы в порядке жизненного цикла
var Statuses = []Status{StatusOpen, StatusInProgress, StatusHold, StatusDone, StatusClosed}

func (s Status) Valid() bool {
	for _, st := range Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// Completed - задача считается завершённой
func (s Status) Completed() bool {
	return s == StatusDone
}

// Active - задача считается активной
func (s Status) Active() bool {
	return s == StatusOpen || s == StatusInProgress
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Clone возвращает независимую копию записи
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.LastStatusChangeAt != nil {
		ts := *t.LastStatusChangeAt
		c.LastStatusChangeAt = &ts
	}
	return &c
}

func (t *Task) String() string {
	return fmt.Sprintf("#%d %s [%s/%s]", t.ID, strings.TrimSpace(t.Title), t.Status.Type, t.Priority.Type)
}

// Page - одна страница результатов списка
type Page struct {
	Content          []*Task `json:"content"`
	TotalElements    int64   `json:"totalElements"`
	TotalPages       int     `json:"totalPages"`
	Size             int     `json:"size"`
	Number           int     `json:"number"`
	NumberOfElements int     `json:"numberOfElements"`
	First            bool    `json:"first"`
	Last             bool    `json:"last"`
	Empty            bool    `json:"empty"`
}

// Validate проверяет согласованность полей страницы
func (p *Page) Validate() error {
	if p == nil {
		return fmt.Errorf("пустая страница")
	}
	if len(p.Content) != p.NumberOfElements {
		return fmt.Errorf("numberOfElements=%d не совпадает с размером content=%d", p.NumberOfElements, len(p.Content))
	}
	if p.Size > 0 && p.NumberOfElements > p.Size {
		return fmt.Errorf("numberOfElements=%d больше size=%d", p.NumberOfElements, p.Size)
	}
	return nil
}

// Clone копирует страницу вместе с записями
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	c := *p
	c.Content = make([]*Task, len(p.Content))
	for i, t := range p.Content {
		c.Content[i] = t.Clone()
	}
	return &c
}

// IndexOf возвращает позицию записи на странице или -1
func (p *Page) IndexOf(id int64) int {
	for i, t := range p.Content {
		if t != nil && t.ID == id {
			return i
		}
	}
	return -1
}

// Replace подменяет запись с тем же id, порядок сохраняется
func (p *Page) Replace(t *Task) bool {
	i := p.IndexOf(t.ID)
	if i < 0 {
		return false
	}
	p.Content[i] = t.Clone()
	return true
}

// Without убирает запись со страницы и пересчитывает счётчики
func (p *Page) Without(id int64) bool {
	i := p.IndexOf(id)
	if i < 0 {
		return false
	}
	p.Content = append(p.Content[:i:i], p.Content[i+1:]...)
	p.NumberOfElements = len(p.Content)
	if p.TotalElements > 0 {
		p.TotalElements--
	}
	p.Empty = len(p.Content) == 0
	return true
}

// Statistics - агрегированная сводка по задачам
type Statistics struct {
	TotalTasks      int64              `json:"totalTasks"`
	TasksByStatus   map[Status]int64   `json:"tasksByStatus"`
	TasksByPriority map[Priority]int64 `json:"tasksByPriority"`
	CompletedTasks  int64              `json:"completedTasks"`
	ActiveTasks     int64              `json:"activeTasks"`
}

// Consistent проверяет, что completed + active не превышает total
func (s *Statistics) Consistent() bool {
	if s == nil {
		return false
	}
	if s.TotalTasks < 0 || s.CompletedTasks < 0 || s.ActiveTasks < 0 {
		return false
	}
	return s.CompletedTasks+s.ActiveTasks <= s.TotalTasks
}
