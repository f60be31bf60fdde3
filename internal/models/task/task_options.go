package task

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	TitleMaxLength       = 255
	DescriptionMaxLength = 1000
	SearchTermMaxLength  = 100

	DefaultPageSize      = 5
	DefaultSortBy        = "createDate"
	DefaultSortDirection = SortDesc
)

// PageSizes - допустимые размеры страницы
var PageSizes = []int{5, 10, 25, 50}

type SortDirection string

const SortAsc SortDirection = "ASC"
const SortDesc SortDirection = "DESC"

// Filter - набор параметров, определяющий одну страницу списка
type Filter struct {
	Page          int           `json:"page"`
	Size          int           `json:"size"`
	SortBy        string        `json:"sortBy"`
	SortDirection SortDirection `json:"sortDirection"`
	StatusID      int64         `json:"statusId,omitempty"`
	PriorityID    int64         `json:"priorityId,omitempty"`
	SearchTerm    string        `json:"searchTerm,omitempty"`
}

// FilterOption настраивает фильтр
type FilterOption func(*Filter)

func WithPage(page int) FilterOption {
	return func(f *Filter) {
		f.Page = page
	}
}

func WithSize(size int) FilterOption {
	return func(f *Filter) {
		f.Size = size
	}
}

func WithSort(by string, direction SortDirection) FilterOption {
	return func(f *Filter) {
		f.SortBy = by
		f.SortDirection = direction
	}
}

func WithStatusID(id int64) FilterOption {
	return func(f *Filter) {
		f.StatusID = id
	}
}

func WithPriorityID(id int64) FilterOption {
	return func(f *Filter) {
		f.PriorityID = id
	}
}

func WithSearch(term string) FilterOption {
	return func(f *Filter) {
		f.SearchTerm = term
	}
}

// NewFilter собирает фильтр из опций и приводит его к каноническому виду
func NewFilter(options ...FilterOption) Filter {
	var f Filter
	for _, opt := range options {
		if opt != nil {
			opt(&f)
		}
	}
	return f.Normalize()
}

// Normalize подставляет значения по умолчанию
func (f Filter) Normalize() Filter {
	if f.Page < 0 {
		f.Page = 0
	}
	if f.Size <= 0 {
		f.Size = DefaultPageSize
	}
	if f.SortBy == "" {
		f.SortBy = DefaultSortBy
	}
	f.SortDirection = SortDirection(strings.ToUpper(string(f.SortDirection)))
	if f.SortDirection != SortAsc {
		f.SortDirection = SortDesc
	}
	if f.StatusID < 0 {
		f.StatusID = 0
	}
	if f.PriorityID < 0 {
		f.PriorityID = 0
	}
	f.SearchTerm = strings.TrimSpace(f.SearchTerm)
	return f
}

// IsFiltered - задан хотя бы один критерий отбора
func (f Filter) IsFiltered() bool {
	return f.StatusID > 0 || f.PriorityID > 0 || f.SearchTerm != ""
}

// Validate проверяет параметры, которые сервис отвергнет
func (f Filter) Validate() error {
	if utf8.RuneCountInString(f.SearchTerm) > SearchTermMaxLength {
		return fmt.Errorf("searchTerm длиннее %d символов", SearchTermMaxLength)
	}
	return nil
}

// Values кодирует фильтр в параметры запроса
func (f Filter) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(f.Page))
	v.Set("size", strconv.Itoa(f.Size))
	v.Set("sortBy", f.SortBy)
	v.Set("sortDirection", string(f.SortDirection))
	if f.StatusID > 0 {
		v.Set("statusId", strconv.FormatInt(f.StatusID, 10))
	}
	if f.PriorityID > 0 {
		v.Set("priorityId", strconv.FormatInt(f.PriorityID, 10))
	}
	if f.SearchTerm != "" {
		v.Set("searchTerm", f.SearchTerm)
	}
	return v
}

// ParseFilter разбирает параметры запроса в фильтр
func ParseFilter(v url.Values) (Filter, error) {
	var f Filter
	var err error

	if f.Page, err = intParam(v, "page"); err != nil {
		return Filter{}, err
	}
	if f.Size, err = intParam(v, "size"); err != nil {
		return Filter{}, err
	}
	status, err := intParam(v, "statusId")
	if err != nil {
		return Filter{}, err
	}
	priority, err := intParam(v, "priorityId")
	if err != nil {
		return Filter{}, err
	}
	f.StatusID = int64(status)
	f.PriorityID = int64(priority)
	f.SortBy = v.Get("sortBy")
	f.SortDirection = SortDirection(v.Get("sortDirection"))
	f.SearchTerm = v.Get("searchTerm")

	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func intParam(v url.Values, name string) (int, error) {
	raw := v.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("параметр %s: %w", name, err)
	}
	return n, nil
}

// Draft - данные для создания задачи
type Draft struct {
	Title        string `json:"taskTitle"`
	Description  string `json:"description,omitempty"`
	PriorityID   int64  `json:"priorityId"`
	TaskStatusID int64  `json:"taskStatusId"`
}

// FieldErrors - ошибки валидации по полям
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for field, reason := range fe {
		parts = append(parts, field+": "+reason)
	}
	return strings.Join(parts, "; ")
}

// Validate проверяет черновик без обращения к справочникам
func (d *Draft) Validate() FieldErrors {
	errs := FieldErrors{}
	validateTitle(errs, d.Title)
	validateDescription(errs, d.Description)
	if d.PriorityID < 1 {
		errs["priorityId"] = "приоритет обязателен"
	}
	if d.TaskStatusID < 1 {
		errs["taskStatusId"] = "статус обязателен"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Normalized возвращает черновик с обрезанными пробелами
func (d Draft) Normalized() Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	return d
}

// Patch - частичное изменение задачи, nil поля не меняются
type Patch struct {
	Title        *string `json:"taskTitle,omitempty"`
	Description  *string `json:"description,omitempty"`
	PriorityID   *int64  `json:"priorityId,omitempty"`
	TaskStatusID *int64  `json:"taskStatusId,omitempty"`
}

type PatchOption func(*Patch)

func WithTitle(title string) PatchOption {
	return func(p *Patch) {
		p.Title = &title
	}
}

func WithDescription(description string) PatchOption {
	return func(p *Patch) {
		p.Description = &description
	}
}

func WithPriority(id int64) PatchOption {
	if id < 1 {
		return nil
	}
	return func(p *Patch) {
		p.PriorityID = &id
	}
}

func WithStatus(id int64) PatchOption {
	if id < 1 {
		return nil
	}
	return func(p *Patch) {
		p.TaskStatusID = &id
	}
}

func NewPatch(options ...PatchOption) Patch {
	var p Patch
	for _, opt := range options {
		if opt != nil {
			opt(&p)
		}
	}
	return p
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.PriorityID == nil && p.TaskStatusID == nil
}

func (p Patch) Validate() FieldErrors {
	errs := FieldErrors{}
	if p.Title != nil {
		validateTitle(errs, *p.Title)
	}
	if p.Description != nil {
		validateDescription(errs, *p.Description)
	}
	if p.PriorityID != nil && *p.PriorityID < 1 {
		errs["priorityId"] = "некорректный приоритет"
	}
	if p.TaskStatusID != nil && *p.TaskStatusID < 1 {
		errs["taskStatusId"] = "некорректный статус"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// References - справочники для разрешения id в типы
type References struct {
	Priorities []PriorityType
	Statuses   []TaskStatusType
}

func (r References) Priority(id int64) (PriorityType, bool) {
	for _, p := range r.Priorities {
		if p.ID == id {
			return p, true
		}
	}
	return PriorityType{}, false
}

func (r References) Status(id int64) (TaskStatusType, bool) {
	for _, s := range r.Statuses {
		if s.ID == id {
			return s, true
		}
	}
	return TaskStatusType{}, false
}

// StatusByType ищет id статуса по его названию
func (r References) StatusByType(st Status) (TaskStatusType, bool) {
	for _, s := range r.Statuses {
		if s.Type == st {
			return s, true
		}
	}
	return TaskStatusType{}, false
}

// ApplyTo возвращает копию записи с применённым изменением.
// Смена статуса проставляет время последней смены статуса.
func (p Patch) ApplyTo(t *Task, refs References, now time.Time) *Task {
	out := t.Clone()
	if p.Title != nil {
		out.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		out.Description = strings.TrimSpace(*p.Description)
	}
	if p.PriorityID != nil && *p.PriorityID != out.Priority.ID {
		out.Priority = PriorityType{ID: *p.PriorityID}
		if pr, ok := refs.Priority(*p.PriorityID); ok {
			out.Priority = pr
		}
	}
	if p.TaskStatusID != nil && *p.TaskStatusID != out.Status.ID {
		out.Status = TaskStatusType{ID: *p.TaskStatusID}
		if st, ok := refs.Status(*p.TaskStatusID); ok {
			out.Status = st
		}
		ts := NewTimestamp(now)
		out.LastStatusChangeAt = &ts
	}
	return out
}

func validateTitle(errs FieldErrors, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		errs["taskTitle"] = "название не может быть пустым"
		return
	}
	if utf8.RuneCountInString(title) > TitleMaxLength {
		errs["taskTitle"] = fmt.Sprintf("название длиннее %d символов", TitleMaxLength)
	}
}

func validateDescription(errs FieldErrors, description string) {
	if utf8.RuneCountInString(strings.TrimSpace(description)) > DescriptionMaxLength {
		errs["description"] = fmt.Sprintf("описание длиннее %d символов", DescriptionMaxLength)
	}
}
