package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskBoard/internal/cache"
	"taskBoard/internal/executor"
	"taskBoard/internal/gateway"
	"taskBoard/internal/models/task"
	"taskBoard/internal/notify"
	"taskBoard/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockGateway - мок удалённого сервиса задач
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) ListTasks(ctx context.Context, f task.Filter) (*task.Page, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Page), args.Error(1)
}

func (m *MockGateway) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockGateway) CreateTask(ctx context.Context, d task.Draft) (*task.Task, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockGateway) UpdateTask(ctx context.Context, id int64, p task.Patch) (*task.Task, error) {
	args := m.Called(ctx, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockGateway) DeleteTask(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGateway) Statistics(ctx context.Context) (*task.Statistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Statistics), args.Error(1)
}

func (m *MockGateway) PriorityTypes(ctx context.Context) ([]task.PriorityType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]task.PriorityType), args.Error(1)
}

func (m *MockGateway) StatusTypes(ctx context.Context) ([]task.TaskStatusType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]task.TaskStatusType), args.Error(1)
}

var _ service.Gateway = (*MockGateway)(nil)

var (
	priorities = []task.PriorityType{
		{ID: 1, Type: task.PriorityHigh},
		{ID: 2, Type: task.PriorityMedium},
		{ID: 3, Type: task.PriorityLow},
	}
	statuses = []task.TaskStatusType{
		{ID: 1, Type: task.StatusOpen},
		{ID: 2, Type: task.StatusInProgress},
		{ID: 3, Type: task.StatusHold},
		{ID: 4, Type: task.StatusDone},
		{ID: 5, Type: task.StatusClosed},
	}
)

const doneID = 4

func (m *MockGateway) withReferences() *MockGateway {
	m.On("PriorityTypes", mock.Anything).Return(priorities, nil).Maybe()
	m.On("StatusTypes", mock.Anything).Return(statuses, nil).Maybe()
	return m
}

func newTask(id int64, title string, status task.Status) *task.Task {
	st, _ := task.References{Statuses: statuses}.StatusByType(status)
	return &task.Task{
		ID:        id,
		Title:     title,
		CreatedAt: task.NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		Priority:  priorities[1],
		Status:    st,
	}
}

func pageOf(tasks ...*task.Task) *task.Page {
	return &task.Page{
		Content:          tasks,
		TotalElements:    int64(len(tasks)),
		TotalPages:       1,
		Size:             task.DefaultPageSize,
		NumberOfElements: len(tasks),
		First:            true,
		Last:             true,
		Empty:            len(tasks) == 0,
	}
}

func serverError() error {
	return &gateway.ResponseError{StatusCode: 500, Method: "PUT", Path: "/tasks"}
}

func notFoundError() error {
	return &gateway.ResponseError{StatusCode: 404, Method: "GET", Path: "/tasks"}
}

type fakeClock struct {
	mtx sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mtx.Lock()
	c.now = c.now.Add(d)
	c.mtx.Unlock()
}

type fixture struct {
	svc       *service.TaskService
	cache     *cache.Cache
	clock     *fakeClock
	journal   *notify.Journal
	mutations *mutationLog
}

type mutationLog struct {
	mtx   sync.Mutex
	items []service.Mutation
}

func (l *mutationLog) record(m service.Mutation) {
	l.mtx.Lock()
	l.items = append(l.items, m)
	l.mtx.Unlock()
}

func (l *mutationLog) states(op service.Op) []service.MutationState {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	var out []service.MutationState
	for _, m := range l.items {
		if m.Op == op {
			out = append(out, m.State)
		}
	}
	return out
}

func newFixture(gw service.Gateway, options ...service.Option) *fixture {
	clock := newFakeClock()
	c := cache.New(cache.WithClock(clock.Now))
	journal := notify.NewJournal(50)
	log := &mutationLog{}
	ex := executor.New(executor.DefaultConfig(), executor.WithSleeper(func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	}))

	opts := append([]service.Option{
		service.WithNotifier(journal),
		service.WithMutationObserver(log.record),
	}, options...)

	return &fixture{
		svc:       service.NewTaskService(gw, ex, c, opts...),
		cache:     c,
		clock:     clock,
		journal:   journal,
		mutations: log,
	}
}

// fakeGateway - сервис задач в памяти с управляемыми сбоями
type fakeGateway struct {
	mtx        sync.Mutex
	tasks      map[int64]*task.Task
	nextID     int64
	failDelete map[int64]error
	calls      map[string]int
}

func newFakeGateway(tasks ...*task.Task) *fakeGateway {
	g := &fakeGateway{
		tasks:      make(map[int64]*task.Task),
		failDelete: make(map[int64]error),
		calls:      make(map[string]int),
	}
	for _, t := range tasks {
		g.tasks[t.ID] = t.Clone()
		if t.ID > g.nextID {
			g.nextID = t.ID
		}
	}
	return g
}

func (g *fakeGateway) count(name string) int {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.calls[name]
}

func (g *fakeGateway) ListTasks(ctx context.Context, f task.Filter) (*task.Page, error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	g.calls["ListTasks"]++

	ids := make([]int64, 0, len(g.tasks))
	for id := range g.tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var content []*task.Task
	for _, id := range ids {
		if f.StatusID > 0 && g.tasks[id].Status.ID != f.StatusID {
			continue
		}
		content = append(content, g.tasks[id].Clone())
	}
	if len(content) > f.Size {
		content = content[:f.Size]
	}
	return pageOf(content...), nil
}

func (g *fakeGateway) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	g.calls["GetTask"]++

	t, ok := g.tasks[id]
	if !ok {
		return nil, notFoundError()
	}
	return t.Clone(), nil
}

func (g *fakeGateway) CreateTask(ctx context.Context, d task.Draft) (*task.Task, error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	g.calls["CreateTask"]++

	g.nextID++
	refs := task.References{Priorities: priorities, Statuses: statuses}
	pr, _ := refs.Priority(d.PriorityID)
	st, _ := refs.Status(d.TaskStatusID)
	t := &task.Task{ID: g.nextID, Title: d.Title, Description: d.Description, Priority: pr, Status: st}
	g.tasks[t.ID] = t
	return t.Clone(), nil
}

func (g *fakeGateway) UpdateTask(ctx context.Context, id int64, p task.Patch) (*task.Task, error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	g.calls["UpdateTask"]++

	t, ok := g.tasks[id]
	if !ok {
		return nil, notFoundError()
	}
	updated := p.ApplyTo(t, task.References{Priorities: priorities, Statuses: statuses}, time.Now())
	g.tasks[id] = updated
	return updated.Clone(), nil
}

func (g *fakeGateway) DeleteTask(ctx context.Context, id int64) error {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	g.calls["DeleteTask"]++

	if err, ok := g.failDelete[id]; ok {
		return err
	}
	if _, ok := g.tasks[id]; !ok {
		return notFoundError()
	}
	delete(g.tasks, id)
	return nil
}

func (g *fakeGateway) Statistics(ctx context.Context) (*task.Statistics, error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	g.calls["Statistics"]++

	st := &task.Statistics{
		TasksByStatus:   map[task.Status]int64{},
		TasksByPriority: map[task.Priority]int64{},
	}
	for _, t := range g.tasks {
		st.TotalTasks++
		st.TasksByStatus[t.Status.Type]++
		st.TasksByPriority[t.Priority.Type]++
		if t.Status.Type.Completed() {
			st.CompletedTasks++
		}
		if t.Status.Type.Active() {
			st.ActiveTasks++
		}
	}
	return st, nil
}

func (g *fakeGateway) PriorityTypes(ctx context.Context) ([]task.PriorityType, error) {
	return priorities, nil
}

func (g *fakeGateway) StatusTypes(ctx context.Context) ([]task.TaskStatusType, error) {
	return statuses, nil
}

var _ service.Gateway = (*fakeGateway)(nil)
