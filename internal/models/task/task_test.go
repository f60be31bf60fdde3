package task_test

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"taskBoard/internal/models/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTimestamp_UnmarshalJSON тестирует разбор времени в разных форматах
func TestTimestamp_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{
			name:     "success - local date time without zone",
			input:    `"2024-03-01T10:15:30"`,
			expected: time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC),
		},
		{
			name:     "success - local date time with fraction",
			input:    `"2024-03-01T10:15:30.123456"`,
			expected: time.Date(2024, 3, 1, 10, 15, 30, 123456000, time.UTC),
		},
		{
			name:     "success - rfc3339 with offset",
			input:    `"2024-03-01T12:15:30+02:00"`,
			expected: time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC),
		},
		{
			name:  "success - null",
			input: `null`,
		},
		{
			name:    "error - garbage",
			input:   `"yesterday"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts task.Timestamp
			err := json.Unmarshal([]byte(tt.input), &ts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(ts.Time), "got %s", ts.Time)
		})
	}
}

func TestTask_DecodeServerPayload(t *testing.T) {
	payload := `{
		"id": 7,
		"taskTitle": "Write report",
		"description": "quarterly",
		"createDate": "2024-03-01T10:15:30",
		"lastStatusChangeDate": null,
		"priority": {"id": 1, "type": "HIGH"},
		"taskStatus": {"id": 2, "type": "IN_PROGRESS"}
	}`

	var tk task.Task
	require.NoError(t, json.Unmarshal([]byte(payload), &tk))

	assert.Equal(t, int64(7), tk.ID)
	assert.Equal(t, "Write report", tk.Title)
	assert.Equal(t, task.PriorityHigh, tk.Priority.Type)
	assert.Equal(t, task.StatusInProgress, tk.Status.Type)
	assert.Nil(t, tk.LastStatusChangeAt)
	assert.Equal(t, 2024, tk.CreatedAt.Year())
}

func TestPage_Validate(t *testing.T) {
	tasks := []*task.Task{{ID: 1}, {ID: 2}}

	tests := []struct {
		name    string
		page    *task.Page
		wantErr bool
	}{
		{"success - consistent page", &task.Page{Content: tasks, NumberOfElements: 2, Size: 5}, false},
		{"error - count mismatch", &task.Page{Content: tasks, NumberOfElements: 3, Size: 5}, true},
		{"error - more than size", &task.Page{Content: tasks, NumberOfElements: 2, Size: 1}, true},
		{"error - nil page", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.page.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPage_Without(t *testing.T) {
	p := &task.Page{
		Content:          []*task.Task{{ID: 1}, {ID: 2}, {ID: 3}},
		NumberOfElements: 3,
		TotalElements:    10,
		Size:             5,
	}

	assert.True(t, p.Without(2))
	assert.False(t, p.Without(42))
	assert.Equal(t, 2, p.NumberOfElements)
	assert.Equal(t, int64(9), p.TotalElements)
	assert.Equal(t, int64(1), p.Content[0].ID)
	assert.Equal(t, int64(3), p.Content[1].ID)
	assert.NoError(t, p.Validate())
}

func TestStatistics_Consistent(t *testing.T) {
	assert.True(t, (&task.Statistics{TotalTasks: 10, CompletedTasks: 3, ActiveTasks: 5}).Consistent())
	assert.True(t, (&task.Statistics{TotalTasks: 8, CompletedTasks: 3, ActiveTasks: 5}).Consistent())
	assert.False(t, (&task.Statistics{TotalTasks: 7, CompletedTasks: 3, ActiveTasks: 5}).Consistent())
	assert.False(t, (&task.Statistics{TotalTasks: 1, CompletedTasks: -1}).Consistent())
}

func TestFilter_Normalize(t *testing.T) {
	f := task.NewFilter(task.WithSearch("  report "), task.WithSort("", "asc"))

	assert.Equal(t, 0, f.Page)
	assert.Equal(t, task.DefaultPageSize, f.Size)
	assert.Equal(t, task.DefaultSortBy, f.SortBy)
	assert.Equal(t, task.SortAsc, f.SortDirection)
	assert.Equal(t, "report", f.SearchTerm)
	assert.True(t, f.IsFiltered())

	plain := task.NewFilter()
	assert.Equal(t, task.SortDesc, plain.SortDirection)
	assert.False(t, plain.IsFiltered())
}

func TestParseFilter(t *testing.T) {
	t.Run("success - round trip through query", func(t *testing.T) {
		in := task.NewFilter(task.WithPage(2), task.WithSize(10), task.WithStatusID(3), task.WithPriorityID(1))
		out, err := task.ParseFilter(in.Values())
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("error - bad number", func(t *testing.T) {
		_, err := task.ParseFilter(url.Values{"page": {"abc"}})
		assert.Error(t, err)
	})

	t.Run("error - search term too long", func(t *testing.T) {
		_, err := task.ParseFilter(url.Values{"searchTerm": {strings.Repeat("x", 101)}})
		assert.Error(t, err)
	})
}

func TestDraft_Validate(t *testing.T) {
	tests := []struct {
		name   string
		draft  task.Draft
		fields []string
	}{
		{
			name:  "success - valid draft",
			draft: task.Draft{Title: "Buy milk", PriorityID: 1, TaskStatusID: 1},
		},
		{
			name:   "error - blank title",
			draft:  task.Draft{Title: "   ", PriorityID: 1, TaskStatusID: 1},
			fields: []string{"taskTitle"},
		},
		{
			name:   "error - title too long",
			draft:  task.Draft{Title: strings.Repeat("a", 256), PriorityID: 1, TaskStatusID: 1},
			fields: []string{"taskTitle"},
		},
		{
			name:   "error - description too long and ids missing",
			draft:  task.Draft{Title: "ok", Description: strings.Repeat("d", 1001)},
			fields: []string{"description", "priorityId", "taskStatusId"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.draft.Validate()
			if len(tt.fields) == 0 {
				assert.Nil(t, errs)
				return
			}
			require.NotNil(t, errs)
			for _, f := range tt.fields {
				assert.Contains(t, errs, f)
			}
			assert.Len(t, errs, len(tt.fields))
		})
	}
}

func TestPatch_ApplyTo(t *testing.T) {
	refs := task.References{
		Priorities: []task.PriorityType{{ID: 1, Type: task.PriorityHigh}, {ID: 3, Type: task.PriorityLow}},
		Statuses:   []task.TaskStatusType{{ID: 1, Type: task.StatusOpen}, {ID: 4, Type: task.StatusDone}},
	}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	original := &task.Task{
		ID:       5,
		Title:    "old",
		Priority: task.PriorityType{ID: 1, Type: task.PriorityHigh},
		Status:   task.TaskStatusType{ID: 1, Type: task.StatusOpen},
	}

	t.Run("success - status change stamps time", func(t *testing.T) {
		out := task.NewPatch(task.WithStatus(4)).ApplyTo(original, refs, now)
		assert.Equal(t, task.StatusDone, out.Status.Type)
		require.NotNil(t, out.LastStatusChangeAt)
		assert.True(t, now.Equal(out.LastStatusChangeAt.Time))
		assert.Equal(t, task.StatusOpen, original.Status.Type, "original must not change")
	})

	t.Run("success - title only keeps status time", func(t *testing.T) {
		out := task.NewPatch(task.WithTitle("  new  ")).ApplyTo(original, refs, now)
		assert.Equal(t, "new", out.Title)
		assert.Nil(t, out.LastStatusChangeAt)
	})

	t.Run("success - priority resolved", func(t *testing.T) {
		out := task.NewPatch(task.WithPriority(3)).ApplyTo(original, refs, now)
		assert.Equal(t, task.PriorityLow, out.Priority.Type)
	})

	t.Run("success - invalid ids skipped", func(t *testing.T) {
		p := task.NewPatch(task.WithStatus(0), task.WithPriority(-1))
		assert.True(t, p.IsEmpty())
	})
}
