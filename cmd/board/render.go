package main

import (
	"fmt"
	"sort"
	"strings"

	"taskBoard/internal/models/task"
	"taskBoard/internal/service"
	"taskBoard/internal/view"

	"github.com/charmbracelet/lipgloss"
)

const columnWidth = 32

var (
	columnStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1).Width(columnWidth)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	priorityStyles = map[task.Priority]lipgloss.Style{
		task.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		task.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		task.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
)

func renderTask(t *task.Task) string {
	style, ok := priorityStyles[t.Priority.Type]
	if !ok {
		style = mutedStyle
	}
	return fmt.Sprintf("#%d %s %s", t.ID, strings.TrimSpace(t.Title), style.Render(string(t.Priority.Type)))
}

func renderBoard(b view.Board) string {
	columns := make([]string, 0, len(b.Columns))
	for _, c := range b.Columns {
		lines := []string{headerStyle.Render(fmt.Sprintf("%s (%d)", c.Status, len(c.Tasks)))}
		if len(c.Tasks) == 0 {
			lines = append(lines, mutedStyle.Render("пусто"))
		}
		for _, t := range c.Tasks {
			lines = append(lines, renderTask(t))
		}
		columns = append(columns, columnStyle.Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func renderList(p *task.Page) string {
	if p == nil || len(p.Content) == 0 {
		return mutedStyle.Render("задач нет")
	}
	lines := make([]string, 0, len(p.Content)+1)
	for _, t := range p.Content {
		lines = append(lines, fmt.Sprintf("%s  %s", renderTask(t), mutedStyle.Render(string(t.Status.Type))))
	}
	lines = append(lines, mutedStyle.Render(fmt.Sprintf("страница %d из %d, всего %d", p.Number+1, p.TotalPages, p.TotalElements)))
	return strings.Join(lines, "\n")
}

func renderStatistics(st *task.Statistics) string {
	lines := []string{
		headerStyle.Render("Сводка"),
		fmt.Sprintf("всего:      %d", st.TotalTasks),
		fmt.Sprintf("активных:   %d", st.ActiveTasks),
		fmt.Sprintf("завершённых: %d", st.CompletedTasks),
	}
	for _, s := range task.Statuses {
		if n, ok := st.TasksByStatus[s]; ok {
			lines = append(lines, fmt.Sprintf("  %-12s %d", s, n))
		}
	}

	priorities := make([]string, 0, len(st.TasksByPriority))
	for p := range st.TasksByPriority {
		priorities = append(priorities, string(p))
	}
	sort.Strings(priorities)
	for _, p := range priorities {
		lines = append(lines, fmt.Sprintf("  %-12s %d", p, st.TasksByPriority[task.Priority(p)]))
	}
	return columnStyle.Render(strings.Join(lines, "\n"))
}

func renderBulk(r service.BulkResult) string {
	lines := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.OK() {
			lines = append(lines, successStyle.Render(fmt.Sprintf("#%d удалена", o.ID)))
			continue
		}
		lines = append(lines, errorStyle.Render(fmt.Sprintf("#%d: %s", o.ID, o.Err)))
	}
	return strings.Join(lines, "\n")
}
