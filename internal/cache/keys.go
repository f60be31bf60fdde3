package cache

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"taskBoard/internal/models/task"
)

type Key string

const (
	listPrefix = "tasks:list?"
	taskPrefix = "tasks:detail:"

	KeyStatistics    Key = "tasks:statistics"
	KeyPriorityTypes Key = "reference:priority-types"
	KeyStatusTypes   Key = "reference:task-status-types"
)

// ListKey строит ключ страницы из нормализованного фильтра
func ListKey(f task.Filter) Key {
	f = f.Normalize()
	return Key(listPrefix + f.Values().Encode())
}

func TaskKey(id int64) Key {
	return Key(taskPrefix + strconv.FormatInt(id, 10))
}

func (k Key) IsList() bool {
	return strings.HasPrefix(string(k), listPrefix)
}

func (k Key) IsTask() bool {
	return strings.HasPrefix(string(k), taskPrefix)
}

// Filter восстанавливает фильтр из ключа списка
func (k Key) Filter() (task.Filter, error) {
	if !k.IsList() {
		return task.Filter{}, fmt.Errorf("ключ %q не является ключом списка", k)
	}
	v, err := url.ParseQuery(strings.TrimPrefix(string(k), listPrefix))
	if err != nil {
		return task.Filter{}, fmt.Errorf("разбор ключа %q: %w", k, err)
	}
	return task.ParseFilter(v)
}

// TaskID достаёт id из ключа записи
func (k Key) TaskID() (int64, bool) {
	if !k.IsTask() {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(string(k), taskPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
