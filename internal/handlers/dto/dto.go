package dto

import (
	"taskBoard/internal/executor"
	"taskBoard/internal/models/task"
	"taskBoard/internal/service"
	"taskBoard/internal/view"
)

type StatusChangeRequest struct {
	TaskStatusID int64 `json:"taskStatusId"`
}

type BulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

type FailedItem struct {
	ID      int64         `json:"id"`
	Kind    executor.Kind `json:"kind"`
	Message string        `json:"message"`
}

type BulkDeleteResponse struct {
	Deleted []int64      `json:"deleted"`
	Failed  []FailedItem `json:"failed"`
}

func FromBulkResult(res service.BulkResult) BulkDeleteResponse {
	out := BulkDeleteResponse{Deleted: []int64{}, Failed: []FailedItem{}}
	for _, o := range res.Outcomes {
		if o.OK() {
			out.Deleted = append(out.Deleted, o.ID)
			continue
		}
		e := executor.Classify(o.Err)
		out.Failed = append(out.Failed, FailedItem{ID: o.ID, Kind: e.Kind, Message: e.Message})
	}
	return out
}

// ErrorView - ошибка загрузки в ответе представления
type ErrorView struct {
	Kind    executor.Kind `json:"kind"`
	Message string        `json:"message"`
}

type ListResponse struct {
	State  view.State  `json:"state"`
	Filter task.Filter `json:"filter"`
	Page   *task.Page  `json:"page,omitempty"`
	Stale  bool        `json:"stale"`
	Error  *ErrorView  `json:"error,omitempty"`
}

type BoardResponse struct {
	ListResponse
	Board view.Board `json:"board"`
}

func FromListView(v view.ListView) ListResponse {
	out := ListResponse{State: v.State, Filter: v.Filter, Page: v.Page, Stale: v.Stale}
	if v.Err != nil {
		e := executor.Classify(v.Err)
		out.Error = &ErrorView{Kind: e.Kind, Message: e.Message}
	}
	return out
}

func FromBoardView(v view.BoardView) BoardResponse {
	return BoardResponse{ListResponse: FromListView(v.ListView), Board: v.Board}
}
