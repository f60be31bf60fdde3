package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"taskBoard/internal/logger"
	"taskBoard/internal/models/task"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	pathTasks         = "/tasks"
	pathTasksFilter   = "/tasks/filter"
	pathStatistics    = "/tasks/statistics"
	pathPriorityTypes = "/priority-types"
	pathStatusTypes   = "/task-status-types"

	maxErrorBody = 64 << 10
	slowRequest  = 500 * time.Millisecond
)

// Client - HTTP клиент удалённого сервиса задач
type Client struct {
	baseURL *url.URL
	http    *http.Client
	now     func() time.Time
}

type Option func(*Client)

// WithHTTPClient подменяет транспорт, например для httptest
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(cl *Client) {
		cl.now = now
	}
}

func New(baseURL string, options ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("разбор адреса сервиса: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("адрес сервиса %q должен быть абсолютным", baseURL)
	}

	c := &Client{
		baseURL: u,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListTasks выбирает /tasks или /tasks/filter в зависимости от фильтра
func (c *Client) ListTasks(ctx context.Context, f task.Filter) (*task.Page, error) {
	path := pathTasks
	if f.IsFiltered() {
		path = pathTasksFilter
	}

	var page task.Page
	if err := c.do(ctx, http.MethodGet, path, f.Values(), nil, &page); err != nil {
		return nil, err
	}
	if page.Content == nil {
		page.Content = []*task.Task{}
	}
	return &page, nil
}

func (c *Client) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) CreateTask(ctx context.Context, d task.Draft) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodPost, pathTasks, nil, d, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) UpdateTask(ctx context.Context, id int64, p task.Patch) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodPut, taskPath(id), nil, p, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil, nil)
}

func (c *Client) Statistics(ctx context.Context) (*task.Statistics, error) {
	var s task.Statistics
	if err := c.do(ctx, http.MethodGet, pathStatistics, nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) PriorityTypes(ctx context.Context) ([]task.PriorityType, error) {
	var out []task.PriorityType
	if err := c.do(ctx, http.MethodGet, pathPriorityTypes, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StatusTypes(ctx context.Context) ([]task.TaskStatusType, error) {
	var out []task.TaskStatusType
	if err := c.do(ctx, http.MethodGet, pathStatusTypes, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func taskPath(id int64) string {
	return pathTasks + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	start := c.now()

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query == nil {
		query = url.Values{}
	}
	if method == http.MethodGet {
		query.Set("_t", strconv.FormatInt(c.now().UnixMilli(), 10))
	}
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("кодирование тела запроса: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("создание запроса: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("Gateway: Нет ответа от сервиса",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	elapsed := c.now().Sub(start)
	if elapsed > slowRequest {
		logger.Warn("Gateway: Медленный ответ сервиса",
			zap.String("request_id", requestID),
			zap.String("path", path),
			zap.Duration("ms", elapsed))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		respErr := &ResponseError{StatusCode: resp.StatusCode, Method: method, Path: path, Raw: raw}
		var apiErr APIError
		if len(raw) > 0 && json.Unmarshal(raw, &apiErr) == nil {
			respErr.Body = &apiErr
		}
		logger.Info("Gateway: Сервис вернул ошибку",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return respErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return &TransportError{Method: method, Path: path, Err: err}
		}
		return &DecodeError{Method: method, Path: path, Err: err}
	}
	return nil
}
