package executor_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"taskBoard/internal/executor"
	"taskBoard/internal/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) Sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newExecutor() (*executor.Executor, *recordedSleeps) {
	rec := &recordedSleeps{}
	return executor.New(executor.DefaultConfig(), executor.WithSleeper(rec.Sleep)), rec
}

func serverErr(code int) error {
	return &gateway.ResponseError{StatusCode: code, Method: http.MethodGet, Path: "/tasks"}
}

// TestClassify тестирует сопоставление ошибок шлюза с видами ошибок
func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected executor.Kind
	}{
		{
			name:     "not found",
			err:      serverErr(http.StatusNotFound),
			expected: executor.KindNotFound,
		},
		{
			name: "validation - 400 with field errors",
			err: &gateway.ResponseError{StatusCode: 400, Body: &gateway.APIError{
				Message: "Validation failed", FieldErrors: map[string]string{"taskTitle": "blank"},
			}},
			expected: executor.KindValidation,
		},
		{
			name:     "unknown - 400 without field errors",
			err:      &gateway.ResponseError{StatusCode: 400, Body: &gateway.APIError{Message: "bad"}},
			expected: executor.KindUnknown,
		},
		{
			name:     "unknown - 409",
			err:      serverErr(http.StatusConflict),
			expected: executor.KindUnknown,
		},
		{
			name:     "server - 500",
			err:      serverErr(http.StatusInternalServerError),
			expected: executor.KindServer,
		},
		{
			name:     "server - 503",
			err:      serverErr(http.StatusServiceUnavailable),
			expected: executor.KindServer,
		},
		{
			name:     "network - transport",
			err:      &gateway.TransportError{Err: errors.New("connection refused")},
			expected: executor.KindNetwork,
		},
		{
			name:     "network - deadline",
			err:      context.DeadlineExceeded,
			expected: executor.KindNetwork,
		},
		{
			name:     "unknown - decode",
			err:      &gateway.DecodeError{Err: errors.New("bad json")},
			expected: executor.KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := executor.Classify(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.expected, got.Kind)
			assert.Equal(t, tt.expected, executor.KindOf(got))
		})
	}

	t.Run("keeps server message and fields", func(t *testing.T) {
		got := executor.Classify(&gateway.ResponseError{StatusCode: 400, Body: &gateway.APIError{
			Message: "Validation failed", FieldErrors: map[string]string{"taskTitle": "blank"},
		}})
		assert.Equal(t, "Validation failed", got.Message)
		assert.Equal(t, "blank", got.FieldErrors["taskTitle"])
		assert.Equal(t, 400, got.Status)
	})
}

// TestExecutor_Read тестирует ограниченный повтор чтений
func TestExecutor_Read(t *testing.T) {
	tests := []struct {
		name           string
		failures       []error
		expectedCalls  int
		expectedKind   executor.Kind
		expectedDelays []time.Duration
	}{
		{
			name:          "success - first attempt",
			expectedCalls: 1,
		},
		{
			name:           "success - after one server error",
			failures:       []error{serverErr(500)},
			expectedCalls:  2,
			expectedDelays: []time.Duration{time.Second},
		},
		{
			name:           "error - three network failures exhaust attempts",
			failures:       []error{&gateway.TransportError{Err: errors.New("x")}, &gateway.TransportError{Err: errors.New("x")}, &gateway.TransportError{Err: errors.New("x")}},
			expectedCalls:  3,
			expectedKind:   executor.KindNetwork,
			expectedDelays: []time.Duration{time.Second, 2 * time.Second},
		},
		{
			name:          "error - not found is not retried",
			failures:      []error{serverErr(404)},
			expectedCalls: 1,
			expectedKind:  executor.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, rec := newExecutor()
			calls := 0

			err := ex.Read(context.Background(), "test", func(ctx context.Context) error {
				calls++
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline, "every attempt has a timeout")
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})

			assert.Equal(t, tt.expectedCalls, calls)
			assert.Equal(t, tt.expectedDelays, rec.delays)
			if tt.expectedKind == "" {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.expectedKind, executor.KindOf(err))
			}
		})
	}
}

func TestExecutor_WriteNeverRetries(t *testing.T) {
	ex, rec := newExecutor()
	calls := 0

	err := ex.Write(context.Background(), "update", func(ctx context.Context) error {
		calls++
		return serverErr(503)
	})

	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
	assert.Equal(t, executor.KindServer, executor.KindOf(err))
}

func TestExecutor_TimeoutIsNetworkError(t *testing.T) {
	ex := executor.New(executor.Config{Attempts: 1, Timeout: 10 * time.Millisecond})

	err := ex.Write(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.Equal(t, executor.KindNetwork, executor.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecutor_ReadStopsOnCancel(t *testing.T) {
	ex, _ := newExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := ex.Read(ctx, "cancel", func(ctx context.Context) error {
		calls++
		cancel()
		return serverErr(500)
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestQuery(t *testing.T) {
	ex, _ := newExecutor()

	v, err := executor.Query(context.Background(), ex, "n", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = executor.Mutate(context.Background(), ex, "m", func(ctx context.Context) (int, error) {
		return 0, serverErr(404)
	})
	assert.Equal(t, executor.KindNotFound, executor.KindOf(err))
}
