package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"taskBoard/internal/logger"

	"go.uber.org/zap"
)

type clientInfo struct {
	count   int
	resetAt time.Time
}

// Limiter считает запросы с одного IP в окне фиксированной длины
type Limiter struct {
	rpm     int
	window  time.Duration
	now     func() time.Time
	clients map[string]*clientInfo
	mtx     *sync.Mutex
}

func NewLimiter(rpm int, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		rpm:     rpm,
		window:  time.Minute,
		now:     now,
		clients: make(map[string]*clientInfo),
		mtx:     &sync.Mutex{},
	}
}

// Allow учитывает запрос и возвращает остаток и время сброса окна
func (l *Limiter) Allow(ip string) (bool, int, time.Time) {
	now := l.now()

	l.mtx.Lock()
	defer l.mtx.Unlock()

	// устаревшие окна чистим при каждом новом клиенте
	info, ok := l.clients[ip]
	if !ok {
		l.sweepLocked(now)
		info = &clientInfo{resetAt: now.Add(l.window)}
		l.clients[ip] = info
	} else if now.After(info.resetAt) {
		info.count = 0
		info.resetAt = now.Add(l.window)
	}

	if info.count >= l.rpm {
		return false, 0, info.resetAt
	}
	info.count++
	return true, l.rpm - info.count, info.resetAt
}

func (l *Limiter) sweepLocked(now time.Time) {
	for ip, info := range l.clients {
		if now.After(info.resetAt) {
			delete(l.clients, ip)
		}
	}
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getIp(r)
		allowed, remaining, resetAt := l.Allow(ip)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.rpm))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			logger.Warn("HTTP: Превышен лимит запросов", zap.String("client_ip", ip))

			retryAfter := int(resetAt.Sub(l.now()).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"status":     http.StatusTooManyRequests,
				"error":      "rate_limit_exceeded",
				"message":    "Слишком много запросов. Попробуйте позже.",
				"path":       r.URL.Path,
				"request_id": GetRequestID(r.Context()),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RateLimit(rpm int) func(http.Handler) http.Handler {
	return NewLimiter(rpm, nil).Middleware
}

func getIp(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
