package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"taskBoard/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// Message - кадр, отправляемый браузеру
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub рассылает уведомления и события подключённым браузерам
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	mtx        *sync.RWMutex
	upgrader   websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		mtx:        &sync.RWMutex{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run обслуживает регистрацию и рассылку до отмены контекста
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.mtx.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mtx.Unlock()
			logger.Info("Hub: Клиент подключён", zap.String("client_id", c.id), zap.Int("total", total))

		case c := <-h.unregister:
			h.mtx.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mtx.Unlock()
			logger.Info("Hub: Клиент отключён", zap.String("client_id", c.id), zap.Int("total", total))

		case msg := <-h.broadcast:
			h.mtx.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					logger.Warn("Hub: Буфер клиента переполнен, отключаем", zap.String("client_id", c.id))
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mtx.Unlock()

		case <-ctx.Done():
			close(h.done)
			h.mtx.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mtx.Unlock()
			logger.Info("Hub: Остановлен")
			return
		}
	}
}

// Broadcast ставит сообщение в очередь, при переполнении сообщение теряется
func (h *Hub) Broadcast(msgType string, data any) {
	buf, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		logger.Error("Hub: Ошибка кодирования сообщения", err, zap.String("type", msgType))
		return
	}

	select {
	case h.broadcast <- buf:
	default:
		logger.Warn("Hub: Очередь рассылки переполнена", zap.String("type", msgType))
	}
}

func (h *Hub) Notify(n Notification) {
	h.Broadcast("notification", n)
}

func (h *Hub) ClientCount() int {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	return len(h.clients)
}

// ServeWS переводит соединение на websocket и подписывает его на рассылку
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Hub: Не удалось открыть websocket", zap.Error(err))
		return
	}

	c := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  h,
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("Hub: Неожиданное закрытие соединения", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
