package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// Client 单个站内信连接
type Client struct {
	UserID   string
	TenantID string
	Conn     *websocket.Conn
	Send     chan []byte
}

// NewClient 创建客户端
func NewClient(userID, tenantID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID:   userID,
		TenantID: tenantID,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
	}
}

// Hub 站内信连接管理器
type Hub struct {
	// userID -> connections
	clients map[string][]*Client
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
}

// NewHub 创建并启动管理器
func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client, 100),
		unregister: make(chan *Client, 100),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Register 注册连接并启动读写协程
func (h *Hub) Register(client *Client) {
	go client.readPump(h)
	go client.writePump()
	h.register <- client
}

// Unregister 注销连接
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.UserID] = append(h.clients[client.UserID], client)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[client.UserID]
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			client.Conn.Close()
			break
		}
	}
	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
	}
}

// BroadcastToTenant 推送消息给租户的所有在线连接
func (h *Hub) BroadcastToTenant(tenantID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, clients := range h.clients {
		for _, client := range clients {
			if client.TenantID != tenantID {
				continue
			}
			select {
			case client.Send <- data:
			default:
				// 发送缓冲满，踢掉慢连接
				go h.Unregister(client)
			}
		}
	}
	return nil
}

// ConnectionCount 当前连接数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}

func (c *Client) readPump(h *Hub) {
	defer h.Unregister(c)

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
