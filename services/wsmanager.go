package services

import (
	"sync"

	"github.com/gorilla/websocket"
)

// WSWriter is the part of *websocket.Conn the manager writes to.
type WSWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// wsClient serializes writes: gorilla connections allow one concurrent writer.
type wsClient struct {
	mu   sync.Mutex
	conn WSWriter
}

func (c *wsClient) write(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// WSConnManager - реестр сокетов, зарегистрированных под id пользователя.
type WSConnManager struct {
	mu    sync.RWMutex
	users map[int64][]*wsClient
}

func NewWSConnManager() *WSConnManager {
	return &WSConnManager{
		users: make(map[int64][]*wsClient),
	}
}

func (m *WSConnManager) Add(userID int64, conn WSWriter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.users[userID] {
		if c.conn == conn {
			return
		}
	}
	m.users[userID] = append(m.users[userID], &wsClient{conn: conn})
}

func (m *WSConnManager) Remove(userID int64, conn WSWriter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns := m.users[userID]
	for i, c := range conns {
		if c.conn == conn {
			m.users[userID] = append(conns[:i:i], conns[i+1:]...)
			break
		}
	}
	if len(m.users[userID]) == 0 {
		delete(m.users, userID)
	}
}

// Move re-keys conn from one user id to another and keeps its client, so writes
// already in flight and new ones share the same lock. An unknown conn is added.
func (m *WSConnManager) Move(fromID, toID int64, conn WSWriter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var client *wsClient
	conns := m.users[fromID]
	for i, c := range conns {
		if c.conn == conn {
			client = c
			m.users[fromID] = append(conns[:i:i], conns[i+1:]...)
			break
		}
	}
	if len(m.users[fromID]) == 0 {
		delete(m.users, fromID)
	}
	if client == nil {
		client = &wsClient{conn: conn}
	}
	for _, c := range m.users[toID] {
		if c.conn == conn {
			return
		}
	}
	m.users[toID] = append(m.users[toID], client)
}

// Online reports whether userID has at least one registered connection.
func (m *WSConnManager) Online(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users[userID]) > 0
}

// Send writes message to every connection of userID and returns how many accepted it.
func (m *WSConnManager) Send(userID int64, message []byte) int {
	m.mu.RLock()
	clients := append([]*wsClient(nil), m.users[userID]...)
	m.mu.RUnlock()

	delivered := 0
	for _, c := range clients {
		if err := c.write(message); err == nil {
			delivered++
		}
	}
	return delivered
}

// SendConn writes to one connection. Registered connections go through their
// client lock; an unregistered one has no other writer.
func (m *WSConnManager) SendConn(userID int64, conn WSWriter, message []byte) error {
	m.mu.RLock()
	var client *wsClient
	for _, c := range m.users[userID] {
		if c.conn == conn {
			client = c
			break
		}
	}
	m.mu.RUnlock()

	if client == nil {
		return conn.WriteMessage(websocket.TextMessage, message)
	}
	return client.write(message)
}

var GlobalWSConnManager = NewWSConnManager()
