package infra

import (
	"context"
	"log"
	"sync"

	"lms.com/internal/constants"
	"lms.com/internal/domain"
	"lms.com/internal/event"
	"lms.com/internal/model"
)

// WsConn is the part of a websocket connection the manager writes to.
type WsConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// WsClient 一个已认证的 WebSocket 连接
type WsClient struct {
	UserID uint
	Role   model.Role
	conn   WsConn
	send   chan interface{}
}

// NewWsClient wraps conn for the given user.
func NewWsClient(conn WsConn, userID uint, role model.Role) *WsClient {
	return &WsClient{
		UserID: userID,
		Role:   role,
		conn:   conn,
		send:   make(chan interface{}, 64),
	}
}

// WsManager manages WebSocket connections and routes notifications to them.
type WsManager struct {
	// userID -> set of clients of that user
	userConns map[uint]map[*WsClient]bool
	// role -> set of clients holding that role
	roleConns map[model.Role]map[*WsClient]bool

	mu sync.RWMutex

	register   chan *WsClient
	unregister chan *WsClient
	done       chan struct{}
}

func NewWsManager() *WsManager {
	return &WsManager{
		userConns:  make(map[uint]map[*WsClient]bool),
		roleConns:  make(map[model.Role]map[*WsClient]bool),
		register:   make(chan *WsClient),
		unregister: make(chan *WsClient),
		done:       make(chan struct{}),
	}
}

// Register hands client to the manager loop. It returns false once the
// manager has stopped.
func (manager *WsManager) Register(client *WsClient) bool {
	select {
	case manager.register <- client:
		return true
	case <-manager.done:
		return false
	}
}

// Unregister removes client; safe to call after the manager has stopped.
func (manager *WsManager) Unregister(client *WsClient) {
	select {
	case manager.unregister <- client:
	case <-manager.done:
	}
}

// Start runs the register/unregister loop until ctx is cancelled.
func (manager *WsManager) Start(ctx context.Context) {
	log.Println("WsManager: Starting WebSocket Manager...")
	for {
		select {
		case <-ctx.Done():
			close(manager.done)
			manager.closeAll()
			log.Println("WsManager: Stopped")
			return

		case client := <-manager.register:
			manager.mu.Lock()
			if manager.userConns[client.UserID] == nil {
				manager.userConns[client.UserID] = make(map[*WsClient]bool)
			}
			manager.userConns[client.UserID][client] = true
			if manager.roleConns[client.Role] == nil {
				manager.roleConns[client.Role] = make(map[*WsClient]bool)
			}
			manager.roleConns[client.Role][client] = true
			manager.mu.Unlock()

			// dedicated writer so a slow client never blocks the manager
			go func(c *WsClient) {
				for msg := range c.send {
					if err := c.conn.WriteJSON(msg); err != nil {
						log.Printf("WsManager: Write error for user %d: %v", c.UserID, err)
						c.conn.Close()
						return
					}
				}
			}(client)
			log.Printf("WsManager: Client connected: user=%d role=%s", client.UserID, client.Role)

		case client := <-manager.unregister:
			manager.remove(client)
			log.Printf("WsManager: Client disconnected: user=%d", client.UserID)
		}
	}
}

func (manager *WsManager) remove(client *WsClient) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	conns, ok := manager.userConns[client.UserID]
	if !ok || !conns[client] {
		return
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(manager.userConns, client.UserID)
	}
	if roles := manager.roleConns[client.Role]; roles != nil {
		delete(roles, client)
		if len(roles) == 0 {
			delete(manager.roleConns, client.Role)
		}
	}
	close(client.send)
}

func (manager *WsManager) closeAll() {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	for _, conns := range manager.userConns {
		for c := range conns {
			close(c.send)
			c.conn.Close()
		}
	}
	manager.userConns = make(map[uint]map[*WsClient]bool)
	manager.roleConns = make(map[model.Role]map[*WsClient]bool)
}

func deliver(c *WsClient, msg interface{}) {
	select {
	case c.send <- msg:
	default:
		// Buffer full: drop message for this specific slow client
	}
}

// BroadcastToRole sends msg to every connection of users holding role.
func (manager *WsManager) BroadcastToRole(role model.Role, msg interface{}) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	for c := range manager.roleConns[role] {
		deliver(c, msg)
	}
}

// PushToUser sends a message to all active connections of a specific user.
func (manager *WsManager) PushToUser(userID uint, msg interface{}) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	for c := range manager.userConns[userID] {
		deliver(c, msg)
	}
}

// ConnectionCount returns the number of open connections for userID.
func (manager *WsManager) ConnectionCount(userID uint) int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.userConns[userID])
}

// HandleEvent routes a workflow event to the connections that care about it:
// admins hear about new requests, a student hears about their own approvals,
// and inventory changes go to everyone.
func (manager *WsManager) HandleEvent(e event.Event) {
	switch e.Type {
	case constants.EventRequestCreated:
		manager.BroadcastToRole(model.RoleAdmin, e)
	case constants.EventRequestApproved:
		var p event.RequestPayload
		if err := event.Decode(e, &p); err != nil {
			log.Printf("WsManager: Bad %s payload: %v", e.Type, err)
			return
		}
		manager.PushToUser(p.UserID, e)
		manager.BroadcastToRole(model.RoleAdmin, e)
	case constants.EventBookCreated, constants.EventBookDeleted,
		constants.EventAvailabilityChanged, constants.EventCopiesAdjusted:
		manager.BroadcastToRole(model.RoleAdmin, e)
		manager.BroadcastToRole(model.RoleStudent, e)
	}
}

var _ domain.Notifier = (*WsManager)(nil)
