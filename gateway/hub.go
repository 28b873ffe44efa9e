package gateway

import (
	"runtime/debug"
	"sync"

	json "github.com/bytedance/sonic"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
)

// Hub 维护本实例上的连接与房间
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	log     logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		log:     log,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	activeConnections.Inc()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	activeConnections.Dec()
}

// Join 把连接加入房间, 同一连接可同时处于多个房间
func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

// Leave 把连接移出房间
func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// RoomSize 房间内本实例上的连接数
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Deliver 向本实例上的房间成员投递事件
func (h *Hub) Deliver(msg *RoomMessage) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[msg.Room]))
	for c := range h.rooms[msg.Room] {
		members = append(members, c)
	}
	h.mu.RUnlock()
	if len(members) == 0 {
		return
	}

	frame, err := json.Marshal(&Frame{Event: msg.Event, Data: msg.Data})
	if err != nil {
		h.log.Error("Deliver failed at encode frame", logger.Error(err), logger.String("event", msg.Event))
		return
	}
	for _, c := range members {
		if msg.Except != "" && c.UserID() == msg.Except {
			continue
		}
		h.safeSend(c, frame)
	}
}

func (h *Hub) safeSend(c *Client, frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Deliver panicked", logger.Any("panic", r), logger.String("stack", string(debug.Stack())))
		}
	}()
	c.enqueue(frame)
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.Close()
	}
}
