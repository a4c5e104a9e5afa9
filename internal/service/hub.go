package service

import (
	"sync"

	"support_chat/internal/domain"
)

// Conn - живое соединение клиента в пределах процесса.
// Send не должен блокироваться: медленный клиент отключается самим соединением.
type Conn interface {
	ID() string
	// Identity == nil для анонимного соединения
	Identity() *domain.Identity
	Send(env domain.Envelope) error
}

// Hub - реестр соединений и комнат (room = id переписки).
// Одна identity может держать несколько соединений (вкладки браузера).
type Hub struct {
	adminParty string

	mu        sync.RWMutex
	conns     map[string]Conn                // connID -> conn
	users     map[string]map[string]Conn     // userID/party -> connID -> conn
	rooms     map[string]map[string]Conn     // roomID -> connID -> conn
	connRooms map[string]map[string]struct{} // connID -> set of roomIDs
}

func NewHub(adminParty string) *Hub {
	return &Hub{
		adminParty: adminParty,
		conns:      make(map[string]Conn),
		users:      make(map[string]map[string]Conn),
		rooms:      make(map[string]map[string]Conn),
		connRooms:  make(map[string]map[string]struct{}),
	}
}

// Attach регистрирует соединение под его identity (админы - еще и под общей стороной)
func (h *Hub) Attach(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c.ID()] = c
	h.connRooms[c.ID()] = make(map[string]struct{})
	for _, key := range h.userKeys(c) {
		set := h.users[key]
		if set == nil {
			set = make(map[string]Conn)
			h.users[key] = set
		}
		set[c.ID()] = c
	}
}

// Detach удаляет соединение и все его членства в комнатах, возвращает покинутые комнаты
func (h *Hub) Detach(c Conn) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c.ID()]; !ok {
		return nil
	}
	delete(h.conns, c.ID())

	for _, key := range h.userKeys(c) {
		if set := h.users[key]; set != nil {
			delete(set, c.ID())
			if len(set) == 0 {
				delete(h.users, key)
			}
		}
	}

	left := make([]string, 0, len(h.connRooms[c.ID()]))
	for roomID := range h.connRooms[c.ID()] {
		if room := h.rooms[roomID]; room != nil {
			delete(room, c.ID())
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
		left = append(left, roomID)
	}
	delete(h.connRooms, c.ID())

	return left
}

// Join идемпотентен; true, если соединение добавлено впервые
func (h *Hub) Join(roomID string, c Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	memberships, ok := h.connRooms[c.ID()]
	if !ok {
		// соединение уже отключено
		return false
	}
	if _, joined := memberships[roomID]; joined {
		return false
	}

	room := h.rooms[roomID]
	if room == nil {
		room = make(map[string]Conn)
		h.rooms[roomID] = room
	}
	room[c.ID()] = c
	memberships[roomID] = struct{}{}
	return true
}

func (h *Hub) IsMember(roomID, connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.rooms[roomID][connID]
	return ok
}

func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Rooms возвращает комнаты, в которых состоит соединение
func (h *Hub) Rooms(connID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.connRooms[connID]))
	for roomID := range h.connRooms[connID] {
		out = append(out, roomID)
	}
	return out
}

// Online - есть ли у identity живое соединение на этом инстансе
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Deliver рассылает событие локальным получателям, возвращает число доставок
func (h *Hub) Deliver(d Delivery) int {
	h.mu.RLock()
	var targets map[string]Conn
	switch {
	case d.RoomID != "":
		targets = h.rooms[d.RoomID]
	case d.UserID != "":
		targets = h.users[d.UserID]
	}
	recipients := make([]Conn, 0, len(targets))
	for id, c := range targets {
		if id == d.ExcludeConn || h.indexedUnder(c, d.ExcludeUser) {
			continue
		}
		recipients = append(recipients, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range recipients {
		if err := c.Send(d.Event); err == nil {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) indexedUnder(c Conn, userID string) bool {
	if userID == "" {
		return false
	}
	for _, key := range h.userKeys(c) {
		if key == userID {
			return true
		}
	}
	return false
}

func (h *Hub) userKeys(c Conn) []string {
	identity := c.Identity()
	if identity == nil {
		return nil
	}
	if identity.IsAdmin() && identity.ID != h.adminParty {
		return []string{identity.ID, h.adminParty}
	}
	return []string{identity.ID}
}
