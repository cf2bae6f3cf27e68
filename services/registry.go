package services

import (
	"encoding/json"
	"log/slog"
	"sync"

	"vocabquiz/models"
)

// Conn is a live duplex connection. Send must never block; it reports false
// when the message was dropped.
type Conn interface {
	Send(data []byte) bool
	Closed() bool
}

// Registry maps player identities to live connections and back. Both indexes
// change together under one lock.
type Registry struct {
	mu       sync.RWMutex
	byPlayer map[string]Conn
	byConn   map[Conn]string
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		byPlayer: make(map[string]Conn),
		byConn:   make(map[Conn]string),
		logger:   logger,
	}
}

// Register binds playerID to conn, replacing any previous connection for the
// player and any previous player on the connection.
func (r *Registry) Register(playerID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byPlayer[playerID]; ok && old != conn {
		delete(r.byConn, old)
	}
	if oldPlayer, ok := r.byConn[conn]; ok && oldPlayer != playerID {
		delete(r.byPlayer, oldPlayer)
	}
	r.byPlayer[playerID] = conn
	r.byConn[conn] = playerID
}

func (r *Registry) Get(playerID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byPlayer[playerID]
	return conn, ok
}

func (r *Registry) Remove(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.byPlayer[playerID]; ok {
		delete(r.byConn, conn)
		delete(r.byPlayer, playerID)
	}
}

// RemoveByConnection drops conn and returns the player it belonged to.
func (r *Registry) RemoveByConnection(conn Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	playerID, ok := r.byConn[conn]
	if !ok {
		return "", false
	}
	delete(r.byConn, conn)
	delete(r.byPlayer, playerID)
	return playerID, true
}

func (r *Registry) FindPlayerIDByConnection(conn Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	playerID, ok := r.byConn[conn]
	return playerID, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPlayer)
}

// Send writes event to conn. Closed connections are skipped.
func (r *Registry) Send(conn Conn, event Event) {
	if conn == nil || conn.Closed() {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("failed to marshal event", "type", event.Type, "error", err)
		return
	}
	if !conn.Send(data) {
		r.logger.Warn("dropped event", "type", event.Type)
	}
}

// BroadcastToRoom sends event to every member of room, plus a host that is
// not playing. Members without a live connection are skipped. It returns the
// number of connections written to.
func (r *Registry) BroadcastToRoom(room *models.Room, event Event) int {
	data, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("failed to marshal event", "type", event.Type, "error", err)
		return 0
	}

	recipients := room.PlayerIDs
	if room.HostID != "" && !room.HasMember(room.HostID) {
		recipients = append(append([]string(nil), room.PlayerIDs...), room.HostID)
	}

	r.mu.RLock()
	conns := make([]Conn, 0, len(recipients))
	for _, id := range recipients {
		if conn, ok := r.byPlayer[id]; ok {
			conns = append(conns, conn)
		}
	}
	r.mu.RUnlock()

	sent := 0
	for _, conn := range conns {
		if conn.Closed() {
			continue
		}
		if conn.Send(data) {
			sent++
		}
	}
	r.logger.Debug("broadcast", "room", room.Code, "type", event.Type, "sent", sent, "members", len(recipients))
	return sent
}
