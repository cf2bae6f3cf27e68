package store

import (
	"context"
	"sort"
	"sync"

	"vocabquiz/models"
)

// MemoryStore keeps rooms and players in process memory. Values are copied on
// the way in and out so callers never share state.
type MemoryStore struct {
	roomsMu sync.RWMutex
	rooms   map[string]*models.Room

	playersMu sync.RWMutex
	players   map[string]*models.Player
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:   make(map[string]*models.Room),
		players: make(map[string]*models.Player),
	}
}

func (s *MemoryStore) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	s.roomsMu.RLock()
	defer s.roomsMu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, ErrNotFound
	}
	return room.Clone(), nil
}

func (s *MemoryStore) SaveRoom(ctx context.Context, room *models.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()
	s.rooms[room.Code] = room.Clone()
	return nil
}

func (s *MemoryStore) DeleteRoom(ctx context.Context, code string) error {
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()
	delete(s.rooms, code)
	return nil
}

func (s *MemoryStore) ListActiveRooms(ctx context.Context) ([]*models.Room, error) {
	s.roomsMu.RLock()
	defer s.roomsMu.RUnlock()
	var rooms []*models.Room
	for _, room := range s.rooms {
		if room.Active() {
			rooms = append(rooms, room.Clone())
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Code < rooms[j].Code })
	return rooms, nil
}

func (s *MemoryStore) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	return player.Clone(), nil
}

func (s *MemoryStore) SavePlayer(ctx context.Context, player *models.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.playersMu.Lock()
	defer s.playersMu.Unlock()
	s.players[player.ID] = player.Clone()
	return nil
}

func (s *MemoryStore) DeletePlayer(ctx context.Context, id string) error {
	s.playersMu.Lock()
	defer s.playersMu.Unlock()
	delete(s.players, id)
	return nil
}

func (s *MemoryStore) ListPlayers(ctx context.Context, room *models.Room) ([]*models.Player, error) {
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()
	players := make([]*models.Player, 0, len(room.PlayerIDs))
	for _, id := range room.PlayerIDs {
		if player, ok := s.players[id]; ok {
			players = append(players, player.Clone())
		}
	}
	return players, nil
}
