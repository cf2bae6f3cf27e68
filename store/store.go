package store

import (
	"context"
	"errors"

	"vocabquiz/models"
)

// ErrNotFound is returned when a room or player key is absent.
var ErrNotFound = errors.New("store: not found")

// RoomStore is the keyed persistence used by the game engine. Implementations
// must give read-your-writes consistency per room.
type RoomStore interface {
	GetRoom(ctx context.Context, code string) (*models.Room, error)
	SaveRoom(ctx context.Context, room *models.Room) error
	DeleteRoom(ctx context.Context, code string) error
	// ListActiveRooms returns rooms that are started and not in LOBBY or FINAL.
	ListActiveRooms(ctx context.Context) ([]*models.Room, error)

	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	SavePlayer(ctx context.Context, player *models.Player) error
	DeletePlayer(ctx context.Context, id string) error
	// ListPlayers returns the room's players in membership order, skipping ids
	// that no longer resolve.
	ListPlayers(ctx context.Context, room *models.Room) ([]*models.Player, error)
}
