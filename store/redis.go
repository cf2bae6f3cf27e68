package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vocabquiz/models"

	"github.com/redis/go-redis/v9"
)

const activeRoomsKey = "rooms:active"

func roomKey(code string) string { return "room:" + code }

func playerKey(id string) string { return "player:" + id }

// RedisStore keeps live rooms and players as JSON values with a sliding TTL.
// Saving a room slides the TTL of the players it owns too.
// Active rooms are additionally indexed in a set so the scheduler does not scan keys.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	if err := s.getJSON(ctx, roomKey(code), &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *RedisStore) SaveRoom(ctx context.Context, room *models.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room %s: %w", room.Code, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, roomKey(room.Code), data, s.ttl)
	for _, key := range ownedPlayerKeys(room) {
		pipe.Expire(ctx, key, s.ttl)
	}
	if room.Active() {
		pipe.SAdd(ctx, activeRoomsKey, room.Code)
	} else {
		pipe.SRem(ctx, activeRoomsKey, room.Code)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store room %s: %w", room.Code, err)
	}
	return nil
}

// ownedPlayerKeys lists the player records that live as long as the room:
// every member plus a spectating host.
func ownedPlayerKeys(room *models.Room) []string {
	keys := make([]string, 0, len(room.PlayerIDs)+1)
	for _, id := range room.PlayerIDs {
		keys = append(keys, playerKey(id))
	}
	if room.HostID != "" && !room.HasMember(room.HostID) {
		keys = append(keys, playerKey(room.HostID))
	}
	return keys
}

func (s *RedisStore) DeleteRoom(ctx context.Context, code string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, roomKey(code))
	pipe.SRem(ctx, activeRoomsKey, code)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete room %s: %w", code, err)
	}
	return nil
}

func (s *RedisStore) ListActiveRooms(ctx context.Context) ([]*models.Room, error) {
	codes, err := s.client.SMembers(ctx, activeRoomsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active rooms: %w", err)
	}

	rooms := make([]*models.Room, 0, len(codes))
	for _, code := range codes {
		room, err := s.GetRoom(ctx, code)
		if errors.Is(err, ErrNotFound) {
			// expired underneath the index
			s.client.SRem(ctx, activeRoomsKey, code)
			continue
		}
		if err != nil {
			return nil, err
		}
		if room.Active() {
			rooms = append(rooms, room)
		}
	}
	return rooms, nil
}

func (s *RedisStore) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	var player models.Player
	if err := s.getJSON(ctx, playerKey(id), &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *RedisStore) SavePlayer(ctx context.Context, player *models.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal player %s: %w", player.ID, err)
	}
	if err := s.client.Set(ctx, playerKey(player.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store player %s: %w", player.ID, err)
	}
	return nil
}

func (s *RedisStore) DeletePlayer(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, playerKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete player %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) ListPlayers(ctx context.Context, room *models.Room) ([]*models.Player, error) {
	if len(room.PlayerIDs) == 0 {
		return nil, nil
	}
	keys := make([]string, len(room.PlayerIDs))
	for i, id := range room.PlayerIDs {
		keys[i] = playerKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load players for room %s: %w", room.Code, err)
	}

	players := make([]*models.Player, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var player models.Player
		if err := json.Unmarshal([]byte(raw), &player); err != nil {
			return nil, fmt.Errorf("failed to unmarshal player %s: %w", room.PlayerIDs[i], err)
		}
		players = append(players, &player)
	}
	return players, nil
}

func (s *RedisStore) getJSON(ctx context.Context, key string, v any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}
