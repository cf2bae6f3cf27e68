package services

import (
	"strings"

	"vocabquiz/models"
)

// Inbound message types.
const (
	MessageCreate  = "create"
	MessageJoin    = "join"
	MessageLeave   = "leave"
	MessageStart   = "start"
	MessageAnswer  = "answer"
	MessageNext    = "next"
	MessageDisband = "disband"
	MessageState   = "state"
	MessagePing    = "ping"
)

// InboundMessage carries only the type tag; handlers decode the rest of the
// flat envelope themselves.
type InboundMessage struct {
	Type string `json:"type"`
}

type CreateRequest struct {
	Name           string               `json:"name" validate:"required,max=32"`
	AvatarID       int                  `json:"avatarId"`
	HashedPassword string               `json:"hashedPassword" validate:"max=72"`
	Settings       *models.RoomSettings `json:"settings"`
	// Spectate keeps the host out of the player list.
	Spectate bool `json:"spectate"`
}

type JoinRequest struct {
	RoomCode       string `json:"roomCode" validate:"required"`
	Name           string `json:"name" validate:"required,max=32"`
	AvatarID       int    `json:"avatarId"`
	HashedPassword string `json:"hashedPassword" validate:"max=72"`
}

type LeaveRequest struct {
	RoomCode string `json:"roomCode" validate:"required"`
	PlayerID string `json:"playerId"`
}

// RoomActionRequest is shared by start, next, disband and state.
type RoomActionRequest struct {
	RoomCode string `json:"roomCode" validate:"required"`
	PlayerID string `json:"playerId"`
}

type AnswerRequest struct {
	RoomCode    string   `json:"roomCode" validate:"required"`
	PlayerID    string   `json:"playerId"`
	AnswerIndex *int     `json:"answerIndex" validate:"required,min=0"`
	AnswerTime  *float64 `json:"answerTime" validate:"omitempty,min=0"`
	IsCorrect   *bool    `json:"isCorrect"`
}

// NormalizeRoomCode trims and upper-cases a human-typed room code.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
