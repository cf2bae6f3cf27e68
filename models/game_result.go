package models

import (
	"time"

	"gorm.io/gorm"
)

// GameResult is one player's final standing in a finished room.
type GameResult struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	RoomCode        string         `json:"room_code" gorm:"not null;index"`
	PlayerID        string         `json:"player_id" gorm:"not null"`
	PlayerName      string         `json:"player_name" gorm:"not null"`
	Rank            int            `json:"rank" gorm:"not null"`
	Score           int            `json:"score" gorm:"not null"`
	CorrectCount    int            `json:"correct_count" gorm:"not null"`
	WrongCount      int            `json:"wrong_count" gorm:"not null"`
	TotalAnswerTime float64        `json:"total_answer_time" gorm:"not null"` // seconds
	TotalQuestions  int            `json:"total_questions" gorm:"not null"`
	Level           int            `json:"level" gorm:"not null"`
	FinishedAt      time.Time      `json:"finished_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}
