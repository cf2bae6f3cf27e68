package models

import (
	"time"

	"gorm.io/gorm"
)

type Word struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Text      string         `json:"text" gorm:"not null;uniqueIndex:idx_word_level"`
	Meaning   string         `json:"meaning" gorm:"not null"`
	Level     int            `json:"level" gorm:"not null;default:1;index;uniqueIndex:idx_word_level"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
