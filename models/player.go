package models

import "time"

// Player is a participant in exactly one room.
type Player struct {
	ID              string    `json:"id"`
	RoomCode        string    `json:"roomCode"`
	Name            string    `json:"name"`
	AvatarID        int       `json:"avatarId"`
	Score           int       `json:"score"`
	CorrectCount    int       `json:"correctCount"`
	WrongCount      int       `json:"wrongCount"`
	TotalAnswerTime float64   `json:"totalAnswerTime"` // seconds
	AnsweredIndex   *int      `json:"answeredIndex,omitempty"`
	LastAnswerIndex *int      `json:"lastAnswerIndex,omitempty"` // option chosen for AnsweredIndex
	JoinedAt        time.Time `json:"joinedAt"`
}

// HasAnswered reports whether the player has already scored for questionIndex.
func (p *Player) HasAnswered(questionIndex int) bool {
	return p.AnsweredIndex != nil && *p.AnsweredIndex == questionIndex
}

// ResetAnswer clears the per-question answer marker.
func (p *Player) ResetAnswer() {
	p.AnsweredIndex = nil
	p.LastAnswerIndex = nil
}

// ResetStats zeroes the per-game counters.
func (p *Player) ResetStats() {
	p.Score = 0
	p.CorrectCount = 0
	p.WrongCount = 0
	p.TotalAnswerTime = 0
	p.ResetAnswer()
}

func (p *Player) Clone() *Player {
	c := *p
	if p.AnsweredIndex != nil {
		v := *p.AnsweredIndex
		c.AnsweredIndex = &v
	}
	if p.LastAnswerIndex != nil {
		v := *p.LastAnswerIndex
		c.LastAnswerIndex = &v
	}
	return &c
}
