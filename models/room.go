package models

import "time"

// RoomSettings is the per-room quiz configuration.
type RoomSettings struct {
	QuestionDuration int `json:"questionDuration" validate:"omitempty,min=5,max=300"` // seconds
	OptionCount      int `json:"optionCount" validate:"omitempty,min=2,max=6"`
	Level            int `json:"level" validate:"omitempty,min=1,max=10"`
	TotalQuestions   int `json:"totalQuestionCount" validate:"omitempty,min=1,max=100"`
}

// Room is one live game instance.
type Room struct {
	Code                 string       `json:"code"`
	PlayerIDs            []string     `json:"playerIds"` // membership in join order
	CurrentQuestionIndex int          `json:"currentQuestionIndex"`
	Started              bool         `json:"started"`
	HostID               string       `json:"hostId"`
	Settings             RoomSettings `json:"settings"`
	Questions            []Question   `json:"questions,omitempty"`
	LastUsed             time.Time    `json:"lastUsed"`
	PasswordHash         string       `json:"passwordHash,omitempty"`
	State                GameState    `json:"state"`
	StateStartTime       time.Time    `json:"stateStartTime"`
	CreatedAt            time.Time    `json:"createdAt"`

	// EarlyRankingsIndex is the question whose rankings went out before its
	// timer ended, because every member had answered.
	EarlyRankingsIndex *int `json:"earlyRankingsIndex,omitempty"`
}

// Active reports whether the scheduler is responsible for advancing the room.
func (r *Room) Active() bool {
	return r.Started && r.State != StateLobby && r.State != StateFinal
}

// HasMember reports whether playerID is in the room's membership list.
func (r *Room) HasMember(playerID string) bool {
	for _, id := range r.PlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// RemoveMember drops playerID from the membership list and reports whether it was present.
func (r *Room) RemoveMember(playerID string) bool {
	for i, id := range r.PlayerIDs {
		if id == playerID {
			r.PlayerIDs = append(r.PlayerIDs[:i:i], r.PlayerIDs[i+1:]...)
			return true
		}
	}
	return false
}

// RankingsShownFor reports whether early rankings were already sent for questionIndex.
func (r *Room) RankingsShownFor(questionIndex int) bool {
	return r.EarlyRankingsIndex != nil && *r.EarlyRankingsIndex == questionIndex
}

// CurrentQuestion returns the active question, or nil when the room has none.
func (r *Room) CurrentQuestion() *Question {
	if r.CurrentQuestionIndex < 0 || r.CurrentQuestionIndex >= len(r.Questions) {
		return nil
	}
	return &r.Questions[r.CurrentQuestionIndex]
}

// Clone returns a deep copy so stores can hand out rooms without sharing slices.
func (r *Room) Clone() *Room {
	c := *r
	c.PlayerIDs = append([]string(nil), r.PlayerIDs...)
	if r.EarlyRankingsIndex != nil {
		v := *r.EarlyRankingsIndex
		c.EarlyRankingsIndex = &v
	}
	if r.Questions != nil {
		c.Questions = make([]Question, len(r.Questions))
		for i, q := range r.Questions {
			c.Questions[i] = q
			c.Questions[i].Options = append([]string(nil), q.Options...)
		}
	}
	return &c
}
