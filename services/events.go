package services

import (
	"sort"

	"vocabquiz/models"
)

// Outbound event types.
const (
	EventRoomCreated      = "roomCreated"
	EventRoomJoined       = "roomJoined"
	EventLeftRoom         = "leftRoom"
	EventPlayerLeft       = "playerLeft"
	EventPlayersUpdate    = "playersUpdate"
	EventGameStateChanged = "gameStateChanged"
	EventQuestions        = "questions"
	EventQuestionIndex    = "questionIndex"
	EventAnswerResult     = "answerResult"
	EventPlayerAnswered   = "playerAnswered"
	EventRankings         = "rankings"
	EventGameEnded        = "gameEnded"
	EventRoomDisbanded    = "roomDisbanded"
	EventPong             = "pong"
	EventError            = "error"
)

// Event is the outbound envelope written to every connection.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func NewEvent(eventType string, payload any) Event {
	return Event{Type: eventType, Payload: payload}
}

type ErrorPayload struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

func ErrorEvent(err error) Event {
	return NewEvent(EventError, ErrorPayload{Message: err.Error(), Kind: ErrorKind(err)})
}

type PlayerView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	AvatarID int    `json:"avatarId"`
	Score    int    `json:"score"`
	IsHost   bool   `json:"isHost"`
}

type RoomView struct {
	Code               string              `json:"roomCode"`
	HostID             string              `json:"hostId"`
	Settings           models.RoomSettings `json:"settings"`
	HasPassword        bool                `json:"hasPassword"`
	Players            []PlayerView        `json:"players"`
	State              models.GameState    `json:"state"`
	StateName          string              `json:"stateName"`
	CurrentQuestionIdx int                 `json:"currentQuestionIndex"`
}

type RoomCreatedPayload struct {
	RoomView
	PlayerID string `json:"playerId,omitempty"`
	Ticket   string `json:"ticket,omitempty"`
}

type RoomJoinedPayload struct {
	RoomView
	PlayerID string `json:"playerId"`
	Ticket   string `json:"ticket,omitempty"`
}

type PlayersUpdatePayload struct {
	Players []PlayerView `json:"players"`
	HostID  string       `json:"hostId"`
}

type PlayerLeftPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type GameStatePayload struct {
	State                models.GameState `json:"state"`
	StateName            string           `json:"stateName"`
	RemainingTime        int              `json:"remainingTime"`
	CurrentQuestionIndex int              `json:"currentQuestionIndex"`
	TotalQuestionCount   int              `json:"totalQuestionCount"`
}

// QuestionView is a question as clients see it. The answer fields are only
// filled in when clients grade themselves.
type QuestionView struct {
	Word         string   `json:"word"`
	Options      []string `json:"options"`
	Level        int      `json:"level"`
	Meaning      string   `json:"meaning,omitempty"`
	CorrectIndex *int     `json:"correctIndex,omitempty"`
}

type QuestionsPayload struct {
	Questions  []QuestionView `json:"questions"`
	TotalCount int            `json:"totalCount"`
}

type QuestionIndexPayload struct {
	Index int `json:"index"`
}

type AnswerResultPayload struct {
	Correct     bool `json:"correct"`
	ScoreChange int  `json:"scoreChange"`
	NewScore    int  `json:"newScore"`
	AnswerIndex int  `json:"answerIndex"`
}

type PlayerAnsweredPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type RankingEntry struct {
	Rank         int    `json:"rank"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	AvatarID     int    `json:"avatarId"`
	Score        int    `json:"score"`
	CorrectCount int    `json:"correctCount"`
}

type RankingsPayload struct {
	Players []RankingEntry `json:"players"`
}

type FinalEntry struct {
	RankingEntry
	WrongCount      int     `json:"wrongCount"`
	TotalAnswerTime float64 `json:"totalAnswerTime"`
}

type GameEndedPayload struct {
	Players []FinalEntry `json:"players"`
}

// RoomSnapshot is the synced view returned by state queries.
type RoomSnapshot struct {
	GameStatePayload
	Room RoomView `json:"room"`
}

type RoomDisbandedPayload struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}

func newQuestionViews(questions []models.Question, withAnswers bool) []QuestionView {
	views := make([]QuestionView, len(questions))
	for i, q := range questions {
		views[i] = QuestionView{Word: q.Word, Options: q.Options, Level: q.Level}
		if withAnswers {
			correct := q.CorrectIndex
			views[i].Meaning = q.Meaning
			views[i].CorrectIndex = &correct
		}
	}
	return views
}

func newPlayerViews(room *models.Room, players []*models.Player) []PlayerView {
	views := make([]PlayerView, 0, len(players))
	for _, p := range players {
		views = append(views, PlayerView{
			ID:       p.ID,
			Name:     p.Name,
			AvatarID: p.AvatarID,
			Score:    p.Score,
			IsHost:   p.ID == room.HostID,
		})
	}
	return views
}

func newRoomView(room *models.Room, players []*models.Player) RoomView {
	return RoomView{
		Code:               room.Code,
		HostID:             room.HostID,
		Settings:           room.Settings,
		HasPassword:        room.PasswordHash != "",
		Players:            newPlayerViews(room, players),
		State:              room.State,
		StateName:          room.State.String(),
		CurrentQuestionIdx: room.CurrentQuestionIndex,
	}
}

// rankPlayers orders players by score, highest first. players must be in
// membership order; equal scores keep that order.
func rankPlayers(players []*models.Player) []*models.Player {
	ranked := append([]*models.Player(nil), players...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func newRankings(players []*models.Player) RankingsPayload {
	ranked := rankPlayers(players)
	entries := make([]RankingEntry, len(ranked))
	for i, p := range ranked {
		entries[i] = rankingEntry(i+1, p)
	}
	return RankingsPayload{Players: entries}
}

func newFinalStandings(players []*models.Player) GameEndedPayload {
	ranked := rankPlayers(players)
	entries := make([]FinalEntry, len(ranked))
	for i, p := range ranked {
		entries[i] = FinalEntry{
			RankingEntry:    rankingEntry(i+1, p),
			WrongCount:      p.WrongCount,
			TotalAnswerTime: p.TotalAnswerTime,
		}
	}
	return GameEndedPayload{Players: entries}
}

func rankingEntry(rank int, p *models.Player) RankingEntry {
	return RankingEntry{
		Rank:         rank,
		ID:           p.ID,
		Name:         p.Name,
		AvatarID:     p.AvatarID,
		Score:        p.Score,
		CorrectCount: p.CorrectCount,
	}
}
