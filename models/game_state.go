package models

// GameState is the phase a room is in. The ordering is the order a game moves through.
type GameState int

const (
	StateLobby GameState = iota
	StateCountdown
	StateQuestion
	StateAnswerReveal
	StateRanking
	StateFinal
)

var gameStateNames = [...]string{
	StateLobby:        "LOBBY",
	StateCountdown:    "COUNTDOWN",
	StateQuestion:     "QUESTION",
	StateAnswerReveal: "ANSWER_REVEAL",
	StateRanking:      "RANKING",
	StateFinal:        "FINAL",
}

func (s GameState) String() string {
	if s < 0 || int(s) >= len(gameStateNames) {
		return "UNKNOWN"
	}
	return gameStateNames[s]
}

// InPlay reports whether the state belongs to the question loop, where the
// current question index must point at a real question.
func (s GameState) InPlay() bool {
	return s == StateCountdown || s == StateQuestion || s == StateAnswerReveal
}
