package models

// Question is one multiple-choice vocabulary item handed out to a room.
type Question struct {
	Word         string   `json:"word"`
	Meaning      string   `json:"meaning"` // the correct option text
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Level        int      `json:"level"`
}

// IsCorrect checks a chosen option against the stored answer.
func (q *Question) IsCorrect(answerIndex int) bool {
	return answerIndex == q.CorrectIndex
}
