package services

import (
	"fmt"
	"math"
)

const (
	BaseCorrectScore = 50
	TimeBonusMax     = 20
	MinScore         = -50
	RarityBonusMax   = 30
)

// AnswerOutcome is everything a scoring rule may look at.
type AnswerOutcome struct {
	Correct          bool
	AnswerTime       float64 // seconds
	QuestionDuration float64 // seconds
	// ChoiceRate is the share (0..1) of already-answered players who picked the
	// same option. Only RarityScorer reads it.
	ChoiceRate float64
}

// Scorer turns an answer outcome into a score delta.
type Scorer interface {
	ScoreDelta(o AnswerOutcome) int
}

// NewScorer returns the scoring strategy registered under name.
func NewScorer(name string) (Scorer, error) {
	switch name {
	case "", "live":
		return LiveScorer{}, nil
	case "rarity":
		return RarityScorer{}, nil
	default:
		return nil, fmt.Errorf("unknown scoring strategy %q", name)
	}
}

// LiveScorer: correct answers earn the base score plus a speed bonus, wrong
// answers cost a flat MinScore.
type LiveScorer struct{}

func (LiveScorer) ScoreDelta(o AnswerOutcome) int {
	if !o.Correct {
		return MinScore
	}
	return BaseCorrectScore + TimeBonus(o.AnswerTime, o.QuestionDuration)
}

// TimeBonus is round((1 - answerTime/duration) * TimeBonusMax), never negative.
func TimeBonus(answerTime, duration float64) int {
	if duration <= 0 {
		return 0
	}
	bonus := math.Round((1 - answerTime/duration) * TimeBonusMax)
	if bonus < 0 {
		return 0
	}
	if bonus > TimeBonusMax {
		return TimeBonusMax
	}
	return int(bonus)
}

// RarityScorer shapes both outcomes by speed and rewards correct answers that
// few other players chose.
type RarityScorer struct{}

func (RarityScorer) ScoreDelta(o AnswerOutcome) int {
	shape := 0.0
	if o.QuestionDuration > 0 {
		ratio := math.Min(math.Max(o.AnswerTime/o.QuestionDuration, 0), 1)
		shape = (0.5 - ratio) * 2 * TimeBonusMax
	}

	if !o.Correct {
		// quick wrong answers cost more than slow ones
		return MinScore - int(math.Round(shape))
	}

	rate := math.Min(math.Max(o.ChoiceRate, 0), 1)
	rarity := (1 - rate) * RarityBonusMax
	return BaseCorrectScore + int(math.Round(shape+rarity))
}
