package services

import (
	"time"

	"vocabquiz/models"
)

// PhaseTimings holds the fixed phase lengths in seconds and the
// ANSWER_REVEAL policy. With RevealAutoAdvance off the room waits in
// ANSWER_REVEAL until the host sends "next".
type PhaseTimings struct {
	CountdownSeconds  int
	RevealHoldSeconds int
	RevealAutoAdvance bool
	RankingSeconds    int
}

func DefaultPhaseTimings() PhaseTimings {
	return PhaseTimings{
		CountdownSeconds:  3,
		RevealHoldSeconds: 5,
		RevealAutoAdvance: true,
		RankingSeconds:    10,
	}
}

// Phase is the contract of one GameState: how long it lasts and whether it
// ends on its own.
type Phase struct {
	Duration    int
	AutoAdvance bool
}

// Step is the outcome of evaluating a room at a point in time.
type Step struct {
	State         models.GameState
	RemainingTime int
	QuestionIndex int
	Advanced      bool
	// ResetAnswers is set when moving on to a new question.
	ResetAnswers bool
}

// StateMachine is the single source of truth for phase transitions. It does no
// I/O, so the scheduler and on-demand queries get identical answers.
type StateMachine struct {
	timings PhaseTimings
}

func NewStateMachine(timings PhaseTimings) *StateMachine {
	return &StateMachine{timings: timings}
}

// Phase returns the duration and auto-advance flag for state.
func (m *StateMachine) Phase(state models.GameState, settings models.RoomSettings) Phase {
	switch state {
	case models.StateCountdown:
		return Phase{Duration: m.timings.CountdownSeconds, AutoAdvance: true}
	case models.StateQuestion:
		return Phase{Duration: settings.QuestionDuration, AutoAdvance: true}
	case models.StateAnswerReveal:
		return Phase{Duration: m.timings.RevealHoldSeconds, AutoAdvance: m.timings.RevealAutoAdvance}
	case models.StateRanking:
		return Phase{Duration: m.timings.RankingSeconds, AutoAdvance: true}
	default:
		return Phase{}
	}
}

// Evaluate decides what a room in state, having held it for elapsedSeconds,
// should look like now. At most one transition is taken per call.
func (m *StateMachine) Evaluate(state models.GameState, settings models.RoomSettings, questionIndex, elapsedSeconds int) Step {
	phase := m.Phase(state, settings)
	remaining := phase.Duration - elapsedSeconds
	if remaining < 0 {
		remaining = 0
	}

	if remaining > 0 || !phase.AutoAdvance {
		return Step{State: state, RemainingTime: remaining, QuestionIndex: questionIndex}
	}

	step, ok := m.Advance(state, settings, questionIndex)
	if !ok {
		return Step{State: state, RemainingTime: 0, QuestionIndex: questionIndex}
	}
	return step
}

// Advance returns the transition out of state regardless of elapsed time. It
// reports false for FINAL, which never exits.
func (m *StateMachine) Advance(state models.GameState, settings models.RoomSettings, questionIndex int) (Step, bool) {
	next := Step{QuestionIndex: questionIndex, Advanced: true}

	switch state {
	case models.StateLobby:
		next.State = models.StateCountdown
		next.QuestionIndex = 0
		next.ResetAnswers = true
	case models.StateCountdown:
		next.State = models.StateQuestion
	case models.StateQuestion:
		next.State = models.StateAnswerReveal
	case models.StateAnswerReveal:
		if questionIndex >= settings.TotalQuestions-1 {
			next.State = models.StateRanking
		} else {
			next.State = models.StateCountdown
			next.QuestionIndex = questionIndex + 1
			next.ResetAnswers = true
		}
	case models.StateRanking:
		next.State = models.StateFinal
	default:
		return Step{}, false
	}

	next.RemainingTime = m.Phase(next.State, settings).Duration
	if next.State == models.StateAnswerReveal {
		// the reveal is shown with no countdown
		next.RemainingTime = 0
	}
	return next, true
}

// ElapsedSeconds is the whole number of seconds between start and now, never negative.
func ElapsedSeconds(start, now time.Time) int {
	if start.IsZero() || now.Before(start) {
		return 0
	}
	return int(now.Sub(start) / time.Second)
}
