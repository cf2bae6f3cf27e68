package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vocabquiz/models"
	"vocabquiz/store"
)

// startedRoom creates a room with the given extra players and moves it into
// its first QUESTION.
func startedRoom(t *testing.T, env *testEnv, settings *models.RoomSettings, names ...string) (string, []string, []*fakeConn) {
	t.Helper()
	host := &fakeConn{}
	created := env.createRoom(t, host, settings)
	ids := []string{created.PlayerID}
	conns := []*fakeConn{host}
	for _, name := range names {
		conn := &fakeConn{}
		ids = append(ids, env.joinRoom(t, conn, created.Code, name).PlayerID)
		conns = append(conns, conn)
	}
	env.startGame(t, created.Code, created.PlayerID)
	if state := env.advance(t, created.Code, 3*time.Second); state != models.StateQuestion {
		t.Fatalf("expected QUESTION, got %s", state)
	}
	return created.Code, ids, conns
}

func correctIndex(t *testing.T, env *testEnv, code string) int {
	t.Helper()
	return env.room(t, code).CurrentQuestion().CorrectIndex
}

func wrongIndex(t *testing.T, env *testEnv, code string) int {
	t.Helper()
	return (correctIndex(t, env, code) + 1) % env.room(t, code).Settings.OptionCount
}

func TestSessionScenarioSingleQuestion(t *testing.T) {
	env := newTestEnv(t, DefaultPhaseTimings(), true)
	scheduler := NewScheduler(env.service, time.Second, time.Second, discardLogger())
	ctx := context.Background()

	host := &fakeConn{}
	created := env.createRoom(t, host, &models.RoomSettings{QuestionDuration: 30, TotalQuestions: 1})
	env.startGame(t, created.Code, created.PlayerID)
	code := created.Code

	env.clock.Advance(3 * time.Second)
	scheduler.Tick(ctx)
	var state GameStatePayload
	host.last(t, EventGameStateChanged, &state)
	if state.State != models.StateQuestion || state.RemainingTime != 30 {
		t.Fatalf("expected QUESTION with 30s, got %+v", state)
	}

	result, err := env.answer(code, created.PlayerID, correctIndex(t, env, code), 5)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !result.Correct || result.ScoreChange != 67 || result.NewScore != 67 {
		t.Fatalf("expected +67, got %+v", result)
	}

	env.clock.Advance(30 * time.Second)
	scheduler.Tick(ctx)
	host.last(t, EventGameStateChanged, &state)
	if state.State != models.StateAnswerReveal || state.RemainingTime != 0 {
		t.Fatalf("expected ANSWER_REVEAL with 0s, got %+v", state)
	}

	env.clock.Advance(5 * time.Second)
	scheduler.Tick(ctx)
	if got := env.room(t, code).State; got != models.StateRanking {
		t.Fatalf("expected RANKING after the last reveal, got %s", got)
	}

	env.clock.Advance(10 * time.Second)
	scheduler.Tick(ctx)
	if got := env.room(t, code).State; got != models.StateFinal {
		t.Fatalf("expected FINAL, got %s", got)
	}

	var ended GameEndedPayload
	if !host.last(t, EventGameEnded, &ended) {
		t.Fatalf("expected gameEnded, got %v", host.types(t))
	}
	if len(ended.Players) != 1 {
		t.Fatalf("expected one standing, got %+v", ended.Players)
	}
	p := ended.Players[0]
	if p.Score != 67 || p.Rank != 1 || p.CorrectCount != 1 || p.WrongCount != 0 || p.TotalAnswerTime != 5 {
		t.Fatalf("unexpected final standing %+v", p)
	}

	if report := scheduler.Tick(ctx); report.Rooms != 0 {
		t.Fatalf("expected FINAL room to leave the active set, got %+v", report)
	}
}

func TestConcurrentDuplicateAnswerScoresOnce(t *testing.T) {
	env := newTestEnv(t, DefaultPhaseTimings(), true)
	code, ids, _ := startedRoom(t, env, nil)
	index := correctIndex(t, env, code)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.answer(code, ids[0], index, 0)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	accepted, duplicates := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrDuplicateSubmission):
			duplicates++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if accepted != 1 || duplicates != attempts-1 {
		t.Fatalf("expected 1 accepted and %d duplicates, got %d and %d", attempts-1, accepted, duplicates)
	}

	player := env.player(t, ids[0])
	if player.Score != 70 || player.CorrectCount != 1 {
		t.Fatalf("expected a single +70, got score=%d correct=%d", player.Score, player.CorrectCount)
	}
}

func TestSubmitAnswerPreconditions(t *testing.T) {
	env := newTestEnv(t, DefaultPhaseTimings(), true)
	ctx := context.Background()

	lobby := env.createRoom(t, &fakeConn{}, nil)
	code, ids, _ := startedRoom(t, env, nil)

	if _, err := env.answer("NOPE00", ids[0], 0, 1); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if _, err := env.answer(lobby.Code, lobby.PlayerID, 0, 1); !errors.Is(err, ErrNotAcceptingAnswers) {
		t.Fatalf("expected ErrNotAcceptingAnswers in LOBBY, got %v", err)
	}
	if _, err := env.answer(code, "ghost", 0, 1); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
	if _, err := env.answer(code, lobby.PlayerID, 0, 1); !errors.Is(err, ErrPlayerNotInRoom) {
		t.Fatalf("expected ErrPlayerNotInRoom, got %v", err)
	}
	if _, err := env.answer(code, ids[0], 99, 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for an out of range option, got %v", err)
	}
	if _, err := env.service.SubmitAnswer(ctx, nil, AnswerRequest{RoomCode: code, PlayerID: ids[0]}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without answerIndex, got %v", err)
	}

	if player := env.player(t, ids[0]); player.Score != 0 || player.AnsweredIndex != nil {
		t.Fatalf("rejected answers must not touch the player, got %+v", player)
	}

	env.advance(t, code, 30*time.Second)
	if _, err := env.answer(code, ids[0], 0, 1); !errors.Is(err, ErrNotAcceptingAnswers) {
		t.Fatalf("expected ErrNotAcceptingAnswers after the question closed, got %v", err)
	}
}

func TestWrongAnswerCostsFlatPenalty(t *testing.T) {
	env := newTestEnv(t, DefaultPhaseTimings(), true)
	code, ids, _ := startedRoom(t, env, nil)

	result, err := env.answer(code, ids[0], wrongIndex(t, env, code), 0)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if result.Correct || result.ScoreChange != MinScore {
		t.Fatalf("expected %d, got %+v", MinScore, result)
	}
	player := env.player(t, ids[0])
	if player.WrongCount != 1 || player.CorrectCount != 0 || player.Score != MinScore {
		t.Fatalf("unexpected player %+v", player)
	}
}

func TestServerGradingIgnoresClientClaim(t *testing.T) {
	ctx := context.Background()
	claimed := true

	verified := newTestEnv(t, DefaultPhaseTimings(), true)
	code, ids, _ := startedRoom(t, verified, nil)
	wrong := wrongIndex(t, verified, code)
	result, err := verified.service.SubmitAnswer(ctx, nil, AnswerRequest{RoomCode: code, PlayerID: ids[0], AnswerIndex: &wrong, IsCorrect: &claimed})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if result.Correct {
		t.Fatalf("expected the stored answer to win over the client's claim")
	}

	trusting := newTestEnv(t, DefaultPhaseTimings(), false)
	code, ids, _ = startedRoom(t, trusting, nil)
	wrong = wrongIndex(t, trusting, code)
	result, err = trusting.service.SubmitAnswer(ctx, nil, AnswerRequest{RoomCode: code, PlayerID: ids[0], AnswerIndex: &wrong, IsCorrect: &claimed})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !result.Correct {
		t.Fatalf("expected the client's claim to be trusted with verification off")
	}
}

func TestAnswerTimeDefaultsToElapsed(t *testing.T) {
	env := newTestEnv(t, DefaultPhaseTimings(), true)
	code, ids, _ := startedRoom(t, env, &models.RoomSettings{QuestionDuration: 60})
	index := correctIndex(t, env, code)

	env.clock.Advance(30 * time.Second)
	result, err := env.service.SubmitAnswer(context.Background(), nil, AnswerRequest{RoomCode: code, PlayerID: ids[0], AnswerIndex: &index})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if result.ScoreChange != 60 {
		t.Fatalf("expected 50 + 10 at half time, got %d", result.ScoreChange)
	}
	if got := env.player(t, ids[0]).TotalAnswerTime; got != 30 {
		t.Fatalf("expected 30s recorded, got %v", got)
	}
}

func TestLastAnswerTriggersEarlyRankings(t *testing.T) {
	env := newTestEnv(t, DefaultPhaseTimings(), true)
	code, ids, conns := startedRoom(t, env, nil, "ana")
	for _, c := range conns {
		c.reset()
	}

	if _, err := env.answer(code, ids[0], correctIndex(t, env, code), 2); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	var answered PlayerAnsweredPayload
	if !conns[1].last(t, EventPlayerAnswered, &answered) || answered.PlayerID != ids[0] || answered.PlayerName != "host" {
		t.Fatalf("expected playerAnswered for host, got %+v", answered)
	}
	if conns[1].count(t, EventRankings) != 0 {
		t.Fatalf("rankings must wait for every player")
	}

	if _, err := env.answer(code, ids[1], wrongIndex(t, env, code), 3); err != nil {
		t.Fatalf("second answer: %v", err)
	}
	var rankings RankingsPayload
	if !conns[0].last(t, EventRankings, &rankings) {
		t.Fatalf("expected early rankings, got %v", conns[0].types(t))
	}
	if len(rankings.Players) != 2 || rankings.Players[0].ID != ids[0] || rankings.Players[1].Score != MinScore {
		t.Fatalf("unexpected rankings %+v", rankings)
	}
	if env.room(t, code).State != models.StateQuestion {
		t.Fatalf("early rankings must not change the state")
	}
}

func TestAnswerMarkerResetsForNextQuestion(t *testing.T) {
	env := newTestEnv(t, DefaultPhaseTimings(), true)
	code, ids, _ := startedRoom(t, env, &models.RoomSettings{QuestionDuration: 30, TotalQuestions: 2})

	if _, err := env.answer(code, ids[0], correctIndex(t, env, code), 0); err != nil {
		t.Fatalf("first question: %v", err)
	}
	env.advance(t, code, 30*time.Second)
	if state := env.advance(t, code, 5*time.Second); state != models.StateCountdown {
		t.Fatalf("expected COUNTDOWN for question 2, got %s", state)
	}
	if env.player(t, ids[0]).AnsweredIndex != nil {
		t.Fatalf("expected answer marker cleared")
	}
	env.advance(t, code, 3*time.Second)

	result, err := env.answer(code, ids[0], correctIndex(t, env, code), 0)
	if err != nil {
		t.Fatalf("second question: %v", err)
	}
	if result.NewScore != 140 {
		t.Fatalf("expected 140 after two fast answers, got %d", result.NewScore)
	}
}

func TestRarityScorerUsesChoiceRate(t *testing.T) {
	env := newTestEnv(t, DefaultPhaseTimings(), true)
	env.service.scorer = RarityScorer{}
	code, ids, _ := startedRoom(t, env, nil, "ana")
	index := correctIndex(t, env, code)

	first, err := env.answer(code, ids[0], index, 15)
	if err != nil {
		t.Fatalf("first answer: %v", err)
	}
	second, err := env.answer(code, ids[1], index, 15)
	if err != nil {
		t.Fatalf("second answer: %v", err)
	}
	if first.ScoreChange != BaseCorrectScore+RarityBonusMax || second.ScoreChange != BaseCorrectScore {
		t.Fatalf("expected the lone pick to earn the rarity bonus, got %d and %d", first.ScoreChange, second.ScoreChange)
	}
}

// hookedStore runs onGetPlayer once, the next time a player is read.
type hookedStore struct {
	*store.MemoryStore
	mu          sync.Mutex
	onGetPlayer func(id string)
}

func (s *hookedStore) arm(fn func(id string)) {
	s.mu.Lock()
	s.onGetPlayer = fn
	s.mu.Unlock()
}

func (s *hookedStore) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	s.mu.Lock()
	fn := s.onGetPlayer
	s.onGetPlayer = nil
	s.mu.Unlock()
	if fn != nil {
		fn(id)
	}
	return s.MemoryStore.GetPlayer(ctx, id)
}

func TestTransitionWaitsForAnswerInProgress(t *testing.T) {
	var hooked *hookedStore
	env := newWrappedTestEnv(t, DefaultPhaseTimings(), true, func(m *store.MemoryStore) store.RoomStore {
		hooked = &hookedStore{MemoryStore: m}
		return hooked
	})
	code, ids, conns := startedRoom(t, env, &models.RoomSettings{QuestionDuration: 30, TotalQuestions: 2}, "ana")
	index := correctIndex(t, env, code)
	conns[0].reset()

	done := make(chan error, 1)
	hooked.arm(func(string) {
		// The question times out while the answer is being scored.
		env.clock.Advance(30 * time.Second)
		go func() {
			done <- env.service.AdvanceRoom(context.Background(), code)
		}()
		time.Sleep(20 * time.Millisecond)
	})

	result, err := env.answer(code, ids[0], index, 5)
	if err != nil {
		t.Fatalf("expected the answer to be accepted, got %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("advance room: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the transition to finish once the answer was scored")
	}

	if state := env.room(t, code).State; state != models.StateAnswerReveal {
		t.Fatalf("expected ANSWER_REVEAL, got %s", state)
	}
	var rankings RankingsPayload
	if !conns[0].last(t, EventRankings, &rankings) {
		t.Fatalf("expected reveal rankings, got %v", conns[0].types(t))
	}
	if len(rankings.Players) != 2 || rankings.Players[0].ID != ids[0] || rankings.Players[0].Score != result.NewScore {
		t.Fatalf("expected reveal rankings to include the accepted answer, got %+v", rankings)
	}

	if _, err := env.answer(code, ids[1], index, 1); !errors.Is(err, ErrNotAcceptingAnswers) {
		t.Fatalf("expected ErrNotAcceptingAnswers after the reveal, got %v", err)
	}
}

func TestEarlyRankingsSentOncePerQuestion(t *testing.T) {
	env := newTestEnv(t, DefaultPhaseTimings(), true)
	code, ids, conns := startedRoom(t, env, &models.RoomSettings{QuestionDuration: 30, TotalQuestions: 2}, "ana", "ben", "cy")
	index := correctIndex(t, env, code)
	for _, c := range conns {
		c.reset()
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := env.answer(code, id, index, 1); err != nil {
				errs <- err
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("answer: %v", err)
	}

	for i, c := range conns {
		if n := c.count(t, EventRankings); n != 1 {
			t.Fatalf("expected one rankings event for player %d, got %d", i, n)
		}
	}
	if !env.room(t, code).RankingsShownFor(0) {
		t.Fatalf("expected the room to remember early rankings for question 0")
	}
}
