package services

import (
	"context"
	"fmt"

	"vocabquiz/models"
)

// SubmitAnswer scores one answer for the current question. Only the first
// answer a player gives for a question index is accepted. The room is held
// shared from the state check until the score is saved, so no transition can
// close the question in between while other players still answer in parallel.
func (s *GameService) SubmitAnswer(ctx context.Context, conn Conn, req AnswerRequest) (*AnswerResultPayload, error) {
	if req.AnswerIndex == nil || *req.AnswerIndex < 0 {
		return nil, fmt.Errorf("answerIndex is required: %w", ErrInvalidInput)
	}
	code := NormalizeRoomCode(req.RoomCode)

	unlockRoom, err := s.roomLocks.RLock(ctx, code)
	if err != nil {
		return nil, err
	}
	room, err := s.getRoom(ctx, code)
	if err != nil {
		unlockRoom()
		return nil, err
	}
	if room.State != models.StateQuestion {
		unlockRoom()
		return nil, ErrNotAcceptingAnswers
	}
	playerID, err := s.resolveRequester(conn, req.PlayerID)
	if err != nil {
		unlockRoom()
		return nil, err
	}

	unlockPlayer, err := s.playerLocks.Lock(ctx, playerID)
	if err != nil {
		unlockRoom()
		return nil, err
	}
	result, player, err := s.scoreLocked(ctx, room, playerID, req)
	unlockPlayer()
	unlockRoom()
	if err != nil {
		return nil, err
	}

	s.registry.Send(conn, NewEvent(EventAnswerResult, result))
	s.registry.BroadcastToRoom(room, NewEvent(EventPlayerAnswered, PlayerAnsweredPayload{
		PlayerID:   player.ID,
		PlayerName: player.Name,
	}))
	s.revealIfEveryoneAnswered(ctx, room.Code, room.CurrentQuestionIndex)
	return result, nil
}

// scoreLocked reads the player under its lock so the marker check and the
// score update see the same record. The caller holds the room shared and the
// player exclusively.
func (s *GameService) scoreLocked(ctx context.Context, room *models.Room, playerID string, req AnswerRequest) (*AnswerResultPayload, *models.Player, error) {
	player, err := s.getPlayer(ctx, playerID)
	if err != nil {
		return nil, nil, err
	}
	if player.RoomCode != room.Code || !room.HasMember(player.ID) {
		return nil, nil, ErrPlayerNotInRoom
	}
	if player.HasAnswered(room.CurrentQuestionIndex) {
		return nil, nil, ErrAlreadyAnswered
	}

	answerIndex := *req.AnswerIndex
	question := room.CurrentQuestion()
	if question != nil && answerIndex >= len(question.Options) {
		return nil, nil, fmt.Errorf("answerIndex %d out of range: %w", answerIndex, ErrInvalidInput)
	}

	duration := float64(room.Settings.QuestionDuration)
	outcome := AnswerOutcome{
		Correct:          s.gradeAnswer(room, player, question, answerIndex, req.IsCorrect),
		AnswerTime:       s.answerTime(room, req.AnswerTime),
		QuestionDuration: duration,
	}
	if _, ok := s.scorer.(RarityScorer); ok {
		rate, err := s.choiceRate(ctx, room, player.ID, answerIndex)
		if err != nil {
			return nil, nil, err
		}
		outcome.ChoiceRate = rate
	}
	delta := s.scorer.ScoreDelta(outcome)

	questionIndex := room.CurrentQuestionIndex
	player.Score += delta
	if outcome.Correct {
		player.CorrectCount++
	} else {
		player.WrongCount++
	}
	player.TotalAnswerTime += outcome.AnswerTime
	player.AnsweredIndex = &questionIndex
	player.LastAnswerIndex = &answerIndex
	if err := s.store.SavePlayer(ctx, player); err != nil {
		return nil, nil, fmt.Errorf("failed to save player %s: %w", player.ID, err)
	}

	s.logger.Debug("answer scored", "room", room.Code, "player", player.ID,
		"question", questionIndex, "correct", outcome.Correct, "delta", delta)

	return &AnswerResultPayload{
		Correct:     outcome.Correct,
		ScoreChange: delta,
		NewScore:    player.Score,
		AnswerIndex: answerIndex,
	}, player, nil
}

func (s *GameService) gradeAnswer(room *models.Room, player *models.Player, question *models.Question, answerIndex int, claimed *bool) bool {
	if s.verifyAnswers && question != nil {
		correct := question.IsCorrect(answerIndex)
		if claimed != nil && *claimed != correct {
			s.logger.Warn("client correctness disagrees with question", "room", room.Code, "player", player.ID,
				"question", room.CurrentQuestionIndex, "claimed", *claimed)
		}
		return correct
	}
	if claimed != nil {
		return *claimed
	}
	return question != nil && question.IsCorrect(answerIndex)
}

// answerTime uses the reported latency or, without one, the time since the
// question opened. Either way it is clamped to the question duration.
func (s *GameService) answerTime(room *models.Room, reported *float64) float64 {
	var t float64
	if reported != nil {
		t = *reported
	} else {
		t = s.now().Sub(room.StateStartTime).Seconds()
	}
	limit := float64(room.Settings.QuestionDuration)
	if t < 0 {
		return 0
	}
	if limit > 0 && t > limit {
		return limit
	}
	return t
}

// choiceRate is the share of players who already answered the current
// question with the same option.
func (s *GameService) choiceRate(ctx context.Context, room *models.Room, playerID string, answerIndex int) (float64, error) {
	players, err := s.store.ListPlayers(ctx, room)
	if err != nil {
		return 0, fmt.Errorf("failed to list players: %w", err)
	}
	answered, same := 0, 0
	for _, p := range players {
		if p.ID == playerID || !p.HasAnswered(room.CurrentQuestionIndex) {
			continue
		}
		answered++
		if p.LastAnswerIndex != nil && *p.LastAnswerIndex == answerIndex {
			same++
		}
	}
	if answered == 0 {
		return 0, nil
	}
	return float64(same) / float64(answered), nil
}

// revealIfEveryoneAnswered broadcasts rankings once per question, as soon as
// the last member has answered. The state itself still changes on the
// scheduler's clock.
func (s *GameService) revealIfEveryoneAnswered(ctx context.Context, code string, questionIndex int) {
	unlock, err := s.roomLocks.Lock(ctx, code)
	if err != nil {
		s.logger.Warn("failed to check answers", "room", code, "error", err)
		return
	}
	defer unlock()

	room, err := s.getRoom(ctx, code)
	if err != nil {
		return
	}
	if room.State != models.StateQuestion || room.CurrentQuestionIndex != questionIndex || room.RankingsShownFor(questionIndex) {
		return
	}
	players, err := s.store.ListPlayers(ctx, room)
	if err != nil {
		s.logger.Warn("failed to check answers", "room", code, "error", err)
		return
	}
	if len(players) == 0 {
		return
	}
	for _, p := range players {
		if !p.HasAnswered(questionIndex) {
			return
		}
	}

	room.EarlyRankingsIndex = &questionIndex
	if err := s.store.SaveRoom(ctx, room); err != nil {
		s.logger.Warn("failed to mark early rankings", "room", code, "error", err)
		return
	}
	s.registry.BroadcastToRoom(room, NewEvent(EventRankings, newRankings(players)))
}
