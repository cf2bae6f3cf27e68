package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	mrand "math/rand/v2"
	"strings"
	"time"

	"vocabquiz/models"
	"vocabquiz/store"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoomCodeLength = 6
	AvatarCount    = 12

	codeAttempts = 10
	sinkTimeout  = 10 * time.Second
)

// DefaultRoomSettings fills in whatever a create request leaves out.
func DefaultRoomSettings() models.RoomSettings {
	return models.RoomSettings{
		QuestionDuration: 30,
		OptionCount:      4,
		Level:            1,
		TotalQuestions:   10,
	}
}

type GameServiceConfig struct {
	Store    store.RoomStore
	Bank     QuestionBank
	Registry *Registry
	Machine  *StateMachine
	Scorer   Scorer
	Sink     ResultSink
	Tickets  *TicketIssuer
	Logger   *slog.Logger
	// VerifyAnswers grades answers against the stored question instead of
	// trusting the client's isCorrect flag.
	VerifyAnswers bool
}

// GameService owns every room mutation. Room records are changed only while
// holding that room's lock; a player's score and answer marker only while
// holding that player's lock. Room locks are always taken before player locks.
type GameService struct {
	store         store.RoomStore
	bank          QuestionBank
	registry      *Registry
	machine       *StateMachine
	scorer        Scorer
	sink          ResultSink
	tickets       *TicketIssuer
	logger        *slog.Logger
	validate      *validator.Validate
	verifyAnswers bool

	roomLocks   *KeyedMutex
	playerLocks *KeyedMutex

	now func() time.Time
}

func NewGameService(cfg GameServiceConfig) *GameService {
	s := &GameService{
		store:         cfg.Store,
		bank:          cfg.Bank,
		registry:      cfg.Registry,
		machine:       cfg.Machine,
		scorer:        cfg.Scorer,
		sink:          cfg.Sink,
		tickets:       cfg.Tickets,
		logger:        cfg.Logger,
		validate:      validator.New(),
		verifyAnswers: cfg.VerifyAnswers,
		roomLocks:     NewKeyedMutex(),
		playerLocks:   NewKeyedMutex(),
		now:           time.Now,
	}
	if s.machine == nil {
		s.machine = NewStateMachine(DefaultPhaseTimings())
	}
	if s.scorer == nil {
		s.scorer = LiveScorer{}
	}
	if s.sink == nil {
		s.sink = MultiSink{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *GameService) Registry() *Registry {
	return s.registry
}

// CreateRoom opens a room in LOBBY with the requester as host and replies
// roomCreated to conn.
func (s *GameService) CreateRoom(ctx context.Context, conn Conn, req CreateRequest) (*RoomCreatedPayload, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrInvalidInput)
	}

	if err := s.ensureConnectionFree(conn); err != nil {
		return nil, err
	}
	settings, err := s.resolveSettings(req.Settings)
	if err != nil {
		return nil, err
	}

	var passwordHash string
	if req.HashedPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.HashedPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("invalid password: %w", errors.Join(ErrInvalidInput, err))
		}
		passwordHash = string(hash)
	}

	code, unlock, err := s.reserveRoomCode(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	host := &models.Player{
		ID:       uuid.NewString(),
		RoomCode: code,
		Name:     name,
		AvatarID: pickAvatar(req.AvatarID),
		JoinedAt: now,
	}
	room := &models.Room{
		Code:           code,
		HostID:         host.ID,
		Settings:       settings,
		PasswordHash:   passwordHash,
		State:          models.StateLobby,
		StateStartTime: now,
		LastUsed:       now,
		CreatedAt:      now,
	}
	if !req.Spectate {
		room.PlayerIDs = []string{host.ID}
	}

	if err := s.store.SavePlayer(ctx, host); err != nil {
		return nil, fmt.Errorf("failed to save host: %w", err)
	}
	if err := s.store.SaveRoom(ctx, room); err != nil {
		s.deletePlayerQuietly(ctx, host.ID)
		return nil, fmt.Errorf("failed to save room: %w", err)
	}

	s.registry.Register(host.ID, conn)

	players := []*models.Player{host}
	if req.Spectate {
		players = nil
	}
	payload := &RoomCreatedPayload{
		RoomView: newRoomView(room, players),
		PlayerID: host.ID,
		Ticket:   s.issueTicket(host.ID, code),
	}
	s.registry.Send(conn, NewEvent(EventRoomCreated, payload))

	s.logger.Info("room created", "room", code, "host", host.ID, "spectate", req.Spectate)
	return payload, nil
}

// JoinRoom adds a new player to a room that is still in LOBBY.
func (s *GameService) JoinRoom(ctx context.Context, conn Conn, req JoinRequest) (*RoomJoinedPayload, error) {
	code := NormalizeRoomCode(req.RoomCode)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrInvalidInput)
	}
	if err := s.ensureConnectionFree(conn); err != nil {
		return nil, err
	}

	unlock, err := s.roomLocks.Lock(ctx, code)
	if err != nil {
		return nil, err
	}
	defer unlock()

	room, err := s.getRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.Started || room.State != models.StateLobby {
		return nil, ErrGameAlreadyStarted
	}
	if room.PasswordHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(req.HashedPassword)) != nil {
			return nil, ErrWrongPassword
		}
	}

	players, err := s.store.ListPlayers(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	now := s.now()
	player := &models.Player{
		ID:       uuid.NewString(),
		RoomCode: code,
		Name:     name,
		AvatarID: pickAvatar(req.AvatarID),
		JoinedAt: now,
	}
	room.PlayerIDs = append(room.PlayerIDs, player.ID)
	room.LastUsed = now

	if err := s.store.SavePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to save player: %w", err)
	}
	if err := s.store.SaveRoom(ctx, room); err != nil {
		s.deletePlayerQuietly(ctx, player.ID)
		return nil, fmt.Errorf("failed to save room: %w", err)
	}

	s.registry.Register(player.ID, conn)

	players = append(players, player)
	payload := &RoomJoinedPayload{
		RoomView: newRoomView(room, players),
		PlayerID: player.ID,
		Ticket:   s.issueTicket(player.ID, code),
	}
	s.registry.Send(conn, NewEvent(EventRoomJoined, payload))
	s.registry.BroadcastToRoom(room, NewEvent(EventPlayersUpdate, PlayersUpdatePayload{
		Players: payload.Players,
		HostID:  room.HostID,
	}))

	s.logger.Info("player joined", "room", code, "player", player.ID, "members", len(room.PlayerIDs))
	return payload, nil
}

// LeaveRoom removes the requester from the room. The room is disbanded when
// nobody is left.
func (s *GameService) LeaveRoom(ctx context.Context, conn Conn, req LeaveRequest) error {
	playerID, err := s.resolveRequester(conn, req.PlayerID)
	if err != nil {
		return err
	}
	code := NormalizeRoomCode(req.RoomCode)

	unlock, err := s.roomLocks.Lock(ctx, code)
	if err != nil {
		return err
	}
	defer unlock()

	room, err := s.getRoom(ctx, code)
	if err != nil {
		return err
	}
	player, err := s.getPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	if player.RoomCode != room.Code {
		return ErrPlayerNotInRoom
	}

	if err := s.removePlayerLocked(ctx, room, player); err != nil {
		return err
	}
	s.registry.Send(conn, NewEvent(EventLeftRoom, map[string]string{"roomCode": room.Code}))
	s.registry.Remove(player.ID)
	return nil
}

// HandleDisconnect runs the leave path for whoever owned conn.
func (s *GameService) HandleDisconnect(ctx context.Context, conn Conn) {
	playerID, ok := s.registry.RemoveByConnection(conn)
	if !ok {
		return
	}
	player, err := s.getPlayer(ctx, playerID)
	if err != nil {
		return
	}

	unlock, err := s.roomLocks.Lock(ctx, player.RoomCode)
	if err != nil {
		s.logger.Warn("disconnect cleanup skipped", "player", playerID, "error", err)
		return
	}
	defer unlock()

	room, err := s.getRoom(ctx, player.RoomCode)
	if err != nil {
		s.deletePlayerQuietly(ctx, playerID)
		return
	}
	if err := s.removePlayerLocked(ctx, room, player); err != nil {
		s.logger.Warn("disconnect cleanup failed", "room", room.Code, "player", playerID, "error", err)
		return
	}
	s.logger.Info("player disconnected", "room", room.Code, "player", playerID)
}

// StartGame moves a LOBBY room into its first COUNTDOWN. Host only.
func (s *GameService) StartGame(ctx context.Context, conn Conn, req RoomActionRequest) error {
	requester, err := s.resolveRequester(conn, req.PlayerID)
	if err != nil {
		return err
	}
	code := NormalizeRoomCode(req.RoomCode)

	unlock, err := s.roomLocks.Lock(ctx, code)
	if err != nil {
		return err
	}
	defer unlock()

	room, err := s.getRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.HostID != requester {
		return ErrNotHost
	}
	if room.Started || room.State != models.StateLobby {
		return ErrGameAlreadyStarted
	}
	if len(room.PlayerIDs) == 0 {
		return ErrNoPlayers
	}

	questions, err := s.bank.Generate(ctx, room.Settings.Level, room.Settings.OptionCount, room.Settings.TotalQuestions)
	if err != nil {
		return fmt.Errorf("failed to generate questions: %w", err)
	}
	if len(questions) == 0 {
		return fmt.Errorf("question bank returned nothing: %w", ErrInvalidInput)
	}

	players, err := s.store.ListPlayers(ctx, room)
	if err != nil {
		return fmt.Errorf("failed to list players: %w", err)
	}
	if err := s.updatePlayers(ctx, players, (*models.Player).ResetStats); err != nil {
		return err
	}

	step, _ := s.machine.Advance(room.State, room.Settings, room.CurrentQuestionIndex)
	room.Questions = questions
	room.Settings.TotalQuestions = len(questions)
	room.Started = true
	room.State = step.State
	room.CurrentQuestionIndex = step.QuestionIndex
	room.StateStartTime = s.now()
	room.LastUsed = room.StateStartTime
	if err := s.store.SaveRoom(ctx, room); err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}

	s.registry.BroadcastToRoom(room, NewEvent(EventQuestions, QuestionsPayload{
		Questions:  newQuestionViews(questions, !s.verifyAnswers),
		TotalCount: len(questions),
	}))
	s.registry.BroadcastToRoom(room, NewEvent(EventGameStateChanged, s.statePayload(room, step.RemainingTime)))
	s.registry.BroadcastToRoom(room, NewEvent(EventQuestionIndex, QuestionIndexPayload{Index: room.CurrentQuestionIndex}))

	s.logger.Info("game started", "room", room.Code, "questions", len(questions), "players", len(players))
	return nil
}

// NextQuestion ends an ANSWER_REVEAL hold on the host's request.
func (s *GameService) NextQuestion(ctx context.Context, conn Conn, req RoomActionRequest) error {
	requester, err := s.resolveRequester(conn, req.PlayerID)
	if err != nil {
		return err
	}
	code := NormalizeRoomCode(req.RoomCode)

	unlock, err := s.roomLocks.Lock(ctx, code)
	if err != nil {
		return err
	}
	defer unlock()

	room, err := s.getRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.HostID != requester {
		return ErrNotHost
	}
	if room.State != models.StateAnswerReveal {
		return ErrCannotAdvance
	}
	step, ok := s.machine.Advance(room.State, room.Settings, room.CurrentQuestionIndex)
	if !ok {
		return ErrCannotAdvance
	}
	return s.applyTransition(ctx, room, step)
}

// Disband closes the room for everyone. Host only.
func (s *GameService) Disband(ctx context.Context, conn Conn, req RoomActionRequest) error {
	requester, err := s.resolveRequester(conn, req.PlayerID)
	if err != nil {
		return err
	}
	code := NormalizeRoomCode(req.RoomCode)

	unlock, err := s.roomLocks.Lock(ctx, code)
	if err != nil {
		return err
	}
	defer unlock()

	room, err := s.getRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.HostID != requester {
		return ErrNotHost
	}
	return s.disbandLocked(ctx, room, "host_disbanded")
}

// SyncState brings the room up to date through the state machine and
// returns its current view. It is the on-demand twin of the scheduler.
func (s *GameService) SyncState(ctx context.Context, code string) (*RoomSnapshot, error) {
	code = NormalizeRoomCode(code)

	unlock, err := s.roomLocks.Lock(ctx, code)
	if err != nil {
		return nil, err
	}
	defer unlock()

	room, err := s.getRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	remaining, err := s.advanceLocked(ctx, room)
	if err != nil {
		return nil, err
	}
	players, err := s.store.ListPlayers(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return &RoomSnapshot{
		GameStatePayload: s.statePayload(room, remaining),
		Room:             newRoomView(room, players),
	}, nil
}

// CheckRoom returns ErrRoomNotFound unless a room with code exists.
func (s *GameService) CheckRoom(ctx context.Context, code string) error {
	_, err := s.getRoom(ctx, NormalizeRoomCode(code))
	return err
}

// AdvanceRoom applies at most one due transition to the room. The scheduler
// calls it once per tick for every active room.
func (s *GameService) AdvanceRoom(ctx context.Context, code string) error {
	unlock, err := s.roomLocks.Lock(ctx, code)
	if err != nil {
		return err
	}
	defer unlock()

	room, err := s.getRoom(ctx, code)
	if err != nil {
		return err
	}
	_, err = s.advanceLocked(ctx, room)
	return err
}

// ActiveRooms lists the codes of rooms the scheduler is responsible for.
func (s *GameService) ActiveRooms(ctx context.Context) ([]string, error) {
	rooms, err := s.store.ListActiveRooms(ctx)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(rooms))
	for _, room := range rooms {
		if room.Active() {
			codes = append(codes, room.Code)
		}
	}
	return codes, nil
}

func (s *GameService) advanceLocked(ctx context.Context, room *models.Room) (int, error) {
	elapsed := ElapsedSeconds(room.StateStartTime, s.now())
	step := s.machine.Evaluate(room.State, room.Settings, room.CurrentQuestionIndex, elapsed)
	if !step.Advanced || !room.Active() {
		return step.RemainingTime, nil
	}
	if err := s.applyTransition(ctx, room, step); err != nil {
		return 0, err
	}
	return step.RemainingTime, nil
}

// applyTransition persists step and broadcasts what the new state calls for.
// The caller holds the room lock.
func (s *GameService) applyTransition(ctx context.Context, room *models.Room, step Step) error {
	prev := room.State

	var players []*models.Player
	var err error
	if step.ResetAnswers || step.State == models.StateAnswerReveal ||
		step.State == models.StateRanking || step.State == models.StateFinal {
		players, err = s.store.ListPlayers(ctx, room)
		if err != nil {
			return fmt.Errorf("failed to list players: %w", err)
		}
	}
	if step.ResetAnswers {
		if err := s.updatePlayers(ctx, players, (*models.Player).ResetAnswer); err != nil {
			return err
		}
	}

	room.State = step.State
	room.CurrentQuestionIndex = step.QuestionIndex
	room.StateStartTime = s.now()
	room.LastUsed = room.StateStartTime
	if err := s.store.SaveRoom(ctx, room); err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}

	s.logger.Debug("room advanced", "room", room.Code, "from", prev, "to", step.State, "question", step.QuestionIndex)

	s.registry.BroadcastToRoom(room, NewEvent(EventGameStateChanged, s.statePayload(room, step.RemainingTime)))
	switch step.State {
	case models.StateCountdown, models.StateQuestion:
		s.registry.BroadcastToRoom(room, NewEvent(EventQuestionIndex, QuestionIndexPayload{Index: room.CurrentQuestionIndex}))
	case models.StateAnswerReveal, models.StateRanking:
		s.registry.BroadcastToRoom(room, NewEvent(EventRankings, newRankings(players)))
	case models.StateFinal:
		standings := newFinalStandings(players)
		s.registry.BroadcastToRoom(room, NewEvent(EventGameEnded, standings))
		s.recordResults(room, standings)
		s.logger.Info("game finished", "room", room.Code, "players", len(players))
	}
	return nil
}

func (s *GameService) recordResults(room *models.Room, standings GameEndedPayload) {
	summary := GameSummary{
		RoomCode:       room.Code,
		Level:          room.Settings.Level,
		TotalQuestions: room.Settings.TotalQuestions,
		FinishedAt:     room.StateStartTime,
		Standings:      standings.Players,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := s.sink.RecordGame(ctx, summary); err != nil {
			s.logger.Error("failed to record game results", "room", summary.RoomCode, "error", err)
		}
	}()
}

// removePlayerLocked drops player from room, hands the host role on and
// disbands the room once it is empty. The caller holds the room lock.
func (s *GameService) removePlayerLocked(ctx context.Context, room *models.Room, player *models.Player) error {
	room.RemoveMember(player.ID)
	wasHost := room.HostID == player.ID

	if len(room.PlayerIDs) == 0 {
		if err := s.store.DeletePlayer(ctx, player.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to delete player: %w", err)
		}
		s.registry.Remove(player.ID)
		return s.disbandLocked(ctx, room, "empty")
	}

	if wasHost {
		room.HostID = room.PlayerIDs[0]
	}
	room.LastUsed = s.now()
	if err := s.store.SaveRoom(ctx, room); err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}
	if err := s.store.DeletePlayer(ctx, player.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("failed to delete player", "player", player.ID, "error", err)
	}

	players, err := s.store.ListPlayers(ctx, room)
	if err != nil {
		return fmt.Errorf("failed to list players: %w", err)
	}
	s.registry.BroadcastToRoom(room, NewEvent(EventPlayerLeft, PlayerLeftPayload{
		PlayerID:   player.ID,
		PlayerName: player.Name,
	}))
	s.registry.BroadcastToRoom(room, NewEvent(EventPlayersUpdate, PlayersUpdatePayload{
		Players: newPlayerViews(room, players),
		HostID:  room.HostID,
	}))

	if wasHost {
		s.logger.Info("host changed", "room", room.Code, "host", room.HostID)
	}
	s.logger.Info("player left", "room", room.Code, "player", player.ID, "members", len(room.PlayerIDs))
	return nil
}

// disbandLocked notifies everyone, forgets their connections and deletes the
// room with its players. The caller holds the room lock.
func (s *GameService) disbandLocked(ctx context.Context, room *models.Room, reason string) error {
	s.registry.BroadcastToRoom(room, NewEvent(EventRoomDisbanded, RoomDisbandedPayload{
		RoomCode: room.Code,
		Reason:   reason,
	}))

	ids := append([]string(nil), room.PlayerIDs...)
	if room.HostID != "" && !room.HasMember(room.HostID) {
		ids = append(ids, room.HostID)
	}
	for _, id := range ids {
		s.registry.Remove(id)
		if err := s.store.DeletePlayer(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("failed to delete player", "room", room.Code, "player", id, "error", err)
		}
	}
	if err := s.store.DeleteRoom(ctx, room.Code); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	s.logger.Info("room disbanded", "room", room.Code, "reason", reason)
	return nil
}

// updatePlayers applies fn to every player under that player's lock and saves it.
func (s *GameService) updatePlayers(ctx context.Context, players []*models.Player, fn func(*models.Player)) error {
	for _, p := range players {
		if err := s.updatePlayer(ctx, p.ID, fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *GameService) updatePlayer(ctx context.Context, playerID string, fn func(*models.Player)) error {
	unlock, err := s.playerLocks.Lock(ctx, playerID)
	if err != nil {
		return err
	}
	defer unlock()

	player, err := s.getPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	fn(player)
	if err := s.store.SavePlayer(ctx, player); err != nil {
		return fmt.Errorf("failed to save player %s: %w", playerID, err)
	}
	return nil
}

// ensureConnectionFree rejects a connection that already plays in a room, so
// tearing a connection down always finds every player it owned. Messages of
// one connection are dispatched in order, so the check cannot race itself.
func (s *GameService) ensureConnectionFree(conn Conn) error {
	if conn == nil {
		return nil
	}
	if _, ok := s.registry.FindPlayerIDByConnection(conn); ok {
		return ErrConnectionInUse
	}
	return nil
}

// resolveRequester works out who sent a request. An explicit playerID must
// match the connection's registered owner when there is one.
func (s *GameService) resolveRequester(conn Conn, playerID string) (string, error) {
	if conn != nil {
		if owner, ok := s.registry.FindPlayerIDByConnection(conn); ok {
			if playerID == "" || playerID == owner {
				return owner, nil
			}
			return "", fmt.Errorf("connection does not belong to player %s: %w", playerID, ErrForbidden)
		}
	}
	if playerID == "" {
		return "", fmt.Errorf("player id is required: %w", ErrInvalidInput)
	}
	return playerID, nil
}

func (s *GameService) resolveSettings(req *models.RoomSettings) (models.RoomSettings, error) {
	settings := DefaultRoomSettings()
	if req != nil {
		if req.QuestionDuration != 0 {
			settings.QuestionDuration = req.QuestionDuration
		}
		if req.OptionCount != 0 {
			settings.OptionCount = req.OptionCount
		}
		if req.Level != 0 {
			settings.Level = req.Level
		}
		if req.TotalQuestions != 0 {
			settings.TotalQuestions = req.TotalQuestions
		}
	}
	if err := s.validate.Struct(settings); err != nil {
		return settings, fmt.Errorf("invalid settings: %w", errors.Join(ErrInvalidInput, err))
	}
	return settings, nil
}

// reserveRoomCode picks an unused code and returns it locked.
func (s *GameService) reserveRoomCode(ctx context.Context) (string, func(), error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := generateRoomCode()
		if err != nil {
			return "", nil, err
		}
		unlock, err := s.roomLocks.Lock(ctx, code)
		if err != nil {
			return "", nil, err
		}
		_, err = s.store.GetRoom(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return code, unlock, nil
		}
		unlock()
		if err != nil {
			return "", nil, fmt.Errorf("failed to check room code: %w", err)
		}
	}
	return "", nil, errors.New("could not allocate a free room code")
}

func (s *GameService) getRoom(ctx context.Context, code string) (*models.Room, error) {
	room, err := s.store.GetRoom(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room %s: %w", code, err)
	}
	return room, nil
}

func (s *GameService) getPlayer(ctx context.Context, id string) (*models.Player, error) {
	player, err := s.store.GetPlayer(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load player %s: %w", id, err)
	}
	return player, nil
}

func (s *GameService) deletePlayerQuietly(ctx context.Context, id string) {
	if err := s.store.DeletePlayer(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("failed to roll back player", "player", id, "error", err)
	}
}

func (s *GameService) issueTicket(playerID, code string) string {
	if s.tickets == nil {
		return ""
	}
	ticket, err := s.tickets.Issue(playerID, code)
	if err != nil {
		s.logger.Error("failed to issue ticket", "player", playerID, "error", err)
		return ""
	}
	return ticket
}

func (s *GameService) statePayload(room *models.Room, remaining int) GameStatePayload {
	return GameStatePayload{
		State:                room.State,
		StateName:            room.State.String(),
		RemainingTime:        remaining,
		CurrentQuestionIndex: room.CurrentQuestionIndex,
		TotalQuestionCount:   room.Settings.TotalQuestions,
	}
}

func generateRoomCode() (string, error) {
	bytes := make([]byte, RoomCodeLength/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate room code: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(bytes)), nil
}

func pickAvatar(requested int) int {
	if requested >= 1 && requested <= AvatarCount {
		return requested
	}
	return mrand.IntN(AvatarCount) + 1
}
