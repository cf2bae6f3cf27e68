package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"vocabquiz/models"
	"vocabquiz/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
}

func (c *fakeConn) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.messages = append(c.messages, data)
	return true
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

type receivedEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (c *fakeConn) events(t *testing.T) []receivedEvent {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]receivedEvent, 0, len(c.messages))
	for _, raw := range c.messages {
		var ev receivedEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("invalid event json %q: %v", raw, err)
		}
		out = append(out, ev)
	}
	return out
}

func (c *fakeConn) types(t *testing.T) []string {
	t.Helper()
	var types []string
	for _, ev := range c.events(t) {
		types = append(types, ev.Type)
	}
	return types
}

// last returns the payload of the most recent event of eventType decoded into v.
func (c *fakeConn) last(t *testing.T, eventType string, v any) bool {
	t.Helper()
	evs := c.events(t)
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == eventType {
			if v != nil {
				if err := json.Unmarshal(evs[i].Payload, v); err != nil {
					t.Fatalf("decode %s payload: %v", eventType, err)
				}
			}
			return true
		}
	}
	return false
}

func (c *fakeConn) count(t *testing.T, eventType string) int {
	t.Helper()
	n := 0
	for _, ev := range c.events(t) {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingSink struct {
	games chan GameSummary
}

func newRecordingSink() *recordingSink {
	return &recordingSink{games: make(chan GameSummary, 4)}
}

func (s *recordingSink) RecordGame(ctx context.Context, summary GameSummary) error {
	s.games <- summary
	return nil
}

type testEnv struct {
	service *GameService
	store   *store.MemoryStore
	clock   *fakeClock
	sink    *recordingSink
}

func newTestEnv(t *testing.T, timings PhaseTimings, verify bool) *testEnv {
	t.Helper()
	return newWrappedTestEnv(t, timings, verify, nil)
}

// newWrappedTestEnv lets a test put its own store in front of the memory
// store the service uses. The env helpers keep reading the memory store.
func newWrappedTestEnv(t *testing.T, timings PhaseTimings, verify bool, wrap func(*store.MemoryStore) store.RoomStore) *testEnv {
	t.Helper()
	env := &testEnv{
		store: store.NewMemoryStore(),
		clock: newFakeClock(),
		sink:  newRecordingSink(),
	}
	var roomStore store.RoomStore = env.store
	if wrap != nil {
		roomStore = wrap(env.store)
	}
	logger := discardLogger()
	env.service = NewGameService(GameServiceConfig{
		Store:         roomStore,
		Bank:          NewStaticWordBank(DefaultWords()),
		Registry:      NewRegistry(logger),
		Machine:       NewStateMachine(timings),
		Sink:          env.sink,
		Tickets:       NewTicketIssuer("test-secret-test-secret-test-secret", time.Hour),
		Logger:        logger,
		VerifyAnswers: verify,
	})
	env.service.now = env.clock.Now
	return env
}

func (e *testEnv) createRoom(t *testing.T, conn *fakeConn, settings *models.RoomSettings) *RoomCreatedPayload {
	t.Helper()
	created, err := e.service.CreateRoom(context.Background(), conn, CreateRequest{Name: "host", Settings: settings})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return created
}

func (e *testEnv) joinRoom(t *testing.T, conn *fakeConn, code, name string) *RoomJoinedPayload {
	t.Helper()
	joined, err := e.service.JoinRoom(context.Background(), conn, JoinRequest{RoomCode: code, Name: name})
	if err != nil {
		t.Fatalf("join room %s as %s: %v", code, name, err)
	}
	return joined
}

func (e *testEnv) startGame(t *testing.T, code, hostID string) {
	t.Helper()
	if err := e.service.StartGame(context.Background(), nil, RoomActionRequest{RoomCode: code, PlayerID: hostID}); err != nil {
		t.Fatalf("start game: %v", err)
	}
}

func (e *testEnv) room(t *testing.T, code string) *models.Room {
	t.Helper()
	room, err := e.store.GetRoom(context.Background(), code)
	if err != nil {
		t.Fatalf("get room %s: %v", code, err)
	}
	return room
}

func (e *testEnv) player(t *testing.T, id string) *models.Player {
	t.Helper()
	player, err := e.store.GetPlayer(context.Background(), id)
	if err != nil {
		t.Fatalf("get player %s: %v", id, err)
	}
	return player
}

// advance moves the clock and runs one scheduler-equivalent pass on the room.
func (e *testEnv) advance(t *testing.T, code string, d time.Duration) models.GameState {
	t.Helper()
	e.clock.Advance(d)
	if err := e.service.AdvanceRoom(context.Background(), code); err != nil {
		t.Fatalf("advance room: %v", err)
	}
	return e.room(t, code).State
}

func (e *testEnv) answer(code, playerID string, index int, answerTime float64) (*AnswerResultPayload, error) {
	return e.service.SubmitAnswer(context.Background(), nil, AnswerRequest{
		RoomCode:    code,
		PlayerID:    playerID,
		AnswerIndex: &index,
		AnswerTime:  &answerTime,
	})
}
