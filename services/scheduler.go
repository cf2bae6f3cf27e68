package services

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RoomAdvancer is what the scheduler drives. GameService implements it.
type RoomAdvancer interface {
	ActiveRooms(ctx context.Context) ([]string, error)
	AdvanceRoom(ctx context.Context, code string) error
}

// TickReport summarises one scheduler pass.
type TickReport struct {
	Rooms    int
	Failed   int
	Skipped  int
	TimedOut bool
}

// Scheduler advances every active room on a fixed period. Rooms are processed
// concurrently and each gets its own deadline.
type Scheduler struct {
	rooms       RoomAdvancer
	interval    time.Duration
	roomTimeout time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewScheduler(rooms RoomAdvancer, interval, roomTimeout time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	if roomTimeout <= 0 {
		roomTimeout = interval / 2
	}
	return &Scheduler{
		rooms:       rooms,
		interval:    interval,
		roomTimeout: roomTimeout,
		logger:      logger,
		inflight:    make(map[string]struct{}),
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval, "roomTimeout", s.roomTimeout)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			report := s.Tick(ctx)
			if report.Failed > 0 || report.TimedOut {
				s.logger.Warn("scheduler tick finished with problems",
					"rooms", report.Rooms, "failed", report.Failed, "skipped", report.Skipped, "timedOut", report.TimedOut)
			}
		}
	}
}

// Tick runs one pass over the active rooms. A failing room is logged and left
// for the next tick; it never stops the others.
func (s *Scheduler) Tick(ctx context.Context) TickReport {
	listCtx, cancel := context.WithTimeout(ctx, s.roomTimeout)
	codes, err := s.rooms.ActiveRooms(listCtx)
	cancel()
	if err != nil {
		s.logger.Error("failed to list active rooms", "error", err)
		return TickReport{Failed: 1}
	}

	var report TickReport
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, code := range codes {
		if !s.claim(code) {
			report.Skipped++
			continue
		}
		report.Rooms++
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			defer s.release(code)
			if err := s.advance(ctx, code); err != nil {
				s.logger.Error("failed to advance room", "room", code, "error", err)
				mu.Lock()
				report.Failed++
				mu.Unlock()
			}
		}(code)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// rooms that ignore their deadline keep running in the background and
	// are skipped by later ticks until they return
	select {
	case <-done:
	case <-time.After(s.roomTimeout + s.roomTimeout/2):
		mu.Lock()
		report.TimedOut = true
		mu.Unlock()
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	return report
}

func (s *Scheduler) advance(ctx context.Context, code string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while advancing room", "room", code, "panic", r)
			err = errPanic
		}
	}()
	roomCtx, cancel := context.WithTimeout(ctx, s.roomTimeout)
	defer cancel()
	return s.rooms.AdvanceRoom(roomCtx, code)
}

func (s *Scheduler) claim(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[code]; busy {
		return false
	}
	s.inflight[code] = struct{}{}
	return true
}

func (s *Scheduler) release(code string) {
	s.mu.Lock()
	delete(s.inflight, code)
	s.mu.Unlock()
}
