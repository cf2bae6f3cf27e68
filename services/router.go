package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
)

// HandlerFunc handles one inbound message. Returned errors are sent back to
// conn as an error event.
type HandlerFunc func(ctx context.Context, conn Conn, raw []byte) error

// Router dispatches inbound messages by their type tag.
type Router struct {
	game     *GameService
	registry *Registry
	validate *validator.Validate
	logger   *slog.Logger
	timeout  time.Duration
	handlers map[string]HandlerFunc
}

func NewRouter(game *GameService, timeout time.Duration, logger *slog.Logger) *Router {
	r := &Router{
		game:     game,
		registry: game.Registry(),
		validate: validator.New(),
		logger:   logger,
		timeout:  timeout,
		handlers: make(map[string]HandlerFunc),
	}
	r.Handle(MessageCreate, r.handleCreate)
	r.Handle(MessageJoin, r.handleJoin)
	r.Handle(MessageLeave, r.handleLeave)
	r.Handle(MessageStart, r.handleStart)
	r.Handle(MessageAnswer, r.handleAnswer)
	r.Handle(MessageNext, r.handleNext)
	r.Handle(MessageDisband, r.handleDisband)
	r.Handle(MessageState, r.handleState)
	r.Handle(MessagePing, r.handlePing)
	return r
}

// Handle registers h for msgType, replacing any earlier handler.
func (r *Router) Handle(msgType string, h HandlerFunc) {
	r.handlers[msgType] = h
}

// Dispatch routes raw to its handler. It never panics and always answers a
// failed message with an error event.
func (r *Router) Dispatch(ctx context.Context, conn Conn, raw []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.reply(conn, "", fmt.Errorf("malformed message: %w", errors.Join(ErrInvalidInput, err)))
		return
	}

	h, ok := r.handlers[msg.Type]
	if !ok {
		r.reply(conn, msg.Type, fmt.Errorf("%q: %w", msg.Type, ErrUnknownMessage))
		return
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if err := r.invoke(ctx, h, conn, raw); err != nil {
		r.reply(conn, msg.Type, err)
	}
}

func (r *Router) invoke(ctx context.Context, h HandlerFunc, conn Conn, raw []byte) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("handler panic", "panic", p)
			err = errPanic
		}
	}()
	return h(ctx, conn, raw)
}

func (r *Router) reply(conn Conn, msgType string, err error) {
	kind := ErrorKind(err)
	if kind == "internal" {
		r.logger.Error("message failed", "type", msgType, "error", err)
	} else {
		r.logger.Debug("message rejected", "type", msgType, "kind", kind, "error", err)
	}
	r.registry.Send(conn, ErrorEvent(err))
}

func (r *Router) decode(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("malformed message: %w", errors.Join(ErrInvalidInput, err))
	}
	if err := r.validate.Struct(v); err != nil {
		return fmt.Errorf("invalid message: %w", errors.Join(ErrInvalidInput, err))
	}
	return nil
}

func (r *Router) handleCreate(ctx context.Context, conn Conn, raw []byte) error {
	var req CreateRequest
	if err := r.decode(raw, &req); err != nil {
		return err
	}
	_, err := r.game.CreateRoom(ctx, conn, req)
	return err
}

func (r *Router) handleJoin(ctx context.Context, conn Conn, raw []byte) error {
	var req JoinRequest
	if err := r.decode(raw, &req); err != nil {
		return err
	}
	_, err := r.game.JoinRoom(ctx, conn, req)
	return err
}

func (r *Router) handleLeave(ctx context.Context, conn Conn, raw []byte) error {
	var req LeaveRequest
	if err := r.decode(raw, &req); err != nil {
		return err
	}
	return r.game.LeaveRoom(ctx, conn, req)
}

func (r *Router) handleStart(ctx context.Context, conn Conn, raw []byte) error {
	var req RoomActionRequest
	if err := r.decode(raw, &req); err != nil {
		return err
	}
	return r.game.StartGame(ctx, conn, req)
}

func (r *Router) handleAnswer(ctx context.Context, conn Conn, raw []byte) error {
	var req AnswerRequest
	if err := r.decode(raw, &req); err != nil {
		return err
	}
	_, err := r.game.SubmitAnswer(ctx, conn, req)
	return err
}

func (r *Router) handleNext(ctx context.Context, conn Conn, raw []byte) error {
	var req RoomActionRequest
	if err := r.decode(raw, &req); err != nil {
		return err
	}
	return r.game.NextQuestion(ctx, conn, req)
}

func (r *Router) handleDisband(ctx context.Context, conn Conn, raw []byte) error {
	var req RoomActionRequest
	if err := r.decode(raw, &req); err != nil {
		return err
	}
	return r.game.Disband(ctx, conn, req)
}

func (r *Router) handleState(ctx context.Context, conn Conn, raw []byte) error {
	var req RoomActionRequest
	if err := r.decode(raw, &req); err != nil {
		return err
	}
	snapshot, err := r.game.SyncState(ctx, req.RoomCode)
	if err != nil {
		return err
	}
	r.registry.Send(conn, NewEvent(EventGameStateChanged, snapshot))
	return nil
}

func (r *Router) handlePing(ctx context.Context, conn Conn, raw []byte) error {
	r.registry.Send(conn, NewEvent(EventPong, nil))
	return nil
}
