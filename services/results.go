package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vocabquiz/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"
)

// GameSummary is what a finished room hands to result sinks.
type GameSummary struct {
	RoomCode       string       `json:"roomCode"`
	Level          int          `json:"level"`
	TotalQuestions int          `json:"totalQuestions"`
	FinishedAt     time.Time    `json:"finishedAt"`
	Standings      []FinalEntry `json:"standings"`
}

// ResultSink receives final standings once per room.
type ResultSink interface {
	RecordGame(ctx context.Context, summary GameSummary) error
}

// MultiSink fans a summary out to every sink and joins their errors.
type MultiSink []ResultSink

func (m MultiSink) RecordGame(ctx context.Context, summary GameSummary) error {
	var errs []error
	for _, sink := range m {
		if err := sink.RecordGame(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GormResultSink stores one GameResult row per player.
type GormResultSink struct {
	db *gorm.DB
}

func NewGormResultSink(db *gorm.DB) *GormResultSink {
	return &GormResultSink{db: db}
}

func (s *GormResultSink) RecordGame(ctx context.Context, summary GameSummary) error {
	if len(summary.Standings) == 0 {
		return nil
	}
	rows := make([]models.GameResult, len(summary.Standings))
	for i, entry := range summary.Standings {
		rows[i] = models.GameResult{
			RoomCode:        summary.RoomCode,
			PlayerID:        entry.ID,
			PlayerName:      entry.Name,
			Rank:            entry.Rank,
			Score:           entry.Score,
			CorrectCount:    entry.CorrectCount,
			WrongCount:      entry.WrongCount,
			TotalAnswerTime: entry.TotalAnswerTime,
			TotalQuestions:  summary.TotalQuestions,
			Level:           summary.Level,
			FinishedAt:      summary.FinishedAt,
		}
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to store results for room %s: %w", summary.RoomCode, err)
	}
	return nil
}

// AMQPResultSink publishes a game.ended message to a topic exchange.
type AMQPResultSink struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *slog.Logger
}

func NewAMQPResultSink(url, exchange string, logger *slog.Logger) (*AMQPResultSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &AMQPResultSink{conn: conn, ch: ch, exchange: exchange, logger: logger}, nil
}

func (s *AMQPResultSink) RecordGame(ctx context.Context, summary GameSummary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	err = s.ch.PublishWithContext(ctx,
		s.exchange,
		"game.ended",
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Timestamp:    summary.FinishedAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish results for room %s: %w", summary.RoomCode, err)
	}
	s.logger.Debug("published game results", "room", summary.RoomCode, "players", len(summary.Standings))
	return nil
}

func (s *AMQPResultSink) Close() error {
	return errors.Join(s.ch.Close(), s.conn.Close())
}
