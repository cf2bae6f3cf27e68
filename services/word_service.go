package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vocabquiz/models"

	"gorm.io/gorm"
)

// WordService manages the vocabulary the GormWordBank draws questions from
// and exposes the finished-game history.
type WordService struct {
	db *gorm.DB
}

func NewWordService(db *gorm.DB) *WordService {
	return &WordService{db: db}
}

type WordRequest struct {
	Text    string `json:"text" binding:"required,max=64"`
	Meaning string `json:"meaning" binding:"required,max=256"`
	Level   int    `json:"level" binding:"required,min=1,max=10"`
}

type CreateWordsRequest struct {
	Words []WordRequest `json:"words" binding:"required,min=1,max=500,dive"`
}

type UpdateWordRequest struct {
	Meaning string `json:"meaning" binding:"omitempty,max=256"`
	Level   int    `json:"level" binding:"omitempty,min=1,max=10"`
}

var ErrWordNotFound = fmt.Errorf("word %w", ErrNotFound)

// normalizeWords trims every entry and rejects a batch that repeats a word
// within one level.
func normalizeWords(reqs []WordRequest) ([]models.Word, error) {
	seen := make(map[string]bool, len(reqs))
	words := make([]models.Word, 0, len(reqs))
	for _, r := range reqs {
		text := strings.ToLower(strings.TrimSpace(r.Text))
		meaning := strings.TrimSpace(r.Meaning)
		if text == "" || meaning == "" {
			return nil, fmt.Errorf("word and meaning must not be blank: %w", ErrInvalidInput)
		}
		key := fmt.Sprintf("%d/%s", r.Level, text)
		if seen[key] {
			return nil, fmt.Errorf("%q repeated at level %d: %w", text, r.Level, ErrInvalidInput)
		}
		seen[key] = true
		words = append(words, models.Word{Text: text, Meaning: meaning, Level: r.Level})
	}
	return words, nil
}

// CreateWords inserts the batch in one transaction; either every word is
// stored or none is.
func (s *WordService) CreateWords(ctx context.Context, req *CreateWordsRequest) ([]models.Word, error) {
	words, err := normalizeWords(req.Words)
	if err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	for i := range words {
		var existing int64
		if err := tx.Model(&models.Word{}).
			Where("text = ? AND level = ?", words[i].Text, words[i].Level).
			Count(&existing).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if existing > 0 {
			tx.Rollback()
			return nil, fmt.Errorf("%q already exists at level %d: %w", words[i].Text, words[i].Level, ErrInvalidInput)
		}
		if err := tx.Create(&words[i]).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return words, nil
}

// ListWords returns the vocabulary ordered by level then text. A level of
// zero lists every level.
func (s *WordService) ListWords(ctx context.Context, level int) ([]models.Word, error) {
	var words []models.Word
	q := s.db.WithContext(ctx).Order("level").Order("text")
	if level > 0 {
		q = q.Where("level = ?", level)
	}
	err := q.Find(&words).Error
	return words, err
}

func (s *WordService) GetWord(ctx context.Context, id uint) (*models.Word, error) {
	var word models.Word
	if err := s.db.WithContext(ctx).First(&word, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWordNotFound
		}
		return nil, err
	}
	return &word, nil
}

func (s *WordService) UpdateWord(ctx context.Context, id uint, req *UpdateWordRequest) (*models.Word, error) {
	word, err := s.GetWord(ctx, id)
	if err != nil {
		return nil, err
	}

	if m := strings.TrimSpace(req.Meaning); m != "" {
		word.Meaning = m
	}
	if req.Level != 0 {
		word.Level = req.Level
	}

	if err := s.db.WithContext(ctx).Save(word).Error; err != nil {
		return nil, err
	}
	return word, nil
}

func (s *WordService) DeleteWord(ctx context.Context, id uint) error {
	if _, err := s.GetWord(ctx, id); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&models.Word{}, id).Error
}

// ListResults returns the recorded standings for a room, best rank first,
// or the most recent results across all rooms when code is empty.
func (s *WordService) ListResults(ctx context.Context, code string, limit int) ([]models.GameResult, error) {
	var results []models.GameResult
	q := s.db.WithContext(ctx).Order("finished_at DESC").Order("rank")
	if code != "" {
		q = q.Where("room_code = ?", NormalizeRoomCode(code))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&results).Error
	return results, err
}
