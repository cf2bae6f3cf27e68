package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"vocabquiz/models"

	"gorm.io/gorm"
)

// QuestionBank supplies the question sequence for a room at start.
type QuestionBank interface {
	Generate(ctx context.Context, level, optionCount, total int) ([]models.Question, error)
}

// BuildQuestions picks up to total distinct words and pairs each correct
// meaning with optionCount-1 distractor meanings from the other words.
func BuildQuestions(words []models.Word, optionCount, total int, rng *rand.Rand) ([]models.Question, error) {
	if optionCount < 2 {
		return nil, fmt.Errorf("need at least 2 options, got %d: %w", optionCount, ErrInvalidInput)
	}
	meanings := distinctMeanings(words)
	if len(meanings) < optionCount {
		return nil, fmt.Errorf("only %d distinct meanings for %d options: %w", len(meanings), optionCount, ErrInvalidInput)
	}

	order := rng.Perm(len(words))
	if total > len(order) {
		total = len(order)
	}

	questions := make([]models.Question, 0, total)
	for _, wi := range order[:total] {
		word := words[wi]

		options := []string{word.Meaning}
		for _, mi := range rng.Perm(len(meanings)) {
			if len(options) == optionCount {
				break
			}
			if meanings[mi] != word.Meaning {
				options = append(options, meanings[mi])
			}
		}
		rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

		correct := 0
		for i, o := range options {
			if o == word.Meaning {
				correct = i
				break
			}
		}
		questions = append(questions, models.Question{
			Word:         word.Text,
			Meaning:      word.Meaning,
			Options:      options,
			CorrectIndex: correct,
			Level:        word.Level,
		})
	}
	return questions, nil
}

func distinctMeanings(words []models.Word) []string {
	seen := make(map[string]bool, len(words))
	var out []string
	for _, w := range words {
		if !seen[w.Meaning] {
			seen[w.Meaning] = true
			out = append(out, w.Meaning)
		}
	}
	return out
}

type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newLockedRand() *lockedRand {
	seed := uint64(time.Now().UnixNano())
	return &lockedRand{rng: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

func (l *lockedRand) build(words []models.Word, optionCount, total int) ([]models.Question, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return BuildQuestions(words, optionCount, total, l.rng)
}

// StaticWordBank serves an in-memory word list.
type StaticWordBank struct {
	words []models.Word
	rand  *lockedRand
}

func NewStaticWordBank(words []models.Word) *StaticWordBank {
	return &StaticWordBank{words: words, rand: newLockedRand()}
}

func (b *StaticWordBank) Generate(ctx context.Context, level, optionCount, total int) ([]models.Question, error) {
	var words []models.Word
	for _, w := range b.words {
		if w.Level == level {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("no words for level %d: %w", level, ErrInvalidInput)
	}
	return b.rand.build(words, optionCount, total)
}

// GormWordBank reads the vocabulary from the words table.
type GormWordBank struct {
	db   *gorm.DB
	rand *lockedRand
}

func NewGormWordBank(db *gorm.DB) *GormWordBank {
	return &GormWordBank{db: db, rand: newLockedRand()}
}

func (b *GormWordBank) Generate(ctx context.Context, level, optionCount, total int) ([]models.Question, error) {
	var words []models.Word
	if err := b.db.WithContext(ctx).Where("level = ?", level).Find(&words).Error; err != nil {
		return nil, fmt.Errorf("failed to load words for level %d: %w", level, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("no words for level %d: %w", level, ErrInvalidInput)
	}
	return b.rand.build(words, optionCount, total)
}

// SeedWords inserts words when the table is empty.
func SeedWords(db *gorm.DB, words []models.Word) error {
	var count int64
	if err := db.Model(&models.Word{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.CreateInBatches(words, 100).Error
}

// DefaultWords is the built-in vocabulary used when no database is configured.
func DefaultWords() []models.Word {
	return []models.Word{
		{Text: "abundant", Meaning: "existing in large quantities", Level: 1},
		{Text: "brief", Meaning: "lasting a short time", Level: 1},
		{Text: "cautious", Meaning: "careful to avoid danger", Level: 1},
		{Text: "diligent", Meaning: "showing steady effort", Level: 1},
		{Text: "eager", Meaning: "strongly wanting something", Level: 1},
		{Text: "fragile", Meaning: "easily broken", Level: 1},
		{Text: "generous", Meaning: "willing to give freely", Level: 1},
		{Text: "humble", Meaning: "not proud or arrogant", Level: 1},
		{Text: "idle", Meaning: "not active or in use", Level: 1},
		{Text: "journey", Meaning: "an act of travelling", Level: 1},
		{Text: "keen", Meaning: "sharp or enthusiastic", Level: 1},
		{Text: "loyal", Meaning: "faithful to a person or cause", Level: 1},
		{Text: "ambiguous", Meaning: "open to more than one interpretation", Level: 2},
		{Text: "benevolent", Meaning: "well meaning and kindly", Level: 2},
		{Text: "candid", Meaning: "truthful and straightforward", Level: 2},
		{Text: "deter", Meaning: "discourage from acting", Level: 2},
		{Text: "elusive", Meaning: "difficult to find or catch", Level: 2},
		{Text: "frugal", Meaning: "sparing with money or food", Level: 2},
		{Text: "gregarious", Meaning: "fond of company", Level: 2},
		{Text: "hinder", Meaning: "make difficult to do", Level: 2},
		{Text: "impartial", Meaning: "treating all sides equally", Level: 2},
		{Text: "lucid", Meaning: "expressed clearly", Level: 2},
		{Text: "abstruse", Meaning: "difficult to understand", Level: 3},
		{Text: "cacophony", Meaning: "a harsh mixture of sounds", Level: 3},
		{Text: "obsequious", Meaning: "excessively eager to please", Level: 3},
		{Text: "perfunctory", Meaning: "carried out with minimum effort", Level: 3},
		{Text: "quixotic", Meaning: "unrealistically idealistic", Level: 3},
		{Text: "sycophant", Meaning: "a person who flatters for advantage", Level: 3},
		{Text: "truculent", Meaning: "eager to argue or fight", Level: 3},
		{Text: "vicissitude", Meaning: "an unwelcome change of circumstances", Level: 3},
	}
}
