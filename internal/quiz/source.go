package quiz

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/battlebrains/internal/domain"
)

// Source supplies the ordered question list rooms play through.
type Source interface {
	Questions(ctx context.Context) ([]domain.Question, error)
}

// PGSource loads questions from a Postgres question bank.
type PGSource struct {
	db *pgxpool.Pool
}

func NewPGSource(db *pgxpool.Pool) *PGSource {
	return &PGSource{db: db}
}

func (s *PGSource) Questions(ctx context.Context) ([]domain.Question, error) {
	const stmt = `
SELECT question_id, question_text, options, correct_index, category, difficulty
FROM questions
ORDER BY question_id;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}

	questions, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Question, error) {
		var q domain.Question
		if err := r.Scan(&q.QuestionID, &q.Text, &q.Options, &q.CorrectIndex, &q.Category, &q.Difficulty); err != nil {
			return domain.Question{}, err
		}
		return q, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect questions: %w", err)
	}

	return questions, nil
}

// StaticSource serves a fixed in-memory question list.
type StaticSource []domain.Question

func (s StaticSource) Questions(_ context.Context) ([]domain.Question, error) {
	return s, nil
}

// DefaultQuestions is the built-in set used when no question bank is
// configured, so the server runs standalone.
func DefaultQuestions() []domain.Question {
	return []domain.Question{
		{
			QuestionID:   "q1",
			Text:         "What is the largest planet in our solar system?",
			Options:      []string{"Earth", "Jupiter", "Saturn", "Neptune"},
			CorrectIndex: 1,
			Category:     "science",
			Difficulty:   "easy",
		},
		{
			QuestionID:   "q2",
			Text:         "Which element has the chemical symbol 'O'?",
			Options:      []string{"Gold", "Osmium", "Oxygen", "Oganesson"},
			CorrectIndex: 2,
			Category:     "science",
			Difficulty:   "easy",
		},
		{
			QuestionID:   "q3",
			Text:         "In which year did the Berlin Wall fall?",
			Options:      []string{"1987", "1989", "1991", "1993"},
			CorrectIndex: 1,
			Category:     "history",
			Difficulty:   "medium",
		},
		{
			QuestionID:   "q4",
			Text:         "What is the capital of Australia?",
			Options:      []string{"Sydney", "Melbourne", "Canberra", "Perth"},
			CorrectIndex: 2,
			Category:     "geography",
			Difficulty:   "medium",
		},
		{
			QuestionID:   "q5",
			Text:         "How many strings does a standard violin have?",
			Options:      []string{"4", "5", "6", "7"},
			CorrectIndex: 0,
			Category:     "music",
			Difficulty:   "easy",
		},
		{
			QuestionID:   "q6",
			Text:         "Which ocean is the deepest?",
			Options:      []string{"Atlantic", "Indian", "Arctic", "Pacific"},
			CorrectIndex: 3,
			Category:     "geography",
			Difficulty:   "easy",
		},
		{
			QuestionID:   "q7",
			Text:         "Who painted the ceiling of the Sistine Chapel?",
			Options:      []string{"Raphael", "Michelangelo", "Da Vinci", "Donatello"},
			CorrectIndex: 1,
			Category:     "art",
			Difficulty:   "medium",
		},
		{
			QuestionID:   "q8",
			Text:         "What is the smallest prime number?",
			Options:      []string{"0", "1", "2", "3"},
			CorrectIndex: 2,
			Category:     "math",
			Difficulty:   "easy",
		},
		{
			QuestionID:   "q9",
			Text:         "Which country invented paper?",
			Options:      []string{"Egypt", "Greece", "China", "India"},
			CorrectIndex: 2,
			Category:     "history",
			Difficulty:   "medium",
		},
		{
			QuestionID:   "q10",
			Text:         "What gas do plants absorb from the atmosphere?",
			Options:      []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Hydrogen"},
			CorrectIndex: 2,
			Category:     "science",
			Difficulty:   "easy",
		},
	}
}
