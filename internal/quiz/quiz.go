// Package quiz implements the question-bank collaborator: an ordered
// cursor over questions plus the sources questions are loaded from.
package quiz

import (
	"github.com/victornm/battlebrains/internal/domain"
)

// Engine walks an ordered question list for one room. It is not safe
// for concurrent use; the owning room serializes access.
type Engine struct {
	questions []domain.Question
	index     int
}

func NewEngine(questions []domain.Question) *Engine {
	return &Engine{questions: questions}
}

// Reset rewinds to the first question, for a new game or rematch.
func (e *Engine) Reset() {
	e.index = 0
}

// Current returns the public view of the current question, or nil when
// the cursor has moved past the end of the list.
func (e *Engine) Current() *domain.QuestionView {
	q := e.CurrentFull()
	if q == nil {
		return nil
	}

	v := q.View()
	return &v
}

// CurrentFull returns the current question including the correct
// answer index. Used only for adjudication, never transmitted.
func (e *Engine) CurrentFull() *domain.Question {
	if e.index < 0 || e.index >= len(e.questions) {
		return nil
	}
	return &e.questions[e.index]
}

// Advance moves the cursor to the next question. Advancing past the
// end is allowed; Current then returns nil.
func (e *Engine) Advance() {
	e.index++
}

// Index is the current question cursor position.
func (e *Engine) Index() int {
	return e.index
}

// Len is the total number of questions.
func (e *Engine) Len() int {
	return len(e.questions)
}
