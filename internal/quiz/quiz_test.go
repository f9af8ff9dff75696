package quiz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/battlebrains/internal/domain"
	"github.com/victornm/battlebrains/internal/quiz"
)

func TestEngine_Cursor(t *testing.T) {
	questions := []domain.Question{
		{QuestionID: "q1", Text: "first", Options: []string{"a", "b"}, CorrectIndex: 0},
		{QuestionID: "q2", Text: "second", Options: []string{"a", "b"}, CorrectIndex: 1},
	}

	e := quiz.NewEngine(questions)
	require.Equal(t, 2, e.Len())

	require.NotNil(t, e.CurrentFull())
	assert.Equal(t, "q1", e.CurrentFull().QuestionID)
	assert.Equal(t, 0, e.Index())

	e.Advance()
	assert.Equal(t, "q2", e.CurrentFull().QuestionID)

	// Past end-of-list the engine reports no current question.
	e.Advance()
	assert.Nil(t, e.Current())
	assert.Nil(t, e.CurrentFull())

	e.Reset()
	assert.Equal(t, 0, e.Index())
	assert.Equal(t, "q1", e.CurrentFull().QuestionID)
}

func TestEngine_CurrentExcludesAnswer(t *testing.T) {
	e := quiz.NewEngine([]domain.Question{
		{
			QuestionID:   "q1",
			Text:         "pick b",
			Options:      []string{"a", "b"},
			CorrectIndex: 1,
			Category:     "test",
			Difficulty:   "easy",
		},
	})

	v := e.Current()
	require.NotNil(t, v)
	assert.Equal(t, "q1", v.QuestionID)
	assert.Equal(t, "pick b", v.Text)
	assert.Equal(t, []string{"a", "b"}, v.Options)
	// QuestionView has no field for the correct index; pin the public
	// projection so adding one would fail loudly here.
	assert.Equal(t, domain.QuestionView{
		QuestionID: "q1",
		Text:       "pick b",
		Options:    []string{"a", "b"},
		Category:   "test",
		Difficulty: "easy",
	}, *v)
}

func TestDefaultQuestions(t *testing.T) {
	qs := quiz.DefaultQuestions()
	require.NotEmpty(t, qs)

	for _, q := range qs {
		assert.GreaterOrEqual(t, q.CorrectIndex, 0, "question %s", q.QuestionID)
		assert.Less(t, q.CorrectIndex, len(q.Options), "question %s", q.QuestionID)
	}
}
