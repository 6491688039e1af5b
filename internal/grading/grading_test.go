package grading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-portal-api/internal/models"
)

func TestCheckAnswer(t *testing.T) {
	cases := []struct {
		name     string
		question models.Question
		answer   string
		want     Correctness
	}{
		{"single choice trims", models.Question{Type: models.QuestionSingleChoice, CorrectAnswer: "B"}, " B ", Correct},
		{"single choice is case sensitive", models.Question{Type: models.QuestionSingleChoice, CorrectAnswer: "B"}, "b", Incorrect},
		{"true false", models.Question{Type: models.QuestionTrueFalse, CorrectAnswer: "true"}, "false", Incorrect},
		{"true false capitalised", models.Question{Type: models.QuestionTrueFalse, CorrectAnswer: "true"}, "True", Correct},
		{"true false upper case", models.Question{Type: models.QuestionTrueFalse, CorrectAnswer: "true"}, " TRUE ", Correct},
		{"true false stored capitalised", models.Question{Type: models.QuestionTrueFalse, CorrectAnswer: "False"}, "false", Correct},
		{"multiple choice ignores order", models.Question{Type: models.QuestionMultipleChoice, CorrectAnswer: "A,C"}, "C, A", Correct},
		{"multiple choice needs every item", models.Question{Type: models.QuestionMultipleChoice, CorrectAnswer: "A,C"}, "A", Incorrect},
		{"multiple choice rejects extras", models.Question{Type: models.QuestionMultipleChoice, CorrectAnswer: "A,C"}, "A,B,C", Incorrect},
		{"fill blank ignores case", models.Question{Type: models.QuestionFillBlank, CorrectAnswer: "Mean"}, "  mean", Correct},
		{"short answer is manual", models.Question{Type: models.QuestionShortAnswer, CorrectAnswer: "x"}, "x", Manual},
		{"essay is manual", models.Question{Type: models.QuestionEssay}, "long text", Manual},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CheckAnswer(tc.question, tc.answer))
		})
	}
}

func TestPercentageAndBand(t *testing.T) {
	score := 85.0
	pct := Percentage(&score, 100)
	require.NotNil(t, pct)
	require.Equal(t, 85.0, *pct)
	require.Equal(t, BandGood, BandFor(*pct))

	third := 1.0
	pct = Percentage(&third, 3)
	require.NotNil(t, pct)
	require.Equal(t, 33.3, *pct)

	require.Nil(t, Percentage(nil, 100))
	require.Nil(t, Percentage(&score, 0))

	require.Equal(t, BandExcellent, BandFor(90))
	require.Equal(t, BandAverage, BandFor(70))
	require.Equal(t, BandPass, BandFor(60))
	require.Equal(t, BandFail, BandFor(59.9))
}

func TestTotal(t *testing.T) {
	total := Total([]models.QuestionScore{{Score: 40}, {Score: 45}, {Score: 0}})
	require.Equal(t, 85.0, total)
	require.Zero(t, Total(nil))
}

func TestLatestSubmissionPrefersFinal(t *testing.T) {
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	submissions := []models.StudentSubmission{
		{ID: 1, IsSubmitted: true, CreatedAt: base},
		{ID: 2, IsSubmitted: false, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 3, IsSubmitted: true, CreatedAt: base.Add(time.Hour)},
	}

	latest, ok := LatestSubmission(submissions)
	require.True(t, ok)
	require.Equal(t, uint(3), latest.ID)
	require.Equal(t, int64(2), CountSubmitted(submissions))

	latest, ok = LatestSubmission(submissions[1:2])
	require.True(t, ok)
	require.Equal(t, uint(2), latest.ID)

	_, ok = LatestSubmission(nil)
	require.False(t, ok)
}
