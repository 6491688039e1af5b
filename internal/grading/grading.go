// Package grading classifies answers and rolls question scores up into a
// submission result.
package grading

import (
	"math"
	"sort"
	"strings"

	"github.com/noah-isme/course-portal-api/internal/models"
)

// Correctness is the automatic verdict for one answer.
type Correctness string

const (
	Correct   Correctness = "correct"
	Incorrect Correctness = "incorrect"
	// Manual means a teacher has to judge the answer.
	Manual Correctness = "manual"
)

// Band is the letter-like grade derived from a percentage.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandAverage   Band = "average"
	BandPass      Band = "pass"
	BandFail      Band = "fail"
)

// CheckAnswer classifies the student's answer. It never awards partial credit.
func CheckAnswer(question models.Question, answer string) Correctness {
	switch question.Type {
	case models.QuestionSingleChoice:
		return verdict(strings.TrimSpace(answer) == strings.TrimSpace(question.CorrectAnswer))
	case models.QuestionTrueFalse:
		return verdict(strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(question.CorrectAnswer)))
	case models.QuestionMultipleChoice:
		return verdict(sameItems(splitChoices(answer), splitChoices(question.CorrectAnswer)))
	case models.QuestionFillBlank:
		return verdict(strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(question.CorrectAnswer)))
	default:
		return Manual
	}
}

// Total sums the teacher's per-question scores.
func Total(scores []models.QuestionScore) float64 {
	var total float64
	for _, s := range scores {
		total += s.Score
	}
	return total
}

// Percentage returns score/total*100 rounded to one decimal, or nil when the
// submission has no score or the assignment has no positive total.
func Percentage(score *float64, totalScore int) *float64 {
	if score == nil || totalScore <= 0 {
		return nil
	}
	pct := math.Round(*score/float64(totalScore)*1000) / 10
	return &pct
}

// BandFor maps a percentage to its grade band.
func BandFor(percentage float64) Band {
	switch {
	case percentage >= 90:
		return BandExcellent
	case percentage >= 80:
		return BandGood
	case percentage >= 70:
		return BandAverage
	case percentage >= 60:
		return BandPass
	default:
		return BandFail
	}
}

// LatestSubmission picks the most recent final submission, falling back to
// the most recent draft. ok is false when there is neither.
func LatestSubmission(submissions []models.StudentSubmission) (models.StudentSubmission, bool) {
	var (
		latestFinal, latestDraft models.StudentSubmission
		hasFinal, hasDraft       bool
	)
	for _, s := range submissions {
		if s.IsSubmitted {
			if !hasFinal || newer(s, latestFinal) {
				latestFinal, hasFinal = s, true
			}
			continue
		}
		if !hasDraft || newer(s, latestDraft) {
			latestDraft, hasDraft = s, true
		}
	}
	if hasFinal {
		return latestFinal, true
	}
	return latestDraft, hasDraft
}

// CountSubmitted returns how many final submissions are in the slice.
func CountSubmitted(submissions []models.StudentSubmission) int64 {
	var n int64
	for _, s := range submissions {
		if s.IsSubmitted {
			n++
		}
	}
	return n
}

func newer(a, b models.StudentSubmission) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func verdict(ok bool) Correctness {
	if ok {
		return Correct
	}
	return Incorrect
}

func splitChoices(raw string) []string {
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

func sameItems(a, b []string) bool {
	set := func(items []string) []string {
		seen := make(map[string]struct{}, len(items))
		out := make([]string, 0, len(items))
		for _, item := range items {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
		sort.Strings(out)
		return out
	}
	left, right := set(a), set(b)
	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if left[i] != right[i] {
			return false
		}
	}
	return true
}
