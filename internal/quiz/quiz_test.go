package quiz

import (
	"errors"
	"math"
	"testing"

	"github.com/educasense/educasense/internal/model"
)

func threeQuestionExercise() *model.Exercise {
	return &model.Exercise{
		ID:         "ex-1",
		Title:      "Aventura dos Números",
		Subject:    model.SubjectMath,
		Difficulty: model.DifficultyMedium,
		Questions: []model.Question{
			{ID: "q1", Text: "2 + 2?", Type: model.QuestionMultiple, Options: []string{"3", "4"}, CorrectAnswer: "4"},
			{ID: "q2", Text: "3 + 3?", Type: model.QuestionMultiple, Options: []string{"6", "7"}, CorrectAnswer: "6"},
			{ID: "q3", Text: "5 + 5?", Type: model.QuestionMultiple, Options: []string{"10", "11"}, CorrectAnswer: "10"},
		},
	}
}

// answer selects an option and confirms it, then advances (or finishes).
func answer(t *testing.T, s *Session, option string) *Result {
	t.Helper()
	if err := s.Select(option); err != nil {
		t.Fatalf("Select(%q): %v", option, err)
	}
	if _, err := s.Confirm(); err != nil {
		t.Fatalf("Confirm (grade): %v", err)
	}
	result, err := s.Confirm()
	if err != nil {
		t.Fatalf("Confirm (advance): %v", err)
	}
	return result
}

func TestScore(t *testing.T) {
	tests := []struct {
		name           string
		correct, total int
		want           float64
	}{
		{"all correct", 5, 5, 10},
		{"none correct", 0, 5, 0},
		{"two of three", 2, 3, 20.0 / 3.0},
		{"one of four", 1, 4, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.correct, tt.total)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score(%d, %d) = %v, want %v", tt.correct, tt.total, got, tt.want)
			}
		})
	}
}

func TestSessionFullRun(t *testing.T) {
	s, err := NewSession(threeQuestionExercise())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if s.Status() != StatusInProgress {
		t.Fatalf("Status = %v", s.Status())
	}

	if r := answer(t, s, "4"); r != nil {
		t.Fatal("result before last question should be nil")
	}
	if r := answer(t, s, "7"); r != nil { // wrong
		t.Fatal("result before last question should be nil")
	}
	result := answer(t, s, "10")
	if result == nil {
		t.Fatal("final Confirm should return the result")
	}

	if result.CorrectCount != 2 || result.Total != 3 {
		t.Errorf("correct/total = %d/%d, want 2/3", result.CorrectCount, result.Total)
	}
	if math.Abs(result.Score-20.0/3.0) > 1e-9 {
		t.Errorf("Score = %v, want %v", result.Score, 20.0/3.0)
	}
	if s.Status() != StatusCompleted {
		t.Errorf("Status = %v, want completed", s.Status())
	}
}

func TestRevealCountsAsCorrect(t *testing.T) {
	ex := &model.Exercise{
		ID:         "ex-open",
		Title:      "Missão de Arte",
		Subject:    model.SubjectArt,
		Difficulty: model.DifficultyEasy,
		Questions: []model.Question{
			{ID: "q1", Text: "Desenhe uma floresta.", Type: model.QuestionOpen, CorrectAnswer: "um desenho"},
		},
	}
	s, err := NewSession(ex)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	result := answer(t, s, RevealAnswer)
	if result.CorrectCount != 1 {
		t.Errorf("reveal should count as correct, got %d", result.CorrectCount)
	}
}

func TestSessionStateMachineErrors(t *testing.T) {
	s, err := NewSession(threeQuestionExercise())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	// Confirm with no selection.
	if _, err := s.Confirm(); !errors.Is(err, ErrNoSelection) {
		t.Errorf("Confirm without selection: err = %v", err)
	}

	// Select after the answer was confirmed.
	if err := s.Select("4"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := s.Confirm(); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := s.Select("3"); !errors.Is(err, ErrAlreadyAnswered) {
		t.Errorf("Select after answer: err = %v", err)
	}

	// Finish the run, then everything fails with ErrCompleted.
	if _, err := s.Confirm(); err != nil {
		t.Fatalf("Confirm (advance): %v", err)
	}
	answer(t, s, "6")
	answer(t, s, "10")

	if err := s.Select("x"); !errors.Is(err, ErrCompleted) {
		t.Errorf("Select after completion: err = %v", err)
	}
	if _, err := s.Confirm(); !errors.Is(err, ErrCompleted) {
		t.Errorf("Confirm after completion: err = %v", err)
	}
}

func TestNewSessionRejectsEmptyExercise(t *testing.T) {
	ex := threeQuestionExercise()
	ex.Questions = nil
	if _, err := NewSession(ex); !errors.Is(err, model.ErrNoQuestions) {
		t.Errorf("NewSession with no questions: err = %v", err)
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name        string
		correct     int
		wantXP      int
		wantStars   int
		wantStreak  int
		startXP     int
		startStars  int
		startStreak int
	}{
		{"two correct", 2, 20, 1, 1, 0, 0, 0},
		{"three correct", 3, 150, 46, 4, 120, 45, 3},
		{"zero correct still advances streak", 0, 50, 12, 2, 50, 12, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			child := model.Child{XP: tt.startXP, Stars: tt.startStars, Streak: tt.startStreak}
			got := Apply(child, tt.correct)
			if got.XP != tt.wantXP || got.Stars != tt.wantStars || got.Streak != tt.wantStreak {
				t.Errorf("Apply() = xp %d stars %d streak %d, want %d/%d/%d",
					got.XP, got.Stars, got.Streak, tt.wantXP, tt.wantStars, tt.wantStreak)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{250, 3},
	}
	for _, tt := range tests {
		if got := Level(tt.xp); got != tt.want {
			t.Errorf("Level(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}

	if got := LevelProgress(250); got != 50 {
		t.Errorf("LevelProgress(250) = %d, want 50", got)
	}
}
