// Package quiz implements the exercise lifecycle state machine and the
// gamification rules applied to a child on completion.
package quiz

import (
	"errors"

	"github.com/educasense/educasense/internal/model"
)

// Status represents the state of a quiz session.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// RevealAnswer is the sentinel selection for open and sequence questions:
// the learner self-assesses, so revealing counts as a correct answer.
const RevealAnswer = "manual-correct"

var (
	// ErrNoSelection is returned by Confirm when no option has been chosen yet.
	ErrNoSelection = errors.New("no option selected")
	// ErrAlreadyAnswered is returned by Select after the answer was confirmed.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrCompleted is returned when acting on a finished session.
	ErrCompleted = errors.New("quiz already completed")
)

// Session walks a child through an exercise's questions one at a time.
// It is a pure in-memory machine; persisting the outcome is the caller's job.
type Session struct {
	Exercise *model.Exercise

	index    int
	selected string
	answered bool
	correct  int
	status   Status
}

// NewSession starts a quiz over the given exercise at question zero.
// The exercise must have been validated (at least one question).
func NewSession(ex *model.Exercise) (*Session, error) {
	if err := ex.Validate(); err != nil {
		return nil, err
	}
	return &Session{Exercise: ex, status: StatusInProgress}, nil
}

// Status reports whether the session is in progress or completed.
func (s *Session) Status() Status { return s.status }

// Index returns the current zero-based question index.
func (s *Session) Index() int { return s.index }

// Answered reports whether the current question has been confirmed.
func (s *Session) Answered() bool { return s.answered }

// CorrectCount returns the number of questions answered correctly so far.
func (s *Session) CorrectCount() int { return s.correct }

// Current returns the question the session is positioned on.
func (s *Session) Current() model.Question {
	return s.Exercise.Questions[s.index]
}

// Select records the chosen option. Legal only before the current question
// has been confirmed.
func (s *Session) Select(option string) error {
	if s.status == StatusCompleted {
		return ErrCompleted
	}
	if s.answered {
		return ErrAlreadyAnswered
	}
	s.selected = option
	return nil
}

// Result is returned by Confirm when the session reaches its terminal state.
type Result struct {
	Score        float64
	CorrectCount int
	Total        int
}

// Confirm drives the state machine. Before the current question is answered
// it grades the selection; once answered it advances, or completes the
// session after the last question and returns the final result.
func (s *Session) Confirm() (*Result, error) {
	if s.status == StatusCompleted {
		return nil, ErrCompleted
	}

	if !s.answered {
		if s.selected == "" {
			return nil, ErrNoSelection
		}
		q := s.Current()
		if s.selected == q.CorrectAnswer || s.selected == RevealAnswer {
			s.correct++
		}
		s.answered = true
		return nil, nil
	}

	if s.index+1 < len(s.Exercise.Questions) {
		s.index++
		s.selected = ""
		s.answered = false
		return nil, nil
	}

	s.status = StatusCompleted
	total := len(s.Exercise.Questions)
	return &Result{
		Score:        Score(s.correct, total),
		CorrectCount: s.correct,
		Total:        total,
	}, nil
}

// Score maps a correct count over a total to the 0-10 scale, unrounded.
func Score(correct, total int) float64 {
	return float64(correct) / float64(total) * 10
}

// Apply folds a quiz result into a child's gamification counters:
// 10 xp per correct answer, one star per two correct answers, and the streak
// advances on every completion regardless of calendar day.
func Apply(child model.Child, correctCount int) model.Child {
	child.XP += correctCount * 10
	child.Stars += correctCount / 2
	child.Streak++
	return child
}

// Level derives a child's level from xp: 100 xp per level, starting at 1.
func Level(xp int) int {
	return xp/100 + 1
}

// LevelProgress returns how far into the current level the xp is, out of 100.
func LevelProgress(xp int) int {
	return xp % 100
}
