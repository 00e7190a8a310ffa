package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/educasense/educasense/internal/model"
)

// ErrAlreadyCompleted is returned when completing an exercise twice.
// Completion is write-once: no re-grading path exists.
var ErrAlreadyCompleted = errors.New("exercise already completed")

// SaveExercise validates and inserts an exercise with its question sequence
// in one transaction. Question order is preserved by an explicit position.
func (s *Store) SaveExercise(ex model.Exercise) error {
	if err := ex.Validate(); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO exercises (id, title, child_id, child_name, child_age, grade, subject, difficulty,
		                        objective_text, story_content, created_at, score, completed, image_url,
		                        created_by, teacher_name)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID, ex.Title, ex.ChildID, ex.ChildName, ex.ChildAge, ex.Grade, ex.Subject, ex.Difficulty,
		ex.ObjectiveText, ex.StoryContent, ex.CreatedAt, ex.Score, ex.Completed, ex.ImageURL,
		ex.CreatedBy, ex.TeacherName,
	)
	if err != nil {
		return err
	}

	for i, q := range ex.Questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO questions (id, exercise_id, position, text, type, options, correct_answer, explanation, audio_data)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.ID, ex.ID, i, q.Text, q.Type, string(options), q.CorrectAnswer, q.Explanation, q.AudioData,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

const exerciseColumns = `id, title, child_id, child_name, child_age, grade, subject, difficulty,
	objective_text, story_content, created_at, score, completed, image_url, created_by, teacher_name`

func scanExercise(row interface{ Scan(...any) error }) (*model.Exercise, error) {
	var ex model.Exercise
	err := row.Scan(&ex.ID, &ex.Title, &ex.ChildID, &ex.ChildName, &ex.ChildAge, &ex.Grade,
		&ex.Subject, &ex.Difficulty, &ex.ObjectiveText, &ex.StoryContent, &ex.CreatedAt,
		&ex.Score, &ex.Completed, &ex.ImageURL, &ex.CreatedBy, &ex.TeacherName)
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

func (s *Store) questionsForExercise(exerciseID string) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, text, type, options, correct_answer, explanation, audio_data
		 FROM questions WHERE exercise_id = ? ORDER BY position`, exerciseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options string
		if err := rows.Scan(&q.ID, &q.Text, &q.Type, &options, &q.CorrectAnswer, &q.Explanation, &q.AudioData); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetExercise returns an exercise with its full question sequence, or nil
// if not found.
func (s *Store) GetExercise(id string) (*model.Exercise, error) {
	ex, err := scanExercise(s.db.QueryRow(`SELECT `+exerciseColumns+` FROM exercises WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ex.Questions, err = s.questionsForExercise(id)
	if err != nil {
		return nil, err
	}
	return ex, nil
}

// ListExercises returns the full history, newest first, questions included.
func (s *Store) ListExercises() ([]model.Exercise, error) {
	return s.listExercisesWhere(``)
}

// ListExercisesForChild returns one child's history, newest first.
func (s *Store) ListExercisesForChild(childID string) ([]model.Exercise, error) {
	return s.listExercisesWhere(`WHERE child_id = ?`, childID)
}

func (s *Store) listExercisesWhere(where string, args ...any) ([]model.Exercise, error) {
	rows, err := s.db.Query(
		`SELECT `+exerciseColumns+` FROM exercises `+where+` ORDER BY created_at DESC, id DESC`, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exercises []model.Exercise
	for rows.Next() {
		ex, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, *ex)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range exercises {
		exercises[i].Questions, err = s.questionsForExercise(exercises[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return exercises, nil
}

// CompleteExercise records the final score exactly once. A second call,
// or a call for a missing exercise, fails.
func (s *Store) CompleteExercise(id string, score float64) error {
	res, err := s.db.Exec(
		`UPDATE exercises SET score = ?, completed = 1 WHERE id = ? AND completed = 0`,
		score, id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		ex, err := s.GetExercise(id)
		if err != nil {
			return err
		}
		if ex == nil {
			return sql.ErrNoRows
		}
		return ErrAlreadyCompleted
	}
	return nil
}

// SetQuestionAudio attaches a generated audio payload to a question.
func (s *Store) SetQuestionAudio(questionID, audioData string) error {
	_, err := s.db.Exec(`UPDATE questions SET audio_data = ? WHERE id = ?`, audioData, questionID)
	return err
}

// ExerciseCount returns the number of exercises in the history.
func (s *Store) ExerciseCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM exercises`).Scan(&count)
	return count, err
}
