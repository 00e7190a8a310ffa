package handler

import (
	"database/sql"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/educasense/educasense/internal/model"
	"github.com/educasense/educasense/internal/quiz"
	"github.com/educasense/educasense/internal/store"
)

func (h *Handler) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := h.store.ListExercises()
	if err != nil {
		h.storeError(w, r, "list exercises", err)
		return
	}
	if exercises == nil {
		exercises = []model.Exercise{}
	}
	h.respondJSON(w, http.StatusOK, exercises)
}

func (h *Handler) handleChildExercises(w http.ResponseWriter, r *http.Request) {
	childID := chi.URLParam(r, "childID")

	// A logged-in child can only see their own history.
	if c := model.ChildFromContext(r.Context()); c != nil && c.ID != childID {
		h.respondError(w, r, http.StatusForbidden, "ErrorForbidden")
		return
	}

	exercises, err := h.store.ListExercisesForChild(childID)
	if err != nil {
		h.storeError(w, r, "list exercises for child", err)
		return
	}
	if exercises == nil {
		exercises = []model.Exercise{}
	}
	h.respondJSON(w, http.StatusOK, exercises)
}

func (h *Handler) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	ex, err := h.store.GetExercise(chi.URLParam(r, "exerciseID"))
	if err != nil {
		h.storeError(w, r, "get exercise", err)
		return
	}
	if ex == nil {
		h.respondError(w, r, http.StatusNotFound, "ErrorNotFound")
		return
	}
	if c := model.ChildFromContext(r.Context()); c != nil && c.ID != ex.ChildID {
		h.respondError(w, r, http.StatusForbidden, "ErrorForbidden")
		return
	}
	h.respondJSON(w, http.StatusOK, ex)
}

// parseDifficulty falls back to the medium level when the client omits it.
func parseDifficulty(s string) (model.Difficulty, bool) {
	if s == "" {
		return model.DifficultyMedium, true
	}
	d := model.Difficulty(s)
	switch d {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
		return d, true
	}
	return "", false
}

func (h *Handler) handleGenerateExercise(w http.ResponseWriter, r *http.Request) {
	child := h.loadChild(w, r)
	if child == nil {
		return
	}

	var req struct {
		Subject    string `json:"subject"`
		Difficulty string `json:"difficulty"`
		Objective  string `json:"objective"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	subject := model.Subject(req.Subject)
	if !model.IsValidSubject(subject) {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}
	difficulty, ok := parseDifficulty(req.Difficulty)
	if !ok {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}
	objective := model.Objective(req.Objective)
	if req.Objective == "" {
		objective = model.ObjectiveReinforce
	}
	if !model.IsValidObjective(objective) {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	ex, err := h.llm.GenerateExercise(r.Context(), *child, subject, difficulty, objective, h.config.QuestionCount)
	if err != nil {
		h.generationError(w, r, "generate exercise", err)
		return
	}
	h.saveGenerated(w, r, ex)
}

func (h *Handler) handleGenerateReading(w http.ResponseWriter, r *http.Request) {
	child := h.loadChild(w, r)
	if child == nil {
		return
	}

	var req struct {
		Interest   string `json:"interest"`
		Difficulty string `json:"difficulty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}
	difficulty, ok := parseDifficulty(req.Difficulty)
	if !ok {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	ex, err := h.llm.GenerateReadingExercise(r.Context(), *child, req.Interest, difficulty, h.config.QuestionCount)
	if err != nil {
		h.generationError(w, r, "generate reading exercise", err)
		return
	}
	h.saveGenerated(w, r, ex)
}

func (h *Handler) handleGenerateArts(w http.ResponseWriter, r *http.Request) {
	child := h.loadChild(w, r)
	if child == nil {
		return
	}

	var req struct {
		Theme      string `json:"theme"`
		Materials  string `json:"materials"`
		Difficulty string `json:"difficulty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}
	difficulty, ok := parseDifficulty(req.Difficulty)
	if !ok {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	ex, err := h.llm.GenerateArtsExercise(r.Context(), *child, req.Theme, req.Materials, difficulty, h.config.ArtsStepCount)
	if err != nil {
		h.generationError(w, r, "generate arts exercise", err)
		return
	}
	h.saveGenerated(w, r, ex)
}

func (h *Handler) handleGenerateEnglish(w http.ResponseWriter, r *http.Request) {
	child := h.loadChild(w, r)
	if child == nil {
		return
	}

	var req struct {
		Theme      string `json:"theme"`
		Difficulty string `json:"difficulty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}
	difficulty, ok := parseDifficulty(req.Difficulty)
	if !ok {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	ex, err := h.llm.GenerateEnglishExercise(r.Context(), *child, req.Theme, difficulty, h.config.QuestionCount)
	if err != nil {
		h.generationError(w, r, "generate english exercise", err)
		return
	}
	h.saveGenerated(w, r, ex)
}

func (h *Handler) saveGenerated(w http.ResponseWriter, r *http.Request, ex *model.Exercise) {
	if err := h.store.SaveExercise(*ex); err != nil {
		h.storeError(w, r, "save exercise", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, ex)
}

// completionResult is the response for a graded quiz: the exercise outcome
// plus the child's counters after the reward was applied.
type completionResult struct {
	Score        float64 `json:"score"`
	CorrectCount int     `json:"correctCount"`
	Total        int     `json:"total"`
	XP           int     `json:"xp"`
	Stars        int     `json:"stars"`
	Streak       int     `json:"streak"`
	Level        int     `json:"level"`
}

// handleCompleteExercise grades a full answer sheet, records the score
// (write-once) and applies the gamification reward to the child.
func (h *Handler) handleCompleteExercise(w http.ResponseWriter, r *http.Request) {
	ex, err := h.store.GetExercise(chi.URLParam(r, "exerciseID"))
	if err != nil {
		h.storeError(w, r, "get exercise", err)
		return
	}
	if ex == nil {
		h.respondError(w, r, http.StatusNotFound, "ErrorNotFound")
		return
	}
	if c := model.ChildFromContext(r.Context()); c != nil && c.ID != ex.ChildID {
		h.respondError(w, r, http.StatusForbidden, "ErrorForbidden")
		return
	}
	if ex.Completed {
		h.respondError(w, r, http.StatusConflict, "ErrorExerciseCompleted")
		return
	}

	var req struct {
		Answers []string `json:"answers"`
	}
	if err := decodeJSON(r, &req); err != nil || len(req.Answers) != len(ex.Questions) {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	session, err := quiz.NewSession(ex)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	var result *quiz.Result
	for _, answer := range req.Answers {
		if err := session.Select(answer); err != nil {
			h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
			return
		}
		if _, err := session.Confirm(); err != nil { // grade
			h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
			return
		}
		if result, err = session.Confirm(); err != nil { // advance or finish
			h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
			return
		}
	}

	err = h.store.CompleteExercise(ex.ID, result.Score)
	switch {
	case errors.Is(err, store.ErrAlreadyCompleted):
		h.respondError(w, r, http.StatusConflict, "ErrorExerciseCompleted")
		return
	case errors.Is(err, sql.ErrNoRows):
		h.respondError(w, r, http.StatusNotFound, "ErrorNotFound")
		return
	case err != nil:
		h.storeError(w, r, "complete exercise", err)
		return
	}

	child, err := h.store.GetChild(ex.ChildID)
	if err != nil {
		h.storeError(w, r, "get child", err)
		return
	}

	resp := completionResult{
		Score:        result.Score,
		CorrectCount: result.CorrectCount,
		Total:        result.Total,
	}
	if child != nil {
		rewarded := quiz.Apply(*child, result.CorrectCount)
		if err := h.store.UpdateChildStats(rewarded.ID, rewarded.XP, rewarded.Stars, rewarded.Streak); err != nil {
			h.storeError(w, r, "update child stats", err)
			return
		}
		resp.XP = rewarded.XP
		resp.Stars = rewarded.Stars
		resp.Streak = rewarded.Streak
		resp.Level = quiz.Level(rewarded.XP)
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// handleQuestionAudio narrates one question's text and stores the result on
// the question for replay.
func (h *Handler) handleQuestionAudio(w http.ResponseWriter, r *http.Request) {
	ex, err := h.store.GetExercise(chi.URLParam(r, "exerciseID"))
	if err != nil {
		h.storeError(w, r, "get exercise", err)
		return
	}
	if ex == nil {
		h.respondError(w, r, http.StatusNotFound, "ErrorNotFound")
		return
	}

	questionID := chi.URLParam(r, "questionID")
	var question *model.Question
	for i := range ex.Questions {
		if ex.Questions[i].ID == questionID {
			question = &ex.Questions[i]
			break
		}
	}
	if question == nil {
		h.respondError(w, r, http.StatusNotFound, "ErrorNotFound")
		return
	}

	if question.AudioData != "" {
		h.respondJSON(w, http.StatusOK, map[string]string{"audioData": question.AudioData})
		return
	}

	text := question.Text
	if ex.StoryContent != "" {
		text = ex.StoryContent + " " + text
	}
	audio, err := h.llm.GenerateAudio(r.Context(), text)
	if err != nil {
		h.generationError(w, r, "generate audio", err)
		return
	}

	audioData := "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(audio)
	if err := h.store.SetQuestionAudio(questionID, audioData); err != nil {
		h.storeError(w, r, "save question audio", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"audioData": audioData})
}
