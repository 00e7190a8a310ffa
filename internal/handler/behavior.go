package handler

import (
	"database/sql"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/educasense/educasense/internal/model"
)

func (h *Handler) handleListCheckIns(w http.ResponseWriter, r *http.Request) {
	child := h.loadChild(w, r)
	if child == nil {
		return
	}

	checkIns, err := h.store.ListCheckInsForChild(child.ID)
	if err != nil {
		h.storeError(w, r, "list check-ins", err)
		return
	}
	if checkIns == nil {
		checkIns = []model.DailyCheckIn{}
	}
	h.respondJSON(w, http.StatusOK, checkIns)
}

func (h *Handler) handleAddCheckIn(w http.ResponseWriter, r *http.Request) {
	child := h.loadChild(w, r)
	if child == nil {
		return
	}

	var req struct {
		Mood         string `json:"mood"`
		Energy       int    `json:"energy"`
		SleepQuality int    `json:"sleepQuality"`
		SchoolStatus string `json:"schoolStatus"`
		Event        string `json:"event"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	checkIn := model.DailyCheckIn{
		ID:           uuid.NewString(),
		ChildID:      child.ID,
		Date:         time.Now(),
		Mood:         model.Mood(req.Mood),
		Energy:       req.Energy,
		SleepQuality: req.SleepQuality,
		SchoolStatus: req.SchoolStatus,
		Event:        req.Event,
	}

	err := h.store.AddCheckIn(checkIn)
	switch {
	case isBadRequest(err):
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	case err != nil:
		h.storeError(w, r, "add check-in", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, checkIn)
}

func (h *Handler) handleListGoals(w http.ResponseWriter, r *http.Request) {
	child := h.loadChild(w, r)
	if child == nil {
		return
	}

	goals, err := h.store.ListGoalsForChild(child.ID)
	if err != nil {
		h.storeError(w, r, "list goals", err)
		return
	}
	if goals == nil {
		goals = []model.BehaviorGoal{}
	}
	h.respondJSON(w, http.StatusOK, goals)
}

func (h *Handler) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	child := h.loadChild(w, r)
	if child == nil {
		return
	}

	var req struct {
		Title      string `json:"title"`
		TargetDays int    `json:"targetDays"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	goal := model.BehaviorGoal{
		ID:         uuid.NewString(),
		ChildID:    child.ID,
		Title:      req.Title,
		TargetDays: req.TargetDays,
	}

	err := h.store.CreateGoal(goal)
	switch {
	case isBadRequest(err):
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	case err != nil:
		h.storeError(w, r, "create goal", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, goal)
}

// handleMarkGoalDay records today (or an explicit date) as completed on a
// goal. Marking the same day twice is a conflict, not progress.
func (h *Handler) handleMarkGoalDay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}
	date := req.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	goal, err := h.store.MarkGoalDay(chi.URLParam(r, "goalID"), date)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		h.respondError(w, r, http.StatusNotFound, "ErrorNotFound")
		return
	case errors.Is(err, model.ErrDayAlreadyCompleted):
		h.respondError(w, r, http.StatusConflict, "ErrorGoalDayMarked")
		return
	case errors.Is(err, model.ErrTargetDaysExceeded):
		h.respondError(w, r, http.StatusConflict, "ErrorGoalDayMarked")
		return
	case err != nil:
		h.storeError(w, r, "mark goal day", err)
		return
	}
	h.respondJSON(w, http.StatusOK, goal)
}

func (h *Handler) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteGoal(chi.URLParam(r, "goalID"))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		h.respondError(w, r, http.StatusNotFound, "ErrorNotFound")
		return
	case err != nil:
		h.storeError(w, r, "delete goal", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleActionPlan computes a fresh behavior plan from the child's check-in
// history. Plans are never stored; each request reflects the latest data.
func (h *Handler) handleActionPlan(w http.ResponseWriter, r *http.Request) {
	child := h.loadChild(w, r)
	if child == nil {
		return
	}

	checkIns, err := h.store.ListCheckInsForChild(child.ID)
	if err != nil {
		h.storeError(w, r, "list check-ins", err)
		return
	}

	plan := h.llm.GenerateBehaviorInsight(r.Context(), *child, checkIns)
	h.respondJSON(w, http.StatusOK, plan)
}

func (h *Handler) handleParentTip(w http.ResponseWriter, r *http.Request) {
	child := h.loadChild(w, r)
	if child == nil {
		return
	}

	tip := h.llm.GenerateParentTip(r.Context(), *child)
	h.respondJSON(w, http.StatusOK, map[string]string{"tip": tip})
}

// handleColoringPage generates a printable coloring page for a theme and
// streams it back as PNG.
func (h *Handler) handleColoringPage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Theme == "" {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	image, err := h.llm.GenerateColoringPage(r.Context(), req.Theme)
	if err != nil {
		h.generationError(w, r, "generate coloring page", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(image); err != nil {
		return
	}
}

const maxPhotoBytes = 8 << 20

// handleColoringPhoto turns an uploaded photo (raw PNG body) into a coloring
// page.
func (h *Handler) handleColoringPhoto(w http.ResponseWriter, r *http.Request) {
	photo, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPhotoBytes))
	if err != nil || len(photo) == 0 {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	image, err := h.llm.TransformPhotoToColoringPage(r.Context(), photo)
	if err != nil {
		h.generationError(w, r, "transform photo", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(image); err != nil {
		return
	}
}
