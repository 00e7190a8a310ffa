package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/educasense/educasense/internal/model"
	"github.com/educasense/educasense/internal/quiz"
	"github.com/educasense/educasense/internal/store"
)

// childView decorates a child with its derived level for the client.
type childView struct {
	model.Child
	Level         int `json:"level"`
	LevelProgress int `json:"levelProgress"`
}

func newChildView(c model.Child) childView {
	return childView{
		Child:         c,
		Level:         quiz.Level(c.XP),
		LevelProgress: quiz.LevelProgress(c.XP),
	}
}

func (h *Handler) handleListChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.store.ListChildren()
	if err != nil {
		h.storeError(w, r, "list children", err)
		return
	}

	views := make([]childView, 0, len(children))
	for _, c := range children {
		views = append(views, newChildView(c))
	}
	h.respondJSON(w, http.StatusOK, views)
}

func (h *Handler) handleCreateChild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name               string   `json:"name"`
		Age                int      `json:"age"`
		Grade              string   `json:"grade"`
		Avatar             string   `json:"avatar"`
		AccessCode         string   `json:"accessCode"`
		DifficultySubjects []string `json:"difficultySubjects"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	subjects := make([]model.Subject, 0, len(req.DifficultySubjects))
	for _, s := range req.DifficultySubjects {
		subjects = append(subjects, model.Subject(s))
	}

	child := model.Child{
		ID:                 uuid.NewString(),
		Name:               req.Name,
		Age:                req.Age,
		Grade:              req.Grade,
		Avatar:             req.Avatar,
		AccessCode:         req.AccessCode,
		DifficultySubjects: subjects,
	}

	err := h.store.CreateChild(child)
	switch {
	case errors.Is(err, store.ErrDuplicateAccessCode):
		h.respondError(w, r, http.StatusConflict, "ErrorDuplicateAccessCode")
		return
	case isBadRequest(err):
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	case err != nil:
		h.storeError(w, r, "create child", err)
		return
	}

	child.AccessCode = model.NormalizeAccessCode(child.AccessCode)
	h.respondJSON(w, http.StatusCreated, newChildView(child))
}

func (h *Handler) handleGetChild(w http.ResponseWriter, r *http.Request) {
	child := h.loadChild(w, r)
	if child == nil {
		return
	}
	h.respondJSON(w, http.StatusOK, newChildView(*child))
}

// handleUpdateChild edits profile fields. Gamification counters are never
// writable through this endpoint; they only move via quiz completion.
func (h *Handler) handleUpdateChild(w http.ResponseWriter, r *http.Request) {
	child := h.loadChild(w, r)
	if child == nil {
		return
	}

	var req struct {
		Name               string   `json:"name"`
		Age                *int     `json:"age"`
		Grade              string   `json:"grade"`
		Avatar             string   `json:"avatar"`
		DifficultySubjects []string `json:"difficultySubjects"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	if req.Name != "" {
		child.Name = req.Name
	}
	if req.Age != nil {
		child.Age = *req.Age
	}
	if req.Grade != "" {
		child.Grade = req.Grade
	}
	if req.Avatar != "" {
		child.Avatar = req.Avatar
	}
	if req.DifficultySubjects != nil {
		subjects := make([]model.Subject, 0, len(req.DifficultySubjects))
		for _, s := range req.DifficultySubjects {
			subjects = append(subjects, model.Subject(s))
		}
		child.DifficultySubjects = subjects
	}

	err := h.store.UpdateChildProfile(*child)
	switch {
	case isBadRequest(err):
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	case err != nil:
		h.storeError(w, r, "update child", err)
		return
	}
	h.respondJSON(w, http.StatusOK, newChildView(*child))
}
