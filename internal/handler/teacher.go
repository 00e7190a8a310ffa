package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/educasense/educasense/internal/model"
)

func (h *Handler) handleListClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.store.ListClasses()
	if err != nil {
		h.storeError(w, r, "list classes", err)
		return
	}
	if classes == nil {
		classes = []model.ClassGroup{}
	}
	h.respondJSON(w, http.StatusOK, classes)
}

func (h *Handler) handleGetClass(w http.ResponseWriter, r *http.Request) {
	class, err := h.store.GetClass(chi.URLParam(r, "classID"))
	if err != nil {
		h.storeError(w, r, "get class", err)
		return
	}
	if class == nil {
		h.respondError(w, r, http.StatusNotFound, "ErrorNotFound")
		return
	}
	h.respondJSON(w, http.StatusOK, class)
}

// handleCreateClassActivity generates an exercise on behalf of a teacher for
// one student. The result carries the teacher's name so families can see who
// assigned it.
func (h *Handler) handleCreateClassActivity(w http.ResponseWriter, r *http.Request) {
	teacher := model.GuardianFromContext(r.Context())

	class, err := h.store.GetClass(chi.URLParam(r, "classID"))
	if err != nil {
		h.storeError(w, r, "get class", err)
		return
	}
	if class == nil {
		h.respondError(w, r, http.StatusNotFound, "ErrorNotFound")
		return
	}

	var req struct {
		ChildID    string `json:"childId"`
		Subject    string `json:"subject"`
		Difficulty string `json:"difficulty"`
		Objective  string `json:"objective"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	child, err := h.store.GetChild(req.ChildID)
	if err != nil {
		h.storeError(w, r, "get child", err)
		return
	}
	if child == nil {
		h.respondError(w, r, http.StatusNotFound, "ErrorNotFound")
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
		h.generationError(w, r, "generate class activity", err)
		return
	}
	ex.CreatedBy = model.RoleTeacher
	ex.TeacherName = teacher.Name

	h.saveGenerated(w, r, ex)
}

// handleReports aggregates per-child progress for the teacher dashboard.
func (h *Handler) handleReports(w http.ResponseWriter, r *http.Request) {
	report, err := h.store.ExportHistory()
	if err != nil {
		h.storeError(w, r, "build report", err)
		return
	}
	h.respondJSON(w, http.StatusOK, report)
}
