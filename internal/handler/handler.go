// Package handler implements the JSON API consumed by the Educa Sense web
// client. Handlers are thin: validation and translation of domain errors into
// HTTP status codes happens here, everything else lives in store, llm and quiz.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/educasense/educasense/internal/i18n"
	"github.com/educasense/educasense/internal/llm"
	"github.com/educasense/educasense/internal/model"
	"github.com/educasense/educasense/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	llm    *llm.Client
	config model.AppConfig
}

// New creates a new Handler.
func New(s *store.Store, l *llm.Client, cfg model.AppConfig) (*Handler, error) {
	return &Handler{store: s, llm: l, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(h.csrfMiddleware)

		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
		r.Post("/register", h.handleRegister)
		r.Post("/student/login", h.handleStudentLogin)

		// Routes reachable by both guardian and child sessions.
		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/me", h.handleMe)
			r.Get("/exercises/{exerciseID}", h.handleGetExercise)
			r.Post("/exercises/{exerciseID}/complete", h.handleCompleteExercise)
			r.Get("/children/{childID}/exercises", h.handleChildExercises)
		})

		// Guardian account routes (parents and teachers both hold accounts).
		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth, h.requireAccount)

			r.Get("/children", h.handleListChildren)
			r.Post("/children", h.handleCreateChild)
			r.Get("/children/{childID}", h.handleGetChild)
			r.Put("/children/{childID}", h.handleUpdateChild)
			r.Put("/profile", h.handleUpdateProfile)

			r.Get("/exercises", h.handleListExercises)
			r.Post("/children/{childID}/exercises", h.handleGenerateExercise)
			r.Post("/children/{childID}/exercises/reading", h.handleGenerateReading)
			r.Post("/children/{childID}/exercises/arts", h.handleGenerateArts)
			r.Post("/children/{childID}/exercises/english", h.handleGenerateEnglish)
			r.Post("/exercises/{exerciseID}/questions/{questionID}/audio", h.handleQuestionAudio)

			r.Get("/children/{childID}/checkins", h.handleListCheckIns)
			r.Post("/children/{childID}/checkins", h.handleAddCheckIn)
			r.Get("/children/{childID}/goals", h.handleListGoals)
			r.Post("/children/{childID}/goals", h.handleCreateGoal)
			r.Post("/goals/{goalID}/days", h.handleMarkGoalDay)
			r.Delete("/goals/{goalID}", h.handleDeleteGoal)
			r.Get("/children/{childID}/action-plan", h.handleActionPlan)
			r.Get("/children/{childID}/parent-tip", h.handleParentTip)

			r.Post("/coloring", h.handleColoringPage)
			r.Post("/coloring/photo", h.handleColoringPhoto)
		})

		// Teacher-only routes.
		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth, h.requireAccount, requireRole(model.RoleTeacher))
			r.Get("/classes", h.handleListClasses)
			r.Get("/classes/{classID}", h.handleGetClass)
			r.Post("/classes/{classID}/activities", h.handleCreateClassActivity)
			r.Get("/reports", h.handleReports)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			h.respondError(w, r, http.StatusNotFound, "ErrorNotFound")
		})
	})
}

// respondJSON writes v as a JSON response with the given status.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondError writes a localized JSON error body.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	h.respondJSON(w, status, map[string]string{"error": appI18n.T(r.Context(), msgID)})
}

const maxBodyBytes = 1 << 20

// decodeJSON reads a bounded JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// storeError maps a persistence failure to a 500 and logs it.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.Error(op, "error", err)
	h.respondError(w, r, http.StatusInternalServerError, "ErrorInternal")
}

// generationError maps an upstream generation failure to a 502.
func (h *Handler) generationError(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.Error(op, "error", err)
	h.respondError(w, r, http.StatusBadGateway, "ErrorGenerationFailed")
}

// loadChild fetches the child named in the URL, writing 404 when absent.
// Returns nil after responding on any failure.
func (h *Handler) loadChild(w http.ResponseWriter, r *http.Request) *model.Child {
	child, err := h.store.GetChild(chi.URLParam(r, "childID"))
	if err != nil {
		h.storeError(w, r, "get child", err)
		return nil
	}
	if child == nil {
		h.respondError(w, r, http.StatusNotFound, "ErrorNotFound")
		return nil
	}
	return child
}

// isBadRequest reports whether err is a domain validation error the client
// caused, as opposed to an infrastructure failure.
func isBadRequest(err error) bool {
	for _, e := range []error{
		model.ErrEmptyName, model.ErrEmptyAccessCode, model.ErrNegativeAge,
		model.ErrEmptyTitle, model.ErrNoQuestions, model.ErrInvalidSubject,
		model.ErrInvalidDifficulty, model.ErrInvalidQuestionType,
		model.ErrNoOptions, model.ErrAnswerNotInOptions, model.ErrInvalidMood,
		model.ErrRatingOutOfRange, model.ErrInvalidTargetDays,
		model.ErrTargetDaysExceeded,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
