package llm

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/educasense/educasense/internal/model"
)

func testChild() model.Child {
	return model.Child{
		ID:         "child-1",
		Name:       "Lucas",
		Age:        8,
		Grade:      "3º Ano",
		AccessCode: "LUC-452",
	}
}

func validPayload() *exercisePayload {
	return &exercisePayload{
		Title:         "Aventura dos Números",
		ObjectiveText: "Reforçar adição com reserva",
		Questions: []questionPayload{
			{
				Text:          "Quanto é 7 + 5?",
				Type:          "multiple",
				Options:       []string{"10", "12", "13"},
				CorrectAnswer: "12",
				Explanation:   "7 + 5 = 12",
			},
		},
	}
}

func TestAssembleExercise(t *testing.T) {
	c := &Client{}
	child := testChild()

	ex, err := c.assembleExercise(child, model.SubjectMath, model.DifficultyMedium, validPayload())
	if err != nil {
		t.Fatalf("assembleExercise() error = %v", err)
	}

	if ex.ID == "" {
		t.Error("exercise should get a generated ID")
	}
	if ex.ChildID != child.ID || ex.ChildName != child.Name || ex.ChildAge != child.Age || ex.Grade != child.Grade {
		t.Errorf("exercise should snapshot the child profile, got %+v", ex)
	}
	if ex.Subject != model.SubjectMath || ex.Difficulty != model.DifficultyMedium {
		t.Errorf("subject/difficulty = %q/%q, want %q/%q", ex.Subject, ex.Difficulty, model.SubjectMath, model.DifficultyMedium)
	}
	if ex.CreatedAt.IsZero() {
		t.Error("exercise should get a creation timestamp")
	}
	if ex.Completed || ex.Score != nil {
		t.Error("new exercise should be incomplete and unscored")
	}
	if len(ex.Questions) != 1 {
		t.Fatalf("len(Questions) = %d, want 1", len(ex.Questions))
	}
	if ex.Questions[0].ID == "" {
		t.Error("question should get a generated ID")
	}
	if ex.Questions[0].CorrectAnswer != "12" {
		t.Errorf("CorrectAnswer = %q, want %q", ex.Questions[0].CorrectAnswer, "12")
	}
}

func TestAssembleExerciseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*exercisePayload)
	}{
		{"empty title", func(p *exercisePayload) { p.Title = "" }},
		{"no questions", func(p *exercisePayload) { p.Questions = nil }},
		{"unknown question type", func(p *exercisePayload) { p.Questions[0].Type = "essay" }},
		{"answer not in options", func(p *exercisePayload) { p.Questions[0].CorrectAnswer = "99" }},
		{"multiple without options", func(p *exercisePayload) { p.Questions[0].Options = nil }},
	}

	c := &Client{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(p)
			_, err := c.assembleExercise(testChild(), model.SubjectMath, model.DifficultyEasy, p)
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("assembleExercise() error = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestExercisePayloadDecoding(t *testing.T) {
	raw := `{
		"title": "O Dragão Leitor",
		"content": "Era uma vez um dragão que adorava livros.",
		"objectiveText": "Compreensão de texto",
		"questions": [
			{"text": "O que o dragão adorava?", "type": "multiple",
			 "options": ["Livros", "Ouro", "Fogo"], "correctAnswer": "Livros",
			 "explanation": "O texto diz que ele adorava livros."}
		]
	}`

	var p exercisePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Title != "O Dragão Leitor" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Content == "" {
		t.Error("Content should carry the story text")
	}
	if len(p.Questions) != 1 || p.Questions[0].CorrectAnswer != "Livros" {
		t.Errorf("questions decoded wrong: %+v", p.Questions)
	}
}

func TestFallbackActionPlan(t *testing.T) {
	plan := FallbackActionPlan()
	if plan.Summary == "" {
		t.Error("fallback plan should have a summary")
	}
	if len(plan.Tasks) != 3 {
		t.Errorf("len(Tasks) = %d, want 3", len(plan.Tasks))
	}
	if plan.Alert != "" {
		t.Errorf("fallback plan should not raise an alert, got %q", plan.Alert)
	}
}
