// Package llm wraps an OpenAI-compatible API for all content generation:
// exercises, behavior insights, parent tips, illustrations and audio.
// Every call is one-shot and stateless; structured responses are validated
// at this boundary before they reach the rest of the application.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/educasense/educasense/internal/llm/prompts"
	"github.com/educasense/educasense/internal/model"
)

// ErrMalformedResponse is returned when the model's output cannot be decoded
// into the expected shape or fails entity validation.
var ErrMalformedResponse = fmt.Errorf("malformed generation response")

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api        *openai.Client
	model      string
	imageModel string
	ttsModel   string
	ttsVoice   string
}

// New creates a new generation client.
func New(baseURL, apiKey, modelName, imageModel, ttsModel, ttsVoice string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:        openai.NewClientWithConfig(config),
		model:      modelName,
		imageModel: imageModel,
		ttsModel:   ttsModel,
		ttsVoice:   ttsVoice,
	}
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// questionPayload mirrors the question shape the prompts ask the model for.
type questionPayload struct {
	Text          string   `json:"text"`
	Type          string   `json:"type"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// exercisePayload mirrors the top-level generation shape.
type exercisePayload struct {
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	ObjectiveText string            `json:"objectiveText"`
	Questions     []questionPayload `json:"questions"`
}

// GenerateExercise produces a personalized exercise for a child in the given
// subject.
func (c *Client) GenerateExercise(ctx context.Context, child model.Child, subject model.Subject,
	difficulty model.Difficulty, objective model.Objective, questionCount int) (*model.Exercise, error) {

	prompt, err := prompts.Build(prompts.KindExercise, prompts.ExerciseData{
		ChildName:     child.Name,
		Age:           child.Age,
		Grade:         child.Grade,
		Subject:       string(subject),
		Difficulty:    string(difficulty),
		Objective:     string(objective),
		QuestionCount: questionCount,
	})
	if err != nil {
		return nil, err
	}

	payload, err := c.generateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return c.assembleExercise(child, subject, difficulty, payload)
}

// GenerateReadingExercise produces a short story with comprehension questions
// and a best-effort illustration.
func (c *Client) GenerateReadingExercise(ctx context.Context, child model.Child, interest string,
	difficulty model.Difficulty, questionCount int) (*model.Exercise, error) {

	interest = prompts.SanitizeField(interest)
	prompt, err := prompts.Build(prompts.KindReading, prompts.ReadingData{
		ChildName:     child.Name,
		Age:           child.Age,
		Interest:      interest,
		Difficulty:    string(difficulty),
		QuestionCount: questionCount,
	})
	if err != nil {
		return nil, err
	}

	payload, err := c.generateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}
	ex, err := c.assembleExercise(child, model.SubjectPortuguese, difficulty, payload)
	if err != nil {
		return nil, err
	}
	ex.StoryContent = payload.Content
	ex.ImageURL = c.generateIllustration(ctx, ex.Title+" - "+interest)
	return ex, nil
}

// GenerateArtsExercise produces a creative art mission with open steps and a
// best-effort illustration.
func (c *Client) GenerateArtsExercise(ctx context.Context, child model.Child, theme, materials string,
	difficulty model.Difficulty, stepCount int) (*model.Exercise, error) {

	theme = prompts.SanitizeField(theme)
	prompt, err := prompts.Build(prompts.KindArts, prompts.ArtsData{
		ChildName:  child.Name,
		Age:        child.Age,
		Theme:      theme,
		Materials:  prompts.SanitizeField(materials),
		Difficulty: string(difficulty),
		StepCount:  stepCount,
	})
	if err != nil {
		return nil, err
	}

	payload, err := c.generateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}
	ex, err := c.assembleExercise(child, model.SubjectArt, difficulty, payload)
	if err != nil {
		return nil, err
	}
	ex.ImageURL = c.generateIllustration(ctx, "Missão de arte: "+theme)
	return ex, nil
}

// GenerateEnglishExercise produces playful English practice. No illustration.
func (c *Client) GenerateEnglishExercise(ctx context.Context, child model.Child, theme string,
	difficulty model.Difficulty, questionCount int) (*model.Exercise, error) {

	prompt, err := prompts.Build(prompts.KindEnglish, prompts.EnglishData{
		ChildName:     child.Name,
		Age:           child.Age,
		Theme:         prompts.SanitizeField(theme),
		Difficulty:    string(difficulty),
		QuestionCount: questionCount,
	})
	if err != nil {
		return nil, err
	}

	payload, err := c.generateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return c.assembleExercise(child, model.SubjectEnglish, difficulty, payload)
}

// FallbackActionPlan is returned when behavior-insight generation fails.
// This is the one place a generation error is absorbed silently: the family
// always gets a plan.
func FallbackActionPlan() *model.ActionPlan {
	return &model.ActionPlan{
		Summary: "Continue registrando para que possamos identificar padrões no comportamento.",
		Tasks: []string{
			"Manter rotina de sono estável",
			"Incentivar conversa sobre emoções",
			"Reduzir tempo de tela à noite",
		},
	}
}

// GenerateBehaviorInsight analyzes a child's check-ins into an action plan.
// It never fails: any error yields the canned fallback plan.
func (c *Client) GenerateBehaviorInsight(ctx context.Context, child model.Child, checkIns []model.DailyCheckIn) *model.ActionPlan {
	var parts []string
	for _, ci := range checkIns {
		parts = append(parts, fmt.Sprintf("Data: %s, Humor: %s, Sono: %d/5",
			ci.Date.Format("2006-01-02"), ci.Mood, ci.SleepQuality))
	}

	prompt, err := prompts.Build(prompts.KindInsight, prompts.InsightData{
		ChildName:   child.Name,
		Age:         child.Age,
		DataSummary: strings.Join(parts, "; "),
	})
	if err != nil {
		slog.Warn("insight prompt build failed, using fallback", "error", err)
		return FallbackActionPlan()
	}

	raw, err := c.chatJSON(ctx, prompt)
	if err != nil {
		slog.Warn("insight generation failed, using fallback", "error", err)
		return FallbackActionPlan()
	}

	var plan model.ActionPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil || plan.Summary == "" || len(plan.Tasks) == 0 {
		slog.Warn("insight response malformed, using fallback", "error", err)
		return FallbackActionPlan()
	}
	return &plan
}

// FallbackParentTip is the static encouragement used when tip generation fails.
const FallbackParentTip = "O aprendizado lúdico é o melhor caminho!"

// GenerateParentTip produces a short practical tip for a guardian.
// Best-effort: failures yield a static encouragement.
func (c *Client) GenerateParentTip(ctx context.Context, child model.Child) string {
	subjects := "aprendizado geral"
	if len(child.DifficultySubjects) > 0 {
		var names []string
		for _, s := range child.DifficultySubjects {
			names = append(names, string(s))
		}
		subjects = strings.Join(names, ", ")
	}

	prompt, err := prompts.Build(prompts.KindTip, prompts.TipData{Age: child.Age, Subjects: subjects})
	if err != nil {
		slog.Warn("tip prompt build failed, using fallback", "error", err)
		return FallbackParentTip
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil || len(resp.Choices) == 0 {
		slog.Warn("tip generation failed, using fallback", "error", err)
		return FallbackParentTip
	}
	tip := strings.TrimSpace(resp.Choices[0].Message.Content)
	if tip == "" {
		return "Incentive a curiosidade hoje!"
	}
	return tip
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (*exercisePayload, error) {
	raw, err := c.chatJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var payload exercisePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &payload, nil
}

func (c *Client) chatJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.6,
	})
	if err != nil {
		return "", fmt.Errorf("generation API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generation returned no choices")
	}
	raw := resp.Choices[0].Message.Content
	slog.Debug("generation response", "raw", raw)
	return raw, nil
}

// assembleExercise builds a validated Exercise from a decoded payload,
// snapshotting the child's profile fields at creation time.
func (c *Client) assembleExercise(child model.Child, subject model.Subject,
	difficulty model.Difficulty, payload *exercisePayload) (*model.Exercise, error) {

	questions := make([]model.Question, 0, len(payload.Questions))
	for _, qp := range payload.Questions {
		questions = append(questions, model.Question{
			ID:            uuid.NewString(),
			Text:          qp.Text,
			Type:          model.QuestionType(qp.Type),
			Options:       qp.Options,
			CorrectAnswer: qp.CorrectAnswer,
			Explanation:   qp.Explanation,
		})
	}

	ex := &model.Exercise{
		ID:            uuid.NewString(),
		Title:         payload.Title,
		ChildID:       child.ID,
		ChildName:     child.Name,
		ChildAge:      child.Age,
		Grade:         child.Grade,
		Subject:       subject,
		Difficulty:    difficulty,
		ObjectiveText: payload.ObjectiveText,
		Questions:     questions,
		CreatedAt:     time.Now(),
	}
	if err := ex.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return ex, nil
}
