package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Subject is a school subject. Values are the Portuguese labels the product
// shows to families; they are stored and compared verbatim.
type Subject string

const (
	SubjectPortuguese Subject = "Português"
	SubjectMath       Subject = "Matemática"
	SubjectScience    Subject = "Ciências"
	SubjectHistory    Subject = "História"
	SubjectGeography  Subject = "Geografia"
	SubjectEnglish    Subject = "Inglês"
	SubjectArt        Subject = "Artes"
)

var validSubjects = map[Subject]bool{
	SubjectPortuguese: true,
	SubjectMath:       true,
	SubjectScience:    true,
	SubjectHistory:    true,
	SubjectGeography:  true,
	SubjectEnglish:    true,
	SubjectArt:        true,
}

// IsValidSubject checks a subject value.
func IsValidSubject(s Subject) bool {
	return validSubjects[s]
}

// Difficulty represents exercise difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Fácil"
	DifficultyMedium Difficulty = "Médio"
	DifficultyHard   Difficulty = "Difícil"
)

var validDifficulties = map[Difficulty]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
}

// Objective is the pedagogical intent of a generated exercise.
type Objective string

const (
	ObjectiveIntroduce Objective = "introduzir"
	ObjectiveReinforce Objective = "reforçar"
	ObjectiveReview    Objective = "revisar"
)

var validObjectives = map[Objective]bool{
	ObjectiveIntroduce: true,
	ObjectiveReinforce: true,
	ObjectiveReview:    true,
}

// IsValidObjective checks an objective value.
func IsValidObjective(o Objective) bool {
	return validObjectives[o]
}

// QuestionType distinguishes how a question is answered and graded.
type QuestionType string

const (
	// QuestionMultiple is multiple choice: the selected option is compared
	// against the correct answer.
	QuestionMultiple QuestionType = "multiple"
	// QuestionOpen is self-assessed: revealing the answer counts as correct.
	QuestionOpen QuestionType = "open"
	// QuestionSequence is an ordered-steps task, self-assessed like open.
	QuestionSequence QuestionType = "sequence"
)

var validQuestionTypes = map[QuestionType]bool{
	QuestionMultiple: true,
	QuestionOpen:     true,
	QuestionSequence: true,
}

// Role represents an authenticated account's access level.
type Role string

const (
	RoleGuardian Role = "guardian"
	RoleTeacher  Role = "teacher"
)

// Plan is a guardian's subscription tier.
type Plan string

const (
	PlanFree    Plan = "Free"
	PlanPremium Plan = "Premium"
)

// Mood is a closed enumeration of check-in moods.
type Mood string

const (
	MoodHappy    Mood = "feliz"
	MoodCalm     Mood = "calmo"
	MoodAgitated Mood = "agitado"
	MoodSad      Mood = "triste"
	MoodAngry    Mood = "bravo"
)

var validMoods = map[Mood]bool{
	MoodHappy:    true,
	MoodCalm:     true,
	MoodAgitated: true,
	MoodSad:      true,
	MoodAngry:    true,
}

// Validation errors returned by entity constructors and mutators.
var (
	ErrEmptyName           = errors.New("name is required")
	ErrEmptyAccessCode     = errors.New("access code is required")
	ErrNegativeAge         = errors.New("age must not be negative")
	ErrEmptyTitle          = errors.New("title is required")
	ErrNoQuestions         = errors.New("exercise must contain at least one question")
	ErrInvalidSubject      = errors.New("invalid subject")
	ErrInvalidDifficulty   = errors.New("invalid difficulty")
	ErrInvalidQuestionType = errors.New("invalid question type")
	ErrNoOptions           = errors.New("multiple-choice question requires options")
	ErrAnswerNotInOptions  = errors.New("correct answer must be one of the options")
	ErrInvalidMood         = errors.New("invalid mood")
	ErrRatingOutOfRange    = errors.New("rating must be between 1 and 5")
	ErrInvalidTargetDays   = errors.New("target days must be at least 1")
	ErrTargetDaysExceeded  = errors.New("completed days exceed the goal target")
	ErrDayAlreadyCompleted = errors.New("day already marked as completed")
)

// Child is a student profile with gamification counters.
type Child struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Age                int       `json:"age"`
	Grade              string    `json:"grade"`
	Avatar             string    `json:"avatar"`
	AccessCode         string    `json:"accessCode"`
	DifficultySubjects []Subject `json:"difficultySubjects"`
	XP                 int       `json:"xp"`
	Stars              int       `json:"stars"`
	Streak             int       `json:"streak"`
}

// Validate checks the invariants a Child must satisfy before it is stored.
func (c *Child) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(c.AccessCode) == "" {
		return ErrEmptyAccessCode
	}
	if c.Age < 0 {
		return ErrNegativeAge
	}
	for _, s := range c.DifficultySubjects {
		if !validSubjects[s] {
			return fmt.Errorf("%w: %q", ErrInvalidSubject, s)
		}
	}
	return nil
}

// NormalizeAccessCode canonicalizes a code for case-insensitive matching.
func NormalizeAccessCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Question is one item in an exercise's ordered question sequence.
type Question struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation"`
	AudioData     string       `json:"audioData,omitempty"`
}

// Validate checks a question's structural invariants. For multiple-choice
// questions the correct answer must be a member of the options.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question text: %w", ErrEmptyTitle)
	}
	if !validQuestionTypes[q.Type] {
		return fmt.Errorf("%w: %q", ErrInvalidQuestionType, q.Type)
	}
	if q.Type == QuestionMultiple {
		if len(q.Options) == 0 {
			return ErrNoOptions
		}
		found := false
		for _, opt := range q.Options {
			if opt == q.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			return ErrAnswerNotInOptions
		}
	}
	return nil
}

// Exercise is one generated learning activity. The child fields are a
// snapshot taken at creation time and are not kept in sync with later edits.
type Exercise struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	ChildID       string     `json:"childId"`
	ChildName     string     `json:"childName"`
	ChildAge      int        `json:"childAge"`
	Grade         string     `json:"grade"`
	Subject       Subject    `json:"subject"`
	Difficulty    Difficulty `json:"difficulty"`
	ObjectiveText string     `json:"objectiveText"`
	StoryContent  string     `json:"storyContent,omitempty"`
	Questions     []Question `json:"questions"`
	CreatedAt     time.Time  `json:"createdAt"`
	Score         *float64   `json:"score,omitempty"`
	Completed     bool       `json:"completed"`
	ImageURL      string     `json:"imageUrl,omitempty"`
	CreatedBy     Role       `json:"createdBy,omitempty"`
	TeacherName   string     `json:"teacherName,omitempty"`
}

// Validate checks the invariants an Exercise must satisfy before it is
// stored. An exercise with no questions is rejected so scoring never divides
// by zero.
func (e *Exercise) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if !validSubjects[e.Subject] {
		return fmt.Errorf("%w: %q", ErrInvalidSubject, e.Subject)
	}
	if !validDifficulties[e.Difficulty] {
		return fmt.Errorf("%w: %q", ErrInvalidDifficulty, e.Difficulty)
	}
	if len(e.Questions) == 0 {
		return ErrNoQuestions
	}
	for i := range e.Questions {
		if err := e.Questions[i].Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

// DailyCheckIn is a point-in-time behavioral snapshot for one child.
type DailyCheckIn struct {
	ID           string    `json:"id"`
	ChildID      string    `json:"childId"`
	Date         time.Time `json:"date"`
	Mood         Mood      `json:"mood"`
	Energy       int       `json:"energy"`
	SleepQuality int       `json:"sleepQuality"`
	SchoolStatus string    `json:"schoolStatus"`
	Event        string    `json:"event"`
}

// Validate checks the check-in's closed enumeration and rating ranges.
func (c *DailyCheckIn) Validate() error {
	if !validMoods[c.Mood] {
		return fmt.Errorf("%w: %q", ErrInvalidMood, c.Mood)
	}
	if c.Energy < 1 || c.Energy > 5 {
		return fmt.Errorf("energy: %w", ErrRatingOutOfRange)
	}
	if c.SleepQuality < 1 || c.SleepQuality > 5 {
		return fmt.Errorf("sleep quality: %w", ErrRatingOutOfRange)
	}
	return nil
}

// BehaviorGoal is a weekly habit target for one child. CompletedDays holds
// ISO dates (YYYY-MM-DD) and never exceeds TargetDays.
type BehaviorGoal struct {
	ID            string   `json:"id"`
	ChildID       string   `json:"childId"`
	Title         string   `json:"title"`
	TargetDays    int      `json:"targetDays"`
	CompletedDays []string `json:"completedDays"`
}

// Validate checks the goal's invariants.
func (g *BehaviorGoal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if g.TargetDays < 1 {
		return ErrInvalidTargetDays
	}
	if len(g.CompletedDays) > g.TargetDays {
		return ErrTargetDaysExceeded
	}
	return nil
}

// MarkDay records a completed day on the goal. Each date counts once and the
// total never exceeds the target.
func (g *BehaviorGoal) MarkDay(date string) error {
	for _, d := range g.CompletedDays {
		if d == date {
			return ErrDayAlreadyCompleted
		}
	}
	if len(g.CompletedDays) >= g.TargetDays {
		return ErrTargetDaysExceeded
	}
	g.CompletedDays = append(g.CompletedDays, date)
	return nil
}

// Guardian is an authenticated parent or teacher account.
type Guardian struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Plan         Plan      `json:"plan"`
	Avatar       string    `json:"avatar"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ClassGroup is a teacher's cohort. Seeded at startup and read-only.
type ClassGroup struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Grade        string `json:"grade"`
	StudentCount int    `json:"studentCount"`
	Engagement   int    `json:"engagement"`
}

// ActionPlan is an ephemeral AI-computed behavior plan. Never persisted;
// recomputed on each request.
type ActionPlan struct {
	Summary string   `json:"summary"`
	Tasks   []string `json:"tasks"`
	Alert   string   `json:"alert,omitempty"`
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	QuestionCount int  // questions per generated exercise
	ArtsStepCount int  // steps per generated art mission
	SecureCookies bool // Set Secure flag on cookies (disable for local dev)
	Language      string
}

// AuthSession represents a cookie-backed session. Exactly one of GuardianID
// or ChildID is set, depending on who logged in.
type AuthSession struct {
	ID         string
	GuardianID string
	ChildID    string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

type guardianCtxKey struct{}

// ContextWithGuardian stores the authenticated guardian in the request context.
func ContextWithGuardian(ctx context.Context, g *Guardian) context.Context {
	return context.WithValue(ctx, guardianCtxKey{}, g)
}

// GuardianFromContext retrieves the authenticated guardian from context, or nil.
func GuardianFromContext(ctx context.Context) *Guardian {
	g, _ := ctx.Value(guardianCtxKey{}).(*Guardian)
	return g
}

type childCtxKey struct{}

// ContextWithChild stores the logged-in child in the request context.
func ContextWithChild(ctx context.Context, c *Child) context.Context {
	return context.WithValue(ctx, childCtxKey{}, c)
}

// ChildFromContext retrieves the logged-in child from context, or nil.
func ChildFromContext(ctx context.Context) *Child {
	c, _ := ctx.Value(childCtxKey{}).(*Child)
	return c
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
