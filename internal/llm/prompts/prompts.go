// Package prompts builds the generation prompts sent to the model. The
// templates are embedded and written in Portuguese, the product's language.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var templateFS embed.FS

// Kind names one prompt template.
type Kind string

const (
	KindExercise Kind = "exercise"
	KindReading  Kind = "reading"
	KindArts     Kind = "arts"
	KindEnglish  Kind = "english"
	KindInsight  Kind = "insight"
	KindTip      Kind = "tip"
)

var kinds = []Kind{KindExercise, KindReading, KindArts, KindEnglish, KindInsight, KindTip}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Kind]*template.Template
)

func load() error {
	loadOnce.Do(func() {
		templates = make(map[Kind]*template.Template)
		for _, k := range kinds {
			name := "templates/" + string(k) + ".txt"
			content, err := templateFS.ReadFile(name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return
			}
			tmpl, err := template.New(string(k)).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			templates[k] = tmpl
		}
	})
	return loadErr
}

// ExerciseData holds template data for the core exercise prompt.
type ExerciseData struct {
	ChildName     string
	Age           int
	Grade         string
	Subject       string
	Difficulty    string
	Objective     string
	QuestionCount int
}

// ReadingData holds template data for the guided-reading prompt.
type ReadingData struct {
	ChildName     string
	Age           int
	Interest      string
	Difficulty    string
	QuestionCount int
}

// ArtsData holds template data for the creative-arts prompt.
type ArtsData struct {
	ChildName  string
	Age        int
	Theme      string
	Materials  string
	Difficulty string
	StepCount  int
}

// EnglishData holds template data for the everyday-English prompt.
type EnglishData struct {
	ChildName     string
	Age           int
	Theme         string
	Difficulty    string
	QuestionCount int
}

// InsightData holds template data for the behavior-insight prompt.
type InsightData struct {
	ChildName   string
	Age         int
	DataSummary string
}

// TipData holds template data for the parent-tip prompt.
type TipData struct {
	Age      int
	Subjects string
}

// Build renders the prompt of the given kind with the given data.
func Build(kind Kind, data any) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	tmpl, ok := templates[kind]
	if !ok {
		return "", fmt.Errorf("unknown prompt kind: %q", kind)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SanitizeField trims and bounds a free-text field (theme, interest,
// materials) before it is interpolated into a prompt.
func SanitizeField(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > 500 {
		runes := []rune(s)
		s = string(runes[:500])
	}
	return s
}
