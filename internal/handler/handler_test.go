package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/educasense/educasense/internal/i18n"
	"github.com/educasense/educasense/internal/llm"
	"github.com/educasense/educasense/internal/model"
	"github.com/educasense/educasense/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()

	if err := appI18n.Init("pt"); err != nil {
		t.Fatalf("init i18n: %v", err)
	}

	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// The generation endpoint is never reached by these tests; the client just
	// needs to exist.
	llmClient := llm.New("http://127.0.0.1:1", "test", "test-model", "test-image", "tts-1", "nova")

	h, err := New(s, llmClient, model.AppConfig{QuestionCount: 3, ArtsStepCount: 4})
	if err != nil {
		t.Fatalf("create handler: %v", err)
	}

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("pt"))
	h.Routes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, s
}

func newTestClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

// csrfToken primes the client with a CSRF cookie and returns the token.
func csrfToken(t *testing.T, client *http.Client, ts *httptest.Server) string {
	t.Helper()
	resp, err := client.Get(ts.URL + "/api/me")
	if err != nil {
		t.Fatalf("prime CSRF: %v", err)
	}
	resp.Body.Close()

	u, _ := url.Parse(ts.URL)
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == "csrf_token" {
			return c.Value
		}
	}
	t.Fatal("no CSRF cookie issued")
	return ""
}

func doJSON(t *testing.T, client *http.Client, ts *httptest.Server, method, path string, body any, out any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", csrfToken(t, client, ts))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp
}

func registerGuardian(t *testing.T, client *http.Client, ts *httptest.Server, email, role string) model.Guardian {
	t.Helper()
	var g model.Guardian
	resp := doJSON(t, client, ts, http.MethodPost, "/api/register", map[string]string{
		"name":     "Ana Souza",
		"email":    email,
		"password": "segredo1",
		"role":     role,
	}, &g)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status = %d", resp.StatusCode)
	}
	return g
}

func TestAuthLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)
	client := newTestClient(t)

	// Unauthenticated requests are rejected.
	resp, err := client.Get(ts.URL + "/api/children")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated: status = %d, want 401", resp.StatusCode)
	}

	registerGuardian(t, client, ts, "ana@example.com", "")

	var me struct {
		Guardian *model.Guardian `json:"guardian"`
	}
	resp = doJSON(t, client, ts, http.MethodGet, "/api/me", nil, &me)
	if resp.StatusCode != http.StatusOK || me.Guardian == nil || me.Guardian.Email != "ana@example.com" {
		t.Fatalf("me after register: status=%d guardian=%+v", resp.StatusCode, me.Guardian)
	}
	if me.Guardian.Role != model.RoleGuardian {
		t.Errorf("default role = %q, want guardian", me.Guardian.Role)
	}

	// Duplicate registration conflicts.
	resp = doJSON(t, client, ts, http.MethodPost, "/api/register", map[string]string{
		"name": "Outra", "email": "ana@example.com", "password": "segredo1",
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register: status = %d, want 409", resp.StatusCode)
	}

	resp = doJSON(t, client, ts, http.MethodPost, "/api/logout", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: status = %d", resp.StatusCode)
	}

	resp, err = client.Get(ts.URL + "/api/me")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("me after logout: status = %d, want 401", resp.StatusCode)
	}

	// Log back in with the right and wrong passwords.
	fresh := newTestClient(t)
	resp = doJSON(t, fresh, ts, http.MethodPost, "/api/login", map[string]string{
		"email": "ana@example.com", "password": "errada",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d, want 401", resp.StatusCode)
	}
	resp = doJSON(t, fresh, ts, http.MethodPost, "/api/login", map[string]string{
		"email": "ana@example.com", "password": "segredo1",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("login: status = %d, want 200", resp.StatusCode)
	}
}

func TestCSRFRequired(t *testing.T) {
	ts, _ := newTestServer(t)
	client := newTestClient(t)

	body := bytes.NewBufferString(`{"email":"a@b.c","password":"x"}`)
	resp, err := client.Post(ts.URL+"/api/login", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("POST without CSRF token: status = %d, want 403", resp.StatusCode)
	}
}

func TestChildrenAndStudentLogin(t *testing.T) {
	ts, _ := newTestServer(t)
	client := newTestClient(t)
	registerGuardian(t, client, ts, "ana@example.com", "")

	var created childView
	resp := doJSON(t, client, ts, http.MethodPost, "/api/children", map[string]any{
		"name":               "Lucas",
		"age":                8,
		"grade":              "3º Ano",
		"accessCode":         "luc-452",
		"difficultySubjects": []string{"Matemática"},
	}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create child: status = %d", resp.StatusCode)
	}
	if created.AccessCode != "LUC-452" {
		t.Errorf("access code = %q, want normalized LUC-452", created.AccessCode)
	}
	if created.Level != 1 {
		t.Errorf("level = %d, want 1", created.Level)
	}

	// Duplicate access code.
	resp = doJSON(t, client, ts, http.MethodPost, "/api/children", map[string]any{
		"name": "Sofia", "age": 5, "accessCode": "LUC-452",
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate code: status = %d, want 409", resp.StatusCode)
	}

	// Invalid input.
	resp = doJSON(t, client, ts, http.MethodPost, "/api/children", map[string]any{
		"name": "", "accessCode": "X-1",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty name: status = %d, want 400", resp.StatusCode)
	}

	// Student login, case-insensitive.
	student := newTestClient(t)
	var child model.Child
	resp = doJSON(t, student, ts, http.MethodPost, "/api/student/login", map[string]string{
		"accessCode": "Luc-452",
	}, &child)
	if resp.StatusCode != http.StatusOK || child.Name != "Lucas" {
		t.Fatalf("student login: status=%d child=%+v", resp.StatusCode, child)
	}

	resp = doJSON(t, student, ts, http.MethodPost, "/api/student/login", map[string]string{
		"accessCode": "NOPE-1",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad access code: status = %d, want 401", resp.StatusCode)
	}

	// A child session cannot use guardian routes.
	resp = doJSON(t, student, ts, http.MethodGet, "/api/children", nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("child on guardian route: status = %d, want 403", resp.StatusCode)
	}
}

func TestTeacherRoutesRequireTeacherRole(t *testing.T) {
	ts, s := newTestServer(t)

	if err := s.SeedClasses([]model.ClassGroup{{ID: "c1", Name: "3º Ano B", Grade: "3º Ano", StudentCount: 28, Engagement: 85}}); err != nil {
		t.Fatalf("seed classes: %v", err)
	}

	parent := newTestClient(t)
	registerGuardian(t, parent, ts, "ana@example.com", "")
	resp := doJSON(t, parent, ts, http.MethodGet, "/api/classes", nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("guardian on teacher route: status = %d, want 403", resp.StatusCode)
	}

	teacher := newTestClient(t)
	registerGuardian(t, teacher, ts, "helena@example.com", "teacher")
	var classes []model.ClassGroup
	resp = doJSON(t, teacher, ts, http.MethodGet, "/api/classes", nil, &classes)
	if resp.StatusCode != http.StatusOK || len(classes) != 1 {
		t.Fatalf("teacher classes: status=%d classes=%+v", resp.StatusCode, classes)
	}

	var report model.HistoryExport
	resp = doJSON(t, teacher, ts, http.MethodGet, "/api/reports", nil, &report)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("reports: status = %d", resp.StatusCode)
	}
}

func TestCompleteExerciseFlow(t *testing.T) {
	ts, s := newTestServer(t)
	client := newTestClient(t)
	registerGuardian(t, client, ts, "ana@example.com", "")

	child := model.Child{
		ID: "child-1", Name: "Lucas", Age: 8, Grade: "3º Ano", AccessCode: "LUC-452",
		XP: 120, Stars: 45, Streak: 3,
	}
	if err := s.CreateChild(child); err != nil {
		t.Fatalf("create child: %v", err)
	}

	ex := model.Exercise{
		ID:         "ex-1",
		Title:      "Aventura dos Números",
		ChildID:    child.ID,
		ChildName:  child.Name,
		ChildAge:   child.Age,
		Grade:      child.Grade,
		Subject:    model.SubjectMath,
		Difficulty: model.DifficultyMedium,
		Questions: []model.Question{
			{ID: "q1", Text: "2 + 2?", Type: model.QuestionMultiple, Options: []string{"3", "4"}, CorrectAnswer: "4"},
			{ID: "q2", Text: "3 + 3?", Type: model.QuestionMultiple, Options: []string{"6", "7"}, CorrectAnswer: "6"},
			{ID: "q3", Text: "5 + 5?", Type: model.QuestionMultiple, Options: []string{"10", "11"}, CorrectAnswer: "10"},
		},
		CreatedAt: time.Now(),
	}
	if err := s.SaveExercise(ex); err != nil {
		t.Fatalf("save exercise: %v", err)
	}

	// Wrong answer count is rejected.
	resp := doJSON(t, client, ts, http.MethodPost, "/api/exercises/ex-1/complete", map[string]any{
		"answers": []string{"4"},
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("short answer sheet: status = %d, want 400", resp.StatusCode)
	}

	var result completionResult
	resp = doJSON(t, client, ts, http.MethodPost, "/api/exercises/ex-1/complete", map[string]any{
		"answers": []string{"4", "7", "10"},
	}, &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete: status = %d", resp.StatusCode)
	}
	if result.CorrectCount != 2 || result.Total != 3 {
		t.Errorf("correct/total = %d/%d, want 2/3", result.CorrectCount, result.Total)
	}
	if result.Score < 6.66 || result.Score > 6.67 {
		t.Errorf("score = %v, want ~6.67", result.Score)
	}
	if result.XP != 140 || result.Stars != 46 || result.Streak != 4 {
		t.Errorf("reward = xp %d stars %d streak %d, want 140/46/4", result.XP, result.Stars, result.Streak)
	}
	if result.Level != 2 {
		t.Errorf("level = %d, want 2", result.Level)
	}

	// Completion is write-once.
	resp = doJSON(t, client, ts, http.MethodPost, "/api/exercises/ex-1/complete", map[string]any{
		"answers": []string{"4", "6", "10"},
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second completion: status = %d, want 409", resp.StatusCode)
	}

	// Missing exercise.
	resp = doJSON(t, client, ts, http.MethodPost, "/api/exercises/ex-404/complete", map[string]any{
		"answers": []string{"a"},
	}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing exercise: status = %d, want 404", resp.StatusCode)
	}
}

func TestGoalsAndCheckInsAPI(t *testing.T) {
	ts, s := newTestServer(t)
	client := newTestClient(t)
	registerGuardian(t, client, ts, "ana@example.com", "")

	if err := s.CreateChild(model.Child{ID: "child-1", Name: "Lucas", Age: 8, AccessCode: "LUC-452"}); err != nil {
		t.Fatalf("create child: %v", err)
	}

	var goal model.BehaviorGoal
	resp := doJSON(t, client, ts, http.MethodPost, "/api/children/child-1/goals", map[string]any{
		"title": "Dormir cedo", "targetDays": 7,
	}, &goal)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create goal: status = %d", resp.StatusCode)
	}

	var marked model.BehaviorGoal
	resp = doJSON(t, client, ts, http.MethodPost, "/api/goals/"+goal.ID+"/days", map[string]string{
		"date": "2026-08-27",
	}, &marked)
	if resp.StatusCode != http.StatusOK || len(marked.CompletedDays) != 1 {
		t.Fatalf("mark day: status=%d goal=%+v", resp.StatusCode, marked)
	}

	resp = doJSON(t, client, ts, http.MethodPost, "/api/goals/"+goal.ID+"/days", map[string]string{
		"date": "2026-08-27",
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("same day twice: status = %d, want 409", resp.StatusCode)
	}

	resp = doJSON(t, client, ts, http.MethodPost, "/api/children/child-1/checkins", map[string]any{
		"mood": "feliz", "energy": 4, "sleepQuality": 5, "schoolStatus": "tranquilo",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("check-in: status = %d, want 201", resp.StatusCode)
	}

	resp = doJSON(t, client, ts, http.MethodPost, "/api/children/child-1/checkins", map[string]any{
		"mood": "eufórico", "energy": 4, "sleepQuality": 5,
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid mood: status = %d, want 400", resp.StatusCode)
	}

	var checkIns []model.DailyCheckIn
	resp = doJSON(t, client, ts, http.MethodGet, "/api/children/child-1/checkins", nil, &checkIns)
	if resp.StatusCode != http.StatusOK || len(checkIns) != 1 {
		t.Errorf("list check-ins: status=%d len=%d", resp.StatusCode, len(checkIns))
	}

	// Unknown child is a 404, not an empty list.
	resp = doJSON(t, client, ts, http.MethodGet, "/api/children/ghost/checkins", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown child: status = %d, want 404", resp.StatusCode)
	}
}
