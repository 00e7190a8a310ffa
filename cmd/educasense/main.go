package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/educasense/educasense/internal/handler"
	appI18n "github.com/educasense/educasense/internal/i18n"
	"github.com/educasense/educasense/internal/llm"
	"github.com/educasense/educasense/internal/model"
	"github.com/educasense/educasense/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "educasense",
		Short: "AI-assisted learning companion for families and teachers",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `educasense --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "educasense.db", "SQLite database path")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for the generation endpoint")
	f.String("llm-model", "llama3.2", "Chat model for exercise generation")
	f.String("image-model", "dall-e-2", "Image model for illustrations and coloring pages")
	f.String("tts-model", "tts-1", "Speech model for question narration")
	f.String("tts-voice", "nova", "Speech voice for question narration")
	f.StringP("lang", "l", "pt", "Message language (pt, en)")
	f.IntP("question-count", "n", 5, "Questions per generated exercise")
	f.Int("arts-steps", 4, "Steps per generated art mission")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("demo-password", "", "Password for the seeded demo accounts (or set EDUCASENSE_DEMO_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export children and exercise history as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "educasense.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EDUCASENSE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("educasense")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/educasense")
	v.AddConfigPath("/etc/educasense")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	// Open database.
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.CleanupExpiredSessions(); err != nil {
		slog.Warn("session cleanup failed", "error", err)
	}

	// Seed demo accounts, children and classes on first run.
	if err := seedDemo(db, v.GetString("demo-password")); err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Create generation client.
	llmClient := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
		v.GetString("image-model"),
		v.GetString("tts-model"),
		v.GetString("tts-voice"),
	)
	if err := llmClient.Ping(context.Background()); err != nil {
		return fmt.Errorf("generation endpoint health check: %w", err)
	}
	slog.Info("generation endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))

	cfg := model.AppConfig{
		QuestionCount: v.GetInt("question-count"),
		ArtsStepCount: v.GetInt("arts-steps"),
		SecureCookies: v.GetBool("secure-cookies"),
		Language:      lang,
	}

	h, err := handler.New(db, llmClient, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"question_count", cfg.QuestionCount,
		"arts_steps", cfg.ArtsStepCount,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportHistory()
	if err != nil {
		return fmt.Errorf("export history: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

// seedDemo populates an empty database with the demo guardian, teacher,
// two children and the starter classes. Runs once; subsequent starts skip it.
func seedDemo(db *store.Store, password string) error {
	seeded, err := db.IsDemoSeeded()
	if err != nil {
		return err
	}
	if seeded {
		return nil
	}

	count, err := db.GuardianCount()
	if err != nil {
		return err
	}
	if count > 0 {
		// Existing accounts predate the demo-seed marker; don't touch them.
		return db.MarkDemoSeeded()
	}

	if password == "" {
		return fmt.Errorf("demo password is required on first run: set --demo-password flag or EDUCASENSE_DEMO_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	guardians := []model.Guardian{
		{
			ID:           uuid.NewString(),
			Name:         "Ana Souza",
			Email:        "ana@educasense.dev",
			Plan:         model.PlanPremium,
			Role:         model.RoleGuardian,
			PasswordHash: string(hash),
			CreatedAt:    time.Now(),
		},
		{
			ID:           uuid.NewString(),
			Name:         "Prof. Helena Lima",
			Email:        "helena@educasense.dev",
			Plan:         model.PlanFree,
			Role:         model.RoleTeacher,
			PasswordHash: string(hash),
			CreatedAt:    time.Now(),
		},
	}
	for _, g := range guardians {
		if err := db.CreateGuardian(g); err != nil {
			return fmt.Errorf("create demo guardian %s: %w", g.Email, err)
		}
	}

	children := []model.Child{
		{
			ID:         uuid.NewString(),
			Name:       "Lucas",
			Age:        8,
			Grade:      "3º Ano",
			Avatar:     "🦖",
			AccessCode: "LUC-452",
			DifficultySubjects: []model.Subject{
				model.SubjectMath,
			},
			XP:     120,
			Stars:  45,
			Streak: 3,
		},
		{
			ID:         uuid.NewString(),
			Name:       "Sofia",
			Age:        5,
			Grade:      "Pré-escola",
			Avatar:     "🦄",
			AccessCode: "SOF-128",
			DifficultySubjects: []model.Subject{
				model.SubjectPortuguese,
			},
			XP:     50,
			Stars:  12,
			Streak: 1,
		},
	}
	for _, c := range children {
		if err := db.CreateChild(c); err != nil {
			return fmt.Errorf("create demo child %s: %w", c.Name, err)
		}
	}

	classes := []model.ClassGroup{
		{ID: "c1", Name: "3º Ano B", Grade: "3º Ano", StudentCount: 28, Engagement: 85},
		{ID: "c2", Name: "Pré-escola A", Grade: "Pré-escola", StudentCount: 22, Engagement: 92},
	}
	if err := db.SeedClasses(classes); err != nil {
		return fmt.Errorf("seed classes: %w", err)
	}

	if err := db.MarkDemoSeeded(); err != nil {
		return err
	}
	slog.Info("seeded demo data", "guardians", len(guardians), "children", len(children), "classes", len(classes))
	return nil
}
