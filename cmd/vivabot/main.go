package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/vineelkrish/vivabot/internal/embed"
	"github.com/vineelkrish/vivabot/internal/handler"
	appi18n "github.com/vineelkrish/vivabot/internal/i18n"
	"github.com/vineelkrish/vivabot/internal/index"
	"github.com/vineelkrish/vivabot/internal/interview"
	"github.com/vineelkrish/vivabot/internal/kb"
	"github.com/vineelkrish/vivabot/internal/model"
	"github.com/vineelkrish/vivabot/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vivabot",
		Short: "Syllabus-scoped QA and adaptive viva assistant",
	}

	serve := serveCmd()
	root.AddCommand(serve, checkCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `vivabot --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP assistant server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "vivabot.db", "SQLite embedding cache path")
	f.StringSliceP("kb", "k", []string{"os=data/os_knowledge_base.txt"}, "Knowledge base files as subject=path (repeatable)")
	f.StringP("questions", "q", "data/os_interview.txt", "Question bank file path")
	f.StringSlice("subject-keywords", nil, "Subject routing profiles as subject=keywords (repeatable, needed with 2+ subjects)")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for the embeddings endpoint")
	f.String("embed-model", "all-minilm", "Embedding model name")
	f.Bool("keyword-only", false, "Serve retrieval via keyword overlap without an embedding service (strictly inferior, disables interviews)")
	f.Int("duration", 300, "Interview time budget in seconds")
	f.Float64("floor-multi", index.DefaultFloorMulti, "Confidence floor with multiple subjects")
	f.Float64("floor-single", index.DefaultFloorSingle, "Confidence floor with a single subject")
	f.Float64("match-threshold", interview.DefaultMatchThreshold, "Similarity above which a rubric point counts as covered")
	f.Int64("seed", 0, "Random seed for question selection (0 = non-deterministic)")
	f.Duration("embed-timeout", 60*time.Second, "Deadline for embedding work per request")
	f.String("admin-password", "", "Password for /admin/reindex (or set VIVABOT_ADMIN_PASSWORD; empty disables)")
	f.StringP("lang", "l", "en", "Default response language")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Parse the configured knowledge files and report counts",
		RunE:  runCheck,
	}
	f := cmd.Flags()
	f.StringSliceP("kb", "k", []string{"os=data/os_knowledge_base.txt"}, "Knowledge base files as subject=path (repeatable)")
	f.StringP("questions", "q", "data/os_interview.txt", "Question bank file path")
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

	v.SetEnvPrefix("VIVABOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("vivabot")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/vivabot")
	v.AddConfigPath("/etc/vivabot")
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

	kbFiles, err := parsePairs(v.GetStringSlice("kb"))
	if err != nil {
		return fmt.Errorf("parse --kb: %w", err)
	}
	if len(kbFiles) == 0 {
		return fmt.Errorf("at least one --kb subject=path is required")
	}
	profiles, err := parsePairs(v.GetStringSlice("subject-keywords"))
	if err != nil {
		return fmt.Errorf("parse --subject-keywords: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	keywordOnly := v.GetBool("keyword-only")

	var embedder embed.Embedder
	var ping func(ctx context.Context) error
	if !keywordOnly {
		client := embed.NewClient(
			v.GetString("llm-url"),
			v.GetString("llm-key"),
			v.GetString("embed-model"),
		)
		if err := client.Ping(context.Background()); err != nil {
			return fmt.Errorf("embeddings health check: %w", err)
		}
		slog.Info("embeddings endpoint OK",
			"url", v.GetString("llm-url"), "model", v.GetString("embed-model"))
		embedder = embed.NewCached(client, db, client.Model())
		ping = client.Ping
	} else {
		slog.Warn("keyword-only mode: retrieval degrades to literal keyword overlap and interviews are disabled")
	}

	var retriever index.Retriever
	var rebuild func(ctx context.Context) error

	if keywordOnly {
		searcher := index.NewKeywordSearcher()
		rebuild = func(context.Context) error {
			return loadKeywordIndex(searcher, kbFiles, db)
		}
		retriever = searcher
	} else {
		idx := index.New(embedder, index.WithFloors(
			v.GetFloat64("floor-multi"),
			v.GetFloat64("floor-single"),
		))
		rebuild = func(ctx context.Context) error {
			return loadSemanticIndex(ctx, idx, kbFiles, profiles, db)
		}
		retriever = idx
	}
	if err := rebuild(context.Background()); err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	bank := model.QuestionBank{}
	if !keywordOnly {
		text, err := kb.LoadFile(v.GetString("questions"))
		if err != nil {
			return fmt.Errorf("load question bank: %w", err)
		}
		bank = kb.ParseQuestions(text)
		slog.Info("question bank loaded", "concepts", len(bank), "questions", bank.Count())
	}

	scorer := interview.NewScorer(embedder, v.GetFloat64("match-threshold"))
	sessionOpts := []interview.Option{
		interview.WithDuration(time.Duration(v.GetInt("duration")) * time.Second),
	}
	if seed := v.GetInt64("seed"); seed != 0 {
		sessionOpts = append(sessionOpts, interview.WithSeed(seed))
	}
	session := interview.NewSession(bank, scorer, sessionOpts...)

	lang := v.GetString("lang")
	if err := appi18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	var adminHash []byte
	if pw := v.GetString("admin-password"); pw != "" {
		adminHash, err = bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
	}

	h := handler.New(retriever, session, handler.Config{
		AdminPasswordHash: adminHash,
		EmbedTimeout:      v.GetDuration("embed-timeout"),
		Rebuild:           rebuild,
		Ping:              ping,
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appi18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"subjects", len(kbFiles),
		"keyword_only", keywordOnly,
		"duration", v.GetInt("duration"),
		"lang", lang,
	)
	return http.ListenAndServe(addr, r)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	kbFiles, err := parsePairs(v.GetStringSlice("kb"))
	if err != nil {
		return fmt.Errorf("parse --kb: %w", err)
	}

	for subject, path := range kbFiles {
		text, err := kb.LoadFile(path)
		if err != nil {
			return fmt.Errorf("subject %s: %w", subject, err)
		}
		concepts := kb.ParseConcepts(text)
		unknown := 0
		for _, c := range concepts {
			if c.Name == kb.UnknownConcept {
				unknown++
			}
		}
		fmt.Printf("%s: %d concepts (%d unnamed)\n", subject, len(concepts), unknown)
	}

	text, err := kb.LoadFile(v.GetString("questions"))
	if err != nil {
		return fmt.Errorf("question bank: %w", err)
	}
	bank := kb.ParseQuestions(text)
	fmt.Printf("questions: %d concepts, %d questions\n", len(bank), bank.Count())

	return nil
}

// loadSemanticIndex parses every knowledge base file and rebuilds its
// subject index, recording content hashes so a changed corpus is visible
// in the logs. Missing files fail here, at load time.
func loadSemanticIndex(ctx context.Context, idx *index.Index, kbFiles, profiles map[string]string, db *store.Store) error {
	for subject, path := range kbFiles {
		text, err := kb.LoadFile(path)
		if err != nil {
			return fmt.Errorf("subject %s: %w", subject, err)
		}
		recordFileHash(db, path, text)

		concepts := kb.ParseConcepts(text)
		if len(concepts) == 0 {
			slog.Warn("knowledge base has no concept blocks", "subject", subject, "path", path)
		}
		if err := idx.Build(ctx, subject, concepts); err != nil {
			return err
		}
	}

	for subject, keywords := range profiles {
		if _, ok := kbFiles[subject]; !ok {
			slog.Warn("subject profile without a knowledge base", "subject", subject)
			continue
		}
		if err := idx.SetProfile(ctx, subject, keywords); err != nil {
			return err
		}
	}
	if len(kbFiles) > 1 && len(profiles) == 0 {
		slog.Warn("multiple subjects without routing profiles; queries route to the first subject")
	}

	return nil
}

func loadKeywordIndex(searcher *index.KeywordSearcher, kbFiles map[string]string, db *store.Store) error {
	for subject, path := range kbFiles {
		text, err := kb.LoadFile(path)
		if err != nil {
			return fmt.Errorf("subject %s: %w", subject, err)
		}
		recordFileHash(db, path, text)
		searcher.Build(subject, kb.ParseConcepts(text))
	}
	return nil
}

func recordFileHash(db *store.Store, path, text string) {
	sum := sha256.Sum256([]byte(text))
	hash := hex.EncodeToString(sum[:])

	stored, err := db.GetImportedFileHash(path)
	if err != nil {
		slog.Warn("check import status failed", "path", path, "error", err)
		return
	}
	switch {
	case stored == "":
		slog.Info("importing knowledge file", "path", path)
	case stored != hash:
		slog.Info("knowledge file changed since last run", "path", path)
	default:
		slog.Debug("knowledge file unchanged", "path", path)
	}
	if err := db.SetImportedFileHash(path, hash); err != nil {
		slog.Warn("record import failed", "path", path, "error", err)
	}
}

// parsePairs converts "key=value" flag entries into a map.
func parsePairs(entries []string) (map[string]string, error) {
	pairs := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("malformed entry %q, want key=value", entry)
		}
		pairs[key] = value
	}
	return pairs, nil
}
