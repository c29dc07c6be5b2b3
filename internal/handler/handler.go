// Package handler exposes the retrieval and interview engines as a JSON
// HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	appi18n "github.com/vineelkrish/vivabot/internal/i18n"
	"github.com/vineelkrish/vivabot/internal/index"
	"github.com/vineelkrish/vivabot/internal/interview"
	"github.com/vineelkrish/vivabot/internal/kb"
)

// Config holds handler dependencies set up at boot.
type Config struct {
	// AdminPasswordHash is a bcrypt hash guarding /admin/reindex.
	// Empty disables the endpoint.
	AdminPasswordHash []byte
	// EmbedTimeout bounds each request's embedding work.
	EmbedTimeout time.Duration
	// Rebuild re-parses the knowledge base files and rebuilds all
	// subject indexes. Wired by the CLI layer.
	Rebuild func(ctx context.Context) error
	// Ping checks the embedding endpoint. Nil in keyword-only mode.
	Ping func(ctx context.Context) error
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	retriever index.Retriever
	session   *interview.Session
	config    Config

	// The session is a single shared mutable state and performs no
	// locking of its own; every mutation goes through this mutex.
	mu sync.Mutex
}

// New creates a Handler.
func New(retriever index.Retriever, session *interview.Session, cfg Config) *Handler {
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = 60 * time.Second
	}
	return &Handler{retriever: retriever, session: session, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/ask", h.handleAsk)
	r.Post("/interview/start", h.handleInterviewStart)
	r.Post("/interview/answer", h.handleInterviewAnswer)
	r.Post("/admin/reindex", h.handleReindex)
	r.Get("/healthz", h.handleHealthz)
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer  string  `json:"answer"`
	Subject *string `json:"subject"`
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, askResponse{Answer: appi18n.T(ctx, "ask.invalid")})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeJSON(w, http.StatusOK, askResponse{Answer: appi18n.T(ctx, "ask.invalid")})
		return
	}

	qctx, cancel := context.WithTimeout(ctx, h.config.EmbedTimeout)
	defer cancel()

	match, err := h.retriever.Query(qctx, question)
	if err != nil {
		slog.Error("retrieval query failed", "error", err)
		writeJSON(w, http.StatusOK, askResponse{Answer: appi18n.T(ctx, "error.internal")})
		return
	}

	resp := askResponse{}
	if match.Subject != "" {
		subject := match.Subject
		resp.Subject = &subject
	}
	if match.Concept == nil {
		resp.Answer = appi18n.T(ctx, "ask.outside_syllabus")
		writeJSON(w, http.StatusOK, resp)
		return
	}

	answer := kb.FormatConcept(*match.Concept)
	if match.Subject != "" {
		prefix := appi18n.Td(ctx, "ask.from_subject",
			map[string]any{"Subject": strings.ToUpper(match.Subject)})
		answer = prefix + "\n" + answer
	}
	resp.Answer = answer
	writeJSON(w, http.StatusOK, resp)
}

type startResponse struct {
	Question *string `json:"question"`
}

func (h *Handler) handleInterviewStart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.config.EmbedTimeout)
	defer cancel()

	h.mu.Lock()
	question, err := h.session.Start(ctx)
	h.mu.Unlock()

	if err != nil {
		slog.Error("interview start failed", "error", err)
		writeJSON(w, http.StatusOK, startResponse{})
		return
	}
	writeJSON(w, http.StatusOK, startResponse{Question: &question})
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type answerResponse struct {
	Score    int            `json:"score"`
	Feedback string         `json:"feedback"`
	Next     *string        `json:"next"`
	Final    *finalResponse `json:"final,omitempty"`
}

type finalResponse struct {
	Score  int      `json:"score"`
	Strong []string `json:"strong"`
	Weak   []string `json:"weak"`
}

func (h *Handler) handleInterviewAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, answerResponse{
			Feedback: appi18n.T(ctx, "error.evaluate"),
		})
		return
	}

	sctx, cancel := context.WithTimeout(ctx, h.config.EmbedTimeout)
	defer cancel()

	h.mu.Lock()
	result, err := h.session.Submit(sctx, strings.TrimSpace(req.Answer))
	h.mu.Unlock()

	if err != nil {
		slog.Error("answer evaluation failed", "error", err)
		writeJSON(w, http.StatusOK, answerResponse{
			Feedback: appi18n.T(ctx, "error.evaluate"),
		})
		return
	}

	resp := answerResponse{
		Score:    result.Score,
		Feedback: appi18n.T(ctx, "feedback."+string(result.Feedback)),
	}
	if result.Next != "" {
		next := result.Next
		resp.Next = &next
	}
	if result.Final != nil {
		resp.Final = &finalResponse{
			Score:  result.Final.Score,
			Strong: result.Final.Strong,
			Weak:   result.Final.Weak,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.config.Ping == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "mode": "keyword"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.config.Ping(ctx); err != nil {
		slog.Warn("embedder health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "mode": "semantic"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
