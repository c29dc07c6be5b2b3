package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	appi18n "github.com/vineelkrish/vivabot/internal/i18n"
)

type reindexRequest struct {
	Password string `json:"password"`
}

// handleReindex rebuilds every subject index from the configured
// knowledge base files. The endpoint is disabled unless an admin
// password was configured at boot.
func (h *Handler) handleReindex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if len(h.config.AdminPasswordHash) == 0 || h.config.Rebuild == nil {
		http.NotFound(w, r)
		return
	}

	var req reindexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.config.AdminPasswordHash, []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": appi18n.T(ctx, "admin.unauthorized"),
		})
		return
	}

	// Index builds batch every concept in one embedding call but can
	// still be slow; give them their own generous deadline.
	rctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if err := h.config.Rebuild(rctx); err != nil {
		slog.Error("reindex failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": appi18n.T(ctx, "error.internal"),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": appi18n.T(ctx, "admin.reindexed"),
	})
}
