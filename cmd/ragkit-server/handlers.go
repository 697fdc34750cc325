package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ragkit/ragkit/mcp"
)

type handler struct {
	tools *mcp.Server
}

func newHandler(t *mcp.Server) *handler {
	return &handler{tools: t}
}

// POST /tools/{name}
func (h *handler) handleTool(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	name := r.PathValue("name")

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && r.ContentLength != 0 {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result := h.tools.Call(ctx, name, func(v any) error {
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, v)
	})

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
		slog.Warn("tool call failed", "tool", name, "message", result.Message)
	}
	writeJSON(w, status, result)
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
