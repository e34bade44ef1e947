// Package server exposes the taylor tool interface over HTTP.
//
//	POST /tool    execute a tool call
//	GET  /schema  tool schema for agent registration
//	GET  /health  liveness check
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	taylor "github.com/njchilds90/gotaylor"
	"github.com/njchilds90/gotaylor/internal/config"
	"github.com/njchilds90/gotaylor/internal/log"
)

// NewHandler builds the route table. Tool calls are bounded by
// cfg.MaxOrder, cfg.MaxExponent and cfg.MaxBodyBytes.
func NewHandler(cfg *config.Config, logger log.Logger) http.Handler {
	limits := taylor.Limits{MaxOrder: cfg.MaxOrder, MaxExponent: cfg.MaxExponent}
	mux := http.NewServeMux()

	mux.HandleFunc("/tool", func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic in /tool", "panic", rec, "stack", string(debug.Stack()))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxBodyBytes)
		defer r.Body.Close()

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req taylor.ToolRequest
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if dec.More() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: trailing data"})
			return
		}

		start := time.Now()
		resp := limits.HandleToolCall(req)
		logger.Debug("tool call", "tool", req.Tool, "elapsed", time.Since(start), "error", resp.Error)
		writeJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("/schema", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, taylor.MCPToolSpec())
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	return mux
}

// New wraps the handler in an http.Server using the configured timeouts.
func New(cfg *config.Config, logger log.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           NewHandler(cfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

// writeJSON encodes v before writing the status. A value that fails to
// encode is answered with 500 and an error body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(map[string]string{"error": fmt.Sprintf("failed to encode response: %v", err)})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
