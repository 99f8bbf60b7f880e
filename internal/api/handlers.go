// Package api exposes the coaching service over HTTP (chi router) and MCP
// (stdio). Transport concerns only; all orchestration lives in the coach
// package.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/animolabs/animo/internal/classify"
	"github.com/animolabs/animo/internal/coach"
	"github.com/animolabs/animo/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Coacher is the orchestrator surface the transport layers depend on.
type Coacher interface {
	Reply(ctx context.Context, text, sessionID string) (coach.Reply, error)
	Classify(ctx context.Context, text string, topK int) (classify.Result, error)
	ResetSession(sessionID string) error
	SessionIDs() []string
}

// TranscriptStore is the archive surface used by the diagnostic routes.
type TranscriptStore interface {
	ListBySession(sessionID string, limit int) ([]storage.Exchange, error)
	RecentSessions(limit int) ([]storage.SessionSummary, error)
}

// Deps holds the handler dependencies.
type Deps struct {
	Coach   Coacher
	Archive TranscriptStore // optional; transcript routes 404 when nil
	Token   string          // bearer token guarding the diagnostic routes
}

// CoachRequest is the JSON body for POST /coach.
type CoachRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
}

// PredictRequest is the JSON body for POST /predict.
type PredictRequest struct {
	Text string `json:"text"`
	TopK int    `json:"top_k"`
}

// NewHandler returns the HTTP handler for the coaching API. The coaching
// routes are open (same posture as the original deployment behind a local
// reverse proxy); the session-diagnostic routes require the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/predict", handlePredict(deps))
	r.Post("/coach", handleCoach(deps))
	r.Delete("/coach/session", handleResetSession(deps))

	r.Group(func(pr chi.Router) {
		pr.Use(BearerAuth(deps.Token))
		pr.Get("/sessions", handleListSessions(deps))
		pr.Get("/sessions/{id}/transcript", handleTranscript(deps))
	})

	return r
}

// handleHealth is a constant liveness acknowledgment, independent of model
// state.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleCoach(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req CoachRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		reply, err := deps.Coach.Reply(r.Context(), req.Text, req.SessionID)
		if err != nil {
			coachError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reply)
	}
}

func handlePredict(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req PredictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		res, err := deps.Coach.Classify(r.Context(), req.Text, req.TopK)
		if err != nil {
			coachError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
	}
}

// handleResetSession clears a session's history. Idempotent: resetting a
// session that never existed still reports success.
func handleResetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			sessionID = coach.DefaultSessionID
		}

		if err := deps.Coach.ResetSession(sessionID); err != nil {
			coachError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"message": fmt.Sprintf("Sesión %q reiniciada.", sessionID),
		})
	}
}

func handleListSessions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type sessionsResponse struct {
			Live     []string                 `json:"live"`
			Archived []storage.SessionSummary `json:"archived"`
		}

		resp := sessionsResponse{Live: deps.Coach.SessionIDs()}
		if resp.Live == nil {
			resp.Live = []string{}
		}

		if deps.Archive != nil {
			archived, err := deps.Archive.RecentSessions(50)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to list archived sessions: %v", err)
				return
			}
			resp.Archived = archived
		}
		if resp.Archived == nil {
			resp.Archived = []storage.SessionSummary{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func handleTranscript(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Archive == nil {
			httpError(w, http.StatusNotFound, "not_found", "transcript archive is disabled")
			return
		}

		id := chi.URLParam(r, "id")
		limit := parseIntParam(r, "limit", 50, 200)

		exchanges, err := deps.Archive.ListBySession(id, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load transcript: %v", err)
			return
		}
		if exchanges == nil {
			exchanges = []storage.Exchange{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(exchanges)
	}
}

// coachError maps an orchestrator error to an HTTP response. Invalid input is
// the caller's fault; everything else is a server-side failure.
func coachError(w http.ResponseWriter, err error) {
	kind := coach.KindOf(err)
	status := http.StatusInternalServerError
	errType := string(kind)
	if errType == "" {
		errType = "api_error"
	}
	if kind == coach.KindInvalidInput {
		status = http.StatusBadRequest
	}
	httpError(w, status, errType, "%v", err)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
