package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/animolabs/animo/internal/config"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestChatCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /coach": `{"emotion":"tristeza","advice":"Lamento que te sientas así.","session_id":"s1"}`,
	})

	client := ts.client()

	req := map[string]any{"text": "me siento mal", "session_id": "s1"}
	resp, err := client.post(ctx, "/coach", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var reply struct {
		Emotion   string `json:"emotion"`
		Advice    string `json:"advice"`
		SessionID string `json:"session_id"`
	}
	if err := decodeJSON(resp, &reply); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if reply.Emotion != "tristeza" {
		t.Errorf("emotion = %q, want tristeza", reply.Emotion)
	}
	if reply.SessionID != "s1" {
		t.Errorf("session_id = %q, want s1", reply.SessionID)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}

	r := ts.requests[0]
	if r.Method != "POST" {
		t.Errorf("method = %q, want POST", r.Method)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["text"] != "me siento mal" {
		t.Errorf("body.text = %v, want 'me siento mal'", body["text"])
	}
	if body["session_id"] != "s1" {
		t.Errorf("body.session_id = %v, want s1", body["session_id"])
	}
}

func TestChatCommand_MissingArgs(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"chat"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing args")
	}
}

func TestClassifyCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /predict": `{"label":"alegria","probability":0.91,"top_k":[{"label":"alegria","prob":0.91},{"label":"sorpresa","prob":0.05}]}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/predict", map[string]any{"text": "qué buen día", "top_k": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		Label  string `json:"label"`
		Ranked []struct {
			Label string `json:"label"`
		} `json:"top_k"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if result.Label != "alegria" {
		t.Errorf("label = %q, want alegria", result.Label)
	}
	if len(result.Ranked) != 2 {
		t.Errorf("len(top_k) = %d, want 2", len(result.Ranked))
	}
}

func TestResetCommand_URLEncoding(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"DELETE /coach/session": `{"status":"ok","message":"Sesión \"mi sesión\" reiniciada."}`,
	})

	client := ts.client()
	path := "/coach/session?session_id=" + url.QueryEscape("mi sesión")
	resp, err := client.delete(ctx, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}

	reqPath := ts.requests[0].Path
	if strings.Contains(reqPath, "mi sesión") {
		t.Errorf("query not URL-encoded: %q", reqPath)
	}
}

func TestSessionsCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /sessions": `{"live":["default","trabajo"],"archived":[{"session_id":"vieja","exchanges":4,"last_activity":"2025-01-01T00:00:00Z"}]}`,
	})

	client := ts.client()
	resp, err := client.get(ctx, "/sessions")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		Live     []string `json:"live"`
		Archived []struct {
			SessionID string `json:"session_id"`
			Exchanges int    `json:"exchanges"`
		} `json:"archived"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if len(result.Live) != 2 {
		t.Fatalf("expected 2 live sessions, got %d", len(result.Live))
	}
	if len(result.Archived) != 1 || result.Archived[0].Exchanges != 4 {
		t.Errorf("archived = %+v, want one session with 4 exchanges", result.Archived)
	}
}

func TestHistoryCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /sessions/trabajo/transcript": `[{"user_text":"tuve un mal día","emotion":"tristeza","risk":false,"advice":"Lo siento.","created_at":"2025-01-01T00:00:00Z"}]`,
	})

	client := ts.client()
	resp, err := client.get(ctx, "/sessions/trabajo/transcript?limit=50")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var exchanges []struct {
		UserText string `json:"user_text"`
		Emotion  string `json:"emotion"`
	}
	if err := decodeJSON(resp, &exchanges); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if len(exchanges) != 1 {
		t.Fatalf("expected 1 exchange, got %d", len(exchanges))
	}
	if exchanges[0].Emotion != "tristeza" {
		t.Errorf("emotion = %q, want tristeza", exchanges[0].Emotion)
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	client := ts.client()
	_, err := client.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"unauthorized","type":"authentication_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		token:      "bad-token",
		httpClient: ts.Client(),
	}

	resp, err := client.get(ctx, "/sessions")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %q, want it to contain '401'", err.Error())
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 8000
	cfg.Engine.ModelPath = "/models/coach.gguf"

	keys := config.ShowAll(cfg)
	if len(keys) == 0 {
		t.Fatal("expected non-empty keys from ShowAll")
	}

	found := false
	for _, k := range keys {
		if k.Key == "server.port" && k.Value == "8000" {
			found = true
		}
		if k.Key == "server.api_token" {
			t.Error("ShowAll exposes the api token")
		}
	}
	if !found {
		t.Error("expected to find server.port=8000 in ShowAll output")
	}
}
