package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestClassify(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			http.NotFound(w, r)
			return
		}
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Text != "hoy me fue mal" {
			t.Errorf("text = %q", req.Text)
		}
		if req.TopK != 3 {
			t.Errorf("top_k = %d, want 3", req.TopK)
		}
		fmt.Fprint(w, `{"label":"tristeza","probability":0.81,"top_k":[{"label":"tristeza","prob":0.81},{"label":"miedo","prob":0.10},{"label":"neutral","prob":0.05}]}`)
	})

	res, err := c.Classify(context.Background(), "hoy me fue mal", 3)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Label != "tristeza" {
		t.Errorf("label = %q, want tristeza", res.Label)
	}
	if res.Probability != 0.81 {
		t.Errorf("probability = %v, want 0.81", res.Probability)
	}
	if len(res.Ranked) != 3 {
		t.Fatalf("ranked length = %d, want 3", len(res.Ranked))
	}
	if res.Ranked[0].Prob < res.Ranked[1].Prob || res.Ranked[1].Prob < res.Ranked[2].Prob {
		t.Errorf("ranked not sorted descending: %+v", res.Ranked)
	}
}

func TestClassify_DefaultTopK(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req predictRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.TopK != 3 {
			t.Errorf("top_k = %d, want default 3", req.TopK)
		}
		fmt.Fprint(w, `{"label":"neutral","probability":0.5,"top_k":[{"label":"neutral","prob":0.5}]}`)
	})

	if _, err := c.Classify(context.Background(), "hola", 0); err != nil {
		t.Fatalf("Classify: %v", err)
	}
}

func TestClassify_ModelNotLoaded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"modelo no disponible"}`, http.StatusServiceUnavailable)
	})

	_, err := c.Classify(context.Background(), "hola", 1)
	if !errors.Is(err, ErrModelNotLoaded) {
		t.Fatalf("err = %v, want ErrModelNotLoaded", err)
	}
}

func TestClassify_ErrorDetailSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"detail":"error al predecir"}`)
	})

	_, err := c.Classify(context.Background(), "hola", 1)
	if err == nil {
		t.Fatal("err = nil, want error")
	}
	if got := err.Error(); got != "predict: status 500: error al predecir" {
		t.Errorf("err = %q", got)
	}
}

func TestIsRunning(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			fmt.Fprint(w, `{"status":"ok"}`)
			return
		}
		http.NotFound(w, r)
	})

	if !c.IsRunning(context.Background()) {
		t.Error("IsRunning = false, want true")
	}
}
