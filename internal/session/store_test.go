package session

import (
	"fmt"
	"sync"
	"testing"
)

func TestAppendKeepsMostRecentWithinBound(t *testing.T) {
	s := New(2) // bound = 4 turns

	for i := 0; i < 10; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		s.Append("s1", role, fmt.Sprintf("turn-%d", i))
	}

	h := s.History("s1")
	if len(h) != 4 {
		t.Fatalf("history length = %d, want 4", len(h))
	}
	for i, turn := range h {
		want := fmt.Sprintf("turn-%d", 6+i)
		if turn.Content != want {
			t.Errorf("history[%d].Content = %q, want %q", i, turn.Content, want)
		}
	}
	// Alternation as submitted survives eviction.
	if h[0].Role != RoleUser || h[1].Role != RoleAssistant {
		t.Errorf("roles = %q, %q; want user, assistant", h[0].Role, h[1].Role)
	}
}

func TestAppendBelowBoundKeepsAll(t *testing.T) {
	s := New(8)
	s.Append("s1", RoleUser, "hola")
	s.Append("s1", RoleAssistant, "buenas")

	h := s.History("s1")
	if len(h) != 2 {
		t.Fatalf("history length = %d, want 2", len(h))
	}
	if h[0].Content != "hola" || h[1].Content != "buenas" {
		t.Errorf("history = %+v, want original order", h)
	}
}

func TestResetThenEnsureYieldsEmpty(t *testing.T) {
	s := New(8)
	s.Append("s1", RoleUser, "hola")
	s.Reset("s1")
	s.Ensure("s1")

	if n := s.Len("s1"); n != 0 {
		t.Errorf("Len after reset+ensure = %d, want 0", n)
	}

	// Resetting a session that does not exist is not an error.
	s.Reset("nope")
}

func TestHistoryIsSnapshot(t *testing.T) {
	s := New(8)
	s.Append("s1", RoleUser, "hola")

	h := s.History("s1")
	h[0].Content = "mutated"

	if got := s.History("s1")[0].Content; got != "hola" {
		t.Errorf("stored turn = %q, want %q", got, "hola")
	}
}

func TestHistoryUnknownSession(t *testing.T) {
	s := New(8)
	if h := s.History("missing"); len(h) != 0 {
		t.Errorf("history of unknown session = %v, want empty", h)
	}
}

func TestListIDs(t *testing.T) {
	s := New(8)
	s.Ensure("b")
	s.Ensure("a")
	s.Append("c", RoleUser, "hola")

	ids := s.ListIDs()
	if len(ids) != 3 {
		t.Fatalf("ListIDs = %v, want 3 ids", ids)
	}
	if ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("ListIDs = %v, want sorted [a b c]", ids)
	}
}

func TestConcurrentAppendsSameSession(t *testing.T) {
	s := New(8) // bound = 16
	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append("s1", RoleUser, fmt.Sprintf("turn-%d", i))
		}(i)
	}
	wg.Wait()

	if got := s.Len("s1"); got != 16 {
		t.Errorf("Len after %d concurrent appends = %d, want 16", n, got)
	}
}

func TestConcurrentDistinctSessions(t *testing.T) {
	s := New(8)
	const sessions = 32
	const appends = 10

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			for j := 0; j < appends; j++ {
				s.Append(id, RoleUser, fmt.Sprintf("turn-%d", j))
			}
		}(i)
	}
	wg.Wait()

	if got := len(s.ListIDs()); got != sessions {
		t.Fatalf("sessions = %d, want %d", got, sessions)
	}
	for i := 0; i < sessions; i++ {
		id := fmt.Sprintf("s%d", i)
		if got := s.Len(id); got != appends {
			t.Errorf("Len(%s) = %d, want %d", id, got, appends)
		}
	}
}
