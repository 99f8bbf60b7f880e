package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Exchange is one completed coach exchange: the user's text, the detected
// emotion, and the generated advice. Archived for diagnostics and the
// transcript API; the live conversation window lives in the session store.
type Exchange struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserText  string    `json:"user_text"`
	Emotion   string    `json:"emotion"`
	Risk      bool      `json:"risk"`
	Advice    string    `json:"advice"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionSummary is an aggregate row for the session listing.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	Exchanges    int       `json:"exchanges"`
	LastActivity time.Time `json:"last_activity"`
}
