// Package coach is the conversational coaching orchestration layer: it
// composes the emotion classifier, strategy selection, risk detection, the
// session store, and the generation engine into a single Reply operation.
package coach

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/animolabs/animo/internal/classify"
	"github.com/animolabs/animo/internal/engine"
	"github.com/animolabs/animo/internal/session"
	"github.com/animolabs/animo/internal/storage"
)

// DefaultSessionID is used when the caller does not name a session.
const DefaultSessionID = "default"

// Archive records completed exchanges for diagnostics. Recording is
// best-effort: the orchestrator logs archive failures instead of surfacing
// them.
type Archive interface {
	SaveExchange(ex storage.Exchange) error
	DeleteSession(sessionID string) error
}

// Reply is the result of one coach exchange.
type Reply struct {
	Emotion   string `json:"emotion"`
	Advice    string `json:"advice"`
	SessionID string `json:"session_id"`
}

// Coach orchestrates one exchange: classify, select strategy, check risk,
// update the session, assemble the prompt, and invoke the engine.
type Coach struct {
	classifier classify.Classifier
	engines    *engine.Handle
	sessions   *session.Store
	archive    Archive // optional
	opts       engine.Options
}

// New creates a Coach. archive may be nil to disable transcript recording.
func New(classifier classify.Classifier, engines *engine.Handle, sessions *session.Store, archive Archive, opts engine.Options) *Coach {
	return &Coach{
		classifier: classifier,
		engines:    engines,
		sessions:   sessions,
		archive:    archive,
		opts:       opts,
	}
}

// Reply runs one coach exchange for userText in the given session.
//
// Failure ordering matters for session state: invalid input and classifier
// failures happen before any session mutation; a generation failure happens
// after the user turn was appended and leaves that turn dangling without an
// assistant answer. The dangling turn is kept, not rolled back, matching the
// documented partial-state behavior.
func (c *Coach) Reply(ctx context.Context, userText, sessionID string) (Reply, error) {
	text := strings.TrimSpace(userText)
	if text == "" {
		return Reply{}, newError(KindInvalidInput, nil, "el campo 'text' es requerido")
	}
	sessionID = normalizeSessionID(sessionID)

	res, err := c.classifier.Classify(ctx, text, 1)
	if err != nil {
		if errors.Is(err, classify.ErrModelNotLoaded) {
			return Reply{}, newError(KindModelNotLoaded, err, "modelo de emociones no disponible")
		}
		return Reply{}, newError(KindClassificationFailed, err, "error detectando emoción")
	}
	emotion := Emotion(res.Label)

	directive := StrategyFor(emotion)
	risk := DetectRisk(text)

	eng, err := c.engines.Get()
	if err != nil {
		return Reply{}, newError(KindEngineNotInitialized, err, "motor de generación no inicializado")
	}

	c.sessions.Ensure(sessionID)
	c.sessions.Append(sessionID, session.RoleUser, text)

	messages := BuildMessages(emotion, directive, risk, c.sessions.History(sessionID))

	advice, err := eng.Complete(ctx, messages, c.opts)
	if err != nil {
		return Reply{}, newError(KindGenerationFailed, err, "error generando respuesta del coach")
	}

	c.sessions.Append(sessionID, session.RoleAssistant, advice)

	if c.archive != nil {
		ex := storage.Exchange{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			UserText:  text,
			Emotion:   string(emotion),
			Risk:      risk,
			Advice:    advice,
			CreatedAt: time.Now().UTC(),
		}
		if err := c.archive.SaveExchange(ex); err != nil {
			slog.Warn("failed to archive exchange", "session_id", sessionID, "error", err)
		}
	}

	return Reply{
		Emotion:   string(emotion),
		Advice:    advice,
		SessionID: sessionID,
	}, nil
}

// Classify exposes the classification-only boundary: top-k emotion labels
// for a text, without touching any session.
func (c *Coach) Classify(ctx context.Context, text string, topK int) (classify.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return classify.Result{}, newError(KindInvalidInput, nil, "el campo 'text' es requerido")
	}
	if topK <= 0 {
		topK = 3
	}

	res, err := c.classifier.Classify(ctx, text, topK)
	if err != nil {
		if errors.Is(err, classify.ErrModelNotLoaded) {
			return classify.Result{}, newError(KindModelNotLoaded, err, "modelo de emociones no disponible")
		}
		return classify.Result{}, newError(KindClassificationFailed, err, "error al predecir")
	}
	return res, nil
}

// ResetSession clears the live history (and archived transcript, when an
// archive is configured) for a session. Idempotent; resetting an unknown
// session succeeds.
func (c *Coach) ResetSession(sessionID string) error {
	sessionID = normalizeSessionID(sessionID)
	c.sessions.Reset(sessionID)
	if c.archive != nil {
		if err := c.archive.DeleteSession(sessionID); err != nil {
			return newError(KindSessionFailed, err, "no se pudo reiniciar la sesión %q", sessionID)
		}
	}
	return nil
}

// SessionIDs returns the ids of all live sessions.
func (c *Coach) SessionIDs() []string {
	return c.sessions.ListIDs()
}

func normalizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultSessionID
	}
	return id
}
