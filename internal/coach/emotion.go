package coach

// Emotion is a classifier label. The set is fixed by the trained model;
// labels outside it take the generic fallback directive.
type Emotion string

const (
	Alegria  Emotion = "alegria"
	Tristeza Emotion = "tristeza"
	Enojo    Emotion = "enojo"
	Miedo    Emotion = "miedo"
	Asco     Emotion = "asco"
	Sorpresa Emotion = "sorpresa"
	Neutral  Emotion = "neutral"
)

// KnownEmotions returns the fixed label set in a stable order.
func KnownEmotions() []Emotion {
	return []Emotion{Alegria, Tristeza, Enojo, Miedo, Asco, Sorpresa, Neutral}
}

const fallbackDirective = "Sé empático y ofrece un paso pequeño y útil."

// StrategyFor maps an emotion label to its coaching directive. Labels are
// matched case-sensitively; anything outside the fixed set falls back to the
// generic directive.
func StrategyFor(e Emotion) string {
	switch e {
	case Alegria:
		return "Refuerza logros y sugiere un siguiente pequeño paso para mantener el impulso."
	case Tristeza:
		return "Valida la emoción, ofrece un paso pequeño y alcanzable ahora mismo."
	case Enojo:
		return "Reconoce la molestia, separa hechos de juicios y ofrece una acción concreta para recuperar control."
	case Miedo:
		return "Normaliza el temor, enseña respiración 4-4-4 en una línea y define un paso seguro."
	case Asco:
		return "Reconoce el rechazo, sugiere límites/higiene y una alternativa práctica."
	case Sorpresa:
		return "Explora qué cambió, resume lo positivo/lo aprendido y sugiere siguiente paso."
	case Neutral:
		return "Haz 1 pregunta aclaratoria y propone un micro-objetivo."
	default:
		return fallbackDirective
	}
}
