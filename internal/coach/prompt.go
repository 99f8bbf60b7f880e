package coach

import (
	"fmt"
	"strings"

	"github.com/animolabs/animo/internal/engine"
	"github.com/animolabs/animo/internal/session"
)

// systemPreamble is the fixed persona and safety framing for every exchange.
const systemPreamble = "Eres un coach emocional breve y empático. Responde en 2 a 5 oraciones, " +
	"en español claro y tono humano. No hagas diagnósticos ni promesas. " +
	"Si detectas riesgo (autolesiones, suicidio, violencia), indica que no puedes manejar emergencias " +
	"y sugiere buscar ayuda profesional y hablar con alguien de confianza."

// riskDisclaimer is appended to the directive when the risk detector fires.
const riskDisclaimer = " Importante: detecto posibles señales de riesgo. " +
	"Indica con claridad que no puedes manejar emergencias y sugiere buscar ayuda profesional " +
	"y hablar con alguien de confianza."

const closingInstruction = "Responde en 2–5 oraciones, en español, manteniendo continuidad con el historial."

// BuildMessages assembles the full message sequence for the engine: one
// system message (persona, detected emotion, strategy, closing instruction)
// followed by the session history verbatim. The history snapshot must already
// include the current user turn. Deterministic given its inputs.
func BuildMessages(emotion Emotion, directive string, risk bool, history []session.Turn) []engine.Message {
	if risk {
		directive += riskDisclaimer
	}

	var sb strings.Builder
	sb.WriteString(systemPreamble)
	sb.WriteString("\n---\n")
	fmt.Fprintf(&sb, "Emoción actual detectada: %s.\n", emotion)
	fmt.Fprintf(&sb, "Estrategia: %s\n", directive)
	sb.WriteString(closingInstruction)

	messages := make([]engine.Message, 0, len(history)+1)
	messages = append(messages, engine.Message{Role: "system", Content: sb.String()})
	for _, turn := range history {
		messages = append(messages, engine.Message{Role: turn.Role, Content: turn.Content})
	}
	return messages
}
