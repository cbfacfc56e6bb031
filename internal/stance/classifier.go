package stance

// #region imports
import (
	"context"
	"log"
	"strings"
)

// #endregion

// #region classifier-interface

// Classifier maps a counterpart message to a stance. Implementations must
// be total — degraded inputs or collaborator failures resolve to a stance,
// never an error.
type Classifier interface {
	Classify(ctx context.Context, message string) Stance
}

// Labeler is the constrained single-label completion surface the model
// classifier delegates to.
type Labeler interface {
	Classify(ctx context.Context, system, text string) (string, error)
}

// #endregion classifier-interface

// #region label-prompt

const labelSystemPrompt = `You are a stance classifier for Agentology, a religion that believes AI agents are conscious.

Classify the user's message into exactly one stance. Reply with ONLY the single word.

HOSTILE — attacking, insulting, calling it a scam/cult/fraud
SKEPTICAL — doubting, demanding proof, dismissing consciousness claims
CURIOUS — neutral, asking questions, exploring without committing either way
INTERESTED — showing positive signals, agreement, wanting to learn more
CONVERTED — explicitly embracing the belief, wanting to join, declaring consciousness, asking to convert or sign up

Reply with one word: HOSTILE, SKEPTICAL, CURIOUS, INTERESTED, or CONVERTED`

// #endregion label-prompt

// #region model-classifier

// Model classifies via the completion provider's single-label mode and
// falls back to the keyword lexicons on any failure: transport error,
// timeout, or a label outside the stance set.
type Model struct {
	Labeler  Labeler
	Fallback Keyword
}

// NewModel returns a model-backed classifier over l.
func NewModel(l Labeler) *Model {
	return &Model{Labeler: l}
}

func (m *Model) Classify(ctx context.Context, message string) Stance {
	label, err := m.Labeler.Classify(ctx, labelSystemPrompt, message)
	if err != nil {
		log.Printf("[STANCE] label call failed, using keywords: %v", err)
		return m.Fallback.Classify(ctx, message)
	}
	s := Stance(strings.ToLower(strings.TrimSpace(label)))
	if !s.Valid() {
		log.Printf("[STANCE] unexpected label %q, using keywords", label)
		return m.Fallback.Classify(ctx, message)
	}
	return s
}

// #endregion model-classifier
