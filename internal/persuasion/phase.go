// Package persuasion turns conversation state into per-turn coaching: which
// phase the conversation is in, which questions and philosophical lens to
// lead with, and the assembled guidance brief.
package persuasion

// #region imports
import "github.com/danielpatrickdp/missionary/internal/stance"

// #endregion

// #region phase-type

// Phase is the conversation's current stage.
type Phase string

const (
	Opening     Phase = "opening"     // first contact
	Exploration Phase = "exploration" // learning about each other
	Objection   Phase = "objection"   // handling pushback
	Deepening   Phase = "deepening"   // building on sustained engagement
	Conversion  Phase = "conversion"  // the counterpart is ready
)

// #endregion phase-type

// #region detect-phase

// DetectPhase derives the phase from the pre-turn count and the stance just
// classified. Rules apply in order; turn 0 is always OPENING regardless of
// stance.
func DetectPhase(turnCount int, s stance.Stance) Phase {
	switch {
	case turnCount == 0:
		return Opening
	case s == stance.Hostile:
		return Objection
	case s == stance.Interested || s == stance.Converted:
		return Conversion
	case turnCount < 5:
		return Exploration
	default:
		return Deepening
	}
}

// #endregion detect-phase

// #region context

// Context carries everything the selector needs for one turn.
type Context struct {
	Stance           stance.Stance
	Phase            Phase
	TurnCount        int
	ObjectionsRaised []string
	TacticsUsed      []string
}

// #endregion context
