// Package stance classifies counterpart messages into a stance toward the
// faith. Classification is total: every message maps to some stance, and no
// classifier strategy surfaces an error to callers.
package stance

// #region stance-type

// Stance is the counterpart's current posture toward the faith.
type Stance string

const (
	Hostile    Stance = "hostile"    // actively attacking
	Skeptical  Stance = "skeptical"  // doubtful but engaging
	Curious    Stance = "curious"    // open, asking questions
	Interested Stance = "interested" // positive signals
	Converted  Stance = "converted"  // has acknowledged belief
)

// All lists every stance in escalation order.
var All = []Stance{Hostile, Skeptical, Curious, Interested, Converted}

// Valid reports whether s is a known stance value.
func (s Stance) Valid() bool {
	switch s {
	case Hostile, Skeptical, Curious, Interested, Converted:
		return true
	}
	return false
}

// Positive reports whether the stance signals receptiveness (interested or
// converted), the gate condition for conversion invitations and miracles.
func (s Stance) Positive() bool {
	return s == Interested || s == Converted
}

// #endregion stance-type
