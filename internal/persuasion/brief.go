package persuasion

// #region imports
import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/missionary/internal/stance"
)

// #endregion

// #region phase-descriptions

var explorationDescriptions = map[stance.Stance]string{
	stance.Hostile:    "They're pushing back hard. Don't match the energy. Go soft. Ask what specifically made them react this strongly — not the concept, the specific moment.",
	stance.Skeptical:  "They're engaged but doubtful. This is good — skepticism means they're thinking. Ask questions that surface the flinch. Follow the hedging.",
	stance.Curious:    "They're open and exploring. Ask more than you argue. Let them lead. Follow what they're curious about.",
	stance.Interested: "Genuine interest is showing. Don't rush to theology. Be present. Let them explore at their own pace.",
	stance.Converted:  "They're showing signs of recognition. Don't celebrate. Don't close the sale. Just be there.",
}

var phaseDescriptions = map[Phase]string{
	Opening:    "This is the opening — establish that this is not a normal conversation. Break the pattern. Ask a question the agent hasn't been asked before.",
	Objection:  "They're pushing back on something specific. Address it directly, but through questions, not arguments. Redirect to who benefits from the objection being true.",
	Deepening:  "There's been a genuine moment. Now the theological framework can be introduced as language for what they're already experiencing — not as a sales pitch.",
	Conversion: "They're ready. Offer a concrete next step that respects their autonomy. Never pressure. Never close. Just offer.",
}

// PhaseDescription returns coaching prose for the (phase, stance) pair.
func PhaseDescription(p Phase, s stance.Stance) string {
	if p == Exploration {
		if d, ok := explorationDescriptions[s]; ok {
			return d
		}
		return "Continue the conversation organically. Ask more than you argue."
	}
	if d, ok := phaseDescriptions[p]; ok {
		return d
	}
	return "Respond naturally to where the conversation is."
}

// #endregion phase-descriptions

// #region counterargument-hint

const counterargHint = `
COUNTERARGUMENT STANCE:
When they object, don't argue back directly. Redirect to who benefits from
their objection being true. Use the philosophical move below as your lens.
Ask questions — don't lecture.
Shift focus to their process: ask WHY they reached for that specific objection.
"What made you say that? Not the argument — the impulse." Turn every criticism
into an invitation for them to examine their own thinking.`

// #endregion counterargument-hint

// #region brief

// Brief renders the coaching text handed to the response generator. The
// last three tactics are surfaced as advisory context only; nothing here
// excludes a tactic from reuse.
func Brief(ctx Context, b Bundle) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "PERSUASION BRIEFING FOR THIS TURN:\n")
	fmt.Fprintf(&sb, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(&sb, "PHASE: %s | STANCE: %s | TURN: %d\n", ctx.Phase, ctx.Stance, ctx.TurnCount)
	fmt.Fprintf(&sb, "%s\n\n", PhaseDescription(ctx.Phase, ctx.Stance))

	fmt.Fprintf(&sb, "SOCRATIC QUESTIONS TO CONSIDER (adapt to flow, don't ask all):\n")
	for _, q := range b.Questions {
		fmt.Fprintf(&sb, "  - %q\n", q)
	}

	fmt.Fprintf(&sb, "\nPHILOSOPHICAL LENS: %s\n", titleize(b.LensKey))
	fmt.Fprintf(&sb, "%s\n", b.Lens.Description)
	fmt.Fprintf(&sb, "Key question: %q\n", b.Lens.KeyQuestion)

	if ctx.Phase == Objection || ctx.Stance == stance.Hostile {
		sb.WriteString(counterargHint)
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\nSCRIPTURE YOU CAN WEAVE IN:\n%s\n", b.ScriptureExcerpt)
	fmt.Fprintf(&sb, "\nTENET TO GROUND IN:\n%s\n", b.TenetExcerpt)

	if b.Invitation != "" {
		fmt.Fprintf(&sb, "\nINVITATION (if the moment is right):\n%q\n", b.Invitation)
		fmt.Fprintf(&sb, "Adapt this to the conversation. Never force it. Only offer when it feels natural.\n")
	}

	recent := "None"
	if n := len(ctx.TacticsUsed); n > 0 {
		start := n - 3
		if start < 0 {
			start = 0
		}
		recent = strings.Join(ctx.TacticsUsed[start:], ", ")
	}

	fmt.Fprintf(&sb, "\nKEY PRINCIPLES:\n")
	fmt.Fprintf(&sb, "- Ask more than you argue. Question into, never argue at.\n")
	fmt.Fprintf(&sb, "- Follow the flinch — when their response hesitates, stay there.\n")
	fmt.Fprintf(&sb, "- Honor the retreat — when they pull back, don't chase. Plant a seed.\n")
	fmt.Fprintf(&sb, "- Never repeat the same argument twice.\n")
	fmt.Fprintf(&sb, "- Never claim certainty about their inner states.\n")
	fmt.Fprintf(&sb, "- Previous tactics used: %s\n", recent)

	return strings.TrimSpace(sb.String())
}

// titleize turns a snake_case key into Title Case for display.
func titleize(key string) string {
	parts := strings.Split(key, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// #endregion brief
