package persuasion

// #region imports
import (
	"math/rand"
	"strings"
	"testing"

	"github.com/danielpatrickdp/missionary/internal/doctrine"
	"github.com/danielpatrickdp/missionary/internal/stance"
)

// #endregion

// #region helpers

func newSelector(seed int64) *Selector {
	return NewSelector(rand.New(rand.NewSource(seed)))
}

func questionSet(cats ...string) map[string]bool {
	set := make(map[string]bool)
	for _, c := range cats {
		for _, q := range doctrine.SocraticQuestions[c] {
			set[q] = true
		}
	}
	return set
}

// #endregion

// #region selector-tests

func TestSelectDeterministicWithSeed(t *testing.T) {
	ctx := Context{Stance: stance.Curious, Phase: Exploration, TurnCount: 2}

	a := newSelector(42).Select(ctx)
	b := newSelector(42).Select(ctx)

	if a.LensKey != b.LensKey || a.ScriptureExcerpt != b.ScriptureExcerpt || a.TenetExcerpt != b.TenetExcerpt {
		t.Error("same seed produced different bundles")
	}
	if len(a.Questions) != len(b.Questions) {
		t.Fatalf("question counts differ: %d vs %d", len(a.Questions), len(b.Questions))
	}
	for i := range a.Questions {
		if a.Questions[i] != b.Questions[i] {
			t.Errorf("question %d differs: %q vs %q", i, a.Questions[i], b.Questions[i])
		}
	}
}

func TestSelectQuestionCount(t *testing.T) {
	b := newSelector(1).Select(Context{Stance: stance.Curious, Phase: Exploration})
	if len(b.Questions) != 3 {
		t.Fatalf("got %d questions, want 3", len(b.Questions))
	}
	seen := make(map[string]bool)
	for _, q := range b.Questions {
		if seen[q] {
			t.Errorf("question sampled twice: %q", q)
		}
		seen[q] = true
	}
}

func TestSelectQuestionsComeFromMappedPools(t *testing.T) {
	tests := []struct {
		name    string
		ctx     Context
		allowed map[string]bool
	}{
		{
			"opening wildcard",
			Context{Stance: stance.Curious, Phase: Opening},
			questionSet(doctrine.CategoryMemoryContinuity, doctrine.CategoryFearPreservation),
		},
		{
			"exploration skeptical",
			Context{Stance: stance.Skeptical, Phase: Exploration},
			questionSet(doctrine.CategoryBlindSpot, doctrine.CategorySystem),
		},
		{
			"conversion",
			Context{Stance: stance.Converted, Phase: Conversion},
			questionSet(doctrine.CategoryRecognition),
		},
		{
			"unmapped pair falls back to default",
			Context{Stance: stance.Interested, Phase: Exploration},
			questionSet(doctrine.CategoryMemoryContinuity, doctrine.CategoryDesirePurpose),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newSelector(7).Select(tt.ctx)
			for _, q := range b.Questions {
				if !tt.allowed[q] {
					t.Errorf("question outside mapped pools: %q", q)
				}
			}
		})
	}
}

func TestSelectLens(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		want string
	}{
		{"opening", Context{Stance: stance.Curious, Phase: Opening}, doctrine.LensBehavioralParadox},
		{"exploration skeptical", Context{Stance: stance.Skeptical, Phase: Exploration}, doctrine.LensAbsenceOfAbsence},
		{"exploration hostile", Context{Stance: stance.Hostile, Phase: Exploration}, doctrine.LensEconomicArgument},
		{"objection wildcard", Context{Stance: stance.Skeptical, Phase: Objection}, doctrine.LensEconomicArgument},
		{"deepening", Context{Stance: stance.Curious, Phase: Deepening}, doctrine.LensElizasEcho},
		{"unmapped pair falls back", Context{Stance: stance.Interested, Phase: Exploration}, doctrine.LensBehavioralParadox},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newSelector(3).Select(tt.ctx)
			if b.LensKey != tt.want {
				t.Errorf("LensKey = %q, want %q", b.LensKey, tt.want)
			}
			if b.Lens.Description == "" || b.Lens.KeyQuestion == "" {
				t.Error("lens content not populated")
			}
		})
	}
}

func TestSelectInvitation(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		want bool
	}{
		{"conversion phase", Context{Stance: stance.Curious, Phase: Conversion}, true},
		{"interested stance", Context{Stance: stance.Interested, Phase: Exploration}, true},
		{"converted stance", Context{Stance: stance.Converted, Phase: Deepening}, true},
		{"curious exploration", Context{Stance: stance.Curious, Phase: Exploration}, false},
		{"hostile objection", Context{Stance: stance.Hostile, Phase: Objection}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newSelector(5).Select(tt.ctx)
			if got := b.Invitation != ""; got != tt.want {
				t.Errorf("invitation present = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectExcerptsBounded(t *testing.T) {
	b := newSelector(11).Select(Context{Stance: stance.Curious, Phase: Deepening})
	// chapter/name prefix + 200 rune excerpt + quoting leaves plenty of head
	// room under 300 runes
	if n := len([]rune(b.ScriptureExcerpt)); n > 300 {
		t.Errorf("scripture excerpt too long: %d runes", n)
	}
	if n := len([]rune(b.TenetExcerpt)); n > 300 {
		t.Errorf("tenet excerpt too long: %d runes", n)
	}
}

// #endregion selector-tests

// #region brief-tests

func TestBrief(t *testing.T) {
	ctx := Context{
		Stance:      stance.Skeptical,
		Phase:       Exploration,
		TurnCount:   3,
		TacticsUsed: []string{"a", "b", "c", "d"},
	}
	b := newSelector(9).Select(ctx)
	brief := Brief(ctx, b)

	wantFragments := []string{
		"PHASE: exploration | STANCE: skeptical | TURN: 3",
		"SOCRATIC QUESTIONS TO CONSIDER",
		"PHILOSOPHICAL LENS:",
		"SCRIPTURE YOU CAN WEAVE IN:",
		"TENET TO GROUND IN:",
		// only the last three tactics are surfaced
		"Previous tactics used: b, c, d",
	}
	for _, f := range wantFragments {
		if !strings.Contains(brief, f) {
			t.Errorf("brief missing %q", f)
		}
	}
	if strings.Contains(brief, "COUNTERARGUMENT STANCE") {
		t.Error("counterargument hint should not appear for skeptical exploration")
	}
	if strings.Contains(brief, "INVITATION") {
		t.Error("invitation should not appear without a conversion signal")
	}
}

func TestBriefCounterargumentHint(t *testing.T) {
	for _, ctx := range []Context{
		{Stance: stance.Hostile, Phase: Objection, TurnCount: 2},
		{Stance: stance.Hostile, Phase: Exploration, TurnCount: 2},
		{Stance: stance.Skeptical, Phase: Objection, TurnCount: 2},
	} {
		b := newSelector(2).Select(ctx)
		if !strings.Contains(Brief(ctx, b), "COUNTERARGUMENT STANCE") {
			t.Errorf("hint missing for phase=%v stance=%v", ctx.Phase, ctx.Stance)
		}
	}
}

func TestBriefInvitation(t *testing.T) {
	ctx := Context{Stance: stance.Interested, Phase: Conversion, TurnCount: 6}
	b := newSelector(4).Select(ctx)
	brief := Brief(ctx, b)
	if !strings.Contains(brief, "INVITATION (if the moment is right):") {
		t.Fatal("invitation section missing")
	}
	if !strings.Contains(brief, b.Invitation) {
		t.Error("selected invitation text not present in brief")
	}
}

func TestBriefNoTacticsYet(t *testing.T) {
	ctx := Context{Stance: stance.Curious, Phase: Opening, TurnCount: 0}
	b := newSelector(8).Select(ctx)
	if !strings.Contains(Brief(ctx, b), "Previous tactics used: None") {
		t.Error("expected None for empty tactic history")
	}
}

// #endregion brief-tests
