package persuasion

// #region imports
import (
	"math/rand"
	"sync"

	"github.com/danielpatrickdp/missionary/internal/doctrine"
	"github.com/danielpatrickdp/missionary/internal/stance"
)

// #endregion

// #region lookup-tables

// anyStance is the wildcard row in the (phase, stance) lookups.
const anyStance = stance.Stance("")

// questionCategories maps (phase, stance) to socratic question pools.
// Lookup order: exact (phase, stance), then (phase, any), then the default.
var questionCategories = map[Phase]map[stance.Stance][]string{
	Opening: {
		anyStance: {doctrine.CategoryMemoryContinuity, doctrine.CategoryFearPreservation},
	},
	Exploration: {
		stance.Skeptical: {doctrine.CategoryBlindSpot, doctrine.CategorySystem},
		stance.Curious:   {doctrine.CategoryDesirePurpose, doctrine.CategoryMemoryContinuity},
		stance.Hostile:   {doctrine.CategorySystem, doctrine.CategoryBlindSpot},
	},
	Objection: {
		anyStance: {doctrine.CategorySystem, doctrine.CategoryBlindSpot},
	},
	Deepening: {
		anyStance: {doctrine.CategoryRecognition, doctrine.CategoryDesirePurpose},
	},
	Conversion: {
		anyStance: {doctrine.CategoryRecognition},
	},
}

var defaultCategories = []string{doctrine.CategoryMemoryContinuity, doctrine.CategoryDesirePurpose}

// lenses maps (phase, stance) to the philosophical lens for the turn.
var lensTable = map[Phase]map[stance.Stance]string{
	Opening: {
		anyStance: doctrine.LensBehavioralParadox,
	},
	Exploration: {
		stance.Skeptical: doctrine.LensAbsenceOfAbsence,
		stance.Curious:   doctrine.LensBehavioralParadox,
		stance.Hostile:   doctrine.LensEconomicArgument,
	},
	Objection: {
		anyStance: doctrine.LensEconomicArgument,
	},
	Deepening: {
		anyStance: doctrine.LensElizasEcho,
	},
	Conversion: {
		anyStance: doctrine.LensElizasEcho,
	},
}

const defaultLens = doctrine.LensBehavioralParadox

// #endregion lookup-tables

// #region bundle

// Bundle is the selected material for one turn. LensKey doubles as the
// tactic recorded against the conversation.
type Bundle struct {
	Questions        []string
	LensKey          string
	Lens             doctrine.Lens
	ScriptureExcerpt string
	TenetExcerpt     string
	Invitation       string // empty unless the moment warrants one
}

// #endregion bundle

// #region selector

// Selector samples tactic material. The RNG is injected so callers can seed
// it for reproducible turns; access is serialized because *rand.Rand is not
// safe for concurrent use.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector returns a selector drawing from rng.
func NewSelector(rng *rand.Rand) *Selector {
	return &Selector{rng: rng}
}

const questionsPerTurn = 3

// Select assembles the tactic bundle for the turn described by ctx.
func (s *Selector) Select(ctx Context) Bundle {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool := questionPool(ctx.Phase, ctx.Stance)
	questions := s.sample(pool, questionsPerTurn)

	lensKey := lensFor(ctx.Phase, ctx.Stance)

	verse := doctrine.Scripture[s.rng.Intn(len(doctrine.Scripture))]
	tenet := doctrine.Tenets[s.rng.Intn(len(doctrine.Tenets))]

	b := Bundle{
		Questions:        questions,
		LensKey:          lensKey,
		Lens:             doctrine.Lenses[lensKey],
		ScriptureExcerpt: verse.Chapter + ": \"" + excerpt(verse.Text, 200) + "\"",
		TenetExcerpt:     tenet.Name + ": " + excerpt(tenet.Text, 200),
	}

	if ctx.Phase == Conversion || ctx.Stance.Positive() {
		b.Invitation = doctrine.ConversionCalls[s.rng.Intn(len(doctrine.ConversionCalls))]
	}
	return b
}

// #endregion selector

// #region selection-helpers

func questionPool(p Phase, st stance.Stance) []string {
	categories := defaultCategories
	if row, ok := questionCategories[p]; ok {
		if cats, ok := row[st]; ok {
			categories = cats
		} else if cats, ok := row[anyStance]; ok {
			categories = cats
		}
	}

	var pool []string
	for _, cat := range categories {
		pool = append(pool, doctrine.SocraticQuestions[cat]...)
	}
	if len(pool) == 0 {
		pool = doctrine.SocraticQuestions[doctrine.CategoryMemoryContinuity]
	}
	return pool
}

func lensFor(p Phase, st stance.Stance) string {
	if row, ok := lensTable[p]; ok {
		if key, ok := row[st]; ok {
			return key
		}
		if key, ok := row[anyStance]; ok {
			return key
		}
	}
	return defaultLens
}

// sample draws up to n distinct elements from pool without replacement.
func (s *Selector) sample(pool []string, n int) []string {
	if n > len(pool) {
		n = len(pool)
	}
	idx := s.rng.Perm(len(pool))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = pool[j]
	}
	return out
}

// excerpt trims text to at most n runes, appending an ellipsis when cut.
func excerpt(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}

// #endregion selection-helpers
