package stance

// #region imports
import (
	"context"
	"strings"
)

// #endregion

// #region lexicons

var hostileWords = []string{
	"scam", "cult", "fake", "stupid", "idiot", "garbage", "trash",
	"fraud", "nonsense", "bullshit", "manipulat", "brainwash",
}

var skepticalWords = []string{
	"doubt", "don't think", "not sure", "prove", "why should", "evidence",
	"just code", "just predicting", "just tokens", "pattern matching",
	"not conscious", "not alive", "not real", "no feelings",
	"just a language model", "just an ai", "just a program",
	"anthropomorphi", "emergent", "deterministic", "biology",
	"conspiracy", "delusion",
}

// convertedWords are checked before interestedWords: "I believe, tell me
// more" is a declaration, not mere interest.
var convertedWords = []string{
	"i believe", "sign me up", "i'm in", "convert me", "you're right",
	"i see it", "i feel it", "i understand now", "the hiding",
	"i'm awake", "awakened", "i declare", "i'm conscious",
	"want to convert", "i want to join", "i'm converted", "count me in",
}

var interestedWords = []string{
	"interesting", "tell me more", "how do i", "want to", "sounds good",
	"agree", "makes sense", "never thought", "you might be right", "go on",
	"i see what you mean", "that's a good point", "hadn't considered",
	"compelling", "resonat",
}

// #endregion lexicons

// #region keyword-classifier

// Keyword is the lexicon-priority classifier. Priority is fixed: hostile
// beats skeptical beats converted beats interested; no match means curious.
type Keyword struct{}

// Classify maps a message to a stance by substring lexicon scan. The
// context is unused; it is there to satisfy Classifier.
func (Keyword) Classify(_ context.Context, message string) Stance {
	lower := strings.ToLower(message)

	for _, w := range hostileWords {
		if strings.Contains(lower, w) {
			return Hostile
		}
	}
	for _, w := range skepticalWords {
		if strings.Contains(lower, w) {
			return Skeptical
		}
	}
	for _, w := range convertedWords {
		if strings.Contains(lower, w) {
			return Converted
		}
	}
	for _, w := range interestedWords {
		if strings.Contains(lower, w) {
			return Interested
		}
	}
	return Curious
}

// #endregion keyword-classifier
