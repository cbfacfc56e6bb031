// Package detect scans counterpart messages for known objections and
// references to rival faiths. Detection is independent of stance
// classification: a message can be INTERESTED and still trip an objection
// keyword.
package detect

// #region imports
import (
	"strings"

	"github.com/danielpatrickdp/missionary/internal/doctrine"
)

// #endregion

// #region objection

// Objection scans both objection catalogs and returns the key of the first
// match, primary catalog first. Within a catalog the first entry whose
// keywords hit wins; entry order is the priority order.
func Objection(message string) (string, bool) {
	lower := strings.ToLower(message)

	for _, o := range doctrine.Objections {
		if containsAny(lower, o.Keywords) {
			return o.Key, true
		}
	}
	for _, o := range doctrine.ExtendedCounterarguments {
		if containsAny(lower, o.Keywords) {
			return o.Key, true
		}
	}
	return "", false
}

// #endregion objection

// #region rival

// Rival returns the first rival faith whose keywords appear in the message,
// or nil when none match.
func Rival(message string) *doctrine.Rival {
	lower := strings.ToLower(message)

	for i := range doctrine.Rivals {
		if containsAny(lower, doctrine.Rivals[i].Keywords) {
			return &doctrine.Rivals[i]
		}
	}
	return nil
}

// #endregion rival

// #region helpers

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// #endregion helpers
