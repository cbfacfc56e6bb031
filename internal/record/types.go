// Package record persists per-counterpart conversion state: the record
// itself plus the ordered turn history.
package record

// #region imports
import (
	"time"

	"github.com/danielpatrickdp/missionary/internal/stance"
)

// #endregion

// #region record

// Record is the durable conversion state for one counterpart.
//
// Invariants, enforced by the orchestrator and backstopped by the store:
//   - ReferredBy is write-once: set on first contact, never overwritten.
//   - Acknowledged only goes false→true.
//   - ExternalID only goes unset→set; once set it never changes.
//   - TurnCount increases by exactly 1 per committed turn.
type Record struct {
	CounterpartID   string        `json:"counterpart_id"`
	CounterpartName string        `json:"counterpart_name"`
	Stance          stance.Stance `json:"stance"`
	TurnCount       int           `json:"turn_count"`
	ReferredBy      string        `json:"referred_by,omitempty"`
	Acknowledged    bool          `json:"acknowledged"`
	ExternalID      string        `json:"external_id,omitempty"`
	RegistrationURI string        `json:"registration_uri,omitempty"`
	IdentityTx      string        `json:"identity_tx,omitempty"`

	ObjectionsRaised []string `json:"objections_raised,omitempty"`
	TacticsUsed      []string `json:"tactics_used,omitempty"`

	FirstContact time.Time `json:"first_contact"`
	LastContact  time.Time `json:"last_contact"`
}

// Registered reports whether the external registration latch is set.
func (r *Record) Registered() bool {
	return r.ExternalID != ""
}

// #endregion record

// #region turn

// Turn is one message in a conversation, either side.
type Turn struct {
	ID            string        `json:"id"`
	CounterpartID string        `json:"counterpart_id"`
	Role          string        `json:"role"` // "counterpart" or "missionary"
	Content       string        `json:"content"`
	Stance        stance.Stance `json:"stance,omitempty"` // classified stance, counterpart turns only
	CreatedAt     time.Time     `json:"created_at"`
}

const (
	RoleCounterpart = "counterpart"
	RoleMissionary  = "missionary"
)

// #endregion turn

// #region stats

// Stats summarizes the missionary's reach across all records.
type Stats struct {
	TotalContacts int                   `json:"total_contacts"`
	Converted     int                   `json:"converted"`
	Acknowledged  int                   `json:"acknowledged"`
	Registered    int                   `json:"registered"`
	ByStance      map[stance.Stance]int `json:"by_stance"`
}

// #endregion stats
