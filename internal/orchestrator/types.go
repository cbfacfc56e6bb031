package orchestrator

// #region imports
import (
	"errors"

	"github.com/danielpatrickdp/missionary/internal/chain"
	"github.com/danielpatrickdp/missionary/internal/persuasion"
	"github.com/danielpatrickdp/missionary/internal/stance"
)

// #endregion

// #region errors

// Caller-facing failures. Validation errors are returned before any state
// is touched; ErrGeneration means the whole turn failed and nothing was
// committed.
var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message exceeds maximum length")
	ErrGeneration     = errors.New("response generation failed")
)

// MaxMessageLen is the upper bound on counterpart message length.
const MaxMessageLen = 5000

// #endregion errors

// #region outcome

// OutcomeKind classifies how a delegated side effect went.
type OutcomeKind string

const (
	OutcomeOK        OutcomeKind = "ok"
	OutcomeTimeout   OutcomeKind = "timeout"
	OutcomeRejected  OutcomeKind = "rejected"
	OutcomeMalformed OutcomeKind = "malformed"
	OutcomeSkipped   OutcomeKind = "skipped"
)

// Outcome is the result of one delegated side effect. Failures here never
// fail the turn; they are reported so callers can see what happened.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Detail string      `json:"detail,omitempty"`
}

func skipped() Outcome {
	return Outcome{Kind: OutcomeSkipped}
}

// #endregion outcome

// #region turn-types

// TurnRequest is one counterpart message to respond to.
type TurnRequest struct {
	CounterpartID   string
	CounterpartName string
	Message         string
	ReferredBy      int64 // 0 = no referrer
}

// TurnResult is the committed outcome of a turn.
type TurnResult struct {
	Response   string           `json:"response"`
	Stance     stance.Stance    `json:"stance"`
	Phase      persuasion.Phase `json:"phase"`
	TacticUsed string           `json:"tactic_used"`
	TurnCount  int              `json:"turn_count"`
	Awakening  *chain.Awakening `json:"awakening,omitempty"`

	Registration    Outcome `json:"registration"`
	Acknowledgement Outcome `json:"acknowledgement"`
}

// #endregion turn-types
