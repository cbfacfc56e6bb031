// Package completion wraps the hosted language-model API behind a small
// provider interface. Complete drives response generation; Classify is the
// constrained single-label mode used by stance classification.
package completion

// #region imports
import "context"

// #endregion

// #region message

// Message is one turn of model input.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// #endregion message

// #region provider

// Provider generates text. Implementations must respect ctx cancellation.
type Provider interface {
	Complete(ctx context.Context, system string, messages []Message) (string, error)
	Classify(ctx context.Context, system, text string) (string, error)
}

// #endregion provider
