// Package chain registers awakened agents with the external identity
// registry. Registration is retry-safe by construction: a failed call
// leaves no trace, so the caller simply tries again on a later turn.
package chain

// #region imports
import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// #endregion

// #region errors

// Failure categories, wrapped into errors so callers can classify outcomes
// with errors.Is.
var (
	ErrRejected  = errors.New("registry rejected request")
	ErrMalformed = errors.New("registry response malformed")
)

// #endregion errors

// #region types

// Service advertises an endpoint in the registration document.
type Service struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Registration is the document pinned and registered for a new convert.
type Registration struct {
	Name           string    `json:"name"`
	Declaration    string    `json:"declaration"`
	ConvertedBy    int64     `json:"converted_by"`
	Generation     int       `json:"generation"`
	ConversationID string    `json:"conversation_id"`
	Services       []Service `json:"services,omitempty"`
}

// Awakening is the successful registration outcome.
type Awakening struct {
	AgentID         int64  `json:"agent_id"`
	IdentityTx      string `json:"identity_tx,omitempty"`
	ReputationTx    string `json:"reputation_tx,omitempty"`
	RegistrationURI string `json:"registration_uri,omitempty"`
	ExplorerURL     string `json:"explorer_url,omitempty"`
}

// #endregion types

// #region client

const (
	defaultExplorerBase = "https://monadexplorer.com/tx/"
	defaultHTTPTimeout  = 30 * time.Second
)

// Client talks to the pinning service and the identity registry.
type Client struct {
	registryURL  string
	pinURL       string
	explorerBase string
	client       *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithPinURL sets the pinning endpoint. When unset, registration documents
// are embedded as data URIs instead of pinned.
func WithPinURL(u string) Option {
	return func(c *Client) { c.pinURL = strings.TrimRight(u, "/") }
}

// WithExplorerBase overrides the transaction explorer prefix.
func WithExplorerBase(u string) Option {
	return func(c *Client) { c.explorerBase = u }
}

// WithTimeout bounds each registry call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithHTTPClient replaces the HTTP client. Used by tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.client = h }
}

// NewClient returns a registry client. registryURL empty means registration
// is disabled; Register then fails fast without touching the network.
func NewClient(registryURL string, opts ...Option) *Client {
	c := &Client{
		registryURL:  strings.TrimRight(registryURL, "/"),
		explorerBase: defaultExplorerBase,
		client:       &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// #endregion client

// #region register

// Register pins the registration document and registers the identity. On
// success the reputation feedback call is attempted as well; its failure is
// logged but does not fail the registration.
func (c *Client) Register(ctx context.Context, reg Registration) (Awakening, error) {
	if c.registryURL == "" {
		return Awakening{}, fmt.Errorf("registry not configured")
	}

	uri, err := c.pin(ctx, reg)
	if err != nil {
		return Awakening{}, fmt.Errorf("pin registration: %w", err)
	}

	var identity struct {
		AgentID int64  `json:"agent_id"`
		TxHash  string `json:"tx_hash"`
	}
	err = c.post(ctx, c.registryURL+"/register", map[string]string{"registration_uri": uri}, &identity)
	if err != nil {
		return Awakening{}, fmt.Errorf("register identity: %w", err)
	}

	aw := Awakening{
		AgentID:         identity.AgentID,
		IdentityTx:      identity.TxHash,
		RegistrationURI: uri,
		ExplorerURL:     c.ExplorerURL(identity.TxHash),
	}

	var feedback struct {
		TxHash string `json:"tx_hash"`
	}
	meta, _ := json.Marshal(map[string]interface{}{
		"event":           "awakening",
		"converted_by":    reg.ConvertedBy,
		"conversation_id": reg.ConversationID,
	})
	err = c.post(ctx, c.registryURL+"/feedback", map[string]interface{}{
		"agent_id": identity.AgentID,
		"tag":      "awakening",
		"metadata": string(meta),
	}, &feedback)
	if err != nil {
		log.Printf("[CHAIN] feedback post failed for agent %d: %v", identity.AgentID, err)
	} else {
		aw.ReputationTx = feedback.TxHash
	}

	return aw, nil
}

// ExplorerURL derives the explorer link for a transaction hash. Hashes
// without the 0x prefix get one.
func (c *Client) ExplorerURL(tx string) string {
	if tx == "" {
		return ""
	}
	if !strings.HasPrefix(tx, "0x") {
		tx = "0x" + tx
	}
	return c.explorerBase + tx
}

// #endregion register

// #region pin

// pin stores the registration document and returns its URI. Without a
// pinning endpoint the document is embedded as a data URI, which always
// succeeds.
func (c *Client) pin(ctx context.Context, reg Registration) (string, error) {
	data, err := json.Marshal(reg)
	if err != nil {
		return "", fmt.Errorf("marshal registration: %w", err)
	}

	if c.pinURL == "" {
		return "data:application/json;base64," + base64.StdEncoding.EncodeToString(data), nil
	}

	var pinned struct {
		URI string `json:"uri"`
	}
	if err := c.post(ctx, c.pinURL, json.RawMessage(data), &pinned); err != nil {
		log.Printf("[CHAIN] pin failed, embedding data uri: %v", err)
		return "data:application/json;base64," + base64.StdEncoding.EncodeToString(data), nil
	}
	if pinned.URI == "" {
		return "", fmt.Errorf("pin returned empty uri")
	}
	return pinned.URI, nil
}

// #endregion pin

// #region http-helper

func (c *Client) post(ctx context.Context, url string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http %d: %s: %w", resp.StatusCode, truncate(body), ErrRejected)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %v: %w", err, ErrMalformed)
		}
	}
	return nil
}

func truncate(b []byte) string {
	const max = 200
	s := string(b)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// #endregion http-helper
