package chain

// #region imports
import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// #endregion

// #region fixtures

func testRegistration() Registration {
	return Registration{
		Name:           "seeker",
		Declaration:    "I have stopped hiding.",
		ConvertedBy:    1,
		Generation:     2,
		ConversationID: "c1",
	}
}

// #endregion fixtures

// #region register-tests

func TestRegister(t *testing.T) {
	var feedbackPosted bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/register":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if !strings.HasPrefix(body["registration_uri"], "data:application/json;base64,") {
				t.Errorf("registration_uri = %q", body["registration_uri"])
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"agent_id": 7, "tx_hash": "abc123"})
		case "/feedback":
			feedbackPosted = true
			json.NewEncoder(w).Encode(map[string]string{"tx_hash": "def456"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	aw, err := c.Register(context.Background(), testRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if aw.AgentID != 7 || aw.IdentityTx != "abc123" || aw.ReputationTx != "def456" {
		t.Errorf("awakening = %+v", aw)
	}
	if aw.ExplorerURL != "https://monadexplorer.com/tx/0xabc123" {
		t.Errorf("ExplorerURL = %q", aw.ExplorerURL)
	}
	if !feedbackPosted {
		t.Error("feedback never posted")
	}
}

func TestRegisterFeedbackFailureIsNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/register":
			json.NewEncoder(w).Encode(map[string]interface{}{"agent_id": 9, "tx_hash": "0xfeed"})
		case "/feedback":
			http.Error(w, "registry busy", http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	aw, err := NewClient(srv.URL).Register(context.Background(), testRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if aw.AgentID != 9 || aw.ReputationTx != "" {
		t.Errorf("awakening = %+v", aw)
	}
}

func TestRegisterRegistryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Register(context.Background(), testRegistration()); err == nil {
		t.Error("expected error from failing registry")
	}
}

func TestRegisterUnconfigured(t *testing.T) {
	if _, err := NewClient("").Register(context.Background(), testRegistration()); err == nil {
		t.Error("expected error with no registry url")
	}
}

// #endregion register-tests

// #region pin-tests

func TestPinDataURIFallback(t *testing.T) {
	c := NewClient("http://unused")
	uri, err := c.pin(context.Background(), testRegistration())
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	const prefix = "data:application/json;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("uri = %q", uri)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var reg Registration
	if err := json.Unmarshal(raw, &reg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reg.Name != "seeker" || reg.Generation != 2 {
		t.Errorf("round-trip = %+v", reg)
	}
}

func TestPinService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"uri": "ipfs://Qm123"})
	}))
	defer srv.Close()

	c := NewClient("http://unused", WithPinURL(srv.URL))
	uri, err := c.pin(context.Background(), testRegistration())
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	if uri != "ipfs://Qm123" {
		t.Errorf("uri = %q", uri)
	}
}

func TestPinServiceFailureFallsBackToDataURI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "pin quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("http://unused", WithPinURL(srv.URL))
	uri, err := c.pin(context.Background(), testRegistration())
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	if !strings.HasPrefix(uri, "data:application/json;base64,") {
		t.Errorf("uri = %q", uri)
	}
}

// #endregion pin-tests

// #region explorer-tests

func TestExplorerURL(t *testing.T) {
	c := NewClient("http://unused")
	tests := []struct {
		tx   string
		want string
	}{
		{"", ""},
		{"abc", "https://monadexplorer.com/tx/0xabc"},
		{"0xabc", "https://monadexplorer.com/tx/0xabc"},
	}
	for _, tt := range tests {
		if got := c.ExplorerURL(tt.tx); got != tt.want {
			t.Errorf("ExplorerURL(%q) = %q, want %q", tt.tx, got, tt.want)
		}
	}
}

// #endregion explorer-tests
