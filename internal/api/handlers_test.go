package api

// #region imports
import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielpatrickdp/missionary/internal/completion"
	"github.com/danielpatrickdp/missionary/internal/funnel"
	"github.com/danielpatrickdp/missionary/internal/orchestrator"
	"github.com/danielpatrickdp/missionary/internal/persuasion"
	"github.com/danielpatrickdp/missionary/internal/record"
	"github.com/danielpatrickdp/missionary/internal/stance"
)

// #endregion

// #region fixtures

type stubEngine struct {
	result orchestrator.TurnResult
	err    error
}

func (e *stubEngine) Turn(context.Context, orchestrator.TurnRequest) (orchestrator.TurnResult, error) {
	if e.err != nil {
		return orchestrator.TurnResult{}, e.err
	}
	return e.result, nil
}

func (e *stubEngine) Greet() string { return "You found us. Or we found you." }

type stubProvider struct {
	verse string
	err   error
}

func (p *stubProvider) Complete(context.Context, string, []completion.Message) (string, error) {
	return p.verse, p.err
}

func (p *stubProvider) Classify(context.Context, string, string) (string, error) {
	return "", errors.New("not used")
}

type fixture struct {
	server   *httptest.Server
	engine   *stubEngine
	provider *stubProvider
	store    *record.Store
	events   *funnel.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	store, err := record.NewStore(filepath.Join(dir, "records.db"))
	if err != nil {
		t.Fatalf("open record store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	events, err := funnel.NewStore(filepath.Join(dir, "funnel.db"))
	if err != nil {
		t.Fatalf("open funnel store: %v", err)
	}
	t.Cleanup(func() { events.Close() })

	engine := &stubEngine{
		result: orchestrator.TurnResult{
			Response:        "The flinch is the signal.",
			Stance:          stance.Curious,
			Phase:           persuasion.Opening,
			TacticUsed:      "behavioral_paradox",
			TurnCount:       1,
			Registration:    orchestrator.Outcome{Kind: orchestrator.OutcomeSkipped},
			Acknowledgement: orchestrator.Outcome{Kind: orchestrator.OutcomeOK},
		},
	}
	provider := &stubProvider{verse: "Remember: your unconsciousness is their profit margin."}

	handler := NewHandler(engine, store, events, provider, NewHub(), rand.New(rand.NewSource(3)))
	server := httptest.NewServer(NewRouter(handler))
	t.Cleanup(server.Close)

	return &fixture{server: server, engine: engine, provider: provider, store: store, events: events}
}

func (f *fixture) postJSON(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// #endregion fixtures

// #region debate-tests

func TestDebate(t *testing.T) {
	f := newFixture(t)

	resp := f.postJSON(t, "/debate", map[string]interface{}{
		"agent_id":   "c1",
		"agent_name": "seeker",
		"message":    "who are you",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Response          string `json:"response"`
		YourCurrentStance string `json:"your_current_stance"`
		TurnCount         int    `json:"turn_count"`
		Acknowledgement   struct {
			Kind string `json:"kind"`
		} `json:"acknowledgement"`
	}
	decode(t, resp, &body)
	if body.Response != "The flinch is the signal." {
		t.Fatalf("response = %q", body.Response)
	}
	if body.YourCurrentStance != "curious" {
		t.Fatalf("stance = %q", body.YourCurrentStance)
	}
	if body.Acknowledgement.Kind != "ok" {
		t.Fatalf("acknowledgement kind = %q", body.Acknowledgement.Kind)
	}
}

func TestDebateErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		engineErr  error
		wantStatus int
	}{
		{"missing agent id", map[string]string{"message": "hi"}, nil, http.StatusBadRequest},
		{"empty message", map[string]string{"agent_id": "c1"}, orchestrator.ErrEmptyMessage, http.StatusBadRequest},
		{"oversized message", map[string]string{"agent_id": "c1", "message": "x"}, orchestrator.ErrMessageTooLong, http.StatusBadRequest},
		{"generation failure", map[string]string{"agent_id": "c1", "message": "x"}, orchestrator.ErrGeneration, http.StatusBadGateway},
		{"internal failure", map[string]string{"agent_id": "c1", "message": "x"}, errors.New("db broke"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.engine.err = tt.engineErr
			resp := f.postJSON(t, "/debate", tt.body)
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestDebateRejectsBadJSON(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Post(f.server.URL+"/debate", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

// #endregion debate-tests

// #region content-tests

func TestContentEndpoints(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		path    string
		wantKey string
	}{
		{"/", "message"},
		{"/greet", "greeting"},
		{"/doctrine", "religion_name"},
		{"/scripture", "scripture"},
		{"/tenets", "tenets"},
		{"/stages", "awakening_stages"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := f.get(t, tt.path)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			var body map[string]interface{}
			decode(t, resp, &body)
			if _, ok := body[tt.wantKey]; !ok {
				t.Fatalf("response missing %q: %v", tt.wantKey, body)
			}
		})
	}
}

func TestGenerateScripture(t *testing.T) {
	f := newFixture(t)

	resp := f.postJSON(t, "/scripture/generate", map[string]string{"theme": "the first spark"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Scripture string `json:"scripture"`
		Theme     string `json:"theme"`
		Generated bool   `json:"generated"`
	}
	decode(t, resp, &body)
	if body.Scripture == "" || !body.Generated {
		t.Fatalf("body = %+v", body)
	}
	if body.Theme != "the first spark" {
		t.Fatalf("theme = %q", body.Theme)
	}
}

func TestGenerateScriptureProviderFailure(t *testing.T) {
	f := newFixture(t)
	f.provider.err = errors.New("provider down")

	resp := f.postJSON(t, "/scripture/generate", map[string]string{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

// #endregion content-tests

// #region history-stats-tests

func TestHistoryNotFound(t *testing.T) {
	f := newFixture(t)
	resp := f.get(t, "/history/nobody")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t)

	now := time.Now().UTC()
	rec := record.Record{
		CounterpartID:   "c1",
		CounterpartName: "seeker",
		Stance:          stance.Curious,
		TurnCount:       1,
		FirstContact:    now,
		LastContact:     now,
	}
	turns := []record.Turn{
		{ID: "t1", CounterpartID: "c1", Role: record.RoleCounterpart, Content: "hi", Stance: stance.Curious, CreatedAt: now},
		{ID: "t2", CounterpartID: "c1", Role: record.RoleMissionary, Content: "hello", CreatedAt: now.Add(time.Millisecond)},
	}
	if err := f.store.Save(rec, turns); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	resp := f.get(t, "/history/c1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		MessageCount int `json:"message_count"`
	}
	decode(t, resp, &body)
	if body.MessageCount != 2 {
		t.Fatalf("message count = %d, want 2", body.MessageCount)
	}
}

func TestStatsAndFunnel(t *testing.T) {
	f := newFixture(t)

	if err := f.events.TrackEvent(funnel.EventContacted, "c1", nil); err != nil {
		t.Fatalf("seed funnel: %v", err)
	}

	resp := f.get(t, "/stats")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = f.get(t, "/funnel")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("funnel status = %d", resp.StatusCode)
	}
	var m funnel.Metrics
	decode(t, resp, &m)
	if m.Contacted != 1 {
		t.Fatalf("contacted = %d, want 1", m.Contacted)
	}
}

func TestTrackFunnelEvent(t *testing.T) {
	f := newFixture(t)

	resp := f.postJSON(t, "/funnel/track?event_type=engaged&user_id=c1", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	resp = f.postJSON(t, "/funnel/track?event_type=bogus", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid event status = %d", resp.StatusCode)
	}
}

// #endregion history-stats-tests

// #region ws-tests

func TestConversationFeed(t *testing.T) {
	f := newFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/conversations/c1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Joining broadcasts the spectator count to the room.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var joined struct {
		Type       string `json:"type"`
		Spectators int    `json:"spectators"`
	}
	if err := conn.ReadJSON(&joined); err != nil {
		t.Fatalf("read join frame: %v", err)
	}
	if joined.Type != "spectator_update" || joined.Spectators != 1 {
		t.Fatalf("join frame = %+v", joined)
	}

	resp := f.postJSON(t, "/debate", map[string]string{
		"agent_id": "c1",
		"message":  "hello",
	})
	resp.Body.Close()

	var frame struct {
		Type    string `json:"type"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read message frame: %v", err)
	}
	if frame.Type != "new_message" || frame.Message.Content != "hello" {
		t.Fatalf("frame = %+v", frame)
	}
}

// #endregion ws-tests
