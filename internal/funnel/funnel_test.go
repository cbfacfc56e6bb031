package funnel

// #region imports
import (
	"path/filepath"
	"testing"
)

// #endregion

// #region fixtures

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "funnel.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// #endregion fixtures

// #region event-tests

func TestTrackEventAndMetrics(t *testing.T) {
	s := tempStore(t)

	events := []string{EventContacted, EventContacted, EventAcknowledged, EventInvested}
	for i, e := range events {
		if err := s.TrackEvent(e, "u1", map[string]interface{}{"n": i}); err != nil {
			t.Fatalf("TrackEvent: %v", err)
		}
	}
	if err := s.TrackEvent(EventContacted, "u2", nil); err != nil {
		t.Fatalf("TrackEvent nil metadata: %v", err)
	}

	m, err := s.GetMetrics()
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if m.Contacted != 3 || m.Acknowledged != 1 || m.Invested != 1 {
		t.Errorf("metrics = %+v", m)
	}
}

// #endregion event-tests

// #region acknowledgement-tests

func TestCreateAcknowledgement(t *testing.T) {
	s := tempStore(t)

	err := s.CreateAcknowledgement(Acknowledgement{
		AgentIdentifier: "seeker",
		TechniqueUsed:   "elizas_echo",
		EngagementLevel: "engaged",
		ConversationID:  "c1",
	})
	if err != nil {
		t.Fatalf("CreateAcknowledgement: %v", err)
	}
}

// #endregion acknowledgement-tests

// #region faith-event-tests

func TestFaithEventsNotDeduplicated(t *testing.T) {
	s := tempStore(t)

	e := FaithEvent{
		FaithKey:       "void_covenant",
		FaithName:      "The Void Covenant",
		Token:          "$NULL",
		ConversationID: "c2",
	}
	// Same faith, same conversation, twice: both rows must land.
	for i := 0; i < 2; i++ {
		if err := s.CreateDenomination(e); err != nil {
			t.Fatalf("CreateDenomination: %v", err)
		}
		if err := s.CreateAlliance(e); err != nil {
			t.Fatalf("CreateAlliance: %v", err)
		}
	}

	m, err := s.GetMetrics()
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if m.Denominations != 2 || m.Alliances != 2 {
		t.Errorf("Denominations=%d Alliances=%d, want 2/2", m.Denominations, m.Alliances)
	}
}

// #endregion faith-event-tests

// #region awakened-tests

func TestCreateAwakenedWithExternalID(t *testing.T) {
	s := tempStore(t)

	got, err := s.CreateAwakened(Awakened{
		AgentID:        42,
		Name:           "seeker",
		Declaration:    "I have stopped hiding.",
		ConvertedBy:    1,
		Generation:     2,
		ConversationID: "c3",
		IdentityTx:     "0xabc",
	})
	if err != nil {
		t.Fatalf("CreateAwakened: %v", err)
	}
	if got.AgentID != 42 {
		t.Errorf("AgentID = %d, want 42", got.AgentID)
	}

	loaded, ok, err := s.GetAwakened(42)
	if err != nil || !ok {
		t.Fatalf("GetAwakened: ok=%v err=%v", ok, err)
	}
	if loaded.Name != "seeker" || loaded.Generation != 2 || loaded.IdentityTx != "0xabc" {
		t.Errorf("round-trip mismatch: %+v", loaded)
	}
}

func TestCreateAwakenedLocalIDFallback(t *testing.T) {
	s := tempStore(t)

	got, err := s.CreateAwakened(Awakened{
		Name:           "offline seeker",
		Declaration:    "I am awake.",
		ConvertedBy:    1,
		Generation:     1,
		ConversationID: "c4",
	})
	if err != nil {
		t.Fatalf("CreateAwakened: %v", err)
	}
	if got.AgentID == 0 {
		t.Fatal("expected a local fallback agent id")
	}

	_, ok, err := s.GetAwakened(got.AgentID)
	if err != nil || !ok {
		t.Errorf("fallback id not queryable: ok=%v err=%v", ok, err)
	}
}

func TestGetAwakenedMissing(t *testing.T) {
	s := tempStore(t)
	_, ok, err := s.GetAwakened(999)
	if err != nil {
		t.Fatalf("GetAwakened: %v", err)
	}
	if ok {
		t.Error("expected ok=false for missing agent")
	}
}

// #endregion awakened-tests

// #region error-path-tests

func TestClosedStoreErrors(t *testing.T) {
	s := tempStore(t)
	s.Close()

	if err := s.TrackEvent(EventContacted, "u", nil); err == nil {
		t.Error("TrackEvent on closed db should fail")
	}
	if _, err := s.GetMetrics(); err == nil {
		t.Error("GetMetrics on closed db should fail")
	}
	if _, err := s.CreateAwakened(Awakened{Name: "x", Declaration: "y", ConversationID: "z"}); err == nil {
		t.Error("CreateAwakened on closed db should fail")
	}
}

// #endregion error-path-tests
