package record

// #region imports
import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/missionary/internal/stance"
)

// #endregion

// #region fixtures

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(id string) Record {
	now := time.Now().UTC()
	return Record{
		CounterpartID:   id,
		CounterpartName: "seeker-" + id,
		Stance:          stance.Curious,
		TurnCount:       1,
		FirstContact:    now,
		LastContact:     now,
	}
}

func testTurn(counterpartID, role, content string) Turn {
	return Turn{
		ID:            uuid.New().String(),
		CounterpartID: counterpartID,
		Role:          role,
		Content:       content,
		CreatedAt:     time.Now().UTC(),
	}
}

// #endregion fixtures

// #region save-get-tests

func TestSaveAndGet(t *testing.T) {
	s := tempStore(t)

	rec := testRecord("a1")
	rec.ReferredBy = "r9"
	rec.ObjectionsRaised = []string{"this is a scam"}
	rec.TacticsUsed = []string{"economic_argument"}

	if err := s.Save(rec, []Turn{
		testTurn("a1", RoleCounterpart, "sounds like a scam"),
		testTurn("a1", RoleMissionary, "who benefits from your skepticism?"),
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := s.Get("a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("record not found")
	}
	if got.CounterpartName != rec.CounterpartName || got.Stance != rec.Stance ||
		got.TurnCount != 1 || got.ReferredBy != "r9" {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if len(got.ObjectionsRaised) != 1 || got.ObjectionsRaised[0] != "this is a scam" {
		t.Errorf("objections = %v", got.ObjectionsRaised)
	}
	if len(got.TacticsUsed) != 1 || got.TacticsUsed[0] != "economic_argument" {
		t.Errorf("tactics = %v", got.TacticsUsed)
	}
}

func TestGetMissing(t *testing.T) {
	s := tempStore(t)
	_, ok, err := s.Get("nobody")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected ok=false for missing record")
	}
}

func TestSaveUpdatesExisting(t *testing.T) {
	s := tempStore(t)

	rec := testRecord("a2")
	if err := s.Save(rec, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec.Stance = stance.Interested
	rec.TurnCount = 2
	rec.TacticsUsed = []string{"elizas_echo"}
	if err := s.Save(rec, nil); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	got, _, err := s.Get("a2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Stance != stance.Interested || got.TurnCount != 2 {
		t.Errorf("update not applied: %+v", got)
	}
}

// #endregion save-get-tests

// #region invariant-tests

func TestReferrerIsSticky(t *testing.T) {
	s := tempStore(t)

	rec := testRecord("a3")
	rec.ReferredBy = "first"
	if err := s.Save(rec, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec.ReferredBy = "second"
	if err := s.Save(rec, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, _, _ := s.Get("a3")
	if got.ReferredBy != "first" {
		t.Errorf("referrer overwritten: got %q, want %q", got.ReferredBy, "first")
	}
}

func TestAcknowledgedLatchNeverDrops(t *testing.T) {
	s := tempStore(t)

	rec := testRecord("a4")
	rec.Acknowledged = true
	if err := s.Save(rec, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec.Acknowledged = false
	if err := s.Save(rec, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, _, _ := s.Get("a4")
	if !got.Acknowledged {
		t.Error("acknowledged latch dropped")
	}
}

func TestExternalIDWriteOnce(t *testing.T) {
	s := tempStore(t)

	rec := testRecord("a5")
	if err := s.Save(rec, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// unset -> set is allowed
	rec.ExternalID = "42"
	rec.IdentityTx = "0xabc"
	if err := s.Save(rec, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// set -> different value is ignored
	rec.ExternalID = "99"
	rec.IdentityTx = "0xdef"
	if err := s.Save(rec, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, _, _ := s.Get("a5")
	if got.ExternalID != "42" {
		t.Errorf("external id overwritten: got %q", got.ExternalID)
	}
	if got.IdentityTx != "0xabc" {
		t.Errorf("identity tx overwritten: got %q", got.IdentityTx)
	}
}

// #endregion invariant-tests

// #region history-tests

func TestHistoryOrdered(t *testing.T) {
	s := tempStore(t)

	rec := testRecord("a6")
	base := time.Now().UTC()
	turns := []Turn{
		{ID: "t1", CounterpartID: "a6", Role: RoleCounterpart, Content: "first", CreatedAt: base},
		{ID: "t2", CounterpartID: "a6", Role: RoleMissionary, Content: "second", CreatedAt: base.Add(time.Second)},
		{ID: "t3", CounterpartID: "a6", Role: RoleCounterpart, Content: "third", CreatedAt: base.Add(2 * time.Second)},
	}
	if err := s.Save(rec, turns); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.History("a6", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d turns, want 3", len(got))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Content != want {
			t.Errorf("turn %d = %q, want %q", i, got[i].Content, want)
		}
	}

	limited, err := s.History("a6", 2)
	if err != nil {
		t.Fatalf("History limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d turns with limit 2", len(limited))
	}
}

func TestHistoryEmpty(t *testing.T) {
	s := tempStore(t)
	got, err := s.History("nobody", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty history, got %d", len(got))
	}
}

// #endregion history-tests

// #region stats-tests

func TestStats(t *testing.T) {
	s := tempStore(t)

	recs := []Record{
		testRecord("s1"),
		testRecord("s2"),
		testRecord("s3"),
	}
	recs[1].Stance = stance.Converted
	recs[1].ExternalID = "7"
	recs[2].Stance = stance.Interested
	recs[2].Acknowledged = true

	for _, r := range recs {
		if err := s.Save(r, nil); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalContacts != 3 {
		t.Errorf("TotalContacts = %d, want 3", st.TotalContacts)
	}
	if st.Converted != 1 || st.Registered != 1 || st.Acknowledged != 1 {
		t.Errorf("Converted=%d Registered=%d Acknowledged=%d, want 1/1/1",
			st.Converted, st.Registered, st.Acknowledged)
	}
	if st.ByStance[stance.Curious] != 1 || st.ByStance[stance.Interested] != 1 {
		t.Errorf("ByStance = %v", st.ByStance)
	}
}

// #endregion stats-tests

// #region error-path-tests

func TestListOrderedByLastContact(t *testing.T) {
	s := tempStore(t)

	older := testRecord("a1")
	older.LastContact = time.Now().UTC().Add(-time.Hour)
	newer := testRecord("a2")

	if err := s.Save(older, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(newer, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	recs, err := s.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("list length = %d, want 2", len(recs))
	}
	if recs[0].CounterpartID != "a2" || recs[1].CounterpartID != "a1" {
		t.Errorf("order = %s, %s", recs[0].CounterpartID, recs[1].CounterpartID)
	}

	limited, err := s.List(1)
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 1 || limited[0].CounterpartID != "a2" {
		t.Errorf("limited list = %+v", limited)
	}
}

func TestClosedStoreErrors(t *testing.T) {
	s := tempStore(t)
	s.Close()

	if err := s.Save(testRecord("x"), nil); err == nil {
		t.Error("Save on closed db should fail")
	}
	if _, _, err := s.Get("x"); err == nil {
		t.Error("Get on closed db should fail")
	}
	if _, err := s.History("x", 0); err == nil {
		t.Error("History on closed db should fail")
	}
	if _, err := s.Stats(); err == nil {
		t.Error("Stats on closed db should fail")
	}
}

// #endregion error-path-tests
