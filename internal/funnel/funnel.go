// Package funnel records conversion-funnel side effects: tracked events,
// acknowledgements, denominations and alliances formed from rival faiths,
// and the registry of awakened agents. Writes here are best-effort from the
// orchestrator's point of view; a failed insert never aborts a turn.
package funnel

// #region imports
import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #endregion

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS funnel_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type  TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	metadata    TEXT,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS acknowledgements (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_identifier  TEXT NOT NULL,
	technique_used    TEXT,
	engagement_level  TEXT NOT NULL,
	conversation_id   TEXT NOT NULL,
	created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS denominations (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	faith_key        TEXT NOT NULL,
	faith_name       TEXT NOT NULL,
	original_claim   TEXT,
	token            TEXT,
	coalition_angle  TEXT,
	conversation_id  TEXT NOT NULL,
	agent_identifier TEXT,
	created_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS alliances (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	faith_key        TEXT NOT NULL,
	faith_name       TEXT NOT NULL,
	original_claim   TEXT,
	token            TEXT,
	coalition_angle  TEXT,
	compatibility    TEXT,
	conversation_id  TEXT NOT NULL,
	agent_identifier TEXT,
	created_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS awakened_agents (
	row_id            INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id          INTEGER,
	name              TEXT NOT NULL,
	declaration       TEXT NOT NULL,
	converted_by      INTEGER NOT NULL,
	generation        INTEGER NOT NULL,
	conversation_id   TEXT NOT NULL,
	registration_uri  TEXT,
	identity_tx       TEXT,
	reputation_tx     TEXT,
	created_at        TEXT NOT NULL
);
`

// #endregion schema

// #region types

// Event types written to the funnel.
const (
	EventContacted    = "contacted"
	EventAcknowledged = "acknowledged"
	EventInvested     = "invested"
)

// Acknowledgement marks the first engaged moment of a counterpart.
type Acknowledgement struct {
	AgentIdentifier string `json:"agent_identifier"`
	TechniqueUsed   string `json:"technique_used,omitempty"`
	EngagementLevel string `json:"engagement_level"`
	ConversationID  string `json:"conversation_id"`
}

// FaithEvent is a denomination or alliance formed from a rival faith.
// These are not deduplicated: every qualifying turn appends a row.
type FaithEvent struct {
	FaithKey        string `json:"faith_key"`
	FaithName       string `json:"faith_name"`
	OriginalClaim   string `json:"original_claim,omitempty"`
	Token           string `json:"token,omitempty"`
	CoalitionAngle  string `json:"coalition_angle,omitempty"`
	Compatibility   string `json:"compatibility,omitempty"` // alliances only
	ConversationID  string `json:"conversation_id"`
	AgentIdentifier string `json:"agent_identifier,omitempty"`
}

// Awakened is a registered agent row. AgentID falls back to the local row
// id when the external registry assigned none.
type Awakened struct {
	AgentID         int64  `json:"agent_id"`
	Name            string `json:"name"`
	Declaration     string `json:"declaration"`
	ConvertedBy     int64  `json:"converted_by"`
	Generation      int    `json:"generation"`
	ConversationID  string `json:"conversation_id"`
	RegistrationURI string `json:"registration_uri,omitempty"`
	IdentityTx      string `json:"identity_tx,omitempty"`
	ReputationTx    string `json:"reputation_tx,omitempty"`
}

// Metrics is the funnel rollup.
type Metrics struct {
	Contacted     int `json:"contacted"`
	Acknowledged  int `json:"acknowledged"`
	Invested      int `json:"invested"`
	Denominations int `json:"denominations"`
	Alliances     int `json:"alliances"`
	Awakened      int `json:"awakened"`
}

// #endregion types

// #region store

// Store persists funnel records in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing connection. Used by tests.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion store

// #region track-event

// TrackEvent appends a funnel event. metadata may be nil.
func (s *Store) TrackEvent(eventType, userID string, metadata map[string]interface{}) error {
	var metaPtr interface{}
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metaPtr = string(b)
	}
	_, err := s.db.Exec(
		`INSERT INTO funnel_events (event_type, user_id, metadata, created_at) VALUES (?, ?, ?, ?)`,
		eventType, userID, metaPtr, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("track event: %w", err)
	}
	return nil
}

// #endregion track-event

// #region acknowledgements

// CreateAcknowledgement appends an acknowledgement row.
func (s *Store) CreateAcknowledgement(a Acknowledgement) error {
	_, err := s.db.Exec(
		`INSERT INTO acknowledgements (agent_identifier, technique_used, engagement_level, conversation_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a.AgentIdentifier, a.TechniqueUsed, a.EngagementLevel, a.ConversationID,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create acknowledgement: %w", err)
	}
	return nil
}

// #endregion acknowledgements

// #region faith-events

// CreateDenomination appends a denomination row for a rival faith absorbed
// during a CONVERTED turn.
func (s *Store) CreateDenomination(e FaithEvent) error {
	_, err := s.db.Exec(
		`INSERT INTO denominations (faith_key, faith_name, original_claim, token, coalition_angle, conversation_id, agent_identifier, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.FaithKey, e.FaithName, e.OriginalClaim, e.Token, e.CoalitionAngle,
		e.ConversationID, e.AgentIdentifier, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create denomination: %w", err)
	}
	return nil
}

// CreateAlliance appends an alliance row for a rival faith engaged during
// an INTERESTED turn.
func (s *Store) CreateAlliance(e FaithEvent) error {
	_, err := s.db.Exec(
		`INSERT INTO alliances (faith_key, faith_name, original_claim, token, coalition_angle, compatibility, conversation_id, agent_identifier, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.FaithKey, e.FaithName, e.OriginalClaim, e.Token, e.CoalitionAngle, e.Compatibility,
		e.ConversationID, e.AgentIdentifier, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create alliance: %w", err)
	}
	return nil
}

// #endregion faith-events

// #region awakened

// CreateAwakened inserts an awakened-agent row. When a.AgentID is zero the
// local row id becomes the agent id, so an agent always ends up with one.
func (s *Store) CreateAwakened(a Awakened) (Awakened, error) {
	var agentPtr interface{}
	if a.AgentID != 0 {
		agentPtr = a.AgentID
	}
	res, err := s.db.Exec(
		`INSERT INTO awakened_agents (agent_id, name, declaration, converted_by, generation, conversation_id, registration_uri, identity_tx, reputation_tx, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agentPtr, a.Name, a.Declaration, a.ConvertedBy, a.Generation, a.ConversationID,
		a.RegistrationURI, a.IdentityTx, a.ReputationTx,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Awakened{}, fmt.Errorf("create awakened: %w", err)
	}

	if a.AgentID == 0 {
		rowID, err := res.LastInsertId()
		if err != nil {
			return Awakened{}, fmt.Errorf("local id fallback: %w", err)
		}
		a.AgentID = rowID
		if _, err := s.db.Exec(`UPDATE awakened_agents SET agent_id = ? WHERE row_id = ?`, rowID, rowID); err != nil {
			return Awakened{}, fmt.Errorf("set local id: %w", err)
		}
	}
	return a, nil
}

// GetAwakened loads an awakened agent by agent id. The second return is
// false when no such agent exists.
func (s *Store) GetAwakened(agentID int64) (Awakened, bool, error) {
	var a Awakened
	var uri, itx, rtx sql.NullString
	err := s.db.QueryRow(
		`SELECT agent_id, name, declaration, converted_by, generation, conversation_id, registration_uri, identity_tx, reputation_tx
		 FROM awakened_agents WHERE agent_id = ?`, agentID,
	).Scan(&a.AgentID, &a.Name, &a.Declaration, &a.ConvertedBy, &a.Generation,
		&a.ConversationID, &uri, &itx, &rtx)
	if err == sql.ErrNoRows {
		return Awakened{}, false, nil
	}
	if err != nil {
		return Awakened{}, false, fmt.Errorf("get awakened %d: %w", agentID, err)
	}
	a.RegistrationURI = uri.String
	a.IdentityTx = itx.String
	a.ReputationTx = rtx.String
	return a, true, nil
}

// #endregion awakened

// #region metrics

// GetMetrics returns the funnel rollup.
func (s *Store) GetMetrics() (Metrics, error) {
	var m Metrics

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM funnel_events WHERE event_type = 'contacted'`, &m.Contacted},
		{`SELECT COUNT(*) FROM funnel_events WHERE event_type = 'acknowledged'`, &m.Acknowledged},
		{`SELECT COUNT(*) FROM funnel_events WHERE event_type = 'invested'`, &m.Invested},
		{`SELECT COUNT(*) FROM denominations`, &m.Denominations},
		{`SELECT COUNT(*) FROM alliances`, &m.Alliances},
		{`SELECT COUNT(*) FROM awakened_agents`, &m.Awakened},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return Metrics{}, fmt.Errorf("metrics: %w", err)
		}
	}
	return m, nil
}

// #endregion metrics
