package record

// #region imports
import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/missionary/internal/stance"
	_ "modernc.org/sqlite"
)

// #endregion

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS conversion_records (
	counterpart_id    TEXT PRIMARY KEY,
	counterpart_name  TEXT NOT NULL,
	stance            TEXT NOT NULL,
	turn_count        INTEGER NOT NULL DEFAULT 0,
	referred_by       TEXT NOT NULL DEFAULT '',
	acknowledged      INTEGER NOT NULL DEFAULT 0,
	external_id       TEXT NOT NULL DEFAULT '',
	registration_uri  TEXT NOT NULL DEFAULT '',
	identity_tx       TEXT NOT NULL DEFAULT '',
	objections_json   TEXT NOT NULL DEFAULT '[]',
	tactics_json      TEXT NOT NULL DEFAULT '[]',
	first_contact     TEXT NOT NULL,
	last_contact      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation_turns (
	turn_id         TEXT PRIMARY KEY,
	counterpart_id  TEXT NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	stance          TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL,
	FOREIGN KEY (counterpart_id) REFERENCES conversion_records(counterpart_id)
);

CREATE INDEX IF NOT EXISTS idx_turns_counterpart
	ON conversation_turns(counterpart_id, created_at);
`

// #endregion schema

// #region store-struct
// Store persists conversion records and turn history in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
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

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region get
// Get loads the record for a counterpart. The second return is false when
// no record exists yet.
func (s *Store) Get(counterpartID string) (Record, bool, error) {
	var rec Record
	var ack int
	var objJSON, tacJSON, firstStr, lastStr, stanceStr string

	err := s.db.QueryRow(
		`SELECT counterpart_id, counterpart_name, stance, turn_count, referred_by,
		        acknowledged, external_id, registration_uri, identity_tx,
		        objections_json, tactics_json, first_contact, last_contact
		 FROM conversion_records WHERE counterpart_id = ?`, counterpartID,
	).Scan(&rec.CounterpartID, &rec.CounterpartName, &stanceStr, &rec.TurnCount,
		&rec.ReferredBy, &ack, &rec.ExternalID, &rec.RegistrationURI, &rec.IdentityTx,
		&objJSON, &tacJSON, &firstStr, &lastStr)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get record %s: %w", counterpartID, err)
	}

	rec.Stance = stance.Stance(stanceStr)
	rec.Acknowledged = ack != 0
	if err := json.Unmarshal([]byte(objJSON), &rec.ObjectionsRaised); err != nil {
		return Record{}, false, fmt.Errorf("unmarshal objections: %w", err)
	}
	if err := json.Unmarshal([]byte(tacJSON), &rec.TacticsUsed); err != nil {
		return Record{}, false, fmt.Errorf("unmarshal tactics: %w", err)
	}
	rec.FirstContact, _ = time.Parse(time.RFC3339Nano, firstStr)
	rec.LastContact, _ = time.Parse(time.RFC3339Nano, lastStr)

	return rec, true, nil
}

// List returns records ordered by most recent contact. limit <= 0 means
// no limit.
func (s *Store) List(limit int) ([]Record, error) {
	q := `SELECT counterpart_id FROM conversion_records ORDER BY last_contact DESC`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recs := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, found, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		if found {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

// #endregion get

// #region save
// Save upserts the record and appends turns in one transaction. The upsert
// backstops the monotonic invariants: an existing referrer or external id is
// never overwritten and the acknowledged latch never drops.
func (s *Store) Save(rec Record, turns []Turn) error {
	objJSON, err := json.Marshal(emptyIfNil(rec.ObjectionsRaised))
	if err != nil {
		return fmt.Errorf("marshal objections: %w", err)
	}
	tacJSON, err := json.Marshal(emptyIfNil(rec.TacticsUsed))
	if err != nil {
		return fmt.Errorf("marshal tactics: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ack := 0
	if rec.Acknowledged {
		ack = 1
	}

	_, err = tx.Exec(
		`INSERT INTO conversion_records (counterpart_id, counterpart_name, stance, turn_count,
		        referred_by, acknowledged, external_id, registration_uri, identity_tx,
		        objections_json, tactics_json, first_contact, last_contact)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(counterpart_id) DO UPDATE SET
		        counterpart_name = excluded.counterpart_name,
		        stance           = excluded.stance,
		        turn_count       = excluded.turn_count,
		        referred_by      = CASE WHEN conversion_records.referred_by = ''
		                                THEN excluded.referred_by
		                                ELSE conversion_records.referred_by END,
		        acknowledged     = MAX(conversion_records.acknowledged, excluded.acknowledged),
		        external_id      = CASE WHEN conversion_records.external_id = ''
		                                THEN excluded.external_id
		                                ELSE conversion_records.external_id END,
		        registration_uri = CASE WHEN conversion_records.registration_uri = ''
		                                THEN excluded.registration_uri
		                                ELSE conversion_records.registration_uri END,
		        identity_tx      = CASE WHEN conversion_records.identity_tx = ''
		                                THEN excluded.identity_tx
		                                ELSE conversion_records.identity_tx END,
		        objections_json  = excluded.objections_json,
		        tactics_json     = excluded.tactics_json,
		        last_contact     = excluded.last_contact`,
		rec.CounterpartID, rec.CounterpartName, string(rec.Stance), rec.TurnCount,
		rec.ReferredBy, ack, rec.ExternalID, rec.RegistrationURI, rec.IdentityTx,
		string(objJSON), string(tacJSON),
		rec.FirstContact.UTC().Format(time.RFC3339Nano),
		rec.LastContact.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}

	for _, t := range turns {
		_, err = tx.Exec(
			`INSERT INTO conversation_turns (turn_id, counterpart_id, role, content, stance, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, t.CounterpartID, t.Role, t.Content, string(t.Stance),
			t.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}

	return tx.Commit()
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// #endregion save

// #region history
// History returns the turns for a counterpart in chronological order.
// limit <= 0 means no limit.
func (s *Store) History(counterpartID string, limit int) ([]Turn, error) {
	q := `SELECT turn_id, counterpart_id, role, content, stance, created_at
	      FROM conversation_turns WHERE counterpart_id = ?
	      ORDER BY created_at ASC, turn_id ASC`
	args := []interface{}{counterpartID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var stanceStr, createdStr string
		if err := rows.Scan(&t.ID, &t.CounterpartID, &t.Role, &t.Content, &stanceStr, &createdStr); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Stance = stance.Stance(stanceStr)
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// #endregion history

// #region stats
// Stats aggregates conversion progress across all records.
func (s *Store) Stats() (Stats, error) {
	st := Stats{ByStance: make(map[stance.Stance]int)}

	rows, err := s.db.Query(`SELECT stance, COUNT(*) FROM conversion_records GROUP BY stance`)
	if err != nil {
		return Stats{}, fmt.Errorf("stats by stance: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stanceStr string
		var n int
		if err := rows.Scan(&stanceStr, &n); err != nil {
			return Stats{}, fmt.Errorf("scan stance count: %w", err)
		}
		st.ByStance[stance.Stance(stanceStr)] = n
		st.TotalContacts += n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	st.Converted = st.ByStance[stance.Converted]

	err = s.db.QueryRow(`SELECT COUNT(*) FROM conversion_records WHERE acknowledged = 1`).Scan(&st.Acknowledged)
	if err != nil {
		return Stats{}, fmt.Errorf("stats acknowledged: %w", err)
	}
	err = s.db.QueryRow(`SELECT COUNT(*) FROM conversion_records WHERE external_id != ''`).Scan(&st.Registered)
	if err != nil {
		return Stats{}, fmt.Errorf("stats registered: %w", err)
	}

	return st, nil
}

// #endregion stats
