// Package capture records real response streams and their emissions to a
// SQLite store. Captured streams are the ground truth for revisiting
// decoding policy (notably duplicate-key handling) against what models
// actually emit, and can be replayed through the engine after changes.
package capture

import (
	"database/sql"
	"encoding/json"
	"time"

	// SQLite driver (required for database/sql registration).
	_ "github.com/mattn/go-sqlite3"

	apperr "github.com/sift-ai/sift/internal/errors"
	"github.com/sift-ai/sift/internal/extract"
)

// Recorder persists streams, their fragments and their emissions.
type Recorder struct {
	db *sql.DB
}

// Open opens the capture store at the given path, creating the schema if
// needed.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeCaptureOpen, "open capture store", apperr.CategoryStorage)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, apperr.Wrap(err, apperr.CodeCaptureOpen, "configure capture store", apperr.CategoryStorage)
		}
	}

	r := &Recorder{db: db}
	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS streams (
		id         TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		convention TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS fragments (
		stream_id TEXT NOT NULL REFERENCES streams(id),
		seq       INTEGER NOT NULL,
		text      TEXT NOT NULL,
		PRIMARY KEY (stream_id, seq)
	);
	CREATE TABLE IF NOT EXISTS emissions (
		stream_id TEXT NOT NULL REFERENCES streams(id),
		seq       INTEGER NOT NULL,
		kind      TEXT NOT NULL,
		reason    TEXT,
		name      TEXT,
		payload   TEXT,
		raw       TEXT NOT NULL,
		PRIMARY KEY (stream_id, seq)
	);`
	if _, err := r.db.Exec(schema); err != nil {
		return apperr.Wrap(err, apperr.CodeCaptureOpen, "initialize capture schema", apperr.CategoryStorage)
	}
	return nil
}

// BeginStream registers a stream and the delimiter convention it uses.
func (r *Recorder) BeginStream(streamID, convention string) error {
	_, err := r.db.Exec(
		"INSERT INTO streams (id, started_at, convention) VALUES (?, ?, ?)",
		streamID, time.Now().UTC().Format(time.RFC3339Nano), convention,
	)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeCaptureWrite, "record stream", apperr.CategoryStorage)
	}
	return nil
}

// RecordFragment stores one fragment in arrival order.
func (r *Recorder) RecordFragment(streamID string, seq int, text string) error {
	_, err := r.db.Exec(
		"INSERT INTO fragments (stream_id, seq, text) VALUES (?, ?, ?)",
		streamID, seq, text,
	)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeCaptureWrite, "record fragment", apperr.CategoryStorage)
	}
	return nil
}

// RecordEmission stores one emission in output order.
func (r *Recorder) RecordEmission(streamID string, seq int, e extract.Emission) error {
	var reason, name, payload string
	switch e.Kind {
	case extract.KindToolCall:
		name = e.Call.Name
		b, err := json.Marshal(e.Call.Args)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeCaptureWrite, "encode call arguments", apperr.CategoryStorage)
		}
		payload = string(b)
	case extract.KindParseError:
		reason = string(e.Err.Reason)
	}

	_, err := r.db.Exec(
		"INSERT INTO emissions (stream_id, seq, kind, reason, name, payload, raw) VALUES (?, ?, ?, ?, ?, ?, ?)",
		streamID, seq, e.Kind.String(), reason, name, payload, e.Raw(),
	)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeCaptureWrite, "record emission", apperr.CategoryStorage)
	}
	return nil
}

// Replay returns the stream's raw text, reassembled from its fragments in
// arrival order, ready to be fed through the batch entry point again.
func (r *Recorder) Replay(streamID string) (string, error) {
	rows, err := r.db.Query(
		"SELECT text FROM fragments WHERE stream_id = ? ORDER BY seq",
		streamID,
	)
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeCaptureRead, "read fragments", apperr.CategoryStorage)
	}
	defer rows.Close()

	var text string
	found := false
	for rows.Next() {
		var fragment string
		if err := rows.Scan(&fragment); err != nil {
			return "", apperr.Wrap(err, apperr.CodeCaptureRead, "scan fragment", apperr.CategoryStorage)
		}
		text += fragment
		found = true
	}
	if err := rows.Err(); err != nil {
		return "", apperr.Wrap(err, apperr.CodeCaptureRead, "iterate fragments", apperr.CategoryStorage)
	}
	if !found {
		return "", apperr.New(apperr.CodeStreamNotFound, "no fragments for stream "+streamID, apperr.CategoryStorage)
	}
	return text, nil
}

// StoredEmission is one recorded emission row.
type StoredEmission struct {
	Seq     int
	Kind    string
	Reason  string
	Name    string
	Payload string
	Raw     string
}

// Emissions returns the recorded emission sequence for a stream.
func (r *Recorder) Emissions(streamID string) ([]StoredEmission, error) {
	rows, err := r.db.Query(
		"SELECT seq, kind, reason, name, payload, raw FROM emissions WHERE stream_id = ? ORDER BY seq",
		streamID,
	)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeCaptureRead, "read emissions", apperr.CategoryStorage)
	}
	defer rows.Close()

	var out []StoredEmission
	for rows.Next() {
		var e StoredEmission
		if err := rows.Scan(&e.Seq, &e.Kind, &e.Reason, &e.Name, &e.Payload, &e.Raw); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeCaptureRead, "scan emission", apperr.CategoryStorage)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeCaptureRead, "iterate emissions", apperr.CategoryStorage)
	}
	return out, nil
}

// Close closes the store.
func (r *Recorder) Close() error {
	return r.db.Close()
}
