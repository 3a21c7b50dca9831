// Package persist is an optional, out-of-core-path snapshot cache for
// reduced LTSes: reducing a large system to its quotient can be the most
// expensive step in a session, so a caller willing to name a content hash
// for its input can skip repeating that work across runs. Grounded on
// server/dao/sqlite's store/init/wrapDBError shape, cut down to the single
// table this package actually needs.
package persist

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/dekarrin/symbane/internal/lts"
)

// Store caches Lts snapshots in a sqlite database on disk, keyed by a
// caller-supplied content hash (e.g. a hash of the source LTS plus whichever
// reduction produced it).
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a sqlite-backed Store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapDBError(err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS lts_snapshots (
	content_hash TEXT PRIMARY KEY,
	initial      INTEGER NOT NULL,
	num_states   INTEGER NOT NULL,
	labels       TEXT NOT NULL,
	hidden       TEXT NOT NULL,
	transitions  TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, wrapDBError(err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying sqlite connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// snapshot is the on-disk encoding of an Lts: plain data only, so it survives
// a process restart without depending on any in-memory identity (an Lts's
// BuildID is NOT preserved — Put's content hash is the cache key, not the
// original BuildID).
type snapshot struct {
	Initial     lts.StateIndex      `json:"initial"`
	NumStates   int                 `json:"num_states"`
	Labels      []string            `json:"labels"`
	Hidden      []string            `json:"hidden"`
	Transitions []lts.RawTransition `json:"transitions"`
}

// Put stores l under contentHash, overwriting any existing entry.
func (s *Store) Put(contentHash string, l *lts.Lts) error {
	snap := toSnapshot(l)

	labelsJSON, err := json.Marshal(snap.Labels)
	if err != nil {
		return fmt.Errorf("persist: marshal labels: %w", err)
	}
	hiddenJSON, err := json.Marshal(snap.Hidden)
	if err != nil {
		return fmt.Errorf("persist: marshal hidden: %w", err)
	}
	transJSON, err := json.Marshal(snap.Transitions)
	if err != nil {
		return fmt.Errorf("persist: marshal transitions: %w", err)
	}

	const stmt = `
INSERT INTO lts_snapshots (content_hash, initial, num_states, labels, hidden, transitions)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(content_hash) DO UPDATE SET
	initial = excluded.initial,
	num_states = excluded.num_states,
	labels = excluded.labels,
	hidden = excluded.hidden,
	transitions = excluded.transitions;`
	if _, err := s.db.Exec(stmt, contentHash, int64(snap.Initial), snap.NumStates, string(labelsJSON), string(hiddenJSON), string(transJSON)); err != nil {
		return wrapDBError(err)
	}
	return nil
}

// Get retrieves and rebuilds the Lts stored under contentHash. ok is false
// if no entry exists for that hash.
func (s *Store) Get(contentHash string) (l *lts.Lts, ok bool, err error) {
	const stmt = `SELECT initial, num_states, labels, hidden, transitions FROM lts_snapshots WHERE content_hash = ?;`
	row := s.db.QueryRow(stmt, contentHash)

	var initial int64
	var numStates int
	var labelsJSON, hiddenJSON, transJSON string
	if err := row.Scan(&initial, &numStates, &labelsJSON, &hiddenJSON, &transJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, wrapDBError(err)
	}

	var snap snapshot
	snap.Initial = lts.StateIndex(initial)
	snap.NumStates = numStates
	if err := json.Unmarshal([]byte(labelsJSON), &snap.Labels); err != nil {
		return nil, false, fmt.Errorf("persist: unmarshal labels: %w", err)
	}
	if err := json.Unmarshal([]byte(hiddenJSON), &snap.Hidden); err != nil {
		return nil, false, fmt.Errorf("persist: unmarshal hidden: %w", err)
	}
	if err := json.Unmarshal([]byte(transJSON), &snap.Transitions); err != nil {
		return nil, false, fmt.Errorf("persist: unmarshal transitions: %w", err)
	}

	rebuilt, err := fromSnapshot(snap)
	if err != nil {
		return nil, false, err
	}
	return rebuilt, true, nil
}

// toSnapshot flattens l's transitions (via its public Outgoing/Labels
// accessors, since persist lives outside the lts package) into the plain
// (from, label-name, to) triples lts.Builder consumes.
func toSnapshot(l *lts.Lts) snapshot {
	labels := l.Labels()
	hidden := l.HiddenLabels()

	hiddenNames := make([]string, 0, len(hidden))
	for name := range hidden {
		hiddenNames = append(hiddenNames, name)
	}

	var raw []lts.RawTransition
	for s := 0; s < l.NumStates(); s++ {
		for _, tr := range l.Outgoing(lts.StateIndex(s)) {
			raw = append(raw, lts.RawTransition{
				From:  lts.StateIndex(s),
				Label: labels[tr.Label()],
				To:    tr.Target(),
			})
		}
	}

	return snapshot{
		Initial:     l.Initial(),
		NumStates:   l.NumStates(),
		Labels:      labels[1:], // "tau" is synthesized by Builder, never passed in
		Hidden:      hiddenNames,
		Transitions: raw,
	}
}

// fromSnapshot rebuilds an Lts via the normal two-pass Builder, giving the
// rebuilt value the same validity guarantees (I1-I3) as a freshly-built one.
func fromSnapshot(snap snapshot) (*lts.Lts, error) {
	source := lts.NewSliceSource(snap.Transitions)
	return lts.NewBuilder(snap.Initial, source, snap.Labels, snap.Hidden).
		WithStateCount(snap.NumStates).
		Build()
}

func wrapDBError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("persist: %w", err)
}
