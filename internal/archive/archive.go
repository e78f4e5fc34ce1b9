// Package archive records completed triage runs in a local SQLite
// file. It is write-only from the pipeline's point of view: a run
// never reads the archive, only `clarity history` does.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/imkarma/clarity/internal/triage"
)

// Store provides access to the run archive.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		session         TEXT NOT NULL,
		repo            TEXT NOT NULL,
		items_fetched   INTEGER NOT NULL DEFAULT 0,
		cluster_count   INTEGER NOT NULL DEFAULT 0,
		priority_count  INTEGER NOT NULL DEFAULT 0,
		plan_count      INTEGER NOT NULL DEFAULT 0,
		elapsed_sec     REAL NOT NULL DEFAULT 0,
		artifact        TEXT NOT NULL,
		created_at      DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Run is one archived run row. The full artifact travels as JSON in
// Artifact.
type Run struct {
	ID            int64
	Session       string
	Repo          string
	ItemsFetched  int
	ClusterCount  int
	PriorityCount int
	PlanCount     int
	ElapsedSec    float64
	Artifact      string
	CreatedAt     time.Time
}

// Save records one completed run.
func (s *Store) Save(artifact *triage.Artifact) error {
	blob, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (session, repo, items_fetched, cluster_count, priority_count, plan_count, elapsed_sec, artifact, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		artifact.Stats.SessionID,
		artifact.Repo,
		artifact.Stats.ItemsFetched,
		artifact.Stats.ClusterCount,
		artifact.Stats.PriorityCount,
		artifact.Stats.PlanCount,
		artifact.Stats.ElapsedSeconds,
		string(blob),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, session, repo, items_fetched, cluster_count, priority_count, plan_count, elapsed_sec, artifact, created_at
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns one archived run by session id.
func (s *Store) Get(session string) (*Run, error) {
	rows, err := s.db.Query(`
		SELECT id, session, repo, items_fetched, cluster_count, priority_count, plan_count, elapsed_sec, artifact, created_at
		FROM runs WHERE session = ? ORDER BY id DESC LIMIT 1`, session)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("run %s not found", session)
	}
	r, err := scanRun(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var r Run
	err := rows.Scan(&r.ID, &r.Session, &r.Repo, &r.ItemsFetched, &r.ClusterCount, &r.PriorityCount, &r.PlanCount, &r.ElapsedSec, &r.Artifact, &r.CreatedAt)
	if err != nil {
		return r, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}

// Decode unpacks the stored artifact JSON.
func (r Run) Decode() (*triage.Artifact, error) {
	var a triage.Artifact
	if err := json.Unmarshal([]byte(r.Artifact), &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &a, nil
}
