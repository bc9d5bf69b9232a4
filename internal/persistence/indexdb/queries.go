package indexdb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Query is a read-only view over an index db, for the admin tool. It opens
// its own connection so it can run against a live server's db.
type Query struct {
	db *sql.DB
}

type ResultRecord struct {
	Seq         int64
	Level       int
	Name        string
	ClearedTick uint64
	Consumed    int
	Capacity    int
	TimedOut    bool
	Score       int
	RecordedAt  string
}

type TickStats struct {
	Count   int64
	MinTick uint64
	MaxTick uint64
	Joins   int64
	Leaves  int64
	Actions int64
}

func OpenQuery(path string) (*Query, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA query_only=ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Query{db: db}, nil
}

func (q *Query) Close() error { return q.db.Close() }

// Results returns the newest cleared-level records first.
func (q *Query) Results(limit int) ([]ResultRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.db.Query(`SELECT seq, level, name, cleared_tick, consumed, capacity, timed_out, score, recorded_at
		FROM results ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResultRecord
	for rows.Next() {
		var r ResultRecord
		var timedOut int
		if err := rows.Scan(&r.Seq, &r.Level, &r.Name, &r.ClearedTick, &r.Consumed, &r.Capacity, &timedOut, &r.Score, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.TimedOut = timedOut != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Query) TickStats() (TickStats, error) {
	var s TickStats
	row := q.db.QueryRow(`SELECT COUNT(*), COALESCE(MIN(tick),0), COALESCE(MAX(tick),0),
		COALESCE(SUM(joins),0), COALESCE(SUM(leaves),0), COALESCE(SUM(actions),0) FROM ticks`)
	if err := row.Scan(&s.Count, &s.MinTick, &s.MaxTick, &s.Joins, &s.Leaves, &s.Actions); err != nil {
		return TickStats{}, err
	}
	return s, nil
}

// DigestAt returns the recorded state digest for one tick.
func (q *Query) DigestAt(tick uint64) (string, error) {
	var digest string
	err := q.db.QueryRow(`SELECT digest FROM ticks WHERE tick = ?`, int64(tick)).Scan(&digest)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("tick %d not indexed", tick)
	}
	if err != nil {
		return "", err
	}
	return digest, nil
}
