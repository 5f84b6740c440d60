// Package journal persists interactions to SQLite.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	_ "github.com/ncruces/go-sqlite3/vfs/memdb"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("journal closed")

// Interaction is one processed input.
type Interaction struct {
	ID          string     `json:"id"`
	Time        time.Time  `json:"time"`
	Input       string     `json:"input"`
	Concept     string     `json:"concept,omitempty"`
	Similarity  float64    `json:"similarity,omitempty"`
	Module      string     `json:"module,omitempty"`
	StateBefore [2]float64 `json:"state_before"`
	StateAfter  [2]float64 `json:"state_after"`
	Curiosity   float64    `json:"curiosity,omitempty"`
	Response    string     `json:"response"`
	Reflection  bool       `json:"reflection,omitempty"`
}

// Matched reports whether a concept matched the input.
func (i *Interaction) Matched() bool {
	return i.Concept != ""
}

// Store manages the interaction journal database.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// Options configures the journal store.
type Options struct {
	// Path to the SQLite database file.
	// If empty, uses a private in-memory database that lives until the
	// process exits.
	Path string

	// Logger receives migration progress. Defaults to slog.Default().
	Logger *slog.Logger

	// Now stamps interactions recorded without a time. Defaults to time.Now.
	Now func() time.Time
}

// Open opens the journal and applies pending migrations.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var dsn string
	if opts.Path == "" {
		dsn = "file:/" + uuid.NewString() + ".db?vfs=memdb"
	} else {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
		dsn = "file:" + opts.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	s := &Store{
		db:     db,
		path:   opts.Path,
		now:    opts.Now,
		logger: opts.Logger,
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		s.logger.Debug("journal migration applied",
			"version", r.Source.Version,
			"duration", r.Duration,
		)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the database file path, or "" for an in-memory journal.
func (s *Store) Path() string {
	return s.path
}

// Record stores an interaction, assigning an ID and time when missing.
func (s *Store) Record(ctx context.Context, in *Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}

	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Time.IsZero() {
		in.Time = s.now()
	}

	before, err := json.Marshal(in.StateBefore)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	after, err := json.Marshal(in.StateAfter)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO interactions (id, created_at, input, concept, similarity, module,
			state_before, state_after, curiosity, response, reflection)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Time.UnixMilli(), in.Input, in.Concept, in.Similarity, in.Module,
		string(before), string(after), in.Curiosity, in.Response, in.Reflection,
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

// Recent returns up to limit interactions, newest first. A non-positive
// limit returns everything.
func (s *Store) Recent(ctx context.Context, limit int) ([]Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, input, concept, similarity, module,
			state_before, state_after, curiosity, response, reflection
		FROM interactions
		ORDER BY seq DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var (
			in            Interaction
			millis        int64
			before, after string
		)
		if err := rows.Scan(&in.ID, &millis, &in.Input, &in.Concept, &in.Similarity, &in.Module,
			&before, &after, &in.Curiosity, &in.Response, &in.Reflection); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		in.Time = time.UnixMilli(millis)
		if err := json.Unmarshal([]byte(before), &in.StateBefore); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
		if err := json.Unmarshal([]byte(after), &in.StateAfter); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// Stats summarises the journal.
type Stats struct {
	Total       int64            `json:"total"`
	Matched     int64            `json:"matched"`
	Reflections int64            `json:"reflections"`
	ByConcept   map[string]int64 `json:"by_concept"`
	ByModule    map[string]int64 `json:"by_module"`
}

// MatchRate returns Matched / Total, or 0 for an empty journal.
func (s *Stats) MatchRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Total)
}

// Stats returns current journal statistics.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}

	stats := &Stats{
		ByConcept: make(map[string]int64),
		ByModule:  make(map[string]int64),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(concept != ''), 0),
			COALESCE(SUM(reflection), 0)
		FROM interactions`).Scan(&stats.Total, &stats.Matched, &stats.Reflections)
	if err != nil {
		return nil, fmt.Errorf("count interactions: %w", err)
	}

	if err := s.countBy(ctx, "concept", stats.ByConcept); err != nil {
		return nil, err
	}
	if err := s.countBy(ctx, "module", stats.ByModule); err != nil {
		return nil, err
	}

	return stats, nil
}

// countBy fills into with per-value counts of a column, skipping empty values.
// column is never user input.
func (s *Store) countBy(ctx context.Context, column string, into map[string]int64) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) FROM interactions WHERE "+column+" != '' GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("count by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		into[key] = count
	}
	return rows.Err()
}
