// Package stats persists selected delta events as append-only time-series
// rows in a local SQLite database.
//
// Three logical tables:
//
//   - roster:    coc_tag -> platform_id identity linkage, upserted
//   - trophies:  one row per observed member trophy change
//   - donations: one row per observed donation or receipt
//
// Rows are never updated or deleted here; historical correction is out of
// scope.
package stats

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"clanwatch/internal/event"
	"clanwatch/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// ErrSchemaMismatch means an existing table carries a different column set
// than this build expects. It is a startup-only configuration error.
var ErrSchemaMismatch = errors.New("stats: incompatible table schema")

// Placeholder values for the unobservable side of a donation transfer.
// A single counter delta only identifies one party, so the counterpart
// columns carry these literals (kept from the original data layout).
const (
	DonatedTag   = "DonatedTag"
	DonatedName  = "DonatedName"
	ReceivedTag  = "ReceivedTag"
	ReceivedName = "ReceivedName"
)

type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Recorder is the single writer for the stats database.
//
// Writes targeting the same table are serialized with a per-table mutex so
// row order matches event arrival order; different tables proceed
// independently.
type Recorder struct {
	db  *sql.DB
	log logx.Logger

	rosterMu   sync.Mutex
	trophyMu   sync.Mutex
	donationMu sync.Mutex
}

var expectedColumns = map[string][]string{
	"roster":    {"coc_tag", "platform_id"},
	"trophies":  {"date", "clan_tag", "player_tag", "player_name", "trophies"},
	"donations": {"date", "clan_tag", "donor_tag", "donor_name", "recipient_tag", "recipient_name", "amount"},
}

// Open opens (creating if necessary) the stats database and verifies the
// schema. A table that already exists with a foreign column set fails Open;
// per-event write errors never do.
func Open(cfg Config, log logx.Logger) (*Recorder, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("stats path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	r := &Recorder{db: db, log: log}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := r.checkSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, string(b))
	return err
}

// checkSchema compares each table's actual columns against this build's
// expectations. CREATE TABLE IF NOT EXISTS silently tolerates pre-existing
// tables, so a stale or foreign database would otherwise fail one row at a
// time instead of at startup.
func (r *Recorder) checkSchema(ctx context.Context) error {
	for table, want := range expectedColumns {
		got, err := r.tableColumns(ctx, table)
		if err != nil {
			return err
		}
		if !sameColumns(got, want) {
			return fmt.Errorf("%w: table %s has columns %v, want %v", ErrSchemaMismatch, table, got, want)
		}
	}
	return nil
}

func (r *Recorder) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func sameColumns(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	have := make(map[string]bool, len(got))
	for _, c := range got {
		have[strings.ToLower(c)] = true
	}
	for _, c := range want {
		if !have[c] {
			return false
		}
	}
	return true
}

func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Record persists the event if its kind maps to a stats row.
//
// The first return value reports whether the event's kind is persisted at
// all; kinds outside the stats schema return (false, nil). A non-nil error
// is local to this event and must not stop delivery.
func (r *Recorder) Record(ctx context.Context, ev event.Event) (bool, error) {
	switch ev.Kind {
	case event.MemberDonated:
		r.donationMu.Lock()
		defer r.donationMu.Unlock()
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO donations(date, clan_tag, donor_tag, donor_name, recipient_tag, recipient_name, amount)
			 VALUES(?,?,?,?,?,?,?)`,
			ev.Stamp(), ev.ClanTag, ev.MemberTag, ev.MemberName, DonatedTag, DonatedName, ev.Delta,
		)
		return true, err
	case event.MemberReceived:
		r.donationMu.Lock()
		defer r.donationMu.Unlock()
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO donations(date, clan_tag, donor_tag, donor_name, recipient_tag, recipient_name, amount)
			 VALUES(?,?,?,?,?,?,?)`,
			ev.Stamp(), ev.ClanTag, ReceivedTag, ReceivedName, ev.MemberTag, ev.MemberName, ev.Delta,
		)
		return true, err
	case event.MemberTrophiesChanged:
		r.trophyMu.Lock()
		defer r.trophyMu.Unlock()
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO trophies(date, clan_tag, player_tag, player_name, trophies)
			 VALUES(?,?,?,?,?)`,
			ev.Stamp(), ev.ClanTag, ev.MemberTag, ev.MemberName, ev.New,
		)
		return true, err
	case event.MemberJoined:
		// Seed the roster; the platform id stays blank until BindIdentity.
		r.rosterMu.Lock()
		defer r.rosterMu.Unlock()
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO roster(coc_tag, platform_id) VALUES(?, '')
			 ON CONFLICT(coc_tag) DO NOTHING`,
			ev.MemberTag,
		)
		return true, err
	default:
		return false, nil
	}
}

// BindIdentity links a game tag to a chat-platform identity. Upsert: the
// latest binding for a tag wins.
func (r *Recorder) BindIdentity(ctx context.Context, cocTag, platformID string) error {
	r.rosterMu.Lock()
	defer r.rosterMu.Unlock()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roster(coc_tag, platform_id) VALUES(?,?)
		 ON CONFLICT(coc_tag) DO UPDATE SET platform_id=excluded.platform_id`,
		cocTag, platformID,
	)
	return err
}
