// Package history records successful builds in a SQL database.
//
// The database is chosen by URL through dburl, for example
// "sqlite:/var/lib/bpfasm/history.db", "postgres://user@host/db",
// "pgx://user@host/db" or "mysql://user@host/db".
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/svmpay/bpfasm/artifact"
	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/program"
	"github.com/svmpay/bpfasm/syscalls"
	"github.com/xo/dburl"
)

// ErrNotFound is returned when a build id is not in the history.
var ErrNotFound = errors.New("build not found")

const schema = `CREATE TABLE IF NOT EXISTS bpfasm_builds (
	id VARCHAR(36) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	version VARCHAR(64) NOT NULL,
	program_type VARCHAR(64) NOT NULL,
	networks VARCHAR(255) NOT NULL,
	instruction_count INTEGER NOT NULL,
	size_bytes INTEGER NOT NULL,
	compute_units INTEGER NOT NULL,
	checksum VARCHAR(64) NOT NULL,
	created_at BIGINT NOT NULL
)`

const columns = `id, name, version, program_type, networks, instruction_count,
	size_bytes, compute_units, checksum, created_at`

// Record describes one build.
type Record struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Version          string             `json:"version,omitempty"`
	Type             program.Type       `json:"type,omitempty"`
	Networks         []syscalls.Network `json:"networks,omitempty"`
	InstructionCount int                `json:"instruction_count"`
	SizeBytes        int                `json:"size_bytes"`
	ComputeUnits     int                `json:"compute_units"`
	Checksum         string             `json:"checksum"`
	CreatedAt        time.Time          `json:"created_at"`
}

// FromBundle returns the history record of a build bundle.
func FromBundle(b *artifact.Bundle) Record {
	return Record{
		ID:               b.ID,
		Name:             b.Name,
		Version:          b.Version,
		Type:             b.Type,
		Networks:         append([]syscalls.Network(nil), b.Networks...),
		InstructionCount: len(b.Bytecode) / bytecode.WordSize,
		SizeBytes:        len(b.Bytecode),
		ComputeUnits:     b.ComputeUnits,
		Checksum:         b.Checksum,
		CreatedAt:        b.CreatedAt,
	}
}

// Store is a build history backed by a SQL database.
type Store struct {
	db       *sql.DB
	numbered bool
	log      zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// Open connects to the database at dsn and creates the history table if
// needed.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	u, err := dburl.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("history: invalid database url: %w", err)
	}
	db, err := sql.Open(u.Driver, u.DSN)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", u.Driver, err)
	}
	s, err := New(ctx, db, u.Driver, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. driver selects the placeholder syntax.
func New(ctx context.Context, db *sql.DB, driver string, opts ...Option) (*Store, error) {
	s := &Store{
		db:       db,
		numbered: driver == "postgres" || driver == "pgx",
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	s.log.Debug().Str("driver", driver).Msg("opened build history")
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// bind rewrites ? placeholders for drivers that use $n.
func (s *Store) bind(query string) string {
	if !s.numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Add inserts r.
func (s *Store) Add(ctx context.Context, r Record) error {
	networks := make([]string, len(r.Networks))
	for i, n := range r.Networks {
		networks[i] = string(n)
	}
	_, err := s.db.ExecContext(ctx, s.bind(`INSERT INTO bpfasm_builds (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.Name, r.Version, string(r.Type), strings.Join(networks, ","),
		r.InstructionCount, r.SizeBytes, r.ComputeUnits, r.Checksum, r.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("history: insert %s: %w", r.ID, err)
	}
	s.log.Debug().Str("id", r.ID).Str("name", r.Name).Msg("recorded build")
	return nil
}

// Get returns the build with the given id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, s.bind(`SELECT `+columns+` FROM bpfasm_builds WHERE id = ?`), id)
	r, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("history: %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("history: get %s: %w", id, err)
	}
	return r, nil
}

// List returns up to limit builds, newest first. An empty name lists
// builds of every program.
func (s *Store) List(ctx context.Context, name string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + columns + ` FROM bpfasm_builds`
	args := []any{}
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("history: list: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (Record, error) {
	var (
		r        Record
		typ      string
		networks string
		created  int64
	)
	err := row.Scan(&r.ID, &r.Name, &r.Version, &typ, &networks,
		&r.InstructionCount, &r.SizeBytes, &r.ComputeUnits, &r.Checksum, &created)
	if err != nil {
		return Record{}, err
	}
	r.Type = program.Type(typ)
	if networks != "" {
		for _, n := range strings.Split(networks, ",") {
			r.Networks = append(r.Networks, syscalls.Network(n))
		}
	}
	r.CreatedAt = time.Unix(created, 0).UTC()
	return r, nil
}
