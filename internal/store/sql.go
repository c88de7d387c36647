package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Simplici0/costestimator/internal/db"
	"github.com/Simplici0/costestimator/internal/migrations"
)

// SQL is a Store over the estimates table. The same statements run on sqlite
// and postgres; only placeholders differ.
type SQL struct {
	db     *sql.DB
	driver Driver
}

// OpenSQLite opens (creating if needed) the sqlite file at path and migrates it.
func OpenSQLite(path string) (*SQL, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(database, migrations.SQLiteDialect); err != nil {
		database.Close()
		return nil, err
	}
	return NewSQL(database, DriverSQLite), nil
}

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*SQL, error) {
	database, err := db.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(database, migrations.PostgresDialect); err != nil {
		database.Close()
		return nil, err
	}
	return NewSQL(database, DriverPostgres), nil
}

// NewSQL wraps an already migrated database.
func NewSQL(database *sql.DB, driver Driver) *SQL {
	return &SQL{db: database, driver: driver}
}

func (s *SQL) Driver() Driver { return s.driver }

// DB exposes the underlying handle for seeding and tests.
func (s *SQL) DB() *sql.DB { return s.db }

// rebind rewrites ? placeholders as $1, $2... for postgres.
func (s *SQL) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQL) Put(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("put estimate: empty id")
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO estimates (id, name, saved_at, grand_total, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			saved_at = excluded.saved_at,
			grand_total = excluded.grand_total,
			payload = excluded.payload
	`), rec.ID, rec.Name, savedAtMillis(rec.SavedAt), rec.GrandTotal, string(rec.Payload))
	if err != nil {
		return fmt.Errorf("upsert estimate %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQL) Get(ctx context.Context, id string) (Record, error) {
	var (
		rec     Record
		savedAt int64
		payload string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, name, saved_at, grand_total, payload
		FROM estimates
		WHERE id = ?
	`), id).Scan(&rec.ID, &rec.Name, &savedAt, &rec.GrandTotal, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("select estimate %s: %w", id, err)
	}
	rec.SavedAt = fromMillis(savedAt)
	rec.Payload = []byte(payload)
	return rec, nil
}

func (s *SQL) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, saved_at, grand_total
		FROM estimates
		ORDER BY saved_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list estimates: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum     Summary
			savedAt int64
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &savedAt, &sum.GrandTotal); err != nil {
			return nil, fmt.Errorf("scan estimate summary: %w", err)
		}
		sum.SavedAt = fromMillis(savedAt)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate estimates: %w", err)
	}
	return out, nil
}

func (s *SQL) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM estimates WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete estimate %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete estimate %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQL) Close() error { return s.db.Close() }
