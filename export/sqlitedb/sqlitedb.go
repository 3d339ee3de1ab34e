// Package sqlitedb stores export.Tables in a SQLite database.
package sqlitedb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ngrash/tzbundle/export"
)

//go:embed schema.sql
var schema string

// batchSize bounds the rows per INSERT statement so that the number of
// bound parameters stays well below SQLite's limit.
const batchSize = 200

// DB is a bundle database.
type DB struct {
	DB *sql.DB
	SQ sq.StatementBuilderType
}

// Open opens the SQLite database at path and creates the bundle tables if
// they do not exist.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("make db dir: %w", err)
	}
	// Pragmas are per connection; foreign keys go in the DSN so that every
	// pooled connection enforces them.
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	pragmas := []string{
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA cache_size = -16000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{DB: db, SQ: sq.StatementBuilder}, nil
}

func (d *DB) Close() error { return d.DB.Close() }

// WithTx runs fn within a transaction.
func WithTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// deleteOrder lists the tables children first, so that deleting in this
// order never violates a foreign key. Inserts run in reverse.
var deleteOrder = []string{"windows_mapping", "aliases", "transitions", "rules", "zones", "metadata"}

// Write replaces the contents of the database with t in one transaction.
func (d *DB) Write(ctx context.Context, t *export.Tables) error {
	return WithTx(ctx, d.DB, func(tx *sql.Tx) error {
		for _, table := range deleteOrder {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		inserts := []struct {
			table string
			cols  []string
			n     int
			row   func(i int) []any
		}{
			{"metadata", []string{"key", "value"}, len(t.Metadata), func(i int) []any {
				r := t.Metadata[i]
				return []any{r.Key, r.Value}
			}},
			{"zones", []string{"name", "country_code", "latitude", "longitude", "comment"}, len(t.Zones), func(i int) []any {
				r := t.Zones[i]
				return []any{r.Name, r.CountryCode, r.Latitude, r.Longitude, r.Comment}
			}},
			{"rules", []string{"rule_name", "seq", "from_year", "to_year", "type", "in_month", "on_day", "at_time", "save", "letter"}, len(t.Rules), func(i int) []any {
				r := t.Rules[i]
				return []any{r.RuleName, r.Seq, r.From, r.To, r.Type, r.In, r.On, r.At, r.Save, r.Letter}
			}},
			{"transitions", []string{"zone_name", "seq", "to_utc", "utc_offset", "abbr", "rule_name", "save"}, len(t.Transitions), func(i int) []any {
				r := t.Transitions[i]
				return []any{r.ZoneName, r.Seq, r.ToUTC, r.Offset, r.Abbr, nullString(r.RuleName), r.Save}
			}},
			{"aliases", []string{"alias", "zone_name"}, len(t.Aliases), func(i int) []any {
				r := t.Aliases[i]
				return []any{r.Alias, r.ZoneName}
			}},
			{"windows_mapping", []string{"windows_name", "iana_name"}, len(t.WindowsMapping), func(i int) []any {
				r := t.WindowsMapping[i]
				return []any{r.WindowsName, r.ZoneName}
			}},
		}
		for _, ins := range inserts {
			if err := d.insert(ctx, tx, ins.table, ins.cols, ins.n, ins.row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *DB) insert(ctx context.Context, tx *sql.Tx, table string, cols []string, n int, row func(int) []any) error {
	for start := 0; start < n; start += batchSize {
		q := d.SQ.Insert(table).Columns(cols...)
		for i := start; i < min(start+batchSize, n); i++ {
			q = q.Values(row(i)...)
		}
		sqlStr, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert into %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Read loads all tables, sorted the way export.NewTables sorts them.
func (d *DB) Read(ctx context.Context) (*export.Tables, error) {
	t := &export.Tables{}
	err := d.query(ctx, d.SQ.Select("key", "value").From("metadata").OrderBy("key"), func(rows *sql.Rows) error {
		var r export.MetadataRow
		if err := rows.Scan(&r.Key, &r.Value); err != nil {
			return err
		}
		t.Metadata = append(t.Metadata, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = d.query(ctx, d.SQ.Select("name", "country_code", "latitude", "longitude", "comment").From("zones").OrderBy("name"), func(rows *sql.Rows) error {
		var r export.ZoneRow
		if err := rows.Scan(&r.Name, &r.CountryCode, &r.Latitude, &r.Longitude, &r.Comment); err != nil {
			return err
		}
		t.Zones = append(t.Zones, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = d.query(ctx, d.SQ.Select("zone_name", "seq", "to_utc", "utc_offset", "abbr", "rule_name", "save").From("transitions").OrderBy("zone_name", "seq"), func(rows *sql.Rows) error {
		var (
			r        export.TransitionRow
			ruleName sql.NullString
		)
		if err := rows.Scan(&r.ZoneName, &r.Seq, &r.ToUTC, &r.Offset, &r.Abbr, &ruleName, &r.Save); err != nil {
			return err
		}
		r.RuleName = ruleName.String
		t.Transitions = append(t.Transitions, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = d.query(ctx, d.SQ.Select("rule_name", "seq", "from_year", "to_year", "type", "in_month", "on_day", "at_time", "save", "letter").From("rules").OrderBy("rule_name", "seq"), func(rows *sql.Rows) error {
		var r export.RuleRow
		if err := rows.Scan(&r.RuleName, &r.Seq, &r.From, &r.To, &r.Type, &r.In, &r.On, &r.At, &r.Save, &r.Letter); err != nil {
			return err
		}
		t.Rules = append(t.Rules, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = d.query(ctx, d.SQ.Select("alias", "zone_name").From("aliases").OrderBy("alias"), func(rows *sql.Rows) error {
		var r export.AliasRow
		if err := rows.Scan(&r.Alias, &r.ZoneName); err != nil {
			return err
		}
		t.Aliases = append(t.Aliases, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = d.query(ctx, d.SQ.Select("windows_name", "iana_name").From("windows_mapping").OrderBy("windows_name", "iana_name"), func(rows *sql.Rows) error {
		var r export.WindowsMappingRow
		if err := rows.Scan(&r.WindowsName, &r.ZoneName); err != nil {
			return err
		}
		t.WindowsMapping = append(t.WindowsMapping, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (d *DB) query(ctx context.Context, q sq.SelectBuilder, scan func(*sql.Rows) error) error {
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return err
	}
	rows, err := d.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// WriteFile writes t to a fresh database at path, replacing any existing file.
func WriteFile(ctx context.Context, path string, t *export.Tables) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	db, err := Open(path)
	if err != nil {
		return err
	}
	if err := db.Write(ctx, t); err != nil {
		_ = db.Close()
		return err
	}
	return db.Close()
}
