// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package sinks

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/ghpascon/xbridge-middleware/pkg/models"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// DBSink persists tags and events into a SQL database across two
// tables: tags and events. DATABASE_URL may name sqlite, mysql or
// postgresql; an async driver prefix (e.g. "postgresql+asyncpg") is
// stripped since this sink only ever opens a synchronous driver.
type DBSink struct {
	db     *sql.DB
	dbType string
}

// NewDBSink parses rawURL, opens the matching driver and creates the
// schema if it does not already exist.
func NewDBSink(rawURL string) (*DBSink, error) {
	dbType, dsn, driver, err := resolveDriver(rawURL)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sinks: open database")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "sinks: ping database")
	}
	s := &DBSink{db: db, dbType: dbType}
	if err := s.createSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// resolveDriver strips an async driver suffix from the scheme
// ("postgresql+asyncpg" -> "postgresql") and maps to a go database/sql
// driver name plus DSN.
func resolveDriver(rawURL string) (dbType, dsn, driver string, err error) {
	scheme := rawURL
	if idx := strings.Index(rawURL, "://"); idx >= 0 {
		scheme = rawURL[:idx]
	}
	scheme = strings.SplitN(scheme, "+", 2)[0]
	rest := rawURL
	if idx := strings.Index(rawURL, "://"); idx >= 0 {
		rest = rawURL[idx+3:]
	}

	switch scheme {
	case "sqlite", "sqlite3":
		return "sqlite", rest, "sqlite3", nil
	case "mysql":
		return "mysql", rest, "mysql", nil
	case "postgresql", "postgres":
		return "postgresql", "postgres://" + rest, "postgres", nil
	default:
		return "", "", "", errors.Errorf("sinks: unsupported database dialect %q", scheme)
	}
}

func (s *DBSink) createSchema() error {
	var tagsDDL, eventsDDL string
	switch s.dbType {
	case "sqlite":
		tagsDDL = `CREATE TABLE IF NOT EXISTS tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			device VARCHAR(50),
			epc VARCHAR(24),
			tid VARCHAR(24),
			ant INTEGER,
			rssi INTEGER,
			gtin VARCHAR(24)
		)`
		eventsDDL = `CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			device VARCHAR(50),
			event_type VARCHAR(50),
			event_data VARCHAR(200)
		)`
	default:
		tagsDDL = `CREATE TABLE IF NOT EXISTS tags (
			id SERIAL PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			device VARCHAR(50),
			epc VARCHAR(24),
			tid VARCHAR(24),
			ant INTEGER,
			rssi INTEGER,
			gtin VARCHAR(24)
		)`
		eventsDDL = `CREATE TABLE IF NOT EXISTS events (
			id SERIAL PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			device VARCHAR(50),
			event_type VARCHAR(50),
			event_data VARCHAR(200)
		)`
	}
	if _, err := s.db.Exec(tagsDDL); err != nil {
		return common.NewFatalError("sinks: create tags table: %v", err)
	}
	if _, err := s.db.Exec(eventsDDL); err != nil {
		return common.NewFatalError("sinks: create events table: %v", err)
	}
	for _, idx := range []string{
		"CREATE INDEX IF NOT EXISTS idx_tags_device ON tags(device)",
		"CREATE INDEX IF NOT EXISTS idx_tags_epc ON tags(epc)",
		"CREATE INDEX IF NOT EXISTS idx_tags_gtin ON tags(gtin)",
		"CREATE INDEX IF NOT EXISTS idx_events_device ON events(device)",
		"CREATE INDEX IF NOT EXISTS idx_events_event_type ON events(event_type)",
	} {
		if _, err := s.db.Exec(idx); err != nil {
			return common.NewFatalError("sinks: create index: %v", err)
		}
	}
	return nil
}

func (s *DBSink) Name() string { return "database" }

// placeholders returns n positional parameter markers in the calling
// dialect's syntax: lib/pq requires $1,$2,...; sqlite3 and mysql both
// accept plain ?.
func (s *DBSink) placeholders(n int) []string {
	out := make([]string, n)
	for i := range out {
		if s.dbType == "postgresql" {
			out[i] = fmt.Sprintf("$%d", i+1)
		} else {
			out[i] = "?"
		}
	}
	return out
}

// PublishTag inserts a single tag row. Extra fields on the incoming
// value beyond the canonical columns are ignored.
func (s *DBSink) PublishTag(ctx context.Context, tag interface{}) error {
	t, ok := tag.(models.Tag)
	if !ok {
		return nil
	}
	var rssi interface{}
	if t.RSSI != nil {
		rssi = *t.RSSI
	}
	ph := s.placeholders(7)
	query := fmt.Sprintf(
		"INSERT INTO tags (timestamp, device, epc, tid, ant, rssi, gtin) VALUES (%s)",
		strings.Join(ph, ", "))
	_, err := s.db.ExecContext(ctx, query,
		t.Timestamp.UTC(), t.Device, t.EPC, t.TID, t.Ant, rssi, t.GTIN)
	if err != nil {
		return common.NewSinkError("database", err)
	}
	return nil
}

// PublishEvent inserts a single event row; EventData is rendered as a
// string and truncated to the 200-char column.
func (s *DBSink) PublishEvent(ctx context.Context, event interface{}) error {
	e, ok := event.(models.Event)
	if !ok {
		return nil
	}
	data := fmt.Sprintf("%v", e.EventData)
	if len(data) > 200 {
		data = data[:200]
	}
	ph := s.placeholders(4)
	query := fmt.Sprintf(
		"INSERT INTO events (timestamp, device, event_type, event_data) VALUES (%s)",
		strings.Join(ph, ", "))
	_, err := s.db.ExecContext(ctx, query,
		e.Timestamp.UTC(), e.Device, e.EventType, data)
	if err != nil {
		return common.NewSinkError("database", err)
	}
	return nil
}

// PruneOlderThan deletes rows whose timestamp predates cutoff from
// every table with a timestamp column. Errors in one table are logged
// by the caller and do not abort the other.
func (s *DBSink) PruneOlderThan(ctx context.Context, cutoff time.Time) error {
	ph := s.placeholders(1)
	var firstErr error
	for _, table := range []string{"tags", "events"} {
		query := fmt.Sprintf("DELETE FROM %s WHERE timestamp < %s", table, ph[0])
		_, err := s.db.ExecContext(ctx, query, cutoff.UTC())
		if err != nil && firstErr == nil {
			firstErr = common.NewSinkError("database", errors.Wrapf(err, "prune %s", table))
		}
	}
	return firstErr
}

// Report writes every table as a CSV file into a ZIP archive.
func (s *DBSink) Report(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, table := range []string{"tags", "events"} {
		if err := s.writeTableCSV(zw, table); err != nil {
			return err
		}
	}
	return zw.Close()
}

func (s *DBSink) writeTableCSV(zw *zip.Writer, table string) error {
	f, err := zw.Create(table + ".csv")
	if err != nil {
		return err
	}
	rows, err := s.db.Query("SELECT * FROM " + table)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(cols); err != nil {
		return err
	}

	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		record := make([]string, len(cols))
		for i, v := range vals {
			record[i] = toCSVString(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func toCSVString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func (s *DBSink) Close() error { return s.db.Close() }
