package database

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/cdtdelta/4n6time-core/internal/model"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// validTimestampRe matches datetime strings in YYYY-MM-DD HH:MM:SS or
// YYYY-MM-DDTHH:MM:SS format (with optional fractional seconds/timezone suffix).
// Anything that doesn't match this pattern cannot be a valid PostgreSQL TIMESTAMP.
var validTimestampRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}`)

// pgSanitizeString strips null bytes (0x00) from a string. SQLite stores these
// fine but PostgreSQL rejects them with "invalid byte sequence for encoding UTF8".
func pgSanitizeString(s string) string {
	if strings.ContainsRune(s, '\x00') {
		return strings.ReplaceAll(s, "\x00", "")
	}
	return s
}

// pgSanitizeDatetime returns the datetime string if it is a valid timestamp
// for PostgreSQL, or nil (SQL NULL) if it is empty, a zero sentinel, or
// otherwise unparseable. SQLite stores datetime as TEXT and can contain values
// like "", "0000-00-00 00:00:00", or "Not a time" that PostgreSQL rejects.
func pgSanitizeDatetime(s string) interface{} {
	s = pgSanitizeString(s)
	if s == "" {
		return nil
	}
	if !validTimestampRe.MatchString(s) {
		return nil
	}
	// Year 0000 is out of range for PostgreSQL TIMESTAMP
	if s[:4] == "0000" {
		return nil
	}
	return s
}

// PostgresStore manages all PostgreSQL operations for a 4n6time database.
// It implements the Store interface.
type PostgresStore struct {
	connStr string
	conn    *sql.DB
	dialect Dialect
}

// CreatePostgres creates a new 4n6time schema on a PostgreSQL database.
// The database itself must already exist; this creates the tables and indexes.
func CreatePostgres(connStr string, indexFields []string) (*PostgresStore, error) {
	d := &PostgresDialect{}

	conn, err := sql.Open(d.DriverName(), d.DSN(connStr))
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	db := &PostgresStore{connStr: connStr, conn: conn, dialect: d}

	if err := db.createSchema(indexFields); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *PostgresStore) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// createSchema builds all tables and indexes for a new database.
func (db *PostgresStore) createSchema(indexFields []string) error {
	if indexFields == nil {
		indexFields = DefaultIndexFields
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Main event table
	_, err = tx.Exec(db.dialect.CreateTableSQL())
	if err != nil {
		return fmt.Errorf("creating log2timeline table: %w", err)
	}

	// Metadata tables for filter dropdowns (distinct values + frequency)
	for _, f := range metadataFields {
		tableName := "l2t_" + f + "s"
		_, err = tx.Exec(db.dialect.CreateMetadataTableSQL(tableName, f))
		if err != nil {
			return fmt.Errorf("creating metadata table %s: %w", tableName, err)
		}
	}

	// Tags table
	_, err = tx.Exec(db.dialect.CreateTagsTableSQL())
	if err != nil {
		return fmt.Errorf("creating l2t_tags table: %w", err)
	}

	// Saved queries table
	_, err = tx.Exec(db.dialect.CreateSavedQueryTableSQL())
	if err != nil {
		return fmt.Errorf("creating l2t_saved_query table: %w", err)
	}

	// Disk image config table
	_, err = tx.Exec(db.dialect.CreateDiskTableSQL())
	if err != nil {
		return fmt.Errorf("creating l2t_disk table: %w", err)
	}

	// Insert default disk config row
	_, err = tx.Exec(db.dialect.InsertDefaultDiskSQL())
	if err != nil {
		return fmt.Errorf("inserting default disk config: %w", err)
	}

	// Create indexes
	for _, field := range indexFields {
		_, err = tx.Exec(db.dialect.CreateIndexSQL(field+"_idx", "log2timeline", field))
		if err != nil {
			return fmt.Errorf("creating index on %s: %w", field, err)
		}
	}

	return tx.Commit()
}

// InsertEvent inserts a single event into the database.
func (db *PostgresStore) InsertEvent(e *model.Event) error {
	_, err := db.conn.Exec(db.dialect.InsertEventSQL(),
		pgSanitizeString(e.Timezone), pgSanitizeString(e.MACB),
		pgSanitizeString(e.Source), pgSanitizeString(e.SourceType), pgSanitizeString(e.Type),
		pgSanitizeString(e.User), pgSanitizeString(e.Host), pgSanitizeString(e.Desc),
		pgSanitizeString(e.Filename), pgSanitizeString(e.Inode),
		pgSanitizeString(e.Notes), pgSanitizeString(e.Format), pgSanitizeString(e.Extra),
		pgSanitizeDatetime(e.Datetime), pgSanitizeString(e.ReportNotes),
		pgSanitizeString(e.InReport), pgSanitizeString(e.Tag), pgSanitizeString(e.Color),
		e.Offset, e.StoreNumber,
		e.StoreIndex, e.VSSStoreNumber, pgSanitizeString(e.URL),
		pgSanitizeString(e.RecordNumber),
		pgSanitizeString(e.EventID), pgSanitizeString(e.EventType),
		pgSanitizeString(e.SourceName), pgSanitizeString(e.UserSID),
		pgSanitizeString(e.ComputerName),
		e.Bookmark,
	)
	return err
}

// InsertEvents inserts a batch of events inside a single transaction.
// The onProgress callback is called every 10,000 events with the current count.
// Pass nil for onProgress if you don't need progress updates.
func (db *PostgresStore) InsertEvents(events []*model.Event, onProgress func(count int)) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(db.dialect.InsertEventSQL())
	if err != nil {
		return 0, fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range events {
		_, err := stmt.Exec(
			pgSanitizeString(e.Timezone), pgSanitizeString(e.MACB),
			pgSanitizeString(e.Source), pgSanitizeString(e.SourceType), pgSanitizeString(e.Type),
			pgSanitizeString(e.User), pgSanitizeString(e.Host), pgSanitizeString(e.Desc),
			pgSanitizeString(e.Filename), pgSanitizeString(e.Inode),
			pgSanitizeString(e.Notes), pgSanitizeString(e.Format), pgSanitizeString(e.Extra),
			pgSanitizeDatetime(e.Datetime), pgSanitizeString(e.ReportNotes),
			pgSanitizeString(e.InReport), pgSanitizeString(e.Tag), pgSanitizeString(e.Color),
			e.Offset, e.StoreNumber,
			e.StoreIndex, e.VSSStoreNumber, pgSanitizeString(e.URL),
			pgSanitizeString(e.RecordNumber),
			pgSanitizeString(e.EventID), pgSanitizeString(e.EventType),
			pgSanitizeString(e.SourceName), pgSanitizeString(e.UserSID),
			pgSanitizeString(e.ComputerName),
			e.Bookmark,
		)
		if err != nil {
			return inserted, fmt.Errorf("inserting event %d: %w", inserted+1, err)
		}
		inserted++
		if onProgress != nil && inserted%10000 == 0 {
			onProgress(inserted)
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("committing transaction: %w", err)
	}

	return inserted, nil
}

// UpdateMetadata refreshes all metadata tables with current distinct values.
// Uses pgQuoteCol for column references that may be PostgreSQL reserved words.
func (db *PostgresStore) UpdateMetadata() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, f := range metadataFields {
		tableName := "l2t_" + f + "s"
		col := pgQuoteCol(f)

		// Clear existing metadata
		_, err = tx.Exec(fmt.Sprintf("DELETE FROM %s", tableName))
		if err != nil {
			return fmt.Errorf("clearing %s: %w", tableName, err)
		}

		// Repopulate with current values
		_, err = tx.Exec(fmt.Sprintf(
			"INSERT INTO %s (%s, frequency) SELECT %s, COUNT(%s) FROM log2timeline WHERE %s <> '' GROUP BY %s",
			tableName, col, col, col, col, col))
		if err != nil {
			return fmt.Errorf("populating %s: %w", tableName, err)
		}
	}

	// Update tags table
	_, err = tx.Exec("DELETE FROM l2t_tags")
	if err != nil {
		return fmt.Errorf("clearing l2t_tags: %w", err)
	}

	// Get distinct tags (need to split comma-separated values in Go).
	// Collect all results first and close the cursor before doing inserts,
	// because PostgreSQL does not allow concurrent operations on a single connection.
	rows, err := tx.Query("SELECT DISTINCT tag FROM log2timeline WHERE tag <> ''")
	if err != nil {
		return fmt.Errorf("querying tags: %w", err)
	}

	var rawTags []string
	for rows.Next() {
		var tagStr string
		if err := rows.Scan(&tagStr); err != nil {
			rows.Close()
			return err
		}
		rawTags = append(rawTags, tagStr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	// Now that the cursor is closed, prepare and execute the inserts
	seen := make(map[string]bool)
	tagStmt, err := tx.Prepare(`INSERT INTO l2t_tags (tag) VALUES ($1)`)
	if err != nil {
		return fmt.Errorf("preparing tag insert: %w", err)
	}
	defer tagStmt.Close()

	for _, tagStr := range rawTags {
		for _, t := range strings.Split(tagStr, ",") {
			t = strings.TrimSpace(t)
			if t != "" && !seen[t] {
				seen[t] = true
				if _, err = tagStmt.Exec(t); err != nil {
					return fmt.Errorf("inserting tag: %w", err)
				}
			}
		}
	}

	return tx.Commit()
}
