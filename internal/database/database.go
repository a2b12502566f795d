package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/cdtdelta/4n6time-core/internal/model"

	_ "modernc.org/sqlite"
)

// Default fields to index when creating a new database.
var DefaultIndexFields = []string{"host", "user", "source", "sourcetype", "type", "datetime", "color"}

// Metadata table names that track distinct values and their frequencies.
// These map to l2t_<name>s tables in the database (e.g. l2t_sources, l2t_sourcetypes).
var metadataFields = []string{"sourcetype", "source", "user", "host", "MACB", "color", "type", "record_number"}

// SQLiteStore manages all SQLite operations for a 4n6time database.
type SQLiteStore struct {
	path string
	conn *sql.DB
}

// CreateSQLite creates a new 4n6time SQLite database, returned as a Store
// so it can be selected through CreateStore's driver switch alongside Postgres.
func CreateSQLite(path string, indexFields []string) (Store, error) {
	return Create(path, indexFields)
}

// Create creates a new 4n6time SQLite database with the full schema.
// indexFields specifies which columns to index. Pass nil to use DefaultIndexFields.
func Create(path string, indexFields []string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	db := &SQLiteStore{path: path, conn: conn}

	if err := db.createSchema(indexFields); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *SQLiteStore) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// createSchema builds all tables and indexes for a new database.
func (db *SQLiteStore) createSchema(indexFields []string) error {
	if indexFields == nil {
		indexFields = DefaultIndexFields
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Main event table
	_, err = tx.Exec(`CREATE TABLE IF NOT EXISTS log2timeline (
		timezone TEXT, MACB TEXT, source TEXT, sourcetype TEXT,
		type TEXT, user TEXT, host TEXT, desc TEXT, filename TEXT,
		inode TEXT, notes TEXT, format TEXT, extra TEXT,
		datetime DATETIME, reportnotes TEXT, inreport TEXT,
		tag TEXT, color TEXT, offset INT, store_number INT,
		store_index INT, vss_store_number INT, URL TEXT,
		record_number TEXT, event_identifier TEXT, event_type TEXT,
		source_name TEXT, user_sid TEXT, computer_name TEXT,
		bookmark INT DEFAULT 0
	)`)
	if err != nil {
		return fmt.Errorf("creating log2timeline table: %w", err)
	}

	// Metadata tables for filter dropdowns (distinct values + frequency)
	for _, f := range metadataFields {
		tableName := "l2t_" + f + "s"
		_, err = tx.Exec(fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (%s TEXT, frequency INT)", tableName, f))
		if err != nil {
			return fmt.Errorf("creating metadata table %s: %w", tableName, err)
		}
	}

	// Tags table
	_, err = tx.Exec("CREATE TABLE IF NOT EXISTS l2t_tags (tag TEXT)")
	if err != nil {
		return fmt.Errorf("creating l2t_tags table: %w", err)
	}

	// Saved queries table
	_, err = tx.Exec("CREATE TABLE IF NOT EXISTS l2t_saved_query (name TEXT, query TEXT)")
	if err != nil {
		return fmt.Errorf("creating l2t_saved_query table: %w", err)
	}

	// Disk image config table
	_, err = tx.Exec(`CREATE TABLE IF NOT EXISTS l2t_disk (
		disk_type INT, mount_path TEXT, dd_path TEXT,
		dd_offset TEXT, storage_file TEXT, export_path TEXT
	)`)
	if err != nil {
		return fmt.Errorf("creating l2t_disk table: %w", err)
	}

	// Insert default disk config row
	_, err = tx.Exec(`INSERT INTO l2t_disk
		(disk_type, mount_path, dd_path, dd_offset, storage_file, export_path)
		VALUES (0, '', '', '', '', '')`)
	if err != nil {
		return fmt.Errorf("inserting default disk config: %w", err)
	}

	// Create indexes
	for _, field := range indexFields {
		_, err = tx.Exec(fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s_idx ON log2timeline (%s)", field, field))
		if err != nil {
			return fmt.Errorf("creating index on %s: %w", field, err)
		}
	}

	return tx.Commit()
}

// InsertEvent inserts a single event into the database.
func (db *SQLiteStore) InsertEvent(e *model.Event) error {
	_, err := db.conn.Exec(insertEventSQL,
		e.Timezone, e.MACB, e.Source, e.SourceType, e.Type,
		e.User, e.Host, e.Desc, e.Filename, e.Inode,
		e.Notes, e.Format, e.Extra, e.Datetime, e.ReportNotes,
		e.InReport, e.Tag, e.Color, e.Offset, e.StoreNumber,
		e.StoreIndex, e.VSSStoreNumber, e.URL, e.RecordNumber,
		e.EventID, e.EventType, e.SourceName, e.UserSID, e.ComputerName,
		e.Bookmark,
	)
	return err
}

// InsertEvents inserts a batch of events inside a single transaction.
// The onProgress callback is called every 10,000 events with the current count.
// Pass nil for onProgress if you don't need progress updates.
func (db *SQLiteStore) InsertEvents(events []*model.Event, onProgress func(count int)) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertEventSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range events {
		_, err := stmt.Exec(
			e.Timezone, e.MACB, e.Source, e.SourceType, e.Type,
			e.User, e.Host, e.Desc, e.Filename, e.Inode,
			e.Notes, e.Format, e.Extra, e.Datetime, e.ReportNotes,
			e.InReport, e.Tag, e.Color, e.Offset, e.StoreNumber,
			e.StoreIndex, e.VSSStoreNumber, e.URL, e.RecordNumber,
			e.EventID, e.EventType, e.SourceName, e.UserSID, e.ComputerName,
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

// UpdateMetadata refreshes all metadata tables (l2t_sources, l2t_hosts, etc.)
// with current distinct values from the main table.
func (db *SQLiteStore) UpdateMetadata() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, f := range metadataFields {
		tableName := "l2t_" + f + "s"

		// Clear existing metadata
		_, err = tx.Exec(fmt.Sprintf("DELETE FROM %s", tableName))
		if err != nil {
			return fmt.Errorf("clearing %s: %w", tableName, err)
		}

		// Repopulate with current values
		_, err = tx.Exec(fmt.Sprintf(
			"INSERT INTO %s (%s, frequency) SELECT %s, COUNT(%s) FROM log2timeline WHERE %s <> '' GROUP BY %s",
			tableName, f, f, f, f, f))
		if err != nil {
			return fmt.Errorf("populating %s: %w", tableName, err)
		}
	}

	// Update tags table
	_, err = tx.Exec("DELETE FROM l2t_tags")
	if err != nil {
		return fmt.Errorf("clearing l2t_tags: %w", err)
	}

	// Get distinct tags (need to split comma-separated values in Go)
	rows, err := tx.Query("SELECT DISTINCT tag FROM log2timeline WHERE tag <> ''")
	if err != nil {
		return fmt.Errorf("querying tags: %w", err)
	}

	seen := make(map[string]bool)
	tagStmt, err := tx.Prepare("INSERT INTO l2t_tags (tag) VALUES (?)")
	if err != nil {
		rows.Close()
		return fmt.Errorf("preparing tag insert: %w", err)
	}

	for rows.Next() {
		var tagStr string
		if err := rows.Scan(&tagStr); err != nil {
			rows.Close()
			tagStmt.Close()
			return err
		}
		for _, t := range strings.Split(tagStr, ",") {
			t = strings.TrimSpace(t)
			if t != "" && !seen[t] {
				seen[t] = true
				_, err = tagStmt.Exec(t)
				if err != nil {
					rows.Close()
					tagStmt.Close()
					return fmt.Errorf("inserting tag: %w", err)
				}
			}
		}
	}
	rows.Close()
	tagStmt.Close()

	if err := rows.Err(); err != nil {
		return err
	}

	return tx.Commit()
}

// The parameterized INSERT statement for events. 30 columns, 30 placeholders.
const insertEventSQL = `INSERT INTO log2timeline (
	timezone, MACB, source, sourcetype, type, user, host, desc, filename,
	inode, notes, format, extra, datetime, reportnotes, inreport, tag, color,
	offset, store_number, store_index, vss_store_number, URL, record_number,
	event_identifier, event_type, source_name, user_sid, computer_name, bookmark
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
