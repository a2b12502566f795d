package database

// Dialect abstracts the database-specific SQL generation needed to create
// a 4n6time schema and insert events into it. Each backend (SQLite,
// PostgreSQL) implements this interface.
type Dialect interface {
	// DriverName returns the database/sql driver name (e.g. "sqlite", "pgx").
	DriverName() string

	// DSN returns the data source name for opening a connection.
	// For SQLite this is the file path; for PostgreSQL a connection string.
	DSN(pathOrConnStr string) string

	// CreateTableSQL returns the DDL for the main log2timeline event table.
	CreateTableSQL() string

	// CreateMetadataTableSQL returns DDL for a metadata frequency table.
	CreateMetadataTableSQL(tableName, columnName string) string

	// CreateTagsTableSQL returns DDL for the l2t_tags table.
	CreateTagsTableSQL() string

	// CreateSavedQueryTableSQL returns DDL for the l2t_saved_query table.
	CreateSavedQueryTableSQL() string

	// CreateDiskTableSQL returns DDL for the l2t_disk configuration table.
	CreateDiskTableSQL() string

	// InsertDefaultDiskSQL returns the INSERT statement for the default disk config row.
	InsertDefaultDiskSQL() string

	// CreateIndexSQL returns DDL to create an index on a table column.
	CreateIndexSQL(indexName, tableName, column string) string

	// InsertEventSQL returns the parameterized INSERT statement for a single event.
	// The statement has 30 columns and 30 placeholders.
	InsertEventSQL() string
}
