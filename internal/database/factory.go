package database

import "fmt"

// CreateStore creates a new database using the specified driver.
// For SQLite, pathOrConnStr is the file path for the new .db file.
// For PostgreSQL, pathOrConnStr is a connection string; the database must already exist.
// indexFields specifies which columns to index; pass nil for defaults.
func CreateStore(driver, pathOrConnStr string, indexFields []string) (Store, error) {
	switch driver {
	case "sqlite":
		return CreateSQLite(pathOrConnStr, indexFields)
	case "postgres":
		return CreatePostgres(pathOrConnStr, indexFields)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}
