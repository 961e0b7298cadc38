package config

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase opens (creating if needed) the SQLite action audit log and
// applies its migrations. Kept from the teacher's own InitDatabase, with
// the path/migrations path now sourced from Config instead of package
// constants so DatabasePath/MigrationsPath can be overridden per §2.3.
func InitDatabase(c Config) (*sql.DB, error) {
	if dir := filepath.Dir(c.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", c.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := runMigrations(db, c.MigrationsPath); err != nil {
		return nil, err
	}

	log.Println("Database initialized successfully")
	return db, nil
}

func runMigrations(db *sql.DB, migrationsPath string) error {
	migrations, err := os.ReadFile(migrationsPath)
	if err != nil {
		return err
	}
	_, err = db.Exec(string(migrations))
	return err
}
