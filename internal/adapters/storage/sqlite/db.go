package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // driver sqlite en Go puro, sin cgo
)

// Open abre (o crea) la base embebida. Los agregados se guardan como
// documentos JSON con columnas indexables al costado; el timeline entero
// es una fila, que es exactamente la unidad de atomicidad que necesita.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		path = "breeding-timeline.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Escrituras serializadas: una conexión evita SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cattle (
			id TEXT PRIMARY KEY,
			owner_user_id TEXT NOT NULL,
			tag_number TEXT NOT NULL,
			created_at TEXT NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS timelines (
			cattle_id TEXT PRIMARY KEY,
			revision INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_cattle_owner ON cattle (owner_user_id);
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}
