package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ademuri/watch-log-tools/internal/migration"
	"github.com/ademuri/watch-log-tools/internal/ratings"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultListLimit bounds ListViewings when the caller passes no limit.
const DefaultListLimit = 1000

// Backend is a viewing store. Store (sqlite) and docstore.Store (mongo) both
// implement it.
type Backend interface {
	CreateRater(ctx context.Context, rater Rater) error
	AddViewing(ctx context.Context, v *ratings.Viewing) error
	ListViewings(ctx context.Context, limit int) ([]ratings.Viewing, error)
	ListByTarget(ctx context.Context, targetID string) ([]ratings.Viewing, error)
	ListByRater(ctx context.Context, raterID string) ([]ratings.Viewing, error)
	UpsertTarget(ctx context.Context, target Target) error
	GetTarget(ctx context.Context, id string) (Target, bool, error)
	Catalog(ctx context.Context) (ratings.MapCatalog, error)
	TargetsNeedingMetadata(ctx context.Context, interval time.Duration) ([]Target, error)
	Close() error
}

type Store struct {
	db *sql.DB
}

var _ Backend = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	exists, err := dbExists(db)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if _, err := db.Exec(migration.Create); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}
	return nil
}

func dbExists(db *sql.DB) (bool, error) {
	// 'Viewing' stands in for the whole schema.
	row := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'Viewing'")
	var name string
	err := row.Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking db existence: %w", err)
	}
	return true, nil
}

func ensureSchema(db *sql.DB) error {
	// Target.metadata_updated
	if err := addColumnIfNotExists(db, "Target", "metadata_updated", "DATETIME"); err != nil {
		return err
	}
	return nil
}

func addColumnIfNotExists(db *sql.DB, table, column, typeDef string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if !exists {
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, typeDef)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("adding column %s.%s: %w", table, column, err)
		}
	}
	return nil
}

func columnExists(db *sql.DB, tableName string, columnName string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name string
		var ctype string
		var notnull int
		var dfltValue interface{}
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == columnName {
			return true, nil
		}
	}
	return false, rows.Err()
}
