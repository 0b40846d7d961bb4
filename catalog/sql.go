package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"upc-catalog/internal/types"
)

// dialect holds the statements that differ between database/sql drivers
type dialect struct {
	name        string
	schema      string
	placeholder string
	selectOne   string
}

const recordColumns = `id, title, image, weight, weight_unit, retailers`

var sqliteDialect = dialect{
	name: "sqlite3",
	schema: `
		CREATE TABLE IF NOT EXISTS catalog_records (
		  id TEXT PRIMARY KEY,
		  title TEXT NOT NULL,
		  image TEXT NOT NULL,
		  weight REAL NOT NULL,
		  weight_unit TEXT NOT NULL,
		  retailers TEXT NOT NULL
		)`,
	placeholder: `INSERT OR IGNORE INTO catalog_records (` + recordColumns + `) VALUES (?, '', '', 0, '', '[]')`,
	selectOne:   `SELECT ` + recordColumns + ` FROM catalog_records WHERE id = ?`,
}

var mysqlDialect = dialect{
	name: "mysql",
	schema: `
		CREATE TABLE IF NOT EXISTS catalog_records (
		  id VARCHAR(32) NOT NULL PRIMARY KEY,
		  title TEXT NOT NULL,
		  image TEXT NOT NULL,
		  weight DOUBLE NOT NULL,
		  weight_unit VARCHAR(32) NOT NULL,
		  retailers JSON NOT NULL
		)`,
	placeholder: `INSERT IGNORE INTO catalog_records (` + recordColumns + `) VALUES (?, '', '', 0, '', '[]')`,
	selectOne:   `SELECT ` + recordColumns + ` FROM catalog_records WHERE id = ? FOR UPDATE`,
}

type sqlBackend struct {
	db      *sql.DB
	dialect dialect
}

// DefaultSQLitePath is ~/.upc-catalog/catalog.db, or CATALOG_DB_PATH when set
func DefaultSQLitePath() string {
	if p := os.Getenv("CATALOG_DB_PATH"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".upc-catalog", "catalog.db")
}

// OpenSQLite opens (creating if needed) a catalog in a SQLite file
func OpenSQLite(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time; immediate transactions take the write lock up front
	db.SetMaxOpenConns(1)

	return openSQL(db, sqliteDialect)
}

// OpenMySQL opens a catalog in a MySQL database
func OpenMySQL(dsn string) (*Catalog, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql connection error %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)

	return openSQL(db, mysqlDialect)
}

func openSQL(db *sql.DB, d dialect) (*Catalog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", d.name, err)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: apply schema: %w", d.name, err)
	}
	return newCatalog(&sqlBackend{db: db, dialect: d}), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*types.CatalogRecord, error) {
	var (
		record    types.CatalogRecord
		retailers []byte
	)
	if err := row.Scan(&record.ID, &record.Title, &record.Image, &record.Weight, &record.WeightUnit, &retailers); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(retailers, &record.Retailers); err != nil {
		return nil, fmt.Errorf("decode retailers for %s: %w", record.ID, err)
	}
	if record.Retailers == nil {
		record.Retailers = []types.RetailerOffer{}
	}
	return &record, nil
}

func (s *sqlBackend) get(ctx context.Context, id string) (*types.CatalogRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM catalog_records WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan get: %w", err)
	}
	return record, nil
}

// mutate inserts an empty placeholder row first so the following select
// always has a row to lock, then writes fn's result over it.
func (s *sqlBackend) mutate(ctx context.Context, id string, fn mutateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.dialect.placeholder, id)
	if err != nil {
		return fmt.Errorf("reserve row: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve row: %w", err)
	}

	var existing *types.CatalogRecord
	if inserted == 0 {
		existing, err = scanRecord(tx.QueryRowContext(ctx, s.dialect.selectOne, id))
		if err != nil {
			return fmt.Errorf("scan for update: %w", err)
		}
	}

	next, err := fn(existing)
	if err != nil {
		return err
	}

	retailers, err := json.Marshal(next.Retailers)
	if err != nil {
		return fmt.Errorf("marshal retailers for %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE catalog_records
		SET title = ?, image = ?, weight = ?, weight_unit = ?, retailers = ?
		WHERE id = ?`,
		next.Title, next.Image, next.Weight, next.WeightUnit, string(retailers), id,
	); err != nil {
		return fmt.Errorf("exec update for %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *sqlBackend) delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM catalog_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlBackend) list(ctx context.Context) ([]types.CatalogRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM catalog_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	var out []types.CatalogRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (s *sqlBackend) close() error {
	return s.db.Close()
}
