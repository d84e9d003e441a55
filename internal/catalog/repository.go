package catalog

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var (
	ErrVersionNotFound = errors.New("catalog version not found")
	ErrVersionConflict = errors.New("catalog version already stored with different content")
)

// Repository keeps published catalog versions in SQLite. Versions are
// append-only: a version string maps to exactly one table set forever.
type Repository struct {
	db    *sqlx.DB
	clock func() time.Time
}

type VersionInfo struct {
	Version   string    `json:"version"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

// createdLayout is fixed width so created_at sorts lexically.
const createdLayout = "2006-01-02T15:04:05.000000000Z"

const repositorySchema = `
CREATE TABLE IF NOT EXISTS catalog_versions (
	version    TEXT PRIMARY KEY,
	checksum   TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

type versionRow struct {
	Version   string `db:"version"`
	Checksum  string `db:"checksum"`
	Body      string `db:"body"`
	CreatedAt string `db:"created_at"`
}

// OpenRepository opens (or creates) the catalog database at dbPath. A nil
// clock uses time.Now.
func OpenRepository(dbPath string, clock func() time.Time) (*Repository, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(repositorySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if clock == nil {
		clock = time.Now
	}
	return &Repository{db: db, clock: clock}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Save publishes c under its version. Saving identical content again is a
// no-op; saving different content under an existing version fails with
// ErrVersionConflict.
func (r *Repository) Save(c *Catalog) (VersionInfo, error) {
	if err := c.Validate(); err != nil {
		return VersionInfo{}, fmt.Errorf("invalid catalog: %w", err)
	}
	body, err := json.Marshal(c)
	if err != nil {
		return VersionInfo{}, fmt.Errorf("marshal catalog: %w", err)
	}
	sum := sha256.Sum256(body)
	checksum := hex.EncodeToString(sum[:])

	tx, err := r.db.Beginx()
	if err != nil {
		return VersionInfo{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var existing versionRow
	err = tx.Get(&existing, `SELECT version, checksum, body, created_at FROM catalog_versions WHERE version = ?`, c.Version)
	switch {
	case err == nil:
		if existing.Checksum != checksum {
			return VersionInfo{}, fmt.Errorf("%w: %s", ErrVersionConflict, c.Version)
		}
		return existing.info()
	case !errors.Is(err, sql.ErrNoRows):
		return VersionInfo{}, fmt.Errorf("lookup version: %w", err)
	}

	now := r.clock().UTC()
	if _, err := tx.Exec(`INSERT INTO catalog_versions (version, checksum, body, created_at) VALUES (?, ?, ?, ?)`,
		c.Version, checksum, string(body), now.Format(createdLayout)); err != nil {
		return VersionInfo{}, fmt.Errorf("insert version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return VersionInfo{}, fmt.Errorf("commit: %w", err)
	}
	return VersionInfo{Version: c.Version, Checksum: checksum, CreatedAt: now}, nil
}

func (r *Repository) Load(version string) (*Catalog, error) {
	var row versionRow
	err := r.db.Get(&row, `SELECT version, checksum, body, created_at FROM catalog_versions WHERE version = ?`, version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, version)
	}
	if err != nil {
		return nil, fmt.Errorf("load version: %w", err)
	}
	return row.catalog()
}

// Latest returns the most recently published catalog.
func (r *Repository) Latest() (*Catalog, error) {
	var row versionRow
	err := r.db.Get(&row, `SELECT version, checksum, body, created_at FROM catalog_versions ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load latest: %w", err)
	}
	return row.catalog()
}

// Versions lists published versions oldest first.
func (r *Repository) Versions() ([]VersionInfo, error) {
	var rows []versionRow
	if err := r.db.Select(&rows, `SELECT version, checksum, '' AS body, created_at FROM catalog_versions ORDER BY created_at ASC, rowid ASC`); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	out := make([]VersionInfo, 0, len(rows))
	for _, row := range rows {
		info, err := row.info()
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func (row versionRow) info() (VersionInfo, error) {
	createdAt, err := time.Parse(createdLayout, row.CreatedAt)
	if err != nil {
		return VersionInfo{}, fmt.Errorf("parse created_at for %s: %w", row.Version, err)
	}
	return VersionInfo{Version: row.Version, Checksum: row.Checksum, CreatedAt: createdAt}, nil
}

func (row versionRow) catalog() (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal([]byte(row.Body), &c); err != nil {
		return nil, fmt.Errorf("decode version %s: %w", row.Version, err)
	}
	c.fillKeys()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("stored version %s invalid: %w", row.Version, err)
	}
	return &c, nil
}
