package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

const (
	maxRetries  = 5
	initialWait = 100 * time.Millisecond
	busyTimeout = 5000 // milliseconds
)

type dialect struct {
	name   string
	schema string
	upsert string
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: `CREATE TABLE IF NOT EXISTS kv_store (
    kv_key TEXT PRIMARY KEY,
    kv_value BLOB NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
)`,
	upsert: `INSERT INTO kv_store (kv_key, kv_value, created_at, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(kv_key) DO UPDATE SET kv_value = excluded.kv_value, updated_at = excluded.updated_at`,
}

var mysqlDialect = dialect{
	name: "mysql",
	schema: `CREATE TABLE IF NOT EXISTS kv_store (
    kv_key VARCHAR(255) PRIMARY KEY,
    kv_value LONGBLOB NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
)`,
	upsert: `INSERT INTO kv_store (kv_key, kv_value, created_at, updated_at) VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE kv_value = VALUES(kv_value), updated_at = VALUES(updated_at)`,
}

// SQL is a Store backed by a single kv_store table.
type SQL struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQLite opens (or creates) the sqlite database at dsn. A bare file path
// is opened in WAL mode with a busy timeout.
func OpenSQLite(dsn string) (*SQL, error) {
	if dsn == "" {
		return nil, errors.New("kv: sqlite dsn is empty")
	}

	if !strings.HasPrefix(dsn, "file:") {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", dsn, busyTimeout)
	}

	return openSQL(sqliteDialect, dsn)
}

// OpenMySQL connects to the MySQL server described by dsn,
// e.g. "user:pass@tcp(127.0.0.1:3306)/todoboard".
func OpenMySQL(dsn string) (*SQL, error) {
	if dsn == "" {
		return nil, errors.New("kv: mysql dsn is empty")
	}

	return openSQL(mysqlDialect, dsn)
}

func openSQL(d dialect, dsn string) (*SQL, error) {
	db, err := sql.Open(d.name, dsn)
	if err != nil {
		return nil, fmt.Errorf("kv: open %s: %w", d.name, err)
	}

	s := &SQL{db: db, dialect: d}

	ctx := context.Background()

	if err := s.pingWithRetry(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kv: init schema: %w", err)
	}

	return s, nil
}

func (s *SQL) pingWithRetry(ctx context.Context) error {
	var err error

	wait := initialWait
	for i := 0; i < maxRetries; i++ {
		if err = s.db.PingContext(ctx); err == nil {
			return nil
		}

		if i < maxRetries-1 {
			time.Sleep(wait)
			wait *= 2
		}
	}

	return fmt.Errorf("kv: ping %s after %d retries: %w", s.dialect.name, maxRetries, err)
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := s.db.QueryRowContext(ctx, `SELECT kv_value FROM kv_store WHERE kv_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %q: %w", key, err)
	}

	return value, nil
}

func (s *SQL) Put(ctx context.Context, key string, value []byte) error {
	now := time.Now().UnixNano()

	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, key, value, now, now); err != nil {
		return fmt.Errorf("kv put %q: %w", key, err)
	}

	return nil
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE kv_key = ?`, key); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}

	return nil
}

func (s *SQL) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kv_key FROM kv_store WHERE kv_key LIKE ? ESCAPE '!'`,
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("kv list %q: %w", prefix, err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("kv list %q: %w", prefix, err)
		}
		// LIKE is case-insensitive on both backends
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kv list %q: %w", prefix, err)
	}

	// collations differ between backends; sort by bytes
	sort.Strings(keys)

	return keys, nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
