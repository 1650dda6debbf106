package infra

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

// EncryptedStore implements domain.KeyValueStore using a SQLCipher
// encrypted SQLite database.
type EncryptedStore struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedStore opens (or creates) the encrypted database at dbPath.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedStore(dbPath string, key []byte) (*EncryptedStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	keyHex := hex.EncodeToString(key)

	// Open with SQLCipher key as DSN parameter
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// One connection: settings writes are tiny and must not interleave.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	s := &EncryptedStore{db: db, dbPath: dbPath}

	// A wrong key only surfaces on the first real read.
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables (wrong key?): %w", err)
	}

	return s, nil
}

func (s *EncryptedStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the value stored under key.
func (s *EncryptedStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores value under key.
func (s *EncryptedStore) Set(key string, value []byte) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO settings (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, time.Now().Unix())
	return err
}

// Delete removes key.
func (s *EncryptedStore) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}

// Path returns the database file path.
func (s *EncryptedStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *EncryptedStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// OpenStore opens the encrypted store under paths, creating the key on
// first use. Any failure falls back to an in-memory store so enforcement
// still runs; the returned bool reports whether the store is persistent.
func OpenStore(paths Paths, provider domain.KeyProvider, logger *zap.Logger) (domain.KeyValueStore, bool) {
	key, err := EnsureKey(provider)
	if err != nil {
		logger.Warn("encryption key unavailable, settings will not persist", zap.Error(err))
		return NewMemoryStore(), false
	}

	store, err := NewEncryptedStore(paths.StorePath, key)
	if err != nil {
		logger.Warn("failed to open settings store, settings will not persist",
			zap.String("path", paths.StorePath),
			zap.Error(err))
		return NewMemoryStore(), false
	}
	return store, true
}

// Ensure EncryptedStore implements domain.KeyValueStore.
var _ domain.KeyValueStore = (*EncryptedStore)(nil)
