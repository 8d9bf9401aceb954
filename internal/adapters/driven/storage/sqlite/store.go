package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/inlet/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.inlet/data/inlet.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".inlet", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "inlet.db")

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ConnectionStore returns a ConnectionStore interface backed by this store.
func (s *Store) ConnectionStore() driven.ConnectionStore {
	return &connectionStore{store: s}
}

// SyncStateStore returns a SyncStateStore interface backed by this store.
func (s *Store) SyncStateStore() driven.SyncStateStore {
	return &syncStateStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Connection Store ====================

// connectionStore implements driven.ConnectionStore.
type connectionStore struct {
	store *Store
}

var _ driven.ConnectionStore = (*connectionStore)(nil)

// Save stores or updates a connection.
func (s *connectionStore) Save(ctx context.Context, conn domain.Connection) error {
	if conn.ID == "" || conn.UserID == "" {
		return domain.ErrInvalidInput
	}

	tokenJSON, err := json.Marshal(conn.Token)
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	scopesJSON, err := json.Marshal(conn.Scopes)
	if err != nil {
		return fmt.Errorf("marshalling scopes: %w", err)
	}
	configJSON, err := json.Marshal(conn.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	now := time.Now().UTC()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO connections (id, user_id, provider, account_identifier, token, scopes, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, provider) DO UPDATE SET
			id = excluded.id,
			account_identifier = excluded.account_identifier,
			token = excluded.token,
			scopes = excluded.scopes,
			config = excluded.config,
			updated_at = excluded.updated_at
	`, conn.ID, conn.UserID, string(conn.Provider), nullString(conn.AccountIdentifier),
		string(tokenJSON), string(scopesJSON), string(configJSON),
		conn.CreatedAt, conn.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving connection: %w", err)
	}
	return nil
}

// Load retrieves the connection for (user, provider).
func (s *connectionStore) Load(ctx context.Context, key domain.ConnectionKey) (*domain.Connection, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, account_identifier, token, scopes, config, created_at, updated_at
		FROM connections WHERE user_id = ? AND provider = ?
	`, key.UserID, string(key.Provider))

	return scanConnection(row)
}

// Get retrieves a connection by ID.
func (s *connectionStore) Get(ctx context.Context, id string) (*domain.Connection, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, account_identifier, token, scopes, config, created_at, updated_at
		FROM connections WHERE id = ?
	`, id)

	return scanConnection(row)
}

// Delete removes the connection for (user, provider).
func (s *connectionStore) Delete(ctx context.Context, key domain.ConnectionKey) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM connections WHERE user_id = ? AND provider = ?",
		key.UserID, string(key.Provider))
	if err != nil {
		return fmt.Errorf("deleting connection: %w", err)
	}
	return nil
}

// List returns all stored connections.
func (s *connectionStore) List(ctx context.Context) ([]domain.Connection, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, user_id, provider, account_identifier, token, scopes, config, created_at, updated_at
		FROM connections
	`)
	if err != nil {
		return nil, fmt.Errorf("querying connections: %w", err)
	}
	defer rows.Close()

	var conns []domain.Connection //nolint:prealloc // size unknown from query
	for rows.Next() {
		conn, err := scanConnectionRows(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, *conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connections: %w", err)
	}

	return conns, nil
}

// ==================== Sync State Store ====================

// syncStateStore implements driven.SyncStateStore.
type syncStateStore struct {
	store *Store
}

var _ driven.SyncStateStore = (*syncStateStore)(nil)

// Save stores or updates sync state.
func (s *syncStateStore) Save(ctx context.Context, state domain.SyncState) error {
	versionsJSON, err := json.Marshal(state.Versions)
	if err != nil {
		return fmt.Errorf("marshalling versions: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sync_states (user_id, provider, scope, cursor, versions, last_sync)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, provider, scope) DO UPDATE SET
			cursor = excluded.cursor,
			versions = excluded.versions,
			last_sync = excluded.last_sync
	`, state.Key.UserID, string(state.Key.Provider), state.Key.Scope,
		state.Cursor, string(versionsJSON), state.LastSync)

	if err != nil {
		return fmt.Errorf("saving sync state: %w", err)
	}
	return nil
}

// Get retrieves sync state for a key.
func (s *syncStateStore) Get(ctx context.Context, key domain.SyncKey) (*domain.SyncState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT user_id, provider, scope, cursor, versions, last_sync
		FROM sync_states WHERE user_id = ? AND provider = ? AND scope = ?
	`, key.UserID, string(key.Provider), key.Scope)

	var state domain.SyncState
	var provider string
	var cursor, versionsJSON sql.NullString
	var lastSync sql.NullTime
	if err := row.Scan(&state.Key.UserID, &provider, &state.Key.Scope,
		&cursor, &versionsJSON, &lastSync); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning sync state: %w", err)
	}

	state.Key.Provider = domain.Provider(provider)
	state.Cursor = cursor.String
	if versionsJSON.Valid && versionsJSON.String != jsonNull && versionsJSON.String != "" {
		if err := json.Unmarshal([]byte(versionsJSON.String), &state.Versions); err != nil {
			return nil, fmt.Errorf("unmarshaling versions: %w", err)
		}
	}
	if lastSync.Valid {
		state.LastSync = lastSync.Time
	}

	return &state, nil
}

// Delete removes sync state for a key.
func (s *syncStateStore) Delete(ctx context.Context, key domain.SyncKey) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM sync_states WHERE user_id = ? AND provider = ? AND scope = ?",
		key.UserID, string(key.Provider), key.Scope)
	if err != nil {
		return fmt.Errorf("deleting sync state: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// scanConnection scans a single connection row.
func scanConnection(row *sql.Row) (*domain.Connection, error) {
	var conn domain.Connection
	var provider string
	var account, tokenJSON, scopesJSON, configJSON sql.NullString
	var createdAt, updatedAt sql.NullTime

	if err := row.Scan(&conn.ID, &conn.UserID, &provider, &account,
		&tokenJSON, &scopesJSON, &configJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning connection: %w", err)
	}

	if err := hydrateConnection(&conn, provider, account, tokenJSON, scopesJSON, configJSON, createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &conn, nil
}

// scanConnectionRows scans a connection from *sql.Rows.
func scanConnectionRows(rows *sql.Rows) (*domain.Connection, error) {
	var conn domain.Connection
	var provider string
	var account, tokenJSON, scopesJSON, configJSON sql.NullString
	var createdAt, updatedAt sql.NullTime

	if err := rows.Scan(&conn.ID, &conn.UserID, &provider, &account,
		&tokenJSON, &scopesJSON, &configJSON, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning connection: %w", err)
	}

	if err := hydrateConnection(&conn, provider, account, tokenJSON, scopesJSON, configJSON, createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &conn, nil
}

// hydrateConnection decodes the JSON columns into the domain struct.
func hydrateConnection(
	conn *domain.Connection,
	provider string,
	account, tokenJSON, scopesJSON, configJSON sql.NullString,
	createdAt, updatedAt sql.NullTime,
) error {
	conn.Provider = domain.Provider(provider)
	conn.AccountIdentifier = account.String

	if tokenJSON.Valid && tokenJSON.String != "" {
		if err := json.Unmarshal([]byte(tokenJSON.String), &conn.Token); err != nil {
			return fmt.Errorf("unmarshaling token: %w", err)
		}
	}
	if scopesJSON.Valid && scopesJSON.String != jsonNull && scopesJSON.String != "" {
		if err := json.Unmarshal([]byte(scopesJSON.String), &conn.Scopes); err != nil {
			return fmt.Errorf("unmarshaling scopes: %w", err)
		}
	}
	if configJSON.Valid && configJSON.String != jsonNull && configJSON.String != "" {
		if err := json.Unmarshal([]byte(configJSON.String), &conn.Config); err != nil {
			return fmt.Errorf("unmarshaling config: %w", err)
		}
	}
	if createdAt.Valid {
		conn.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		conn.UpdatedAt = updatedAt.Time
	}
	return nil
}
