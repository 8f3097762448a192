// Package session handles persistent session storage using SQLite.
//
// The store is the single source of truth for conversation context and
// message history. A message, once appended, is retrievable in insertion
// order on every subsequent read within the process.
package session

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	// SQLite driver (required for database/sql registration).
	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/CHULJU-KIM/Excelly/internal/errors"
)

// Session identifies one user conversation.
type Session struct {
	ID            string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Filename      string
	SelectedSheet string
	FileContent   []byte
	ContextBlob   []byte
}

// Message is one turn in a session. Immutable once written.
type Message struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Info is the listing view of a session.
type Info struct {
	ID           string    `json:"session_id"`
	FirstMessage string    `json:"first_message"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store manages the session database.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at the given path, creating the file
// and tables if they don't exist.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id             TEXT PRIMARY KEY,
		created_at     INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at     INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		filename       TEXT NOT NULL DEFAULT '',
		selected_sheet TEXT NOT NULL DEFAULT '',
		file_content   BLOB,
		context_json   TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC);

	CREATE TABLE IF NOT EXISTS messages (
		id            TEXT PRIMARY KEY,
		session_id    TEXT NOT NULL,
		role          TEXT NOT NULL,
		content       TEXT NOT NULL,
		created_at    INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		metadata_json TEXT,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, rowid);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Create creates a new session. An empty id generates one.
// Returns the session id.
func (s *Store) Create(id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO sessions (id) VALUES (?)`, id)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeSessionStore, "failed to create session", apperrors.CategorySystem)
	}
	return id, nil
}

// Get returns a session by id.
func (s *Store) Get(id string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, updated_at, filename, selected_sheet, file_content, context_json
		FROM sessions WHERE id = ?`, id)

	var sess Session
	var created, updated int64
	var fileContent []byte
	var contextJSON sql.NullString

	err := row.Scan(&sess.ID, &created, &updated, &sess.Filename, &sess.SelectedSheet, &fileContent, &contextJSON)
	if err == sql.ErrNoRows {
		return nil, apperrors.User(apperrors.CodeSessionNotFound, "session not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSessionStore, "failed to load session", apperrors.CategorySystem)
	}

	sess.CreatedAt = time.Unix(created, 0)
	sess.UpdatedAt = time.Unix(updated, 0)
	sess.FileContent = fileContent
	if contextJSON.Valid {
		sess.ContextBlob = []byte(contextJSON.String)
	}
	return &sess, nil
}

// Exists reports whether the session id is known.
func (s *Store) Exists(id string) bool {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&one)
	return err == nil
}

// SaveFile caches uploaded file bytes and filename on the session.
func (s *Store) SaveFile(id, filename string, content []byte) error {
	return s.update(id, `UPDATE sessions SET filename = ?, file_content = ?, updated_at = strftime('%s','now') WHERE id = ?`,
		filename, content, id)
}

// SelectSheet records the user's sheet selection.
func (s *Store) SelectSheet(id, sheet string) error {
	return s.update(id, `UPDATE sessions SET selected_sheet = ?, updated_at = strftime('%s','now') WHERE id = ?`,
		sheet, id)
}

// SaveContext persists the conversation-state blob.
func (s *Store) SaveContext(id string, blob []byte) error {
	return s.update(id, `UPDATE sessions SET context_json = ?, updated_at = strftime('%s','now') WHERE id = ?`,
		string(blob), id)
}

func (s *Store) update(id, query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeSessionStore, "failed to update session", apperrors.CategorySystem)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.User(apperrors.CodeSessionNotFound, "session not found")
	}
	return nil
}

// AppendMessage appends one turn to the session's message log.
// Metadata may be nil; otherwise it is stored as JSON.
func (s *Store) AppendMessage(id, role, content string, metadata any) error {
	if !s.Exists(id) {
		return apperrors.User(apperrors.CodeSessionNotFound, "session not found")
	}

	var metaJSON sql.NullString
	if metadata != nil {
		data, err := json.Marshal(metadata)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeSessionStore, "failed to encode metadata", apperrors.CategorySystem)
		}
		metaJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO messages (id, session_id, role, content, metadata_json)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), id, role, content, metaJSON)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeSessionStore, "failed to append message", apperrors.CategorySystem)
	}

	if _, err := s.db.Exec(`UPDATE sessions SET updated_at = strftime('%s','now') WHERE id = ?`, id); err != nil {
		return apperrors.Wrap(err, apperrors.CodeSessionStore, "failed to touch session", apperrors.CategorySystem)
	}
	return nil
}

// Messages returns all messages of a session in insertion order.
func (s *Store) Messages(id string) ([]Message, error) {
	if !s.Exists(id) {
		return nil, apperrors.User(apperrors.CodeSessionNotFound, "session not found")
	}

	rows, err := s.db.Query(`
		SELECT id, session_id, role, content, created_at, metadata_json
		FROM messages WHERE session_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSessionStore, "failed to load messages", apperrors.CategorySystem)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var created int64
		var metaJSON sql.NullString
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &created, &metaJSON); err != nil {
			return nil, err
		}
		m.CreatedAt = time.Unix(created, 0)
		if metaJSON.Valid {
			m.Metadata = json.RawMessage(metaJSON.String)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// List returns every session, most recently updated first.
func (s *Store) List() ([]Info, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.updated_at,
		       COALESCE((SELECT content FROM messages WHERE session_id = s.id ORDER BY rowid LIMIT 1), ''),
		       (SELECT COUNT(*) FROM messages WHERE session_id = s.id)
		FROM sessions s ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSessionStore, "failed to list sessions", apperrors.CategorySystem)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var info Info
		var updated int64
		if err := rows.Scan(&info.ID, &updated, &info.FirstMessage, &info.MessageCount); err != nil {
			return nil, err
		}
		info.UpdatedAt = time.Unix(updated, 0)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes a session and its messages.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeSessionStore, "failed to delete session", apperrors.CategorySystem)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.User(apperrors.CodeSessionNotFound, "session not found")
	}
	return nil
}

// DeleteAll removes every session and message.
func (s *Store) DeleteAll() error {
	_, err := s.db.Exec(`DELETE FROM sessions`)
	return err
}

// ClearMessages removes a session's messages and conversation context
// but keeps the session itself.
func (s *Store) ClearMessages(id string) error {
	if !s.Exists(id) {
		return apperrors.User(apperrors.CodeSessionNotFound, "session not found")
	}
	if _, err := s.db.Exec(`DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		return apperrors.Wrap(err, apperrors.CodeSessionStore, "failed to clear messages", apperrors.CategorySystem)
	}
	_, err := s.db.Exec(`
		UPDATE sessions SET context_json = NULL, updated_at = strftime('%s','now') WHERE id = ?`, id)
	return err
}

// Cleanup deletes sessions idle longer than the given duration.
// Returns how many were removed.
func (s *Store) Cleanup(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan).Unix()
	res, err := s.db.Exec(`DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Stats returns session and message counts.
func (s *Store) Stats() (sessions, messages int, err error) {
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&sessions); err != nil {
		return 0, 0, err
	}
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&messages); err != nil {
		return 0, 0, err
	}
	return sessions, messages, nil
}
