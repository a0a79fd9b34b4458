package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

const sqliteOpTimeout = 5 * time.Second

// SQLiteStore persists players and table configuration in a local sqlite
// database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS players (
    id TEXT PRIMARY KEY,
    password_hash TEXT NOT NULL,
    is_admin INTEGER NOT NULL DEFAULT 0,
    allows_spectators INTEGER NOT NULL DEFAULT 0,
    is_spectator_only INTEGER NOT NULL DEFAULT 0,
    created_at_ms INTEGER NOT NULL,
    updated_at_ms INTEGER NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS game_tables (
    id TEXT PRIMARY KEY,
    seat_order TEXT NOT NULL DEFAULT '[]',
    locked INTEGER NOT NULL DEFAULT 0,
    with_nines INTEGER NOT NULL DEFAULT 1,
    allow_undo INTEGER NOT NULL DEFAULT 1,
    allow_exchange INTEGER NOT NULL DEFAULT 0,
    updated_at_ms INTEGER NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS sessions (
    token TEXT PRIMARY KEY,
    player_id TEXT NOT NULL,
    issued_at_ms INTEGER NOT NULL,
    FOREIGN KEY(player_id) REFERENCES players(id) ON DELETE CASCADE
)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_player ON sessions(player_id)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) RegisterPlayer(name, password string) (Player, string, error) {
	name = normalizeName(name)
	if err := validateName(name); err != nil {
		return Player{}, "", err
	}
	if err := validatePassword(password); err != nil {
		return Player{}, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Player{}, "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()
	nowMs := time.Now().UTC().UnixMilli()
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO players (id, password_hash, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?)
`, name, string(hash), nowMs, nowMs); err != nil {
		if isSQLiteUniqueViolation(err) {
			return Player{}, "", ErrNameTaken
		}
		return Player{}, "", err
	}

	token, err := s.issueSession(ctx, name, nowMs)
	if err != nil {
		return Player{}, "", err
	}
	return Player{ID: name, PasswordHash: string(hash)}, token, nil
}

func (s *SQLiteStore) Login(name, password string) (Player, string, error) {
	name = normalizeName(name)

	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()
	p, err := s.getPlayer(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Player{}, "", ErrInvalidCredentials
		}
		return Player{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return Player{}, "", ErrInvalidCredentials
	}
	token, err := s.issueSession(ctx, name, time.Now().UTC().UnixMilli())
	if err != nil {
		return Player{}, "", err
	}
	return p, token, nil
}

func (s *SQLiteStore) issueSession(ctx context.Context, playerID string, nowMs int64) (string, error) {
	token := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (token, player_id, issued_at_ms)
VALUES (?, ?, ?)
`, token, playerID, nowMs); err != nil {
		return "", err
	}
	return token, nil
}

func (s *SQLiteStore) ResolveSession(token string) (Player, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Player{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	var playerID string
	err := s.db.QueryRowContext(ctx, `
SELECT player_id FROM sessions WHERE token = ?
`, token).Scan(&playerID)
	if err != nil {
		return Player{}, false
	}
	p, err := s.getPlayer(ctx, playerID)
	if err != nil {
		return Player{}, false
	}
	return p, true
}

func (s *SQLiteStore) Logout(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()
	_, _ = s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
}

func (s *SQLiteStore) GetPlayer(id string) (Player, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()
	return s.getPlayer(ctx, normalizeName(id))
}

func (s *SQLiteStore) getPlayer(ctx context.Context, id string) (Player, error) {
	var p Player
	var isAdmin, allowsSpectators, spectatorOnly int
	err := s.db.QueryRowContext(ctx, `
SELECT id, password_hash, is_admin, allows_spectators, is_spectator_only
FROM players
WHERE id = ?
`, id).Scan(&p.ID, &p.PasswordHash, &isAdmin, &allowsSpectators, &spectatorOnly)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Player{}, ErrNotFound
		}
		return Player{}, err
	}
	p.IsAdmin = isAdmin != 0
	p.AllowsSpectators = allowsSpectators != 0
	p.IsSpectatorOnly = spectatorOnly != 0
	return p, nil
}

func (s *SQLiteStore) UpdatePlayerFlags(p Player) error {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()
	res, err := s.db.ExecContext(ctx, `
UPDATE players
SET is_admin = ?, allows_spectators = ?, is_spectator_only = ?, updated_at_ms = ?
WHERE id = ?
`, boolToInt(p.IsAdmin), boolToInt(p.AllowsSpectators), boolToInt(p.IsSpectatorOnly),
		time.Now().UTC().UnixMilli(), p.ID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (s *SQLiteStore) SetPassword(id, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()
	res, err := s.db.ExecContext(ctx, `
UPDATE players SET password_hash = ?, updated_at_ms = ? WHERE id = ?
`, string(hash), time.Now().UTC().UnixMilli(), normalizeName(id))
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (s *SQLiteStore) SaveTable(rec TableRecord) error {
	order, err := json.Marshal(rec.Order)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO game_tables (id, seat_order, locked, with_nines, allow_undo, allow_exchange, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    seat_order = excluded.seat_order,
    locked = excluded.locked,
    with_nines = excluded.with_nines,
    allow_undo = excluded.allow_undo,
    allow_exchange = excluded.allow_exchange,
    updated_at_ms = excluded.updated_at_ms
`, rec.ID, string(order), boolToInt(rec.Locked), boolToInt(rec.WithNines),
		boolToInt(rec.AllowUndo), boolToInt(rec.AllowExchange), time.Now().UTC().UnixMilli())
	return err
}

func (s *SQLiteStore) LoadTable(id string) (TableRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	var rec TableRecord
	var order string
	var locked, withNines, allowUndo, allowExchange int
	err := s.db.QueryRowContext(ctx, `
SELECT id, seat_order, locked, with_nines, allow_undo, allow_exchange
FROM game_tables
WHERE id = ?
`, id).Scan(&rec.ID, &order, &locked, &withNines, &allowUndo, &allowExchange)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TableRecord{}, ErrNotFound
		}
		return TableRecord{}, err
	}
	if err := json.Unmarshal([]byte(order), &rec.Order); err != nil {
		return TableRecord{}, fmt.Errorf("decode seat order of table %s: %w", id, err)
	}
	rec.Locked = locked != 0
	rec.WithNines = withNines != 0
	rec.AllowUndo = allowUndo != 0
	rec.AllowExchange = allowExchange != 0
	return rec, nil
}

func (s *SQLiteStore) ListTables() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM game_tables ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) DeleteTable(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `DELETE FROM game_tables WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isSQLiteUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
