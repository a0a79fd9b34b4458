package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

const postgresOpTimeout = 5 * time.Second

// PostgresStore persists players and table configuration in postgres,
// for multi-instance or managed deployments.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensurePostgresSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func ensurePostgresSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS players (
    id TEXT PRIMARY KEY,
    password_hash TEXT NOT NULL,
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    allows_spectators BOOLEAN NOT NULL DEFAULT FALSE,
    is_spectator_only BOOLEAN NOT NULL DEFAULT FALSE,
    created_at_ms BIGINT NOT NULL,
    updated_at_ms BIGINT NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS game_tables (
    id TEXT PRIMARY KEY,
    seat_order TEXT NOT NULL DEFAULT '[]',
    locked BOOLEAN NOT NULL DEFAULT FALSE,
    with_nines BOOLEAN NOT NULL DEFAULT TRUE,
    allow_undo BOOLEAN NOT NULL DEFAULT TRUE,
    allow_exchange BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at_ms BIGINT NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS sessions (
    token TEXT PRIMARY KEY,
    player_id TEXT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
    issued_at_ms BIGINT NOT NULL
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

func (s *PostgresStore) RegisterPlayer(name, password string) (Player, string, error) {
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

	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()
	nowMs := time.Now().UTC().UnixMilli()
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO players (id, password_hash, created_at_ms, updated_at_ms)
VALUES ($1, $2, $3, $4)
`, name, string(hash), nowMs, nowMs); err != nil {
		if isPostgresUniqueViolation(err) {
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

func (s *PostgresStore) Login(name, password string) (Player, string, error) {
	name = normalizeName(name)

	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
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

func (s *PostgresStore) issueSession(ctx context.Context, playerID string, nowMs int64) (string, error) {
	token := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (token, player_id, issued_at_ms)
VALUES ($1, $2, $3)
`, token, playerID, nowMs); err != nil {
		return "", err
	}
	return token, nil
}

func (s *PostgresStore) ResolveSession(token string) (Player, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Player{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()

	var playerID string
	err := s.db.QueryRowContext(ctx, `
SELECT player_id FROM sessions WHERE token = $1
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

func (s *PostgresStore) Logout(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()
	_, _ = s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
}

func (s *PostgresStore) GetPlayer(id string) (Player, error) {
	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()
	return s.getPlayer(ctx, normalizeName(id))
}

func (s *PostgresStore) getPlayer(ctx context.Context, id string) (Player, error) {
	var p Player
	err := s.db.QueryRowContext(ctx, `
SELECT id, password_hash, is_admin, allows_spectators, is_spectator_only
FROM players
WHERE id = $1
`, id).Scan(&p.ID, &p.PasswordHash, &p.IsAdmin, &p.AllowsSpectators, &p.IsSpectatorOnly)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Player{}, ErrNotFound
		}
		return Player{}, err
	}
	return p, nil
}

func (s *PostgresStore) UpdatePlayerFlags(p Player) error {
	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()
	res, err := s.db.ExecContext(ctx, `
UPDATE players
SET is_admin = $1, allows_spectators = $2, is_spectator_only = $3, updated_at_ms = $4
WHERE id = $5
`, p.IsAdmin, p.AllowsSpectators, p.IsSpectatorOnly, time.Now().UTC().UnixMilli(), p.ID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (s *PostgresStore) SetPassword(id, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()
	res, err := s.db.ExecContext(ctx, `
UPDATE players SET password_hash = $1, updated_at_ms = $2 WHERE id = $3
`, string(hash), time.Now().UTC().UnixMilli(), normalizeName(id))
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (s *PostgresStore) SaveTable(rec TableRecord) error {
	order, err := json.Marshal(rec.Order)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO game_tables (id, seat_order, locked, with_nines, allow_undo, allow_exchange, updated_at_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    seat_order = EXCLUDED.seat_order,
    locked = EXCLUDED.locked,
    with_nines = EXCLUDED.with_nines,
    allow_undo = EXCLUDED.allow_undo,
    allow_exchange = EXCLUDED.allow_exchange,
    updated_at_ms = EXCLUDED.updated_at_ms
`, rec.ID, string(order), rec.Locked, rec.WithNines, rec.AllowUndo, rec.AllowExchange,
		time.Now().UTC().UnixMilli())
	return err
}

func (s *PostgresStore) LoadTable(id string) (TableRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()

	var rec TableRecord
	var order string
	err := s.db.QueryRowContext(ctx, `
SELECT id, seat_order, locked, with_nines, allow_undo, allow_exchange
FROM game_tables
WHERE id = $1
`, id).Scan(&rec.ID, &order, &rec.Locked, &rec.WithNines, &rec.AllowUndo, &rec.AllowExchange)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TableRecord{}, ErrNotFound
		}
		return TableRecord{}, err
	}
	if err := json.Unmarshal([]byte(order), &rec.Order); err != nil {
		return TableRecord{}, fmt.Errorf("decode seat order of table %s: %w", id, err)
	}
	return rec, nil
}

func (s *PostgresStore) ListTables() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
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

func (s *PostgresStore) DeleteTable(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `DELETE FROM game_tables WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
