package store

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MemoryStore keeps everything in maps. Default for development and tests;
// all data is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	players  map[string]Player
	tables   map[string]TableRecord
	sessions map[string]string // token -> player id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players:  make(map[string]Player),
		tables:   make(map[string]TableRecord),
		sessions: make(map[string]string),
	}
}

func (s *MemoryStore) RegisterPlayer(name, password string) (Player, string, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.players[name]; exists {
		return Player{}, "", ErrNameTaken
	}
	p := Player{ID: name, PasswordHash: string(hash)}
	s.players[name] = p
	token := uuid.NewString()
	s.sessions[token] = name
	return p, token, nil
}

func (s *MemoryStore) Login(name, password string) (Player, string, error) {
	name = normalizeName(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	p, exists := s.players[name]
	if !exists {
		return Player{}, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return Player{}, "", ErrInvalidCredentials
	}
	token := uuid.NewString()
	s.sessions[token] = name
	return p, token, nil
}

func (s *MemoryStore) ResolveSession(token string) (Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.sessions[token]
	if !ok {
		return Player{}, false
	}
	p, ok := s.players[id]
	return p, ok
}

func (s *MemoryStore) Logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func (s *MemoryStore) GetPlayer(id string) (Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[normalizeName(id)]
	if !ok {
		return Player{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) UpdatePlayerFlags(p Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.players[p.ID]
	if !ok {
		return ErrNotFound
	}
	stored.IsAdmin = p.IsAdmin
	stored.AllowsSpectators = p.AllowsSpectators
	stored.IsSpectatorOnly = p.IsSpectatorOnly
	s.players[p.ID] = stored
	return nil
}

func (s *MemoryStore) SetPassword(id, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[normalizeName(id)]
	if !ok {
		return ErrNotFound
	}
	p.PasswordHash = string(hash)
	s.players[p.ID] = p
	return nil
}

func (s *MemoryStore) SaveTable(rec TableRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Order = append([]string(nil), rec.Order...)
	s.tables[rec.ID] = rec
	return nil
}

func (s *MemoryStore) LoadTable(id string) (TableRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.tables[id]
	if !ok {
		return TableRecord{}, ErrNotFound
	}
	rec.Order = append([]string(nil), rec.Order...)
	return rec, nil
}

func (s *MemoryStore) ListTables() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tables))
	for id := range s.tables {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) DeleteTable(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validateName(name string) error {
	if len(name) < 2 || len(name) > 32 {
		return ErrInvalidCredentials
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 4 {
		return ErrInvalidCredentials
	}
	return nil
}
