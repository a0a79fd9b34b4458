// Package lobby keeps the registry of live table sessions. Tables come into
// being on first reference and are retired by a janitor once nobody has been
// connected for the configured idle time.
package lobby

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HenriWahl/doko3000/internal/codec"
	"github.com/HenriWahl/doko3000/internal/store"
	"github.com/HenriWahl/doko3000/internal/table"
)

const janitorInterval = time.Minute

// Registry owns all running table sessions.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*table.Session

	store    store.Service
	cfg      table.Config
	idleTTL  time.Duration
	logger   *zap.Logger
	send     func(playerID string, data []byte)
	announce func(data []byte)

	done     chan struct{}
	stopOnce sync.Once
}

// New creates the registry and starts its janitor. send delivers a message to
// one connected player, announce fans a message out to every connected client.
func New(st store.Service, cfg table.Config, idleTTL time.Duration,
	send func(playerID string, data []byte), announce func(data []byte), logger *zap.Logger) *Registry {

	r := &Registry{
		tables:   make(map[string]*table.Session),
		store:    st,
		cfg:      cfg,
		idleTTL:  idleTTL,
		logger:   logger.Named("lobby"),
		send:     send,
		announce: announce,
		done:     make(chan struct{}),
	}
	go r.janitor()
	return r
}

// GetOrCreate returns the session for a table id, creating and announcing it
// when the id has not been seen before.
func (r *Registry) GetOrCreate(id string) *table.Session {
	r.mu.RLock()
	s, ok := r.tables[id]
	r.mu.RUnlock()
	if ok && !s.IsClosed() {
		return s
	}

	r.mu.Lock()
	s, ok = r.tables[id]
	if ok && !s.IsClosed() {
		r.mu.Unlock()
		return s
	}
	s = table.New(id, r.cfg, r.store, r.send, r.logger)
	r.tables[id] = s
	r.mu.Unlock()

	r.logger.Info("table created", zap.String("table", id))
	r.announceTables()
	return s
}

// Get returns a running session or nil.
func (r *Registry) Get(id string) *table.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.tables[id]; ok && !s.IsClosed() {
		return s
	}
	return nil
}

// Tables lists all known table ids, running and persisted.
func (r *Registry) Tables() []string {
	seen := make(map[string]bool)

	r.mu.RLock()
	for id, s := range r.tables {
		if !s.IsClosed() {
			seen[id] = true
		}
	}
	r.mu.RUnlock()

	if persisted, err := r.store.ListTables(); err == nil {
		for _, id := range persisted {
			seen[id] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) announceTables() {
	data, err := codec.Marshal(codec.EventNewTableAvailable, codec.NewTableAvailable{
		Tables: r.Tables(),
	})
	if err != nil {
		r.logger.Error("marshaling table announcement failed", zap.Error(err))
		return
	}
	r.announce(data)
}

// Stop shuts the janitor and every session down.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.tables {
		s.Stop()
		delete(r.tables, id)
	}
}

func (r *Registry) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.done:
			return
		}
	}
}

// sweep retires sessions nobody has been connected to for idleTTL. The
// persisted table record survives, so the table resumes on next reference.
func (r *Registry) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.tables {
		if s.IsIdleFor(r.idleTTL) {
			s.Stop()
			delete(r.tables, id)
			r.logger.Info("idle table retired", zap.String("table", id))
		}
	}
}
