package store

import "fmt"

const (
	ModeMemory   = "memory"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"
)

// New builds a store for the configured mode.
func New(mode, path, dsn string) (Service, error) {
	switch mode {
	case "", ModeMemory:
		return NewMemoryStore(), nil
	case ModeSQLite:
		return NewSQLiteStore(path)
	case ModePostgres, "postgresql":
		return NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("invalid store mode %q (supported: %s, %s, %s)",
			mode, ModeMemory, ModeSQLite, ModePostgres)
	}
}
