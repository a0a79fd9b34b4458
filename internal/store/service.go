package store

import "errors"

// Player is a registered participant. The id doubles as the display name,
// stable across reconnects.
type Player struct {
	ID               string
	PasswordHash     string
	IsAdmin          bool
	AllowsSpectators bool
	IsSpectatorOnly  bool
}

// TableRecord is the persisted configuration of a table: seating order and
// rule flags. Live round state is never persisted, a table always restarts
// in dealing mode.
type TableRecord struct {
	ID            string
	Order         []string
	Locked        bool
	WithNines     bool
	AllowUndo     bool
	AllowExchange bool
}

var (
	ErrNameTaken          = errors.New("player name already taken")
	ErrInvalidCredentials = errors.New("invalid name or password")
	ErrNotFound           = errors.New("record not found")
)

// Service is the persistence contract consumed by gateway and lobby.
type Service interface {
	// RegisterPlayer creates a player with a bcrypt-hashed password and
	// returns a session token.
	RegisterPlayer(name, password string) (Player, string, error)
	// Login verifies credentials and issues a session token.
	Login(name, password string) (Player, string, error)
	// ResolveSession maps a session token to its player.
	ResolveSession(token string) (Player, bool)
	Logout(token string)

	GetPlayer(id string) (Player, error)
	// UpdatePlayerFlags persists the role flags of a player.
	UpdatePlayerFlags(p Player) error
	// SetPassword replaces a player's password.
	SetPassword(id, password string) error

	SaveTable(rec TableRecord) error
	LoadTable(id string) (TableRecord, error)
	ListTables() ([]string, error)
	DeleteTable(id string) error

	Close() error
}
