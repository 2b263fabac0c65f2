package journal

import (
	"fmt"

	"mercator-hq/relay/pkg/config"
)

// Backend names accepted in journal.backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Open creates the store selected by cfg.
func Open(cfg config.JournalConfig) (Store, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryStore(cfg.Memory.Capacity), nil
	case BackendSQLite:
		s, err := NewSQLiteStore(cfg.SQLite)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported journal backend %q", cfg.Backend)
	}
}
