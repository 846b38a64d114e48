package config

import (
	"fmt"
	"strings"
)

// schema is applied in order. PRAGMA user_version records how many entries
// have run.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT ''
	)`,

	// v2: track when a setting last changed.
	`ALTER TABLE settings ADD COLUMN updated_at DATETIME`,
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.Get(&version, `PRAGMA user_version`); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for i := version; i < len(schema); i++ {
		if _, err := s.db.Exec(schema[i]); err != nil {
			// Databases created before user_version was tracked already have
			// the column.
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("migration %d failed: %w\nSQL: %s", i+1, err, schema[i])
			}
		}
		if _, err := s.db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			return fmt.Errorf("record schema version %d: %w", i+1, err)
		}
	}
	return nil
}

