package migrations

func init() {
	Register(Migration{
		Version: 1,
		Name:    "initial_schema",
		Up:      initialSchema,
	})
}

func initialSchema(db Execer) error {
	return execAll(db,
		// Web sessions, with encrypted portal credentials
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			token_hash TEXT UNIQUE NOT NULL,
			username TEXT,
			encrypted_credentials TEXT,
			expires_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_used_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at)`,

		// One row per booking run
		`CREATE TABLE IF NOT EXISTS booking_attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT UNIQUE NOT NULL,
			request TEXT NOT NULL,
			criteria_json TEXT,
			state TEXT NOT NULL DEFAULT 'not_logged_in',
			outcome_kind TEXT,
			detail_json TEXT,
			error TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_booking_attempts_created ON booking_attempts(created_at DESC)`,
	)
}
