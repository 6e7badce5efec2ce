package storage

func (d *DatabaseStorage) getMySQLSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			username VARCHAR(255) NOT NULL DEFAULT '',
			password TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_users_email (email)
		) ENGINE=InnoDB`,

		`CREATE TABLE IF NOT EXISTS password_resets (
			token_hash CHAR(64) NOT NULL,
			email VARCHAR(255) NOT NULL,
			created_at BIGINT NOT NULL,
			PRIMARY KEY (token_hash, email),
			INDEX idx_password_resets_email (email),
			INDEX idx_password_resets_created_at (created_at)
		) ENGINE=InnoDB`,

		`CREATE TABLE IF NOT EXISTS security_events (
			id VARCHAR(32) PRIMARY KEY,
			category VARCHAR(100) NOT NULL,
			signature VARCHAR(100) NOT NULL,
			raw_value TEXT,
			attribute VARCHAR(255),
			created_at BIGINT NOT NULL,
			INDEX idx_security_events_category (category),
			INDEX idx_security_events_created_at (created_at)
		) ENGINE=InnoDB`,
	}
}

func (d *DatabaseStorage) getPostgreSQLSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			username VARCHAR(255) NOT NULL DEFAULT '',
			password TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS password_resets (
			token_hash CHAR(64) NOT NULL,
			email VARCHAR(255) NOT NULL,
			created_at BIGINT NOT NULL,
			PRIMARY KEY (token_hash, email)
		)`,

		`CREATE TABLE IF NOT EXISTS security_events (
			id VARCHAR(32) PRIMARY KEY,
			category VARCHAR(100) NOT NULL,
			signature VARCHAR(100) NOT NULL,
			raw_value TEXT,
			attribute VARCHAR(255),
			created_at BIGINT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_password_resets_email ON password_resets(email)`,
		`CREATE INDEX IF NOT EXISTS idx_password_resets_created_at ON password_resets(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_security_events_category ON security_events(category)`,
		`CREATE INDEX IF NOT EXISTS idx_security_events_created_at ON security_events(created_at)`,
	}
}

func (d *DatabaseStorage) getSQLiteSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			password TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS password_resets (
			token_hash TEXT NOT NULL,
			email TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (token_hash, email)
		)`,

		`CREATE TABLE IF NOT EXISTS security_events (
			id TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			signature TEXT NOT NULL,
			raw_value TEXT,
			attribute TEXT,
			created_at INTEGER NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_password_resets_email ON password_resets(email)`,
		`CREATE INDEX IF NOT EXISTS idx_password_resets_created_at ON password_resets(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_security_events_category ON security_events(category)`,
		`CREATE INDEX IF NOT EXISTS idx_security_events_created_at ON security_events(created_at)`,
	}
}
