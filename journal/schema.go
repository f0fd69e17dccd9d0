package journal

// Schema is applied on every Open; all statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS prices (
	ticker TEXT NOT NULL,
	date TEXT NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	PRIMARY KEY (ticker, date)
);

CREATE TABLE IF NOT EXISTS price_series (
	ticker TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	bars INTEGER NOT NULL,
	first_date TEXT NOT NULL,
	last_date TEXT NOT NULL,
	fetched_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS strategies (
	id TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	params TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	owner TEXT NOT NULL,
	name TEXT NOT NULL,
	strategy_id TEXT NOT NULL,
	ticker TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	frequency INTEGER NOT NULL,
	commission REAL NOT NULL,
	engine_state TEXT NOT NULL,
	opt_values TEXT,
	stats TEXT,
	permanent INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (owner, name)
);

CREATE TABLE IF NOT EXISTS trades (
	owner TEXT NOT NULL,
	session TEXT NOT NULL,
	seq INTEGER NOT NULL,
	side TEXT NOT NULL,
	units REAL NOT NULL,
	entry_bar INTEGER NOT NULL,
	exit_bar INTEGER NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	open_time TEXT NOT NULL,
	close_time TEXT NOT NULL,
	realized_pl REAL NOT NULL,
	return_pct REAL NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY (owner, session, seq),
	FOREIGN KEY (owner, session) REFERENCES sessions(owner, name)
		ON DELETE CASCADE ON UPDATE CASCADE
);

CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_owner_permanent ON sessions(owner, permanent);
`
