package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
//
// The uniqueness constraints carry the domain invariants: one
// membership per (group, user), one contribution per (round, user),
// one payout per round, contiguous round numbers per group, and -- via
// the partial index on group_rounds -- at most one open round per
// group. Concurrent writers that race past the application-level
// checks are serialized here.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    user_code TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    full_name TEXT NOT NULL,
    phone TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS marup_groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    contribution_amount REAL NOT NULL CHECK (contribution_amount > 0),
    max_members INTEGER NOT NULL CHECK (max_members >= 2),
    duration_months INTEGER NOT NULL CHECK (duration_months >= 1),
    cadence_days INTEGER NOT NULL DEFAULT 30,
    owner_id TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    group_code TEXT NOT NULL UNIQUE,
    current_round_id TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    has_won INTEGER NOT NULL DEFAULT 0,
    joined_at INTEGER NOT NULL,
    UNIQUE (group_id, user_id),
    FOREIGN KEY (group_id) REFERENCES marup_groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS group_rounds (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    round_number INTEGER NOT NULL,
    started_at INTEGER NOT NULL,
    due_date INTEGER NOT NULL,
    completed INTEGER NOT NULL DEFAULT 0,
    total_amount REAL NOT NULL DEFAULT 0,
    winner_user_id TEXT NOT NULL DEFAULT '',
    UNIQUE (group_id, round_number),
    FOREIGN KEY (group_id) REFERENCES marup_groups(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_one_open_round_per_group
    ON group_rounds(group_id) WHERE completed = 0;

CREATE TABLE IF NOT EXISTS contributions (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    round_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    amount REAL NOT NULL CHECK (amount > 0),
    contributed_at INTEGER NOT NULL,
    UNIQUE (round_id, user_id),
    FOREIGN KEY (group_id) REFERENCES marup_groups(id) ON DELETE CASCADE,
    FOREIGN KEY (round_id) REFERENCES group_rounds(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS payouts (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    round_id TEXT NOT NULL UNIQUE,
    user_id TEXT NOT NULL,
    amount REAL NOT NULL,
    paid_at INTEGER NOT NULL,
    FOREIGN KEY (group_id) REFERENCES marup_groups(id) ON DELETE CASCADE,
    FOREIGN KEY (round_id) REFERENCES group_rounds(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS join_requests (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (group_id) REFERENCES marup_groups(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_one_active_join_request
    ON join_requests(group_id, user_id) WHERE status != 'rejected';

CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    read INTEGER NOT NULL DEFAULT 0,
    payload TEXT NOT NULL DEFAULT '{}',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS monthly_notifications (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    notification_month INTEGER NOT NULL,
    notification_year INTEGER NOT NULL,
    sent_at INTEGER NOT NULL,
    UNIQUE (group_id, notification_month, notification_year),
    FOREIGN KEY (group_id) REFERENCES marup_groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    sender_id TEXT NOT NULL,
    message_type TEXT NOT NULL,
    group_id TEXT NOT NULL DEFAULT '',
    recipient_id TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS payments (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    stripe_session_id TEXT NOT NULL DEFAULT '',
    amount REAL NOT NULL,
    payment_month INTEGER NOT NULL,
    payment_year INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at INTEGER NOT NULL,
    paid_at INTEGER NOT NULL DEFAULT 0,
    UNIQUE (user_id, group_id, payment_month, payment_year),
    FOREIGN KEY (group_id) REFERENCES marup_groups(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_group_members_group_id ON group_members(group_id);
CREATE INDEX IF NOT EXISTS idx_group_rounds_group_id ON group_rounds(group_id);
CREATE INDEX IF NOT EXISTS idx_group_rounds_due ON group_rounds(due_date) WHERE completed = 0;
CREATE INDEX IF NOT EXISTS idx_contributions_round_id ON contributions(round_id);
CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);
CREATE INDEX IF NOT EXISTS idx_messages_group_id ON messages(group_id);
CREATE INDEX IF NOT EXISTS idx_payments_session ON payments(stripe_session_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
