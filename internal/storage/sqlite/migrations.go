package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Amounts are stored as TEXT so decimals round-trip exactly.
// Timestamps are Unix nanoseconds; due_date is YYYY-MM-DD so it compares lexically.
const schema = `
CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    class TEXT NOT NULL DEFAULT '',
    section TEXT NOT NULL DEFAULT '',
    discount TEXT NOT NULL DEFAULT '0'
);

CREATE TABLE IF NOT EXISTS fee_challans (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL,
    month TEXT NOT NULL,
    month_index INTEGER NOT NULL CHECK (month_index BETWEEN 1 AND 12),
    year INTEGER NOT NULL,
    tuition_fee TEXT NOT NULL,
    exam_fee TEXT NOT NULL,
    misc_fee TEXT NOT NULL,
    arrears TEXT NOT NULL,
    discount TEXT NOT NULL,
    total_amount TEXT NOT NULL,
    remaining_balance TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('pending', 'overdue', 'paid')),
    due_date TEXT NOT NULL,
    generated_date INTEGER NOT NULL,
    paid_date INTEGER,
    sent_to_whatsapp INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    version INTEGER NOT NULL DEFAULT 1
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_fee_challans_student_period ON fee_challans(student_id, year, month_index);
CREATE INDEX IF NOT EXISTS idx_fee_challans_status_due ON fee_challans(status, due_date);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
