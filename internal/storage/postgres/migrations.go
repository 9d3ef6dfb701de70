package postgres

import (
	"context"
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    class TEXT NOT NULL DEFAULT '',
    section TEXT NOT NULL DEFAULT '',
    discount NUMERIC(12, 2) NOT NULL DEFAULT 0 CHECK (discount >= 0)
);

CREATE TABLE IF NOT EXISTS fee_challans (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL,
    month TEXT NOT NULL,
    month_index SMALLINT NOT NULL CHECK (month_index BETWEEN 1 AND 12),
    year INTEGER NOT NULL,
    tuition_fee NUMERIC(12, 2) NOT NULL CHECK (tuition_fee >= 0),
    exam_fee NUMERIC(12, 2) NOT NULL CHECK (exam_fee >= 0),
    misc_fee NUMERIC(12, 2) NOT NULL CHECK (misc_fee >= 0),
    arrears NUMERIC(12, 2) NOT NULL CHECK (arrears >= 0),
    discount NUMERIC(12, 2) NOT NULL CHECK (discount >= 0),
    total_amount NUMERIC(12, 2) NOT NULL CHECK (total_amount >= 0),
    remaining_balance NUMERIC(12, 2) NOT NULL CHECK (remaining_balance >= 0 AND remaining_balance <= total_amount),
    status TEXT NOT NULL CHECK (status IN ('pending', 'overdue', 'paid')),
    due_date DATE NOT NULL,
    generated_date TIMESTAMPTZ NOT NULL,
    paid_date TIMESTAMPTZ,
    sent_to_whatsapp BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL,
    version BIGINT NOT NULL DEFAULT 1,
    CONSTRAINT fee_challans_paid_iff_zero CHECK ((status = 'paid') = (remaining_balance = 0))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_fee_challans_student_period ON fee_challans (student_id, year, month_index);
CREATE INDEX IF NOT EXISTS idx_fee_challans_status_due ON fee_challans (status, due_date);
`

// runMigrations executes the schema setup.
func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
