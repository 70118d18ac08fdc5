package postgresql

import (
	"context"
	"fmt"

	"github.com/gocheck/attendance-backend/internal/pkg/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS shifts (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name TEXT NOT NULL,
	start_time TIME NOT NULL,
	end_time TIME NOT NULL,
	break1_minutes INTEGER NOT NULL DEFAULT 0 CHECK (break1_minutes >= 0),
	break2_minutes INTEGER NOT NULL DEFAULT 0 CHECK (break2_minutes >= 0),
	allow_combined_breaks BOOLEAN NOT NULL DEFAULT FALSE,
	-- bit n set = time.Weekday(n) is worked, 0 = every day
	work_days SMALLINT NOT NULL DEFAULT 0 CHECK (work_days BETWEEN 0 AND 127),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

ALTER TABLE shifts ADD COLUMN IF NOT EXISTS work_days SMALLINT NOT NULL DEFAULT 0;

CREATE TABLE IF NOT EXISTS employees (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	code TEXT NOT NULL UNIQUE,
	full_name TEXT NOT NULL,
	shift_id UUID REFERENCES shifts(id),
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendance_records (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	employee_id UUID NOT NULL REFERENCES employees(id),
	work_date DATE NOT NULL,
	entry_at TIMESTAMPTZ,
	break1_start_at TIMESTAMPTZ,
	break1_end_at TIMESTAMPTZ,
	break2_start_at TIMESTAMPTZ,
	break2_end_at TIMESTAMPTZ,
	exit_at TIMESTAMPTZ,
	status TEXT NOT NULL DEFAULT 'ABSENT',
	notes TEXT NOT NULL DEFAULT '',
	version INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (employee_id, work_date)
);

CREATE INDEX IF NOT EXISTS idx_attendance_records_work_date
	ON attendance_records(work_date);

CREATE TABLE IF NOT EXISTS attendance_justifications (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	attendance_id UUID NOT NULL REFERENCES attendance_records(id) ON DELETE CASCADE,
	reason TEXT NOT NULL,
	approver_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_attendance_justifications_attendance
	ON attendance_justifications(attendance_id);
`

// Migrate creates the schema when it does not exist yet.
func Migrate(ctx context.Context, db *database.DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
