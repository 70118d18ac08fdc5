package employee

import "time"

type Employee struct {
	ID        string
	Code      string // scanned badge code, unique
	FullName  string
	ShiftID   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
