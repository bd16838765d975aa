package domain

import "time"

// Rating represents the canonical rating entity in the database/service.
// Nullable columns map to pointer fields; a nil MovieID means the rating is
// not linked to an external movie record.
type Rating struct {
	ID           string
	MovieID      *string
	MovieTitle   string
	Value        float32
	CreatedBy    *string
	LastEditedBy *string
	IsActive     bool
	CreatedAt    time.Time
	LastEditedAt time.Time
}
