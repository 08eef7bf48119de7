package store

import "github.com/google/uuid"

// IDGenerator produces campaign ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 ids.
//
// Campaign ids are not content addressed: two campaigns with the same seed
// are still two executions. Their outcomes compare equal through
// Campaign.ResultID instead.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
