package engine

import (
	"errors"
	"fmt"
)

// RejectQuota counts rejected steps against max_rejects.
//
// Each run carries its own quota so a run whose handlers reject everything
// stops early. The campaign keeps a second quota that it charges in run
// order when committing results; that one decides exhaustion, so the
// verdict does not depend on how runs were scheduled.
type RejectQuota struct {
	limit   int
	current int
}

// NewRejectQuota creates a quota allowing limit rejections.
func NewRejectQuota(limit int) *RejectQuota {
	return &RejectQuota{limit: limit}
}

// Check charges one rejection. It returns RejectsExceededError once the
// count goes past the limit.
func (q *RejectQuota) Check(run int) error {
	q.current++
	if q.current > q.limit {
		return &RejectsExceededError{
			Run:     run,
			Rejects: q.current,
			Limit:   q.limit,
		}
	}
	return nil
}

// Current returns the number of rejections charged.
func (q *RejectQuota) Current() int {
	return q.current
}

// Limit returns max_rejects.
func (q *RejectQuota) Limit() int {
	return q.limit
}

// RejectsExceededError is returned when rejections exceed max_rejects.
type RejectsExceededError struct {
	Run     int // Run in which the limit was crossed
	Rejects int // Rejections counted so far
	Limit   int // max_rejects
}

// Error implements the error interface.
func (e *RejectsExceededError) Error() string {
	return fmt.Sprintf("run %d exceeded max rejects: %d rejects > %d limit",
		e.Run, e.Rejects, e.Limit)
}

// IsRejectsExceededError returns true if the error is a RejectsExceededError.
// Uses errors.As to handle wrapped errors.
func IsRejectsExceededError(err error) bool {
	var re *RejectsExceededError
	return errors.As(err, &re)
}
