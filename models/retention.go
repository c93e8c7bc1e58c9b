package models

import "time"

// CleanupLease marks a cleanup run in progress for one tenant.
type CleanupLease struct {
	AcquiredAt time.Time `json:"acquiredAt"`
	AcquiredBy string    `json:"acquiredBy"`
	MaxAgeMs   int64     `json:"maxAgeMs"`
}

// Stale reports whether the lease may be ignored.
func (l CleanupLease) Stale(now time.Time) bool {
	return now.Sub(l.AcquiredAt) > time.Duration(l.MaxAgeMs)*time.Millisecond
}

// RetentionState is the per-tenant record owned by the retention engine.
type RetentionState struct {
	TenantID        string        `json:"tenantId"`
	LastCleanupDate string        `json:"lastCleanupDate,omitempty"`
	Lock            *CleanupLease `json:"cleanupLock,omitempty"`
}

// CleanupResult is returned by a cleanup run.
type CleanupResult struct {
	DeletedBookings                int    `json:"deletedBookings"`
	DeletedArchivedServiceTypeDocs int    `json:"deletedArchivedServiceTypeDocs"`
	Iterations                     int    `json:"iterations"`
	DryRun                         bool   `json:"dryRun"`
	BeforeDate                     string `json:"beforeDate"`
	DefaultedStatuses              int    `json:"defaultedStatuses,omitempty"`
}

const (
	EnsureReasonAlreadyRan = "already_ran_today"
	EnsureReasonLocked     = "locked"
)

// EnsureDailyResult is returned by the daily trigger.
type EnsureDailyResult struct {
	Ran    bool           `json:"ran"`
	Reason string         `json:"reason,omitempty"`
	Result *CleanupResult `json:"result,omitempty"`
}
