package spinwheel

import (
	"context"
	"time"
)

// LedgerStore is the persistent store behind the participant ledger.
// Implementations must enforce uniqueness of contact keys and of outcomes per
// participant, and reads must observe every previously completed write.
type LedgerStore interface {
	// FindParticipant returns the participant with the contact key, or nil when absent
	FindParticipant(ctx context.Context, contactKey string) (*Participant, error)

	// CreateParticipant stores a new participant, or fails with ErrDuplicateKeyConflict
	CreateParticipant(ctx context.Context, p *Participant) (*Participant, error)

	// FindOutcome returns the participant's outcome, or nil when none was committed
	FindOutcome(ctx context.Context, participantID string) (*SpinOutcome, error)

	// CreateOutcome stores the participant's outcome, or fails with ErrAlreadyCommitted
	CreateOutcome(ctx context.Context, o *SpinOutcome) (*SpinOutcome, error)
}

// SpinLocker hands out per-participant spin leases so only one session at a
// time can run a spin for a participant.
type SpinLocker interface {
	// TryAcquire returns a release token when the lease was granted
	TryAcquire(ctx context.Context, participantID string, ttl time.Duration) (token string, ok bool, err error)

	// Refresh extends the lease owned by token to ttl, or takes it again with
	// the same token when it has expired and nobody else holds it. ok is
	// false when another token holds the lease.
	Refresh(ctx context.Context, participantID, token string, ttl time.Duration) (ok bool, err error)

	// Release frees the lease if token still owns it
	Release(ctx context.Context, participantID, token string) error
}

// Scheduler runs f once after d. It stands in for the animation timer.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// Logger defines the interface for logging operations
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// TimerScheduler schedules through time.AfterFunc
type TimerScheduler struct{}

// AfterFunc implements Scheduler.
func (TimerScheduler) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }
