package spinwheel

import (
	"context"
	"errors"
	"time"
)

// Ledger enforces one spin per participant on top of a LedgerStore.
// Uniqueness itself is the store's job; the ledger turns the store's conflict
// errors into the register-or-resume and commit-once protocol.
type Ledger struct {
	store   LedgerStore
	logger  Logger
	monitor *LedgerMonitor

	resolveAttempts int
	now             func() time.Time
}

// NewLedger creates a ledger over store
func NewLedger(store LedgerStore, logger Logger) *Ledger {
	if logger == nil {
		logger = NewSilentLogger()
	}
	return &Ledger{
		store:           store,
		logger:          logger,
		monitor:         NewLedgerMonitor(),
		resolveAttempts: DefaultConflictResolveAttempts,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Monitor returns the ledger's metrics collector
func (l *Ledger) Monitor() *LedgerMonitor { return l.monitor }

// RegisterOrResume resolves contactKey to a participant, creating one when the
// key has never been seen. A returned Registration with ExistingOutcome set
// means the participant has already played and must not spin again.
//
// A concurrent creation for the same key is resolved by re-reading the store;
// ErrDuplicateKeyConflict is only returned when the winning record still
// cannot be read back.
func (l *Ledger) RegisterOrResume(
	ctx context.Context,
	contactKey, displayName string,
	contact ContactDetails,
) (*Registration, error) {
	if contactKey == "" {
		return nil, ErrInvalidContactKey
	}

	var conflict error
	for attempt := 0; attempt <= l.resolveAttempts; attempt++ {
		existing, err := l.store.FindParticipant(ctx, contactKey)
		if err != nil {
			l.monitor.RecordStoreError()
			return nil, err
		}
		if existing != nil {
			if conflict != nil {
				l.monitor.RecordKeyConflict(true)
				l.logger.Debug("Resolved concurrent registration of %s by re-reading", contactKey)
			}
			return l.resume(ctx, existing)
		}
		if conflict != nil {
			// the winner is not visible yet; back off before reading again
			if err := sleepContext(ctx, backoffDelay(DefaultRetryInterval, attempt)); err != nil {
				return nil, ErrStoreUnavailable.WithOperation("register").WithCause(err)
			}
			continue
		}

		created, err := l.store.CreateParticipant(ctx, &Participant{
			ID:           newParticipantID(),
			ContactKey:   contactKey,
			DisplayName:  displayName,
			Contact:      contact,
			RegisteredAt: l.now(),
		})
		if err == nil {
			reg := &Registration{IsNewParticipant: true, Participant: created}
			l.monitor.RecordRegistration(reg)
			l.logger.Info("Registered participant %s", created.ID)
			return reg, nil
		}
		if !errors.Is(err, ErrDuplicateKeyConflict) {
			l.monitor.RecordStoreError()
			return nil, err
		}
		conflict = err
	}

	l.monitor.RecordKeyConflict(false)
	l.logger.Warn("Could not resolve concurrent registration of %s", contactKey)
	return nil, ErrDuplicateKeyConflict.WithDetails(contactKey).WithCause(conflict)
}

func (l *Ledger) resume(ctx context.Context, p *Participant) (*Registration, error) {
	outcome, err := l.store.FindOutcome(ctx, p.ID)
	if err != nil {
		l.monitor.RecordStoreError()
		return nil, err
	}
	reg := &Registration{Participant: p, ExistingOutcome: outcome}
	l.monitor.RecordRegistration(reg)
	return reg, nil
}

// Outcome returns the participant's committed outcome, or nil.
func (l *Ledger) Outcome(ctx context.Context, participantID string) (*SpinOutcome, error) {
	if participantID == "" {
		return nil, ErrParticipantNotFound
	}
	outcome, err := l.store.FindOutcome(ctx, participantID)
	if err != nil {
		l.monitor.RecordStoreError()
		return nil, err
	}
	return outcome, nil
}

// CommitOutcome records reward as the participant's single outcome.
//
// When an outcome already exists the stored record is left untouched and
// returned together with an ErrAlreadyCommitted error, so callers can show
// what was actually recorded. The returned outcome may be nil if the stored
// record could not be read back.
func (l *Ledger) CommitOutcome(ctx context.Context, participantID string, reward Reward) (*SpinOutcome, error) {
	if participantID == "" {
		return nil, ErrParticipantNotFound
	}
	if err := reward.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	stored, err := l.store.CreateOutcome(ctx, &SpinOutcome{
		ParticipantID: participantID,
		RewardName:    reward.Name,
		RewardWeight:  reward.Weight,
		AwardedAt:     l.now(),
	})
	l.monitor.RecordCommit(err, time.Since(start))

	switch {
	case err == nil:
		l.logger.Info("Committed outcome %q for participant %s", stored.RewardName, participantID)
		return stored, nil
	case errors.Is(err, ErrAlreadyCommitted):
		existing, findErr := l.store.FindOutcome(ctx, participantID)
		if findErr != nil {
			l.logger.Warn("Outcome for participant %s already committed but unreadable: %v", participantID, findErr)
			return nil, err
		}
		l.logger.Info("Outcome for participant %s was already committed", participantID)
		return existing, err
	default:
		l.monitor.RecordStoreError()
		return nil, err
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
