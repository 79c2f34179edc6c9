package spinwheel

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process LedgerStore. It enforces the same uniqueness
// rules as the networked stores and is meant for tests, demos and single-booth
// setups that do not need durability.
type MemoryStore struct {
	mu           sync.RWMutex
	participants map[string]Participant // by contact key
	outcomes     map[string]SpinOutcome // by participant ID
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		participants: make(map[string]Participant),
		outcomes:     make(map[string]SpinOutcome),
	}
}

// FindParticipant implements LedgerStore.
func (s *MemoryStore) FindParticipant(ctx context.Context, contactKey string) (*Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrStoreUnavailable.WithCause(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[contactKey]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// CreateParticipant implements LedgerStore.
func (s *MemoryStore) CreateParticipant(ctx context.Context, p *Participant) (*Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrStoreUnavailable.WithCause(err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.participants[p.ContactKey]; exists {
		return nil, ErrDuplicateKeyConflict.WithDetails(p.ContactKey)
	}
	stored := *p
	if stored.RegisteredAt.IsZero() {
		stored.RegisteredAt = time.Now().UTC()
	}
	s.participants[stored.ContactKey] = stored
	return &stored, nil
}

// FindOutcome implements LedgerStore.
func (s *MemoryStore) FindOutcome(ctx context.Context, participantID string) (*SpinOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrStoreUnavailable.WithCause(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.outcomes[participantID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

// CreateOutcome implements LedgerStore.
func (s *MemoryStore) CreateOutcome(ctx context.Context, o *SpinOutcome) (*SpinOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrStoreUnavailable.WithCause(err)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.outcomes[o.ParticipantID]; exists {
		return nil, ErrAlreadyCommitted.WithDetails(o.ParticipantID)
	}
	stored := *o
	s.outcomes[stored.ParticipantID] = stored
	return &stored, nil
}

// Len returns the number of participants and outcomes held.
func (s *MemoryStore) Len() (participants, outcomes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants), len(s.outcomes)
}

// MemoryLocker is an in-process SpinLocker
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]memoryLease
	now    func() time.Time
}

type memoryLease struct {
	token   string
	expires time.Time
}

// NewMemoryLocker creates an in-process spin locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: make(map[string]memoryLease), now: time.Now}
}

// TryAcquire implements SpinLocker.
func (l *MemoryLocker) TryAcquire(ctx context.Context, participantID string, ttl time.Duration) (string, bool, error) {
	if participantID == "" {
		return "", false, ErrParticipantNotFound
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if lease, held := l.leases[participantID]; held && now.Before(lease.expires) {
		return "", false, nil
	}
	token := generateLockValue()
	l.leases[participantID] = memoryLease{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

// Refresh implements SpinLocker.
func (l *MemoryLocker) Refresh(ctx context.Context, participantID, token string, ttl time.Duration) (bool, error) {
	if participantID == "" || token == "" {
		return false, ErrParticipantNotFound
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if lease, held := l.leases[participantID]; held && lease.token != token && now.Before(lease.expires) {
		return false, nil
	}
	l.leases[participantID] = memoryLease{token: token, expires: now.Add(ttl)}
	return true, nil
}

// Release implements SpinLocker.
func (l *MemoryLocker) Release(ctx context.Context, participantID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lease, held := l.leases[participantID]; held && lease.token == token {
		delete(l.leases, participantID)
	}
	return nil
}
