package spinwheel

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Spin Lease Strategy:
// - Acquire: SET NX PX, single network call
// - Refresh: Lua script that extends the owner's lease, or re-takes an expired one
// - Release: Lua script so only the lease owner can delete it
// A lease that is never released expires after its TTL.

const (
	// releaseLockScript ensures only the lease owner can release the lease.
	releaseLockScript = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`

	// refreshLockScript extends the lease when token owns it and re-takes it
	// with the same token when it has expired.
	refreshLockScript = `
		local current = redis.call("GET", KEYS[1])
		if current == ARGV[1] then
			return redis.call("PEXPIRE", KEYS[1], ARGV[2])
		elseif not current then
			redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
			return 1
		else
			return 0
		end
	`
)

// SpinLockManager implements SpinLocker with Redis leases
type SpinLockManager struct {
	redisClient redis.UniversalClient
	keyPrefix   string
	logger      Logger

	monitor *LedgerMonitor
}

// NewSpinLockManager creates a new Redis spin lock manager
func NewSpinLockManager(redisClient redis.UniversalClient, keyPrefix string, logger Logger) *SpinLockManager {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = NewSilentLogger()
	}
	return &SpinLockManager{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		logger:      logger,
		monitor:     NewLedgerMonitor(),
	}
}

func (m *SpinLockManager) lockKey(participantID string) string {
	return m.keyPrefix + SpinLockKeySegment + participantID
}

// TryAcquire attempts to take the participant's spin lease once, without retries.
func (m *SpinLockManager) TryAcquire(ctx context.Context, participantID string, ttl time.Duration) (string, bool, error) {
	if participantID == "" {
		return "", false, ErrParticipantNotFound
	}
	if ttl <= 0 {
		ttl = DefaultSpinLockTTL
	}

	token := generateLockValue()
	start := time.Now()
	acquired, err := m.redisClient.SetNX(ctx, m.lockKey(participantID), token, ttl).Result()
	if err != nil {
		m.monitor.RecordStoreError()
		return "", false, ErrStoreUnavailable.WithOperation("acquire_spin_lock").WithCause(err)
	}
	m.monitor.RecordLockAcquisition(acquired, time.Since(start))
	if !acquired {
		m.logger.Debug("Spin lease for participant %s is held elsewhere", participantID)
		return "", false, nil
	}
	return token, true, nil
}

// Refresh extends the participant's spin lease for token, re-taking it if it
// expired in the meantime. It reports false when another token holds it.
func (m *SpinLockManager) Refresh(ctx context.Context, participantID, token string, ttl time.Duration) (bool, error) {
	if participantID == "" || token == "" {
		return false, ErrParticipantNotFound
	}
	if ttl <= 0 {
		ttl = DefaultSpinLockTTL
	}

	result, err := m.redisClient.Eval(ctx, refreshLockScript, []string{m.lockKey(participantID)}, token, ttl.Milliseconds()).Result()
	if err != nil {
		m.monitor.RecordStoreError()
		return false, ErrStoreUnavailable.WithOperation("refresh_spin_lock").WithCause(err)
	}
	if n, ok := result.(int64); ok && n == 1 {
		return true, nil
	}

	m.monitor.RecordLockAcquisition(false, 0)
	m.logger.Debug("Spin lease for participant %s was taken over by another session", participantID)
	return false, nil
}

// Release frees the participant's spin lease if token still owns it.
func (m *SpinLockManager) Release(ctx context.Context, participantID, token string) error {
	if participantID == "" || token == "" {
		return ErrParticipantNotFound
	}

	result, err := m.redisClient.Eval(ctx, releaseLockScript, []string{m.lockKey(participantID)}, token).Result()
	if err != nil {
		m.monitor.RecordStoreError()
		return ErrStoreUnavailable.WithOperation("release_spin_lock").WithCause(err)
	}
	if n, ok := result.(int64); ok && n == 1 {
		m.monitor.RecordLockRelease()
		return nil
	}

	// lease expired or was taken over; nothing to release
	m.logger.Debug("Spin lease for participant %s was no longer owned by %s", participantID, token)
	return nil
}

// Metrics returns a snapshot of lease statistics
func (m *SpinLockManager) Metrics() LedgerMetrics { return m.monitor.GetMetrics() }
