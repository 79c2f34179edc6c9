package spinwheel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis Ledger Layout:
// - <prefix>participant:<contactKey> -> Participant JSON, written with SET NX
// - <prefix>outcome:<participantID>  -> SpinOutcome JSON, written with SET NX
// Neither key expires. SET NX is what enforces one participant per contact key
// and one outcome per participant. Point the client at the primary: replica
// reads could miss a just-committed outcome.

// RedisStore is a LedgerStore backed by Redis
type RedisStore struct {
	client         redis.UniversalClient
	logger         Logger
	keyPrefix      string
	retryAttempts  int
	retryBaseDelay time.Duration
}

// NewRedisStore creates a Redis ledger store with default retry settings
func NewRedisStore(client redis.UniversalClient, logger Logger) *RedisStore {
	return NewRedisStoreWithRetry(client, logger, DefaultKeyPrefix, DefaultRetryAttempts, DefaultRetryInterval)
}

// NewRedisStoreWithRetry creates a Redis ledger store with custom key prefix and retry settings
func NewRedisStoreWithRetry(
	client redis.UniversalClient, logger Logger, keyPrefix string, retryAttempts int, retryDelay time.Duration,
) *RedisStore {
	if logger == nil {
		logger = NewSilentLogger()
	}
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client:         client,
		logger:         logger,
		keyPrefix:      keyPrefix,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryDelay,
	}
}

func (s *RedisStore) participantKey(contactKey string) string {
	return s.keyPrefix + ParticipantKeySegment + contactKey
}

func (s *RedisStore) outcomeKey(participantID string) string {
	return s.keyPrefix + OutcomeKeySegment + participantID
}

// executeWithRetry executes a Redis operation with retry logic using exponential backoff
func (s *RedisStore) executeWithRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	startTime := time.Now()

	for attempt := 0; attempt <= s.retryAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(s.retryBaseDelay, attempt)
			s.logger.Debug("Retrying %s operation (attempt %d/%d) after %v, total elapsed: %v",
				operation, attempt, s.retryAttempts, delay, time.Since(startTime))

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry for %s operation (attempt %d/%d): %w",
					operation, attempt, s.retryAttempts+1, ctx.Err())
			case <-time.After(delay):
			}
		}

		err := fn()
		if err == nil {
			if attempt > 0 {
				s.logger.Info("Completed %s operation after %d retries (total time: %v)",
					operation, attempt, time.Since(startTime))
			}
			return nil
		}

		lastErr = err
		if !IsRetryableError(err) {
			break
		}
		if attempt == s.retryAttempts {
			s.logger.Error("Final retry attempt failed for %s operation (attempt %d/%d): %v",
				operation, attempt+1, s.retryAttempts+1, err)
		}
	}

	return lastErr
}

func (s *RedisStore) getJSON(ctx context.Context, operation, key string, dst any) (bool, error) {
	var data []byte
	err := s.executeWithRetry(ctx, operation, func() error {
		var err error
		data, err = s.client.Get(ctx, key).Bytes()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, ErrStoreUnavailable.WithOperation(operation).WithCause(err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, ErrStoreUnavailable.WithOperation(operation).
			WithDetails("corrupted record at " + key).WithCause(err)
	}
	return true, nil
}

func (s *RedisStore) setNX(ctx context.Context, operation, key string, value any) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to serialize %s record: %w", operation, err)
	}

	var created bool
	err = s.executeWithRetry(ctx, operation, func() error {
		var err error
		created, err = s.client.SetNX(ctx, key, string(data), 0).Result()
		return err
	})
	if err != nil {
		return false, ErrStoreUnavailable.WithOperation(operation).WithCause(err)
	}
	return created, nil
}

// FindParticipant implements LedgerStore.
func (s *RedisStore) FindParticipant(ctx context.Context, contactKey string) (*Participant, error) {
	var p Participant
	found, err := s.getJSON(ctx, "find_participant", s.participantKey(contactKey), &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// CreateParticipant implements LedgerStore.
func (s *RedisStore) CreateParticipant(ctx context.Context, p *Participant) (*Participant, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	stored := *p
	if stored.RegisteredAt.IsZero() {
		stored.RegisteredAt = time.Now().UTC()
	}

	created, err := s.setNX(ctx, "create_participant", s.participantKey(stored.ContactKey), &stored)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrDuplicateKeyConflict.WithDetails(stored.ContactKey)
	}
	s.logger.Debug("Stored participant %s for %s", stored.ID, stored.ContactKey)
	return &stored, nil
}

// FindOutcome implements LedgerStore.
func (s *RedisStore) FindOutcome(ctx context.Context, participantID string) (*SpinOutcome, error) {
	var o SpinOutcome
	found, err := s.getJSON(ctx, "find_outcome", s.outcomeKey(participantID), &o)
	if err != nil || !found {
		return nil, err
	}
	return &o, nil
}

// CreateOutcome implements LedgerStore.
func (s *RedisStore) CreateOutcome(ctx context.Context, o *SpinOutcome) (*SpinOutcome, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	stored := *o

	created, err := s.setNX(ctx, "create_outcome", s.outcomeKey(stored.ParticipantID), &stored)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrAlreadyCommitted.WithDetails(stored.ParticipantID)
	}
	s.logger.Debug("Stored outcome %q for participant %s", stored.RewardName, stored.ParticipantID)
	return &stored, nil
}

// Ping checks connectivity to Redis
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return ErrStoreUnavailable.WithOperation("ping").WithCause(err)
	}
	return nil
}
