package spinwheel

import "time"

const (
	// DefaultKeyPrefix is the prefix for every Redis key written by the ledger
	DefaultKeyPrefix = "spinwheel:"

	// ParticipantKeySegment keys a participant record by its contact key
	ParticipantKeySegment = "participant:"

	// OutcomeKeySegment keys a spin outcome by participant ID
	OutcomeKeySegment = "outcome:"

	// SpinLockKeySegment keys the spin lease of a participant
	SpinLockKeySegment = "lock:spin:"

	// DefaultRetryAttempts is the default number of retry attempts for store reads
	DefaultRetryAttempts = 3

	// DefaultRetryInterval is the base interval between retry attempts
	DefaultRetryInterval = 100 * time.Millisecond

	// MaxRetryAttempts is the maximum number of retry attempts allowed
	MaxRetryAttempts = 10

	// MaxRetryDelay caps the exponential backoff between retries
	MaxRetryDelay = 5 * time.Second

	// DefaultConflictResolveAttempts bounds re-querying after a DuplicateKeyConflict
	DefaultConflictResolveAttempts = 3

	// DefaultCommitTimeout bounds the post-animation outcome write
	DefaultCommitTimeout = 5 * time.Second
)

const (
	// DefaultSpinDuration is how long the wheel animation runs before the outcome is committed
	DefaultSpinDuration = 4500 * time.Millisecond

	// DefaultMinExtraTurns is the minimum number of cosmetic full turns
	DefaultMinExtraTurns = 5

	// DefaultMaxExtraTurns is the maximum number of cosmetic full turns
	DefaultMaxExtraTurns = 7

	// DefaultSpinLockTTL is how long a spin lease is held when not released explicitly
	DefaultSpinLockTTL = 30 * time.Second

	// MinSpinLockTTL is the minimum spin lease TTL allowed
	MinSpinLockTTL = 1 * time.Second

	// MaxSpinLockTTL is the maximum spin lease TTL allowed
	MaxSpinLockTTL = 5 * time.Minute

	// DefaultSessionTTL is how long an idle session stays addressable
	DefaultSessionTTL = 30 * time.Minute

	// FullTurnDegrees is one full rotation of the wheel
	FullTurnDegrees = 360.0
)

const (
	// DefaultCircuitBreakerName is the default name for Circuit Breaker
	DefaultCircuitBreakerName = "spinwheel-ledger"

	// DefaultCircuitBreakerMaxRequests is the default max requests
	DefaultCircuitBreakerMaxRequests = 3

	// DefaultCircuitBreakerInterval is the default interval
	DefaultCircuitBreakerInterval = 60 * time.Second

	// DefaultCircuitBreakerTimeout is the default timeout
	DefaultCircuitBreakerTimeout = 30 * time.Second

	// DefaultCircuitBreakerFailureRatio is the default failure ratio
	DefaultCircuitBreakerFailureRatio = 0.6

	// DefaultCircuitBreakerMinRequests is the default min requests
	DefaultCircuitBreakerMinRequests = 3

	// DefaultCircuitBreakerOnStateChange is the default on state change
	DefaultCircuitBreakerOnStateChange = true
)

const (
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPassword     = ""
	DefaultRedisDB           = 0
	DefaultRedisPoolSize     = 50
	DefaultRedisMinIdleConns = 10
	DefaultRedisMaxRetries   = 3
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
	DefaultRedisPoolTimeout  = 4 * time.Second
)

const (
	DefaultPostgresDSN          = "postgres://localhost:5432/spinwheel?sslmode=disable"
	DefaultPostgresMaxOpenConns = 10
	DefaultPostgresMaxIdleConns = 5
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	DefaultServerAddr = ":8080"
)
