package spinwheel

import (
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Booth wires the reward table, wheel geometry, ledger and spin leases
// together and hands out sessions. Settings changed on a booth only affect
// sessions created afterwards.
type Booth struct {
	table     RewardTable
	mapper    *AngleMapper
	ledger    *Ledger
	locker    SpinLocker
	validator *validator.Validate

	mu            sync.RWMutex // 保护以下可变设置
	selector      *RewardSelector
	turnsSource   RandomSource
	scheduler     Scheduler
	logger        Logger
	minTurns      int
	maxTurns      int
	spinDuration  time.Duration
	spinLockTTL   time.Duration
	commitTimeout time.Duration
	onSuccess     func(SessionView)
}

// NewBooth creates a booth with default timings. A nil locker falls back to
// an in-process MemoryLocker, which is only correct for a single booth process.
func NewBooth(table RewardTable, ledger *Ledger, locker SpinLocker) (*Booth, error) {
	if table.Len() == 0 {
		return nil, ErrEmptyRewardTable
	}
	if ledger == nil {
		return nil, ErrConfigInvalid.WithDetails("ledger is required")
	}
	if locker == nil {
		locker = NewMemoryLocker()
	}
	mapper, err := NewAngleMapper(table.Len())
	if err != nil {
		return nil, err
	}

	source := NewMathRandomSource()
	return &Booth{
		table:         table,
		mapper:        mapper,
		ledger:        ledger,
		locker:        locker,
		validator:     NewLeadValidator(),
		selector:      NewRewardSelector(table, source),
		turnsSource:   source,
		scheduler:     TimerScheduler{},
		logger:        NewSilentLogger(),
		minTurns:      DefaultMinExtraTurns,
		maxTurns:      DefaultMaxExtraTurns,
		spinDuration:  DefaultSpinDuration,
		spinLockTTL:   DefaultSpinLockTTL,
		commitTimeout: DefaultCommitTimeout,
	}, nil
}

// NewBoothWithConfig creates a booth from a validated configuration
func NewBoothWithConfig(config *Config, ledger *Ledger, locker SpinLocker, logger Logger) (*Booth, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	table, err := config.RewardTable()
	if err != nil {
		return nil, err
	}
	b, err := NewBooth(table, ledger, locker)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		b.SetLogger(logger)
	}
	if err := b.ApplyConfig(config); err != nil {
		return nil, err
	}
	return b, nil
}

// ApplyConfig updates timings and turn bounds for new sessions. The reward
// table is fixed for the booth's lifetime and is not touched.
func (b *Booth) ApplyConfig(config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.minTurns = config.Wheel.MinExtraTurns
	b.maxTurns = config.Wheel.MaxExtraTurns
	b.spinDuration = config.Wheel.SpinDuration
	b.spinLockTTL = config.Ledger.SpinLockTTL
	b.commitTimeout = config.Ledger.CommitTimeout

	b.logger.Info("Booth settings updated: spin=%v turns=[%d,%d] lease=%v",
		b.spinDuration, b.minTurns, b.maxTurns, b.spinLockTTL)
	return nil
}

// Table returns the reward table
func (b *Booth) Table() RewardTable { return b.table }

// Mapper returns the wheel geometry
func (b *Booth) Mapper() *AngleMapper { return b.mapper }

// Ledger returns the participant ledger
func (b *Booth) Ledger() *Ledger { return b.ledger }

// Sectors returns the wheel layout for the presentation layer
func (b *Booth) Sectors() []Sector { return b.mapper.Sectors(b.table) }

// Validator returns the lead validator
func (b *Booth) Validator() *validator.Validate { return b.validator }

// NewSession starts a session in the Landing state
func (b *Booth) NewSession() *Session {
	b.mu.RLock()
	settings := sessionSettings{
		selector:      b.selector,
		turnsSource:   b.turnsSource,
		minTurns:      b.minTurns,
		maxTurns:      b.maxTurns,
		spinDuration:  b.spinDuration,
		spinLockTTL:   b.spinLockTTL,
		commitTimeout: b.commitTimeout,
		scheduler:     b.scheduler,
		logger:        b.logger,
	}
	b.mu.RUnlock()

	return newSession(uuid.NewString(), b, settings)
}

// SetRandomSource sets the source used for both reward selection and extra turns
func (b *Booth) SetRandomSource(source RandomSource) {
	if source == nil {
		source = NewMathRandomSource()
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.selector = NewRewardSelector(b.table, source)
	b.turnsSource = source
}

// SetTurnsSource sets the source for the cosmetic extra turns only
func (b *Booth) SetTurnsSource(source RandomSource) {
	if source == nil {
		source = NewMathRandomSource()
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.turnsSource = source
}

// SetScheduler sets the animation timer
func (b *Booth) SetScheduler(scheduler Scheduler) {
	if scheduler == nil {
		scheduler = TimerScheduler{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.scheduler = scheduler
}

// SetLogger sets the logger
func (b *Booth) SetLogger(logger Logger) {
	if logger == nil {
		logger = NewSilentLogger()
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.logger = logger
}

// SetOnSuccess sets the hook run once per session on entry into Success
func (b *Booth) SetOnSuccess(hook func(SessionView)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.onSuccess = hook
}

// SetExtraTurns sets the range of cosmetic full turns
func (b *Booth) SetExtraTurns(min, max int) error {
	if err := ValidateTurnRange(min, max); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.minTurns, b.maxTurns = min, max
	return nil
}

// SetSpinDuration sets the animation duration
func (b *Booth) SetSpinDuration(d time.Duration) error {
	if d <= 0 {
		return ErrConfigInvalid.WithDetails("spin duration must be positive")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.spinDuration = d
	return nil
}

// SetSpinLockTTL sets the spin lease TTL
func (b *Booth) SetSpinLockTTL(ttl time.Duration) error {
	if ttl < MinSpinLockTTL || ttl > MaxSpinLockTTL {
		return ErrConfigInvalid.WithDetails("spin lock ttl must be between 1s and 5m")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.spinLockTTL = ttl
	return nil
}

// SetCommitTimeout bounds the outcome write after the animation
func (b *Booth) SetCommitTimeout(d time.Duration) error {
	if d <= 0 {
		return ErrConfigInvalid.WithDetails("commit timeout must be positive")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.commitTimeout = d
	return nil
}

func (b *Booth) fireSuccess(view SessionView) {
	b.mu.RLock()
	hook := b.onSuccess
	logger := b.logger
	b.mu.RUnlock()

	logger.Info("Session %s finished with %q (recorded=%t)", view.ID, view.Reward.Name, view.Recorded)
	if hook != nil {
		hook(view)
	}
}
