package spinwheel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerStore 带熔断器的账本存储
type BreakerStore struct {
	store LedgerStore

	mu      sync.RWMutex // 保护 Reset 对 breaker 的替换
	breaker *gobreaker.CircuitBreaker
	logger  Logger
	config  *CircuitBreakerConfig
}

func (b *BreakerStore) current() *gobreaker.CircuitBreaker {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.breaker
}

// NewBreakerStore 创建带熔断器的账本存储
func NewBreakerStore(store LedgerStore, config *CircuitBreakerConfig, logger Logger) *BreakerStore {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	if logger == nil {
		logger = NewSilentLogger()
	}

	b := &BreakerStore{
		store:  store,
		logger: logger,
		config: config,
	}
	if config.Enabled {
		b.breaker = gobreaker.NewCircuitBreaker(b.settings())
	}
	return b
}

func (b *BreakerStore) settings() gobreaker.Settings {
	config := b.config
	return gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// 当请求数达到最小要求且失败率超过阈值时触发熔断
			return counts.Requests >= config.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= config.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if config.OnStateChange {
				b.logger.Info("Circuit breaker '%s' state changed from %s to %s", name, from, to)
			}
		},
		// 唯一性冲突和校验错误说明存储是健康的, 不计入失败
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			switch CodeOf(err) {
			case ErrCodeDuplicateKeyConflict, ErrCodeAlreadyCommitted,
				ErrCodeInvalidContactKey, ErrCodeInvalidRewardName, ErrCodeParticipantNotFound:
				return true
			}
			return false
		},
	}
}

// executeWithBreaker 使用熔断器执行操作
func (b *BreakerStore) executeWithBreaker(operation func() (any, error)) (any, error) {
	breaker := b.current()
	if breaker == nil {
		return operation()
	}

	result, err := breaker.Execute(operation)
	if errors.Is(err, gobreaker.ErrOpenState) {
		return nil, ErrStoreUnavailable.WithCause(
			ErrCircuitBreakerOpen.WithDetails("circuit breaker is open, requests are being rejected"))
	}
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrStoreUnavailable.WithCause(
			ErrCircuitBreakerOpen.WithDetails("too many requests, circuit breaker is half-open"))
	}
	return result, err
}

// FindParticipant implements LedgerStore.
func (b *BreakerStore) FindParticipant(ctx context.Context, contactKey string) (*Participant, error) {
	result, err := b.executeWithBreaker(func() (any, error) {
		return b.store.FindParticipant(ctx, contactKey)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Participant), nil
}

// CreateParticipant implements LedgerStore.
func (b *BreakerStore) CreateParticipant(ctx context.Context, p *Participant) (*Participant, error) {
	result, err := b.executeWithBreaker(func() (any, error) {
		return b.store.CreateParticipant(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Participant), nil
}

// FindOutcome implements LedgerStore.
func (b *BreakerStore) FindOutcome(ctx context.Context, participantID string) (*SpinOutcome, error) {
	result, err := b.executeWithBreaker(func() (any, error) {
		return b.store.FindOutcome(ctx, participantID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*SpinOutcome), nil
}

// CreateOutcome implements LedgerStore.
func (b *BreakerStore) CreateOutcome(ctx context.Context, o *SpinOutcome) (*SpinOutcome, error) {
	result, err := b.executeWithBreaker(func() (any, error) {
		return b.store.CreateOutcome(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return result.(*SpinOutcome), nil
}

// State 获取熔断器状态
func (b *BreakerStore) State() string {
	breaker := b.current()
	if breaker == nil {
		return "disabled"
	}

	switch breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Counts 获取熔断器统计信息
func (b *BreakerStore) Counts() gobreaker.Counts {
	breaker := b.current()
	if breaker == nil {
		return gobreaker.Counts{}
	}
	return breaker.Counts()
}

// Reset 重置熔断器 (gobreaker 没有 Reset 方法, 重新创建实例)
func (b *BreakerStore) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.breaker == nil {
		return
	}
	b.breaker = gobreaker.NewCircuitBreaker(b.settings())
	b.logger.Info("Circuit breaker '%s' has been reset (recreated)", b.config.Name)
}

// HealthCheck 熔断器健康检查
func (b *BreakerStore) HealthCheck() map[string]any {
	result := map[string]any{
		"circuit_breaker_enabled": b.config.Enabled,
		"timestamp":               time.Now().Unix(),
	}

	if b.current() == nil {
		result["state"] = "disabled"
		result["healthy"] = true
		return result
	}

	state := b.State()
	counts := b.Counts()

	result["state"] = state
	result["requests"] = counts.Requests
	result["total_successes"] = counts.TotalSuccesses
	result["total_failures"] = counts.TotalFailures
	result["consecutive_successes"] = counts.ConsecutiveSuccesses
	result["consecutive_failures"] = counts.ConsecutiveFailures

	if counts.Requests > 0 {
		result["failure_rate"] = float64(counts.TotalFailures) / float64(counts.Requests)
	} else {
		result["failure_rate"] = 0.0
	}

	healthy := true
	switch state {
	case "open":
		healthy = false
	case "half-open":
		// 半开状态下，如果连续失败次数过多，认为不健康
		if counts.ConsecutiveFailures > 2 {
			healthy = false
		}
	}
	result["healthy"] = healthy

	return result
}
