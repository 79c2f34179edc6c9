package spinwheel

import (
	"sync"
	"sync/atomic"
	"time"
)

// LedgerMetrics 账本指标
type LedgerMetrics struct {
	// 登记统计
	Registrations  int64 `json:"registrations"`   // 新参与者
	Resumes        int64 `json:"resumes"`         // 未抽奖的老参与者
	AlreadyPlayed  int64 `json:"already_played"`  // 已抽奖被拒绝
	KeyConflicts   int64 `json:"key_conflicts"`   // 并发创建冲突
	ResolvedByRead int64 `json:"resolved_by_read"` // 冲突后重查成功

	// 提交统计
	Commits         int64 `json:"commits"`          // 成功提交
	CommitConflicts int64 `json:"commit_conflicts"` // AlreadyCommitted
	CommitFailures  int64 `json:"commit_failures"`  // 非致命失败
	TotalCommitTime int64 `json:"total_commit_time"` // 纳秒

	// 租约统计
	LockAcquisitions    int64 `json:"lock_acquisitions"`
	LockAcquisitionTime int64 `json:"lock_acquisition_time"` // 纳秒
	LockReleases        int64 `json:"lock_releases"`
	LockFailures        int64 `json:"lock_failures"`

	// 存储错误
	StoreErrors int64 `json:"store_errors"`

	// 时间戳
	StartTime      int64 `json:"start_time"`
	LastUpdateTime int64 `json:"last_update_time"`
}

// GetCommitSuccessRate 获取提交成功率 (百分比)
func (m *LedgerMetrics) GetCommitSuccessRate() float64 {
	total := atomic.LoadInt64(&m.Commits) + atomic.LoadInt64(&m.CommitFailures)
	if total == 0 {
		return 0.0
	}
	return float64(atomic.LoadInt64(&m.Commits)) / float64(total) * 100.0
}

// GetAverageCommitTime 获取平均提交耗时
func (m *LedgerMetrics) GetAverageCommitTime() time.Duration {
	commits := atomic.LoadInt64(&m.Commits)
	if commits == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&m.TotalCommitTime) / commits)
}

// Reset 重置指标
func (m *LedgerMetrics) Reset() {
	for _, field := range []*int64{
		&m.Registrations, &m.Resumes, &m.AlreadyPlayed, &m.KeyConflicts, &m.ResolvedByRead,
		&m.Commits, &m.CommitConflicts, &m.CommitFailures, &m.TotalCommitTime,
		&m.LockAcquisitions, &m.LockAcquisitionTime, &m.LockReleases, &m.LockFailures,
		&m.StoreErrors,
	} {
		atomic.StoreInt64(field, 0)
	}
	now := time.Now().UnixNano()
	atomic.StoreInt64(&m.StartTime, now)
	atomic.StoreInt64(&m.LastUpdateTime, now)
}

// ================================================================================

// LedgerMonitor 账本监控器
type LedgerMonitor struct {
	metrics *LedgerMetrics
	mu      sync.RWMutex
	enabled bool
}

// NewLedgerMonitor 创建新的账本监控器
func NewLedgerMonitor() *LedgerMonitor {
	m := &LedgerMonitor{
		metrics: &LedgerMetrics{},
		enabled: true,
	}
	m.metrics.Reset()
	return m
}

// Enable 启用监控
func (m *LedgerMonitor) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = true
}

// Disable 禁用监控
func (m *LedgerMonitor) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
}

// IsEnabled 检查是否启用了监控
func (m *LedgerMonitor) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.enabled
}

func (m *LedgerMonitor) add(field *int64, delta int64) {
	if !m.IsEnabled() {
		return
	}
	atomic.AddInt64(field, delta)
	atomic.StoreInt64(&m.metrics.LastUpdateTime, time.Now().UnixNano())
}

// RecordRegistration 记录登记结果
func (m *LedgerMonitor) RecordRegistration(reg *Registration) {
	switch {
	case reg == nil:
		return
	case reg.IsNewParticipant:
		m.add(&m.metrics.Registrations, 1)
	case reg.AlreadyPlayed():
		m.add(&m.metrics.AlreadyPlayed, 1)
	default:
		m.add(&m.metrics.Resumes, 1)
	}
}

// RecordKeyConflict 记录并发创建冲突, resolved 表示重查后找到了参与者
func (m *LedgerMonitor) RecordKeyConflict(resolved bool) {
	m.add(&m.metrics.KeyConflicts, 1)
	if resolved {
		m.add(&m.metrics.ResolvedByRead, 1)
	}
}

// RecordCommit 记录提交结果
func (m *LedgerMonitor) RecordCommit(err error, duration time.Duration) {
	switch {
	case err == nil:
		m.add(&m.metrics.Commits, 1)
		m.add(&m.metrics.TotalCommitTime, int64(duration))
	case CodeOf(err) == ErrCodeAlreadyCommitted:
		m.add(&m.metrics.CommitConflicts, 1)
	default:
		m.add(&m.metrics.CommitFailures, 1)
	}
}

// RecordLockAcquisition 记录租约获取
func (m *LedgerMonitor) RecordLockAcquisition(success bool, duration time.Duration) {
	if success {
		m.add(&m.metrics.LockAcquisitions, 1)
		m.add(&m.metrics.LockAcquisitionTime, int64(duration))
		return
	}
	m.add(&m.metrics.LockFailures, 1)
}

// RecordLockRelease 记录租约释放
func (m *LedgerMonitor) RecordLockRelease() { m.add(&m.metrics.LockReleases, 1) }

// RecordStoreError 记录存储错误
func (m *LedgerMonitor) RecordStoreError() { m.add(&m.metrics.StoreErrors, 1) }

// GetMetrics 获取指标副本
func (m *LedgerMonitor) GetMetrics() LedgerMetrics {
	return LedgerMetrics{
		Registrations:       atomic.LoadInt64(&m.metrics.Registrations),
		Resumes:             atomic.LoadInt64(&m.metrics.Resumes),
		AlreadyPlayed:       atomic.LoadInt64(&m.metrics.AlreadyPlayed),
		KeyConflicts:        atomic.LoadInt64(&m.metrics.KeyConflicts),
		ResolvedByRead:      atomic.LoadInt64(&m.metrics.ResolvedByRead),
		Commits:             atomic.LoadInt64(&m.metrics.Commits),
		CommitConflicts:     atomic.LoadInt64(&m.metrics.CommitConflicts),
		CommitFailures:      atomic.LoadInt64(&m.metrics.CommitFailures),
		TotalCommitTime:     atomic.LoadInt64(&m.metrics.TotalCommitTime),
		LockAcquisitions:    atomic.LoadInt64(&m.metrics.LockAcquisitions),
		LockAcquisitionTime: atomic.LoadInt64(&m.metrics.LockAcquisitionTime),
		LockReleases:        atomic.LoadInt64(&m.metrics.LockReleases),
		LockFailures:        atomic.LoadInt64(&m.metrics.LockFailures),
		StoreErrors:         atomic.LoadInt64(&m.metrics.StoreErrors),
		StartTime:           atomic.LoadInt64(&m.metrics.StartTime),
		LastUpdateTime:      atomic.LoadInt64(&m.metrics.LastUpdateTime),
	}
}

// ResetMetrics 重置指标
func (m *LedgerMonitor) ResetMetrics() { m.metrics.Reset() }
