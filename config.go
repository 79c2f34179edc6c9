package spinwheel

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// Config 配置结构
type Config struct {
	// 转盘配置
	Wheel *WheelConfig `mapstructure:"wheel"`

	// 账本配置
	Ledger *LedgerConfig `mapstructure:"ledger"`

	// Redis 配置
	Redis *RedisConfig `mapstructure:"redis"`

	// PostgreSQL 配置
	Postgres *PostgresConfig `mapstructure:"postgres"`

	// 熔断器配置
	CircuitBreaker *CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// HTTP 服务配置
	Server *ServerConfig `mapstructure:"server"`

	// 日志配置
	Log *LogConfig `mapstructure:"log"`
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Wheel == nil || c.Ledger == nil {
		return ErrConfigInvalid.WithDetails("wheel and ledger sections are required")
	}

	// 验证转盘配置
	if _, err := NewRewardTable(c.Wheel.Rewards); err != nil {
		return ErrConfigInvalid.WithDetails("wheel.rewards").WithCause(err)
	}
	if err := ValidateTurnRange(c.Wheel.MinExtraTurns, c.Wheel.MaxExtraTurns); err != nil {
		return ErrConfigInvalid.WithDetails("wheel extra turns").WithCause(err)
	}
	if c.Wheel.SpinDuration <= 0 {
		return ErrConfigInvalid.WithDetails("wheel.spin_duration must be positive")
	}

	// 验证账本配置
	switch c.Ledger.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis == nil || c.Redis.Addr == "" {
			return ErrConfigInvalid.WithDetails("redis address is required")
		}
		if c.Redis.PoolSize <= 0 {
			return ErrConfigInvalid.WithDetails("redis pool size must be positive")
		}
	case BackendPostgres:
		if c.Postgres == nil || c.Postgres.DSN == "" {
			return ErrConfigInvalid.WithDetails("postgres dsn is required")
		}
	default:
		return ErrConfigInvalid.WithDetails(fmt.Sprintf("unknown ledger backend %q", c.Ledger.Backend))
	}
	if err := ValidateRetryAttempts(c.Ledger.RetryAttempts); err != nil {
		return err
	}
	if c.Ledger.RetryInterval < 0 {
		return ErrConfigInvalid.WithDetails("ledger.retry_interval cannot be negative")
	}
	if c.Ledger.SpinLockTTL < MinSpinLockTTL || c.Ledger.SpinLockTTL > MaxSpinLockTTL {
		return ErrConfigInvalid.WithDetails("ledger.spin_lock_ttl must be between 1s and 5m")
	}
	if c.Ledger.SpinLockTTL <= c.Wheel.SpinDuration {
		return ErrConfigInvalid.WithDetails("ledger.spin_lock_ttl must outlast wheel.spin_duration")
	}
	if c.Ledger.CommitTimeout <= 0 {
		return ErrConfigInvalid.WithDetails("ledger.commit_timeout must be positive")
	}

	return nil
}

// RewardTable builds the configured reward table
func (c *Config) RewardTable() (RewardTable, error) { return NewRewardTable(c.Wheel.Rewards) }

// WheelConfig 转盘配置
type WheelConfig struct {
	Rewards       []Reward      `mapstructure:"rewards"`
	MinExtraTurns int           `mapstructure:"min_extra_turns"`
	MaxExtraTurns int           `mapstructure:"max_extra_turns"`
	SpinDuration  time.Duration `mapstructure:"spin_duration"`
}

// DefaultWheelConfig 返回默认转盘配置
func DefaultWheelConfig() *WheelConfig {
	return &WheelConfig{
		Rewards:       DefaultRewards(),
		MinExtraTurns: DefaultMinExtraTurns,
		MaxExtraTurns: DefaultMaxExtraTurns,
		SpinDuration:  DefaultSpinDuration,
	}
}

// LedgerConfig 账本配置
type LedgerConfig struct {
	Backend       string        `mapstructure:"backend"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	SpinLockTTL   time.Duration `mapstructure:"spin_lock_ttl"`
	CommitTimeout time.Duration `mapstructure:"commit_timeout"`
}

// DefaultLedgerConfig 返回默认账本配置
func DefaultLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		Backend:       BackendMemory,
		KeyPrefix:     DefaultKeyPrefix,
		RetryAttempts: DefaultRetryAttempts,
		RetryInterval: DefaultRetryInterval,
		SpinLockTTL:   DefaultSpinLockTTL,
		CommitTimeout: DefaultCommitTimeout,
	}
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 连接配置
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// 连接池配置
	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
	MaxRetries   int `mapstructure:"max_retries"`

	// 超时配置
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`

	// 集群配置
	ClusterMode  bool     `mapstructure:"cluster_mode"`
	ClusterAddrs []string `mapstructure:"cluster_addrs"`
}

// DefaultRedisConfig 返回默认的Redis配置
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         DefaultRedisAddr,
		Password:     DefaultRedisPassword,
		DB:           DefaultRedisDB,
		PoolSize:     DefaultRedisPoolSize,
		MinIdleConns: DefaultRedisMinIdleConns,
		MaxRetries:   DefaultRedisMaxRetries,
		DialTimeout:  DefaultRedisDialTimeout,
		ReadTimeout:  DefaultRedisReadTimeout,
		WriteTimeout: DefaultRedisWriteTimeout,
		PoolTimeout:  DefaultRedisPoolTimeout,
	}
}

// NewRedisClientFromConfig 从配置创建Redis客户端. 集群模式下返回集群客户端.
func NewRedisClientFromConfig(config *RedisConfig) redis.UniversalClient {
	if config == nil {
		config = DefaultRedisConfig()
	}

	if config.ClusterMode && len(config.ClusterAddrs) > 0 {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        config.ClusterAddrs,
			Password:     config.Password,
			PoolSize:     config.PoolSize,
			MinIdleConns: config.MinIdleConns,
			MaxRetries:   config.MaxRetries,
			DialTimeout:  config.DialTimeout,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			PoolTimeout:  config.PoolTimeout,
		})
	}

	return redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolTimeout:  config.PoolTimeout,
	})
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	Migrate      bool   `mapstructure:"migrate"`
}

// DefaultPostgresConfig 返回默认 PostgreSQL 配置
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		DSN:          DefaultPostgresDSN,
		MaxOpenConns: DefaultPostgresMaxOpenConns,
		MaxIdleConns: DefaultPostgresMaxIdleConns,
		Migrate:      true,
	}
}

// CircuitBreakerConfig 熔断器配置
type CircuitBreakerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Name          string        `mapstructure:"name"`
	MaxRequests   uint32        `mapstructure:"max_requests"`
	Interval      time.Duration `mapstructure:"interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
	FailureRatio  float64       `mapstructure:"failure_ratio"`
	MinRequests   uint32        `mapstructure:"min_requests"`
	OnStateChange bool          `mapstructure:"on_state_change"`
}

// DefaultCircuitBreakerConfig 返回默认熔断器配置
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Enabled:       true,
		Name:          DefaultCircuitBreakerName,
		MaxRequests:   DefaultCircuitBreakerMaxRequests,
		Interval:      DefaultCircuitBreakerInterval,
		Timeout:       DefaultCircuitBreakerTimeout,
		FailureRatio:  DefaultCircuitBreakerFailureRatio,
		MinRequests:   DefaultCircuitBreakerMinRequests,
		OnStateChange: DefaultCircuitBreakerOnStateChange,
	}
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr       string        `mapstructure:"addr"`
	Mode       string        `mapstructure:"mode"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Verbose bool   `mapstructure:"verbose"`
	File    string `mapstructure:"file"`
}

// ConfigManager 配置管理器
type ConfigManager struct {
	viper  *viper.Viper
	mu     sync.RWMutex
	config *Config
}

// NewConfigManager 创建配置管理器
func NewConfigManager() *ConfigManager {
	v := viper.New()

	// 设置配置文件名和路径
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/spinwheel")
	v.AddConfigPath("$HOME/.spinwheel")

	// 设置环境变量前缀
	v.SetEnvPrefix("SPINWHEEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &ConfigManager{viper: v}
}

// NewConfigManagerWithFile 创建读取指定配置文件的配置管理器
func NewConfigManagerWithFile(path string) *ConfigManager {
	cm := NewConfigManager()
	cm.viper.SetConfigFile(path)
	return cm
}

// LoadConfig 加载配置
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	cm.setDefaults()

	// 读取配置文件, 文件不存在时使用默认配置
	if err := cm.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config, err := cm.unmarshal()
	if err != nil {
		return nil, err
	}

	cm.mu.Lock()
	cm.config = config
	cm.mu.Unlock()
	return config, nil
}

func (cm *ConfigManager) unmarshal() (*Config, error) {
	config := &Config{}
	if err := cm.viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// viper 对嵌套切片的默认值不会展开到结构体
	if config.Wheel != nil && len(config.Wheel.Rewards) == 0 {
		config.Wheel.Rewards = DefaultRewards()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// setDefaults 设置默认配置值
func (cm *ConfigManager) setDefaults() {
	v := cm.viper

	// 转盘默认配置
	v.SetDefault("wheel.min_extra_turns", DefaultMinExtraTurns)
	v.SetDefault("wheel.max_extra_turns", DefaultMaxExtraTurns)
	v.SetDefault("wheel.spin_duration", DefaultSpinDuration.String())

	// 账本默认配置
	v.SetDefault("ledger.backend", BackendMemory)
	v.SetDefault("ledger.key_prefix", DefaultKeyPrefix)
	v.SetDefault("ledger.retry_attempts", DefaultRetryAttempts)
	v.SetDefault("ledger.retry_interval", DefaultRetryInterval.String())
	v.SetDefault("ledger.spin_lock_ttl", DefaultSpinLockTTL.String())
	v.SetDefault("ledger.commit_timeout", DefaultCommitTimeout.String())

	// Redis 默认配置
	v.SetDefault("redis.addr", DefaultRedisAddr)
	v.SetDefault("redis.password", DefaultRedisPassword)
	v.SetDefault("redis.db", DefaultRedisDB)
	v.SetDefault("redis.pool_size", DefaultRedisPoolSize)
	v.SetDefault("redis.min_idle_conns", DefaultRedisMinIdleConns)
	v.SetDefault("redis.max_retries", DefaultRedisMaxRetries)
	v.SetDefault("redis.dial_timeout", DefaultRedisDialTimeout.String())
	v.SetDefault("redis.read_timeout", DefaultRedisReadTimeout.String())
	v.SetDefault("redis.write_timeout", DefaultRedisWriteTimeout.String())
	v.SetDefault("redis.pool_timeout", DefaultRedisPoolTimeout.String())
	v.SetDefault("redis.cluster_mode", false)

	// PostgreSQL 默认配置
	v.SetDefault("postgres.dsn", DefaultPostgresDSN)
	v.SetDefault("postgres.max_open_conns", DefaultPostgresMaxOpenConns)
	v.SetDefault("postgres.max_idle_conns", DefaultPostgresMaxIdleConns)
	v.SetDefault("postgres.migrate", true)

	// 熔断器默认配置
	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.name", DefaultCircuitBreakerName)
	v.SetDefault("circuit_breaker.max_requests", DefaultCircuitBreakerMaxRequests)
	v.SetDefault("circuit_breaker.interval", DefaultCircuitBreakerInterval.String())
	v.SetDefault("circuit_breaker.timeout", DefaultCircuitBreakerTimeout.String())
	v.SetDefault("circuit_breaker.failure_ratio", DefaultCircuitBreakerFailureRatio)
	v.SetDefault("circuit_breaker.min_requests", DefaultCircuitBreakerMinRequests)
	v.SetDefault("circuit_breaker.on_state_change", DefaultCircuitBreakerOnStateChange)

	// HTTP 服务默认配置
	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.session_ttl", DefaultSessionTTL.String())

	// 日志默认配置
	v.SetDefault("log.verbose", false)
	v.SetDefault("log.file", "")
}

// WatchConfig 监听配置变化. 奖品表在进程启动时固定, 变更需要重启才会生效.
func (cm *ConfigManager) WatchConfig(logger Logger, callback func(*Config)) {
	if logger == nil {
		logger = NewSilentLogger()
	}

	cm.viper.OnConfigChange(func(e fsnotify.Event) {
		cm.reload(e.Name, logger, callback)
	})
	cm.viper.WatchConfig()
}

// reload 重新解析已读取的配置并通知回调
func (cm *ConfigManager) reload(source string, logger Logger, callback func(*Config)) {
	config, err := cm.unmarshal()
	if err != nil {
		// 记录错误但不中断服务
		logger.Error("Ignoring config change from %s: %v", source, err)
		return
	}

	cm.mu.Lock()
	previous := cm.config
	if previous != nil && previous.Wheel != nil {
		oldTable, _ := NewRewardTable(previous.Wheel.Rewards)
		newTable, _ := NewRewardTable(config.Wheel.Rewards)
		if !oldTable.Equal(newTable) {
			logger.Warn("Reward table changed in %s; keeping the running table until restart", source)
			config.Wheel.Rewards = previous.Wheel.Rewards
		}
	}
	cm.config = config
	cm.mu.Unlock()

	logger.Info("Configuration reloaded from %s", source)
	if callback != nil {
		callback(config)
	}
}

// GetConfig 获取当前配置
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// NewDefaultConfig 返回全部使用默认值的配置
func NewDefaultConfig() *Config {
	return &Config{
		Wheel:          DefaultWheelConfig(),
		Ledger:         DefaultLedgerConfig(),
		Redis:          DefaultRedisConfig(),
		Postgres:       DefaultPostgresConfig(),
		CircuitBreaker: DefaultCircuitBreakerConfig(),
		Server: &ServerConfig{
			Addr:       DefaultServerAddr,
			Mode:       "release",
			SessionTTL: DefaultSessionTTL,
		},
		Log: &LogConfig{},
	}
}
