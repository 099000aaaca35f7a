// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/solana-toolkit/internal/blockchain"
)

type Config struct {
	Network     string            `mapstructure:"network"`
	RPCURL      string            `mapstructure:"rpc_url"`
	Networks    map[string]string `mapstructure:"networks"`
	Commitment  string            `mapstructure:"commitment"`
	Retry       RetryConfig       `mapstructure:"retry"`
	Health      HealthConfig      `mapstructure:"health"`
	Transaction TransactionConfig `mapstructure:"transaction"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Log         LogConfig         `mapstructure:"log"`
}

type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	BaseDelayMs int `mapstructure:"base_delay_ms"`
	MaxDelayMs  int `mapstructure:"max_delay_ms"`
}

type HealthConfig struct {
	IntervalMs         int `mapstructure:"interval_ms"`
	LatencyThresholdMs int `mapstructure:"latency_threshold_ms"`
	ProbeTimeoutMs     int `mapstructure:"probe_timeout_ms"`
}

type TransactionConfig struct {
	ComputeUnits     uint32 `mapstructure:"compute_units"`
	PriorityFee      uint64 `mapstructure:"priority_fee"`
	PriorityLevel    string `mapstructure:"priority_level"`
	SkipPreflight    bool   `mapstructure:"skip_preflight"`
	ConfirmTimeoutMs int    `mapstructure:"confirm_timeout_ms"`
	PollIntervalMs   int    `mapstructure:"poll_interval_ms"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type LogConfig struct {
	Debug bool   `mapstructure:"debug"`
	File  string `mapstructure:"file"`
}

const (
	DefaultNetwork            = "devnet"
	DefaultCommitment         = "confirmed"
	DefaultMaxAttempts        = 3
	DefaultBaseDelayMs        = 1000
	DefaultMaxDelayMs         = 30000
	DefaultHealthIntervalMs   = 30000
	DefaultLatencyThresholdMs = 5000
	DefaultProbeTimeoutMs     = 10000
	DefaultConfirmTimeoutMs   = 30000
	DefaultPollIntervalMs     = 500

	envPrefix = "SOLANA_TOOLKIT"
)

// KnownNetworks публичные кластеры Solana.
var KnownNetworks = map[string]string{
	"mainnet-beta": rpc.MainNetBeta_RPC,
	"devnet":       rpc.DevNet_RPC,
	"testnet":      rpc.TestNet_RPC,
	"localnet":     rpc.LocalNet_RPC,
}

// Defaults возвращает значения по умолчанию, используемые LoadConfig.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"network":                        DefaultNetwork,
		"rpc_url":                        "",
		"commitment":                     DefaultCommitment,
		"retry.max_attempts":             DefaultMaxAttempts,
		"retry.base_delay_ms":            DefaultBaseDelayMs,
		"retry.max_delay_ms":             DefaultMaxDelayMs,
		"health.interval_ms":             DefaultHealthIntervalMs,
		"health.latency_threshold_ms":    DefaultLatencyThresholdMs,
		"health.probe_timeout_ms":        DefaultProbeTimeoutMs,
		"transaction.confirm_timeout_ms": DefaultConfirmTimeoutMs,
		"transaction.poll_interval_ms":   DefaultPollIntervalMs,
		"transaction.compute_units":      0,
		"transaction.priority_fee":       0,
		"transaction.priority_level":     "",
		"transaction.skip_preflight":     false,
		"rate_limit.rps":                 0,
		"rate_limit.burst":               1,
		"log.debug":                      false,
		"log.file":                       "",
	}
}

// LoadConfig читает конфигурацию из файла (если path не пуст), значений по умолчанию
// и переменных окружения с префиксом SOLANA_TOOLKIT.
func LoadConfig(path string) (*Config, error) {
	return Load(viper.New(), path)
}

// Load как LoadConfig, но с заранее подготовленным viper (например, с привязанными флагами).
func Load(v *viper.Viper, path string) (*Config, error) {
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, Validate(&cfg)
}

// Validate проверяет конфигурацию.
func Validate(cfg *Config) error {
	if _, err := cfg.Endpoint(); err != nil {
		return err
	}
	if _, err := ParseCommitment(cfg.Commitment); err != nil {
		return err
	}
	if err := validateNumericParams(cfg); err != nil {
		return blockchain.WrapError(err, blockchain.CodeInvalidInput, "invalid configuration", nil)
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be at least 1")
	}
	if cfg.Retry.BaseDelayMs < 0 || cfg.Retry.MaxDelayMs < 0 {
		return errors.New("retry delays must not be negative")
	}
	if cfg.Health.IntervalMs <= 0 {
		return errors.New("invalid health.interval_ms")
	}
	if cfg.Health.LatencyThresholdMs <= 0 {
		return errors.New("invalid health.latency_threshold_ms")
	}
	if cfg.Transaction.ConfirmTimeoutMs <= 0 || cfg.Transaction.PollIntervalMs <= 0 {
		return errors.New("invalid transaction confirmation timings")
	}
	if cfg.RateLimit.RPS < 0 {
		return errors.New("invalid rate_limit.rps")
	}
	return nil
}

// Endpoint возвращает итоговый URL: rpc_url имеет приоритет над network.
func (c *Config) Endpoint() (string, error) {
	if c.RPCURL != "" {
		return ResolveEndpoint(c.RPCURL, c.Networks)
	}
	return ResolveEndpoint(c.Network, c.Networks)
}

// ResolveEndpoint разрешает имя сети или URL в URL эндпоинта.
func ResolveEndpoint(network string, custom map[string]string) (string, error) {
	name := strings.TrimSpace(network)
	if name == "" {
		return "", blockchain.NewError(blockchain.CodeInvalidNetwork, "network is empty", nil)
	}

	if endpoint, ok := custom[strings.ToLower(name)]; ok {
		return checkURL(endpoint, name)
	}
	if endpoint, ok := KnownNetworks[strings.ToLower(name)]; ok {
		return endpoint, nil
	}
	if strings.Contains(name, "://") {
		return checkURL(name, name)
	}

	return "", blockchain.NewError(blockchain.CodeInvalidNetwork,
		fmt.Sprintf("unknown network %q", name),
		map[string]interface{}{"network": name})
}

func checkURL(rawURL, network string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", blockchain.NewError(blockchain.CodeInvalidNetwork, "invalid endpoint URL",
			map[string]interface{}{"network": network, "url": rawURL})
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", blockchain.NewError(blockchain.CodeInvalidNetwork, "invalid endpoint URL protocol",
			map[string]interface{}{"network": network, "url": rawURL})
	}
	return rawURL, nil
}

// ParseCommitment проверяет уровень commitment.
func ParseCommitment(s string) (rpc.CommitmentType, error) {
	switch c := rpc.CommitmentType(strings.ToLower(strings.TrimSpace(s))); c {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
		return c, nil
	}
	return "", blockchain.NewError(blockchain.CodeInvalidCommitment,
		fmt.Sprintf("invalid commitment %q", s),
		map[string]interface{}{"commitment": s, "allowed": []string{"processed", "confirmed", "finalized"}})
}

// MustCommitment возвращает проверенный commitment; конфигурация уже прошла Validate.
func (c *Config) MustCommitment() rpc.CommitmentType {
	commitment, err := ParseCommitment(c.Commitment)
	if err != nil {
		return rpc.CommitmentConfirmed
	}
	return commitment
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func (r RetryConfig) BaseDelay() time.Duration { return ms(r.BaseDelayMs) }
func (r RetryConfig) MaxDelay() time.Duration  { return ms(r.MaxDelayMs) }

func (h HealthConfig) Interval() time.Duration         { return ms(h.IntervalMs) }
func (h HealthConfig) LatencyThreshold() time.Duration { return ms(h.LatencyThresholdMs) }
func (h HealthConfig) ProbeTimeout() time.Duration     { return ms(h.ProbeTimeoutMs) }

func (t TransactionConfig) ConfirmTimeout() time.Duration { return ms(t.ConfirmTimeoutMs) }
func (t TransactionConfig) PollInterval() time.Duration   { return ms(t.PollIntervalMs) }
