package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const defaultHTTPAddr = ":4000"
const defaultDatabaseDriver = "postgres"
const defaultConnectionString = "Host=localhost;Port=5432;Database=coin_ledger_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultSQLitePath = "coin_ledger.db"
const defaultChannelID = "CodexApp"
const defaultChannelKey = "CodexKey001"
const defaultFallbackAddress = "0x0000000000000000000000000000000000000000"
const defaultMiningReward = "2"
const defaultMiningCooldown = 24 * time.Hour
const defaultTransferFeeRate = "0.0001"
const defaultDailyTransferQuota = 5
const defaultStakeAccrualTimeout = 30 * time.Second
const defaultStakeAccrualWorkers = 4
const defaultKafkaTopic = "ledger_entry_committed"

type Config struct {
	HTTPAddr            string
	DatabaseDriver      string
	DatabaseDSN         string
	SQLitePath          string
	MigrationsDir       string
	ChannelID           string
	ChannelKey          string
	FallbackAddress     string
	MiningReward        decimal.Decimal
	MiningCooldown      time.Duration
	TransferFeeRate     decimal.Decimal
	DailyTransferQuota  int
	StakeAccrualTimeout time.Duration
	StakeAccrualWorkers int
	KafkaBrokers        []string
	KafkaTopic          string
}

func Load() (Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	miningReward, err := decimal.NewFromString(envOrDefault("MINING_REWARD", defaultMiningReward))
	if err != nil {
		return Config{}, fmt.Errorf("parse MINING_REWARD: %w", err)
	}
	if miningReward.LessThanOrEqual(decimal.Zero) {
		return Config{}, fmt.Errorf("MINING_REWARD must be greater than zero")
	}

	feeRate, err := decimal.NewFromString(envOrDefault("TRANSFER_FEE_RATE", defaultTransferFeeRate))
	if err != nil {
		return Config{}, fmt.Errorf("parse TRANSFER_FEE_RATE: %w", err)
	}
	if feeRate.IsNegative() {
		return Config{}, fmt.Errorf("TRANSFER_FEE_RATE must not be negative")
	}

	cooldown, err := durationOrDefault("MINING_COOLDOWN", defaultMiningCooldown)
	if err != nil {
		return Config{}, err
	}

	accrualTimeout, err := durationOrDefault("STAKE_ACCRUAL_TIMEOUT", defaultStakeAccrualTimeout)
	if err != nil {
		return Config{}, err
	}

	quota, err := intOrDefault("DAILY_TRANSFER_QUOTA", defaultDailyTransferQuota)
	if err != nil {
		return Config{}, err
	}

	workers, err := intOrDefault("STAKE_ACCRUAL_WORKERS", defaultStakeAccrualWorkers)
	if err != nil {
		return Config{}, err
	}

	driver := strings.ToLower(envOrDefault("DATABASE_DRIVER", defaultDatabaseDriver))
	if driver != "postgres" && driver != "sqlite" {
		return Config{}, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", driver)
	}

	var brokers []string
	for _, broker := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}

	return Config{
		HTTPAddr:            envOrDefault("HTTP_ADDR", defaultHTTPAddr),
		DatabaseDriver:      driver,
		DatabaseDSN:         normalizeConnectionString(envOrDefault("DATABASE_DSN", defaultConnectionString)),
		SQLitePath:          envOrDefault("SQLITE_PATH", defaultSQLitePath),
		MigrationsDir:       envOrDefault("MIGRATIONS_DIR", filepath.Join("src", "migrations")),
		ChannelID:           envOrDefault("CHANNEL_ID", defaultChannelID),
		ChannelKey:          envOrDefault("CHANNEL_KEY", defaultChannelKey),
		FallbackAddress:     envOrDefault("FALLBACK_ADDRESS", defaultFallbackAddress),
		MiningReward:        miningReward,
		MiningCooldown:      cooldown,
		TransferFeeRate:     feeRate,
		DailyTransferQuota:  quota,
		StakeAccrualTimeout: accrualTimeout,
		StakeAccrualWorkers: workers,
		KafkaBrokers:        brokers,
		KafkaTopic:          envOrDefault("KAFKA_TOPIC", defaultKafkaTopic),
	}, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return value, nil
}

func intOrDefault(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return value, nil
}

func normalizeConnectionString(raw string) string {
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
