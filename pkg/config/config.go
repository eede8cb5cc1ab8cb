package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Env string // development, staging, production

	DB         DBConfig
	Telegram   TelegramConfig
	KIS        KISConfig
	VTS        KISConfig
	Trading    TradingConfig
	Google     GoogleConfig
	Collectors CollectorsConfig

	Thresholds Thresholds

	LogLevel  string
	LogFormat string
}

// DBConfig points at the single embedded store file (C2).
type DBConfig struct {
	Path string
}

// TelegramConfig is C14's transport configuration.
type TelegramConfig struct {
	Token  string
	ChatID string
}

// KISConfig holds one trading-mode's broker credentials (C4). Filled twice:
// once from KIS_* (real) and once from KIS_VTS_* (paper).
type KISConfig struct {
	AppKey    string
	AppSecret string
	AccountNo string
	BaseURL   string
	IsVirtual bool
}

// TradingConfig is C9/C13's mode and safety-gate configuration.
type TradingConfig struct {
	Mode                    string // VTS or REAL
	AutoTradeEnabled        bool
	RealModeConfirmEnabled  bool
	RealModeConfirmDelaySec int
}

// GoogleConfig holds the optional LLM API key (C6). Absence degrades the
// morning pipeline to its rule-based defaults, never a fatal error.
type GoogleConfig struct {
	AIAPIKey string
}

// CollectorsConfig holds C5's external-source credentials and the
// per-collector timeout. Missing keys degrade their owning collector to an
// empty/false success_flags entry, never a fatal error (spec.md §4.5).
type CollectorsConfig struct {
	DartAPIKey        string
	NewsAPIKey        string
	CollectorTimeoutSec int
}

// Thresholds gathers every per-trigger numeric constant named in spec §4.
// ⭐ SSOT: tunable trading thresholds live only here
type Thresholds struct {
	// C3 rate limiter
	RateLimitPaper int
	RateLimitLive  int

	// C8 intraday watcher
	PollIntervalSec        int
	PriceDeltaMin          float64
	VolumeDeltaMin         float64
	ConfirmCandles         int
	MinChangeRate          float64
	OrderbookBidAskGood    float64
	OrderbookBidAskMin     float64
	OrderbookTop3RatioMin  float64
	WSWatchlistMax         int
	UpperLimitAdjacencyPct float64

	// C9 position manager
	PositionMaxBull    int
	PositionMaxBear    int
	PositionMaxNeutral int
	TakeProfit1        float64
	TakeProfit2        float64
	StopLoss           float64
	TrailingRatioBull  float64
	TrailingRatioOther float64
	DailyLossLimit     float64
	PositionBuyAmount  int64

	// C12 learning batches
	MinSample int
}

// Load reads configuration from environment variables.
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		DB: DBConfig{
			Path: getEnv("DB_PATH", "./sentinel.db"),
		},

		Telegram: TelegramConfig{
			Token:  getEnv("TELEGRAM_TOKEN", ""),
			ChatID: getEnv("TELEGRAM_CHAT_ID", ""),
		},

		KIS: KISConfig{
			AppKey:    getEnv("KIS_APP_KEY", ""),
			AppSecret: getEnv("KIS_APP_SECRET", ""),
			AccountNo: getEnv("KIS_ACCOUNT_NO", ""),
			BaseURL:   getEnv("KIS_BASE_URL", "https://openapi.koreainvestment.com:9443"),
			IsVirtual: false,
		},
		VTS: KISConfig{
			AppKey:    getEnv("KIS_VTS_APP_KEY", ""),
			AppSecret: getEnv("KIS_VTS_APP_SECRET", ""),
			AccountNo: getEnv("KIS_VTS_ACCOUNT_NO", ""),
			BaseURL:   getEnv("KIS_VTS_BASE_URL", "https://openapivts.koreainvestment.com:29443"),
			IsVirtual: true,
		},

		Trading: TradingConfig{
			Mode:                    getEnv("TRADING_MODE", "VTS"),
			AutoTradeEnabled:        getEnvAsBool("AUTO_TRADE_ENABLED", false),
			RealModeConfirmEnabled:  getEnvAsBool("REAL_MODE_CONFIRM_ENABLED", true),
			RealModeConfirmDelaySec: getEnvAsInt("REAL_MODE_CONFIRM_DELAY_SEC", 300),
		},

		Google: GoogleConfig{
			AIAPIKey: getEnv("GOOGLE_AI_API_KEY", ""),
		},

		Collectors: CollectorsConfig{
			DartAPIKey:          getEnv("DART_API_KEY", ""),
			NewsAPIKey:          getEnv("NEWSAPI_KEY", ""),
			CollectorTimeoutSec: getEnvAsInt("COLLECTOR_TIMEOUT_SEC", 60),
		},

		Thresholds: Thresholds{
			RateLimitPaper: getEnvAsInt("RATE_LIMIT_PAPER", 2),
			RateLimitLive:  getEnvAsInt("RATE_LIMIT_LIVE", 19),

			PollIntervalSec:        getEnvAsInt("POLL_INTERVAL_SEC", 10),
			PriceDeltaMin:          getEnvAsFloat("PRICE_DELTA_MIN", 1.5),
			VolumeDeltaMin:         getEnvAsFloat("VOLUME_DELTA_MIN", 50.0),
			ConfirmCandles:         getEnvAsInt("CONFIRM_CANDLES", 2),
			MinChangeRate:          getEnvAsFloat("MIN_CHANGE_RATE", 3.0),
			OrderbookBidAskGood:    getEnvAsFloat("ORDERBOOK_BID_ASK_GOOD", 2.0),
			OrderbookBidAskMin:     getEnvAsFloat("ORDERBOOK_BID_ASK_MIN", 1.2),
			OrderbookTop3RatioMin:  getEnvAsFloat("ORDERBOOK_TOP3_RATIO_MIN", 0.4),
			WSWatchlistMax:         getEnvAsInt("WS_WATCHLIST_MAX", 40),
			UpperLimitAdjacencyPct: getEnvAsFloat("UPPER_LIMIT_ADJACENCY_PCT", 29.5),

			PositionMaxBull:    getEnvAsInt("POSITION_MAX_BULL", 5),
			PositionMaxBear:    getEnvAsInt("POSITION_MAX_BEAR", 2),
			PositionMaxNeutral: getEnvAsInt("POSITION_MAX_NEUTRAL", 3),
			TakeProfit1:        getEnvAsFloat("TAKE_PROFIT_1", 5.0),
			TakeProfit2:        getEnvAsFloat("TAKE_PROFIT_2", 10.0),
			StopLoss:           getEnvAsFloat("STOP_LOSS", -3.0),
			TrailingRatioBull:  getEnvAsFloat("TRAILING_RATIO_BULL", 0.92),
			TrailingRatioOther: getEnvAsFloat("TRAILING_RATIO_OTHER", 0.95),
			DailyLossLimit:     getEnvAsFloat("DAILY_LOSS_LIMIT", -5.0),
			PositionBuyAmount:  getEnvAsInt64("POSITION_BUY_AMOUNT", 1_000_000),

			MinSample: getEnvAsInt("MIN_SAMPLE", 5),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks required configuration. Broker/Telegram credentials are
// only required once the relevant subsystem is actually exercised (live
// mode, a real send) — spec §6 scopes "required in live mode", not at
// process start, so Load() stays permissive and individual clients fail at
// first use when a credential is empty.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}
	if c.Trading.Mode != "VTS" && c.Trading.Mode != "REAL" {
		return fmt.Errorf("TRADING_MODE must be one of: VTS, REAL")
	}
	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
