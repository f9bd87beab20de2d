package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Market
	Pairs           []string
	PricePrecisions map[string]int // decimals used when formatting prices per pair
	Interval        string
	HistoryLimit    int

	// Window / staleness
	WindowCapacity int
	ResyncAfter    time.Duration
	ReconnectAfter time.Duration
	ReconnectDelay time.Duration

	// Binance
	BinanceRESTURL string
	BinanceWSURL   string
	RESTRatePerSec float64

	// Persistence
	SQLitePath string
	CSVDir     string
	SaveCSV    bool

	// Infrastructure
	RedisAddr     string // empty disables Redis publishing
	RedisPassword string
	MetricsAddr   string
	HTTPAddr      string

	// Logging
	LogLevel string
	Debug    bool

	// Alerts
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string
}

// PairsFile is the optional YAML file named by PAIRS_FILE:
//
//	pairs:
//	  - symbol: BTCUSDT
//	    precision: 2
type PairsFile struct {
	Pairs []PairEntry `yaml:"pairs"`
}

// PairEntry configures one traded pair.
type PairEntry struct {
	Symbol    string `yaml:"symbol"`
	Precision int    `yaml:"precision"`
}

// DefaultPrecisions are the price decimals for the default pairs.
var DefaultPrecisions = map[string]int{
	"BTCUSDT": 2,
	"ETHUSDT": 3,
	"ADAUSDT": 4,
	"SOLUSDT": 2,
}

// Load reads configuration from environment variables (and a .env file when
// present) with sensible defaults.
func Load() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Pairs:           parseList(getEnv("PAIRS", "BTCUSDT,ETHUSDT,ADAUSDT,SOLUSDT")),
		PricePrecisions: make(map[string]int, len(DefaultPrecisions)),
		Interval:        getEnv("INTERVAL", "1m"),
		HistoryLimit:    getInt("HISTORY_LIMIT", 100),

		WindowCapacity: getInt("WINDOW_CAPACITY", 100),
		ResyncAfter:    time.Duration(getInt("RESYNC_AFTER_SEC", 600)) * time.Second,
		ReconnectAfter: time.Duration(getInt("RECONNECT_AFTER_SEC", 1200)) * time.Second,
		ReconnectDelay: time.Duration(getInt("RECONNECT_DELAY_SEC", 10)) * time.Second,

		BinanceRESTURL: getEnv("BINANCE_REST_URL", "https://api.binance.com"),
		BinanceWSURL:   getEnv("BINANCE_WS_URL", "wss://stream.binance.com:9443"),
		RESTRatePerSec: getFloat("REST_RATE_PER_SEC", 5),

		SQLitePath: getEnv("SQLITE_PATH", "data/signals.db"),
		CSVDir:     getEnv("CSV_DIR", "data"),
		SaveCSV:    getBool("SAVE_CSV", true),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8090"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		Debug:    getBool("DEBUG", true),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
	}
	for k, v := range DefaultPrecisions {
		cfg.PricePrecisions[k] = v
	}

	if path := getEnv("PAIRS_FILE", ""); path != "" {
		if err := cfg.applyPairsFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if len(c.Pairs) == 0 {
		return fmt.Errorf("config: no pairs configured")
	}
	if c.WindowCapacity < 50 {
		return fmt.Errorf("config: WINDOW_CAPACITY %d below the 50-candle indicator minimum", c.WindowCapacity)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("config: HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	if c.ReconnectAfter < c.ResyncAfter {
		return fmt.Errorf("config: RECONNECT_AFTER_SEC (%v) must not be below RESYNC_AFTER_SEC (%v)", c.ReconnectAfter, c.ResyncAfter)
	}
	return nil
}

// Precision returns the price decimals for pair, defaulting to 4.
func (c *Config) Precision(pair string) int {
	if p, ok := c.PricePrecisions[pair]; ok {
		return p
	}
	return 4
}

func (c *Config) applyPairsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read pairs file: %w", err)
	}
	pf, err := ParsePairsFile(data)
	if err != nil {
		return err
	}
	c.Pairs = c.Pairs[:0]
	for _, p := range pf.Pairs {
		c.Pairs = append(c.Pairs, p.Symbol)
		c.PricePrecisions[p.Symbol] = p.Precision
	}
	return nil
}

// ParsePairsFile decodes and normalizes a YAML pairs file.
func ParsePairsFile(data []byte) (*PairsFile, error) {
	var pf PairsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("config: parse pairs file: %w", err)
	}
	out := pf.Pairs[:0]
	for _, p := range pf.Pairs {
		p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
		if p.Symbol == "" {
			log.Printf("[config] skipping pairs file entry without symbol")
			continue
		}
		if p.Precision < 0 {
			p.Precision = 0
		}
		out = append(out, p)
	}
	pf.Pairs = out
	return &pf, nil
}

func parseList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return b
}
