package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	POSTGRES_DB=nsepulse
//	PROVIDER_TIMEOUT=30s
//	SCREENER_COOKIE=<sessionid>
//	SNAPSHOT_SYMBOLS=RELIANCE,TCS,INFY
//	SNAPSHOT_CRON="30 16 * * 1-5"
type Config struct {
	Server    ServerConfig    // HTTP server configuration
	Postgres  PostgresConfig  // PostgreSQL connection settings
	Providers ProvidersConfig // Upstream data sources
	Cache     CacheConfig     // In-process response cache
	Snapshot  SnapshotConfig  // Analysis snapshot recorder
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        // The TCP port the HTTP server will listen on (e.g., "8080")
	RequestTimeout time.Duration // Upper bound for a single API request
	RateLimit      int           // Requests per minute allowed per client IP
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Fields:
//   - Host: hostname of the database server.
//   - Port: port number of the database server (default 5432).
//   - User: username for authentication.
//   - Password: password for authentication.
//   - DBName: target database name.
//   - SSLMode: SSL mode (e.g., "disable", "require").
//   - URL: computed DSN used by database/sql to connect.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// ProvidersConfig configures the four upstream adapters.
type ProvidersConfig struct {
	Timeout   time.Duration // per-call timeout applied by every adapter
	UserAgent string

	YahooBaseURL   string
	YahooCookieURL string
	YahooRPS       int

	NSEBaseURL      string
	NSERatePerMin   int
	ScreenerBaseURL string
	ScreenerCookie  string
	ScraperPerMin   int

	NewsFeedURL string
}

// CacheConfig holds per-view TTLs.
type CacheConfig struct {
	PricesTTL       time.Duration
	NewsTTL         time.Duration
	AnalysisTTL     time.Duration
	FundamentalsTTL time.Duration
	MaxItems        int
}

// SnapshotConfig drives the snapshot recorder and its schedule.
type SnapshotConfig struct {
	Symbols  []string
	Cron     string
	Timezone string
	Parallel int
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and handed to the composition root;
// packages below internal/app receive the pieces they need as arguments.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing, validateConfig() will terminate the app
//     with a descriptive log message.
func LoadConfig() {
	setDefaults()

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			RequestTimeout: viper.GetDuration("SERVER_REQUEST_TIMEOUT"),
			RateLimit:      viper.GetInt("SERVER_RATE_LIMIT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Providers: ProvidersConfig{
			Timeout:         viper.GetDuration("PROVIDER_TIMEOUT"),
			UserAgent:       viper.GetString("PROVIDER_USER_AGENT"),
			YahooBaseURL:    viper.GetString("YAHOO_BASE_URL"),
			YahooCookieURL:  viper.GetString("YAHOO_COOKIE_URL"),
			YahooRPS:        viper.GetInt("YAHOO_RPS"),
			NSEBaseURL:      viper.GetString("NSE_BASE_URL"),
			NSERatePerMin:   viper.GetInt("NSE_RATE_PER_MIN"),
			ScreenerBaseURL: viper.GetString("SCREENER_BASE_URL"),
			ScreenerCookie:  viper.GetString("SCREENER_COOKIE"),
			ScraperPerMin:   viper.GetInt("SCRAPER_RATE_PER_MIN"),
			NewsFeedURL:     viper.GetString("NEWS_FEED_URL"),
		},
		Cache: CacheConfig{
			PricesTTL:       viper.GetDuration("CACHE_TTL_PRICES"),
			NewsTTL:         viper.GetDuration("CACHE_TTL_NEWS"),
			AnalysisTTL:     viper.GetDuration("CACHE_TTL_ANALYSIS"),
			FundamentalsTTL: viper.GetDuration("CACHE_TTL_FUNDAMENTALS"),
			MaxItems:        viper.GetInt("CACHE_MAX_ITEMS"),
		},
		Snapshot: SnapshotConfig{
			Symbols:  splitList(viper.GetString("SNAPSHOT_SYMBOLS")),
			Cron:     viper.GetString("SNAPSHOT_CRON"),
			Timezone: viper.GetString("SNAPSHOT_TIMEZONE"),
			Parallel: viper.GetInt("SNAPSHOT_PARALLEL"),
		},
	}

	AppConfig.Postgres.URL = AppConfig.Postgres.DSN()

	validateConfig()
}

// ScreenerCookie re-reads the Screener session cookie so a rotated value in
// the environment is picked up on the next session bootstrap.
func ScreenerCookie() string {
	if v := viper.GetString("SCREENER_COOKIE"); v != "" {
		return v
	}
	return AppConfig.Providers.ScreenerCookie
}

// DSN builds the PostgreSQL connection string used by database/sql.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.DBName,
		p.SSLMode,
	)
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_REQUEST_TIMEOUT", 45*time.Second)
	viper.SetDefault("SERVER_RATE_LIMIT", 60)

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "nsepulse")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("PROVIDER_TIMEOUT", 30*time.Second)
	viper.SetDefault("PROVIDER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	viper.SetDefault("YAHOO_BASE_URL", "https://query1.finance.yahoo.com")
	viper.SetDefault("YAHOO_COOKIE_URL", "https://fc.yahoo.com")
	viper.SetDefault("YAHOO_RPS", 5)
	viper.SetDefault("NSE_BASE_URL", "https://www.nseindia.com")
	viper.SetDefault("NSE_RATE_PER_MIN", 20)
	viper.SetDefault("SCREENER_BASE_URL", "https://www.screener.in")
	viper.SetDefault("SCREENER_COOKIE", "")
	viper.SetDefault("SCRAPER_RATE_PER_MIN", 10)
	viper.SetDefault("NEWS_FEED_URL", "https://news.google.com/rss/search")

	viper.SetDefault("CACHE_TTL_PRICES", 300*time.Second)
	viper.SetDefault("CACHE_TTL_NEWS", 600*time.Second)
	viper.SetDefault("CACHE_TTL_ANALYSIS", 24*time.Hour)
	viper.SetDefault("CACHE_TTL_FUNDAMENTALS", 7*24*time.Hour)
	viper.SetDefault("CACHE_MAX_ITEMS", 2000)

	viper.SetDefault("SNAPSHOT_SYMBOLS", "RELIANCE,TCS,HDFCBANK,INFY,ICICIBANK")
	viper.SetDefault("SNAPSHOT_CRON", "30 16 * * 1-5")
	viper.SetDefault("SNAPSHOT_TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("SNAPSHOT_PARALLEL", 4)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if AppConfig.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if AppConfig.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if AppConfig.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if AppConfig.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if AppConfig.Providers.Timeout <= 0 {
		missing = append(missing, "PROVIDER_TIMEOUT")
	}
	if AppConfig.Providers.NSEBaseURL == "" {
		missing = append(missing, "NSE_BASE_URL")
	}
	if AppConfig.Providers.YahooBaseURL == "" {
		missing = append(missing, "YAHOO_BASE_URL")
	}

	if len(missing) > 0 {
		log.Fatalf("missing required environment variables: %v\n", missing)
	}
}
