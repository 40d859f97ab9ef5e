package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	PublicURL            string
	DatabaseURL          string
	RedisURL             string
	NATSURL              string
	EventSubjectPrefix   string
	SessionSecret        string
	SessionTTL           time.Duration
	SessionCookieName    string
	TeacherInviteCode    string
	StatisticsCacheTTL   time.Duration
	LoginRateLimit       int
	LoginRateLimitWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// SurveyLink builds the public access link for a survey code.
func (c Config) SurveyLink(code string) string {
	return strings.TrimRight(c.PublicURL, "/") + "/s/" + code
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("QS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Questionnaire API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.public_url", "http://localhost:8080")
	v.SetDefault("database.url", "questionnaire.db")
	v.SetDefault("events.subject_prefix", "questionnaire")
	v.SetDefault("session.ttl", "12h")
	v.SetDefault("session.cookie", "qs_session")
	v.SetDefault("statistics.cache_ttl", "5m")
	v.SetDefault("auth.login_rate_limit", 10)
	v.SetDefault("auth.login_rate_window", "1m")

	sessionTTL, err := parseDuration(v, "session.ttl", 12*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("invalid session ttl: %w", err)
	}

	statsTTL, err := parseDuration(v, "statistics.cache_ttl", 5*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid statistics cache ttl: %w", err)
	}

	loginWindow, err := parseDuration(v, "auth.login_rate_window", time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid login rate window: %w", err)
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		PublicURL:            v.GetString("app.public_url"),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		NATSURL:              v.GetString("nats.url"),
		EventSubjectPrefix:   v.GetString("events.subject_prefix"),
		SessionSecret:        v.GetString("session.secret"),
		SessionTTL:           sessionTTL,
		SessionCookieName:    v.GetString("session.cookie"),
		TeacherInviteCode:    strings.TrimSpace(v.GetString("auth.teacher_invite_code")),
		StatisticsCacheTTL:   statsTTL,
		LoginRateLimit:       v.GetInt("auth.login_rate_limit"),
		LoginRateLimitWindow: loginWindow,
	}

	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("session secret must be provided")
	}

	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}

	if cfg.SessionCookieName == "" {
		cfg.SessionCookieName = "qs_session"
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
