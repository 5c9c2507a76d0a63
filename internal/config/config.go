package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"schooltrack/internal/core/geo"
	"schooltrack/internal/core/model"
)

type Config struct {
	Host string
	Port string

	RedisURL string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	JWTSecret string

	School SchoolConfig
	Ingest IngestConfig
	Rules  []model.ThresholdRule
}

// SchoolConfig is the verification policy: where the geofence sits and how
// the day boundaries determine late and early-pickup statuses.
type SchoolConfig struct {
	Name     string
	Location model.ReferenceLocation
	DayStart string // clock time, 15:04
	DayEnd   string
	Grace    time.Duration
}

type IngestConfig struct {
	DedupWindow   time.Duration
	LateTolerance time.Duration
}

// Load reads configuration from the environment (and .env when present) and
// validates it. Invalid configuration is the one error class that must abort
// startup, so callers are expected to treat a non-nil error as fatal.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Host:         getEnv("HOST", "0.0.0.0"),
		Port:         getEnv("PORT", "8000"),
		RedisURL:     getEnv("REDIS_URL", ""),
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "schooltrack.events"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "schooltrack-aggregator"),
		JWTSecret:    getEnv("JWT_ACCESS_SECRET", ""),
		School: SchoolConfig{
			Name: getEnv("SCHOOL_NAME", "default"),
			Location: model.ReferenceLocation{
				Coordinate: model.Coordinate{
					Latitude:  getEnvFloat("SCHOOL_LATITUDE", 0),
					Longitude: getEnvFloat("SCHOOL_LONGITUDE", 0),
				},
				RadiusMeters: getEnvFloat("SCHOOL_RADIUS_METERS", 100),
				Label:        getEnv("SCHOOL_LOCATION_LABEL", "school"),
			},
			DayStart: getEnv("DAY_START", "08:00"),
			DayEnd:   getEnv("DAY_END", "16:00"),
			Grace:    time.Duration(getEnvInt("GRACE_PERIOD_MIN", 15)) * time.Minute,
		},
		Ingest: IngestConfig{
			DedupWindow:   time.Duration(getEnvInt("DEDUP_WINDOW_MIN", 5)) * time.Minute,
			LateTolerance: time.Duration(getEnvInt("LATE_TOLERANCE_HOURS", 24)) * time.Hour,
		},
	}

	rules, err := loadRules(getEnv("ALERT_RULES_PATH", ""))
	if err != nil {
		return nil, err
	}
	cfg.Rules = rules

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := geo.Validate(c.School.Location.Coordinate); err != nil {
		return fmt.Errorf("school location: %w", err)
	}
	if c.School.Location.RadiusMeters <= 0 {
		return fmt.Errorf("school radius must be positive, got %f", c.School.Location.RadiusMeters)
	}
	for _, clock := range []string{c.School.DayStart, c.School.DayEnd} {
		if _, err := time.Parse("15:04", clock); err != nil {
			return fmt.Errorf("invalid day boundary %q: %w", clock, err)
		}
	}
	if c.School.Grace < 0 {
		return fmt.Errorf("grace period must not be negative")
	}
	if c.Ingest.DedupWindow <= 0 || c.Ingest.LateTolerance <= 0 {
		return fmt.Errorf("dedup window and late tolerance must be positive")
	}
	for _, rule := range c.Rules {
		if err := rule.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// loadRules reads the threshold rule list from a JSON file. With no path
// configured the built-in defaults apply.
func loadRules(path string) ([]model.ThresholdRule, error) {
	if path == "" {
		return defaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading alert rules: %w", err)
	}
	var rules []model.ThresholdRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing alert rules: %w", err)
	}
	return rules, nil
}

func defaultRules() []model.ThresholdRule {
	return []model.ThresholdRule{
		{Kind: "attendance", MetricPath: "rate.attendance", Comparator: model.CompareLT, Threshold: 0.8, Severity: model.SeverityHigh},
		{Kind: "attendance", MetricPath: "counts.needsReview", Comparator: model.CompareGT, Threshold: 5, Severity: model.SeverityMedium},
		{Kind: "trip", MetricPath: "rate.utilization", Comparator: model.CompareLT, Threshold: 0.5, Severity: model.SeverityLow},
		{Kind: "vehicleStatus", MetricPath: "counts.breakdown", Comparator: model.CompareGTE, Threshold: 1, Severity: model.SeverityUrgent},
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return strings.TrimSpace(value)
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return n
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
