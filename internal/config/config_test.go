package config

import (
	"testing"
	"time"

	"schooltrack/internal/core/model"
)

func validConfig() *Config {
	return &Config{
		School: SchoolConfig{
			Name: "test",
			Location: model.ReferenceLocation{
				Coordinate:   model.Coordinate{Latitude: 0.5143, Longitude: 35.2698},
				RadiusMeters: 30,
			},
			DayStart: "08:00",
			DayEnd:   "16:00",
			Grace:    15 * time.Minute,
		},
		Ingest: IngestConfig{
			DedupWindow:   5 * time.Minute,
			LateTolerance: 24 * time.Hour,
		},
		Rules: defaultRules(),
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero radius", func(c *Config) { c.School.Location.RadiusMeters = 0 }},
		{"negative radius", func(c *Config) { c.School.Location.RadiusMeters = -5 }},
		{"latitude out of range", func(c *Config) { c.School.Location.Coordinate.Latitude = 95 }},
		{"malformed day start", func(c *Config) { c.School.DayStart = "8 o'clock" }},
		{"malformed day end", func(c *Config) { c.School.DayEnd = "25:00" }},
		{"zero dedup window", func(c *Config) { c.Ingest.DedupWindow = 0 }},
		{"bad rule comparator", func(c *Config) { c.Rules[0].Comparator = "between" }},
		{"bad rule severity", func(c *Config) { c.Rules[0].Severity = "catastrophic" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
