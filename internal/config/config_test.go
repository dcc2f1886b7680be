package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "TOKEN_TTL_HOURS", "WORKER_CONCURRENCY", "DEFAULT_TIMEZONE", "REMINDER_DEFAULT_HOUR", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.Addr() != "127.0.0.1:7070" {
		t.Fatalf("addr = %s", c.Addr())
	}
	if c.TokenTTL != 24*time.Hour || c.WorkerConcurrency != 2 || c.ReminderDefaultHour != 9 {
		t.Fatalf("defaults = %+v", c)
	}
	if c.Location() != time.UTC {
		t.Fatalf("location = %v", c.Location())
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("WORKER_CONCURRENCY", "500")
	t.Setenv("DEFAULT_TIMEZONE", "America/Mexico_City")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("TOKEN_TTL_HOURS", "not-a-number")
	c := Load()
	if c.Port != 8080 || c.WorkerConcurrency != 50 || c.TokenTTL != 24*time.Hour {
		t.Fatalf("overrides = %+v", c)
	}
	if c.SlogLevel() != slog.LevelDebug {
		t.Fatalf("level = %v", c.SlogLevel())
	}
}

func TestValidateRejects(t *testing.T) {
	base := Config{Port: 7070, DBDSN: "file::memory:", ReminderDefaultHour: 9, DefaultTimezone: "UTC", TokenTTL: time.Hour}
	cases := map[string]func(*Config){
		"port":     func(c *Config) { c.Port = 0 },
		"dsn":      func(c *Config) { c.DBDSN = "" },
		"hour":     func(c *Config) { c.ReminderDefaultHour = 24 },
		"timezone": func(c *Config) { c.DefaultTimezone = "Mars/Olympus" },
		"ttl":      func(c *Config) { c.TokenTTL = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
