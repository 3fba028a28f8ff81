package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.EventKafkaTopic != "commie-events" {
		t.Errorf("EventKafkaTopic = %q, want %q", cfg.EventKafkaTopic, "commie-events")
	}
	if cfg.KafkaGroupID != "commie-event-worker" {
		t.Errorf("KafkaGroupID = %q, want %q", cfg.KafkaGroupID, "commie-event-worker")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092, ")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	brokers := cfg.EventKafkaBrokersList()
	if len(brokers) != 2 || brokers[0] != "k1:9092" || brokers[1] != "k2:9092" {
		t.Errorf("EventKafkaBrokersList = %v, want [k1:9092 k2:9092]", brokers)
	}
}

func TestLoad_RejectsBothJWTModes(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_PUBLIC_KEY", "-----BEGIN PUBLIC KEY-----")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when both JWT_SECRET and JWT_PUBLIC_KEY are set")
	}
}

func TestSweepIntervalDuration(t *testing.T) {
	c := &Config{SweepInterval: "30s"}
	if got := c.SweepIntervalDuration(); got != 30*time.Second {
		t.Errorf("SweepIntervalDuration = %v, want 30s", got)
	}
	c.SweepInterval = "bogus"
	if got := c.SweepIntervalDuration(); got != time.Minute {
		t.Errorf("SweepIntervalDuration (invalid) = %v, want 1m", got)
	}
}

func TestCORSOriginsList(t *testing.T) {
	c := &Config{}
	if got := c.CORSOriginsList(); len(got) != 1 || got[0] != "*" {
		t.Errorf("CORSOriginsList (empty) = %v, want [*]", got)
	}
	c.CORSAllowedOrigins = "https://app.example.com, https://staging.example.com"
	got := c.CORSOriginsList()
	if len(got) != 2 || got[0] != "https://app.example.com" {
		t.Errorf("CORSOriginsList = %v", got)
	}
}
