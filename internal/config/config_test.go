package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"DB_URL", "RABBITMQ_URL", "API_PORT", "WORKER_PORT", "SCHEDULER_PORT",
		"EXEC_MAX_RETRIES", "EXEC_BACKOFF_BASE_MS", "HTTP_ACTION_TIMEOUT_SEC",
		"SCHEDULER_TICK_SEC", "WORKER_PREFETCH",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxRetries != 3 || cfg.BackoffBaseMs != 500 {
		t.Errorf("unexpected retry defaults: %+v", cfg)
	}
	if cfg.APIPort != "8080" || cfg.WorkerPort != "8083" || cfg.SchedulerPort != "8084" {
		t.Errorf("unexpected ports: %+v", cfg)
	}
	if cfg.HTTPActionTimeout != 30*time.Second || cfg.SchedulerTick != 15*time.Second {
		t.Errorf("unexpected durations: %+v", cfg)
	}
	if cfg.WorkerPrefetch != 5 {
		t.Errorf("unexpected prefetch: %d", cfg.WorkerPrefetch)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("EXEC_MAX_RETRIES", "0")
	t.Setenv("EXEC_BACKOFF_BASE_MS", "50")
	t.Setenv("HTTP_ACTION_TIMEOUT_SEC", "5")
	t.Setenv("API_PORT", "9000")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxRetries != 0 || cfg.BackoffBaseMs != 50 {
		t.Errorf("unexpected retry settings: %+v", cfg)
	}
	if cfg.HTTPActionTimeout != 5*time.Second {
		t.Errorf("unexpected timeout: %v", cfg.HTTPActionTimeout)
	}
	if Addr(cfg.APIPort) != ":9000" {
		t.Errorf("unexpected addr: %s", Addr(cfg.APIPort))
	}
}

func TestLoadFromEnv_Rejects(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"EXEC_MAX_RETRIES", "many"},
		{"EXEC_MAX_RETRIES", "-1"},
		{"EXEC_BACKOFF_BASE_MS", "-10"},
		{"HTTP_ACTION_TIMEOUT_SEC", "0"},
		{"SCHEDULER_TICK_SEC", "1.5"},
		{"WORKER_PREFETCH", "0"},
		{"API_PORT", "http"},
		{"WORKER_PORT", "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
