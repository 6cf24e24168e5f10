package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store.Driver != StoreDriverSQLite {
		t.Errorf("Expected sqlite store by default, got %s", cfg.Store.Driver)
	}
	if cfg.Sync.DeliveryMode != DeliveryModeSimulated {
		t.Errorf("Expected simulated delivery by default, got %s", cfg.Sync.DeliveryMode)
	}
	if cfg.Sync.RequestTimeout != 8*time.Second || cfg.Sync.HardCutoff != 10*time.Second {
		t.Errorf("Unexpected sync timeouts %v / %v", cfg.Sync.RequestTimeout, cfg.Sync.HardCutoff)
	}
	if cfg.Connectivity.Debounce != 300*time.Millisecond {
		t.Errorf("Expected 300ms debounce, got %v", cfg.Connectivity.Debounce)
	}
	if cfg.Sync.DeviceID == "" {
		t.Error("Expected a device id")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", StoreDriverMemory)
	t.Setenv("SYNC_REQUEST_TIMEOUT", "2s")
	t.Setenv("SYNC_AUTO_ON_RECONNECT", "false")
	t.Setenv("ANOMALY_MAX_CONSUMPTION", "150")
	t.Setenv("CONNECTIVITY_DEBOUNCE", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Driver != StoreDriverMemory {
		t.Errorf("Expected memory store, got %s", cfg.Store.Driver)
	}
	if cfg.Sync.RequestTimeout != 2*time.Second {
		t.Errorf("Expected 2s request timeout, got %v", cfg.Sync.RequestTimeout)
	}
	if cfg.Sync.AutoSync {
		t.Error("Expected auto-sync disabled")
	}
	if cfg.Anomaly.MaxConsumption != 150 {
		t.Errorf("Expected max consumption 150, got %v", cfg.Anomaly.MaxConsumption)
	}
	if cfg.Connectivity.Debounce != 300*time.Millisecond {
		t.Errorf("Expected fallback debounce, got %v", cfg.Connectivity.Debounce)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"STORE_DRIVER": StoreDriverPostgres}},
		{"amqp without url", map[string]string{"SYNC_DELIVERY_MODE": DeliveryModeAMQP}},
		{"unknown driver", map[string]string{"STORE_DRIVER": "leveldb"}},
		{"success rate out of range", map[string]string{"SYNC_SIMULATED_SUCCESS_RATE": "1.5"}},
		{"zero hard cutoff", map[string]string{"SYNC_HARD_CUTOFF": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FIELD_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv("FIELD_TEST_VALUE")
	})

	if path := LoadEnvFile(); path == "" {
		t.Fatal("Expected .env file to be found")
	}
	if got := os.Getenv("FIELD_TEST_VALUE"); got != "from-file" {
		t.Errorf("Expected value from .env, got %q", got)
	}
}
