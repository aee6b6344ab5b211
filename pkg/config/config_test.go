package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalConfig = `
version: "1.1"
api:
  address: "http://backend.local"
`

// TestConfigLoading tests configuration file loading
func TestConfigLoading(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	configContent := `
version: "1.1"
device:
  firmware_version: "6.1.0"
sensor:
  driver: shtc3
  i2c_bus: /dev/i2c-0
api:
  address: "http://airanalyzer.example"
  port: 8000
  max_attempts: 5
  update_minutes: 30
pairing:
  port: 61000
storage:
  path: /tmp/eeprom.bin
mqtt:
  enabled: true
  broker: localhost
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(configContent), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.API.Address != "http://airanalyzer.example" {
		t.Errorf("Expected api.address 'http://airanalyzer.example', got '%s'", cfg.API.Address)
	}
	if cfg.API.Port != 8000 {
		t.Errorf("Expected api.port 8000, got %d", cfg.API.Port)
	}
	if cfg.API.MaxAttempts != 5 {
		t.Errorf("Expected api.max_attempts 5, got %d", cfg.API.MaxAttempts)
	}
	if cfg.Sensor.Driver != "shtc3" {
		t.Errorf("Expected sensor.driver 'shtc3', got '%s'", cfg.Sensor.Driver)
	}
	if cfg.Sensor.Address != 0x70 {
		t.Errorf("Expected default SHTC3 address 0x70, got 0x%02X", cfg.Sensor.Address)
	}
	if cfg.Pairing.Port != 61000 {
		t.Errorf("Expected pairing.port 61000, got %d", cfg.Pairing.Port)
	}
	if cfg.MQTT.Port != 1883 {
		t.Errorf("Expected default mqtt.port 1883, got %d", cfg.MQTT.Port)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadConfigFromString(minimalConfig)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"api.port", cfg.API.Port, 80},
		{"api.max_attempts", cfg.API.MaxAttempts, 3},
		{"api.update_minutes", cfg.API.UpdateMinutes, 10},
		{"api.retry_delay_ms", cfg.API.RetryDelay, 1000},
		{"pairing.port", cfg.Pairing.Port, 60000},
		{"pairing.read_timeout_ms", cfg.Pairing.ReadTimeout, 1000},
		{"sensor.driver", cfg.Sensor.Driver, "hdc1080"},
		{"sensor.address", cfg.Sensor.Address, uint16(0x40)},
		{"sensor.read_timeout_ms", cfg.Sensor.ReadTimeout, 1000},
		{"storage.size", cfg.Storage.Size, 187},
		{"button.long_press_ms", cfg.Button.LongPress, 3000},
		{"button.save_delay_ms", cfg.Button.SaveDelay, 5000},
		{"clock.rtc_resync_days", cfg.Clock.RTCResyncDays, 14},
		{"logging.level", cfg.Logging.Level, "info"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, tt.got)
		}
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing api address",
			yaml:    "version: \"1.1\"\napi:\n  port: 80\n",
			wantErr: "api.address is not specified",
		},
		{
			name:    "unknown sensor driver",
			yaml:    minimalConfig + "sensor:\n  driver: dht22\n",
			wantErr: "sensor.driver",
		},
		{
			name:    "mqtt enabled without broker",
			yaml:    minimalConfig + "mqtt:\n  enabled: true\n",
			wantErr: "mqtt.broker is not specified",
		},
		{
			name:    "storage too small",
			yaml:    minimalConfig + "storage:\n  size: 64\n",
			wantErr: "storage.size",
		},
		{
			name:    "unsupported version",
			yaml:    "version: \"9.0\"\napi:\n  address: x\n",
			wantErr: "incompatible configuration version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFromString(tt.yaml)
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMissingVersionAssumesCurrent(t *testing.T) {
	cfg, err := LoadConfigFromString("api:\n  address: http://backend.local\n")
	if err != nil {
		t.Fatalf("Expected config without version to load, got %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("Expected version %s, got %s", CurrentVersion, cfg.Version)
	}
}

func TestSettingsExtraction(t *testing.T) {
	cfg, err := LoadConfigFromString(minimalConfig + "mqtt:\n  broker: broker.local\n  port: 1884\n")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	api := NewAPISettings(cfg)
	if api.RetryDelay != time.Second {
		t.Errorf("Expected retry delay 1s, got %v", api.RetryDelay)
	}

	clock := NewClockSettings(cfg)
	if clock.RTCResync != 14*24*time.Hour {
		t.Errorf("Expected RTC resync 14 days, got %v", clock.RTCResync)
	}
	if clock.UpdateEvery != 10*time.Minute {
		t.Errorf("Expected update every 10m, got %v", clock.UpdateEvery)
	}

	mqtt := NewMQTTSettings(cfg)
	if mqtt.BrokerURL() != "tcp://broker.local:1884" {
		t.Errorf("Expected tcp://broker.local:1884, got %s", mqtt.BrokerURL())
	}

	ota := NewOTASettings(cfg)
	if !strings.HasSuffix(ota.URL, ":80/api/firmware/latest") {
		t.Errorf("Unexpected OTA URL %s", ota.URL)
	}
}

func TestValidateVersion(t *testing.T) {
	for _, v := range []string{"1.0", "1.1"} {
		if err := ValidateVersion(v); err != nil {
			t.Errorf("Expected %s to be compatible, got %v", v, err)
		}
	}
	if err := ValidateVersion(""); err == nil {
		t.Error("Expected error for empty version")
	}
	if !IsCompatible(CurrentVersion) {
		t.Error("Expected current version to be compatible")
	}
}

func TestExampleConfigIsValid(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("Expected example config to load, got %v", err)
	}
	if cfg.Sensor.Address != 0x40 {
		t.Errorf("Expected sensor address 0x40, got 0x%02x", cfg.Sensor.Address)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.DiscoveryPrefix != "homeassistant" {
		t.Errorf("Expected MQTT with discovery, got %+v", cfg.MQTT)
	}
	if cfg.HTTP.GracePeriod != 60 {
		t.Errorf("Expected grace period 60, got %d", cfg.HTTP.GracePeriod)
	}
}
