package config

import (
	"fmt"
	"os"

	"air-analyzer/pkg/logger"

	"gopkg.in/yaml.v3"
)

// Config represents the complete device configuration
type Config struct {
	Version string               `yaml:"version"`
	Device  DeviceConfig         `yaml:"device"`
	Sensor  SensorConfig         `yaml:"sensor"`
	API     APIConfig            `yaml:"api"`
	Pairing PairingConfig        `yaml:"pairing"`
	Storage StorageConfig        `yaml:"storage"`
	Button  ButtonConfig         `yaml:"button"`
	Screen  ScreenConfig         `yaml:"screen"`
	Network NetworkConfig        `yaml:"network"`
	Clock   ClockConfig          `yaml:"clock"`
	OTA     OTAConfig            `yaml:"ota"`
	MQTT    MQTTConfig           `yaml:"mqtt"`
	HTTP    HTTPConfig           `yaml:"http"`
	Logging logger.LoggingConfig `yaml:"logging"`
}

// DeviceConfig identifies this unit
type DeviceConfig struct {
	FirmwareVersion string `yaml:"firmware_version"`
	HostnamePrefix  string `yaml:"hostname_prefix"`
}

// SensorConfig selects and tunes the temperature/humidity driver
type SensorConfig struct {
	Driver       string `yaml:"driver"` // hdc1080, shtc3 or simulated
	I2CBus       string `yaml:"i2c_bus"`
	Address      uint16 `yaml:"address"`
	ReadTimeout  int    `yaml:"read_timeout_ms"` // Minimum spacing of hardware reads
	PollInterval int    `yaml:"poll_interval_ms"`
}

// APIConfig contains the REST backend settings
type APIConfig struct {
	Address       string `yaml:"address"` // Scheme and host, e.g. http://backend.local
	Port          int    `yaml:"port"`
	MaxAttempts   int    `yaml:"max_attempts"`
	UpdateMinutes int    `yaml:"update_minutes"`
	RetryDelay    int    `yaml:"retry_delay_ms"` // Startup synchronization backoff
	Timeout       int    `yaml:"timeout_ms"`
}

// PairingConfig contains the companion-app socket settings
type PairingConfig struct {
	Port        int `yaml:"port"`
	ReadTimeout int `yaml:"read_timeout_ms"`
}

// StorageConfig locates the flat byte image standing in for EEPROM
type StorageConfig struct {
	Path string `yaml:"path"`
	Size int    `yaml:"size"`
}

// ButtonConfig contains the push-button settings
type ButtonConfig struct {
	GPIOValuePath string `yaml:"gpio_value_path"` // sysfs value file; empty disables the physical button
	ActiveLow     bool   `yaml:"active_low"`
	LongPress     int    `yaml:"long_press_ms"`
	SaveDelay     int    `yaml:"save_delay_ms"`
}

// ScreenConfig contains display timings
type ScreenConfig struct {
	StandbyOff int    `yaml:"standby_off_ms"`
	StandbyOn  int    `yaml:"standby_on_ms"`
	Message    int    `yaml:"message_ms"`
	Output     string `yaml:"output"` // stdout, stderr, none or a file rewritten per frame
}

// NetworkConfig describes the Wi-Fi link
type NetworkConfig struct {
	Interface  string `yaml:"interface"`
	WPACommand string `yaml:"wpa_command"`
	WPSTimeout int    `yaml:"wps_timeout_ms"`
}

// ClockConfig contains the RTC/NTP settings
type ClockConfig struct {
	NTPServer     string `yaml:"ntp_server"`
	RTCResyncDays int    `yaml:"rtc_resync_days"`
	NTPRetry      int    `yaml:"ntp_retry_ms"`
}

// OTAConfig contains the firmware update server settings
type OTAConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Address      string `yaml:"address"`
	Port         int    `yaml:"port"`
	URI          string `yaml:"uri"`
	DownloadPath string `yaml:"download_path"`
}

// MQTTConfig contains the optional telemetry broker settings
type MQTTConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Broker            string `yaml:"broker"`
	Port              int    `yaml:"port"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	ClientID          string `yaml:"client_id"`
	BaseTopic         string `yaml:"base_topic"`
	DiscoveryPrefix   string `yaml:"discovery_prefix"` // Home Assistant discovery; empty disables
	KeepAlive         int    `yaml:"keep_alive"`         // Seconds
	RetryDelay        int    `yaml:"retry_delay"`        // Milliseconds between connection retries
	HeartbeatInterval int    `yaml:"heartbeat_interval"` // Seconds
}

// HTTPConfig contains the local status server settings
type HTTPConfig struct {
	Enabled     bool `yaml:"enabled"`
	Port        int  `yaml:"port"`
	GracePeriod int  `yaml:"grace_period_s"` // Failing backend time before /health reports degraded
}

// LoadConfig loads configuration from the first readable location
func LoadConfig(configPath string) (*Config, error) {
	paths := []string{
		configPath,
		"/etc/air-analyzer/config.yaml",
		"/etc/air-analyzer.yaml",
		"./config.yaml",
	}

	var data []byte
	var err error
	var usedPath string

	for _, path := range paths {
		if path == "" {
			continue
		}
		// #nosec G304 - Paths are from a hardcoded list of configuration file locations
		data, err = os.ReadFile(path)
		if err == nil {
			usedPath = path
			break
		}
	}

	if usedPath == "" {
		return nil, fmt.Errorf("cannot read configuration file from any of the locations: %v. Last error: %w", paths, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", usedPath, err)
	}

	logger.LogInfo("✅ Configuration loaded successfully from %s (version: %s)", usedPath, cfg.Version)
	return cfg, nil
}

// LoadConfigFromString loads configuration from a YAML string (for testing)
func LoadConfigFromString(yamlContent string) (*Config, error) {
	return parse([]byte(yamlContent))
}

func parse(data []byte) (*Config, error) {
	var versionCheck VersionInfo
	if err := yaml.Unmarshal(data, &versionCheck); err != nil {
		return nil, fmt.Errorf("error parsing configuration version: %w", err)
	}
	if versionCheck.Version == "" {
		logger.LogWarn("⚠️  No 'version' field in configuration, assuming %s", CurrentVersion)
		versionCheck.Version = CurrentVersion
	}
	if err := ValidateVersion(versionCheck.Version); err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}
	config.Version = versionCheck.Version

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// ApplyDefaults fills every unset field with the firmware's defaults
func (c *Config) ApplyDefaults() {
	setString(&c.Device.FirmwareVersion, "6.0.0")
	setString(&c.Device.HostnamePrefix, "Air Analyzer-")

	setString(&c.Sensor.Driver, "hdc1080")
	setString(&c.Sensor.I2CBus, "/dev/i2c-1")
	if c.Sensor.Address == 0 {
		switch c.Sensor.Driver {
		case "shtc3":
			c.Sensor.Address = 0x70
		default:
			c.Sensor.Address = 0x40
		}
	}
	setInt(&c.Sensor.ReadTimeout, 1000)
	setInt(&c.Sensor.PollInterval, 50)

	setInt(&c.API.Port, 80)
	setInt(&c.API.MaxAttempts, 3)
	setInt(&c.API.UpdateMinutes, 10)
	setInt(&c.API.RetryDelay, 1000)
	setInt(&c.API.Timeout, 5000)

	setInt(&c.Pairing.Port, 60000)
	setInt(&c.Pairing.ReadTimeout, 1000)

	setString(&c.Storage.Path, "/var/lib/air-analyzer/eeprom.bin")
	setInt(&c.Storage.Size, 187)

	setInt(&c.Button.LongPress, 3000)
	setInt(&c.Button.SaveDelay, 5000)

	setInt(&c.Screen.StandbyOff, 3000)
	setInt(&c.Screen.StandbyOn, 100)
	setInt(&c.Screen.Message, 5000)
	setString(&c.Screen.Output, "stdout")

	setString(&c.Network.Interface, "wlan0")
	setString(&c.Network.WPACommand, "wpa_cli")
	setInt(&c.Network.WPSTimeout, 120000)

	setString(&c.Clock.NTPServer, "pool.ntp.org")
	setInt(&c.Clock.RTCResyncDays, 14)
	setInt(&c.Clock.NTPRetry, 5000)

	setInt(&c.OTA.Port, 80)
	setString(&c.OTA.URI, "api/firmware/latest")
	setString(&c.OTA.DownloadPath, "/var/lib/air-analyzer/firmware.bin")

	setInt(&c.MQTT.Port, 1883)
	setString(&c.MQTT.ClientID, "air-analyzer")
	setString(&c.MQTT.BaseTopic, "air-analyzer")
	setInt(&c.MQTT.KeepAlive, 60)
	setInt(&c.MQTT.RetryDelay, 5000)
	setInt(&c.MQTT.HeartbeatInterval, 20)

	setInt(&c.HTTP.Port, 8080)
	setInt(&c.HTTP.GracePeriod, 60)

	setString(&c.Logging.Level, logger.LogLevelInfo)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API.Address == "" {
		return fmt.Errorf("api.address is not specified")
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be between 1 and 65535")
	}
	if c.API.MaxAttempts <= 0 {
		return fmt.Errorf("api.max_attempts must be positive")
	}
	if c.API.UpdateMinutes <= 0 {
		return fmt.Errorf("api.update_minutes must be positive")
	}
	if c.API.UpdateMinutes > MaxUpdateMinutes {
		logger.LogWarn("⚠️  api.update_minutes %d exceeds %d and will be clamped", c.API.UpdateMinutes, MaxUpdateMinutes)
	}

	switch c.Sensor.Driver {
	case "hdc1080", "shtc3", "simulated":
	default:
		return fmt.Errorf("sensor.driver %q is not supported (hdc1080, shtc3, simulated)", c.Sensor.Driver)
	}
	if c.Sensor.PollInterval <= 0 {
		return fmt.Errorf("sensor.poll_interval_ms must be positive")
	}

	if c.Pairing.Port <= 0 || c.Pairing.Port > 65535 {
		return fmt.Errorf("pairing.port must be between 1 and 65535")
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is not specified")
	}
	if c.Storage.Size < MinStorageSize {
		return fmt.Errorf("storage.size must be at least %d bytes", MinStorageSize)
	}

	if c.OTA.Enabled && c.OTA.Address == "" {
		return fmt.Errorf("ota.address is not specified")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is not specified")
		}
		if c.MQTT.Port <= 0 {
			return fmt.Errorf("mqtt.port must be positive")
		}
	}

	if c.HTTP.Enabled && (c.HTTP.Port <= 0 || c.HTTP.Port > 65535) {
		return fmt.Errorf("http.port must be between 1 and 65535")
	}

	return nil
}

func setString(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func setInt(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}
