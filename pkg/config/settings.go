package config

import (
	"fmt"
	"time"
)

// Hard limits shared by config validation and the components
const (
	MaxUpdateMinutes = 240
	MinStorageSize   = 187
	MinRoomNumber    = 1
	MaxRoomNumber    = 9
)

// APISettings contains only backend-specific configuration
// Used for dependency injection to avoid coupling to full Config
type APISettings struct {
	Address       string
	Port          int
	MaxAttempts   int
	UpdateMinutes int
	RetryDelay    time.Duration
	Timeout       time.Duration
}

// NewAPISettings extracts backend settings from full config
func NewAPISettings(cfg *Config) APISettings {
	return APISettings{
		Address:       cfg.API.Address,
		Port:          cfg.API.Port,
		MaxAttempts:   cfg.API.MaxAttempts,
		UpdateMinutes: cfg.API.UpdateMinutes,
		RetryDelay:    time.Duration(cfg.API.RetryDelay) * time.Millisecond,
		Timeout:       time.Duration(cfg.API.Timeout) * time.Millisecond,
	}
}

// SensorSettings contains sensor driver configuration
type SensorSettings struct {
	Driver       string
	I2CBus       string
	Address      uint16
	ReadTimeout  time.Duration
	PollInterval time.Duration
}

// NewSensorSettings extracts sensor settings from full config
func NewSensorSettings(cfg *Config) SensorSettings {
	return SensorSettings{
		Driver:       cfg.Sensor.Driver,
		I2CBus:       cfg.Sensor.I2CBus,
		Address:      cfg.Sensor.Address,
		ReadTimeout:  time.Duration(cfg.Sensor.ReadTimeout) * time.Millisecond,
		PollInterval: time.Duration(cfg.Sensor.PollInterval) * time.Millisecond,
	}
}

// PairingSettings contains pairing socket configuration
type PairingSettings struct {
	Port        int
	ReadTimeout time.Duration
}

// NewPairingSettings extracts pairing settings from full config
func NewPairingSettings(cfg *Config) PairingSettings {
	return PairingSettings{
		Port:        cfg.Pairing.Port,
		ReadTimeout: time.Duration(cfg.Pairing.ReadTimeout) * time.Millisecond,
	}
}

// LoopSettings contains the timings of the cooperative device loop
type LoopSettings struct {
	PollInterval time.Duration
	LongPress    time.Duration
	SaveDelay    time.Duration
	StandbyOff   time.Duration
	StandbyOn    time.Duration
	Message      time.Duration
}

// NewLoopSettings extracts loop timings from full config
func NewLoopSettings(cfg *Config) LoopSettings {
	return LoopSettings{
		PollInterval: time.Duration(cfg.Sensor.PollInterval) * time.Millisecond,
		LongPress:    time.Duration(cfg.Button.LongPress) * time.Millisecond,
		SaveDelay:    time.Duration(cfg.Button.SaveDelay) * time.Millisecond,
		StandbyOff:   time.Duration(cfg.Screen.StandbyOff) * time.Millisecond,
		StandbyOn:    time.Duration(cfg.Screen.StandbyOn) * time.Millisecond,
		Message:      time.Duration(cfg.Screen.Message) * time.Millisecond,
	}
}

// ClockSettings contains RTC resynchronisation configuration
type ClockSettings struct {
	NTPServer   string
	RTCResync   time.Duration
	NTPRetry    time.Duration
	UpdateEvery time.Duration
}

// NewClockSettings extracts clock settings from full config
func NewClockSettings(cfg *Config) ClockSettings {
	return ClockSettings{
		NTPServer:   cfg.Clock.NTPServer,
		RTCResync:   time.Duration(cfg.Clock.RTCResyncDays) * 24 * time.Hour,
		NTPRetry:    time.Duration(cfg.Clock.NTPRetry) * time.Millisecond,
		UpdateEvery: time.Duration(cfg.API.UpdateMinutes) * time.Minute,
	}
}

// MQTTSettings contains only MQTT-specific configuration
// Used for dependency injection to avoid coupling to full Config
type MQTTSettings struct {
	Broker            string
	Port              int
	Username          string
	Password          string
	ClientID          string
	BaseTopic         string
	DiscoveryPrefix   string
	RetryDelay        time.Duration
	KeepAlive         time.Duration
	HeartbeatInterval time.Duration
}

// NewMQTTSettings extracts MQTT settings from full config
func NewMQTTSettings(cfg *Config) MQTTSettings {
	return MQTTSettings{
		Broker:            cfg.MQTT.Broker,
		Port:              cfg.MQTT.Port,
		Username:          cfg.MQTT.Username,
		Password:          cfg.MQTT.Password,
		ClientID:          cfg.MQTT.ClientID,
		BaseTopic:         cfg.MQTT.BaseTopic,
		DiscoveryPrefix:   cfg.MQTT.DiscoveryPrefix,
		RetryDelay:        time.Duration(cfg.MQTT.RetryDelay) * time.Millisecond,
		KeepAlive:         time.Duration(cfg.MQTT.KeepAlive) * time.Second,
		HeartbeatInterval: time.Duration(cfg.MQTT.HeartbeatInterval) * time.Second,
	}
}

// BrokerURL returns the paho broker address
func (s MQTTSettings) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", s.Broker, s.Port)
}

// OTASettings contains the firmware update endpoint
type OTASettings struct {
	URL          string
	DownloadPath string
	Version      string
}

// NewOTASettings extracts OTA settings from full config
func NewOTASettings(cfg *Config) OTASettings {
	return OTASettings{
		URL:          fmt.Sprintf("%s:%d/%s", cfg.OTA.Address, cfg.OTA.Port, cfg.OTA.URI),
		DownloadPath: cfg.OTA.DownloadPath,
		Version:      cfg.Device.FirmwareVersion,
	}
}

// HTTPSettings contains the local status server configuration
type HTTPSettings struct {
	Port        int
	GracePeriod time.Duration
	Version     string
}

// NewHTTPSettings extracts status server settings from full config
func NewHTTPSettings(cfg *Config) HTTPSettings {
	return HTTPSettings{
		Port:        cfg.HTTP.Port,
		GracePeriod: time.Duration(cfg.HTTP.GracePeriod) * time.Second,
		Version:     cfg.Device.FirmwareVersion,
	}
}
