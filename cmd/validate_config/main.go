package main

import (
	"fmt"
	"os"

	"air-analyzer/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: validate_config <config-file>")
		os.Exit(1)
	}

	configPath := os.Args[1]
	fmt.Printf("📄 Loading config from: %s\n", configPath)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Config loaded successfully!\n")
	fmt.Printf("   Version: %s\n", cfg.Version)
	fmt.Printf("   Firmware: %s\n", cfg.Device.FirmwareVersion)
	fmt.Printf("   Backend: %s:%d (login attempts %d, upload every %d min)\n",
		cfg.API.Address, cfg.API.Port, cfg.API.MaxAttempts, cfg.API.UpdateMinutes)
	if cfg.API.UpdateMinutes > config.MaxUpdateMinutes {
		fmt.Printf("   ⚠️  update_minutes will be clamped to %d\n", config.MaxUpdateMinutes)
	}
	fmt.Printf("   Sensor: %s on %s (0x%02x), poll %d ms\n",
		cfg.Sensor.Driver, cfg.Sensor.I2CBus, cfg.Sensor.Address, cfg.Sensor.PollInterval)
	fmt.Printf("   Storage: %s (%d bytes)\n", cfg.Storage.Path, cfg.Storage.Size)
	fmt.Printf("   Pairing port: %d\n", cfg.Pairing.Port)
	fmt.Printf("   Network: %s via %s\n", cfg.Network.Interface, cfg.Network.WPACommand)

	if cfg.Button.GPIOValuePath != "" {
		fmt.Printf("   Button: %s (active low %v)\n", cfg.Button.GPIOValuePath, cfg.Button.ActiveLow)
	} else {
		fmt.Printf("   Button: remote only\n")
	}

	if cfg.OTA.Enabled {
		fmt.Printf("   OTA: %s:%d/%s\n", cfg.OTA.Address, cfg.OTA.Port, cfg.OTA.URI)
	} else {
		fmt.Printf("   OTA: disabled\n")
	}

	if cfg.MQTT.Enabled {
		fmt.Printf("   MQTT Broker: %s:%d (base topic %s)\n", cfg.MQTT.Broker, cfg.MQTT.Port, cfg.MQTT.BaseTopic)
		if cfg.MQTT.DiscoveryPrefix != "" {
			fmt.Printf("   Discovery prefix: %s\n", cfg.MQTT.DiscoveryPrefix)
		}
	} else {
		fmt.Printf("   MQTT: disabled\n")
	}

	if cfg.HTTP.Enabled {
		fmt.Printf("   Status server: :%d\n", cfg.HTTP.Port)
	}

	fmt.Println("\n✅ Configuration is valid!")
}
