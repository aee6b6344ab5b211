package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"air-analyzer/pkg/clock"
	"air-analyzer/pkg/config"
	"air-analyzer/pkg/logger"
	"air-analyzer/pkg/metrics"
	"air-analyzer/pkg/mqtt"
	"air-analyzer/pkg/network"
	"air-analyzer/pkg/sensor"
)

const diagnosticTimeout = 10 * time.Second

// runDiagnostics checks each outside dependency in boot order and stops at
// the first failure
func runDiagnostics(ctx context.Context, cfg *config.Config) error {
	logger.LogInfo("🔍 Test 1: Sensor (%s)", cfg.Sensor.Driver)
	driver, closer, err := sensor.NewDriver(config.NewSensorSettings(cfg))
	if err != nil {
		return fmt.Errorf("sensor open failed: %w", err)
	}
	defer closer.Close()
	if err := driver.Configure(); err != nil {
		logger.LogInfo("💡 Check the I2C bus %s and address 0x%02x", cfg.Sensor.I2CBus, cfg.Sensor.Address)
		return fmt.Errorf("sensor configuration failed: %w", err)
	}
	temperature, humidity, err := driver.Read()
	if err != nil {
		return fmt.Errorf("sensor read failed: %w", err)
	}
	logger.LogInfo("✅ Sensor read %.2f°C %.2f%%", temperature, humidity)

	logger.LogInfo("🔍 Test 2: Wi-Fi link (%s)", cfg.Network.Interface)
	link := network.NewInterfaceLink(cfg.Network.Interface)
	if !link.IsConnected() {
		logger.LogInfo("💡 The interface has no IPv4 address; pair it with WPS from the device")
		return fmt.Errorf("interface %s is down", cfg.Network.Interface)
	}
	logger.LogInfo("✅ Link up with address %s", link.LocalIP())

	logger.LogInfo("🔍 Test 3: Time server (%s)", cfg.Clock.NTPServer)
	ntpCtx, cancel := context.WithTimeout(ctx, diagnosticTimeout)
	now, err := clock.NewNTPFetcher(cfg.Clock.NTPServer).Fetch(ntpCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("time fetch failed: %w", err)
	}
	logger.LogInfo("✅ Network time %s (local offset %v)", now.Format(time.RFC3339), time.Until(now).Round(time.Millisecond))

	logger.LogInfo("🔍 Test 4: Backend (%s:%d)", cfg.API.Address, cfg.API.Port)
	if err := dialBackend(ctx, cfg.API.Address, cfg.API.Port); err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	logger.LogInfo("✅ Backend accepts connections")

	if !cfg.MQTT.Enabled {
		logger.LogInfo("⏭️ Test 5: MQTT disabled, skipped")
		return nil
	}
	logger.LogInfo("🔍 Test 5: MQTT broker (%s:%d)", cfg.MQTT.Broker, cfg.MQTT.Port)
	pub := mqtt.NewPublisher(config.NewMQTTSettings(cfg), cfg.Device.FirmwareVersion, fixedRoom(0), metrics.NewNullMetrics())
	mqttCtx, cancel := context.WithTimeout(ctx, diagnosticTimeout)
	defer cancel()
	if err := pub.Connect(mqttCtx); err != nil {
		return err
	}
	pub.Disconnect()
	logger.LogInfo("✅ MQTT broker reachable")
	return nil
}

// dialBackend opens a TCP connection to the backend host without logging in
func dialBackend(ctx context.Context, address string, port int) error {
	host := address
	if u, err := url.Parse(address); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	dialer := net.Dialer{Timeout: diagnosticTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	return conn.Close()
}

type fixedRoom uint8

func (r fixedRoom) RoomNumber() uint8 { return uint8(r) }
