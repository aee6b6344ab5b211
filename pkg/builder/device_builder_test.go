package builder

import (
	"context"
	"path/filepath"
	"testing"

	"air-analyzer/pkg/config"
	"air-analyzer/pkg/metrics"
	"air-analyzer/pkg/mqtt"
	"air-analyzer/pkg/network"
	"air-analyzer/pkg/screen"
	"air-analyzer/pkg/sensor"
)

type fakeLink struct{}

func (fakeLink) IsConnected() bool { return true }
func (fakeLink) LocalIP() string   { return "10.0.0.2" }

type fakeWPS struct{}

func (fakeWPS) PushButton(ctx context.Context) (network.WiFiCredentials, error) {
	return network.WiFiCredentials{}, nil
}

func (fakeWPS) Connect(ctx context.Context, creds network.WiFiCredentials) error { return nil }

type fakePublisher struct {
	mqtt.DevicePublisher
	handler func(mqtt.Command)
}

func (f *fakePublisher) Update(t, h float64)                  {}
func (f *fakePublisher) OnCommand(handler func(mqtt.Command)) { f.handler = handler }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfigFromString(`
version: "1.1"
api:
  address: http://backend.local
sensor:
  driver: simulated
screen:
  output: none
storage:
  path: ` + filepath.Join(t.TempDir(), "eeprom.bin") + `
`)
	if err != nil {
		t.Fatalf("LoadConfigFromString failed: %v", err)
	}
	return cfg
}

func TestBuildRequiresConfig(t *testing.T) {
	if _, err := NewDeviceBuilder(nil).Build(); err == nil {
		t.Error("Expected error without config")
	}
}

func TestBuildWithDefaults(t *testing.T) {
	cfg := testConfig(t)

	app, err := NewDeviceBuilder(cfg).
		WithLink(fakeLink{}).
		WithWPS(fakeWPS{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer app.Close()

	if app.GetDevice() == nil || app.GetAPI() == nil || app.GetHealthMonitor() == nil {
		t.Fatal("Expected device, API manager and health monitor to be built")
	}
	if app.GetPublisher() != nil {
		t.Error("Expected no publisher while MQTT is disabled")
	}
	if app.GetMetricsHandler() == nil {
		t.Error("Expected Prometheus handler with default metrics")
	}
	if app.GetConfig() != cfg {
		t.Error("Expected the same config back")
	}
}

func TestBuildWithOverrides(t *testing.T) {
	cfg := testConfig(t)
	pub := &fakePublisher{}

	app, err := NewDeviceBuilder(cfg).
		WithLink(fakeLink{}).
		WithWPS(fakeWPS{}).
		WithSensorDriver(sensor.NewSimulated(1)).
		WithRenderer(screen.NopRenderer{}).
		WithMetrics(metrics.NewNullMetrics()).
		WithPublisher(pub).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer app.Close()

	if app.GetMetricsHandler() != nil {
		t.Error("Expected no metrics handler for the null collector")
	}
	if app.GetPublisher() != pub {
		t.Error("Expected the injected publisher")
	}
	if pub.handler == nil {
		t.Error("Expected the device to subscribe to remote commands")
	}
	if app.GetDevice().Snapshot() == nil {
		t.Error("Expected a snapshot")
	}
}

func TestBuildFailsOnBadStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Path = filepath.Join(t.TempDir(), "missing", "dir", "eeprom.bin")
	cfg.Storage.Size = -1

	if _, err := NewDeviceBuilder(cfg).WithLink(fakeLink{}).WithWPS(fakeWPS{}).Build(); err == nil {
		t.Error("Expected error for an invalid storage image")
	}
}

func TestRemoteHoldSamples(t *testing.T) {
	loop := config.LoopSettings{PollInterval: 50e6, LongPress: 3e9}
	if got := remoteHoldSamples(loop); got != 62 {
		t.Errorf("Expected 62 samples, got %d", got)
	}
	if got := remoteHoldSamples(config.LoopSettings{}); got != 2 {
		t.Errorf("Expected 2 samples without an interval, got %d", got)
	}
}
