package builder

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"air-analyzer/pkg/api"
	"air-analyzer/pkg/button"
	"air-analyzer/pkg/clock"
	"air-analyzer/pkg/config"
	"air-analyzer/pkg/device"
	deverrors "air-analyzer/pkg/errors"
	"air-analyzer/pkg/health"
	"air-analyzer/pkg/logger"
	"air-analyzer/pkg/metrics"
	"air-analyzer/pkg/mqtt"
	"air-analyzer/pkg/network"
	"air-analyzer/pkg/ota"
	"air-analyzer/pkg/pairing"
	"air-analyzer/pkg/screen"
	"air-analyzer/pkg/sensor"
	"air-analyzer/pkg/storage"
)

// DeviceBuilder provides a fluent interface for constructing the device and
// its collaborators. Anything not overridden is built from the config.
type DeviceBuilder struct {
	config      *config.Config
	link        network.Link
	wps         network.WPS
	driver      sensor.Driver
	publisher   mqtt.DevicePublisher
	renderer    screen.Renderer
	pins        []button.Pin
	metrics     metrics.MetricsCollector
	rtc         clock.Source
	fetcher     clock.TimeFetcher
	updater     device.Updater
	healthGrace time.Duration
}

// NewDeviceBuilder creates a builder for cfg
func NewDeviceBuilder(cfg *config.Config) *DeviceBuilder {
	b := &DeviceBuilder{config: cfg}
	if cfg != nil {
		b.healthGrace = time.Duration(cfg.HTTP.GracePeriod) * time.Second
	}
	return b
}

// WithLink sets the network link
func (b *DeviceBuilder) WithLink(link network.Link) *DeviceBuilder {
	b.link = link
	return b
}

// WithWPS sets the Wi-Fi provisioning backend
func (b *DeviceBuilder) WithWPS(wps network.WPS) *DeviceBuilder {
	b.wps = wps
	return b
}

// WithSensorDriver sets the sensor driver
func (b *DeviceBuilder) WithSensorDriver(driver sensor.Driver) *DeviceBuilder {
	b.driver = driver
	return b
}

// WithPublisher sets the MQTT publisher, enabling telemetry
func (b *DeviceBuilder) WithPublisher(pub mqtt.DevicePublisher) *DeviceBuilder {
	b.publisher = pub
	return b
}

// WithRenderer sets the display renderer
func (b *DeviceBuilder) WithRenderer(r screen.Renderer) *DeviceBuilder {
	b.renderer = r
	return b
}

// WithPins adds button pins; the remote pin is always present
func (b *DeviceBuilder) WithPins(pins ...button.Pin) *DeviceBuilder {
	b.pins = append(b.pins, pins...)
	return b
}

// WithMetrics sets the metrics collector
func (b *DeviceBuilder) WithMetrics(collector metrics.MetricsCollector) *DeviceBuilder {
	b.metrics = collector
	return b
}

// WithClock sets the RTC and its network time source
func (b *DeviceBuilder) WithClock(rtc clock.Source, fetcher clock.TimeFetcher) *DeviceBuilder {
	b.rtc = rtc
	b.fetcher = fetcher
	return b
}

// WithUpdater sets the firmware update checker
func (b *DeviceBuilder) WithUpdater(u device.Updater) *DeviceBuilder {
	b.updater = u
	return b
}

// WithHealthGracePeriod sets how long the backend may fail before /health
// reports degraded
func (b *DeviceBuilder) WithHealthGracePeriod(period time.Duration) *DeviceBuilder {
	b.healthGrace = period
	return b
}

// Build constructs the application. Missing collaborators get their
// production implementation.
func (b *DeviceBuilder) Build() (*Application, error) {
	if b.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := b.config
	app := &Application{config: cfg}

	if b.metrics == nil {
		prom := metrics.NewPrometheusMetrics()
		b.metrics = prom
		app.metricsHandler = prom.Handler()
	} else if h, ok := b.metrics.(interface{ Handler() http.Handler }); ok {
		app.metricsHandler = h.Handler()
	}
	app.metrics = b.metrics

	store := storage.NewStore(cfg.Storage.Path)
	if err := store.Begin(cfg.Storage.Size); err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closerFunc(store.End))

	if b.link == nil {
		b.link = network.NewInterfaceLink(cfg.Network.Interface)
	}
	if b.wps == nil {
		b.wps = network.NewWPACli(cfg.Network.WPACommand, cfg.Network.Interface, time.Duration(cfg.Network.WPSTimeout)*time.Millisecond)
	}

	sensorSettings := config.NewSensorSettings(cfg)
	if b.driver == nil {
		driver, closer, err := sensor.NewDriver(sensorSettings)
		if err != nil {
			app.Close()
			return nil, err
		}
		b.driver = driver
		app.closers = append(app.closers, closer)
	}
	subject := sensor.NewSubject(b.driver, sensorSettings.ReadTimeout, b.metrics)

	if b.rtc == nil {
		b.rtc = clock.NewSystemRTC()
	}
	if b.fetcher == nil {
		b.fetcher = clock.NewNTPFetcher(cfg.Clock.NTPServer)
	}
	interval := clock.NewInterval(b.rtc, b.fetcher, config.NewClockSettings(cfg))

	manager := api.NewManager(config.NewAPISettings(cfg), b.link, interval, b.metrics)
	app.api = manager

	app.healthMonitor = health.NewBackendHealthMonitor(b.healthGrace)
	manager.SetOutcomeListener(app.healthMonitor)

	if b.publisher == nil && cfg.MQTT.Enabled {
		b.publisher = mqtt.NewPublisher(config.NewMQTTSettings(cfg), cfg.Device.FirmwareVersion, manager, b.metrics)
	}
	app.publisher = b.publisher

	// A nil *Publisher must not reach the handler as a non-nil interface
	if b.publisher != nil {
		app.errorHandler = deverrors.NewErrorHandler(b.publisher)
	} else {
		app.errorHandler = deverrors.NewErrorHandler(nil)
	}
	manager.SetErrorReporter(app.errorHandler)
	subject.SetErrorReporter(app.errorHandler)

	if b.renderer == nil {
		b.renderer = screen.NewRenderer(cfg.Screen.Output)
	}
	loop := config.NewLoopSettings(cfg)
	display := screen.New(b.renderer, loop.StandbyOff, loop.StandbyOn)

	remote := button.NewRemotePin(remoteHoldSamples(loop))
	pins := button.MultiPin{remote}
	if cfg.Button.GPIOValuePath != "" {
		pins = append(pins, button.NewSysfsPin(cfg.Button.GPIOValuePath, cfg.Button.ActiveLow))
	}
	pins = append(pins, b.pins...)

	socket := pairing.NewSocket(b.link, config.NewPairingSettings(cfg), logger.NewStandardLogger(), b.metrics)
	app.closers = append(app.closers, closerFunc(func() error {
		socket.End()
		return nil
	}))

	if b.updater == nil && cfg.OTA.Enabled {
		b.updater = ota.NewUpdater(config.NewOTASettings(cfg), &http.Client{Timeout: 5 * time.Minute})
	}

	components := device.Components{
		Layout:   storage.NewLayout(store),
		Sensor:   subject,
		API:      manager,
		Screen:   display,
		Button:   button.New(pins, loop.LongPress),
		Remote:   remote,
		Socket:   socket,
		Link:     b.link,
		WPS:      b.wps,
		Reporter: app.errorHandler,
	}
	if b.updater != nil {
		components.Updater = b.updater
	}
	if b.publisher != nil {
		components.Telemetry = b.publisher
	}
	app.device = device.New(device.NewSettings(cfg), components)

	logger.LogDebug("🧱 Device built: sensor=%s mqtt=%v ota=%v gpio=%v",
		b.driver.Name(), b.publisher != nil, b.updater != nil, cfg.Button.GPIOValuePath != "")
	return app, nil
}

// remoteHoldSamples keeps a remote long press down for longer than the
// long-press time at the loop cadence
func remoteHoldSamples(loop config.LoopSettings) int {
	if loop.PollInterval <= 0 {
		return 2
	}
	return int(loop.LongPress/loop.PollInterval) + 2
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Application holds the built device and the services around it
type Application struct {
	config         *config.Config
	device         *device.Device
	api            *api.Manager
	publisher      mqtt.DevicePublisher
	healthMonitor  *health.BackendHealthMonitor
	errorHandler   *deverrors.ErrorHandler
	metrics        metrics.MetricsCollector
	metricsHandler http.Handler
	closers        []io.Closer
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *config.Config {
	return app.config
}

// GetDevice returns the device
func (app *Application) GetDevice() *device.Device {
	return app.device
}

// GetAPI returns the backend manager
func (app *Application) GetAPI() *api.Manager {
	return app.api
}

// GetPublisher returns the MQTT publisher, nil when telemetry is disabled
func (app *Application) GetPublisher() mqtt.DevicePublisher {
	return app.publisher
}

// GetHealthMonitor returns the backend health monitor
func (app *Application) GetHealthMonitor() *health.BackendHealthMonitor {
	return app.healthMonitor
}

// GetErrorHandler returns the shared error handler
func (app *Application) GetErrorHandler() *deverrors.ErrorHandler {
	return app.errorHandler
}

// GetMetrics returns the metrics collector
func (app *Application) GetMetrics() metrics.MetricsCollector {
	return app.metrics
}

// GetMetricsHandler returns the Prometheus handler, nil for other collectors
func (app *Application) GetMetricsHandler() http.Handler {
	return app.metricsHandler
}

// Close releases hardware and files in reverse order of acquisition
func (app *Application) Close() error {
	var first error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	app.closers = nil
	return first
}
