package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"air-analyzer/pkg/builder"
	"air-analyzer/pkg/config"
	"air-analyzer/pkg/device"
	httpserver "air-analyzer/pkg/http"
	"air-analyzer/pkg/logger"
	"air-analyzer/pkg/services"
)

// Exit codes understood by the service manager
const (
	ExitOK      = 0
	ExitError   = 1
	ExitRestart = 3
)

const defaultConfigPath = "config.yaml"

// Application main application class
// Facade Pattern - one Start/Stop over the built device and its outer surfaces
type Application struct {
	app    *builder.Application
	device *device.Device
	server *httpserver.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup

	setupErr chan error
}

// NewApplication loads the configuration and builds every component
func NewApplication(cfg *config.Config) (*Application, error) {
	built, err := builder.NewDeviceBuilder(cfg).Build()
	if err != nil {
		return nil, fmt.Errorf("error building device: %w", err)
	}

	a := &Application{
		app:      built,
		device:   built.GetDevice(),
		setupErr: make(chan error, 1),
	}

	if cfg.HTTP.Enabled {
		healthHandler := httpserver.NewHealthHandler(built.GetHealthMonitor(), a.device, cfg.Device.FirmwareVersion)
		a.server = httpserver.NewServer(config.NewHTTPSettings(cfg), healthHandler, a.device, a.device, built.GetMetricsHandler())
	}
	return a, nil
}

// Start brings up the broker session, the status server and the device.
// Setup runs in the background; its failure is delivered on Done.
func (a *Application) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	cfg := a.app.GetConfig()

	if pub := a.app.GetPublisher(); pub != nil {
		a.goRun(func() {
			if err := pub.Connect(ctx); err != nil && ctx.Err() == nil {
				logger.LogError("❌ MQTT connection error: %v", err)
			}
		})
		heartbeat := services.NewHeartbeatService(pub, a.app.GetHealthMonitor(), config.NewMQTTSettings(cfg).HeartbeatInterval)
		a.goRun(func() { heartbeat.Start(ctx) })
	}

	if a.server != nil {
		a.goRun(func() {
			if err := a.server.Start(); err != nil {
				logger.LogError("❌ %v", err)
			}
		})
	}

	a.goRun(func() {
		if err := a.device.Setup(ctx); err != nil {
			a.setupErr <- err
			return
		}
		a.device.Run(ctx)
	})
}

// Done delivers a Setup failure, including device.ErrRestart
func (a *Application) Done() <-chan error {
	return a.setupErr
}

func (a *Application) goRun(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

// Stop cancels the workers and releases every resource
func (a *Application) Stop() {
	logger.LogInfo("🛑 Stopping application...")

	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.server.Shutdown(ctx); err != nil {
			logger.LogWarn("⚠️ Status server shutdown: %v", err)
		}
		cancel()
	}

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	if pub := a.app.GetPublisher(); pub != nil {
		pub.Disconnect()
	}
	if err := a.app.Close(); err != nil {
		logger.LogWarn("⚠️ Error releasing resources: %v", err)
	}

	logger.LogInfo("✅ Application stopped")
}

func usage() {
	fmt.Printf("Usage: %s [config_path] [--diagnostic]\n", os.Args[0])
	fmt.Printf("  config_path: Path to configuration file (default: %s)\n", defaultConfigPath)
	fmt.Printf("  --diagnostic: Check sensor, Wi-Fi, clock, backend and broker reachability\n")
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := defaultConfigPath
	diagnosticMode := false

	for _, arg := range os.Args[1:] {
		switch arg {
		case "--help", "-h":
			usage()
			return ExitOK
		case "--diagnostic":
			diagnosticMode = true
		default:
			configPath = arg
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error loading configuration: %v\n", err)
		return ExitError
	}

	logCloser := logger.Setup(&cfg.Logging)
	defer logCloser.Close()
	logger.LogStartup("Air Analyzer %s starting (config %s, log level %s)", cfg.Device.FirmwareVersion, configPath, cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if diagnosticMode {
		logger.LogInfo("🔍 Running diagnostic mode...")
		if err := runDiagnostics(ctx, cfg); err != nil {
			logger.LogError("Diagnostic failed: %v", err)
			return ExitError
		}
		logger.LogInfo("✅ Diagnostic completed successfully")
		return ExitOK
	}

	app, err := NewApplication(cfg)
	if err != nil {
		logger.LogError("Application creation error: %v", err)
		return ExitError
	}

	app.Start(ctx)

	code := ExitOK
	select {
	case <-ctx.Done():
		logger.LogInfo("📢 Stop signal received...")
	case err := <-app.Done():
		if errors.Is(err, device.ErrRestart) {
			logger.LogInfo("🔄 Firmware updated, exiting for restart")
			code = ExitRestart
		} else if ctx.Err() == nil {
			logger.LogError("❌ Device setup failed: %v", err)
			code = ExitError
		}
	}

	app.Stop()
	return code
}
