package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"air-analyzer/pkg/api"
	"air-analyzer/pkg/button"
	"air-analyzer/pkg/config"
	"air-analyzer/pkg/logger"
	"air-analyzer/pkg/mqtt"
	"air-analyzer/pkg/network"
	"air-analyzer/pkg/ota"
	"air-analyzer/pkg/pairing"
	"air-analyzer/pkg/screen"
	"air-analyzer/pkg/sensor"
	"air-analyzer/pkg/services"
	"air-analyzer/pkg/storage"
)

// ErrRestart is returned by Setup after a firmware image was downloaded
var ErrRestart = errors.New("firmware updated, restart required")

// Phase is the lifecycle stage reported on the status page
type Phase string

const (
	PhaseBoot    Phase = "boot"
	PhaseInstall Phase = "install"
	PhasePairing Phase = "pairing"
	PhaseLoading Phase = "loading"
	PhaseRunning Phase = "running"
)

// Updater checks for a newer firmware image
type Updater interface {
	Check(ctx context.Context, version string) (ota.Result, error)
}

// Telemetry is the optional broker mirror: a third sensor observer that can
// also deliver remote commands
type Telemetry interface {
	sensor.Observer
	OnCommand(handler func(mqtt.Command))
}

// ErrorReporter receives typed failures for logging and diagnostics
type ErrorReporter interface {
	Handle(ctx context.Context, err error)
}

// Settings holds the timings and identities the device needs
type Settings struct {
	Firmware       string
	HostnamePrefix string
	API            config.APISettings
	PairingPort    int
	Loop           config.LoopSettings
	BrandTime      time.Duration
	LinkPoll       time.Duration
}

// NewSettings extracts device settings from full config
func NewSettings(cfg *config.Config) Settings {
	return Settings{
		Firmware:       cfg.Device.FirmwareVersion,
		HostnamePrefix: cfg.Device.HostnamePrefix,
		API:            config.NewAPISettings(cfg),
		PairingPort:    cfg.Pairing.Port,
		Loop:           config.NewLoopSettings(cfg),
		BrandTime:      3 * time.Second,
		LinkPoll:       500 * time.Millisecond,
	}
}

// Components are the collaborators the device drives. Remote, Updater,
// Telemetry and Reporter are optional.
type Components struct {
	Layout    *storage.Layout
	Sensor    *sensor.Subject
	API       *api.Manager
	Screen    *screen.Screen
	Button    *button.Button
	Remote    *button.RemotePin
	Socket    *pairing.Socket
	Link      network.Link
	WPS       network.WPS
	Updater   Updater
	Telemetry Telemetry
	Reporter  ErrorReporter
}

// Device is the composition root: it owns every component, runs the boot
// configuration and then the cooperative loop
type Device struct {
	settings Settings

	layout    *storage.Layout
	sensor    *sensor.Subject
	api       *api.Manager
	screen    *screen.Screen
	button    *button.Button
	remote    *button.RemotePin
	socket    *pairing.Socket
	link      network.Link
	wps       network.WPS
	updater   Updater
	telemetry Telemetry
	reporter  ErrorReporter

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	syncRequests chan struct{}

	mu        sync.Mutex
	phase     Phase
	hostname  string
	saveAt    time.Time
	errorFlag bool
}

// New wires the components. Sensor observers are registered in order: API
// manager, screen, telemetry.
func New(settings Settings, c Components) *Device {
	d := &Device{
		settings:     settings,
		layout:       c.Layout,
		sensor:       c.Sensor,
		api:          c.API,
		screen:       c.Screen,
		button:       c.Button,
		remote:       c.Remote,
		socket:       c.Socket,
		link:         c.Link,
		wps:          c.WPS,
		updater:      c.Updater,
		telemetry:    c.Telemetry,
		reporter:     c.Reporter,
		now:          time.Now,
		sleep:        sleepCtx,
		syncRequests: make(chan struct{}, 1),
		phase:        PhaseBoot,
	}

	d.sensor.AddObserver(d.api)
	d.sensor.AddObserver(d.screen)
	if d.telemetry != nil {
		d.sensor.AddObserver(d.telemetry)
		d.telemetry.OnCommand(d.handleCommand)
	}
	return d
}

// Run repeats Loop every poll interval until ctx ends
func (d *Device) Run(ctx context.Context) {
	services.NewLoopService(d, d.settings.Loop.PollInterval).Start(ctx)
}

// RequestSync queues a room synchronization for the next loop pass. It
// returns false when one is already queued.
func (d *Device) RequestSync() bool {
	select {
	case d.syncRequests <- struct{}{}:
		logger.LogDebug("🔁 Room synchronization requested")
		return true
	default:
		return false
	}
}

func (d *Device) handleCommand(cmd mqtt.Command) {
	switch cmd {
	case mqtt.CommandShortPress:
		d.pushRemote(button.PressShort)
	case mqtt.CommandLongPress:
		d.pushRemote(button.PressLong)
	case mqtt.CommandSync:
		d.RequestSync()
	}
}

func (d *Device) pushRemote(press button.Press) {
	if d.remote == nil {
		logger.LogWarn("🔘 Remote %s press ignored, no remote button configured", press)
		return
	}
	d.remote.Push(press)
}

// IsUpdated reports the outcome of the last backend round trip
func (d *Device) IsUpdated() bool {
	return d.api.IsUpdated()
}

// IsLinkUp reports the Wi-Fi state
func (d *Device) IsLinkUp() bool {
	return d.link.IsConnected()
}

// RoomNumber returns the room the device currently represents
func (d *Device) RoomNumber() uint8 {
	return d.api.RoomNumber()
}

// Phase returns the lifecycle stage
func (d *Device) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

func (d *Device) setPhase(p Phase) {
	d.mu.Lock()
	d.phase = p
	d.mu.Unlock()
	logger.LogDebug("📍 Phase: %s", p)
}

// Snapshot is the device view served on /status
type Snapshot struct {
	Phase        Phase      `json:"phase"`
	Firmware     string     `json:"firmware"`
	Hostname     string     `json:"hostname"`
	Room         uint8      `json:"room"`
	Temperature  float64    `json:"temperature"`
	Humidity     float64    `json:"humidity"`
	Connected    bool       `json:"connected"`
	LocalIP      string     `json:"local_ip"`
	PendingSave  bool       `json:"pending_save"`
	RetryingSync bool       `json:"retrying_sync"`
	Backend      api.Status `json:"backend"`
}

// State returns a point-in-time snapshot
func (d *Device) State() Snapshot {
	temperature, humidity := d.sensor.Reading()

	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		Phase:        d.phase,
		Firmware:     d.settings.Firmware,
		Hostname:     d.hostname,
		Room:         d.api.RoomNumber(),
		Temperature:  temperature,
		Humidity:     humidity,
		Connected:    d.link.IsConnected(),
		LocalIP:      d.link.LocalIP(),
		PendingSave:  !d.saveAt.IsZero(),
		RetryingSync: d.errorFlag,
		Backend:      d.api.Status(),
	}
}

// Snapshot implements the status provider of the HTTP server
func (d *Device) Snapshot() interface{} {
	return d.State()
}

func (d *Device) report(ctx context.Context, err error) {
	if d.reporter != nil {
		d.reporter.Handle(ctx, err)
		return
	}
	logger.LogError("❌ %v", err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
