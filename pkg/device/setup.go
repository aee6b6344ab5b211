package device

import (
	"context"
	"fmt"

	"air-analyzer/pkg/button"
	"air-analyzer/pkg/config"
	"air-analyzer/pkg/logger"
	"air-analyzer/pkg/network"
	"air-analyzer/pkg/ota"
	"air-analyzer/pkg/pairing"
	"air-analyzer/pkg/storage"
)

// Setup runs the boot sequence. The stored layout version selects the path:
// a blank device is installed, then paired, then loaded; a version 1 or 2
// device is paired, then loaded; a current device is only loaded.
func (d *Device) Setup(ctx context.Context) error {
	logger.LogInfo("🚀 Air Analyzer firmware %s", d.settings.Firmware)

	if err := d.showBrand(ctx); err != nil {
		return err
	}

	version, err := d.layout.Version()
	if err != nil {
		return err
	}
	logger.LogInfo("💾 Storage layout version %d", version)

	switch version {
	case 0:
		if err := d.install(ctx); err != nil {
			return err
		}
		fallthrough
	case 1, 2:
		if err := d.upgrade(ctx); err != nil {
			return err
		}
		d.screen.ShowMessagePage("Installation", "complete")
		if err := d.sleep(ctx, d.settings.Loop.Message); err != nil {
			return err
		}
		fallthrough
	default:
		if err := d.load(ctx); err != nil {
			return err
		}
	}

	d.screen.ShowMainPage()
	d.screen.StartStandby(d.now())
	d.setPhase(PhaseRunning)
	logger.LogInfo("✅ Device ready in room %d", d.api.RoomNumber())
	return nil
}

// showBrand draws the logo for the brand window. A long press inside the
// window zeroes the stored version so the next boot reinstalls.
func (d *Device) showBrand(ctx context.Context) error {
	d.screen.ShowBrand(d.settings.Firmware)

	deadline := d.now().Add(d.settings.BrandTime)
	for d.now().Before(deadline) {
		if d.button.CheckPress(d.now()) == button.PressLong {
			logger.LogWarn("♻️ Factory reset requested")
			if err := d.layout.SaveVersion(0); err != nil {
				return err
			}
			d.screen.ShowMessagePage("Reset", "complete")
			return d.sleep(ctx, d.settings.Loop.Message)
		}
		if err := d.sleep(ctx, d.settings.Loop.PollInterval); err != nil {
			return err
		}
	}
	return nil
}

// install is the first-boot flow: choose the room with the button, then
// acquire Wi-Fi through WPS
func (d *Device) install(ctx context.Context) error {
	d.setPhase(PhaseInstall)
	logger.LogInfo("🧰 Starting installation")

	if err := d.layout.Reset(); err != nil {
		return err
	}

	room, err := d.chooseRoom(ctx)
	if err != nil {
		return err
	}
	logger.LogInfo("🏠 Room %d selected", room)

	creds, err := d.acquireWiFi(ctx)
	if err != nil {
		return err
	}

	if err := d.layout.SaveVersion(storage.LayoutVersion); err != nil {
		return err
	}
	if err := d.layout.SaveWiFi(creds.SSID, creds.Password); err != nil {
		return err
	}
	if _, err := d.layout.SaveRoomID(room); err != nil {
		return err
	}
	return nil
}

// chooseRoom cycles the room on short presses and returns it on a long press
func (d *Device) chooseRoom(ctx context.Context) (uint8, error) {
	room := uint8(config.MinRoomNumber)
	d.showRoomChoice(room)

	for {
		switch d.button.CheckPress(d.now()) {
		case button.PressShort:
			room = nextRoom(room)
			d.showRoomChoice(room)
		case button.PressLong:
			return room, nil
		}
		if err := d.sleep(ctx, d.settings.Loop.PollInterval); err != nil {
			return 0, err
		}
	}
}

func (d *Device) showRoomChoice(room uint8) {
	d.screen.ShowMessagePage("Installation", fmt.Sprintf("Room: %d", room), "short: next", "long: confirm")
}

// acquireWiFi repeats the WPS push-button exchange until it yields an SSID
func (d *Device) acquireWiFi(ctx context.Context) (network.WiFiCredentials, error) {
	for {
		d.screen.ShowMessagePage("Wi-Fi", "press WPS on the router", "then press the button")
		if err := d.waitShortPress(ctx); err != nil {
			return network.WiFiCredentials{}, err
		}

		d.screen.ShowMessagePage("Wi-Fi", "searching...")
		creds, err := d.wps.PushButton(ctx)
		if err == nil && creds.SSID != "" {
			logger.LogInfo("📶 WPS joined '%s'", creds.SSID)
			return creds, nil
		}
		if ctx.Err() != nil {
			return network.WiFiCredentials{}, ctx.Err()
		}
		logger.LogWarn("📶 WPS failed: %v", err)

		d.screen.ShowMessagePage("Wi-Fi", "WPS failed", "try again")
		if err := d.sleep(ctx, d.settings.Loop.Message); err != nil {
			return network.WiFiCredentials{}, err
		}
	}
}

func (d *Device) waitShortPress(ctx context.Context) error {
	for d.button.CheckPress(d.now()) != button.PressShort {
		if err := d.sleep(ctx, d.settings.Loop.PollInterval); err != nil {
			return err
		}
	}
	return nil
}

// upgrade brings a version 1 or 2 device to the current layout and receives
// the backend credentials from the companion app
func (d *Device) upgrade(ctx context.Context) error {
	d.setPhase(PhasePairing)

	if _, err := d.layout.Migrate(); err != nil {
		return err
	}
	profile, err := d.layout.LoadProfile()
	if err != nil {
		return err
	}
	room := validRoom(profile.RoomID)

	if err := d.connectWiFi(ctx, profile.WiFiSSID, profile.WiFiPassword, room); err != nil {
		return err
	}

	ip := d.link.LocalIP()
	logger.LogInfo("📡 Waiting for the app on %s:%d", ip, d.settings.PairingPort)
	d.screen.ShowMessagePage("Pairing", "open the app and", "connect to", ip)

	sink := pairing.CredentialSinkFunc(d.storeCredentials)
	if err := pairing.WaitForCredentials(ctx, d.socket, d.settings.PairingPort, d.settings.Loop.PollInterval, sink); err != nil {
		return err
	}
	d.socket.SendRoomID(room)
	d.socket.DetachClient()

	return d.layout.SaveVersion(storage.LayoutVersion)
}

// load restores the stored profile and brings every component up. The
// API initialization blocks until the backend acknowledged the room.
func (d *Device) load(ctx context.Context) error {
	d.setPhase(PhaseLoading)

	d.screen.ShowLoadingPage("EEPROM", 0)
	profile, err := d.layout.LoadProfile()
	if err != nil {
		return err
	}
	logger.LogDebug("💾 Profile: %s", profile)
	room := validRoom(profile.RoomID)

	d.screen.ShowLoadingPage("Wi-Fi", 20)
	if err := d.connectWiFi(ctx, profile.WiFiSSID, profile.WiFiPassword, room); err != nil {
		return err
	}
	if err := d.socket.Begin(d.settings.PairingPort); err != nil {
		logger.LogWarn("📡 Pairing socket not started: %v", err)
	}

	d.screen.ShowLoadingPage("Firmware", 40)
	if d.updater != nil {
		result, err := d.updater.Check(ctx, d.settings.Firmware)
		if err != nil {
			logger.LogWarn("📦 Firmware check failed: %v", err)
		}
		if result == ota.Updated {
			d.screen.ShowMessagePage("Firmware", "updated", "restarting")
			if err := d.sleep(ctx, d.settings.Loop.Message); err != nil {
				return err
			}
			return ErrRestart
		}
	}

	d.screen.ShowLoadingPage("API", 60)
	d.api.SetRoomNumber(room)
	d.api.SetCredentials(profile.Username, profile.Password)
	backend := d.settings.API
	if err := d.api.Initialize(ctx, backend.Address, backend.Port, backend.MaxAttempts, backend.UpdateMinutes); err != nil {
		return err
	}

	d.screen.ShowLoadingPage("Sensor", 80)
	if err := d.sensor.Configure(); err != nil {
		logger.LogWarn("🌡️ Sensor configuration failed: %v", err)
	}

	d.screen.ShowLoadingPage("Screen", 100)
	d.screen.SetRoomNumber(room)
	d.screen.SetConnected(d.link.IsConnected())
	d.screen.SetUpdated(d.api.IsUpdated())
	return nil
}

// connectWiFi joins the stored network unless the link is already up and
// waits for the interface to come up
func (d *Device) connectWiFi(ctx context.Context, ssid, password string, room uint8) error {
	hostname := network.Hostname(d.settings.HostnamePrefix, room)
	d.mu.Lock()
	d.hostname = hostname
	d.mu.Unlock()
	logger.LogInfo("📶 Connecting '%s' as %s", ssid, hostname)

	if !d.link.IsConnected() {
		if err := d.wps.Connect(ctx, network.WiFiCredentials{SSID: ssid, Password: password}); err != nil {
			logger.LogWarn("📶 Join request failed: %v", err)
		}
	}
	if err := network.WaitForLink(ctx, d.link, d.settings.LinkPoll); err != nil {
		return err
	}
	logger.LogInfo("📶 Connected with address %s", d.link.LocalIP())
	return nil
}

// storeCredentials persists credentials from the app and hands them to the
// API manager
func (d *Device) storeCredentials(username, password string) error {
	if err := d.layout.SaveCredentials(username, password); err != nil {
		return err
	}
	d.api.SetCredentials(username, password)
	return nil
}

func nextRoom(room uint8) uint8 {
	if room >= config.MaxRoomNumber {
		return config.MinRoomNumber
	}
	return room + 1
}

func validRoom(room uint8) uint8 {
	if room < config.MinRoomNumber || room > config.MaxRoomNumber {
		return config.MinRoomNumber
	}
	return room
}
