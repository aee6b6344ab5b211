package device

import (
	"context"
	"time"

	"air-analyzer/pkg/button"
	"air-analyzer/pkg/logger"
	"air-analyzer/pkg/network"
	"air-analyzer/pkg/pairing"
)

// Loop is one pass of the cooperative device loop
func (d *Device) Loop(ctx context.Context) {
	d.serviceSocket(ctx)
	d.handleButton(ctx, d.now())
	d.saveRoomIfDue(ctx, d.now())
	d.handleSyncRequest(ctx)
	d.mirrorIndicators()
	d.retrySync(ctx)
	d.screen.Tick(d.now())
	d.sensor.Poll()
}

// serviceSocket answers a credentials request from the app, or restarts
// the listener when it is down
func (d *Device) serviceSocket(ctx context.Context) {
	if !d.socket.IsListening() {
		d.socket.End()
		if err := d.socket.Begin(d.settings.PairingPort); err != nil {
			logger.LogTrace("📡 Pairing socket not restarted: %v", err)
		}
		return
	}

	d.socket.AttachClient()
	if d.socket.Listen() != pairing.RequestCredentials {
		return
	}

	started := d.now()
	d.screen.ShowMessagePage("Request", "from the app")

	username, password, err := d.socket.Credentials()
	if err != nil {
		d.report(ctx, err)
	} else if err := d.storeCredentials(username, password); err != nil {
		d.report(ctx, err)
	} else {
		logger.LogInfo("🔑 Credentials updated for '%s'", username)
		d.socket.SendRoomID(d.api.RoomNumber())
	}

	d.sleep(ctx, d.settings.Loop.Message-d.now().Sub(started))
	d.screen.ShowMainPage()
}

func (d *Device) handleButton(ctx context.Context, now time.Time) {
	switch d.button.CheckPress(now) {
	case button.PressLong:
		d.joinWithWPS(ctx)
	case button.PressShort:
		d.cycleRoom(now)
	}
}

// joinWithWPS runs WPS and stores the network on success. On failure the
// stored network is rejoined.
func (d *Device) joinWithWPS(ctx context.Context) {
	logger.LogInfo("📶 WPS requested")
	d.screen.ShowMessagePage("Wi-Fi", "searching...")

	creds, err := d.wps.PushButton(ctx)
	if err == nil && creds.SSID != "" {
		if err := d.layout.SaveWiFi(creds.SSID, creds.Password); err != nil {
			d.report(ctx, err)
		}
		logger.LogInfo("📶 WPS joined '%s'", creds.SSID)
		d.screen.ShowMessagePage("Wi-Fi", "connected", creds.SSID)
	} else {
		logger.LogWarn("📶 WPS failed: %v", err)
		if profile, perr := d.layout.LoadProfile(); perr == nil {
			stored := network.WiFiCredentials{SSID: profile.WiFiSSID, Password: profile.WiFiPassword}
			if cerr := d.wps.Connect(ctx, stored); cerr != nil {
				logger.LogWarn("📶 Rejoin '%s' failed: %v", stored.SSID, cerr)
			}
		} else {
			d.report(ctx, perr)
		}
		d.screen.ShowMessagePage("Wi-Fi", "WPS failed")
	}

	d.sleep(ctx, d.settings.Loop.Message)
	d.screen.ShowMainPage()
}

// cycleRoom moves to the next room and arms the delayed save
func (d *Device) cycleRoom(now time.Time) {
	room := nextRoom(d.api.RoomNumber())
	d.api.SetRoomNumber(room)
	d.screen.SetRoomNumber(room)
	d.screen.ShowMainPage()

	d.mu.Lock()
	d.saveAt = now.Add(d.settings.Loop.SaveDelay)
	d.mu.Unlock()
	logger.LogInfo("🏠 Room %d selected, saving in %v", room, d.settings.Loop.SaveDelay)
}

// saveRoomIfDue synchronizes and persists the room once the save delay
// after the last press has passed
func (d *Device) saveRoomIfDue(ctx context.Context, now time.Time) {
	d.mu.Lock()
	due := !d.saveAt.IsZero() && now.After(d.saveAt)
	if due {
		d.saveAt = time.Time{}
	}
	d.mu.Unlock()
	if !due {
		return
	}

	d.setErrorFlag(!d.api.SynchronizeRoom(ctx))

	room := d.api.RoomNumber()
	written, err := d.layout.SaveRoomID(room)
	if err != nil {
		d.report(ctx, err)
		return
	}
	if written {
		logger.LogInfo("💾 Room %d saved", room)
	}
}

func (d *Device) handleSyncRequest(ctx context.Context) {
	select {
	case <-d.syncRequests:
		d.setErrorFlag(!d.api.SynchronizeRoom(ctx))
	default:
	}
}

// mirrorIndicators copies the backend and link state into the screen icons
func (d *Device) mirrorIndicators() {
	redraw := false
	if updated := d.api.IsUpdated(); d.screen.IsUpdated() != updated {
		d.screen.SetUpdated(updated)
		redraw = true
	}
	if connected := d.link.IsConnected(); d.screen.IsConnected() != connected {
		d.screen.SetConnected(connected)
		redraw = true
	}
	if redraw {
		d.screen.ShowMainPage()
	}
}

// retrySync repeats a failed room synchronization every pass
func (d *Device) retrySync(ctx context.Context) {
	if !d.errorFlagSet() {
		return
	}
	if d.api.SynchronizeRoom(ctx) {
		logger.LogInfo("🔁 Room synchronization recovered")
		d.setErrorFlag(false)
	}
}

func (d *Device) setErrorFlag(v bool) {
	d.mu.Lock()
	d.errorFlag = v
	d.mu.Unlock()
}

func (d *Device) errorFlagSet() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errorFlag
}
