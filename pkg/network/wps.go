package network

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"air-analyzer/pkg/logger"
)

// WiFiCredentials is the network acquired through WPS
type WiFiCredentials struct {
	SSID     string
	Password string
}

// WPS acquires and joins Wi-Fi networks
type WPS interface {
	// PushButton runs WPS push-button configuration
	PushButton(ctx context.Context) (WiFiCredentials, error)
	// Connect joins a known network
	Connect(ctx context.Context, creds WiFiCredentials) error
}

// runner executes a command and returns its combined output
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// WPACli drives wpa_supplicant through wpa_cli
type WPACli struct {
	command string
	iface   string
	timeout time.Duration
	poll    time.Duration
	run     runner
}

// NewWPACli creates a WPS driver for iface
func NewWPACli(command, iface string, timeout time.Duration) *WPACli {
	return &WPACli{
		command: command,
		iface:   iface,
		timeout: timeout,
		poll:    time.Second,
		run:     execRunner,
	}
}

func (w *WPACli) cli(ctx context.Context, args ...string) (string, error) {
	out, err := w.run(ctx, w.command, append([]string{"-i", w.iface}, args...)...)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", w.command, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (w *WPACli) expectOK(ctx context.Context, args ...string) error {
	out, err := w.cli(ctx, args...)
	if err != nil {
		return err
	}
	if out != "OK" {
		return fmt.Errorf("%s %s: %s", w.command, strings.Join(args, " "), out)
	}
	return nil
}

// PushButton starts WPS-PBC and waits until the supplicant associates
func (w *WPACli) PushButton(ctx context.Context) (WiFiCredentials, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.expectOK(ctx, "wps_pbc"); err != nil {
		return WiFiCredentials{}, err
	}
	logger.LogInfo("📶 WPS push-button started on %s", w.iface)

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return WiFiCredentials{}, fmt.Errorf("wps: %w", ctx.Err())
		case <-ticker.C:
		}

		out, err := w.cli(ctx, "status")
		if err != nil {
			continue
		}
		status := parseStatus(out)
		if status["wpa_state"] != "COMPLETED" || status["ssid"] == "" {
			continue
		}

		creds := WiFiCredentials{SSID: status["ssid"]}
		if id := status["id"]; id != "" {
			creds.Password = w.networkPSK(ctx, id)
		}
		logger.LogInfo("📶 WPS joined '%s'", creds.SSID)
		return creds, nil
	}
}

// networkPSK reads the passphrase of a configured network. Supplicants
// that hide it answer FAIL or "*", yielding "".
func (w *WPACli) networkPSK(ctx context.Context, id string) string {
	out, err := w.cli(ctx, "get_network", id, "psk")
	if err != nil || out == "FAIL" || out == "*" {
		logger.LogDebug("📶 Passphrase of network %s not readable", id)
		return ""
	}
	if unquoted, err := strconv.Unquote(out); err == nil {
		return unquoted
	}
	return out
}

// Connect adds the network, enables it and saves the supplicant config
func (w *WPACli) Connect(ctx context.Context, creds WiFiCredentials) error {
	id, err := w.cli(ctx, "add_network")
	if err != nil {
		return err
	}
	if _, err := strconv.Atoi(id); err != nil {
		return fmt.Errorf("add_network: unexpected reply %q", id)
	}

	if err := w.expectOK(ctx, "set_network", id, "ssid", strconv.Quote(creds.SSID)); err != nil {
		return err
	}
	if creds.Password == "" {
		if err := w.expectOK(ctx, "set_network", id, "key_mgmt", "NONE"); err != nil {
			return err
		}
	} else if err := w.expectOK(ctx, "set_network", id, "psk", strconv.Quote(creds.Password)); err != nil {
		return err
	}
	if err := w.expectOK(ctx, "enable_network", id); err != nil {
		return err
	}
	if err := w.expectOK(ctx, "save_config"); err != nil {
		logger.LogWarn("📶 Could not save supplicant config: %v", err)
	}

	logger.LogInfo("📶 Joining '%s' on %s", creds.SSID, w.iface)
	return nil
}

func parseStatus(out string) map[string]string {
	status := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewBufferString(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if ok {
			status[key] = value
		}
	}
	return status
}
