package ota

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"air-analyzer/pkg/config"
	"air-analyzer/pkg/logger"

	"github.com/google/uuid"
)

// VersionHeader carries the running firmware version to the update server
const VersionHeader = "x-ESP8266-version"

// Result is the outcome of an update check
type Result int

const (
	Failed Result = iota
	NoUpdates
	Updated
)

func (r Result) String() string {
	switch r {
	case Updated:
		return "updated"
	case NoUpdates:
		return "no updates"
	default:
		return "failed"
	}
}

// Updater asks the update server for a newer firmware image
type Updater struct {
	client   *http.Client
	url      string
	download string
}

// NewUpdater creates an updater for the configured endpoint
func NewUpdater(settings config.OTASettings, client *http.Client) *Updater {
	if client == nil {
		client = http.DefaultClient
	}
	return &Updater{client: client, url: settings.URL, download: settings.DownloadPath}
}

// Check requests an image newer than version. A 200 response body is
// written to the download path, a 304 means the device is current and
// anything else is a failure.
func (u *Updater) Check(ctx context.Context, version string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, nil)
	if err != nil {
		return Failed, fmt.Errorf("build update request: %w", err)
	}
	req.Header.Set(VersionHeader, version)
	req.Header.Set("X-Request-ID", uuid.NewString())

	logger.LogInfo("🔄 Checking %s for firmware newer than %s", u.url, version)

	resp, err := u.client.Do(req)
	if err != nil {
		return Failed, fmt.Errorf("update request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		n, err := u.save(resp.Body)
		if err != nil {
			return Failed, err
		}
		logger.LogInfo("🔄 Firmware image of %d bytes saved to %s", n, u.download)
		return Updated, nil
	case http.StatusNotModified:
		logger.LogInfo("🔄 Firmware %s is current", version)
		return NoUpdates, nil
	default:
		return Failed, fmt.Errorf("update server answered HTTP %d", resp.StatusCode)
	}
}

// save writes the image next to its destination and renames it into place
func (u *Updater) save(body io.Reader) (int64, error) {
	dir := filepath.Dir(u.download)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create download directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".firmware-*")
	if err != nil {
		return 0, fmt.Errorf("create temporary image: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, body)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("download image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close image: %w", err)
	}
	if err := os.Rename(tmp.Name(), u.download); err != nil {
		return 0, fmt.Errorf("install image: %w", err)
	}
	return n, nil
}
