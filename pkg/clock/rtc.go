package clock

import (
	"context"
	"sync"
	"time"

	"github.com/beevik/ntp"
)

// Source is the device real-time clock
type Source interface {
	Now() time.Time
	Adjust(t time.Time)
}

// TimeFetcher returns the current time from a network reference
type TimeFetcher interface {
	Fetch(ctx context.Context) (time.Time, error)
}

// SystemRTC follows the host clock plus an offset set by Adjust, so the
// device can correct its time without privileges to set the system clock
type SystemRTC struct {
	mu     sync.RWMutex
	offset time.Duration
}

// NewSystemRTC creates an RTC with no offset
func NewSystemRTC() *SystemRTC {
	return &SystemRTC{}
}

func (r *SystemRTC) Now() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return time.Now().Add(r.offset)
}

func (r *SystemRTC) Adjust(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offset = time.Until(t)
}

// NTPFetcher queries an NTP server
type NTPFetcher struct {
	Server  string
	Timeout time.Duration
}

// NewNTPFetcher creates a fetcher for server
func NewNTPFetcher(server string) *NTPFetcher {
	return &NTPFetcher{Server: server, Timeout: 5 * time.Second}
}

// Fetch returns the server time corrected for the round trip
func (f *NTPFetcher) Fetch(ctx context.Context) (time.Time, error) {
	timeout := f.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	resp, err := ntp.QueryWithOptions(f.Server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return time.Time{}, err
	}
	if err := resp.Validate(); err != nil {
		return time.Time{}, err
	}
	return time.Now().Add(resp.ClockOffset), nil
}
