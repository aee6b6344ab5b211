package clock

import (
	"context"
	"fmt"
	"time"

	"air-analyzer/pkg/config"
	"air-analyzer/pkg/logger"
	"air-analyzer/pkg/retry"
)

// TimestampLayout is the backend measurement timestamp format
const TimestampLayout = "2006-01-02 15:04:05"

// Interval gates periodic work on the RTC and keeps the RTC aligned with NTP
type Interval struct {
	rtc     Source
	fetcher TimeFetcher

	resyncEvery time.Duration
	ntpRetry    time.Duration
	wait        func(ctx context.Context, d time.Duration) error

	span       time.Duration
	next       time.Time
	nextResync time.Time
}

// NewInterval creates an interval over rtc, resynced through fetcher
func NewInterval(rtc Source, fetcher TimeFetcher, settings config.ClockSettings) *Interval {
	return &Interval{
		rtc:         rtc,
		fetcher:     fetcher,
		resyncEvery: settings.RTCResync,
		ntpRetry:    settings.NTPRetry,
	}
}

// Begin aligns the RTC with NTP, retrying until it succeeds or ctx ends, and
// schedules the first update. updateMinutes is capped at 240.
func (i *Interval) Begin(ctx context.Context, updateMinutes int) error {
	if updateMinutes > config.MaxUpdateMinutes {
		updateMinutes = config.MaxUpdateMinutes
	}
	if updateMinutes < 1 {
		updateMinutes = 1
	}
	i.span = time.Duration(updateMinutes) * time.Minute

	policy := retry.Forever(i.ntpRetry)
	policy.Wait = i.wait
	_, attempts, err := retry.Do(ctx, policy, func(attempt int) (struct{}, error) {
		err := i.resync(ctx)
		if err != nil {
			logger.LogWarn("⏰ NTP sync attempt %d failed: %v", attempt, err)
		}
		return struct{}{}, err
	})
	if err != nil {
		return fmt.Errorf("rtc sync: %w", err)
	}

	logger.LogInfo("⏰ RTC synced after %d attempt(s), update every %dh %02dm",
		attempts, updateMinutes/60, updateMinutes%60)
	i.ConfigNextDatetime()
	return nil
}

// CheckDatetime reports whether the next update time has passed. The RTC is
// resynced first when its resync is due; a failed resync is retried after
// the NTP retry delay.
func (i *Interval) CheckDatetime() bool {
	now := i.rtc.Now()
	if !i.nextResync.IsZero() && !now.Before(i.nextResync) {
		ctx, cancel := context.WithTimeout(context.Background(), i.ntpRetry)
		if err := i.resync(ctx); err != nil {
			logger.LogWarn("⏰ RTC resync failed: %v", err)
			i.nextResync = now.Add(i.ntpRetry)
		}
		cancel()
		now = i.rtc.Now()
	}
	return now.After(i.next)
}

// ConfigNextDatetime schedules the next update one interval from now
func (i *Interval) ConfigNextDatetime() {
	now := i.rtc.Now()
	i.next = now.Add(i.span)
	logger.LogInfo("⏰ Actual: %s %s, next: %s %s",
		now.Weekday(), now.Format(TimestampLayout), i.next.Weekday(), i.next.Format(TimestampLayout))
}

// ActualTimestamp formats the RTC time as YYYY-MM-DD HH:MM:SS
func (i *Interval) ActualTimestamp() string {
	return i.rtc.Now().Format(TimestampLayout)
}

// Next returns the scheduled update time
func (i *Interval) Next() time.Time {
	return i.next
}

// Span returns the update interval
func (i *Interval) Span() time.Duration {
	return i.span
}

func (i *Interval) resync(ctx context.Context) error {
	t, err := i.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}
	i.rtc.Adjust(t)
	i.nextResync = t.Add(i.resyncEvery)
	logger.LogDebug("⏰ RTC adjusted to %s, next resync %s", t.Format(TimestampLayout), i.nextResync.Format(TimestampLayout))
	return nil
}
