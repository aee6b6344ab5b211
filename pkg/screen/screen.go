package screen

import (
	"sync"
	"time"

	"air-analyzer/pkg/logger"
)

// Page selects what the display shows
type Page int

const (
	PageBlank Page = iota
	PageMain
	PageMessage
	PageBrand
	PageLoading
)

// Frame is everything a renderer needs to draw one page
type Frame struct {
	Page        Page
	Room        uint8
	Temperature float64
	Humidity    float64
	Connected   bool
	Updated     bool
	Lines       []string
	Version     string
	Progress    float64
}

// Screen is the display. It is a sensor observer and redraws the main page
// when a new reading arrives while the main page is shown.
type Screen struct {
	mu       sync.Mutex
	renderer Renderer

	room        uint8
	temperature float64
	humidity    float64
	connected   bool
	updated     bool
	page        Page
	lines       []string

	standbyOff time.Duration
	standbyOn  time.Duration
	offAt      time.Time
	onAt       time.Time
}

// New creates a blank screen. standbyOff is how long a page stays lit and
// standbyOn how long the display stays dark before redrawing.
func New(renderer Renderer, standbyOff, standbyOn time.Duration) *Screen {
	return &Screen{
		renderer:   renderer,
		connected:  true,
		standbyOff: standbyOff,
		standbyOn:  standbyOn,
	}
}

// Update stores the reading and redraws the main page if it is shown
func (s *Screen) Update(temperature, humidity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.temperature = temperature
	s.humidity = humidity
	if s.page == PageMain {
		s.renderLocked()
	}
}

// ShowMainPage draws room, reading and status indicators
func (s *Screen) ShowMainPage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = PageMain
	s.renderLocked()
}

// ShowMessagePage draws free text lines
func (s *Screen) ShowMessagePage(lines ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = PageMessage
	s.lines = append([]string(nil), lines...)
	s.renderLocked()
}

// ShowBrand draws the product name and firmware version
func (s *Screen) ShowBrand(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = PageBrand
	s.lines = []string{version}
	s.renderLocked()
}

// ShowLoadingPage draws a progress bar with a caption
func (s *Screen) ShowLoadingPage(message string, percentage float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = PageLoading
	s.lines = []string{message}
	s.render(Frame{Page: PageLoading, Lines: s.lines, Progress: percentage})
}

// Clear blanks the display
func (s *Screen) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = PageBlank
	s.renderLocked()
}

func (s *Screen) SetRoomNumber(room uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room = room
}

func (s *Screen) RoomNumber() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// SetUpdated sets the backend sync indicator
func (s *Screen) SetUpdated(updated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = updated
}

func (s *Screen) IsUpdated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated
}

// SetConnected sets the Wi-Fi indicator
func (s *Screen) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

func (s *Screen) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Page returns the page currently shown
func (s *Screen) Page() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// StartStandby arms the standby cycle from now
func (s *Screen) StartStandby(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offAt = now.Add(s.standbyOff)
	s.onAt = time.Time{}
}

// Tick runs the standby cycle: the display goes dark standbyOff after it was
// lit and comes back with the main page standbyOn later
func (s *Screen) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case !s.offAt.IsZero() && now.After(s.offAt):
		s.page = PageBlank
		s.renderLocked()
		s.offAt = time.Time{}
		s.onAt = now.Add(s.standbyOn)
	case !s.onAt.IsZero() && now.After(s.onAt):
		s.page = PageMain
		s.renderLocked()
		s.offAt = now.Add(s.standbyOff)
		s.onAt = time.Time{}
	}
}

func (s *Screen) renderLocked() {
	s.render(s.frameLocked())
}

func (s *Screen) frameLocked() Frame {
	f := Frame{
		Page:        s.page,
		Room:        s.room,
		Temperature: s.temperature,
		Humidity:    s.humidity,
		Connected:   s.connected,
		Updated:     s.updated,
	}
	switch s.page {
	case PageMessage:
		f.Lines = s.lines
	case PageBrand:
		f.Version = s.lines[0]
	}
	return f
}

func (s *Screen) render(f Frame) {
	if err := s.renderer.Render(f); err != nil {
		logger.LogDebug("🖥️ Render failed: %v", err)
	}
}
