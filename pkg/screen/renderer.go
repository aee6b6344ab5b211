package screen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const frameWidth = 24

// Renderer draws a frame on the physical or emulated display
type Renderer interface {
	Render(f Frame) error
}

// TextRenderer draws frames as a fixed-width text box, skipping frames
// identical to the previous one
type TextRenderer struct {
	mu   sync.Mutex
	w    io.Writer
	last string
}

// NewTextRenderer creates a renderer writing to w
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

func (r *TextRenderer) Render(f Frame) error {
	text := f.Text()

	r.mu.Lock()
	defer r.mu.Unlock()
	if text == r.last {
		return nil
	}
	r.last = text
	_, err := io.WriteString(r.w, text)
	return err
}

// FileRenderer keeps the current frame in a file, replaced atomically
type FileRenderer struct {
	mu   sync.Mutex
	path string
}

// NewFileRenderer creates a renderer for path
func NewFileRenderer(path string) *FileRenderer {
	return &FileRenderer{path: path}
}

func (r *FileRenderer) Render(f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tmp := r.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, []byte(f.Text()), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

// NopRenderer discards every frame
type NopRenderer struct{}

func (NopRenderer) Render(Frame) error { return nil }

// NewRenderer selects a renderer from the screen.output setting
func NewRenderer(output string) Renderer {
	switch output {
	case "", "none":
		return NopRenderer{}
	case "stdout":
		return NewTextRenderer(os.Stdout)
	case "stderr":
		return NewTextRenderer(os.Stderr)
	default:
		return NewFileRenderer(output)
	}
}

// Text renders the frame as a boxed block of lines
func (f Frame) Text() string {
	var lines []string
	switch f.Page {
	case PageMain:
		wifi := "--"
		if f.Connected {
			wifi = "ok"
		}
		backend := "!!"
		if f.Updated {
			backend = "ok"
		}
		lines = []string{
			fmt.Sprintf("(%d) %6.2fC %6.2f%%", f.Room, f.Temperature, f.Humidity),
			fmt.Sprintf("wifi:%s  sync:%s", wifi, backend),
		}
	case PageMessage:
		lines = f.Lines
	case PageBrand:
		lines = []string{"Air Analyzer", "v" + f.Version}
	case PageLoading:
		filled := int(f.Progress / 100 * (frameWidth - 2))
		if filled < 0 {
			filled = 0
		}
		if filled > frameWidth-2 {
			filled = frameWidth - 2
		}
		bar := "[" + strings.Repeat("#", filled) + strings.Repeat(".", frameWidth-2-filled) + "]"
		lines = append([]string{bar}, f.Lines...)
	}

	var b strings.Builder
	border := "+" + strings.Repeat("-", frameWidth) + "+\n"
	b.WriteString(border)
	for _, line := range lines {
		if len(line) > frameWidth {
			line = line[:frameWidth]
		}
		b.WriteString("|" + line + strings.Repeat(" ", frameWidth-len(line)) + "|\n")
	}
	b.WriteString(border)
	return b.String()
}
