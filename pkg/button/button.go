package button

import "time"

// Press is the outcome of one CheckPress call
type Press int

const (
	PressNone Press = iota
	PressShort
	PressLong
)

func (p Press) String() string {
	switch p {
	case PressShort:
		return "short"
	case PressLong:
		return "long"
	default:
		return "none"
	}
}

// Pin reads the button level
type Pin interface {
	Pressed() (bool, error)
}

// Button turns pin levels into short and long presses. A long press is
// reported once, as soon as the hold time is reached; releasing after it
// reports nothing.
type Button struct {
	pin       Pin
	longPress time.Duration

	pressed     bool
	longPressed bool
	deadline    time.Time
}

// New creates a button over pin
func New(pin Pin, longPress time.Duration) *Button {
	return &Button{pin: pin, longPress: longPress}
}

// CheckPress samples the pin at now
func (b *Button) CheckPress(now time.Time) Press {
	down, err := b.pin.Pressed()
	if err != nil {
		down = false
	}

	if down {
		if !b.pressed {
			b.pressed = true
			b.longPressed = false
			b.deadline = now.Add(b.longPress)
			return PressNone
		}
		if !b.longPressed && !now.Before(b.deadline) {
			b.longPressed = true
			return PressLong
		}
		return PressNone
	}

	wasShort := b.pressed && !b.longPressed
	b.pressed = false
	b.longPressed = false
	if wasShort {
		return PressShort
	}
	return PressNone
}
