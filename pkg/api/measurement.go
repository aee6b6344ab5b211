package api

import (
	"encoding/json"
	"strconv"
)

// MaxBufferedMeasurements bounds the upload buffer; the oldest entry is
// evicted first
const MaxBufferedMeasurements = 5

// Measurement is one buffered sample, in the backend wire format
type Measurement struct {
	When        string `json:"when"`
	RoomNumber  uint8  `json:"room_number"`
	Temperature string `json:"temperature"`
	Humidity    string `json:"humidity"`
}

// NewMeasurement formats values with two decimals
func NewMeasurement(when string, room uint8, temperature, humidity float64) Measurement {
	return Measurement{
		When:        when,
		RoomNumber:  room,
		Temperature: strconv.FormatFloat(temperature, 'f', 2, 64),
		Humidity:    strconv.FormatFloat(humidity, 'f', 2, 64),
	}
}

// measurementBuffer is a FIFO of at most MaxBufferedMeasurements entries
type measurementBuffer struct {
	entries []Measurement
}

func (b *measurementBuffer) push(m Measurement) {
	if len(b.entries) == MaxBufferedMeasurements {
		copy(b.entries, b.entries[1:])
		b.entries = b.entries[:MaxBufferedMeasurements-1]
	}
	b.entries = append(b.entries, m)
}

func (b *measurementBuffer) clear() {
	b.entries = b.entries[:0]
}

func (b *measurementBuffer) len() int {
	return len(b.entries)
}

func (b *measurementBuffer) snapshot() []Measurement {
	return append([]Measurement(nil), b.entries...)
}

func (b *measurementBuffer) marshal() ([]byte, error) {
	if len(b.entries) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(b.entries)
}
