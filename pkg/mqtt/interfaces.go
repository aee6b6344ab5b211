package mqtt

import "context"

// ReadingPublisher publishes sensor samples; it is a sensor observer
type ReadingPublisher interface {
	Update(temperature, humidity float64)
}

// StatusPublisher publishes the retained availability status
type StatusPublisher interface {
	PublishStatusOnline(ctx context.Context) error
	PublishStatusOffline(ctx context.Context) error
}

// DiagnosticPublisher publishes diagnostic codes for the error handler
type DiagnosticPublisher interface {
	PublishDiagnostic(ctx context.Context, code int, message string) error
}

// ConnectionManager owns the broker session
type ConnectionManager interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
}

// DevicePublisher is everything the device wires
type DevicePublisher interface {
	ReadingPublisher
	StatusPublisher
	DiagnosticPublisher
	ConnectionManager
	OnCommand(handler func(Command))
}

// RoomSource supplies the room number stamped on readings
type RoomSource interface {
	RoomNumber() uint8
}

var _ DevicePublisher = (*Publisher)(nil)
