package sensor

// Driver reads one temperature (°C) and relative humidity (%) sample
type Driver interface {
	// Name identifies the driver in logs and errors
	Name() string

	// Configure prepares the hardware for sampling
	Configure() error

	// Read performs one blocking measurement
	Read() (temperature, humidity float64, err error)
}

// Plausible range of accepted samples, bounds inclusive
const (
	MinTemperature = 1.0
	MaxTemperature = 124.0
	MinHumidity    = 1.0
	MaxHumidity    = 99.0
)

// Plausible reports whether a sample lies within the physical range the
// device accepts
func Plausible(temperature, humidity float64) bool {
	return temperature >= MinTemperature && temperature <= MaxTemperature &&
		humidity >= MinHumidity && humidity <= MaxHumidity
}
