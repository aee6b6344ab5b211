package sensor

// Observer receives every accepted temperature/humidity pair.
//
// Observers are held by reference and must outlive the Subject. Update runs
// synchronously on the polling goroutine; a slow observer stalls the fan-out.
// Observers must be comparable (pointer types) so RemoveObserver can find them.
type Observer interface {
	Update(temperature, humidity float64)
}
