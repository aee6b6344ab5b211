package mqtt

import "fmt"

// Topics holds every topic the device publishes or subscribes to
type Topics struct {
	Status     string // retained online/offline, also the LWT
	Readings   string
	Diagnostic string
	Command    string

	discoveryPrefix string
	deviceID        string
}

// NewTopics derives the device topics from the base topic. An empty
// discovery prefix disables Home Assistant discovery.
func NewTopics(base, discoveryPrefix, deviceID string) Topics {
	return Topics{
		Status:          base + "/status",
		Readings:        base + "/readings",
		Diagnostic:      base + "/diagnostic",
		Command:         base + "/command",
		discoveryPrefix: discoveryPrefix,
		deviceID:        deviceID,
	}
}

// DiscoveryEnabled reports whether discovery configs are published
func (t Topics) DiscoveryEnabled() bool {
	return t.discoveryPrefix != ""
}

// Discovery returns the config topic of one entity.
// Pattern: {prefix}/sensor/{device_id}/{device_id}_{key}/config
func (t Topics) Discovery(key string) string {
	return fmt.Sprintf("%s/sensor/%s/%s/config", t.discoveryPrefix, t.deviceID, t.UniqueID(key))
}

// UniqueID returns the entity id of one entity
func (t Topics) UniqueID(key string) string {
	return fmt.Sprintf("%s_%s", t.deviceID, key)
}
