package mqtt

// SensorConfig is a Home Assistant discovery payload
type SensorConfig struct {
	Name                   string     `json:"name"`
	UniqueID               string     `json:"unique_id"`
	StateTopic             string     `json:"state_topic"`
	UnitOfMeasurement      string     `json:"unit_of_measurement,omitempty"`
	DeviceClass            string     `json:"device_class,omitempty"`
	StateClass             string     `json:"state_class,omitempty"`
	Device                 DeviceInfo `json:"device"`
	ValueTemplate          string     `json:"value_template"`
	AvailabilityTopic      string     `json:"availability_topic"`
	PayloadAvailable       string     `json:"payload_available"`
	PayloadNotAvailable    string     `json:"payload_not_available"`
	JSONAttributesTemplate string     `json:"json_attributes_template,omitempty"`
	EntityCategory         string     `json:"entity_category,omitempty"`
}

// DeviceInfo groups the entities under one device
type DeviceInfo struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// discoveryConfigs returns the temperature, humidity and diagnostic entities
// keyed by entity key
func discoveryConfigs(topics Topics, device DeviceInfo) map[string]SensorConfig {
	entity := func(name, key, stateTopic string) SensorConfig {
		return SensorConfig{
			Name:                name,
			UniqueID:            topics.UniqueID(key),
			StateTopic:          stateTopic,
			Device:              device,
			AvailabilityTopic:   topics.Status,
			PayloadAvailable:    statusOnline,
			PayloadNotAvailable: statusOffline,
		}
	}

	temperature := entity("Temperature", "temperature", topics.Readings)
	temperature.UnitOfMeasurement = "°C"
	temperature.DeviceClass = "temperature"
	temperature.StateClass = "measurement"
	temperature.ValueTemplate = "{{ value_json.temperature | round(2) }}"

	humidity := entity("Humidity", "humidity", topics.Readings)
	humidity.UnitOfMeasurement = "%"
	humidity.DeviceClass = "humidity"
	humidity.StateClass = "measurement"
	humidity.ValueTemplate = "{{ value_json.humidity | round(2) }}"

	diagnostic := entity("Diagnostic", "diagnostic", topics.Diagnostic)
	diagnostic.DeviceClass = "enum"
	diagnostic.ValueTemplate = "{{ value_json.message }}"
	diagnostic.JSONAttributesTemplate = "{{ value_json | tojson }}"
	diagnostic.EntityCategory = "diagnostic"

	return map[string]SensorConfig{
		"temperature": temperature,
		"humidity":    humidity,
		"diagnostic":  diagnostic,
	}
}
