package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"air-analyzer/pkg/config"
	deverrors "air-analyzer/pkg/errors"
	"air-analyzer/pkg/logger"
	"air-analyzer/pkg/metrics"
	"air-analyzer/pkg/recovery"
	"air-analyzer/pkg/retry"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"

	publishTimeout = 5 * time.Second
	connectTimeout = 10 * time.Second
)

var (
	errNotConnected   = errors.New("client is not connected")
	errPublishTimeout = errors.New("publish timed out")
)

// Reading is the payload of the readings topic
type Reading struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Room        uint8   `json:"room"`
	Timestamp   string  `json:"timestamp"`
}

// Diagnostic is the payload of the diagnostic topic
type Diagnostic struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Publisher mirrors the device onto an MQTT broker. Every publish goes
// through a circuit breaker so a dead broker costs the loop nothing.
type Publisher struct {
	client   paho.Client
	settings config.MQTTSettings
	topics   Topics
	device   DeviceInfo
	rooms    RoomSource
	breaker  *recovery.CircuitBreaker
	metrics  metrics.MetricsCollector
	now      func() time.Time

	mu        sync.RWMutex
	onCommand func(Command)
}

// NewPublisher creates a publisher with LWT on the status topic. rooms
// stamps readings with the current room and may be nil.
func NewPublisher(settings config.MQTTSettings, firmware string, rooms RoomSource, collector metrics.MetricsCollector) *Publisher {
	p := newPublisher(settings, firmware, rooms, collector)

	opts := paho.NewClientOptions()
	opts.AddBroker(settings.BrokerURL())
	// Random suffix per process
	opts.SetClientID(fmt.Sprintf("%s-%s", settings.ClientID, uuid.NewString()[:8]))
	opts.SetUsername(settings.Username)
	opts.SetPassword(settings.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(settings.KeepAlive)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetWill(p.topics.Status, statusOffline, 1, true)
	opts.SetOnConnectHandler(p.onConnect)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.LogError("📡 MQTT connection lost: %v", err)
		p.metrics.IncrementMQTTErrors()
	})

	p.client = paho.NewClient(opts)
	return p
}

func newPublisher(settings config.MQTTSettings, firmware string, rooms RoomSource, collector metrics.MetricsCollector) *Publisher {
	if collector == nil {
		collector = metrics.NewNullMetrics()
	}
	return &Publisher{
		settings: settings,
		topics:   NewTopics(settings.BaseTopic, settings.DiscoveryPrefix, settings.ClientID),
		device: DeviceInfo{
			Name:         "Air Analyzer",
			Identifiers:  []string{settings.ClientID},
			Manufacturer: "Air Analyzer",
			Model:        "Temperature/Humidity Analyzer",
			SWVersion:    firmware,
		},
		rooms: rooms,
		breaker: recovery.NewCircuitBreaker("MQTT", recovery.CircuitBreakerConfig{
			MaxFailures:      5,
			Timeout:          30 * time.Second,
			HalfOpenMaxTries: 1,
		}),
		metrics: collector,
		now:     time.Now,
	}
}

// Topics returns the topics in use
func (p *Publisher) Topics() Topics { return p.topics }

// OnCommand registers the receiver of remote commands
func (p *Publisher) OnCommand(handler func(Command)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onCommand = handler
}

// Connect connects to the broker, retrying every RetryDelay until ctx ends
func (p *Publisher) Connect(ctx context.Context) error {
	delay := p.settings.RetryDelay
	if delay == 0 {
		delay = 5 * time.Second
	}

	_, attempts, err := retry.Do(ctx, retry.Forever(delay), func(attempt int) (struct{}, error) {
		logger.LogDebug("🔄 Connecting to MQTT broker %s (attempt %d)", p.settings.BrokerURL(), attempt)
		token := p.client.Connect()
		if !token.WaitTimeout(connectTimeout) {
			logger.LogWarn("⏰ MQTT connect attempt %d timed out, retrying in %v", attempt, delay)
			return struct{}{}, errPublishTimeout
		}
		if err := token.Error(); err != nil {
			logger.LogWarn("❌ MQTT connect attempt %d failed: %v, retrying in %v", attempt, err, delay)
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		return deverrors.NewMQTTError("connect", err, p.settings.Broker)
	}

	logger.LogInfo("✅ Connected to MQTT broker %s after %d attempt(s)", p.settings.BrokerURL(), attempts)
	return nil
}

// onConnect runs after every (re)connection
func (p *Publisher) onConnect(client paho.Client) {
	logger.LogInfo("📡 MQTT session established")

	if p.breaker.State() != recovery.StateClosed {
		logger.LogInfo("🔌 Closing MQTT circuit after reconnect (%s)", p.breaker.Stats())
		p.breaker.Reset()
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.PublishStatusOnline(ctx); err != nil {
		logger.LogWarn("Error publishing online status on connect: %v", err)
	}

	token := client.Subscribe(p.topics.Command, 1, p.handleCommand)
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		logger.LogWarn("Error subscribing to %s: %v", p.topics.Command, token.Error())
	}

	if p.topics.DiscoveryEnabled() {
		if err := p.PublishDiscovery(ctx); err != nil {
			logger.LogWarn("Error publishing discovery: %v", err)
		}
	}
}

func (p *Publisher) handleCommand(_ paho.Client, msg paho.Message) {
	cmd, err := ParseCommand(msg.Payload())
	if err != nil {
		logger.LogWarn("📡 Ignoring command on %s: %v", msg.Topic(), err)
		return
	}

	p.mu.RLock()
	handler := p.onCommand
	p.mu.RUnlock()

	if handler == nil {
		logger.LogDebug("📡 No receiver for command %s", cmd)
		return
	}
	logger.LogInfo("📡 Remote command: %s", cmd)
	handler(cmd)
}

// Disconnect publishes offline and closes the session
func (p *Publisher) Disconnect() {
	if !p.client.IsConnected() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.PublishStatusOffline(ctx); err != nil {
		logger.LogDebug("Error publishing offline status: %v", err)
	}
	p.client.Disconnect(250)
}

// IsConnected reports the broker session state
func (p *Publisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Update publishes a sample; it is registered as a sensor observer
func (p *Publisher) Update(temperature, humidity float64) {
	reading := Reading{
		Temperature: temperature,
		Humidity:    humidity,
		Timestamp:   p.now().UTC().Format(time.RFC3339),
	}
	if p.rooms != nil {
		reading.Room = p.rooms.RoomNumber()
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.publishJSON(ctx, p.topics.Readings, false, reading); err != nil {
		if errors.Is(err, errNotConnected) {
			logger.LogDebug("📤 Reading not published: %v", err)
			return
		}
		logger.LogWarn("📤 %v", err)
		return
	}
	logger.LogTrace("📤 Published %.2f°C %.2f%% → %s", temperature, humidity, p.topics.Readings)
}

// PublishStatusOnline publishes the retained "online" status
func (p *Publisher) PublishStatusOnline(ctx context.Context) error {
	return p.publish(ctx, p.topics.Status, true, []byte(statusOnline))
}

// PublishStatusOffline publishes the retained "offline" status
func (p *Publisher) PublishStatusOffline(ctx context.Context) error {
	return p.publish(ctx, p.topics.Status, true, []byte(statusOffline))
}

// PublishDiagnostic publishes a diagnostic code and message
func (p *Publisher) PublishDiagnostic(ctx context.Context, code int, message string) error {
	return p.publishJSON(ctx, p.topics.Diagnostic, false, Diagnostic{
		Code:      code,
		Message:   message,
		Timestamp: p.now().UTC().Format(time.RFC3339),
	})
}

// PublishHeartbeat refreshes the online status and the diagnostic entity
func (p *Publisher) PublishHeartbeat(ctx context.Context) error {
	if err := p.PublishStatusOnline(ctx); err != nil {
		return err
	}
	return p.PublishDiagnostic(ctx, 0, "Air Analyzer running")
}

// PublishDiscovery publishes the retained Home Assistant configs
func (p *Publisher) PublishDiscovery(ctx context.Context) error {
	for key, cfg := range discoveryConfigs(p.topics, p.device) {
		if err := p.publishJSON(ctx, p.topics.Discovery(key), true, cfg); err != nil {
			return err
		}
		logger.LogDebug("📡 Published discovery for %s", key)
	}
	return nil
}

func (p *Publisher) publishJSON(ctx context.Context, topic string, retained bool, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error serializing payload for %s: %w", topic, err)
	}
	return p.publish(ctx, topic, retained, payload)
}

func (p *Publisher) publish(ctx context.Context, topic string, retained bool, payload []byte) error {
	if !p.client.IsConnected() {
		return errNotConnected
	}

	err := p.breaker.Call(func() error {
		token := p.client.Publish(topic, 1, retained, payload)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-token.Done():
			return token.Error()
		case <-time.After(publishTimeout):
			return errPublishTimeout
		}
	})
	if err != nil {
		p.metrics.IncrementMQTTErrors()
		mqttErr := deverrors.NewMQTTError("publish", err, p.settings.Broker)
		mqttErr.Topic = topic
		return mqttErr
	}

	p.metrics.IncrementMQTTPublishes()
	return nil
}
