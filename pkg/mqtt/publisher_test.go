package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"air-analyzer/pkg/config"
	deverrors "air-analyzer/pkg/errors"
	"air-analyzer/pkg/recovery"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeClient records publishes and subscriptions instead of talking to a broker
type fakeClient struct {
	mu           sync.Mutex
	connected    bool
	publishErr   error
	published    []published
	subscribed   map[string]paho.MessageHandler
	disconnected bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{connected: true, subscribed: make(map[string]paho.MessageHandler)}
}

func (c *fakeClient) IsConnected() bool      { return c.connected }
func (c *fakeClient) IsConnectionOpen() bool { return c.connected }
func (c *fakeClient) Connect() paho.Token    { return newFakeToken(nil) }
func (c *fakeClient) Disconnect(uint)        { c.disconnected = true; c.connected = false }

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return newFakeToken(c.publishErr)
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb paho.MessageHandler) paho.Token {
	c.subscribed[topic] = cb
	return newFakeToken(nil)
}

func (c *fakeClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return newFakeToken(nil)
}
func (c *fakeClient) Unsubscribe(...string) paho.Token            { return newFakeToken(nil) }
func (c *fakeClient) AddRoute(string, paho.MessageHandler)        {}
func (c *fakeClient) OptionsReader() paho.ClientOptionsReader     { return paho.ClientOptionsReader{} }

func (c *fakeClient) on(topic string) []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []published
	for _, p := range c.published {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fixedRoom uint8

func (r fixedRoom) RoomNumber() uint8 { return uint8(r) }

func newTestPublisher(client *fakeClient, prefix string) *Publisher {
	settings := config.MQTTSettings{
		Broker:          "broker.local",
		Port:            1883,
		ClientID:        "air-analyzer",
		BaseTopic:       "air-analyzer",
		DiscoveryPrefix: prefix,
	}
	p := newPublisher(settings, "6.0.0", fixedRoom(3), nil)
	p.client = client
	p.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestOnConnectAnnouncesAndSubscribes(t *testing.T) {
	client := newFakeClient()
	p := newTestPublisher(client, "homeassistant")

	p.onConnect(client)

	status := client.on("air-analyzer/status")
	if len(status) != 1 || string(status[0].payload) != "online" || !status[0].retained {
		t.Errorf("Expected one retained 'online' status, got %+v", status)
	}
	if _, ok := client.subscribed["air-analyzer/command"]; !ok {
		t.Error("Expected subscription to the command topic")
	}

	for _, key := range []string{"temperature", "humidity", "diagnostic"} {
		topic := "homeassistant/sensor/air-analyzer/air-analyzer_" + key + "/config"
		cfgs := client.on(topic)
		if len(cfgs) != 1 {
			t.Errorf("Expected discovery on %s, got %d messages", topic, len(cfgs))
			continue
		}
		var cfg SensorConfig
		if err := json.Unmarshal(cfgs[0].payload, &cfg); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if cfg.AvailabilityTopic != "air-analyzer/status" {
			t.Errorf("Expected availability topic on status, got %s", cfg.AvailabilityTopic)
		}
	}
}

func TestOnConnectWithoutDiscovery(t *testing.T) {
	client := newFakeClient()
	p := newTestPublisher(client, "")

	p.onConnect(client)

	for _, msg := range client.published {
		if strings.HasSuffix(msg.topic, "/config") {
			t.Errorf("Expected no discovery, got %s", msg.topic)
		}
	}
}

func TestUpdatePublishesReading(t *testing.T) {
	client := newFakeClient()
	p := newTestPublisher(client, "")

	p.Update(21.5, 44.25)

	msgs := client.on("air-analyzer/readings")
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 reading, got %d", len(msgs))
	}
	var r Reading
	if err := json.Unmarshal(msgs[0].payload, &r); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	want := Reading{Temperature: 21.5, Humidity: 44.25, Room: 3, Timestamp: "2024-05-01T12:00:00Z"}
	if r != want {
		t.Errorf("Expected %+v, got %+v", want, r)
	}
	if msgs[0].retained {
		t.Error("Expected readings not to be retained")
	}
}

func TestUpdateSkippedWhenDisconnected(t *testing.T) {
	client := newFakeClient()
	client.connected = false
	p := newTestPublisher(client, "")

	p.Update(21.5, 44.25)

	if len(client.published) != 0 {
		t.Errorf("Expected no publish while disconnected, got %d", len(client.published))
	}
}

func TestPublishDiagnostic(t *testing.T) {
	client := newFakeClient()
	p := newTestPublisher(client, "")

	if err := p.PublishDiagnostic(context.Background(), deverrors.CodeAuth, "login failed after 3 attempt(s)"); err != nil {
		t.Fatalf("PublishDiagnostic failed: %v", err)
	}

	msgs := client.on("air-analyzer/diagnostic")
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 diagnostic, got %d", len(msgs))
	}
	var d Diagnostic
	json.Unmarshal(msgs[0].payload, &d)
	if d.Code != deverrors.CodeAuth || d.Message != "login failed after 3 attempt(s)" {
		t.Errorf("Unexpected diagnostic %+v", d)
	}
}

func TestPublishHeartbeat(t *testing.T) {
	client := newFakeClient()
	p := newTestPublisher(client, "")

	if err := p.PublishHeartbeat(context.Background()); err != nil {
		t.Fatalf("PublishHeartbeat failed: %v", err)
	}
	if len(client.on("air-analyzer/status")) != 1 || len(client.on("air-analyzer/diagnostic")) != 1 {
		t.Errorf("Expected status and diagnostic, got %+v", client.published)
	}
}

func TestPublishFailureIsTypedAndTripsBreaker(t *testing.T) {
	client := newFakeClient()
	client.publishErr = errors.New("broker refused")
	p := newTestPublisher(client, "")
	p.breaker = recovery.NewCircuitBreaker("MQTT", recovery.CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Hour})

	err := p.PublishStatusOnline(context.Background())
	var mqttErr *deverrors.MQTTError
	if !errors.As(err, &mqttErr) {
		t.Fatalf("Expected MQTTError, got %v", err)
	}
	if mqttErr.Topic != "air-analyzer/status" {
		t.Errorf("Expected topic on error, got '%s'", mqttErr.Topic)
	}

	p.PublishStatusOnline(context.Background())
	p.PublishStatusOnline(context.Background())

	if got := len(client.published); got != 2 {
		t.Errorf("Expected breaker to stop publishing after 2 failures, got %d attempts", got)
	}
	if !errors.Is(p.PublishStatusOnline(context.Background()), recovery.ErrCircuitOpen) {
		t.Error("Expected ErrCircuitOpen while the breaker is open")
	}
}

func TestReconnectClosesBreaker(t *testing.T) {
	client := newFakeClient()
	client.publishErr = errors.New("broker refused")
	p := newTestPublisher(client, "")
	p.breaker = recovery.NewCircuitBreaker("MQTT", recovery.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour})

	p.PublishStatusOnline(context.Background())
	if p.breaker.State() != recovery.StateOpen {
		t.Fatalf("Expected open breaker, got %s", p.breaker.State())
	}

	client.publishErr = nil
	p.onConnect(client)

	if p.breaker.State() != recovery.StateClosed {
		t.Errorf("Expected closed breaker after reconnect, got %s", p.breaker.State())
	}
	if len(client.on("air-analyzer/status")) < 2 {
		t.Errorf("Expected online status published after reconnect, got %+v", client.published)
	}
}

func TestCommandsReachHandler(t *testing.T) {
	client := newFakeClient()
	p := newTestPublisher(client, "")

	var got []Command
	p.OnCommand(func(c Command) { got = append(got, c) })
	p.onConnect(client)

	handler := client.subscribed["air-analyzer/command"]
	for _, payload := range []string{"short", " LONG\n", "reboot", "sync"} {
		handler(client, fakeMessage{topic: "air-analyzer/command", payload: []byte(payload)})
	}

	want := []Command{CommandShortPress, CommandLongPress, CommandSync}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Command %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestDisconnectPublishesOffline(t *testing.T) {
	client := newFakeClient()
	p := newTestPublisher(client, "")

	p.Disconnect()

	status := client.on("air-analyzer/status")
	if len(status) != 1 || string(status[0].payload) != "offline" {
		t.Errorf("Expected 'offline' status, got %+v", status)
	}
	if !client.disconnected {
		t.Error("Expected client to be disconnected")
	}
}

func TestConnect(t *testing.T) {
	client := newFakeClient()
	p := newTestPublisher(client, "")
	if err := p.Connect(context.Background()); err != nil {
		t.Errorf("Expected connect to succeed, got %v", err)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		payload string
		want    Command
		wantErr bool
	}{
		{"short", CommandShortPress, false},
		{"Long", CommandLongPress, false},
		{"sync\n", CommandSync, false},
		{"", 0, true},
		{"reset", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseCommand([]byte(tt.payload))
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCommand(%q): expected error=%v, got %v", tt.payload, tt.wantErr, err)
		}
		if got != tt.want {
			t.Errorf("ParseCommand(%q): expected %s, got %s", tt.payload, tt.want, got)
		}
	}
}
