package pairing

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"air-analyzer/pkg/config"
	"air-analyzer/pkg/logger"
)

type fakeLink struct{ up bool }

func (l *fakeLink) IsConnected() bool { return l.up }

func newTestSocket(t *testing.T) (*Socket, *logger.MockLogger) {
	t.Helper()
	log := logger.NewMockLogger()
	s := NewSocket(&fakeLink{up: true}, config.PairingSettings{ReadTimeout: time.Second}, log, nil)
	if err := s.Begin(0); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	t.Cleanup(s.End)
	return s, log
}

func dial(t *testing.T, s *Socket) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// attach polls AttachClient like the device loop does
func attach(t *testing.T, s *Socket) {
	t.Helper()
	for i := 0; i < 100; i++ {
		if s.AttachClient() {
			return
		}
	}
	t.Fatal("Expected a client to attach")
}

// listen polls Listen until a request arrives or a second passes
func listen(s *Socket) int {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if code := s.Listen(); code != RequestNone {
			return code
		}
	}
	return RequestNone
}

func TestBeginRequiresLink(t *testing.T) {
	link := &fakeLink{}
	s := NewSocket(link, config.PairingSettings{ReadTimeout: time.Second}, logger.NewMockLogger(), nil)

	if err := s.Begin(0); !errors.Is(err, ErrLinkDown) {
		t.Errorf("Expected ErrLinkDown, got %v", err)
	}
	if s.IsListening() {
		t.Error("Expected socket not listening")
	}

	link.up = true
	if err := s.Begin(0); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer s.End()
	addr := s.Addr().String()
	if err := s.Begin(0); err != nil || s.Addr().String() != addr {
		t.Errorf("Expected second Begin to be a no-op, got err=%v addr=%s", err, s.Addr())
	}
}

func TestListenReturnsCredentialsRequest(t *testing.T) {
	s, _ := newTestSocket(t)
	conn := dial(t, s)
	attach(t, s)

	conn.Write([]byte(`{"request_code":1,"message":{"username":"alice","password":"secret123"}}` + "\n"))

	if code := listen(s); code != RequestCredentials {
		t.Fatalf("Expected request code 1, got %d", code)
	}
	username, password, err := s.Credentials()
	if err != nil {
		t.Fatalf("Credentials failed: %v", err)
	}
	if username != "alice" || password != "secret123" {
		t.Errorf("Expected alice/secret123, got %s/%s", username, password)
	}
}

func TestCredentialsAreTruncatedAndLogged(t *testing.T) {
	s, log := newTestSocket(t)
	conn := dial(t, s)
	attach(t, s)

	longUser := strings.Repeat("u", 30)
	longPass := strings.Repeat("p", 80)
	conn.Write([]byte(`{"request_code":1,"message":{"username":"` + longUser + `","password":"` + longPass + `"}}` + "\n"))

	if code := listen(s); code != RequestCredentials {
		t.Fatalf("Expected request code 1, got %d", code)
	}
	username, password, _ := s.Credentials()
	if username != longUser[:MaxUsernameLength] {
		t.Errorf("Expected username truncated to %d, got %d", MaxUsernameLength, len(username))
	}
	if password != longPass[:MaxPasswordLength] {
		t.Errorf("Expected password truncated to %d, got %d", MaxPasswordLength, len(password))
	}
	if !log.Contains("Username truncated") || !log.Contains("Password truncated") {
		t.Error("Expected truncation to be logged")
	}
}

func TestListenIgnoresMalformedPayload(t *testing.T) {
	s, log := newTestSocket(t)
	conn := dial(t, s)
	attach(t, s)

	conn.Write([]byte("not json\n"))
	if code := listen(s); code != RequestNone {
		t.Errorf("Expected 0 for malformed payload, got %d", code)
	}
	if !log.HasWarnMessage() {
		t.Error("Expected malformed payload to be logged")
	}
	if _, _, err := s.Credentials(); err == nil {
		t.Error("Expected no credentials after malformed payload")
	}
}

func TestListenWithoutDataReturnsZero(t *testing.T) {
	s, _ := newTestSocket(t)
	if code := s.Listen(); code != RequestNone {
		t.Errorf("Expected 0 with no client, got %d", code)
	}

	dial(t, s)
	attach(t, s)
	if code := s.Listen(); code != RequestNone {
		t.Errorf("Expected 0 with nothing sent, got %d", code)
	}
	if !s.IsAttached() {
		t.Error("Expected client to stay attached")
	}
}

func TestAttachClientIsIdempotent(t *testing.T) {
	s, _ := newTestSocket(t)
	first := dial(t, s)
	attach(t, s)
	dial(t, s)

	if s.AttachClient() {
		t.Error("Expected second AttachClient to have no effect")
	}
	if !s.IsAttached() || s.conn.RemoteAddr().String() != first.LocalAddr().String() {
		t.Errorf("Expected first client to stay attached, got %v", s.conn.RemoteAddr())
	}

	if !s.DetachClient() {
		t.Fatal("Expected DetachClient to detach")
	}
	if s.DetachClient() {
		t.Error("Expected second DetachClient to report nothing attached")
	}
	attach(t, s)
}

func TestSendRoomID(t *testing.T) {
	s, _ := newTestSocket(t)
	conn := dial(t, s)

	if s.SendRoomID(4) {
		t.Error("Expected Speak to fail with no client attached")
	}
	attach(t, s)
	if !s.SendRoomID(4) {
		t.Fatal("Expected SendRoomID to succeed")
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString failed: %v", err)
	}
	if line != `{"RoomID":4}`+"\n" {
		t.Errorf("Expected RoomID reply, got %q", line)
	}
}

func TestPeerCloseDetaches(t *testing.T) {
	s, _ := newTestSocket(t)
	conn := dial(t, s)
	attach(t, s)
	conn.Close()

	deadline := time.Now().Add(time.Second)
	for s.IsAttached() && time.Now().Before(deadline) {
		s.Listen()
	}
	if s.IsAttached() {
		t.Error("Expected closed peer to be detached")
	}
}

func TestWaitForCredentials(t *testing.T) {
	s, _ := newTestSocket(t)

	go func() {
		conn, err := net.Dial("tcp", s.Addr().String())
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte(`{"request_code":2}` + "\n"))
		conn.Write([]byte(`{"request_code":1,"message":{"username":"bob","password":"pw"}}` + "\n"))
		time.Sleep(2 * time.Second)
	}()

	var gotUser, gotPass string
	sink := CredentialSinkFunc(func(username, password string) error {
		gotUser, gotPass = username, password
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := WaitForCredentials(ctx, s, 0, 5*time.Millisecond, sink); err != nil {
		t.Fatalf("WaitForCredentials failed: %v", err)
	}
	if gotUser != "bob" || gotPass != "pw" {
		t.Errorf("Expected bob/pw, got %s/%s", gotUser, gotPass)
	}
	if !s.IsAttached() {
		t.Error("Expected client to stay attached for the reply")
	}
}

func TestWaitForCredentialsStopsOnCancel(t *testing.T) {
	s, _ := newTestSocket(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := CredentialSinkFunc(func(string, string) error { return nil })
	if err := WaitForCredentials(ctx, s, 0, time.Millisecond, sink); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
