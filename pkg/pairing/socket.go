package pairing

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"air-analyzer/pkg/config"
	deverrors "air-analyzer/pkg/errors"
	"air-analyzer/pkg/logger"
	"air-analyzer/pkg/metrics"
)

// How long a single AttachClient or Listen poll may wait for the peer
const pollWait = 10 * time.Millisecond

// ErrLinkDown is returned by Begin when there is no network to listen on
var ErrLinkDown = errors.New("network link is down")

// Link reports whether the network is up
type Link interface {
	IsConnected() bool
}

// Socket is a one-client-at-a-time JSON request server used to pair the
// device with the companion app. All methods are non-blocking polls meant
// to be called from the device loop.
type Socket struct {
	link        Link
	readTimeout time.Duration
	log         logger.ILogger
	metrics     metrics.MetricsCollector

	listener *net.TCPListener
	conn     net.Conn
	reader   *bufio.Reader
	session  string

	lastRequest Request
}

// NewSocket creates a closed socket
func NewSocket(link Link, settings config.PairingSettings, log logger.ILogger, collector metrics.MetricsCollector) *Socket {
	if log == nil {
		log = logger.NewStandardLogger()
	}
	if collector == nil {
		collector = metrics.NewNullMetrics()
	}
	return &Socket{
		link:        link,
		readTimeout: settings.ReadTimeout,
		log:         log,
		metrics:     collector,
	}
}

// Begin starts listening on port. It is a no-op when already listening and
// fails with ErrLinkDown when the network is down.
func (s *Socket) Begin(port int) error {
	if !s.link.IsConnected() {
		return ErrLinkDown
	}
	if s.listener != nil {
		return nil
	}

	ln, err := net.ListenTCP("tcp", &net.TCPAddr{Port: port})
	if err != nil {
		return deverrors.NewPairingError("begin", err, fmt.Sprintf(":%d", port))
	}
	s.listener = ln
	s.log.LogInfo("📡 Pairing socket listening on %s", ln.Addr())
	return nil
}

// Addr returns the listening address, nil when closed
func (s *Socket) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// End detaches any client and closes the listener
func (s *Socket) End() {
	s.DetachClient()
	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
		s.log.LogInfo("📡 Pairing socket closed")
	}
}

// IsListening reports whether the socket accepts clients
func (s *Socket) IsListening() bool {
	return s.listener != nil && s.link.IsConnected()
}

// IsAttached reports whether a client is attached
func (s *Socket) IsAttached() bool {
	return s.conn != nil
}

// AttachClient accepts a pending connection when no client is attached. It
// reports whether a client was attached by this call.
func (s *Socket) AttachClient() bool {
	if !s.IsListening() || s.IsAttached() {
		return false
	}

	s.listener.SetDeadline(time.Now().Add(pollWait))
	conn, err := s.listener.Accept()
	if err != nil {
		if !errors.Is(err, os.ErrDeadlineExceeded) {
			s.log.LogDebug("📡 Accept failed: %v", err)
		}
		return false
	}

	s.conn = conn
	s.reader = bufio.NewReader(conn)
	s.session = uuid.NewString()
	s.log.LogInfo("📡 Client %s attached (session %s)", conn.RemoteAddr(), s.session)
	return true
}

// DetachClient closes the attached client. It reports whether one was
// attached.
func (s *Socket) DetachClient() bool {
	if s.conn == nil {
		return false
	}
	s.conn.Close()
	s.log.LogInfo("📡 Client %s detached (session %s)", s.conn.RemoteAddr(), s.session)
	s.conn = nil
	s.reader = nil
	s.session = ""
	return true
}

// Listen reads one request when the client has sent data and returns its
// request code. It returns RequestNone when nothing arrived or the payload
// could not be decoded.
func (s *Socket) Listen() int {
	if !s.IsListening() || !s.IsAttached() {
		return RequestNone
	}

	s.conn.SetReadDeadline(time.Now().Add(pollWait))
	if _, err := s.reader.Peek(1); err != nil {
		if isTimeout(err) {
			return RequestNone
		}
		// Peer closed or broke the connection
		s.DetachClient()
		return RequestNone
	}

	s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	line, err := s.reader.ReadBytes('\n')
	if err != nil && !isTimeout(err) && !errors.Is(err, io.EOF) {
		s.log.LogWarn("📡 Read failed: %v", err)
		s.DetachClient()
		return RequestNone
	}

	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return RequestNone
	}

	req, err := ParseRequest(line)
	if err != nil {
		s.log.LogWarn("%v", deverrors.NewPairingError("listen", err, s.remote()))
		return RequestNone
	}

	s.lastRequest = req
	s.metrics.IncrementPairingRequests(req.RequestCode)
	s.log.LogDebug("📡 Request code %d from %s", req.RequestCode, s.remote())
	return req.RequestCode
}

// Speak writes one line to the attached client
func (s *Socket) Speak(message string) bool {
	if !s.IsListening() || !s.IsAttached() {
		return false
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.readTimeout))
	if _, err := io.WriteString(s.conn, message+"\n"); err != nil {
		s.log.LogWarn("📡 Write to %s failed: %v", s.remote(), err)
		return false
	}
	return true
}

// SendRoomID replies {"RoomID": room}
func (s *Socket) SendRoomID(room uint8) bool {
	payload, err := json.Marshal(roomReply{RoomID: room})
	if err != nil {
		return false
	}
	return s.Speak(string(payload))
}

// Credentials extracts username and password from the last credentials
// request, truncating them to MaxUsernameLength and MaxPasswordLength
func (s *Socket) Credentials() (username, password string, err error) {
	if s.lastRequest.RequestCode != RequestCredentials {
		return "", "", deverrors.NewPairingError("credentials", fmt.Errorf("no credentials request received"), s.remote())
	}

	var msg CredentialsMessage
	if err := json.Unmarshal(s.lastRequest.Message, &msg); err != nil {
		return "", "", deverrors.NewPairingError("credentials", fmt.Errorf("decode message: %w", err), s.remote())
	}

	username, cut := truncate(msg.Username, MaxUsernameLength)
	if cut {
		s.log.LogWarn("📡 Username truncated to %d bytes", MaxUsernameLength)
	}
	password, cut = truncate(msg.Password, MaxPasswordLength)
	if cut {
		s.log.LogWarn("📡 Password truncated to %d bytes", MaxPasswordLength)
	}
	return username, password, nil
}

func (s *Socket) remote() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
