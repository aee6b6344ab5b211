package pairing

import (
	"encoding/json"
	"fmt"
)

// Request codes sent by the companion app
const (
	RequestNone        = 0
	RequestCredentials = 1
)

// Credential limits, in bytes, applied when a request is extracted
const (
	MaxUsernameLength = 20
	MaxPasswordLength = 64
)

// Request is one newline-terminated JSON message from the app
type Request struct {
	RequestCode int             `json:"request_code"`
	Message     json.RawMessage `json:"message,omitempty"`
}

// CredentialsMessage is the payload of a RequestCredentials request
type CredentialsMessage struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// roomReply is sent back once credentials are stored
type roomReply struct {
	RoomID uint8 `json:"RoomID"`
}

// ParseRequest decodes one request line
func ParseRequest(line []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

// truncate cuts s to at most n bytes on a UTF-8 boundary. It reports whether
// anything was cut.
func truncate(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	cut := n
	for cut > 0 && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	return s[:cut], true
}
