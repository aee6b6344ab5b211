package mqtt

import (
	"fmt"
	"strings"
)

// Command is a remote request received on the command topic
type Command int

const (
	CommandShortPress Command = iota + 1
	CommandLongPress
	CommandSync
)

func (c Command) String() string {
	switch c {
	case CommandShortPress:
		return "short"
	case CommandLongPress:
		return "long"
	case CommandSync:
		return "sync"
	default:
		return "unknown"
	}
}

// ParseCommand accepts "short", "long" and "sync", case-insensitively
func ParseCommand(payload []byte) (Command, error) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "short":
		return CommandShortPress, nil
	case "long":
		return CommandLongPress, nil
	case "sync":
		return CommandSync, nil
	default:
		return 0, fmt.Errorf("unknown command %q", payload)
	}
}
