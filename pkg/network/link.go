package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"air-analyzer/pkg/logger"
	"air-analyzer/pkg/retry"
)

var errLinkDown = errors.New("link down")

// Link reports the state of the Wi-Fi connection
type Link interface {
	IsConnected() bool
	LocalIP() string
}

// InterfaceLink inspects a named network interface
type InterfaceLink struct {
	name   string
	lookup func(name string) (*net.Interface, error)
	addrs  func(iface *net.Interface) ([]net.Addr, error)
}

// NewInterfaceLink creates a link for the interface called name
func NewInterfaceLink(name string) *InterfaceLink {
	return &InterfaceLink{
		name:   name,
		lookup: net.InterfaceByName,
		addrs:  func(iface *net.Interface) ([]net.Addr, error) { return iface.Addrs() },
	}
}

// Name returns the interface name
func (l *InterfaceLink) Name() string { return l.name }

// IsConnected reports whether the interface is up with an IPv4 address
func (l *InterfaceLink) IsConnected() bool {
	return l.LocalIP() != ""
}

// LocalIP returns the first IPv4 address of the interface, or "" when the
// interface is missing or down
func (l *InterfaceLink) LocalIP() string {
	iface, err := l.lookup(l.name)
	if err != nil || iface.Flags&net.FlagUp == 0 {
		return ""
	}
	addrs, err := l.addrs(iface)
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return ""
}

// WaitForLink blocks until link is connected, checking every interval
func WaitForLink(ctx context.Context, link Link, interval time.Duration) error {
	_, attempts, err := retry.Do(ctx, retry.Forever(interval), func(int) (struct{}, error) {
		if link.IsConnected() {
			return struct{}{}, nil
		}
		return struct{}{}, errLinkDown
	})
	if err != nil {
		return fmt.Errorf("wait for link: %w", err)
	}
	if attempts > 1 {
		logger.LogInfo("📶 Link up after %d check(s), local IP %s", attempts, link.LocalIP())
	}
	return nil
}

// Hostname is the device name announced on the network
func Hostname(prefix string, room uint8) string {
	return fmt.Sprintf("%s%d", prefix, room)
}
