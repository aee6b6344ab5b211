package storage

import (
	"fmt"

	"air-analyzer/pkg/logger"
)

// Current layout version and its fixed offsets
const (
	LayoutVersion = 3
	ImageSize     = 187

	AddrVersion          = 0
	AddrWiFiSSID         = 1
	AddrWiFiPassword     = 35
	AddrRoomID           = 100
	AddrCredentialUser   = 101
	AddrCredentialSecret = 122

	SlotWiFiSSID         = 34
	SlotWiFiPassword     = 65
	SlotCredentialUser   = 21
	SlotCredentialSecret = 65
)

// Version 2 offsets, remapped by Migrate
const (
	legacyAddrWiFiSSID     = 1
	legacyAddrWiFiPassword = 34
	legacyAddrRoomID       = 99
)

// Profile is everything the device keeps across power cycles
type Profile struct {
	Version      byte
	WiFiSSID     string
	WiFiPassword string
	RoomID       uint8
	Username     string
	Password     string
}

// Layout maps the profile fields onto a Store
type Layout struct {
	store *Store
}

// NewLayout wraps an opened store
func NewLayout(store *Store) *Layout {
	return &Layout{store: store}
}

// Version returns the stored layout version (0 on a blank device)
func (l *Layout) Version() (byte, error) {
	return l.store.Read(AddrVersion)
}

// LoadProfile reads every field of the current layout
func (l *Layout) LoadProfile() (Profile, error) {
	var p Profile
	var err error

	if p.Version, err = l.store.Read(AddrVersion); err != nil {
		return p, err
	}
	if p.WiFiSSID, err = l.store.GetString(AddrWiFiSSID, SlotWiFiSSID); err != nil {
		return p, err
	}
	if p.WiFiPassword, err = l.store.GetString(AddrWiFiPassword, SlotWiFiPassword); err != nil {
		return p, err
	}
	if p.RoomID, err = l.store.Read(AddrRoomID); err != nil {
		return p, err
	}
	if p.Username, err = l.store.GetString(AddrCredentialUser, SlotCredentialUser); err != nil {
		return p, err
	}
	if p.Password, err = l.store.GetString(AddrCredentialSecret, SlotCredentialSecret); err != nil {
		return p, err
	}
	return p, nil
}

// Reset zeroes the whole image, leaving a blank version 0 device
func (l *Layout) Reset() error {
	return l.store.Reset()
}

// SaveVersion stores the layout version and commits
func (l *Layout) SaveVersion(version byte) error {
	if err := l.store.Write(AddrVersion, version); err != nil {
		return err
	}
	return l.store.Commit()
}

// SaveWiFi stores the network credentials and commits
func (l *Layout) SaveWiFi(ssid, password string) error {
	if err := l.store.PutString(AddrWiFiSSID, SlotWiFiSSID, fit("wifi ssid", ssid, SlotWiFiSSID)); err != nil {
		return err
	}
	if err := l.store.PutString(AddrWiFiPassword, SlotWiFiPassword, fit("wifi password", password, SlotWiFiPassword)); err != nil {
		return err
	}
	return l.store.Commit()
}

// SaveRoomID stores the room id, writing only when it changed.
// It reports whether a write happened.
func (l *Layout) SaveRoomID(room uint8) (bool, error) {
	current, err := l.store.Read(AddrRoomID)
	if err != nil {
		return false, err
	}
	if current == room {
		return false, nil
	}
	if err := l.store.Write(AddrRoomID, room); err != nil {
		return false, err
	}
	return true, l.store.Commit()
}

// SaveCredentials stores the backend credentials and commits
func (l *Layout) SaveCredentials(username, password string) error {
	if err := l.store.PutString(AddrCredentialUser, SlotCredentialUser, fit("username", username, SlotCredentialUser)); err != nil {
		return err
	}
	if err := l.store.PutString(AddrCredentialSecret, SlotCredentialSecret, fit("password", password, SlotCredentialSecret)); err != nil {
		return err
	}
	return l.store.Commit()
}

// Migrate brings a version 2 image to the current offsets. Other versions
// are left untouched. It reports whether a remap happened.
func (l *Layout) Migrate() (bool, error) {
	version, err := l.store.Read(AddrVersion)
	if err != nil {
		return false, err
	}
	if version != 2 {
		return false, nil
	}

	ssid, err := l.store.GetString(legacyAddrWiFiSSID, legacyAddrWiFiPassword-legacyAddrWiFiSSID)
	if err != nil {
		return false, err
	}
	password, err := l.store.GetString(legacyAddrWiFiPassword, SlotWiFiPassword)
	if err != nil {
		return false, err
	}
	room, err := l.store.Read(legacyAddrRoomID)
	if err != nil {
		return false, err
	}

	// The old password slot overlaps the new room and credential cells
	if err := l.store.Reset(); err != nil {
		return false, err
	}
	if err := l.store.Write(AddrVersion, version); err != nil {
		return false, err
	}
	if err := l.SaveWiFi(ssid, password); err != nil {
		return false, err
	}
	if err := l.store.Write(AddrRoomID, room); err != nil {
		return false, err
	}
	if err := l.store.Commit(); err != nil {
		return false, err
	}

	logger.LogInfo("💾 Storage remapped from layout 2 (room %d)", room)
	return true, nil
}

// fit truncates value to the slot, leaving room for the terminator
func fit(field, value string, slot int) string {
	if len(value) <= slot-1 {
		return value
	}
	logger.LogWarn("💾 %s truncated to %d bytes", field, slot-1)
	return truncateBytes(value, slot-1)
}

// truncateBytes cuts s to at most n bytes without splitting a UTF-8 sequence
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	return s[:cut]
}

// String renders a profile for logs with secrets masked
func (p Profile) String() string {
	return fmt.Sprintf("version=%d ssid=%q room=%d user=%q password=%s",
		p.Version, p.WiFiSSID, p.RoomID, p.Username, mask(p.Password))
}

func mask(secret string) string {
	if secret == "" {
		return "<empty>"
	}
	return "****"
}
