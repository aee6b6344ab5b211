package storage

import (
	"strings"
	"testing"
)

func TestProfileRoundTrip(t *testing.T) {
	s, _ := openStore(t)
	l := NewLayout(s)

	if err := l.SaveVersion(LayoutVersion); err != nil {
		t.Fatalf("SaveVersion failed: %v", err)
	}
	if err := l.SaveWiFi("HomeNet", "wifi-secret"); err != nil {
		t.Fatalf("SaveWiFi failed: %v", err)
	}
	if _, err := l.SaveRoomID(7); err != nil {
		t.Fatalf("SaveRoomID failed: %v", err)
	}
	if err := l.SaveCredentials("alice", "secret123"); err != nil {
		t.Fatalf("SaveCredentials failed: %v", err)
	}

	p, err := l.LoadProfile()
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	want := Profile{Version: 3, WiFiSSID: "HomeNet", WiFiPassword: "wifi-secret", RoomID: 7, Username: "alice", Password: "secret123"}
	if p != want {
		t.Errorf("Expected %+v, got %+v", want, p)
	}
	if strings.Contains(p.String(), "secret123") {
		t.Errorf("Expected password to be masked, got %s", p.String())
	}
}

func TestSaveRoomIDWritesOnlyOnChange(t *testing.T) {
	s, _ := openStore(t)
	l := NewLayout(s)

	written, err := l.SaveRoomID(2)
	if err != nil || !written {
		t.Fatalf("Expected first save to write, got written=%v err=%v", written, err)
	}
	written, err = l.SaveRoomID(2)
	if err != nil || written {
		t.Errorf("Expected unchanged room not to be written, got written=%v err=%v", written, err)
	}
}

func TestFieldsDoNotOverlap(t *testing.T) {
	s, _ := openStore(t)
	l := NewLayout(s)

	l.SaveWiFi(strings.Repeat("s", SlotWiFiSSID-1), strings.Repeat("p", SlotWiFiPassword-1))
	l.SaveRoomID(9)
	l.SaveCredentials(strings.Repeat("u", SlotCredentialUser-1), strings.Repeat("k", SlotCredentialSecret-1))

	p, err := l.LoadProfile()
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if p.RoomID != 9 {
		t.Errorf("Expected room 9, got %d", p.RoomID)
	}
	if len(p.WiFiSSID) != SlotWiFiSSID-1 || len(p.WiFiPassword) != SlotWiFiPassword-1 {
		t.Errorf("Wi-Fi fields overlapped: ssid=%d password=%d", len(p.WiFiSSID), len(p.WiFiPassword))
	}
	if len(p.Username) != SlotCredentialUser-1 || len(p.Password) != SlotCredentialSecret-1 {
		t.Errorf("Credential fields overlapped: user=%d password=%d", len(p.Username), len(p.Password))
	}
}

func TestOversizeWiFiIsTruncated(t *testing.T) {
	s, _ := openStore(t)
	l := NewLayout(s)

	if err := l.SaveWiFi(strings.Repeat("n", 40), "pw"); err != nil {
		t.Fatalf("SaveWiFi failed: %v", err)
	}
	p, _ := l.LoadProfile()
	if len(p.WiFiSSID) != SlotWiFiSSID-1 {
		t.Errorf("Expected SSID truncated to %d, got %d", SlotWiFiSSID-1, len(p.WiFiSSID))
	}
}

func TestMigrateFromVersion2(t *testing.T) {
	s, _ := openStore(t)

	// Hand-build a version 2 image
	s.Write(AddrVersion, 2)
	s.PutString(legacyAddrWiFiSSID, legacyAddrWiFiPassword-legacyAddrWiFiSSID, "OldNet")
	s.PutString(legacyAddrWiFiPassword, SlotWiFiPassword, "old-pass")
	s.Write(legacyAddrRoomID, 5)
	s.Commit()

	l := NewLayout(s)
	migrated, err := l.Migrate()
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if !migrated {
		t.Fatal("Expected version 2 image to be migrated")
	}

	p, _ := l.LoadProfile()
	if p.WiFiSSID != "OldNet" || p.WiFiPassword != "old-pass" || p.RoomID != 5 {
		t.Errorf("Unexpected migrated profile %+v", p)
	}
	if p.Version != 2 {
		t.Errorf("Expected version to stay 2 until configuration completes, got %d", p.Version)
	}
}

func TestMigrateIgnoresOtherVersions(t *testing.T) {
	s, _ := openStore(t)
	l := NewLayout(s)
	l.SaveVersion(LayoutVersion)

	migrated, err := l.Migrate()
	if err != nil || migrated {
		t.Errorf("Expected no migration for version 3, got migrated=%v err=%v", migrated, err)
	}
}

func TestTruncateBytesKeepsRunesWhole(t *testing.T) {
	if got := truncateBytes("aé", 2); got != "a" {
		t.Errorf("Expected 'a', got %q", got)
	}
	if got := truncateBytes("abc", 5); got != "abc" {
		t.Errorf("Expected 'abc', got %q", got)
	}
}

func TestLayoutResetBlanksProfile(t *testing.T) {
	s, _ := openStore(t)
	l := NewLayout(s)
	l.SaveVersion(LayoutVersion)
	l.SaveRoomID(3)

	if err := l.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	p, _ := l.LoadProfile()
	if p.Version != 0 || p.RoomID != 0 {
		t.Errorf("Expected blank profile, got %+v", p)
	}
}
