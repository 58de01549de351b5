package smu

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeSysfs builds a synthetic ryzen_smu sysfs tree.
func writeSysfs(t *testing.T, attrs map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for name, data := range attrs {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func u32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

func u64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

func fullTree(pmTableSize int) map[string][]byte {
	return map[string][]byte{
		"drv_version":      []byte("0.1.5\n"),
		"version":          u32(56<<16 | 46<<8 | 54),
		"mp1_if_version":   u32(2),
		"codename":         u32(uint32(CodenameVermeer)),
		"pm_table_version": u32(0x380904),
		"pm_table_size":    u64(uint64(pmTableSize)),
		"pm_table":         make([]byte, pmTableSize),
	}
}

func TestOpenReadsDriverAttributes(t *testing.T) {
	root := writeSysfs(t, fullTree(2048))

	client, err := Open(WithSysfsRoot(root))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer client.Close()

	if got := client.DriverVersion(); got != "0.1.5" {
		t.Errorf("DriverVersion() = %q, want %q", got, "0.1.5")
	}
	if got := client.FirmwareVersion(); got != "56.46.54" {
		t.Errorf("FirmwareVersion() = %q, want %q", got, "56.46.54")
	}
	if got := client.InterfaceVersion(); got != 11 {
		t.Errorf("InterfaceVersion() = %d, want 11", got)
	}
	if got := client.Codename(); got != CodenameVermeer {
		t.Errorf("Codename() = %v, want Vermeer", got)
	}
	if got := client.PMTableVersion(); got != 0x380904 {
		t.Errorf("PMTableVersion() = %#x, want 0x380904", got)
	}
	if got := client.PMTableSize(); got != 2048 {
		t.Errorf("PMTableSize() = %d, want 2048", got)
	}
	if !client.PMTableSupported() {
		t.Error("PMTableSupported() = false, want true")
	}
}

func TestOpenDriverMissing(t *testing.T) {
	_, err := Open(WithSysfsRoot(filepath.Join(t.TempDir(), "nonexistent")))
	if !errors.Is(err, ErrDriverNotLoaded) {
		t.Errorf("Open() error = %v, want ErrDriverNotLoaded", err)
	}
}

func TestOpenPMTableUnsupported(t *testing.T) {
	attrs := fullTree(2048)
	delete(attrs, "pm_table_version")
	delete(attrs, "pm_table_size")
	delete(attrs, "pm_table")
	root := writeSysfs(t, attrs)

	_, err := Open(WithSysfsRoot(root))
	if !errors.Is(err, ErrPMTableUnsupported) {
		t.Errorf("Open() error = %v, want ErrPMTableUnsupported", err)
	}
}

func TestReadPMTable(t *testing.T) {
	attrs := fullTree(16)
	attrs["pm_table"] = []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	root := writeSysfs(t, attrs)

	client, err := Open(WithSysfsRoot(root))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	buf := make([]byte, client.PMTableSize())
	if err := client.ReadPMTable(buf); err != nil {
		t.Fatalf("ReadPMTable() error: %v", err)
	}
	if buf[0] != 1 || buf[15] != 16 {
		t.Errorf("ReadPMTable() content mismatch: %v", buf)
	}

	// Undersized buffer is rejected without a partial read.
	if err := client.ReadPMTable(make([]byte, 4)); err == nil {
		t.Error("ReadPMTable() with short buffer: expected error")
	}
}

func TestReadAfterClose(t *testing.T) {
	root := writeSysfs(t, fullTree(16))
	client, err := Open(WithSysfsRoot(root))
	if err != nil {
		t.Fatal(err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	// Close is idempotent.
	if err := client.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}

	if err := client.ReadPMTable(make([]byte, 16)); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadPMTable() after close = %v, want ErrClosed", err)
	}
}

func TestCodenameString(t *testing.T) {
	tests := []struct {
		codename Codename
		want     string
	}{
		{CodenameVermeer, "Vermeer"},
		{CodenameMatisse, "Matisse"},
		{CodenameCezanne, "Cezanne"},
		{Codename(999), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.codename.String(); got != tt.want {
			t.Errorf("Codename(%d).String() = %q, want %q", tt.codename, got, tt.want)
		}
	}
}

func TestMapInterfaceVersion(t *testing.T) {
	tests := []struct {
		raw  uint32
		want int
	}{
		{0, 9},
		{1, 10},
		{4, 13},
		{5, 0},
	}

	for _, tt := range tests {
		if got := mapInterfaceVersion(tt.raw); got != tt.want {
			t.Errorf("mapInterfaceVersion(%d) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
