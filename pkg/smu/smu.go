// Package smu reads AMD SMU state exposed by the ryzen_smu kernel driver.
//
// The driver handles the SMU mailbox protocol in kernel space and publishes
// the results as sysfs attributes under /sys/kernel/ryzen_smu_drv. This
// package only reads those attributes; it never talks to the hardware
// directly.
package smu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSysfsRoot is where the ryzen_smu driver mounts its attributes.
const DefaultSysfsRoot = "/sys/kernel/ryzen_smu_drv"

var (
	// ErrDriverNotLoaded indicates the ryzen_smu kernel driver is not
	// present (or the caller lacks permission to read its sysfs tree).
	ErrDriverNotLoaded = errors.New("smu: ryzen_smu driver not loaded")

	// ErrPMTableUnsupported indicates the driver is loaded but does not
	// expose a PM table for this CPU.
	ErrPMTableUnsupported = errors.New("smu: PM table not supported on this platform")

	// ErrClosed is returned for operations on a closed client.
	ErrClosed = errors.New("smu: client is closed")
)

// Client is a handle to the SMU driver interface. It is not safe for
// concurrent use; callers must serialize access.
type Client struct {
	root string

	drvVersion     string
	fwVersion      uint32
	ifVersion      int
	codename       Codename
	pmTableVersion uint32
	pmTableSize    int

	// pmTable stays open for the lifetime of the client so repeated
	// telemetry reads do not pay the open/close cost. The driver
	// regenerates the table content on every read.
	pmTable *os.File
}

// Option configures a Client.
type Option func(*options)

type options struct {
	sysfsRoot string
}

// WithSysfsRoot overrides the sysfs directory the client reads from.
// Used by tests to point at a synthetic driver tree.
func WithSysfsRoot(root string) Option {
	return func(o *options) { o.sysfsRoot = root }
}

// Open acquires a handle to the SMU driver. The returned client holds the
// PM-table attribute open until Close is called.
func Open(opts ...Option) (*Client, error) {
	o := options{sysfsRoot: DefaultSysfsRoot}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{root: o.sysfsRoot}

	drvVersion, err := c.readString("drv_version")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDriverNotLoaded, err)
	}
	c.drvVersion = drvVersion

	if c.fwVersion, err = c.readUint32("version"); err != nil {
		return nil, fmt.Errorf("failed to read SMU firmware version: %w", err)
	}

	code, err := c.readUint32("codename")
	if err != nil {
		return nil, fmt.Errorf("failed to read codename: %w", err)
	}
	c.codename = Codename(code)

	// mp1_if_version is absent on very old driver builds; treat it as
	// unknown rather than failing the open.
	if ifVer, err := c.readUint32("mp1_if_version"); err == nil {
		c.ifVersion = mapInterfaceVersion(ifVer)
	}

	version, err := c.readUint32("pm_table_version")
	if err != nil {
		return nil, ErrPMTableUnsupported
	}
	c.pmTableVersion = version

	size, err := c.readUint64("pm_table_size")
	if err != nil || size == 0 {
		return nil, ErrPMTableUnsupported
	}
	c.pmTableSize = int(size)

	table, err := os.Open(filepath.Join(c.root, "pm_table")) // #nosec G304 -- path is rooted at the driver sysfs tree
	if err != nil {
		return nil, ErrPMTableUnsupported
	}
	c.pmTable = table

	return c, nil
}

// Close releases the PM-table handle. It is idempotent.
func (c *Client) Close() error {
	if c.pmTable == nil {
		return nil
	}
	err := c.pmTable.Close()
	c.pmTable = nil
	return err
}

// DriverVersion returns the ryzen_smu driver version string.
func (c *Client) DriverVersion() string {
	return c.drvVersion
}

// FirmwareVersion returns the SMU firmware version in dotted form.
func (c *Client) FirmwareVersion() string {
	return fmt.Sprintf("%d.%d.%d",
		(c.fwVersion>>16)&0xff, (c.fwVersion>>8)&0xff, c.fwVersion&0xff)
}

// InterfaceVersion returns the SMU mailbox interface version (9..13),
// or 0 if the driver did not report one.
func (c *Client) InterfaceVersion() int {
	return c.ifVersion
}

// Codename returns the CPU codename reported by the driver.
func (c *Client) Codename() Codename {
	return c.codename
}

// PMTableVersion returns the PM-table format tag for this CPU generation.
func (c *Client) PMTableVersion() uint32 {
	return c.pmTableVersion
}

// PMTableSize returns the PM table size in bytes.
func (c *Client) PMTableSize() int {
	return c.pmTableSize
}

// PMTableSupported reports whether the driver exposes a PM table.
func (c *Client) PMTableSupported() bool {
	return c.pmTable != nil && c.pmTableSize > 0
}

// ReadPMTable reads a fresh PM-table snapshot into buf. buf must be at
// least PMTableSize bytes; only the first PMTableSize bytes are written.
func (c *Client) ReadPMTable(buf []byte) error {
	if c.pmTable == nil {
		return ErrClosed
	}
	if len(buf) < c.pmTableSize {
		return fmt.Errorf("smu: buffer too small: %d < %d", len(buf), c.pmTableSize)
	}
	if _, err := c.pmTable.ReadAt(buf[:c.pmTableSize], 0); err != nil {
		return fmt.Errorf("failed to read PM table: %w", err)
	}
	return nil
}

// mapInterfaceVersion translates the driver's interface enum (0..4) to the
// public MP1 interface version numbering.
func mapInterfaceVersion(v uint32) int {
	if v <= 4 {
		return int(v) + 9
	}
	return 0
}

func (c *Client) readString(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(c.root, name)) // #nosec G304 -- path is rooted at the driver sysfs tree
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *Client) readUint32(name string) (uint32, error) {
	data, err := os.ReadFile(filepath.Join(c.root, name)) // #nosec G304 -- path is rooted at the driver sysfs tree
	if err != nil {
		return 0, err
	}
	if len(data) < 4 {
		return 0, fmt.Errorf("attribute %s too short: %d bytes", name, len(data))
	}
	return binary.LittleEndian.Uint32(data), nil
}

func (c *Client) readUint64(name string) (uint64, error) {
	data, err := os.ReadFile(filepath.Join(c.root, name)) // #nosec G304 -- path is rooted at the driver sysfs tree
	if err != nil {
		return 0, err
	}
	switch {
	case len(data) >= 8:
		return binary.LittleEndian.Uint64(data), nil
	case len(data) >= 4:
		return uint64(binary.LittleEndian.Uint32(data)), nil
	default:
		return 0, fmt.Errorf("attribute %s too short: %d bytes", name, len(data))
	}
}
