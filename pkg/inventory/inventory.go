// Package inventory loads the list of devices a batch run works through.
package inventory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrCancelled is returned when the operator cancels a credential prompt.
var ErrCancelled = errors.New("cancelled by operator")

// Protocol is the transport used to reach a device.
type Protocol string

const (
	ProtocolSSH    Protocol = "ssh"
	ProtocolTelnet Protocol = "telnet"
)

// ParseProtocol maps an inventory protocol column to a Protocol.
// Any value containing "ssh" (ssh, SSH2, ssh1) selects SSH.
func ParseProtocol(s string) (Protocol, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return ProtocolSSH, nil
	case strings.Contains(v, "ssh"):
		return ProtocolSSH, nil
	case v == "telnet":
		return ProtocolTelnet, nil
	}
	return "", fmt.Errorf("unknown protocol %q (valid: ssh, ssh2, telnet)", s)
}

// Device is one inventory entry. Values are never modified after Load.
type Device struct {
	Hostname       string
	Protocol       Protocol
	Username       string
	Password       string
	EnablePassword string
}

// String omits credentials so a Device is safe to log.
func (d Device) String() string {
	return fmt.Sprintf("%s (%s)", d.Hostname, d.Protocol)
}

// Defaults fill blank credential columns. The CLI sets them from flags.
type Defaults struct {
	Username       string
	Password       string
	EnablePassword string
}

func (d Defaults) apply(dev *Device) {
	if dev.Username == "" {
		dev.Username = d.Username
	}
	if dev.Password == "" {
		dev.Password = d.Password
	}
	if dev.EnablePassword == "" {
		dev.EnablePassword = d.EnablePassword
	}
}

// Load reads an inventory file, choosing the format by extension.
func Load(path string, defaults Defaults) ([]Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening inventory %s: %w", path, err)
	}
	defer f.Close()

	var devices []Device
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		devices, err = parseCSV(f)
	case ".yaml", ".yml":
		devices, err = parseYAML(f)
	default:
		return nil, fmt.Errorf("inventory %s: unsupported format %q (use .csv or .yaml)", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing inventory %s: %w", path, err)
	}

	for i := range devices {
		defaults.apply(&devices[i])
	}
	return devices, nil
}

// File is an inventory source bound to a path, for callers that want to
// defer reading until the run has passed its precondition checks.
type File struct {
	Path     string
	Defaults Defaults

	// AskPassword, when set, is called once after loading if a device
	// has no password. It is not called for an empty inventory.
	AskPassword func() (string, bool)
}

// Devices loads the inventory.
func (f File) Devices() ([]Device, error) {
	devices, err := Load(f.Path, f.Defaults)
	if err != nil || f.AskPassword == nil {
		return devices, err
	}

	var missing []int
	for i, d := range devices {
		if d.Password == "" {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return devices, nil
	}
	pw, ok := f.AskPassword()
	if !ok {
		return nil, ErrCancelled
	}
	for _, i := range missing {
		devices[i].Password = pw
	}
	return devices, nil
}
