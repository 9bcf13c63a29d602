// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FakeBluetooth simulates an adapter and the command-line tools that drive
// it. Every tool is a /bin/sh script using only shell builtins, so a PATH
// containing just BinDir hides any real tool installed on the host.
type FakeBluetooth struct {
	Dir    string
	BinDir string
}

// Tool names understood by Install.
const (
	ToolHciconfig  = "hciconfig"
	ToolBdaddr     = "bdaddr"
	ToolBtmgmt     = "btmgmt"
	ToolSpooftooph = "spooftooph"
)

// VendorAddress is what the fake vendor tool applies, ignoring any request.
const VendorAddress = "02:5A:5A:5A:5A:01"

// NewFakeBluetooth creates a fake adapter reporting initial under dir.
func NewFakeBluetooth(dir, initial string) (*FakeBluetooth, error) {
	f := &FakeBluetooth{Dir: dir, BinDir: filepath.Join(dir, "bin")}
	if err := os.MkdirAll(f.BinDir, 0755); err != nil {
		return nil, err
	}
	if err := f.SetAddress(initial); err != nil {
		return nil, err
	}
	if err := os.WriteFile(f.powerPath(), []byte("up\n"), 0644); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FakeBluetooth) addressPath() string { return filepath.Join(f.Dir, "address") }
func (f *FakeBluetooth) powerPath() string   { return filepath.Join(f.Dir, "power") }
func (f *FakeBluetooth) rejectPath() string  { return filepath.Join(f.Dir, "reject-static") }

// Address returns the address the fake adapter currently reports.
func (f *FakeBluetooth) Address() string {
	data, err := os.ReadFile(f.addressPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SetAddress changes the adapter address behind the tools' back.
func (f *FakeBluetooth) SetAddress(addr string) error {
	return os.WriteFile(f.addressPath(), []byte(addr+"\n"), 0644)
}

// Powered reports the last state set through hciconfig.
func (f *FakeBluetooth) Powered() bool {
	data, _ := os.ReadFile(f.powerPath())
	return strings.TrimSpace(string(data)) == "up"
}

// RejectStatic makes btmgmt refuse static-addr so public-addr is used.
func (f *FakeBluetooth) RejectStatic() error {
	return os.WriteFile(f.rejectPath(), nil, 0644)
}

// Install writes the named tools into BinDir.
func (f *FakeBluetooth) Install(tools ...string) error {
	for _, tool := range tools {
		script, err := f.script(tool)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(f.BinDir, tool), []byte(script), 0755); err != nil {
			return err
		}
	}
	return nil
}

// Uninstall removes the named tools from BinDir.
func (f *FakeBluetooth) Uninstall(tools ...string) error {
	for _, tool := range tools {
		if err := os.Remove(filepath.Join(f.BinDir, tool)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (f *FakeBluetooth) script(tool string) (string, error) {
	addr, power, reject := f.addressPath(), f.powerPath(), f.rejectPath()

	switch tool {
	case ToolHciconfig:
		return fmt.Sprintf(`#!/bin/sh
# hciconfig IFACE [up|down]
case "$2" in
up|down) printf '%%s\n' "$2" > %[2]q; exit 0 ;;
esac
read -r a < %[1]q
printf '%%s:\tType: Primary  Bus: USB\n' "$1"
printf '\tBD Address: %%s  ACL MTU: 1021:8  SCO MTU: 64:1\n' "$a"
read -r p < %[2]q
if [ "$p" = up ]; then printf '\tUP RUNNING\n'; else printf '\tDOWN\n'; fi
`, addr, power), nil

	case ToolBdaddr:
		return fmt.Sprintf(`#!/bin/sh
# bdaddr -i IFACE ADDR
[ "$1" = "-i" ] || exit 2
printf '%%s\n' "$3" > %q
`, addr), nil

	case ToolBtmgmt:
		return fmt.Sprintf(`#!/bin/sh
# btmgmt --index IFACE static-addr|public-addr ADDR
[ "$1" = "--index" ] || exit 2
if [ "$3" = static-addr ] && [ -e %[2]q ]; then
	echo "Set static address failed with status 0x0d (Invalid Parameters)" >&2
	exit 1
fi
printf '%%s\n' "$4" > %[1]q
`, addr, reject), nil

	case ToolSpooftooph:
		return fmt.Sprintf(`#!/bin/sh
# spooftooph -i IFACE -R
[ "$1" = "-i" ] || exit 2
printf '%%s\n' %q > %q
`, VendorAddress, addr), nil
	}
	return "", fmt.Errorf("unknown fake tool %q", tool)
}
