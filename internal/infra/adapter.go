package infra

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/viik420/bt-mac-changer/internal/domain"
)

const addressLabel = "BD Address:"

// HciconfigAdapter controls the adapter through the hciconfig tool.
type HciconfigAdapter struct {
	runner CommandRunner
	bin    string
}

// NewHciconfigAdapter creates an hciconfig-backed adapter controller.
func NewHciconfigAdapter(runner CommandRunner) *HciconfigAdapter {
	return &HciconfigAdapter{runner: runner, bin: "hciconfig"}
}

// IsAvailable checks if hciconfig is installed.
func (a *HciconfigAdapter) IsAvailable() bool {
	_, err := a.runner.LookPath(a.bin)
	return err == nil
}

// CurrentAddress runs `hciconfig <iface>` and extracts the BD Address field.
func (a *HciconfigAdapter) CurrentAddress(ctx context.Context, iface string) (domain.Address, error) {
	out, err := a.runner.Output(ctx, a.bin, iface)
	if err != nil {
		return "", err
	}
	return parseHciconfigAddress(out)
}

// SetPowered runs `hciconfig <iface> up|down`.
func (a *HciconfigAdapter) SetPowered(ctx context.Context, iface string, on bool) error {
	state := "down"
	if on {
		state = "up"
	}
	return a.runner.Run(ctx, a.bin, iface, state)
}

// parseHciconfigAddress finds the line carrying the address label and
// returns the field right after it, e.g.
//
//	BD Address: 50:E0:85:65:80:00  ACL MTU: 1021:8  SCO MTU: 64:1
func parseHciconfigAddress(out []byte) (domain.Address, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.Index(line, addressLabel)
		if idx < 0 {
			continue
		}
		fields := strings.Fields(line[idx+len(addressLabel):])
		if len(fields) == 0 {
			break
		}
		return domain.ParseAddress(fields[0])
	}
	return "", fmt.Errorf("no %q line in adapter info", addressLabel)
}

// availabilityChecker is satisfied by adapter backends that depend on a tool.
type availabilityChecker interface {
	IsAvailable() bool
}

// FallbackAdapter uses the primary controller when it is available and
// the fallback otherwise.
type FallbackAdapter struct {
	primary  domain.AdapterController
	fallback domain.AdapterController
}

// NewFallbackAdapter composes two adapter controllers.
func NewFallbackAdapter(primary, fallback domain.AdapterController) *FallbackAdapter {
	return &FallbackAdapter{primary: primary, fallback: fallback}
}

// NewAdapterController returns hciconfig with a BlueZ D-Bus fallback.
func NewAdapterController(runner CommandRunner) domain.AdapterController {
	return NewFallbackAdapter(NewHciconfigAdapter(runner), NewBluezAdapter())
}

func (a *FallbackAdapter) active() domain.AdapterController {
	if c, ok := a.primary.(availabilityChecker); ok && !c.IsAvailable() && a.fallback != nil {
		return a.fallback
	}
	return a.primary
}

func (a *FallbackAdapter) CurrentAddress(ctx context.Context, iface string) (domain.Address, error) {
	return a.active().CurrentAddress(ctx, iface)
}

func (a *FallbackAdapter) SetPowered(ctx context.Context, iface string, on bool) error {
	return a.active().SetPowered(ctx, iface, on)
}

// Ensure implementations satisfy interfaces
var _ domain.AdapterController = (*HciconfigAdapter)(nil)
var _ domain.AdapterController = (*FallbackAdapter)(nil)
