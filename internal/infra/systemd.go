package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	sddbus "github.com/coreos/go-systemd/v22/dbus"
	"github.com/coreos/go-systemd/v22/unit"

	"github.com/viik420/bt-mac-changer/internal/domain"
)

const (
	// UnitName is the systemd unit that runs the agent at boot.
	UnitName = "bt-mac-changer.service"

	bluetoothUnit = "bluetooth.service"
	bootTarget    = "multi-user.target"
)

// systemdConn is the subset of the go-systemd D-Bus client we use.
type systemdConn interface {
	ReloadContext(ctx context.Context) error
	EnableUnitFilesContext(ctx context.Context, files []string, runtime bool, force bool) (bool, []sddbus.EnableUnitFileChange, error)
	DisableUnitFilesContext(ctx context.Context, files []string, runtime bool) ([]sddbus.DisableUnitFileChange, error)
	RestartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	StopUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	GetUnitPropertyContext(ctx context.Context, unit string, propertyName string) (*sddbus.Property, error)
	Close()
}

// SystemdRegistrar implements domain.BootRegistrar for systemd.
type SystemdRegistrar struct {
	unitName string
	unitPath string
	connect  func(ctx context.Context) (systemdConn, error)
}

// NewSystemdRegistrar creates a registrar writing the unit into unitDir.
func NewSystemdRegistrar(unitDir string) *SystemdRegistrar {
	return &SystemdRegistrar{
		unitName: UnitName,
		unitPath: filepath.Join(unitDir, UnitName),
		connect: func(ctx context.Context) (systemdConn, error) {
			conn, err := sddbus.NewSystemConnectionContext(ctx)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
	}
}

// GetUnitPath returns the unit file path.
func (r *SystemdRegistrar) GetUnitPath() string {
	return r.unitPath
}

// unitOptions describes a oneshot that runs after bluetoothd and stays
// active after exit, enabled for multi-user boot.
func unitOptions(agentPath, configPath string) []*unit.UnitOption {
	return []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "Apply spoofed Bluetooth adapter address"),
		unit.NewUnitOption("Unit", "After", bluetoothUnit),
		unit.NewUnitOption("Unit", "Wants", bluetoothUnit),
		unit.NewUnitOption("Service", "Type", "oneshot"),
		unit.NewUnitOption("Service", "ExecStart", execCommand(agentPath, "apply", "--boot", "--config", configPath)),
		unit.NewUnitOption("Service", "RemainAfterExit", "yes"),
		unit.NewUnitOption("Install", "WantedBy", bootTarget),
	}
}

// execCommand joins args into an ExecStart command line. Specifier and
// variable characters are doubled; arguments systemd would split or
// unescape are double-quoted.
func execCommand(args ...string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		arg = strings.NewReplacer("%", "%%", "$", "$$").Replace(arg)
		if arg == "" || strings.ContainsAny(arg, " \t\n\"'\\") {
			arg = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(arg) + `"`
		}
		quoted[i] = arg
	}
	return strings.Join(quoted, " ")
}

// RenderUnit returns the unit file content.
func RenderUnit(agentPath, configPath string) ([]byte, error) {
	return io.ReadAll(unit.Serialize(unitOptions(agentPath, configPath)))
}

// Register writes the unit, reloads systemd and enables the unit.
func (r *SystemdRegistrar) Register(ctx context.Context, agentPath, configPath string) error {
	if abs, err := filepath.Abs(agentPath); err == nil {
		agentPath = abs
	}
	if abs, err := filepath.Abs(configPath); err == nil {
		configPath = abs
	}

	content, err := RenderUnit(agentPath, configPath)
	if err != nil {
		return fmt.Errorf("failed to render unit: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.unitPath), 0755); err != nil {
		return err
	}
	if err := writeFileAtomic(r.unitPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write unit: %w", err)
	}

	sd, err := r.connect(ctx)
	if err != nil {
		return fmt.Errorf("unable to connect to systemd: %w", err)
	}
	defer sd.Close()

	if err := sd.ReloadContext(ctx); err != nil {
		return fmt.Errorf("unable to execute daemon-reload: %w", err)
	}
	if _, _, err := sd.EnableUnitFilesContext(ctx, []string{r.unitName}, false, true); err != nil {
		return fmt.Errorf("unable to enable %s: %w", r.unitName, err)
	}
	return nil
}

// Trigger restarts the unit so the agent runs now, and waits for the job.
// Restart rather than start: a RemainAfterExit unit that is already
// active would otherwise not run again.
func (r *SystemdRegistrar) Trigger(ctx context.Context) error {
	sd, err := r.connect(ctx)
	if err != nil {
		return fmt.Errorf("unable to connect to systemd: %w", err)
	}
	defer sd.Close()

	done := make(chan string, 1)
	if _, err := sd.RestartUnitContext(ctx, r.unitName, "replace", done); err != nil {
		return fmt.Errorf("unable to start %s: %w", r.unitName, err)
	}
	return waitJob(ctx, r.unitName, done)
}

// Deregister stops and disables the unit, removes the file and reloads.
// Every step runs; the first failure is returned.
func (r *SystemdRegistrar) Deregister(ctx context.Context) error {
	var errs []error

	sd, err := r.connect(ctx)
	connected := err == nil
	if !connected {
		errs = append(errs, fmt.Errorf("unable to connect to systemd: %w", err))
	} else {
		defer sd.Close()

		done := make(chan string, 1)
		if _, err := sd.StopUnitContext(ctx, r.unitName, "replace", done); err == nil {
			// A unit that was never loaded has nothing to stop.
			_ = waitJob(ctx, r.unitName, done)
		}
		if _, err := sd.DisableUnitFilesContext(ctx, []string{r.unitName}, false); err != nil && r.IsRegistered() {
			errs = append(errs, fmt.Errorf("unable to disable %s: %w", r.unitName, err))
		}
	}

	if err := removeIfExists(r.unitPath); err != nil {
		errs = append(errs, err)
	}

	if connected {
		if err := sd.ReloadContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unable to execute daemon-reload: %w", err))
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// IsRegistered checks if the unit file is present.
func (r *SystemdRegistrar) IsRegistered() bool {
	return fileExists(r.unitPath)
}

// IsEnabled reports UnitFileState == enabled.
func (r *SystemdRegistrar) IsEnabled(ctx context.Context) (bool, error) {
	state, err := r.unitProperty(ctx, "UnitFileState")
	if err != nil {
		return false, err
	}
	return state == "enabled", nil
}

// IsActive reports ActiveState == active.
func (r *SystemdRegistrar) IsActive(ctx context.Context) (bool, error) {
	state, err := r.unitProperty(ctx, "ActiveState")
	if err != nil {
		return false, err
	}
	return state == "active", nil
}

func (r *SystemdRegistrar) unitProperty(ctx context.Context, name string) (string, error) {
	sd, err := r.connect(ctx)
	if err != nil {
		return "", fmt.Errorf("unable to connect to systemd: %w", err)
	}
	defer sd.Close()

	prop, err := sd.GetUnitPropertyContext(ctx, r.unitName, name)
	if err != nil {
		return "", err
	}
	s, ok := prop.Value.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected %s type %s", name, prop.Value.Signature())
	}
	return s, nil
}

var errJobFailed = errors.New("systemd job did not complete")

func waitJob(ctx context.Context, unitName string, done <-chan string) error {
	select {
	case result := <-done:
		if result != "done" {
			return fmt.Errorf("%w: %s %s", errJobFailed, unitName, result)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ensure SystemdRegistrar implements domain.BootRegistrar.
var _ domain.BootRegistrar = (*SystemdRegistrar)(nil)
