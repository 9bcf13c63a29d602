package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/viik420/bt-mac-changer/internal/domain"
)

const bluetoothDaemon = "bluetoothd"

// ControllerDeps wires the controller to its collaborators.
type ControllerDeps struct {
	Config    domain.ConfigStore
	Backup    domain.BackupStore
	Agent     domain.ArtifactInstaller
	Boot      domain.BootRegistrar
	Lock      domain.Locker
	Adapter   domain.AdapterController
	NewSetter SetterFactory
	Processes domain.ProcessManager
	IsRoot    bool
	Logger    *zap.Logger
}

// Controller implements the operator commands. Every public method takes
// the install-time lock before doing anything else.
type Controller struct {
	deps   ControllerDeps
	logger *zap.Logger
}

// NewController creates a controller.
func NewController(deps ControllerDeps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{deps: deps, logger: logger}
}

// InstallRequest is the input to Install.
type InstallRequest struct {
	Target     string
	Interface  string
	Executable string // Binary copied to the agent path
	VendorTool string
	VendorFlag string
}

// InstallSummary is the composite report printed after install.
type InstallSummary struct {
	Target         domain.Address
	Interface      string
	PreviousBackup domain.Address // Backup on record before this install
	Backup         domain.Address // Backup on record after the agent ran
	Current        domain.Address
	CurrentErr     error
	Registered     bool
	Enabled        bool
	Active         bool
	Provider       string
	Warnings       []error
}

// DryRunPlan describes what Install would do without doing it.
type DryRunPlan struct {
	Target           domain.Address
	Interface        string
	ConfigPath       string
	AgentPath        string
	UnitPath         string
	Provider         string
	Providers        []string
	Current          domain.Address
	CurrentErr       error
	Backup           domain.Address
	BackupPresent    bool
	WouldWriteBackup bool
	AlreadyApplied   bool
	NeedsRoot        bool
}

// RestoreReport is the best-effort outcome of Restore.
type RestoreReport struct {
	Interface string
	Original  domain.Address
	Outcome   domain.SetOutcome
	Provider  string
	Observed  domain.Address
	Matches   bool
	Errors    []error
}

// UninstallOptions controls Uninstall.
type UninstallOptions struct {
	PurgeBackup bool // Also delete the original address record
}

// UninstallReport lists what was removed.
type UninstallReport struct {
	Deregistered  bool
	ConfigRemoved bool
	AgentRemoved  bool
	BackupRemoved bool
	BackupKept    domain.Address
	Errors        []error
}

func (c *Controller) withLock(operation string, fn func() error) error {
	release, err := c.deps.Lock.TryLock(operation)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (c *Controller) requireRoot(operation string) error {
	if !c.deps.IsRoot {
		return fmt.Errorf("%w: %s must be run as root", domain.ErrPermissionDenied, operation)
	}
	return nil
}

// Install writes the configuration, installs the agent, registers it for
// boot and runs it once.
func (c *Controller) Install(ctx context.Context, req InstallRequest) (*InstallSummary, error) {
	var summary *InstallSummary
	err := c.withLock("install", func() error {
		if err := c.requireRoot("install"); err != nil {
			return err
		}

		target, err := domain.ParseAddress(req.Target)
		if err != nil {
			return err
		}
		iface, err := domain.ParseInterface(req.Interface)
		if err != nil {
			return err
		}

		cfg := domain.Config{
			TargetAddress: target,
			InterfaceName: iface,
			VendorTool:    req.VendorTool,
			VendorFlag:    req.VendorFlag,
		}
		// Keep vendor overrides from an earlier install unless replaced.
		if prev, err := c.deps.Config.Load(); err == nil {
			if cfg.VendorTool == "" {
				cfg.VendorTool = prev.VendorTool
			}
			if cfg.VendorFlag == "" {
				cfg.VendorFlag = prev.VendorFlag
			}
		}

		summary = &InstallSummary{Target: target, Interface: iface}
		if prev, ok, err := c.deps.Backup.Read(); err == nil && ok {
			summary.PreviousBackup = prev
		}

		if err := c.deps.Config.Save(cfg); err != nil {
			return fmt.Errorf("failed to write configuration: %w", err)
		}
		c.logger.Info("configuration written",
			zap.String("path", c.deps.Config.GetPath()),
			zap.String("target", target.String()),
			zap.String("interface", iface))

		if err := c.deps.Agent.Install(req.Executable); err != nil {
			return err
		}
		c.logger.Info("agent installed", zap.String("path", c.deps.Agent.GetPath()))

		if err := c.deps.Boot.Register(ctx, c.deps.Agent.GetPath(), c.deps.Config.GetPath()); err != nil {
			return fmt.Errorf("failed to register boot unit: %w", err)
		}
		summary.Registered = true

		if p := c.deps.NewSetter(&cfg).Select(); p != nil {
			summary.Provider = p.Name()
		} else {
			summary.Warnings = append(summary.Warnings, domain.ErrNoCapabilityProvider)
		}

		if err := c.deps.Boot.Trigger(ctx); err != nil {
			c.logger.Warn("immediate agent run failed", zap.Error(err))
			summary.Warnings = append(summary.Warnings, fmt.Errorf("immediate run: %w", err))
		}

		if backup, ok, err := c.deps.Backup.Read(); err == nil && ok {
			summary.Backup = backup
		}
		summary.Current, summary.CurrentErr = c.deps.Adapter.CurrentAddress(ctx, iface)
		summary.Enabled, _ = c.deps.Boot.IsEnabled(ctx)
		summary.Active, _ = c.deps.Boot.IsActive(ctx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// DryRun validates the request and reports what Install would change.
func (c *Controller) DryRun(ctx context.Context, target, iface string) (*DryRunPlan, error) {
	var plan *DryRunPlan
	err := c.withLock("dry-run", func() error {
		addr, err := domain.ParseAddress(target)
		if err != nil {
			return err
		}
		name, err := domain.ParseInterface(iface)
		if err != nil {
			return err
		}

		cfg := &domain.Config{TargetAddress: addr, InterfaceName: name}
		if prev, err := c.deps.Config.Load(); err == nil {
			cfg.VendorTool, cfg.VendorFlag = prev.VendorTool, prev.VendorFlag
		}
		setter := c.deps.NewSetter(cfg)

		plan = &DryRunPlan{
			Target:     addr,
			Interface:  name,
			ConfigPath: c.deps.Config.GetPath(),
			AgentPath:  c.deps.Agent.GetPath(),
			UnitPath:   c.deps.Boot.GetUnitPath(),
			Providers:  setter.Available(),
			NeedsRoot:  !c.deps.IsRoot,
		}
		if p := setter.Select(); p != nil {
			plan.Provider = p.Name()
		}

		plan.Current, plan.CurrentErr = c.deps.Adapter.CurrentAddress(ctx, name)
		plan.AlreadyApplied = plan.CurrentErr == nil && plan.Current.Equal(addr)

		backup, ok, err := c.deps.Backup.Read()
		plan.BackupPresent = ok
		if err == nil && ok {
			plan.Backup = backup
		}
		plan.WouldWriteBackup = !ok && plan.CurrentErr == nil && !plan.AlreadyApplied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// Status recomputes the installation state from scratch.
func (c *Controller) Status(ctx context.Context) (*domain.InstallState, error) {
	var state *domain.InstallState
	err := c.withLock("status", func() error {
		state = c.collectState(ctx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (c *Controller) collectState(ctx context.Context) *domain.InstallState {
	state := &domain.InstallState{
		ConfigPresent: c.deps.Config.Exists(),
		AgentPresent:  c.deps.Agent.Exists(),
		UnitPresent:   c.deps.Boot.IsRegistered(),
		BackupPresent: c.deps.Backup.Exists(),
	}

	iface := domain.DefaultInterface
	var cfg *domain.Config
	if state.ConfigPresent {
		loaded, err := c.deps.Config.Load()
		if err != nil {
			state.ConfigError = err
		} else {
			cfg = loaded
			state.Config = loaded
			iface = loaded.InterfaceName
		}
	}

	if addr, ok, err := c.deps.Backup.Read(); err == nil && ok {
		state.BackupAddress = addr
	}

	if state.UnitPresent {
		state.UnitEnabled, _ = c.deps.Boot.IsEnabled(ctx)
		state.ServiceActive, _ = c.deps.Boot.IsActive(ctx)
	}

	if addr, err := c.deps.Adapter.CurrentAddress(ctx, iface); err == nil {
		state.CurrentAddress = addr
	}

	if c.deps.Processes != nil {
		if pids, err := c.deps.Processes.FindByName(bluetoothDaemon); err == nil {
			state.BluetoothdRunning = len(pids) > 0
		}
	}

	setter := c.deps.NewSetter(cfg)
	state.Providers = setter.Available()
	if p := setter.Select(); p != nil {
		state.Provider = p.Name()
	}
	return state
}

// Restore puts the recorded original address back on the adapter.
// Best-effort: the result is reported, not verified strictly.
func (c *Controller) Restore(ctx context.Context, iface string) (*RestoreReport, error) {
	var report *RestoreReport
	err := c.withLock("restore", func() error {
		if err := c.requireRoot("restore"); err != nil {
			return err
		}

		original, ok, err := c.deps.Backup.Read()
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNoBackup
		}

		cfg, _ := c.deps.Config.Load()
		name := iface
		if name == "" && cfg != nil {
			name = cfg.InterfaceName
		}
		name, err = domain.ParseInterface(name)
		if err != nil {
			return err
		}

		report = &RestoreReport{Interface: name, Original: original}
		seq := runAddressSequence(ctx, c.deps.Adapter, c.deps.NewSetter(cfg), name, original,
			c.logger, func(domain.AgentState) {})
		report.Outcome = seq.Set.Outcome
		report.Provider = seq.Set.Provider
		report.Errors = seq.Errors
		if seq.Set.Outcome == domain.OutcomeUnavailable {
			report.Errors = append(report.Errors, domain.ErrNoCapabilityProvider)
			return nil
		}

		observed, err := c.deps.Adapter.CurrentAddress(ctx, name)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("read back: %w", err))
		}
		report.Observed = observed
		report.Matches = err == nil && observed.Equal(original)
		c.logger.Info("restore finished",
			zap.String("original", original.String()),
			zap.String("observed", observed.String()),
			zap.String("provider", report.Provider))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Uninstall removes the boot unit, configuration and agent. The original
// address record survives unless opts.PurgeBackup is set.
func (c *Controller) Uninstall(ctx context.Context, opts UninstallOptions) (*UninstallReport, error) {
	var report *UninstallReport
	err := c.withLock("uninstall", func() error {
		if err := c.requireRoot("uninstall"); err != nil {
			return err
		}

		report = &UninstallReport{}

		if err := c.deps.Boot.Deregister(ctx); err != nil {
			c.logger.Warn("failed to deregister boot unit", zap.Error(err))
			report.Errors = append(report.Errors, err)
		}
		report.Deregistered = !c.deps.Boot.IsRegistered()

		if err := c.deps.Config.Remove(); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("remove configuration: %w", err))
		}
		report.ConfigRemoved = !c.deps.Config.Exists()

		if err := c.deps.Agent.Remove(); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("remove agent: %w", err))
		}
		report.AgentRemoved = !c.deps.Agent.Exists()

		if opts.PurgeBackup {
			if err := c.deps.Backup.Remove(); err != nil {
				report.Errors = append(report.Errors, fmt.Errorf("remove backup: %w", err))
			}
			report.BackupRemoved = !c.deps.Backup.Exists()
		} else if addr, ok, err := c.deps.Backup.Read(); err == nil && ok {
			report.BackupKept = addr
		}

		if !report.ConfigRemoved || !report.AgentRemoved || !report.Deregistered {
			return fmt.Errorf("uninstall incomplete: %w", errors.Join(report.Errors...))
		}
		return nil
	})
	return report, err
}
