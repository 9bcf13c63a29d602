package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/viik420/bt-mac-changer/internal/domain"
)

// Agent performs the boot-time address change:
//
//	start → config_loaded → backup_ensured → adapter_down →
//	address_set_attempted → adapter_up → verified → applied | mismatch
//
// with aborted reachable from config_loaded (bad config) and adapter_up
// (no provider installed).
type Agent struct {
	configStore domain.ConfigStore
	backupStore domain.BackupStore
	adapter     domain.AdapterController
	newSetter   SetterFactory
	mode        Mode
	logger      *zap.Logger
}

// NewAgent creates a runtime agent.
func NewAgent(
	cs domain.ConfigStore,
	bs domain.BackupStore,
	adapter domain.AdapterController,
	newSetter SetterFactory,
	mode Mode,
	logger *zap.Logger,
) *Agent {
	return &Agent{
		configStore: cs,
		backupStore: bs,
		adapter:     adapter,
		newSetter:   newSetter,
		mode:        mode,
		logger:      logger,
	}
}

// Apply runs the sequence once. The report is always returned; the error
// is non-nil only in strict mode for aborted or mismatched runs.
func (a *Agent) Apply(ctx context.Context) (*domain.ApplyReport, error) {
	start := time.Now()
	report := &domain.ApplyReport{ExecutedAt: start}
	defer func() {
		report.DurationMs = time.Since(start).Milliseconds()
	}()

	a.transition(report, domain.StateStart)

	cfg, err := a.configStore.Load()
	if err != nil {
		a.logger.Warn("configuration missing or invalid, nothing to apply",
			zap.String("config", a.configStore.GetPath()),
			zap.Error(err))
		a.abort(report, err)
		return report, a.mode.Escalate(report)
	}
	report.Target = cfg.TargetAddress
	report.Interface = cfg.InterfaceName
	a.transition(report, domain.StateConfigLoaded)

	a.ensureBackup(ctx, cfg, report)
	a.transition(report, domain.StateBackupEnsured)

	seq := runAddressSequence(ctx, a.adapter, a.newSetter(cfg), cfg.InterfaceName, cfg.TargetAddress,
		a.logger, func(s domain.AgentState) { a.transition(report, s) })
	report.Provider = seq.Set.Provider
	report.Errors = append(report.Errors, seq.Errors...)

	if seq.Set.Outcome == domain.OutcomeUnavailable {
		a.logger.Warn("no address-setting tool installed, install bdaddr, btmgmt or the vendor tool",
			zap.String("interface", cfg.InterfaceName))
		a.abort(report, domain.ErrNoCapabilityProvider)
		return report, a.mode.Escalate(report)
	}

	observed, err := a.adapter.CurrentAddress(ctx, cfg.InterfaceName)
	if err != nil {
		a.logger.Warn("failed to read adapter address for verification",
			zap.String("interface", cfg.InterfaceName),
			zap.Error(err))
		report.Errors = append(report.Errors, fmt.Errorf("verify: %w", err))
	}
	report.Observed = observed
	a.transition(report, domain.StateVerified)

	if err == nil && observed.Equal(cfg.TargetAddress) {
		a.transition(report, domain.StateApplied)
		a.logger.Info("adapter address applied",
			zap.String("interface", cfg.InterfaceName),
			zap.String("address", observed.String()),
			zap.String("provider", report.Provider))
	} else {
		a.transition(report, domain.StateMismatch)
		a.logger.Warn("adapter address does not match target",
			zap.String("interface", cfg.InterfaceName),
			zap.String("target", cfg.TargetAddress.String()),
			zap.String("observed", observed.String()),
			zap.String("provider", report.Provider))
	}

	return report, a.mode.Escalate(report)
}

// ensureBackup records the adapter's current address as the original the
// first time the agent runs. Failures are logged and the apply goes on.
func (a *Agent) ensureBackup(ctx context.Context, cfg *domain.Config, report *domain.ApplyReport) {
	existing, ok, err := a.backupStore.Read()
	if err != nil {
		a.logger.Warn("backup record unreadable, leaving it untouched",
			zap.String("path", a.backupStore.GetPath()),
			zap.Error(err))
		report.Errors = append(report.Errors, fmt.Errorf("backup: %w", err))
		return
	}
	if ok {
		report.Backup = existing
		return
	}

	current, err := a.adapter.CurrentAddress(ctx, cfg.InterfaceName)
	if err != nil {
		a.logger.Warn("could not read current address, continuing without backup",
			zap.String("interface", cfg.InterfaceName),
			zap.Error(err))
		report.Errors = append(report.Errors, fmt.Errorf("backup: %w", err))
		return
	}

	// The adapter already carries the target; that is not the factory address.
	if current.Equal(cfg.TargetAddress) {
		a.logger.Warn("adapter already reports the target address, not recording it as original",
			zap.String("address", current.String()))
		return
	}

	result, err := a.backupStore.WriteIfAbsent(current)
	if err != nil {
		a.logger.Warn("failed to save original address",
			zap.String("path", a.backupStore.GetPath()),
			zap.Error(err))
		report.Errors = append(report.Errors, fmt.Errorf("backup: %w", err))
		return
	}

	switch result {
	case domain.BackupWritten:
		report.Backup = current
		report.BackupWritten = true
		a.logger.Info("saved original address",
			zap.String("address", current.String()),
			zap.String("path", a.backupStore.GetPath()))
	case domain.BackupAlreadyPresent:
		// Another agent run got there first; its value wins.
		if existing, ok, err := a.backupStore.Read(); err == nil && ok {
			report.Backup = existing
		}
	}
}

func (a *Agent) transition(report *domain.ApplyReport, state domain.AgentState) {
	report.State = state
	report.Path = append(report.Path, state)
	a.logger.Debug("agent state", zap.String("state", string(state)))
}

func (a *Agent) abort(report *domain.ApplyReport, reason error) {
	report.AbortErr = reason
	a.transition(report, domain.StateAborted)
}
