package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/viik420/bt-mac-changer/internal/domain"
	"github.com/viik420/bt-mac-changer/internal/infra"
	"github.com/viik420/bt-mac-changer/internal/usecase"
)

// newLogger returns the controller logger: console on stderr, warnings only
// unless verbose. Reports go to stdout separately.
func newLogger(verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return buildLogger(level)
}

// newAgentLogger returns the agent logger. stderr ends up in the journal
// when run from the unit.
func newAgentLogger(verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return buildLogger(level)
}

func buildLogger(level zapcore.Level) *zap.Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.Encoding = "console"
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true

	logger, err := config.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}

// setterFactory builds a provider chain per configuration so the vendor
// tool override in the config file takes effect.
func setterFactory(runner infra.CommandRunner, logger *zap.Logger) usecase.SetterFactory {
	return func(cfg *domain.Config) domain.AddressSetter {
		return infra.NewProviderChain(runner, cfg, logger)
	}
}

func newController(layout *infra.Layout, logger *zap.Logger) *usecase.Controller {
	runner := infra.NewExecRunner()
	pm := infra.NewProcessManager()

	return usecase.NewController(usecase.ControllerDeps{
		Config:    infra.NewFileConfigStore(layout.ConfigPath),
		Backup:    infra.NewFileBackupStore(layout.BackupDir),
		Agent:     infra.NewAgentInstaller(layout.AgentPath),
		Boot:      infra.NewSystemdRegistrar(layout.UnitDir),
		Lock:      infra.NewFileLock(layout.LockPath, pm),
		Adapter:   infra.NewAdapterController(runner),
		NewSetter: setterFactory(runner, logger),
		Processes: pm,
		IsRoot:    layout.IsRoot,
		Logger:    logger,
	})
}

func newAgent(layout *infra.Layout, mode usecase.Mode, logger *zap.Logger) *usecase.Agent {
	runner := infra.NewExecRunner()

	return usecase.NewAgent(
		infra.NewFileConfigStore(layout.ConfigPath),
		infra.NewFileBackupStore(layout.BackupDir),
		infra.NewAdapterController(runner),
		setterFactory(runner, logger),
		mode,
		logger,
	)
}
