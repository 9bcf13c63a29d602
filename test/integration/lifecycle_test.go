//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/viik420/bt-mac-changer/internal/domain"
	"github.com/viik420/bt-mac-changer/internal/infra"
	"github.com/viik420/bt-mac-changer/internal/usecase"
	"github.com/viik420/bt-mac-changer/test/fixtures"
)

const (
	factoryAddress = "00:1A:7D:DA:71:13"
	spoofAddress   = "AA:BB:CC:DD:EE:FF"
)

// bootRegistrar stands in for systemd: it writes the real unit file and
// runs the agent in-process when triggered.
type bootRegistrar struct {
	unitPath string
	runAgent func(ctx context.Context) error
	runs     int
}

func (b *bootRegistrar) Register(ctx context.Context, agentPath, configPath string) error {
	content, err := infra.RenderUnit(agentPath, configPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(b.unitPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(b.unitPath, content, 0644)
}

func (b *bootRegistrar) Trigger(ctx context.Context) error {
	b.runs++
	return b.runAgent(ctx)
}

func (b *bootRegistrar) Deregister(ctx context.Context) error {
	if err := os.Remove(b.unitPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (b *bootRegistrar) IsRegistered() bool {
	_, err := os.Stat(b.unitPath)
	return err == nil
}

func (b *bootRegistrar) IsEnabled(ctx context.Context) (bool, error) { return b.IsRegistered(), nil }
func (b *bootRegistrar) IsActive(ctx context.Context) (bool, error)  { return b.runs > 0, nil }
func (b *bootRegistrar) GetUnitPath() string                         { return b.unitPath }

var _ = Describe("Install lifecycle", func() {
	var (
		ctx        context.Context
		tmpDir     string
		oldPath    string
		adapter    *fixtures.FakeBluetooth
		layout     *infra.Layout
		executable string
		registrar  *bootRegistrar
		controller *usecase.Controller
		newAgent   func(mode usecase.Mode) *usecase.Agent
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		tmpDir, err = os.MkdirTemp("", "bt-mac-changer-integration-*")
		Expect(err).NotTo(HaveOccurred())

		adapter, err = fixtures.NewFakeBluetooth(filepath.Join(tmpDir, "adapter"), factoryAddress)
		Expect(err).NotTo(HaveOccurred())
		Expect(adapter.Install(fixtures.ToolHciconfig, fixtures.ToolBtmgmt)).To(Succeed())

		oldPath = os.Getenv("PATH")
		Expect(os.Setenv("PATH", adapter.BinDir)).To(Succeed())

		executable = filepath.Join(tmpDir, "bt-mac-changer")
		Expect(os.WriteFile(executable, []byte("#!/bin/sh\nexit 0\n"), 0755)).To(Succeed())

		layout = infra.LayoutWithRoot(filepath.Join(tmpDir, "root"))
		logger := zap.NewNop()
		runner := infra.NewExecRunner()
		hciconfig := infra.NewHciconfigAdapter(runner)
		setters := func(cfg *domain.Config) domain.AddressSetter {
			return infra.NewProviderChain(runner, cfg, logger)
		}

		newAgent = func(mode usecase.Mode) *usecase.Agent {
			return usecase.NewAgent(
				infra.NewFileConfigStore(layout.ConfigPath),
				infra.NewFileBackupStore(layout.BackupDir),
				hciconfig, setters, mode, logger)
		}

		registrar = &bootRegistrar{
			unitPath: filepath.Join(layout.UnitDir, infra.UnitName),
			runAgent: func(ctx context.Context) error {
				_, err := newAgent(usecase.ModeBestEffort).Apply(ctx)
				return err
			},
		}

		controller = usecase.NewController(usecase.ControllerDeps{
			Config:    infra.NewFileConfigStore(layout.ConfigPath),
			Backup:    infra.NewFileBackupStore(layout.BackupDir),
			Agent:     infra.NewAgentInstaller(layout.AgentPath),
			Boot:      registrar,
			Lock:      infra.NewFileLock(layout.LockPath, nil),
			Adapter:   hciconfig,
			NewSetter: setters,
			IsRoot:    true,
			Logger:    logger,
		})
	})

	AfterEach(func() {
		os.Setenv("PATH", oldPath)
		os.RemoveAll(tmpDir)
	})

	install := func(addr string) *usecase.InstallSummary {
		summary, err := controller.Install(ctx, usecase.InstallRequest{Target: addr, Executable: executable})
		Expect(err).NotTo(HaveOccurred())
		return summary
	}

	Describe("Install", func() {
		It("applies the address and records the original", func() {
			summary := install("aa:bb:cc:dd:ee:ff")

			Expect(adapter.Address()).To(Equal(spoofAddress))
			Expect(adapter.Powered()).To(BeTrue())
			Expect(summary.Backup).To(Equal(domain.Address(factoryAddress)))
			Expect(summary.Current).To(Equal(domain.Address(spoofAddress)))
			Expect(summary.Provider).To(Equal("btmgmt"))

			Expect(layout.ConfigPath).To(BeAnExistingFile())
			Expect(layout.AgentPath).To(BeAnExistingFile())
			unit, err := os.ReadFile(registrar.unitPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(unit)).To(ContainSubstring(layout.AgentPath + " apply --boot --config " + layout.ConfigPath))
		})

		It("is idempotent and never rewrites the backup", func() {
			install(spoofAddress)
			first, err := os.ReadFile(layout.ConfigPath)
			Expect(err).NotTo(HaveOccurred())

			install(spoofAddress)
			second, err := os.ReadFile(layout.ConfigPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))

			backup, ok, err := infra.NewFileBackupStore(layout.BackupDir).Read()
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(backup).To(Equal(domain.Address(factoryAddress)))
		})

		It("uses public-addr when static-addr is rejected", func() {
			Expect(adapter.RejectStatic()).To(Succeed())
			install(spoofAddress)
			Expect(adapter.Address()).To(Equal(spoofAddress))
		})

		It("prefers bdaddr when installed", func() {
			Expect(adapter.Install(fixtures.ToolBdaddr)).To(Succeed())
			summary := install(spoofAddress)
			Expect(summary.Provider).To(Equal("bdaddr"))
			Expect(adapter.Address()).To(Equal(spoofAddress))
		})

		It("rejects malformed addresses without writing anything", func() {
			_, err := controller.Install(ctx, usecase.InstallRequest{Target: "AA:BB:CC:DD:EE:GG", Executable: executable})
			Expect(err).To(MatchError(domain.ErrInvalidAddress))
			Expect(layout.ConfigPath).NotTo(BeAnExistingFile())
			Expect(adapter.Address()).To(Equal(factoryAddress))
		})

		It("fails fast while another operation holds the lock", func() {
			release, err := infra.NewFileLock(layout.LockPath, nil).TryLock("install")
			Expect(err).NotTo(HaveOccurred())
			defer release()

			_, err = controller.Install(ctx, usecase.InstallRequest{Target: spoofAddress, Executable: executable})
			Expect(err).To(MatchError(domain.ErrConcurrentOperation))
			Expect(layout.ConfigPath).NotTo(BeAnExistingFile())
		})
	})

	Describe("Agent", func() {
		It("reports a mismatch when only the vendor tool is present", func() {
			Expect(adapter.Uninstall(fixtures.ToolBtmgmt)).To(Succeed())
			Expect(adapter.Install(fixtures.ToolSpooftooph)).To(Succeed())
			install(spoofAddress)

			Expect(adapter.Address()).To(Equal(fixtures.VendorAddress))

			report, err := newAgent(usecase.ModeStrict).Apply(ctx)
			Expect(err).To(MatchError(domain.ErrVerificationMismatch))
			Expect(report.State).To(Equal(domain.StateMismatch))
			Expect(report.Provider).To(Equal(fixtures.ToolSpooftooph))
		})

		It("aborts without a provider and leaves the adapter up", func() {
			Expect(adapter.Uninstall(fixtures.ToolBtmgmt)).To(Succeed())
			summary := install(spoofAddress)
			Expect(summary.Warnings).NotTo(BeEmpty())

			report, err := newAgent(usecase.ModeBestEffort).Apply(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.State).To(Equal(domain.StateAborted))
			Expect(adapter.Powered()).To(BeTrue())
			Expect(adapter.Address()).To(Equal(factoryAddress))
		})

		It("aborts quietly on a missing configuration", func() {
			report, err := newAgent(usecase.ModeBestEffort).Apply(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.State).To(Equal(domain.StateAborted))
			Expect(adapter.Address()).To(Equal(factoryAddress))
		})
	})

	Describe("Restore and uninstall", func() {
		It("restores the original address", func() {
			install(spoofAddress)

			report, err := controller.Restore(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Matches).To(BeTrue())
			Expect(adapter.Address()).To(Equal(factoryAddress))
		})

		It("fails restore without a backup and leaves the adapter alone", func() {
			Expect(adapter.SetAddress(spoofAddress)).To(Succeed())

			_, err := controller.Restore(ctx, "")
			Expect(err).To(MatchError(domain.ErrNoBackup))
			Expect(adapter.Address()).To(Equal(spoofAddress))
			Expect(adapter.Powered()).To(BeTrue())
		})

		It("keeps the backup on uninstall", func() {
			install(spoofAddress)

			report, err := controller.Uninstall(ctx, usecase.UninstallOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.BackupKept).To(Equal(domain.Address(factoryAddress)))

			Expect(layout.ConfigPath).NotTo(BeAnExistingFile())
			Expect(layout.AgentPath).NotTo(BeAnExistingFile())
			Expect(registrar.unitPath).NotTo(BeAnExistingFile())
			Expect(filepath.Join(layout.BackupDir, "original_address")).To(BeAnExistingFile())

			state, err := controller.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Installed()).To(BeFalse())
			Expect(state.Partial()).To(BeFalse())
			Expect(state.BackupAddress).To(Equal(domain.Address(factoryAddress)))
		})

		It("purges the backup only when asked", func() {
			install(spoofAddress)

			_, err := controller.Uninstall(ctx, usecase.UninstallOptions{PurgeBackup: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.Join(layout.BackupDir, "original_address")).NotTo(BeAnExistingFile())
		})
	})
})
