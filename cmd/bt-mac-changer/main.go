// Package main is the CLI entry point for bt-mac-changer.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/viik420/bt-mac-changer/internal/domain"
	"github.com/viik420/bt-mac-changer/internal/infra"
	"github.com/viik420/bt-mac-changer/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "1.0.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bt-mac-changer",
	Short: "Persistent Bluetooth adapter address changer",
	Long: `bt-mac-changer sets a Bluetooth adapter's hardware address at every boot.

It installs a small agent and a systemd unit that runs it once per boot,
records the adapter's original address so it can be restored, and
provides commands to inspect, restore and remove the change.`,
	Version:      Version,
	SilenceUsage: true,
}

var installCmd = &cobra.Command{
	Use:   "install [ADDRESS]",
	Short: "Install the boot-time address change",
	Long: `Writes the configuration, installs the agent, registers the systemd unit
and runs the agent once. Running install again replaces the target address;
the original address recorded on the first run is kept.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInstall,
}

var dryRunCmd = &cobra.Command{
	Use:   "dry-run ADDRESS",
	Short: "Show what install would do without changing anything",
	Args:  cobra.ExactArgs(1),
	RunE:  runDryRun,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show installation and adapter state",
	Long:  `Recomputes the state of every installed component. Use --json for machine-readable output.`,
	RunE:  runStatus,
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Put the original adapter address back",
	Long: `Applies the recorded original address once. The boot unit stays installed;
run uninstall to stop the change from being reapplied at the next boot.

The original is recorded on the first agent run. If the adapter already
reported the target address then, nothing is recorded and restore fails
until a backup exists.`,
	RunE: runRestore,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the unit, agent and configuration",
	Long: `Stops and removes the systemd unit, the agent and the configuration.
The original address record is kept unless --purge-backup is given.`,
	RunE: runUninstall,
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the configured address now (this is what the boot unit runs)",
	Long: `Runs the agent once against the configuration file.

With --boot every outcome exits zero so a bad configuration or a missing
tool never fails the boot. With --strict an aborted or unverified change
exits non-zero.`,
	RunE: runApply,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath    string
	verbose       bool
	ifaceName     string
	interactive   bool
	vendorTool    string
	vendorFlag    string
	jsonOutput    bool
	purgeBackup   bool
	bootMode      bool
	strictMode    bool
	versionAsJSON bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default /etc/bt-mac-changer/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	installCmd.Flags().StringVarP(&ifaceName, "interface", "i", "", "Adapter interface (default hci0)")
	installCmd.Flags().BoolVar(&interactive, "interactive", false, "Prompt for the address")
	installCmd.Flags().StringVar(&vendorTool, "vendor-tool", "", "Vendor tool used when bdaddr and btmgmt are missing")
	installCmd.Flags().StringVar(&vendorFlag, "vendor-flag", "", "Flag passed to the vendor tool")

	dryRunCmd.Flags().StringVarP(&ifaceName, "interface", "i", "", "Adapter interface (default hci0)")
	restoreCmd.Flags().StringVarP(&ifaceName, "interface", "i", "", "Adapter interface (default from configuration)")

	statusCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output state as JSON")
	uninstallCmd.Flags().BoolVar(&purgeBackup, "purge-backup", false, "Also delete the original address record")

	applyCmd.Flags().BoolVar(&bootMode, "boot", false, "Boot mode: never exit non-zero")
	applyCmd.Flags().BoolVar(&strictMode, "strict", false, "Exit non-zero unless the address was verified")
	applyCmd.MarkFlagsMutuallyExclusive("boot", "strict")

	versionCmd.Flags().BoolVar(&versionAsJSON, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(dryRunCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(versionCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	var address string
	switch {
	case len(args) == 1:
		address = args[0]
	case interactive:
		a, err := promptAddress()
		if err != nil {
			return err
		}
		address = a
	default:
		return errors.New("an address is required (or use --interactive)")
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	logger := newLogger(verbose)
	defer func() { _ = logger.Sync() }()

	layout := infra.DetectLayout().WithConfigPath(configPath)
	controller := newController(layout, logger)

	summary, err := controller.Install(cmd.Context(), usecase.InstallRequest{
		Target:     address,
		Interface:  ifaceName,
		Executable: exe,
		VendorTool: vendorTool,
		VendorFlag: vendorFlag,
	})
	if err != nil {
		return explain(err)
	}
	printInstallSummary(os.Stdout, summary, layout)
	return nil
}

// promptAddress reads an address from the terminal until one parses.
func promptAddress() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("--interactive requires a terminal on stdin")
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Target Bluetooth address (XX:XX:XX:XX:XX:XX): ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read address: %w", err)
		}
		line = strings.TrimSpace(line)
		if _, err := domain.ParseAddress(line); err != nil {
			fmt.Printf("  %v\n", err)
			continue
		}
		return line, nil
	}
}

func runDryRun(cmd *cobra.Command, args []string) error {
	logger := newLogger(verbose)
	defer func() { _ = logger.Sync() }()

	layout := infra.DetectLayout().WithConfigPath(configPath)
	plan, err := newController(layout, logger).DryRun(cmd.Context(), args[0], ifaceName)
	if err != nil {
		return explain(err)
	}
	printDryRun(os.Stdout, plan)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := newLogger(verbose)
	defer func() { _ = logger.Sync() }()

	layout := infra.DetectLayout().WithConfigPath(configPath)
	state, err := newController(layout, logger).Status(cmd.Context())
	if err != nil {
		return explain(err)
	}
	if jsonOutput {
		return printStatusJSON(os.Stdout, state)
	}
	printStatus(os.Stdout, state, layout)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	logger := newLogger(verbose)
	defer func() { _ = logger.Sync() }()

	layout := infra.DetectLayout().WithConfigPath(configPath)
	report, err := newController(layout, logger).Restore(cmd.Context(), ifaceName)
	if err != nil {
		return explain(err)
	}
	printRestore(os.Stdout, report)
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	logger := newLogger(verbose)
	defer func() { _ = logger.Sync() }()

	layout := infra.DetectLayout().WithConfigPath(configPath)
	report, err := newController(layout, logger).Uninstall(cmd.Context(), usecase.UninstallOptions{
		PurgeBackup: purgeBackup,
	})
	if report != nil {
		printUninstall(os.Stdout, report, layout)
	}
	if err != nil {
		return explain(err)
	}
	return nil
}

func runApply(cmd *cobra.Command, args []string) error {
	// The agent logs at info so every boot leaves a trace in the journal.
	logger := newAgentLogger(verbose)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mode := usecase.ModeBestEffort
	if strictMode {
		mode = usecase.ModeStrict
	}

	layout := infra.DetectLayout().WithConfigPath(configPath)
	report, err := newAgent(layout, mode, logger).Apply(ctx)

	if bootMode {
		return nil
	}
	printApply(os.Stdout, report)
	return err
}

func runVersion(cmd *cobra.Command, args []string) {
	if versionAsJSON {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("bt-mac-changer %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

// explain adds an operator hint to well-known controller errors.
func explain(err error) error {
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		return fmt.Errorf("%w\nRun with sudo", err)
	case errors.Is(err, domain.ErrConcurrentOperation):
		return fmt.Errorf("%w\nWait for the other command to finish and retry", err)
	case errors.Is(err, domain.ErrNoBackup):
		return fmt.Errorf("%w\nThe agent records the original address on its first run", err)
	}
	return err
}
