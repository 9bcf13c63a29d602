package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/viik420/bt-mac-changer/internal/domain"
	"github.com/viik420/bt-mac-changer/internal/infra"
	"github.com/viik420/bt-mac-changer/internal/usecase"
)

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orNone(a domain.Address) string {
	if a.IsZero() {
		return "(none)"
	}
	return a.String()
}

func printInstallSummary(w io.Writer, s *usecase.InstallSummary, layout *infra.Layout) {
	fmt.Fprintln(w, "\n=== bt-mac-changer Installed ===")
	fmt.Fprintf(w, "Interface: %s\n", s.Interface)
	fmt.Fprintf(w, "Target address: %s\n", s.Target)
	if s.CurrentErr != nil {
		fmt.Fprintf(w, "Current address: unknown (%v)\n", s.CurrentErr)
	} else {
		fmt.Fprintf(w, "Current address: %s\n", orNone(s.Current))
	}
	fmt.Fprintf(w, "Original address: %s\n", orNone(s.Backup))
	if !s.PreviousBackup.IsZero() {
		fmt.Fprintln(w, "  (recorded by an earlier install, kept)")
	}
	if s.Provider != "" {
		fmt.Fprintf(w, "Tool: %s\n", s.Provider)
	}

	fmt.Fprintf(w, "\nConfig: %s\n", layout.ConfigPath)
	fmt.Fprintf(w, "Agent: %s\n", layout.AgentPath)
	fmt.Fprintf(w, "Unit: %s (enabled: %s, active: %s)\n",
		infra.UnitName, yesNo(s.Enabled), yesNo(s.Active))

	switch {
	case s.CurrentErr == nil && s.Current.Equal(s.Target):
		fmt.Fprintln(w, "\nStatus: APPLIED")
	default:
		fmt.Fprintln(w, "\nStatus: INSTALLED (address not confirmed, see 'journalctl -u "+infra.UnitName+"')")
	}

	if len(s.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, warn := range s.Warnings {
			fmt.Fprintf(w, "  - %v\n", warn)
		}
		fmt.Fprintln(w, "Install bdaddr (bluez-utils) or btmgmt (bluez) if no tool was found.")
	}
	fmt.Fprintln(w, "================================")
}

func printDryRun(w io.Writer, p *usecase.DryRunPlan) {
	fmt.Fprintln(w, "\n=== Dry Run (nothing changed) ===")
	fmt.Fprintf(w, "Interface: %s\n", p.Interface)
	fmt.Fprintf(w, "Target address: %s\n", p.Target)
	if p.CurrentErr != nil {
		fmt.Fprintf(w, "Current address: unknown (%v)\n", p.CurrentErr)
	} else {
		fmt.Fprintf(w, "Current address: %s\n", orNone(p.Current))
	}

	fmt.Fprintln(w, "\nWould write:")
	fmt.Fprintf(w, "  - %s\n", p.ConfigPath)
	fmt.Fprintf(w, "  - %s\n", p.AgentPath)
	fmt.Fprintf(w, "  - %s\n", p.UnitPath)

	switch {
	case p.BackupPresent:
		fmt.Fprintf(w, "\nOriginal address already recorded: %s\n", orNone(p.Backup))
	case p.WouldWriteBackup:
		fmt.Fprintf(w, "\nWould record original address: %s\n", p.Current)
	default:
		fmt.Fprintln(w, "\nOriginal address would not be recorded (current address unknown or already the target)")
	}

	if p.Provider != "" {
		fmt.Fprintf(w, "Tool that would run: %s\n", p.Provider)
	} else {
		fmt.Fprintln(w, "Tool that would run: NONE (install bdaddr or btmgmt)")
	}
	if p.AlreadyApplied {
		fmt.Fprintln(w, "Adapter already reports the target address.")
	}
	if p.NeedsRoot {
		fmt.Fprintln(w, "\nNote: install requires root. Run with sudo.")
	}
	fmt.Fprintln(w, "=================================")
}

func printStatus(w io.Writer, s *domain.InstallState, layout *infra.Layout) {
	fmt.Fprintln(w, "\n=== bt-mac-changer Status ===")

	switch {
	case s.Installed():
		fmt.Fprintln(w, "Status: INSTALLED")
	case s.Partial():
		fmt.Fprintln(w, "Status: PARTIAL (run install again or uninstall)")
	default:
		fmt.Fprintln(w, "Status: NOT INSTALLED")
	}

	fmt.Fprintf(w, "\nConfig: %s (%s)\n", layout.ConfigPath, present(s.ConfigPresent))
	if s.ConfigError != nil {
		fmt.Fprintf(w, "  invalid: %v\n", s.ConfigError)
	}
	if s.Config != nil {
		fmt.Fprintf(w, "  target: %s\n", s.Config.TargetAddress)
		fmt.Fprintf(w, "  interface: %s\n", s.Config.InterfaceName)
	}
	fmt.Fprintf(w, "Agent: %s (%s)\n", layout.AgentPath, present(s.AgentPresent))
	fmt.Fprintf(w, "Unit: %s (%s, enabled: %s, active: %s)\n",
		infra.UnitName, present(s.UnitPresent), yesNo(s.UnitEnabled), yesNo(s.ServiceActive))

	fmt.Fprintf(w, "\nCurrent address: %s\n", orNone(s.CurrentAddress))
	fmt.Fprintf(w, "Original address: %s\n", orNone(s.BackupAddress))
	if s.Config != nil && !s.CurrentAddress.IsZero() {
		if s.CurrentAddress.Equal(s.Config.TargetAddress) {
			fmt.Fprintln(w, "Address: APPLIED")
		} else {
			fmt.Fprintln(w, "Address: NOT APPLIED")
		}
	}

	fmt.Fprintf(w, "\nbluetoothd running: %s\n", yesNo(s.BluetoothdRunning))
	if len(s.Providers) > 0 {
		fmt.Fprintf(w, "Tools: %s (using %s)\n", strings.Join(s.Providers, ", "), s.Provider)
	} else {
		fmt.Fprintln(w, "Tools: NONE (install bdaddr or btmgmt)")
	}
	fmt.Fprintln(w, "=============================")
}

func present(b bool) string {
	if b {
		return "present"
	}
	return "missing"
}

// statusJSON is the machine-readable form of domain.InstallState.
type statusJSON struct {
	Installed         bool     `json:"installed"`
	Partial           bool     `json:"partial"`
	ConfigPresent     bool     `json:"config_present"`
	ConfigError       string   `json:"config_error,omitempty"`
	TargetAddress     string   `json:"target_address,omitempty"`
	InterfaceName     string   `json:"interface_name,omitempty"`
	AgentPresent      bool     `json:"agent_present"`
	UnitPresent       bool     `json:"unit_present"`
	UnitEnabled       bool     `json:"unit_enabled"`
	ServiceActive     bool     `json:"service_active"`
	BackupPresent     bool     `json:"backup_present"`
	BackupAddress     string   `json:"backup_address,omitempty"`
	CurrentAddress    string   `json:"current_address,omitempty"`
	BluetoothdRunning bool     `json:"bluetoothd_running"`
	Provider          string   `json:"provider,omitempty"`
	Providers         []string `json:"providers"`
}

func newStatusJSON(s *domain.InstallState) statusJSON {
	out := statusJSON{
		Installed:         s.Installed(),
		Partial:           s.Partial(),
		ConfigPresent:     s.ConfigPresent,
		AgentPresent:      s.AgentPresent,
		UnitPresent:       s.UnitPresent,
		UnitEnabled:       s.UnitEnabled,
		ServiceActive:     s.ServiceActive,
		BackupPresent:     s.BackupPresent,
		BackupAddress:     s.BackupAddress.String(),
		CurrentAddress:    s.CurrentAddress.String(),
		BluetoothdRunning: s.BluetoothdRunning,
		Provider:          s.Provider,
		Providers:         s.Providers,
	}
	if out.Providers == nil {
		out.Providers = []string{}
	}
	if s.ConfigError != nil {
		out.ConfigError = s.ConfigError.Error()
	}
	if s.Config != nil {
		out.TargetAddress = s.Config.TargetAddress.String()
		out.InterfaceName = s.Config.InterfaceName
	}
	return out
}

func printStatusJSON(w io.Writer, s *domain.InstallState) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newStatusJSON(s))
}

func printRestore(w io.Writer, r *usecase.RestoreReport) {
	fmt.Fprintln(w, "\n=== Restore ===")
	fmt.Fprintf(w, "Interface: %s\n", r.Interface)
	fmt.Fprintf(w, "Original address: %s\n", r.Original)

	if r.Outcome == domain.OutcomeUnavailable {
		fmt.Fprintln(w, "Result: NOT ATTEMPTED (no address-setting tool installed)")
	} else {
		fmt.Fprintf(w, "Tool: %s\n", r.Provider)
		fmt.Fprintf(w, "Adapter now reports: %s\n", orNone(r.Observed))
		if r.Matches {
			fmt.Fprintln(w, "Result: RESTORED")
		} else {
			fmt.Fprintln(w, "Result: ATTEMPTED (adapter does not report the original address)")
		}
	}

	for _, err := range r.Errors {
		fmt.Fprintf(w, "  - %v\n", err)
	}
	fmt.Fprintln(w, "\nThe boot unit is still installed; run 'uninstall' to keep the original address after reboot.")
	fmt.Fprintln(w, "===============")
}

func printUninstall(w io.Writer, r *usecase.UninstallReport, layout *infra.Layout) {
	fmt.Fprintln(w, "\n=== bt-mac-changer Uninstalled ===")
	fmt.Fprintf(w, "Unit removed: %s\n", yesNo(r.Deregistered))
	fmt.Fprintf(w, "Config removed: %s\n", yesNo(r.ConfigRemoved))
	fmt.Fprintf(w, "Agent removed: %s\n", yesNo(r.AgentRemoved))

	switch {
	case r.BackupRemoved:
		fmt.Fprintln(w, "Original address record: deleted")
	case !r.BackupKept.IsZero():
		fmt.Fprintf(w, "Original address record: kept (%s)\n", r.BackupKept)
		fmt.Fprintf(w, "  %s\n", layout.BackupDir)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  - %v\n", err)
		}
	}
	fmt.Fprintln(w, "==================================")
}

func printApply(w io.Writer, r *domain.ApplyReport) {
	if r == nil {
		return
	}
	fmt.Fprintln(w, "\n=== Apply ===")
	fmt.Fprintf(w, "State: %s\n", r.State)
	if r.Interface != "" {
		fmt.Fprintf(w, "Interface: %s\n", r.Interface)
		fmt.Fprintf(w, "Target: %s\n", r.Target)
		fmt.Fprintf(w, "Observed: %s\n", orNone(r.Observed))
		fmt.Fprintf(w, "Original: %s\n", orNone(r.Backup))
	}
	if r.Provider != "" {
		fmt.Fprintf(w, "Tool: %s\n", r.Provider)
	}
	if r.AbortErr != nil {
		fmt.Fprintf(w, "Aborted: %v\n", r.AbortErr)
	}
	for _, err := range r.Errors {
		fmt.Fprintf(w, "  - %v\n", err)
	}
	fmt.Fprintf(w, "Took: %dms\n", r.DurationMs)
	fmt.Fprintln(w, "=============")
}
