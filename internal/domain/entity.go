// Package domain contains core entities and interfaces.
// This is the innermost layer - no external dependencies.
package domain

import "time"

// Config is the persisted agent configuration.
// Owned by the controller, read-only to the agent.
type Config struct {
	TargetAddress Address
	InterfaceName string
	VendorTool    string // Optional override for the vendor provider binary
	VendorFlag    string // Optional override for the vendor provider activation flag
}

// AgentState is a step of the runtime agent's apply sequence.
type AgentState string

const (
	StateStart               AgentState = "start"
	StateConfigLoaded        AgentState = "config_loaded"
	StateBackupEnsured       AgentState = "backup_ensured"
	StateAdapterDown         AgentState = "adapter_down"
	StateAddressSetAttempted AgentState = "address_set_attempted"
	StateAdapterUp           AgentState = "adapter_up"
	StateVerified            AgentState = "verified"
	StateApplied             AgentState = "applied"
	StateMismatch            AgentState = "mismatch"
	StateAborted             AgentState = "aborted"
)

// IsTerminal reports whether no further transition follows s.
func (s AgentState) IsTerminal() bool {
	return s == StateApplied || s == StateMismatch || s == StateAborted
}

// SetOutcome is the result of asking the address-setting abstraction to act.
type SetOutcome string

const (
	// OutcomeApplied means a provider was present and invoked. It does not
	// mean the address changed; only verification can say that.
	OutcomeApplied SetOutcome = "applied"
	// OutcomeUnavailable means no provider is installed.
	OutcomeUnavailable SetOutcome = "unavailable"
)

// SetResult describes one setAddress call.
type SetResult struct {
	Outcome  SetOutcome
	Provider string // Name of the provider invoked, empty when unavailable
	Err      error  // Provider failure, logged but not authoritative
}

// BackupWrite is the result of a write-once backup attempt.
type BackupWrite string

const (
	BackupWritten        BackupWrite = "written"
	BackupAlreadyPresent BackupWrite = "already_present"
)

// ApplyReport captures what happened during a single agent run.
type ApplyReport struct {
	State         AgentState   // Terminal state
	Path          []AgentState // Every state visited, in order
	Interface     string
	Target        Address
	Backup        Address // Original address on record after the run (may be empty)
	BackupWritten bool    // True if this run created the backup record
	Provider      string
	Observed      Address // Address read back during verification
	Errors        []error // Tolerated step failures
	AbortErr      error   // Why the run aborted, nil otherwise
	ExecutedAt    time.Time
	DurationMs    int64
}

// InstallState is the composite view rendered by status.
// Recomputed from the filesystem and service manager on every call.
type InstallState struct {
	ConfigPresent     bool
	Config            *Config
	ConfigError       error
	AgentPresent      bool
	UnitPresent       bool
	UnitEnabled       bool
	ServiceActive     bool
	BackupPresent     bool
	BackupAddress     Address
	CurrentAddress    Address
	BluetoothdRunning bool
	Provider          string   // Provider that would run now, empty if none
	Providers         []string // All providers present on the system
}

// Installed reports whether every installable component is in place.
func (s InstallState) Installed() bool {
	return s.ConfigPresent && s.AgentPresent && s.UnitPresent
}

// Partial reports whether some but not all components are present.
func (s InstallState) Partial() bool {
	some := s.ConfigPresent || s.AgentPresent || s.UnitPresent
	return some && !s.Installed()
}
