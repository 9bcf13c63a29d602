package domain

import "context"

// AddressProvider is one external tool able to set or influence the adapter address.
// Implementations: bdaddr, btmgmt, vendor tool.
type AddressProvider interface {
	// Name returns the provider name (e.g., "bdaddr", "btmgmt").
	Name() string

	// IsAvailable returns true if the tool is installed on this system.
	IsAvailable() bool

	// TrySet invokes the tool. A nil error only means the tool exited zero.
	TrySet(ctx context.Context, iface string, addr Address) error
}

// AddressSetter selects exactly one provider and invokes it.
type AddressSetter interface {
	// SetAddress tries providers in priority order, stopping at the first present one.
	SetAddress(ctx context.Context, iface string, addr Address) SetResult

	// Select returns the provider SetAddress would use, or nil if none is present.
	Select() AddressProvider

	// Available returns the names of all present providers, in priority order.
	Available() []string
}

// AdapterController queries and powers the Bluetooth adapter.
type AdapterController interface {
	// CurrentAddress returns the adapter's hardware address as reported by the system.
	CurrentAddress(ctx context.Context, iface string) (Address, error)

	// SetPowered takes the adapter offline (false) or online (true).
	SetPowered(ctx context.Context, iface string, on bool) error
}

// BackupStore persists the write-once original address.
// Implementation: single text file, exclusive-create.
type BackupStore interface {
	// Exists checks if a backup record is present.
	Exists() bool

	// Read returns the recorded address. ok is false when no record exists.
	Read() (addr Address, ok bool, err error)

	// WriteIfAbsent records addr unless a record already exists.
	WriteIfAbsent(addr Address) (BackupWrite, error)

	// Remove deletes the record. Only used for an explicit purge.
	Remove() error

	// GetPath returns the record path.
	GetPath() string
}

// ConfigStore persists the agent configuration atomically.
type ConfigStore interface {
	// Load reads and validates the configuration.
	Load() (*Config, error)

	// Save validates and atomically replaces the configuration.
	Save(cfg Config) error

	// Exists checks if a configuration file is present.
	Exists() bool

	// Remove deletes the configuration file.
	Remove() error

	// GetPath returns the configuration path.
	GetPath() string
}

// BootRegistrar registers the agent with the boot supervisor.
type BootRegistrar interface {
	// Register writes the unit, reloads the supervisor and enables the unit.
	Register(ctx context.Context, agentPath, configPath string) error

	// Trigger runs the agent now and waits for the job to finish.
	Trigger(ctx context.Context) error

	// Deregister stops, disables and removes the unit.
	Deregister(ctx context.Context) error

	// IsRegistered checks if the unit file is present.
	IsRegistered() bool

	// IsEnabled asks the supervisor whether the unit is enabled.
	IsEnabled(ctx context.Context) (bool, error)

	// IsActive asks the supervisor whether the unit is active.
	IsActive(ctx context.Context) (bool, error)

	// GetUnitPath returns the unit file path.
	GetUnitPath() string
}

// ArtifactInstaller places the runtime agent binary.
type ArtifactInstaller interface {
	// Install copies src to the agent path atomically with executable permission.
	Install(src string) error

	// Remove deletes the agent binary.
	Remove() error

	// Exists checks if the agent binary is present.
	Exists() bool

	// GetPath returns the agent path.
	GetPath() string
}

// Locker provides cross-process mutual exclusion for controller operations.
type Locker interface {
	// TryLock acquires the lock without waiting. It fails with
	// ErrConcurrentOperation when another process holds it.
	TryLock(operation string) (release func(), err error)
}

// ProcessManager handles OS process lookups.
// Implementation: uses gopsutil.
type ProcessManager interface {
	// FindByName returns PIDs of processes whose name matches exactly.
	FindByName(name string) ([]int, error)

	// NameOf returns the process name for pid.
	NameOf(pid int) (string, error)
}
