package infra

import (
	"os"
	"path/filepath"
)

// Layout holds every path the installer and agent touch.
type Layout struct {
	ConfigPath string // TOML configuration
	AgentPath  string // Installed runtime agent binary
	UnitDir    string // Where the systemd unit goes
	BackupDir  string // Holds the write-once original address
	LockPath   string // Install-time lock file
	IsRoot     bool   // Whether running with administrative rights
}

const (
	defaultConfigPath = "/etc/bt-mac-changer/config.toml"
	defaultAgentPath  = "/usr/local/sbin/bt-mac-changer-agent"
	defaultUnitDir    = "/etc/systemd/system"
	defaultBackupDir  = "/var/lib/bt-mac-changer"
	defaultLockPath   = "/run/lock/bt-mac-changer.lock"
)

// DetectLayout returns the system layout and whether the effective UID is root.
func DetectLayout() *Layout {
	return &Layout{
		ConfigPath: defaultConfigPath,
		AgentPath:  defaultAgentPath,
		UnitDir:    defaultUnitDir,
		BackupDir:  defaultBackupDir,
		LockPath:   defaultLockPath,
		IsRoot:     os.Geteuid() == 0,
	}
}

// LayoutWithRoot returns the system layout re-rooted under root (for testing).
// The caller is treated as privileged.
func LayoutWithRoot(root string) *Layout {
	return &Layout{
		ConfigPath: filepath.Join(root, defaultConfigPath),
		AgentPath:  filepath.Join(root, defaultAgentPath),
		UnitDir:    filepath.Join(root, defaultUnitDir),
		BackupDir:  filepath.Join(root, defaultBackupDir),
		LockPath:   filepath.Join(root, defaultLockPath),
		IsRoot:     true,
	}
}

// WithConfigPath returns a copy of l using an alternate configuration file.
// A relative path is resolved against the working directory, since the
// boot unit runs the agent from /.
func (l *Layout) WithConfigPath(path string) *Layout {
	c := *l
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		c.ConfigPath = path
	}
	return &c
}
