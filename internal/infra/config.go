package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"

	"github.com/viik420/bt-mac-changer/internal/domain"
)

// configFile is the on-disk TOML shape of domain.Config.
type configFile struct {
	TargetAddress string `toml:"target_address"`
	InterfaceName string `toml:"interface_name"`
	VendorTool    string `toml:"vendor_tool,omitempty"`
	VendorFlag    string `toml:"vendor_flag,omitempty"`
}

// FileConfigStore implements domain.ConfigStore as a TOML file.
type FileConfigStore struct {
	path string
}

// NewFileConfigStore creates a config store at path.
func NewFileConfigStore(path string) *FileConfigStore {
	return &FileConfigStore{path: path}
}

// GetPath returns the configuration path.
func (s *FileConfigStore) GetPath() string {
	return s.path
}

// Exists checks if the configuration file is present.
func (s *FileConfigStore) Exists() bool {
	return fileExists(s.path)
}

// Load reads and validates the configuration.
func (s *FileConfigStore) Load() (*domain.Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigMissing, s.path)
		}
		return nil, err
	}

	var raw configFile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}

	if raw.TargetAddress == "" {
		return nil, fmt.Errorf("%w: target_address not set in %s", domain.ErrInvalidAddress, s.path)
	}
	addr, err := domain.ParseAddress(raw.TargetAddress)
	if err != nil {
		return nil, err
	}
	iface, err := domain.ParseInterface(raw.InterfaceName)
	if err != nil {
		return nil, err
	}

	return &domain.Config{
		TargetAddress: addr,
		InterfaceName: iface,
		VendorTool:    raw.VendorTool,
		VendorFlag:    raw.VendorFlag,
	}, nil
}

// Save validates cfg and atomically replaces the configuration file.
func (s *FileConfigStore) Save(cfg domain.Config) error {
	addr, err := domain.ParseAddress(cfg.TargetAddress.String())
	if err != nil {
		return err
	}
	iface, err := domain.ParseInterface(cfg.InterfaceName)
	if err != nil {
		return err
	}

	data, err := toml.Marshal(configFile{
		TargetAddress: addr.String(),
		InterfaceName: iface,
		VendorTool:    cfg.VendorTool,
		VendorFlag:    cfg.VendorFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return writeFileAtomic(s.path, data, 0600)
}

// Remove deletes the configuration file.
func (s *FileConfigStore) Remove() error {
	return removeIfExists(s.path)
}

// Ensure FileConfigStore implements domain.ConfigStore.
var _ domain.ConfigStore = (*FileConfigStore)(nil)
