package usecase

import (
	"context"
	"errors"

	"github.com/viik420/bt-mac-changer/internal/domain"
)

// mockConfigStore implements domain.ConfigStore for testing
type mockConfigStore struct {
	cfg     *domain.Config
	loadErr error
	saveErr error
	saves   []domain.Config
}

func (m *mockConfigStore) Load() (*domain.Config, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.cfg == nil {
		return nil, domain.ErrConfigMissing
	}
	c := *m.cfg
	return &c, nil
}

func (m *mockConfigStore) Save(cfg domain.Config) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves = append(m.saves, cfg)
	m.cfg = &cfg
	return nil
}

func (m *mockConfigStore) Exists() bool    { return m.cfg != nil }
func (m *mockConfigStore) GetPath() string { return "/etc/bt-mac-changer/config.toml" }

func (m *mockConfigStore) Remove() error {
	m.cfg = nil
	return nil
}

// mockBackupStore implements domain.BackupStore for testing
type mockBackupStore struct {
	addr    domain.Address
	present bool
	readErr error
	writes  int
}

func (m *mockBackupStore) Exists() bool    { return m.present }
func (m *mockBackupStore) GetPath() string { return "/var/lib/bt-mac-changer/original_address" }

func (m *mockBackupStore) Read() (domain.Address, bool, error) {
	if m.readErr != nil {
		return "", true, m.readErr
	}
	return m.addr, m.present, nil
}

func (m *mockBackupStore) WriteIfAbsent(addr domain.Address) (domain.BackupWrite, error) {
	if m.present {
		return domain.BackupAlreadyPresent, nil
	}
	m.addr = addr
	m.present = true
	m.writes++
	return domain.BackupWritten, nil
}

func (m *mockBackupStore) Remove() error {
	m.addr = ""
	m.present = false
	return nil
}

// mockAdapter implements domain.AdapterController for testing.
// calls records "query", "down" and "up" in order.
type mockAdapter struct {
	current  domain.Address
	queryErr error
	downErr  error
	upErr    error
	calls    []string
}

func (m *mockAdapter) CurrentAddress(ctx context.Context, iface string) (domain.Address, error) {
	m.calls = append(m.calls, "query")
	if m.queryErr != nil {
		return "", m.queryErr
	}
	return m.current, nil
}

func (m *mockAdapter) SetPowered(ctx context.Context, iface string, on bool) error {
	if on {
		m.calls = append(m.calls, "up")
		return m.upErr
	}
	m.calls = append(m.calls, "down")
	return m.downErr
}

// mockProvider implements domain.AddressProvider for testing
type mockProvider struct {
	name string
}

func (m *mockProvider) Name() string      { return m.name }
func (m *mockProvider) IsAvailable() bool { return true }

func (m *mockProvider) TrySet(ctx context.Context, iface string, addr domain.Address) error {
	return nil
}

// mockSetter implements domain.AddressSetter for testing. When effective
// is set, a successful call changes the mock adapter's address.
type mockSetter struct {
	provider  string // empty means no provider installed
	err       error
	effective bool
	adapter   *mockAdapter
	requests  []domain.Address
	configs   []*domain.Config
}

func (m *mockSetter) SetAddress(ctx context.Context, iface string, addr domain.Address) domain.SetResult {
	m.requests = append(m.requests, addr)
	if m.provider == "" {
		return domain.SetResult{Outcome: domain.OutcomeUnavailable, Err: domain.ErrNoCapabilityProvider}
	}
	if m.err == nil && m.effective && m.adapter != nil {
		m.adapter.current = addr
	}
	return domain.SetResult{Outcome: domain.OutcomeApplied, Provider: m.provider, Err: m.err}
}

func (m *mockSetter) Select() domain.AddressProvider {
	if m.provider == "" {
		return nil
	}
	return &mockProvider{name: m.provider}
}

func (m *mockSetter) Available() []string {
	if m.provider == "" {
		return nil
	}
	return []string{m.provider}
}

func (m *mockSetter) factory() SetterFactory {
	return func(cfg *domain.Config) domain.AddressSetter {
		m.configs = append(m.configs, cfg)
		return m
	}
}

// mockRegistrar implements domain.BootRegistrar for testing
type mockRegistrar struct {
	registered bool
	enabled    bool
	active     bool
	agentPath  string
	configPath string
	triggers   int
	triggerErr error
	onTrigger  func()
}

func (m *mockRegistrar) Register(ctx context.Context, agentPath, configPath string) error {
	m.registered, m.enabled = true, true
	m.agentPath, m.configPath = agentPath, configPath
	return nil
}

func (m *mockRegistrar) Trigger(ctx context.Context) error {
	m.triggers++
	if m.triggerErr != nil {
		return m.triggerErr
	}
	if m.onTrigger != nil {
		m.onTrigger()
	}
	m.active = true
	return nil
}

func (m *mockRegistrar) Deregister(ctx context.Context) error {
	m.registered, m.enabled, m.active = false, false, false
	return nil
}

func (m *mockRegistrar) IsRegistered() bool                          { return m.registered }
func (m *mockRegistrar) IsEnabled(ctx context.Context) (bool, error) { return m.enabled, nil }
func (m *mockRegistrar) IsActive(ctx context.Context) (bool, error)  { return m.active, nil }
func (m *mockRegistrar) GetUnitPath() string                         { return "/etc/systemd/system/bt-mac-changer.service" }

// mockInstaller implements domain.ArtifactInstaller for testing
type mockInstaller struct {
	present bool
	src     string
	err     error
}

func (m *mockInstaller) Install(src string) error {
	if m.err != nil {
		return m.err
	}
	m.src = src
	m.present = true
	return nil
}

func (m *mockInstaller) Remove() error {
	m.present = false
	return nil
}

func (m *mockInstaller) Exists() bool    { return m.present }
func (m *mockInstaller) GetPath() string { return "/usr/local/sbin/bt-mac-changer-agent" }

// mockLocker implements domain.Locker for testing
type mockLocker struct {
	held     bool
	acquired []string
	releases int
}

func (m *mockLocker) TryLock(operation string) (func(), error) {
	if m.held {
		return nil, errors.Join(domain.ErrConcurrentOperation, errors.New("held by pid 4242"))
	}
	m.held = true
	m.acquired = append(m.acquired, operation)
	return func() {
		m.held = false
		m.releases++
	}, nil
}

// mockProcessManager implements domain.ProcessManager for testing
type mockProcessManager struct {
	pids map[string][]int
}

func (m *mockProcessManager) FindByName(name string) ([]int, error) {
	return m.pids[name], nil
}

func (m *mockProcessManager) NameOf(pid int) (string, error) {
	return "", errors.New("not found")
}
