package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/viik420/bt-mac-changer/internal/domain"
)

// AgentInstaller places the runtime agent binary at a fixed path.
type AgentInstaller struct {
	path string
}

// NewAgentInstaller creates an installer targeting path.
func NewAgentInstaller(path string) *AgentInstaller {
	return &AgentInstaller{path: path}
}

// GetPath returns the agent path.
func (a *AgentInstaller) GetPath() string {
	return a.path
}

// Install copies src to the agent path with mode 0755.
// Reinstalling from the agent path itself is a no-op.
func (a *AgentInstaller) Install(src string) error {
	if same, _ := samePath(src, a.path); same {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return fmt.Errorf("failed to create agent directory: %w", err)
	}
	if err := copyFileAtomic(src, a.path, 0755); err != nil {
		return fmt.Errorf("failed to install agent to %s: %w", a.path, err)
	}
	return nil
}

// Remove deletes the agent binary.
func (a *AgentInstaller) Remove() error {
	return removeIfExists(a.path)
}

// Exists checks if the agent binary is present.
func (a *AgentInstaller) Exists() bool {
	return fileExists(a.path)
}

func samePath(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}

// Ensure AgentInstaller implements domain.ArtifactInstaller.
var _ domain.ArtifactInstaller = (*AgentInstaller)(nil)
