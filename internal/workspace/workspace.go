package workspace

import (
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// Prefix names staging directories.
const Prefix = "blogbuilder-stage-"

// Manager owns one staging directory.
type Manager struct {
	baseDir string
	path    string
	logger  *slog.Logger
}

// NewManager creates a manager placing staging directories in baseDir
// (the system temp dir when empty).
func NewManager(baseDir string, logger *slog.Logger) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{baseDir: baseDir, logger: logger}
}

// Create makes a fresh, uniquely named staging directory.
func (m *Manager) Create() error {
	if m.path != "" {
		return fmt.Errorf("workspace already created: %s", m.path)
	}
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace base directory: %w", err)
	}
	dir, err := os.MkdirTemp(m.baseDir, Prefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	m.path = dir
	m.logger.Debug("Created workspace", logfields.Path(dir))
	return nil
}

// GetPath returns the staging directory, or "" before Create.
func (m *Manager) GetPath() string {
	return m.path
}

// Cleanup removes the staging directory. It is safe to call more than once.
func (m *Manager) Cleanup() error {
	if m.path == "" {
		return nil
	}
	if err := os.RemoveAll(m.path); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}
	m.logger.Debug("Cleaned up workspace", logfields.Path(m.path))
	m.path = ""
	return nil
}
