package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var origPeersPattern = regexp.MustCompile(`ORIG_PEERS="(.+?)"`)

// Manager starts and stops the WireGuard container around the bot's
// lifetime and restores the compose file's PEERS entry at shutdown, so
// the next container start does not recreate peers the bot manages.
type Manager struct {
	composeFile string
	configRoot  string
	logger      *logrus.Logger
}

// NewManager creates a lifecycle manager; composeFile may be empty to
// disable lifecycle management entirely
func NewManager(composeFile, configRoot string, logger *logrus.Logger) *Manager {
	return &Manager{
		composeFile: composeFile,
		configRoot:  configRoot,
		logger:      logger,
	}
}

// Enabled reports whether a compose file is configured
func (m *Manager) Enabled() bool {
	return m.composeFile != ""
}

// Up starts the container in the background
func (m *Manager) Up(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}
	return m.compose(ctx, "up", "-d")
}

// Down stops the container
func (m *Manager) Down(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}
	return m.compose(ctx, "down")
}

func (m *Manager) compose(ctx context.Context, args ...string) error {
	full := append([]string{"compose", "-f", m.composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", full...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("docker compose %s failed: %w (output: %s)",
			strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}

	m.logger.Infof("docker compose %s completed", strings.Join(args, " "))
	return nil
}

// RestorePeers rewrites the compose file's PEERS environment entry with
// the original value the container recorded at first start
func (m *Manager) RestorePeers() error {
	if !m.Enabled() {
		return nil
	}

	origPeers, err := ReadOrigPeers(filepath.Join(m.configRoot, ".donoteditthisfile"))
	if err != nil {
		return err
	}

	if err := PatchComposePeers(m.composeFile, origPeers); err != nil {
		return err
	}

	m.logger.Infof("Restored PEERS=%s in %s", origPeers, m.composeFile)
	return nil
}

// ReadOrigPeers extracts the ORIG_PEERS value from the container's
// state file
func ReadOrigPeers(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read container state file: %w", err)
	}

	match := origPeersPattern.FindSubmatch(data)
	if match == nil {
		return "", fmt.Errorf("ORIG_PEERS not found in %s", path)
	}
	return string(match[1]), nil
}

// PatchComposePeers replaces the PEERS entry in the wireguard service's
// environment list of the given compose file
func PatchComposePeers(composePath, origPeers string) error {
	data, err := os.ReadFile(composePath)
	if err != nil {
		return fmt.Errorf("failed to read compose file: %w", err)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse compose file: %w", err)
	}

	services, ok := doc["services"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("compose file has no services section")
	}
	wireguard, ok := services["wireguard"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("compose file has no wireguard service")
	}
	env, ok := wireguard["environment"].([]interface{})
	if !ok {
		return fmt.Errorf("wireguard service has no environment list")
	}

	for i, entry := range env {
		value, ok := entry.(string)
		if !ok {
			continue
		}
		if strings.HasPrefix(value, "PEERS=") {
			env[i] = "PEERS=" + origPeers
		}
	}
	wireguard["environment"] = env

	patched, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize compose file: %w", err)
	}

	return os.WriteFile(composePath, patched, 0644)
}
