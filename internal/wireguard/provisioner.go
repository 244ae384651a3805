package wireguard

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"wg-access-bot/internal/errors"
)

// Provisioner drives the external peer management tool. Failures do not
// roll back the registry mutation that preceded them; callers surface a
// degraded-success reply instead.
type Provisioner interface {
	Add(ctx context.Context, peerID string) error
	Remove(ctx context.Context, peerID string) error
	Suspend(ctx context.Context, peerID string) error
	Resume(ctx context.Context, peerID string) error
}

// ToolProvisioner invokes the configured tool as
// "<tool> add|remove|suspend <peerID>"
type ToolProvisioner struct {
	command []string
	timeout time.Duration
	logger  *logrus.Logger
}

// NewToolProvisioner creates a provisioner for the given tool command line
func NewToolProvisioner(command []string, timeout time.Duration, logger *logrus.Logger) *ToolProvisioner {
	return &ToolProvisioner{
		command: command,
		timeout: timeout,
		logger:  logger,
	}
}

// Add provisions a peer
func (p *ToolProvisioner) Add(ctx context.Context, peerID string) error {
	return p.run(ctx, "add", peerID)
}

// Remove deprovisions a peer
func (p *ToolProvisioner) Remove(ctx context.Context, peerID string) error {
	return p.run(ctx, "remove", peerID)
}

// Suspend disables a peer without removing it
func (p *ToolProvisioner) Suspend(ctx context.Context, peerID string) error {
	return p.run(ctx, "suspend", peerID)
}

// Resume re-enables a suspended peer. The tool has no resume action;
// re-issuing add restores the peer.
func (p *ToolProvisioner) Resume(ctx context.Context, peerID string) error {
	return p.run(ctx, "add", peerID)
}

func (p *ToolProvisioner) run(ctx context.Context, action, peerID string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := append(append([]string{}, p.command[1:]...), action, peerID)
	cmd := exec.CommandContext(ctx, p.command[0], args...)

	p.logger.Debugf("Running peer tool: %s %s", p.command[0], strings.Join(args, " "))

	output, err := cmd.CombinedOutput()
	if err != nil {
		toolErr := &errors.ExternalToolError{
			Operation: action,
			PeerID:    peerID,
			Output:    strings.TrimSpace(string(output)),
			Err:       err,
		}
		p.logger.Errorf("Peer tool failed: %v", toolErr)
		return toolErr
	}

	p.logger.Infof("Peer tool %s completed for %s", action, peerID)
	return nil
}
