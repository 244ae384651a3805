package wireguard

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wg-access-bot/internal/errors"
)

func writeTool(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manage-peer")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755))
	return path
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestToolProvisionerSuccess(t *testing.T) {
	tool := writeTool(t, "exit 0")
	p := NewToolProvisioner([]string{tool}, 5*time.Second, testLogger())

	require.NoError(t, p.Add(context.Background(), "42-laptop"))
	require.NoError(t, p.Remove(context.Background(), "42-laptop"))
	require.NoError(t, p.Suspend(context.Background(), "42-laptop"))
	require.NoError(t, p.Resume(context.Background(), "42-laptop"))
}

func TestToolProvisionerNonZeroExit(t *testing.T) {
	tool := writeTool(t, "echo peer broken >&2; exit 3")
	p := NewToolProvisioner([]string{tool}, 5*time.Second, testLogger())

	err := p.Add(context.Background(), "42-laptop")
	require.Error(t, err)
	assert.True(t, errors.IsExternalTool(err))

	var toolErr *errors.ExternalToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "add", toolErr.Operation)
	assert.Equal(t, "42-laptop", toolErr.PeerID)
	assert.Contains(t, toolErr.Output, "peer broken")
}

func TestToolProvisionerTimeout(t *testing.T) {
	tool := writeTool(t, "sleep 5")
	p := NewToolProvisioner([]string{tool}, 100*time.Millisecond, testLogger())

	start := time.Now()
	err := p.Add(context.Background(), "42-laptop")
	require.Error(t, err)
	assert.True(t, errors.IsExternalTool(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestToolProvisionerPassesLeadingArguments(t *testing.T) {
	// The tool may be configured with leading arguments, e.g. a docker
	// exec prefix; they must precede the action and peer ID.
	out := filepath.Join(t.TempDir(), "out")
	tool := writeTool(t, `echo "$@" > `+out)
	p := NewToolProvisioner([]string{tool, "wireguard"}, 5*time.Second, testLogger())

	require.NoError(t, p.Suspend(context.Background(), "7-phone"))

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "wireguard suspend 7-phone\n", string(content))
}
