// Package logging provides tests for Ferry's startup information logging.
package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrydock/ferry/internal/flags"
)

// newStartupCommand builds a command carrying the flags the startup message
// reads, parsed from args.
func newStartupCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	cmd := new(cobra.Command)

	flags.SetDefaults()
	flags.RegisterMirrorFlags(cmd)
	flags.RegisterLoggingFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))

	return cmd
}

func TestWriteStartupMessage(t *testing.T) {
	hook := logrustest.NewGlobal()
	defer hook.Reset()

	cmd := newStartupCommand(t, "--dest-registry", "ghcr.io", "--dest-prefix", "mirror-")

	WriteStartupMessage(cmd, "v1.2.3")

	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, "Ferry v1.2.3", hook.Entries[0].Message)

	var destination *logrus.Entry

	for i := range hook.Entries {
		if hook.Entries[i].Message == "Mirroring to destination registry" {
			destination = &hook.Entries[i]
		}
	}

	require.NotNil(t, destination)
	assert.Equal(t, "ghcr.io", destination.Data["registry"])
	assert.Equal(t, "mirror-", destination.Data["prefix"])
	assert.Equal(t, "docker", destination.Data["backend"])
}

func TestWriteStartupMessageSuppressed(t *testing.T) {
	hook := logrustest.NewGlobal()
	defer hook.Reset()

	cmd := newStartupCommand(t, "--no-startup-message")

	WriteStartupMessage(cmd, "v1.2.3")

	assert.Empty(t, hook.Entries)
}

func TestWriteStartupMessageDryRun(t *testing.T) {
	hook := logrustest.NewGlobal()
	defer hook.Reset()

	cmd := newStartupCommand(t, "--dry-run")

	WriteStartupMessage(cmd, "v1.2.3")

	messages := make([]string, 0, len(hook.Entries))
	for _, entry := range hook.Entries {
		messages = append(messages, entry.Message)
	}

	assert.Contains(t, messages, "Dry run: nothing will be written or transferred")
}
