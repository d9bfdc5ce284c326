// Package flags provides tests for Ferry's flag and environment variable handling.
package flags

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCommand builds a command carrying the full flag surface, the way the
// root command registers it.
func newTestCommand() *cobra.Command {
	cmd := new(cobra.Command)

	SetDefaults()
	RegisterMirrorFlags(cmd)
	RegisterLoggingFlags(cmd)

	return cmd
}

// TestMirrorFlags_Defaults verifies the fallback values applied when neither
// flags nor environment variables are set.
func TestMirrorFlags_Defaults(t *testing.T) {
	cmd := newTestCommand()
	require.NoError(t, cmd.ParseFlags(nil))

	flags := cmd.PersistentFlags()

	inventory, err := flags.GetString("inventory")
	require.NoError(t, err)
	assert.Equal(t, DefaultInventoryPath, inventory)

	archs, err := flags.GetStringSlice("archs")
	require.NoError(t, err)
	assert.Equal(t, []string{"amd64", "arm64"}, archs)

	destRegistry, err := flags.GetString("dest-registry")
	require.NoError(t, err)
	assert.Equal(t, DefaultDestRegistry, destRegistry)

	backend, err := flags.GetString("transfer")
	require.NoError(t, err)
	assert.Equal(t, DefaultTransferBackend, backend)

	tolerated, err := flags.GetIntSlice("tolerate-missing")
	require.NoError(t, err)
	assert.Equal(t, []int{403, 404}, tolerated)

	probeTimeout, err := flags.GetDuration("probe-timeout")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, probeTimeout)

	fetchTimeout, err := flags.GetDuration("fetch-timeout")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, fetchTimeout)

	dryRun, err := flags.GetBool("dry-run")
	require.NoError(t, err)
	assert.False(t, dryRun)
}

// TestMirrorFlags_Env verifies that FERRY_* environment variables feed the
// flag defaults.
func TestMirrorFlags_Env(t *testing.T) {
	t.Setenv("FERRY_INVENTORY", "mirror/images.yaml")
	t.Setenv("FERRY_DEST_REGISTRY", "quay.io")
	t.Setenv("FERRY_DEST_PREFIX", "mirror-")

	cmd := newTestCommand()
	require.NoError(t, cmd.ParseFlags(nil))

	flags := cmd.PersistentFlags()

	inventory, err := flags.GetString("inventory")
	require.NoError(t, err)
	assert.Equal(t, "mirror/images.yaml", inventory)

	destRegistry, err := flags.GetString("dest-registry")
	require.NoError(t, err)
	assert.Equal(t, "quay.io", destRegistry)

	destPrefix, err := flags.GetString("dest-prefix")
	require.NoError(t, err)
	assert.Equal(t, "mirror-", destPrefix)
}

// TestMirrorFlags_FlagsOverrideEnv verifies explicit flags win over
// environment variables.
func TestMirrorFlags_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("FERRY_DEST_REGISTRY", "quay.io")

	cmd := newTestCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--dest-registry", "ghcr.io", "--dry-run"}))

	flags := cmd.PersistentFlags()

	destRegistry, err := flags.GetString("dest-registry")
	require.NoError(t, err)
	assert.Equal(t, "ghcr.io", destRegistry)

	dryRun, err := flags.GetBool("dry-run")
	require.NoError(t, err)
	assert.True(t, dryRun)
}

// TestSetupLogging verifies log level and format configuration from flags.
func TestSetupLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	cmd := newTestCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--log-level", "warn", "--log-format", "json"}))

	err := SetupLogging(cmd.PersistentFlags())
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)
}

// TestSetupLogging_DebugAndTrace verifies the shorthand verbosity flags
// override the configured level, trace winning over debug.
func TestSetupLogging_DebugAndTrace(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	cmd := newTestCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--debug"}))
	require.NoError(t, SetupLogging(cmd.PersistentFlags()))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	cmd = newTestCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--debug", "--trace"}))
	require.NoError(t, SetupLogging(cmd.PersistentFlags()))
	assert.Equal(t, logrus.TraceLevel, logrus.GetLevel())
}

// TestSetupLogging_InvalidValues verifies invalid levels and formats are
// rejected.
func TestSetupLogging_InvalidValues(t *testing.T) {
	cmd := newTestCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--log-level", "ludicrous"}))

	err := SetupLogging(cmd.PersistentFlags())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")

	cmd = newTestCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--log-format", "yaml"}))

	err = SetupLogging(cmd.PersistentFlags())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

// TestConfigureLogFormat covers every recognized formatter name.
func TestConfigureLogFormat(t *testing.T) {
	require.NoError(t, configureLogFormat("auto", false))
	assert.IsType(t, &logrus.TextFormatter{}, logrus.StandardLogger().Formatter)

	require.NoError(t, configureLogFormat("logfmt", false))
	formatter, ok := logrus.StandardLogger().Formatter.(*logrus.TextFormatter)
	require.True(t, ok)
	assert.True(t, formatter.DisableColors)

	require.NoError(t, configureLogFormat("pretty", false))
	formatter, ok = logrus.StandardLogger().Formatter.(*logrus.TextFormatter)
	require.True(t, ok)
	assert.True(t, formatter.ForceColors)

	require.NoError(t, configureLogFormat("JSON", false))
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	assert.Error(t, configureLogFormat("banana", false))
}
