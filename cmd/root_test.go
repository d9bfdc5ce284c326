package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSubcommandsRegistered verifies the root command exposes both mirroring
// operations.
func TestSubcommandsRegistered(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, sub := range rootCmd.Commands() {
		names = append(names, sub.Name())
	}

	assert.Contains(t, names, "update")
	assert.Contains(t, names, "sync")
}

// TestReadConfigDefaults verifies the run configuration assembled from
// unparsed flags carries the documented defaults.
func TestReadConfigDefaults(t *testing.T) {
	require.NoError(t, rootCmd.ParseFlags(nil))

	conf := readConfig(rootCmd)

	assert.Equal(t, "images.yaml", conf.inventoryPath)
	assert.Equal(t, []string{"amd64", "arm64"}, conf.architectures)
	assert.Equal(t, "ghcr.io", conf.destRegistry)
	assert.Equal(t, "", conf.destPrefix)
	assert.Equal(t, "docker", conf.backend)
	assert.Equal(t, []int{403, 404}, conf.tolerateStatus)
	assert.Equal(t, 5*time.Second, conf.probeTimeout)
	assert.Equal(t, 30*time.Second, conf.fetchTimeout)
	assert.False(t, conf.dryRun)
}

// TestReadConfigParsedFlags verifies explicit flags reach the run
// configuration.
func TestReadConfigParsedFlags(t *testing.T) {
	require.NoError(t, rootCmd.ParseFlags([]string{
		"--inventory", "mirror/images.yaml",
		"--dest-prefix", "mirror-",
		"--transfer", "crane",
		"--dry-run",
	}))

	conf := readConfig(rootCmd)

	assert.Equal(t, "mirror/images.yaml", conf.inventoryPath)
	assert.Equal(t, "mirror-", conf.destPrefix)
	assert.Equal(t, "crane", conf.backend)
	assert.True(t, conf.dryRun)
}

// TestNewResolverWiring verifies a resolver can be assembled from a run
// configuration.
func TestNewResolverWiring(t *testing.T) {
	res := newResolver(runConfig{
		probeTimeout: 5 * time.Second,
		fetchTimeout: 30 * time.Second,
	})

	assert.NotNil(t, res)
}
