package transfer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrydock/ferry/pkg/transfer"
)

func TestNewSelectsBackend(t *testing.T) {
	t.Parallel()

	docker, err := transfer.New(transfer.BackendDocker)
	require.NoError(t, err)
	assert.IsType(t, &transfer.DockerCLI{}, docker)

	fallback, err := transfer.New("")
	require.NoError(t, err)
	assert.IsType(t, &transfer.DockerCLI{}, fallback)

	crane, err := transfer.New(transfer.BackendCrane)
	require.NoError(t, err)
	assert.IsType(t, &transfer.Crane{}, crane)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := transfer.New("teleport")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transfer backend")
}

func TestDockerCLICopyInvokesBinary(t *testing.T) {
	t.Parallel()

	// "true" accepts any arguments and exits zero, standing in for a docker
	// client that succeeds on pull, tag, and push.
	cli := transfer.NewDockerCLI("true")

	err := cli.Copy(context.Background(), "ghcr.io/src@sha256:abc", "ghcr.io/dst:tag")
	assert.NoError(t, err)

	err = cli.PushManifestList(context.Background(), "ghcr.io/dst:tag", []string{"ghcr.io/dst:tag-digest0"})
	assert.NoError(t, err)
}

func TestDockerCLISurfacesCommandFailure(t *testing.T) {
	t.Parallel()

	cli := transfer.NewDockerCLI("false")

	err := cli.Copy(context.Background(), "ghcr.io/src@sha256:abc", "ghcr.io/dst:tag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docker command failed")
}

func TestDockerCLIMissingBinary(t *testing.T) {
	t.Parallel()

	cli := transfer.NewDockerCLI("ferry-test-no-such-binary")

	err := cli.Copy(context.Background(), "ghcr.io/src@sha256:abc", "ghcr.io/dst:tag")
	assert.Error(t, err)
}
