package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// errCommandFailed indicates a docker CLI invocation exited non-zero.
var errCommandFailed = errors.New("docker command failed")

// DockerCLI moves images by shelling out to the docker client binary.
//
// It requires a working docker daemon and an authenticated CLI session for
// the destination registry, the same preconditions as running the commands
// by hand.
type DockerCLI struct {
	binary string
}

// NewDockerCLI creates a docker CLI backend invoking the provided binary;
// an empty name falls back to "docker" on PATH.
func NewDockerCLI(binary string) *DockerCLI {
	if binary == "" {
		binary = "docker"
	}

	return &DockerCLI{binary: binary}
}

// Copy pulls src, re-tags it as dst, and pushes dst.
func (d *DockerCLI) Copy(ctx context.Context, src, dst string) error {
	if err := d.run(ctx, "pull", "--quiet", src); err != nil {
		return err
	}

	if err := d.run(ctx, "tag", src, dst); err != nil {
		return err
	}

	return d.run(ctx, "push", "--quiet", dst)
}

// PushManifestList creates a manifest list at target from the member
// references and pushes it.
func (d *DockerCLI) PushManifestList(ctx context.Context, target string, members []string) error {
	args := append([]string{"manifest", "create", target}, members...)
	if err := d.run(ctx, args...); err != nil {
		return err
	}

	return d.run(ctx, "manifest", "push", target)
}

// run executes one docker CLI invocation, forwarding its output.
func (d *DockerCLI) run(ctx context.Context, args ...string) error {
	logrus.WithField("command", d.binary+" "+strings.Join(args, " ")).
		Debug("Running transfer command")

	cmd := exec.CommandContext(ctx, d.binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s %s: %w", errCommandFailed, d.binary, strings.Join(args, " "), err)
	}

	return nil
}
