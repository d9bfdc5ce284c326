package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ferrydock/ferry/internal/actions"
	"github.com/ferrydock/ferry/internal/flags"
	"github.com/ferrydock/ferry/internal/logging"
	"github.com/ferrydock/ferry/internal/meta"
	"github.com/ferrydock/ferry/pkg/registry/auth"
	"github.com/ferrydock/ferry/pkg/registry/resolver"
	"github.com/ferrydock/ferry/pkg/transfer"
)

// rootCmd is the root command for the Ferry CLI.
var rootCmd = NewRootCommand()

// runConfig holds the flag values one run needs, read once per subcommand.
type runConfig struct {
	inventoryPath  string
	architectures  []string
	destRegistry   string
	destPrefix     string
	backend        string
	tolerateStatus []int
	probeTimeout   time.Duration
	fetchTimeout   time.Duration
	dryRun         bool
}

// NewRootCommand creates the root command for the Ferry CLI.
func NewRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "ferry",
		Short:             "Mirrors container images between registries",
		Long:              "\nFerry resolves a configured set of images to their current architecture-specific digests\nand republishes the missing ones, plus a combined manifest list, to a destination registry.",
		Version:           meta.Version,
		PersistentPreRunE: preRun,
		SilenceUsage:      true,
	}
}

// init registers command-line flags and subcommands during package initialization.
func init() {
	flags.SetDefaults()
	flags.RegisterMirrorFlags(rootCmd)
	flags.RegisterLoggingFlags(rootCmd)
	rootCmd.AddCommand(newUpdateCommand(), newSyncCommand())
}

// Execute runs the root command and manages any errors encountered during its
// execution. It is the primary entry point for the Ferry CLI, called from
// main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("Run failed")
	}
}

// preRun configures logging before any subcommand executes.
func preRun(cmd *cobra.Command, _ []string) error {
	if err := flags.SetupLogging(cmd.Root().PersistentFlags()); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	logging.WriteStartupMessage(cmd, meta.Version)

	return nil
}

// newUpdateCommand creates the subcommand that refreshes the inventory's
// digest lists from the source registries.
func newUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Re-resolve every configured image's digests and rewrite the inventory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf := readConfig(cmd)

			return actions.Update(cmd.Context(), newResolver(conf), actions.UpdateParams{
				InventoryPath: conf.inventoryPath,
				Architectures: conf.architectures,
				DryRun:        conf.dryRun,
				Out:           cmd.OutOrStdout(),
			})
		},
	}
}

// newSyncCommand creates the subcommand that transfers missing digests to the
// destination registry.
func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Transfer digests missing from the destination registry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf := readConfig(cmd)

			copier, err := transfer.New(conf.backend)
			if err != nil {
				return err
			}

			return actions.Sync(cmd.Context(), newResolver(conf), copier, actions.SyncParams{
				InventoryPath:  conf.inventoryPath,
				DestRegistry:   conf.destRegistry,
				DestPrefix:     conf.destPrefix,
				TolerateStatus: conf.tolerateStatus,
				DryRun:         conf.dryRun,
				Out:            cmd.OutOrStdout(),
			})
		},
	}
}

// readConfig collects the run configuration from the root command's flags.
// The flags are registered in init, so lookups cannot fail here.
func readConfig(cmd *cobra.Command) runConfig {
	persistentFlags := cmd.Root().PersistentFlags()

	var conf runConfig

	conf.inventoryPath, _ = persistentFlags.GetString("inventory")
	conf.architectures, _ = persistentFlags.GetStringSlice("archs")
	conf.destRegistry, _ = persistentFlags.GetString("dest-registry")
	conf.destPrefix, _ = persistentFlags.GetString("dest-prefix")
	conf.backend, _ = persistentFlags.GetString("transfer")
	conf.tolerateStatus, _ = persistentFlags.GetIntSlice("tolerate-missing")
	conf.probeTimeout, _ = persistentFlags.GetDuration("probe-timeout")
	conf.fetchTimeout, _ = persistentFlags.GetDuration("fetch-timeout")
	conf.dryRun, _ = persistentFlags.GetBool("dry-run")

	return conf
}

// newResolver wires the challenge cache, token client, and manifest resolver
// for one run. The cache lives exactly as long as the run.
func newResolver(conf runConfig) *resolver.Resolver {
	cache := auth.NewCache(&http.Client{Timeout: conf.probeTimeout})
	fetchClient := &http.Client{Timeout: conf.fetchTimeout}

	return resolver.New(auth.NewClient(cache, fetchClient), fetchClient)
}
