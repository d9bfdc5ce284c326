package flags

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Default configuration values applied when neither flag nor environment
// variable provides one.
const (
	// DefaultInventoryPath is the inventory file consulted when --inventory is unset.
	DefaultInventoryPath = "images.yaml"
	// DefaultDestRegistry is the registry images are mirrored into.
	DefaultDestRegistry = "ghcr.io"
	// DefaultTransferBackend moves bytes through the docker CLI.
	DefaultTransferBackend = "docker"
	// defaultProbeTimeout bounds the anonymous auth challenge probe.
	defaultProbeTimeout = 5 * time.Second
	// defaultFetchTimeout bounds token, manifest, and blob fetches.
	defaultFetchTimeout = 30 * time.Second
)

// errInvalidLogFormat indicates an invalid log format was specified.
// It is used in SetupLogging to report configuration errors.
var errInvalidLogFormat = errors.New("invalid log format specified")

// errInvalidLogLevel indicates an invalid log level was specified.
// It is used in SetupLogging to report configuration errors.
var errInvalidLogLevel = errors.New("invalid log level specified")

// errGetFlagFailed indicates a failure to read a flag's value.
var errGetFlagFailed = errors.New("failed to read flag value")

// RegisterMirrorFlags adds the flags controlling what gets mirrored and where
// to the root command.
func RegisterMirrorFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringP(
		"inventory",
		"f",
		envString("FERRY_INVENTORY"),
		"Path to the image inventory file")

	flags.StringSlice(
		"archs",
		envStringSlice("FERRY_ARCHS"),
		"Architectures to mirror")

	flags.String(
		"dest-registry",
		envString("FERRY_DEST_REGISTRY"),
		"Registry to mirror images into")

	flags.String(
		"dest-prefix",
		envString("FERRY_DEST_PREFIX"),
		"Repository prefix applied on the destination registry")

	flags.String(
		"transfer",
		envString("FERRY_TRANSFER"),
		"Transfer backend for moving image bytes (docker or crane)")

	flags.IntSlice(
		"tolerate-missing",
		envIntSlice("FERRY_TOLERATE_MISSING"),
		"HTTP statuses on destination lookups treated as a missing tag")

	flags.Duration(
		"probe-timeout",
		envDuration("FERRY_PROBE_TIMEOUT"),
		"Timeout for registry auth challenge probes")

	flags.Duration(
		"fetch-timeout",
		envDuration("FERRY_FETCH_TIMEOUT"),
		"Timeout for token, manifest, and blob fetches")

	flags.BoolP(
		"dry-run",
		"n",
		envBool("FERRY_DRY_RUN"),
		"Resolve and diff without writing the inventory or transferring images")
}

// RegisterLoggingFlags adds the flags controlling log output to the root command.
func RegisterLoggingFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.BoolP(
		"debug",
		"d",
		envBool("FERRY_DEBUG"),
		"Enable debug mode with verbose logging")

	flags.Bool(
		"trace",
		envBool("FERRY_TRACE"),
		"Enable trace mode with very verbose logging")

	flags.String(
		"log-level",
		envString("FERRY_LOG_LEVEL"),
		"The maximum log level that will be written to STDERR (possible values: panic, fatal, error, warn, info, debug, trace)")

	flags.String(
		"log-format",
		envString("FERRY_LOG_FORMAT"),
		"Sets what logging format to use (possible values: Auto, LogFmt, Pretty, JSON)")

	flags.Bool(
		"no-color",
		envBool("FERRY_NO_COLOR"),
		"Disable color output in logging")

	flags.Bool(
		"no-startup-message",
		envBool("FERRY_NO_STARTUP_MESSAGE"),
		"Do not log version and configuration at startup")
}

// envString retrieves a string value from an environment variable via Viper.
// It binds the key to the environment and returns its value.
func envString(key string) string {
	viper.MustBindEnv(key)

	return viper.GetString(key)
}

// envStringSlice retrieves a string slice from an environment variable via Viper.
// It binds the key to the environment and returns its values.
func envStringSlice(key string) []string {
	viper.MustBindEnv(key)

	return viper.GetStringSlice(key)
}

// envIntSlice retrieves an integer slice from an environment variable via Viper.
// It binds the key to the environment and returns its values.
func envIntSlice(key string) []int {
	viper.MustBindEnv(key)

	return viper.GetIntSlice(key)
}

// envBool retrieves a boolean value from an environment variable via Viper.
// It binds the key to the environment and returns its value.
func envBool(key string) bool {
	viper.MustBindEnv(key)

	return viper.GetBool(key)
}

// envDuration retrieves a duration value from an environment variable via Viper.
// It binds the key to the environment and returns its value.
func envDuration(key string) time.Duration {
	viper.MustBindEnv(key)

	return viper.GetDuration(key)
}

// SetDefaults configures default values for environment variables.
// It ensures consistent fallback behavior when flags or environment variables are unset.
func SetDefaults() {
	viper.AutomaticEnv()
	viper.SetDefault("FERRY_INVENTORY", DefaultInventoryPath)
	viper.SetDefault("FERRY_ARCHS", []string{"amd64", "arm64"})
	viper.SetDefault("FERRY_DEST_REGISTRY", DefaultDestRegistry)
	viper.SetDefault("FERRY_DEST_PREFIX", "")
	viper.SetDefault("FERRY_TRANSFER", DefaultTransferBackend)
	viper.SetDefault("FERRY_TOLERATE_MISSING", []int{403, 404})
	viper.SetDefault("FERRY_PROBE_TIMEOUT", defaultProbeTimeout)
	viper.SetDefault("FERRY_FETCH_TIMEOUT", defaultFetchTimeout)
	viper.SetDefault("FERRY_LOG_LEVEL", "info")
	viper.SetDefault("FERRY_LOG_FORMAT", "auto")
}

// SetupLogging configures the global logger based on log-related flags.
// It sets the log format and level, returning an error for invalid configurations.
func SetupLogging(flags *pflag.FlagSet) error {
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return fmt.Errorf("%w: %w", errGetFlagFailed, err)
	}

	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return fmt.Errorf("%w: %w", errGetFlagFailed, err)
	}

	if err := configureLogFormat(logFormat, noColor); err != nil {
		return err
	}

	rawLogLevel, err := flags.GetString("log-level")
	if err != nil {
		return fmt.Errorf("%w: %w", errGetFlagFailed, err)
	}

	if enabled, _ := flags.GetBool("trace"); enabled {
		rawLogLevel = "trace"
	} else if enabled, _ := flags.GetBool("debug"); enabled {
		rawLogLevel = "debug"
	}

	logLevel, err := logrus.ParseLevel(rawLogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	logrus.SetLevel(logLevel)

	return nil
}

// configureLogFormat sets the logrus formatter based on the specified format and color preference.
// It returns an error if the format is invalid.
func configureLogFormat(logFormat string, noColor bool) error {
	switch strings.ToLower(logFormat) {
	case "auto":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:             noColor,
			EnvironmentOverrideColors: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "logfmt":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	case "pretty":
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !noColor,
			FullTimestamp: false,
		})
	default:
		return fmt.Errorf("%w: %s", errInvalidLogFormat, logFormat)
	}

	return nil
}
