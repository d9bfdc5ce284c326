// Package logging provides functions for logging startup information in
// Ferry. It reports the version and the effective mirror configuration once
// per invocation, before any registry is contacted.
package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// WriteStartupMessage logs Ferry's version and the run configuration read
// from the command's flags, giving operators a record of what the run is
// about to do. It honors --no-startup-message.
func WriteStartupMessage(c *cobra.Command, version string) {
	flags := c.Root().PersistentFlags()

	noStartupMessage, _ := flags.GetBool("no-startup-message")
	if noStartupMessage {
		return
	}

	logrus.Info("Ferry ", version)

	inventory, _ := flags.GetString("inventory")
	archs, _ := flags.GetStringSlice("archs")

	logrus.WithFields(logrus.Fields{
		"inventory": inventory,
		"archs":     strings.Join(archs, ","),
	}).Info("Mirroring inventory")

	LogDestinationInfo(logrus.NewEntry(logrus.StandardLogger()), c)

	if dryRun, _ := flags.GetBool("dry-run"); dryRun {
		logrus.Info("Dry run: nothing will be written or transferred")
	}

	// Trace output includes bearer tokens from registry exchanges.
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.Warn(
			"Trace level enabled: log will include sensitive information as credentials and tokens",
		)
	}
}

// LogDestinationInfo logs where images will be mirrored to and through which
// transfer backend.
func LogDestinationInfo(log *logrus.Entry, c *cobra.Command) {
	flags := c.Root().PersistentFlags()

	destRegistry, _ := flags.GetString("dest-registry")
	destPrefix, _ := flags.GetString("dest-prefix")
	backend, _ := flags.GetString("transfer")

	fields := logrus.Fields{
		"registry": destRegistry,
		"backend":  backend,
	}
	if destPrefix != "" {
		fields["prefix"] = destPrefix
	}

	log.WithFields(fields).Info("Mirroring to destination registry")
}
