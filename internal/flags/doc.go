// Package flags manages command-line flags and environment variables for
// Ferry configuration.
//
// Every flag has a FERRY_* environment fallback bound through Viper, so the
// tool configures identically from a shell, a CI job, or a container spec.
package flags
