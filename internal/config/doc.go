// Package config loads the sandbox CLI configuration.
//
// Settings come from a YAML file (default ~/.sandbox/config.yaml, or the
// path in SANDBOX_CONFIG), then environment overrides (SANDBOX_DB,
// SANDBOX_USER, SANDBOX_LOG_LEVEL). The merged result is checked against
// the embedded CUE definition in schema.cue before use.
package config
