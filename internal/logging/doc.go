// Package logging builds the CLI's slog logger: a text handler on stderr,
// fanned out to a Seq server when one is configured.
package logging
