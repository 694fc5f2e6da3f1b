// Package record defines the sandbox records shared by the metadata store and
// the lifecycle manager.
//
// A Record ties a sandbox table to the production table it was derived from.
// Records move through a small state machine:
//
//	creating -> active -> deleting -> (removed)
//
// Only active records are visible to readers. The transient states exist so
// that a crashed or concurrent operation is detected instead of observed.
package record
