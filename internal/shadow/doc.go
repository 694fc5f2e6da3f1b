// Package shadow derives the column-family schema of a sandbox table.
//
// A sandbox table carries every column family of its original table plus one
// reserved family, FamilyName, which holds sandbox-local overlay state. The
// reserved name must not already be used by the original table: if it were,
// rows written by the sandbox could not be told apart from rows inherited
// from production.
package shadow
