// Package clusterpath maps logical dataset paths ("/dataset/production") to
// physical paths on a cluster mount ("/mapr/my.cluster.com/dataset/production").
//
// A Resolver is built from a mount table of logical prefix -> physical root.
// Resolution picks the longest prefix that matches on a path-component
// boundary; a path no mount covers fails with *UnresolvedPathError.
//
// Logical paths are NFC-normalised before matching, so two spellings of the
// same Unicode name resolve to the same physical file.
//
// FS performs the filesystem side effects of the sandbox manager (metadata
// artifacts) on resolved paths.
package clusterpath
