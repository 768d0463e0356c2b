// Package utils holds small helpers shared by the CLI and the API that don't
// warrant their own package.
package utils

// Build metadata, stamped at link time with
// -X github.com/papercomputeco/yearbook/pkg/utils.Version=<tag> and friends.
// The version command prints them and GET /status reports Version.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
