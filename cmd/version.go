// -- cmd/version.go --
package cmd

// Version is the application version, overridable at build time with
// -ldflags "-X github.com/halcyonsec/vantage/cmd.Version=...".
var Version = "0.3.0-dev"
