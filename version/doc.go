// Package version provides build version information embedding for
// reqflow binaries and the default client User-Agent.
//
// Version, git commit, branch, and build time are set at compile time
// via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/reqflow/version.Version=1.0.0"
package version
