// Package buildinfo carries values stamped at link time:
//
//	go build -ldflags "-X github.com/pinspot/api/internal/buildinfo.Version=1.2.3"
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
)
