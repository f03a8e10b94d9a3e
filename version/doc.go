// Package version reports the build identity of the endpoint binary.
//
//	go build -ldflags "-X github.com/kbukum/endpoints/version.Version=1.4.0" ./cmd/endpoint
package version
