// Package identity derives a stable identifier for the agent process's host.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"runtime"
)

// Derive computes the AgentIdentity: "pci-agent-" followed by the first 16
// hex digits of sha256(hostname || os || arch).
func Derive() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}
	return DeriveFrom(hostname, runtime.GOOS, runtime.GOARCH)
}

// DeriveFrom computes the identity from explicit node name, OS, and arch
// values, primarily to keep the formula testable without depending on the
// real hostname.
func DeriveFrom(nodeName, os, arch string) string {
	sum := sha256.Sum256([]byte(nodeName + os + arch))
	return "pci-agent-" + hex.EncodeToString(sum[:])[:16]
}
