package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashConfig derives a stable digest of the configuration for
// ScanSession.config_hash and audit trail correlation. It round-trips
// through JSON so that struct field order never affects the hash.
func hashConfig(c *Config) string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
