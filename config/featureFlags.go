package config

import (
	"os"
	"strings"
)

// StrictInventoryReadiness makes the inventory track validate a declared "Barang Siap"
// against a live reconciliation pass instead of accepting the operator's assertion as-is.
//
// Set via env:
// - STRICT_INVENTORY_READINESS=true
func StrictInventoryReadiness() bool {
	return envBool("STRICT_INVENTORY_READINESS", false)
}

// OutboxDispatcherEnabled controls whether server.go starts the work order event dispatcher.
//
// Set via env:
// - OUTBOX_DISPATCHER_ENABLED=false
func OutboxDispatcherEnabled() bool {
	return envBool("OUTBOX_DISPATCHER_ENABLED", true)
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	}
	return def
}
