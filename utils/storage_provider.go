package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageProviderGCS = "gcs"
)

func GetStorageProvider() string {
	provider := strings.TrimSpace(strings.ToLower(os.Getenv("STORAGE_PROVIDER")))
	if provider == "" {
		return StorageProviderGCS
	}
	return provider
}

// SignedURLTTL reads GCS_SIGNED_URL_TTL_SECONDS (default 15 minutes).
func SignedURLTTL() time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(os.Getenv("GCS_SIGNED_URL_TTL_SECONDS")))
	if err != nil || secs <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(secs) * time.Second
}
