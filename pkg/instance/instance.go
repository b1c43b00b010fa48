package instance

import (
	"os"
	"strings"
)

const (
	envWorkerID = "PARTYHUB_WORKER_ID"
	fallbackID  = "worker-0"
)

// GetID identifies this process in logs: the configured worker id, else the hostname.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv(envWorkerID)); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
