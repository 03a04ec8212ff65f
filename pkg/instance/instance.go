package instance

import "os"

// GetID identifies this process in logs. Workers set SAUTI_INSTANCE_ID
// explicitly; on Kubernetes the pod hostname is the natural fallback.
func GetID() string {
	if id := os.Getenv("SAUTI_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
