package instance

import "os"

// GetID returns the identifier of the running API instance, falling back to
// "local" outside a managed platform.
func GetID() string {
	for _, key := range []string{"ARTMARKET_INSTANCE_ID", "DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
