package enums

import (
	"fmt"
	"strings"
)

// StorageDriver selects the durable backend holding session key/value data.
type StorageDriver string

const (
	StorageDriverDB     StorageDriver = "db"
	StorageDriverRedis  StorageDriver = "redis"
	StorageDriverMemory StorageDriver = "memory"
)

var validStorageDrivers = []StorageDriver{
	StorageDriverDB,
	StorageDriverRedis,
	StorageDriverMemory,
}

// String implements fmt.Stringer.
func (s StorageDriver) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StorageDriver.
func (s StorageDriver) IsValid() bool {
	for _, candidate := range validStorageDrivers {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStorageDriver converts raw input into a StorageDriver.
func ParseStorageDriver(value string) (StorageDriver, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validStorageDrivers {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid storage driver %q", value)
}
