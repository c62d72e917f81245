package common

import "time"

// Freshness TTLs for cached collaborator data
const (
	FreshnessPrices       = 1 * time.Hour
	FreshnessFundamentals = 7 * 24 * time.Hour // 7 days
	FreshnessNews         = 6 * time.Hour
	FreshnessFundProfile  = 30 * 24 * time.Hour // fund mandates rarely change
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
