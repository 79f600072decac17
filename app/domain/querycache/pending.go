package querycache

import "time"

// Pending carries the caching parameters a read was configured with before it executes.
// The zero value caches with the default TTL under the computed fingerprint.
type Pending struct {
	TTL  time.Duration
	Key  string
	Skip bool
}

// Remember caches the next read for ttl, under key when key is non-empty.
// A zero ttl falls back to the configured default.
func Remember(ttl time.Duration, key string) Pending {
	return Pending{TTL: ttl, Key: key}
}

func RememberForever(key string) Pending {
	return Pending{TTL: Forever, Key: key}
}

// NoCache bypasses the cache for one read.
func NoCache() Pending {
	return Pending{Skip: true}
}

func (p Pending) ttl(fallback time.Duration) time.Duration {
	if p.TTL == 0 {
		return fallback
	}
	if p.TTL < 0 {
		return Forever
	}
	return p.TTL
}
