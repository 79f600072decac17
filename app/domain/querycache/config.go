package querycache

import "time"

type Config struct {
	Enabled bool
	// DefaultTTL applies to reads remembered without an explicit TTL.
	DefaultTTL time.Duration
	// DisabledTables are never cached; reads touching any of them always execute.
	DisabledTables []string
	// StoreTimeout bounds every store and tag index call. Zero means no extra bound.
	StoreTimeout time.Duration
	// CollapseMisses shares one execution between concurrent misses on the same key.
	CollapseMisses bool
}

func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		DefaultTTL:     3600 * time.Second,
		StoreTimeout:   250 * time.Millisecond,
		CollapseMisses: true,
	}
}
