package cache

const (
	CacheVersion     = "v1"
	QueryCachePrefix = CacheVersion + ":querycache"
	EntryKeyPrefix   = QueryCachePrefix + ":entry:"
	TagKeyPrefix     = QueryCachePrefix + ":tag:"
	SweepLockKey     = QueryCachePrefix + ":sweep:lock"
)

func EntryKey(key string) string {
	return EntryKeyPrefix + key
}

func TagKey(table string) string {
	return TagKeyPrefix + table
}
