package querycacheplugin

import (
	"time"

	"gorm.io/gorm"
	"menlo.ai/query-cache/app/domain/querycache"
)

const (
	pendingSetting   = "querycache:pending"
	tablesSetting    = "querycache:tables"
	untrackedSetting = "querycache:untracked"
)

// Remember caches the statement's result for ttl, under key when key is non-empty.
//
//	db.Scopes(querycacheplugin.Remember(2*time.Minute, "user-orders-5")).Where("user_id = ?", 5).Find(&orders)
func Remember(ttl time.Duration, key string) func(*gorm.DB) *gorm.DB {
	return withPending(querycache.Remember(ttl, key))
}

func RememberForever(key string) func(*gorm.DB) *gorm.DB {
	return withPending(querycache.RememberForever(key))
}

// NoCache always executes the read and leaves the cache untouched.
func NoCache() func(*gorm.DB) *gorm.DB {
	return withPending(querycache.NoCache())
}

// Tables adds tags the SQL scanner cannot see, such as tables behind a view or
// touched by a trigger. They apply to reads and writes alike.
func Tables(names ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Set(tablesSetting, append(extraTables(db), names...))
	}
}

// Untracked hides the statement from the plugin entirely: reads are not cached and
// writes do not invalidate. Callers take over both duties.
func Untracked() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Set(untrackedSetting, true)
	}
}

func withPending(pending querycache.Pending) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Set(pendingSetting, pending)
	}
}

func pendingOf(db *gorm.DB) querycache.Pending {
	if v, ok := db.Get(pendingSetting); ok {
		if pending, ok := v.(querycache.Pending); ok {
			return pending
		}
	}
	return querycache.Pending{}
}

func extraTables(db *gorm.DB) []string {
	if v, ok := db.Get(tablesSetting); ok {
		if tables, ok := v.([]string); ok {
			return append([]string(nil), tables...)
		}
	}
	return nil
}

func untracked(db *gorm.DB) bool {
	v, ok := db.Get(untrackedSetting)
	if !ok {
		return false
	}
	skip, _ := v.(bool)
	return skip
}
