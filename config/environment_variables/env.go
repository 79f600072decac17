package environment_variables

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

type EnvironmentVariable struct {
	QUERY_CACHE_ENABLED          string
	QUERY_CACHE_EXPIRATION_TIME  string
	QUERY_CACHE_DISABLED_TABLES  string
	QUERY_CACHE_STORE_TIMEOUT_MS string
	QUERY_CACHE_COLLAPSE_MISSES  string
	QUERY_CACHE_SWEEP_SCHEDULE   string
	CACHE_TYPE                   string
	CACHE_URL                    string `required:"true"`
	CACHE_PASSWORD               string
	CACHE_DB                     string
	CACHE_MAX_ENTRIES            string
	DB_POSTGRESQL_WRITE_DSN      string
	DB_POSTGRESQL_READ1_DSN      string
	HTTP_PORT                    string
	ADMIN_API_TOKEN              string `required:"true"`
	LOG_LEVEL                    string
	LOG_FORMAT                   string
}

func (ev *EnvironmentVariable) LoadFromEnv() {
	v := reflect.ValueOf(ev).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		envKey := field.Name
		envValue := os.Getenv(envKey)
		if envValue == "" && field.Tag.Get("required") == "true" {
			fmt.Printf("Missing SYSENV: %s\n", envKey)
		}
		if envValue != "" {
			if v.Field(i).Kind() == reflect.String {
				v.Field(i).SetString(envValue)
			}
		}
	}
}

// QueryCacheEnabled defaults to true; only an explicit false value turns caching off.
func (ev *EnvironmentVariable) QueryCacheEnabled() bool {
	return parseBool(ev.QUERY_CACHE_ENABLED, true)
}

// QueryCacheExpiration is the default TTL applied to reads without an explicit one.
func (ev *EnvironmentVariable) QueryCacheExpiration() time.Duration {
	seconds := parseInt(ev.QUERY_CACHE_EXPIRATION_TIME, 3600)
	if seconds <= 0 {
		seconds = 3600
	}
	return time.Duration(seconds) * time.Second
}

func (ev *EnvironmentVariable) QueryCacheDisabledTables() []string {
	tables := make([]string, 0)
	for _, table := range strings.Split(ev.QUERY_CACHE_DISABLED_TABLES, ",") {
		table = strings.TrimSpace(table)
		if table != "" {
			tables = append(tables, table)
		}
	}
	return tables
}

func (ev *EnvironmentVariable) QueryCacheStoreTimeout() time.Duration {
	ms := parseInt(ev.QUERY_CACHE_STORE_TIMEOUT_MS, 250)
	if ms <= 0 {
		ms = 250
	}
	return time.Duration(ms) * time.Millisecond
}

func (ev *EnvironmentVariable) QueryCacheCollapseMisses() bool {
	return parseBool(ev.QUERY_CACHE_COLLAPSE_MISSES, true)
}

func (ev *EnvironmentVariable) QueryCacheSweepSchedule() string {
	if ev.QUERY_CACHE_SWEEP_SCHEDULE == "" {
		return "*/10 * * * *"
	}
	return ev.QUERY_CACHE_SWEEP_SCHEDULE
}

func (ev *EnvironmentVariable) CacheMaxEntries() int {
	n := parseInt(ev.CACHE_MAX_ENTRIES, 10000)
	if n <= 0 {
		n = 10000
	}
	return n
}

func (ev *EnvironmentVariable) HttpPort() int {
	port := parseInt(ev.HTTP_PORT, 8080)
	if port <= 0 {
		port = 8080
	}
	return port
}

func parseBool(value string, fallback bool) bool {
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// Singleton
var EnvironmentVariables = EnvironmentVariable{}
