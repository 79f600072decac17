package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
	"menlo.ai/query-cache/app/domain/querycache"
)

const sweepBatchSize = 100

// sweepScript drops members of KEYS[1] whose entry (KEYS[i], member ARGV[i-1]) is gone.
// Checking and removing inside one script keeps a concurrent re-registration intact.
var sweepScript = redis.NewScript(`
local removed = 0
for i = 2, #KEYS do
	if redis.call('EXISTS', KEYS[i]) == 0 then
		removed = removed + redis.call('SREM', KEYS[1], ARGV[i - 1])
	end
end
return removed
`)

// RedisTagIndex keeps one Redis set per table holding the cache keys read from it.
type RedisTagIndex struct {
	client *redis.Client
}

var (
	_ querycache.TagIndex = (*RedisTagIndex)(nil)
	_ querycache.Sweeper  = (*RedisTagIndex)(nil)
)

func NewRedisTagIndex(client *redis.Client) *RedisTagIndex {
	return &RedisTagIndex{
		client: client,
	}
}

// Register adds key to every table's set inside one MULTI/EXEC.
func (t *RedisTagIndex) Register(ctx context.Context, key string, tables []string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, table := range tables {
			pipe.SAdd(ctx, TagKey(table), key)
		}
		return nil
	})
	return querycache.Unavailable("register", err)
}

// Invalidate reads the union of the tables' sets and deletes them inside one MULTI/EXEC,
// so a key registered before the transaction is always returned and never left behind.
func (t *RedisTagIndex) Invalidate(ctx context.Context, tables []string) ([]string, error) {
	if len(tables) == 0 {
		return nil, nil
	}
	tagKeys := make([]string, len(tables))
	for i, table := range tables {
		tagKeys[i] = TagKey(table)
	}

	var members *redis.StringSliceCmd
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		members = pipe.SUnion(ctx, tagKeys...)
		pipe.Del(ctx, tagKeys...)
		return nil
	})
	if err != nil {
		return nil, querycache.Unavailable("invalidate", err)
	}
	return members.Val(), nil
}

// Sweep walks every tag set and removes members whose entries expired or were evicted.
func (t *RedisTagIndex) Sweep(ctx context.Context) (int, error) {
	removed := 0
	var cursor uint64
	for {
		tagKeys, next, err := t.client.Scan(ctx, cursor, TagKeyPrefix+"*", sweepBatchSize).Result()
		if err != nil {
			return removed, querycache.Unavailable("sweep", err)
		}
		for _, tagKey := range tagKeys {
			n, err := t.sweepTag(ctx, tagKey)
			removed += n
			if err != nil {
				return removed, err
			}
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

func (t *RedisTagIndex) sweepTag(ctx context.Context, tagKey string) (int, error) {
	removed := 0
	var cursor uint64
	for {
		members, next, err := t.client.SScan(ctx, tagKey, cursor, "", sweepBatchSize).Result()
		if err != nil {
			return removed, querycache.Unavailable("sweep", err)
		}
		if len(members) > 0 {
			keys := make([]string, 0, len(members)+1)
			args := make([]any, 0, len(members))
			keys = append(keys, tagKey)
			for _, member := range members {
				keys = append(keys, EntryKey(member))
				args = append(args, member)
			}
			n, err := sweepScript.Run(ctx, t.client, keys, args...).Int()
			if err != nil {
				return removed, querycache.Unavailable("sweep", err)
			}
			removed += n
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
