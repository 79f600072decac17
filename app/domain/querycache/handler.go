package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"menlo.ai/query-cache/app/domain/query"
	"menlo.ai/query-cache/app/utils/functional"
	"menlo.ai/query-cache/app/utils/logger"
)

// ExecuteFunc runs the real query and leaves its rows in the destination handed to CacheQuery.
type ExecuteFunc func(ctx context.Context) error

// QueryHandler coordinates fingerprinting, table resolution, the store and the
// tag index. It is shared by every request; none of its failures reach callers.
type QueryHandler struct {
	store         Store
	tags          TagIndex
	resolver      *TableResolver
	fingerprinter *Fingerprinter
	config        Config
	disabled      map[string]struct{}
	flights       singleflight.Group
	generations   *generations
}

func NewQueryHandler(store Store, tags TagIndex, config Config) *QueryHandler {
	disabled := make(map[string]struct{}, len(config.DisabledTables))
	for _, table := range config.DisabledTables {
		if name := NormalizeTable(table); name != "" {
			disabled[name] = struct{}{}
		}
	}
	return &QueryHandler{
		store:         store,
		tags:          tags,
		resolver:      NewTableResolver(),
		fingerprinter: NewFingerprinter(),
		config:        config,
		disabled:      disabled,
		generations:   newGenerations(),
	}
}

func (h *QueryHandler) Config() Config {
	return h.config
}

// CacheQuery serves desc from the cache when a valid entry exists and otherwise
// executes it, stores the result in dest under its fingerprint and tags it with
// every table it read. dest must be a pointer. Only execute's own error is returned.
func (h *QueryHandler) CacheQuery(ctx context.Context, desc *query.Descriptor, pending Pending, dest any, execute ExecuteFunc) error {
	if !h.config.Enabled || pending.Skip {
		lookupsTotal.WithLabelValues(lookupBypass).Inc()
		return execute(ctx)
	}

	tables, err := h.resolver.Resolve(desc)
	if err != nil {
		logger.GetLogger().WithError(err).Debug("query cache: bypassing unresolvable read")
		lookupsTotal.WithLabelValues(lookupBypass).Inc()
		return execute(ctx)
	}
	if h.touchesDisabled(tables) {
		lookupsTotal.WithLabelValues(lookupBypass).Inc()
		return execute(ctx)
	}

	key, err := h.fingerprinter.Fingerprint(desc.SQL, desc.Bindings, pending.Key)
	if err != nil {
		serializationErrorsTotal.Inc()
		logger.GetLogger().
			WithField("error_code", "3b0f54a1-5e0c-4f1e-a7a4-6d0e2c1f9b87").
			WithError(err).
			Warn("query cache: cannot fingerprint read")
		lookupsTotal.WithLabelValues(lookupBypass).Inc()
		return execute(ctx)
	}

	payload, found, err := h.get(ctx, key)
	if err != nil {
		// Fail open: the result is neither read from nor written to an unhealthy store.
		storeErrorsTotal.WithLabelValues("get").Inc()
		logger.GetLogger().
			WithField("error_code", "a2f8c5de-0b7e-4c57-9a0e-41c6f3d2b915").
			WithError(err).
			Warn("query cache: lookup failed, executing query")
		lookupsTotal.WithLabelValues(lookupError).Inc()
		return execute(ctx)
	}
	if found {
		err := decodeInto(payload, dest)
		if err == nil {
			lookupsTotal.WithLabelValues(lookupHit).Inc()
			return nil
		}
		serializationErrorsTotal.Inc()
		logger.GetLogger().WithError(&SerializationError{Key: key, Err: err}).Warn("query cache: discarding undecodable entry")
	}
	lookupsTotal.WithLabelValues(lookupMiss).Inc()

	ttl := pending.ttl(h.config.DefaultTTL)
	seen := h.generations.snapshot(tables)
	if h.config.CollapseMisses {
		return h.executeCollapsed(ctx, key, tables, seen, ttl, dest, execute)
	}
	if err := execute(ctx); err != nil {
		return err
	}
	h.populate(ctx, key, tables, seen, ttl, dest)
	return nil
}

type flight struct {
	leader  *byte
	seen    []uint64
	payload []byte
	err     error
}

// executeCollapsed shares one execution among concurrent misses on key. A caller
// reuses the shared rows only when no table was invalidated between the shared
// query's start and its own; otherwise it runs the query itself.
func (h *QueryHandler) executeCollapsed(ctx context.Context, key string, tables []string, seen []uint64, ttl time.Duration, dest any, execute ExecuteFunc) error {
	token := new(byte)
	v, _, _ := h.flights.Do(key, func() (any, error) {
		f := &flight{leader: token, seen: seen}
		if f.err = execute(ctx); f.err == nil {
			f.payload = h.populate(ctx, key, tables, seen, ttl, dest)
		}
		return f, nil
	})

	f := v.(*flight)
	if f.leader == token {
		return f.err
	}
	if f.err == nil && f.payload != nil && slices.Equal(f.seen, seen) {
		if err := decodeInto(f.payload, dest); err == nil {
			lookupsTotal.WithLabelValues(lookupCollapsed).Inc()
			return nil
		}
	}
	// The shared query failed, produced nothing reusable or began before an
	// invalidation this caller already observed.
	if err := execute(ctx); err != nil {
		return err
	}
	h.populate(ctx, key, tables, seen, ttl, dest)
	return nil
}

// populate stores dest and tags it, in that order, and returns the encoded payload.
// An entry that cannot be tagged is removed again so it can never outlive a write,
// and so is one whose tables were invalidated after seen was taken.
func (h *QueryHandler) populate(ctx context.Context, key string, tables []string, seen []uint64, ttl time.Duration, dest any) []byte {
	payload, err := json.Marshal(dest)
	if err != nil {
		serializationErrorsTotal.Inc()
		logger.GetLogger().
			WithField("error_code", "d7c3a9e2-6f41-4b0d-8e25-93f0b1c7a64e").
			WithError(&SerializationError{Key: key, Err: err}).
			Warn("query cache: cannot encode result")
		return nil
	}
	if h.generations.moved(tables, seen) {
		logger.GetLogger().WithField("tables", tables).Debug("query cache: tables invalidated while the query ran, not storing result")
		return payload
	}

	storeCtx, cancel := h.storeContext(ctx)
	defer cancel()

	if err := h.store.Put(storeCtx, key, payload, ttl); err != nil {
		storeErrorsTotal.WithLabelValues("put").Inc()
		logger.GetLogger().
			WithField("error_code", "5e91b0c4-2d7a-4f38-b6e1-0c8a7d45f2b3").
			WithError(Unavailable("put", err)).
			Warn("query cache: cannot store result")
		return payload
	}

	if err := h.tags.Register(storeCtx, key, tables); err != nil {
		storeErrorsTotal.WithLabelValues("register").Inc()
		log := logger.GetLogger().WithFields(logrus.Fields{
			"key":    key,
			"tables": tables,
		})
		log.WithError(Unavailable("register", err)).Warn("query cache: cannot tag result, removing entry")
		h.discard(ctx, key, log)
		return payload
	}
	if h.generations.moved(tables, seen) {
		// The invalidation may have popped the buckets before this key joined them.
		h.discard(ctx, key, logger.GetLogger().WithField("key", key))
	}
	return payload
}

func (h *QueryHandler) discard(ctx context.Context, key string, log *logrus.Entry) {
	cleanupCtx, cancel := h.storeContext(context.WithoutCancel(ctx))
	defer cancel()
	if err := h.store.Delete(cleanupCtx, key); err != nil {
		orphanedEntriesTotal.Inc()
		log.WithField("error_code", "0c6d2f87-94ab-4e13-a5d0-7b2e8f1c3d69").
			WithError(err).
			Error("query cache: untagged entry left in store")
	}
}

// InvalidateQuery removes every entry tagged with a table the committed write touched.
// It must run after the write commits. Failures are logged and counted, never returned.
func (h *QueryHandler) InvalidateQuery(ctx context.Context, desc *query.Descriptor) {
	if desc == nil || !desc.Operation.IsWrite() {
		return
	}
	tables, err := h.resolver.Resolve(desc)
	if err != nil {
		invalidationFailuresTotal.WithLabelValues("resolve").Inc()
		logger.GetLogger().
			WithField("error_code", "8f1e7b3c-c025-4d9a-9b6f-2a5d0e4c7183").
			WithError(err).
			Warn("query cache: write could not be attributed to a table, skipping invalidation")
		return
	}
	h.InvalidateTables(ctx, tables...)
}

// InvalidateTables pops the tag buckets of tables and deletes the entries they held.
// It returns the number of entries removed.
func (h *QueryHandler) InvalidateTables(ctx context.Context, tables ...string) int {
	normalized := functional.Distinct(functional.Filter(functional.Map(tables, NormalizeTable), func(name string) bool {
		return name != ""
	}))
	if len(normalized) == 0 {
		return 0
	}
	h.generations.bump(normalized)
	invalidationsTotal.Inc()
	log := logger.GetLogger().WithField("tables", normalized)

	tagCtx, cancel := h.storeContext(ctx)
	keys, err := h.tags.Invalidate(tagCtx, normalized)
	cancel()
	if err != nil {
		invalidationFailuresTotal.WithLabelValues("tags").Inc()
		log.WithField("error_code", "e4b9d1a6-3c72-48f5-8d0b-6a1f2e9c5b37").
			WithError(Unavailable("invalidate", err)).
			Error("query cache: tag invalidation failed, entries may be stale until they expire")
		return 0
	}
	if len(keys) == 0 {
		return 0
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 100 * time.Millisecond
	err = backoff.Retry(func() error {
		deleteCtx, cancel := h.storeContext(ctx)
		defer cancel()
		return h.store.Delete(deleteCtx, keys...)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, 2), ctx))
	if err != nil {
		invalidationFailuresTotal.WithLabelValues("delete").Inc()
		log.WithFields(logrus.Fields{
			"error_code": "6a3c8e0f-1b94-47d2-a5e7-c9d0f2b81e46",
			"keys":       len(keys),
		}).WithError(Unavailable("delete", err)).Error("query cache: untagged entries could not be deleted")
		return 0
	}
	invalidatedKeysTotal.Add(float64(len(keys)))
	log.WithField("keys", len(keys)).Debug("query cache: invalidated")
	return len(keys)
}

func (h *QueryHandler) HealthCheck(ctx context.Context) error {
	storeCtx, cancel := h.storeContext(ctx)
	defer cancel()
	return h.store.HealthCheck(storeCtx)
}

func (h *QueryHandler) get(ctx context.Context, key string) ([]byte, bool, error) {
	storeCtx, cancel := h.storeContext(ctx)
	defer cancel()
	payload, found, err := h.store.Get(storeCtx, key)
	if err != nil {
		return nil, false, Unavailable("get", err)
	}
	return payload, found, nil
}

func (h *QueryHandler) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.config.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.config.StoreTimeout)
}

func (h *QueryHandler) touchesDisabled(tables []string) bool {
	for _, table := range tables {
		if _, ok := h.disabled[table]; ok {
			return true
		}
	}
	return false
}

// decodeInto leaves dest untouched when payload does not decode. Types with their
// own json.Unmarshaler are trusted to do the same.
func decodeInto(payload []byte, dest any) error {
	if _, ok := dest.(json.Unmarshaler); ok {
		return json.Unmarshal(payload, dest)
	}
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("destination must be a non-nil pointer")
	}
	tmp := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(payload, tmp.Interface()); err != nil {
		return err
	}
	rv.Elem().Set(tmp.Elem())
	return nil
}
