// Package querycacheplugin plugs the query cache into gorm: reads issued through
// the query processor are served from the cache, and committed writes invalidate
// every entry tagged with a table they touched.
package querycacheplugin

import (
	"context"
	"reflect"

	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/callbacks"
	"menlo.ai/query-cache/app/domain/query"
	"menlo.ai/query-cache/app/domain/querycache"
)

const (
	PluginName         = "querycache"
	invalidateCallback = "querycache:invalidate"
)

type Plugin struct {
	handler *querycache.QueryHandler
}

var _ gorm.Plugin = (*Plugin)(nil)

func New(handler *querycache.QueryHandler) *Plugin {
	return &Plugin{
		handler: handler,
	}
}

func (p *Plugin) Name() string {
	return PluginName
}

func (p *Plugin) Initialize(db *gorm.DB) error {
	return multierr.Combine(
		db.Callback().Query().Replace("gorm:query", p.query),
		db.Callback().Create().After("gorm:commit_or_rollback_transaction").Register(invalidateCallback, p.invalidate(query.OperationInsert)),
		db.Callback().Update().After("gorm:commit_or_rollback_transaction").Register(invalidateCallback, p.invalidate(query.OperationUpdate)),
		db.Callback().Delete().After("gorm:commit_or_rollback_transaction").Register(invalidateCallback, p.invalidate(query.OperationDelete)),
		db.Callback().Raw().After("gorm:raw").Register(invalidateCallback, p.invalidateRaw),
	)
}

func (p *Plugin) query(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	raw := db.Statement.SQL.Len() > 0
	callbacks.BuildQuerySQL(db)
	if db.Error != nil || db.DryRun || !cacheable(db) {
		callbacks.Query(db)
		return
	}

	desc := describe(db, query.OperationRead, raw)
	result := newResultEnvelope(db.Statement.Dest)
	executed := false
	_ = p.handler.CacheQuery(db.Statement.Context, desc, pendingOf(db), result, func(ctx context.Context) error {
		executed = true
		callbacks.Query(db)
		result.RowsAffected = db.RowsAffected
		return db.Error
	})
	if executed {
		return
	}

	db.RowsAffected = result.RowsAffected
	if db.Statement.Result != nil {
		db.Statement.Result.RowsAffected = db.RowsAffected
	}
	if db.RowsAffected == 0 && db.Statement.RaiseErrorOnNotFound {
		db.AddError(gorm.ErrRecordNotFound)
	}
}

func (p *Plugin) invalidate(op query.Operation) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Error != nil || db.DryRun || untracked(db) {
			return
		}
		p.flush(db, describe(db, op, false))
	}
}

func (p *Plugin) invalidateRaw(db *gorm.DB) {
	if db.Error != nil || db.DryRun || untracked(db) {
		return
	}
	op, ok := query.OperationFromSQL(db.Statement.SQL.String())
	if !ok || !op.IsWrite() {
		return
	}
	p.flush(db, describe(db, op, true))
}

// flush invalidates now and, inside Transaction, once more after the commit.
func (p *Plugin) flush(db *gorm.DB, desc *query.Descriptor) {
	ctx := db.Statement.Context
	if c := collectorFrom(ctx); c != nil {
		c.add(desc)
	}
	p.handler.InvalidateQuery(ctx, desc)
}

// cacheable rejects reads whose result could not round-trip or might not be committed.
func cacheable(db *gorm.DB) bool {
	if untracked(db) || db.Statement.Dest == nil {
		return false
	}
	if _, inTx := db.Statement.ConnPool.(gorm.TxCommitter); inTx {
		return false
	}
	t := reflect.TypeOf(db.Statement.Dest)
	if t.Kind() != reflect.Pointer {
		return false
	}
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	return t.Kind() != reflect.Map && t.Kind() != reflect.Interface
}
