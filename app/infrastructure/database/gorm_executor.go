package database

import (
	"context"

	"gorm.io/gorm"
	"menlo.ai/query-cache/app/domain/query"
	"menlo.ai/query-cache/app/domain/querycache"
	"menlo.ai/query-cache/app/infrastructure/database/querycacheplugin"
)

// GormExecutor runs descriptors as raw SQL. Its statements are invisible to the
// query cache plugin; wrap it in a querycache.CachingExecutor to cache them.
type GormExecutor struct {
	db *gorm.DB
}

var _ querycache.Executor = (*GormExecutor)(nil)

func NewGormExecutor(db *gorm.DB) *GormExecutor {
	return &GormExecutor{
		db: db,
	}
}

func (e *GormExecutor) ExecuteRead(ctx context.Context, desc *query.Descriptor, dest any) error {
	return e.session(ctx).Raw(desc.SQL, desc.Bindings...).Scan(dest).Error
}

func (e *GormExecutor) ExecuteWrite(ctx context.Context, desc *query.Descriptor) (int64, error) {
	result := e.session(ctx).Exec(desc.SQL, desc.Bindings...)
	return result.RowsAffected, result.Error
}

func (e *GormExecutor) session(ctx context.Context) *gorm.DB {
	return e.db.WithContext(ctx).Scopes(querycacheplugin.Untracked())
}
