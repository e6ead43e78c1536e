package gormrepo

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// TxManager runs a tick's writes in one transaction; repos pick the
// transaction up from the context.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) TxManager {
	return TxManager{db: db}
}

func (t TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := getDBFromCtx(ctx, nil); tx != nil {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func getDBFromCtx(ctx context.Context, base *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	if base == nil {
		return nil
	}
	return base.WithContext(ctx)
}
