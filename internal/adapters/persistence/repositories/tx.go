package repositories

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// WithTx returns a context that routes repository calls through the
// given transaction handle. Services open the transaction and pass the
// derived context to every repository call that belongs to the same
// unit of work.
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// dbFrom picks the transaction bound to ctx, falling back to base.
func dbFrom(ctx context.Context, base *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return base.WithContext(ctx)
}
