package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// DB returns the transaction when one is attached, otherwise fallback.
// The result is always bound to Ctx.
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	t := c.Tx
	if t == nil {
		t = fallback
	}
	if t == nil {
		return nil
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return t.WithContext(ctx)
}

// InTx reports whether a transaction is attached.
func (c Context) InTx() bool { return c.Tx != nil }
