package ports

import "context"

// Tx is an opaque transaction handle; the persistence adapter decides the
// concrete type (*gorm.DB for SQLite).
type Tx interface{}

// UnitOfWork runs fn in one transaction: an error from fn rolls back,
// nil commits.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func TxFromContext(ctx context.Context) Tx {
	return ctx.Value(txKey{})
}
