package store

import (
	"context"

	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/catalog"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/promotion"
	"github.com/example/storefront/internal/domain/user"
	"github.com/example/storefront/internal/domain/wallet"
)

// Repositories bundles every store bound to one unit of work.
type Repositories struct {
	Catalog   catalog.Store
	Promotion promotion.Store
	Carts     cart.Store
	Orders    order.Store
	Wallets   wallet.Store
	Users     user.Store
	Events    EventLog
}

// TxManager runs fn as a single atomic unit. Either every write fn makes
// through repos commits, or none does. Outbox events are published only
// after commit.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

// Backend is a complete storage implementation.
type Backend interface {
	TxManager
	Repositories() Repositories
	Close() error
}
