package store

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/catalog"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/promotion"
	"github.com/example/storefront/internal/domain/user"
	"github.com/example/storefront/internal/domain/wallet"
)

// memState holds values, never pointers handed out to callers, so a shallow
// copy of the maps is a consistent snapshot.
type memState struct {
	products   map[string]catalog.Product
	categories map[string]catalog.Category
	offers     map[string]promotion.Offer
	coupons    map[string]promotion.Coupon
	carts      map[string][]cart.Line
	orders     map[string]order.Order
	wallets    map[string]wallet.Wallet
	users      map[string]user.User
	events     []Event
}

func newMemState() *memState {
	return &memState{
		products:   make(map[string]catalog.Product),
		categories: make(map[string]catalog.Category),
		offers:     make(map[string]promotion.Offer),
		coupons:    make(map[string]promotion.Coupon),
		carts:      make(map[string][]cart.Line),
		orders:     make(map[string]order.Order),
		wallets:    make(map[string]wallet.Wallet),
		users:      make(map[string]user.User),
	}
}

func (s *memState) clone() *memState {
	return &memState{
		products:   maps.Clone(s.products),
		categories: maps.Clone(s.categories),
		offers:     maps.Clone(s.offers),
		coupons:    maps.Clone(s.coupons),
		carts:      maps.Clone(s.carts),
		orders:     maps.Clone(s.orders),
		wallets:    maps.Clone(s.wallets),
		users:      maps.Clone(s.users),
		events:     slices.Clone(s.events),
	}
}

// Memory is an in-process Backend. Transactions are serialised on a single
// mutex and rolled back by restoring the state captured when they began.
// Code running inside WithinTx must use the repositories it is given;
// calling Repositories() from there deadlocks.
type Memory struct {
	mu     sync.Mutex
	state  *memState
	pub    Publisher
	faults map[string]error
}

func NewMemory(pub Publisher) *Memory {
	return &Memory{
		state:  newMemState(),
		pub:    pub,
		faults: make(map[string]error),
	}
}

// FailOn makes the named write fail with err until cleared with a nil err.
// Names are "<repo>.<op>", e.g. "wallets.credit" or "catalog.decrement_stock".
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

// Events returns every committed outbox event in append order.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.state.events)
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Repositories() Repositories {
	return m.repos(&memRepo{m: m})
}

func (m *Memory) WithinTx(ctx context.Context, fn func(repos Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	events, err := m.runTx(fn)
	if err != nil {
		return err
	}
	dispatch(ctx, m.pub, events)
	return nil
}

func (m *Memory) runTx(fn func(repos Repositories) error) (events []Event, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := m.state.clone()
	r := &memRepo{m: m, inTx: true}
	defer func() {
		if p := recover(); p != nil {
			m.state = saved
			panic(p)
		}
		if err != nil {
			m.state = saved
		}
	}()

	if err = fn(m.repos(r)); err != nil {
		return nil, err
	}
	return r.pending, nil
}

func (m *Memory) repos(r *memRepo) Repositories {
	return Repositories{
		Catalog:   &memCatalog{r},
		Promotion: &memPromotion{r},
		Carts:     &memCarts{r},
		Orders:    &memOrders{r},
		Wallets:   &memWallets{r},
		Users:     &memUsers{r},
		Events:    &memEvents{r},
	}
}

type memRepo struct {
	m       *Memory
	inTx    bool
	pending []Event
}

// lock takes the store mutex unless the caller already holds it as part of
// a transaction.
func (r *memRepo) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.m.mu.Lock()
	return r.m.mu.Unlock
}

func (r *memRepo) st() *memState { return r.m.state }

func (r *memRepo) fault(op string) error {
	return r.m.faults[op]
}

// ============================================
// Catalog
// ============================================

type memCatalog struct{ *memRepo }

func cloneProduct(p catalog.Product) *catalog.Product { return &p }

func (c *memCatalog) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	defer c.lock()()
	p, ok := c.st().products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (c *memCatalog) ListProducts(ctx context.Context) ([]*catalog.Product, error) {
	defer c.lock()()
	out := make([]*catalog.Product, 0, len(c.st().products))
	for _, p := range c.st().products {
		out = append(out, cloneProduct(p))
	}
	slices.SortFunc(out, func(a, b *catalog.Product) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (c *memCatalog) CreateProduct(ctx context.Context, p *catalog.Product) error {
	defer c.lock()()
	if err := c.fault("catalog.create_product"); err != nil {
		return err
	}
	for _, existing := range c.st().products {
		if strings.EqualFold(existing.Name, p.Name) {
			return catalog.ErrDuplicateProduct
		}
	}
	c.st().products[p.ID] = *p
	return nil
}

func (c *memCatalog) UpdateProduct(ctx context.Context, p *catalog.Product) error {
	defer c.lock()()
	if err := c.fault("catalog.update_product"); err != nil {
		return err
	}
	current, ok := c.st().products[p.ID]
	if !ok {
		return catalog.ErrProductNotFound
	}
	for id, existing := range c.st().products {
		if id != p.ID && strings.EqualFold(existing.Name, p.Name) {
			return catalog.ErrDuplicateProduct
		}
	}
	// stock only moves through DecrementStock and IncrementStock
	updated := *p
	updated.StockQuantity = current.StockQuantity
	c.st().products[p.ID] = updated
	return nil
}

func (c *memCatalog) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	defer c.lock()()
	if err := c.fault("catalog.decrement_stock"); err != nil {
		return false, err
	}
	p, ok := c.st().products[productID]
	if !ok || p.StockQuantity < qty {
		return false, nil
	}
	p.StockQuantity -= qty
	p.UpdatedAt = time.Now().UTC()
	c.st().products[productID] = p
	return true, nil
}

func (c *memCatalog) IncrementStock(ctx context.Context, productID string, qty int) error {
	defer c.lock()()
	if err := c.fault("catalog.increment_stock"); err != nil {
		return err
	}
	p, ok := c.st().products[productID]
	if !ok {
		return catalog.ErrProductNotFound
	}
	p.StockQuantity += qty
	p.UpdatedAt = time.Now().UTC()
	c.st().products[productID] = p
	return nil
}

func (c *memCatalog) GetCategory(ctx context.Context, id string) (*catalog.Category, error) {
	defer c.lock()()
	cat, ok := c.st().categories[id]
	if !ok {
		return nil, catalog.ErrCategoryNotFound
	}
	return &cat, nil
}

func (c *memCatalog) ListCategories(ctx context.Context) ([]*catalog.Category, error) {
	defer c.lock()()
	out := make([]*catalog.Category, 0, len(c.st().categories))
	for _, cat := range c.st().categories {
		out = append(out, &cat)
	}
	slices.SortFunc(out, func(a, b *catalog.Category) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (c *memCatalog) CreateCategory(ctx context.Context, cat *catalog.Category) error {
	defer c.lock()()
	for _, existing := range c.st().categories {
		if strings.EqualFold(existing.Name, cat.Name) {
			return catalog.ErrDuplicateCategory
		}
	}
	c.st().categories[cat.ID] = *cat
	return nil
}

func (c *memCatalog) UpdateCategory(ctx context.Context, cat *catalog.Category) error {
	defer c.lock()()
	if _, ok := c.st().categories[cat.ID]; !ok {
		return catalog.ErrCategoryNotFound
	}
	c.st().categories[cat.ID] = *cat
	return nil
}

// ============================================
// Promotions
// ============================================

type memPromotion struct{ *memRepo }

func cloneOffer(o promotion.Offer) *promotion.Offer {
	o.ProductIDs = slices.Clone(o.ProductIDs)
	o.CategoryIDs = slices.Clone(o.CategoryIDs)
	return &o
}

func (p *memPromotion) FindActiveOffers(ctx context.Context, productID, categoryID string, now time.Time) ([]*promotion.Offer, error) {
	defer p.lock()()
	if err := p.fault("promotion.find_active_offers"); err != nil {
		return nil, err
	}
	var out []*promotion.Offer
	for _, o := range p.st().offers {
		if o.LiveAt(now) && o.Covers(productID, categoryID) {
			out = append(out, cloneOffer(o))
		}
	}
	slices.SortFunc(out, func(a, b *promotion.Offer) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (p *memPromotion) ListOffers(ctx context.Context) ([]*promotion.Offer, error) {
	defer p.lock()()
	out := make([]*promotion.Offer, 0, len(p.st().offers))
	for _, o := range p.st().offers {
		out = append(out, cloneOffer(o))
	}
	slices.SortFunc(out, func(a, b *promotion.Offer) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (p *memPromotion) GetOffer(ctx context.Context, id string) (*promotion.Offer, error) {
	defer p.lock()()
	o, ok := p.st().offers[id]
	if !ok {
		return nil, promotion.ErrOfferNotFound
	}
	return cloneOffer(o), nil
}

func (p *memPromotion) CreateOffer(ctx context.Context, o *promotion.Offer) error {
	defer p.lock()()
	p.st().offers[o.ID] = *cloneOffer(*o)
	return nil
}

func (p *memPromotion) UpdateOffer(ctx context.Context, o *promotion.Offer) error {
	defer p.lock()()
	if _, ok := p.st().offers[o.ID]; !ok {
		return promotion.ErrOfferNotFound
	}
	p.st().offers[o.ID] = *cloneOffer(*o)
	return nil
}

func (p *memPromotion) FindCoupon(ctx context.Context, code string) (*promotion.Coupon, error) {
	defer p.lock()()
	c, ok := p.st().coupons[code]
	if !ok {
		return nil, promotion.ErrCouponNotFound
	}
	return &c, nil
}

func (p *memPromotion) ListCoupons(ctx context.Context) ([]*promotion.Coupon, error) {
	defer p.lock()()
	out := make([]*promotion.Coupon, 0, len(p.st().coupons))
	for _, c := range p.st().coupons {
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *promotion.Coupon) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}

func (p *memPromotion) CreateCoupon(ctx context.Context, c *promotion.Coupon) error {
	defer p.lock()()
	if _, exists := p.st().coupons[c.Code]; exists {
		return promotion.ErrDuplicateCoupon
	}
	p.st().coupons[c.Code] = *c
	return nil
}

func (p *memPromotion) UpdateCoupon(ctx context.Context, c *promotion.Coupon) error {
	defer p.lock()()
	if _, ok := p.st().coupons[c.Code]; !ok {
		return promotion.ErrCouponNotFound
	}
	p.st().coupons[c.Code] = *c
	return nil
}

func (p *memPromotion) RedeemCoupon(ctx context.Context, code string) (bool, error) {
	defer p.lock()()
	if err := p.fault("promotion.redeem_coupon"); err != nil {
		return false, err
	}
	c, ok := p.st().coupons[code]
	if !ok || (c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit) {
		return false, nil
	}
	c.UsedCount++
	c.UpdatedAt = time.Now().UTC()
	p.st().coupons[code] = c
	return true, nil
}

// ============================================
// Carts
// ============================================

type memCarts struct{ *memRepo }

func (c *memCarts) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	defer c.lock()()
	return &cart.Cart{UserID: userID, Lines: slices.Clone(c.st().carts[userID])}, nil
}

func (c *memCarts) AddLine(ctx context.Context, userID string, line cart.Line) error {
	defer c.lock()()
	lines := slices.Clone(c.st().carts[userID])
	i := slices.IndexFunc(lines, func(l cart.Line) bool { return l.ProductID == line.ProductID })
	if i >= 0 {
		lines[i].Quantity += line.Quantity
		lines[i].PriceAtAdd = line.PriceAtAdd
	} else {
		lines = append(lines, line)
	}
	c.st().carts[userID] = lines
	return nil
}

func (c *memCarts) SetQuantity(ctx context.Context, userID, productID string, qty int) error {
	defer c.lock()()
	lines := slices.Clone(c.st().carts[userID])
	i := slices.IndexFunc(lines, func(l cart.Line) bool { return l.ProductID == productID })
	if i < 0 {
		return cart.ErrLineNotFound
	}
	lines[i].Quantity = qty
	c.st().carts[userID] = lines
	return nil
}

func (c *memCarts) RemoveLine(ctx context.Context, userID, productID string) error {
	defer c.lock()()
	lines := c.st().carts[userID]
	i := slices.IndexFunc(lines, func(l cart.Line) bool { return l.ProductID == productID })
	if i < 0 {
		return cart.ErrLineNotFound
	}
	c.st().carts[userID] = slices.Delete(slices.Clone(lines), i, i+1)
	return nil
}

func (c *memCarts) Clear(ctx context.Context, userID string) error {
	defer c.lock()()
	if err := c.fault("carts.clear"); err != nil {
		return err
	}
	delete(c.st().carts, userID)
	return nil
}

// ============================================
// Orders
// ============================================

type memOrders struct{ *memRepo }

func cloneOrder(o order.Order) *order.Order {
	o.Lines = slices.Clone(o.Lines)
	if o.Payment != nil {
		ref := *o.Payment
		o.Payment = &ref
	}
	return &o
}

func (o *memOrders) Create(ctx context.Context, ord *order.Order) error {
	defer o.lock()()
	if err := o.fault("orders.create"); err != nil {
		return err
	}
	if ord.IdempotencyKey != "" {
		for _, existing := range o.st().orders {
			if existing.UserID == ord.UserID && existing.IdempotencyKey == ord.IdempotencyKey {
				return order.ErrDuplicateOrder
			}
		}
	}
	o.st().orders[ord.ID] = *cloneOrder(*ord)
	return nil
}

func (o *memOrders) FindByID(ctx context.Context, id string) (*order.Order, error) {
	defer o.lock()()
	ord, ok := o.st().orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return cloneOrder(ord), nil
}

func (o *memOrders) FindByIdempotencyKey(ctx context.Context, userID, key string) (*order.Order, error) {
	defer o.lock()()
	for _, ord := range o.st().orders {
		if ord.UserID == userID && ord.IdempotencyKey == key {
			return cloneOrder(ord), nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (o *memOrders) ListByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	defer o.lock()()
	var out []*order.Order
	for _, ord := range o.st().orders {
		if ord.UserID == userID {
			out = append(out, cloneOrder(ord))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (o *memOrders) ListAll(ctx context.Context) ([]*order.Order, error) {
	defer o.lock()()
	out := make([]*order.Order, 0, len(o.st().orders))
	for _, ord := range o.st().orders {
		out = append(out, cloneOrder(ord))
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(orders []*order.Order) {
	slices.SortFunc(orders, func(a, b *order.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}

func (o *memOrders) UpdateStatus(ctx context.Context, id string, expected, next order.Status, at time.Time) (bool, error) {
	defer o.lock()()
	if err := o.fault("orders.update_status"); err != nil {
		return false, err
	}
	ord, ok := o.st().orders[id]
	if !ok || ord.Status != expected {
		return false, nil
	}
	ord.Status = next
	ord.UpdatedAt = at
	o.st().orders[id] = ord
	return true, nil
}

// ============================================
// Wallets
// ============================================

type memWallets struct{ *memRepo }

func (w *memWallets) Get(ctx context.Context, userID string) (*wallet.Wallet, error) {
	defer w.lock()()
	wal, ok := w.st().wallets[userID]
	if !ok {
		return nil, wallet.ErrWalletNotFound
	}
	wal.Transactions = slices.Clone(wal.Transactions)
	return &wal, nil
}

func (w *memWallets) Credit(ctx context.Context, txn wallet.Transaction) error {
	defer w.lock()()
	if err := w.fault("wallets.credit"); err != nil {
		return err
	}
	wal, ok := w.st().wallets[txn.UserID]
	if !ok {
		wal = wallet.Wallet{UserID: txn.UserID, CreatedAt: txn.CreatedAt}
	}
	wal.Balance = wal.Balance.Add(txn.Amount)
	wal.Transactions = append(slices.Clone(wal.Transactions), txn)
	wal.UpdatedAt = txn.CreatedAt
	w.st().wallets[txn.UserID] = wal
	return nil
}

func (w *memWallets) Debit(ctx context.Context, txn wallet.Transaction) (bool, error) {
	defer w.lock()()
	if err := w.fault("wallets.debit"); err != nil {
		return false, err
	}
	wal, ok := w.st().wallets[txn.UserID]
	if !ok || wal.Balance.LessThan(txn.Amount) {
		return false, nil
	}
	wal.Balance = wal.Balance.Sub(txn.Amount)
	wal.Transactions = append(slices.Clone(wal.Transactions), txn)
	wal.UpdatedAt = txn.CreatedAt
	w.st().wallets[txn.UserID] = wal
	return true, nil
}

// ============================================
// Users
// ============================================

type memUsers struct{ *memRepo }

func (u *memUsers) Create(ctx context.Context, usr *user.User) error {
	defer u.lock()()
	for _, existing := range u.st().users {
		if existing.Email == usr.Email {
			return user.ErrEmailTaken
		}
	}
	u.st().users[usr.ID] = *usr
	return nil
}

func (u *memUsers) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	defer u.lock()()
	for _, usr := range u.st().users {
		if usr.Email == email {
			return &usr, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (u *memUsers) FindByID(ctx context.Context, id string) (*user.User, error) {
	defer u.lock()()
	usr, ok := u.st().users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &usr, nil
}

func (u *memUsers) List(ctx context.Context) ([]*user.User, error) {
	defer u.lock()()
	out := make([]*user.User, 0, len(u.st().users))
	for _, usr := range u.st().users {
		out = append(out, &usr)
	}
	slices.SortFunc(out, func(a, b *user.User) int { return strings.Compare(a.Email, b.Email) })
	return out, nil
}

func (u *memUsers) update(id string, fn func(*user.User)) error {
	defer u.lock()()
	usr, ok := u.st().users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	fn(&usr)
	u.st().users[id] = usr
	return nil
}

func (u *memUsers) SetBlocked(ctx context.Context, id string, blocked bool) error {
	return u.update(id, func(usr *user.User) { usr.Blocked = blocked })
}

func (u *memUsers) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return u.update(id, func(usr *user.User) { usr.PasswordHash = passwordHash })
}

// ============================================
// Outbox
// ============================================

type memEvents struct{ *memRepo }

func (e *memEvents) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	unlock := e.lock()
	if err := e.fault("events.append"); err != nil {
		unlock()
		return nil, err
	}
	version := 1
	for _, existing := range e.st().events {
		if existing.AggregateID == aggregateID {
			version++
		}
	}
	event, err := newEvent(aggregateID, aggregateType, eventType, data, version)
	if err != nil {
		unlock()
		return nil, err
	}
	e.st().events = append(e.st().events, event)
	unlock()

	if e.inTx {
		e.pending = append(e.pending, event)
	} else {
		dispatch(ctx, e.m.pub, []Event{event})
	}
	return &event, nil
}
