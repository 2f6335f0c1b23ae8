package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/catalog"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/promotion"
	"github.com/example/storefront/internal/domain/user"
	"github.com/example/storefront/internal/domain/wallet"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// Postgres is the production Backend. Every conditional write is a single
// UPDATE guarded by its precondition, so concurrent transactions cannot
// oversell stock, overdraw a wallet or double-apply a status change.
type Postgres struct {
	db  *sqlx.DB
	pub Publisher
}

func NewPostgres(db *sqlx.DB, pub Publisher) *Postgres {
	return &Postgres{db: db, pub: pub}
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Repositories() Repositories {
	return p.repos(&pgRepo{q: p.db, pub: p.pub})
}

func (p *Postgres) WithinTx(ctx context.Context, fn func(repos Repositories) error) (err error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	r := &pgRepo{q: tx, inTx: true}
	if err := fn(p.repos(r)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	dispatch(ctx, p.pub, r.pending)
	return nil
}

func (p *Postgres) repos(r *pgRepo) Repositories {
	return Repositories{
		Catalog:   &pgCatalog{r},
		Promotion: &pgPromotion{r},
		Carts:     &pgCarts{r},
		Orders:    &pgOrders{r},
		Wallets:   &pgWallets{r},
		Users:     &pgUsers{r},
		Events:    &pgEvents{r},
	}
}

type pgRepo struct {
	q       sqlx.ExtContext
	pub     Publisher
	inTx    bool
	pending []Event
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ============================================
// Catalog
// ============================================

type pgCatalog struct{ *pgRepo }

const productColumns = `id, name, description, category_id, price, stock_quantity, active, created_at, updated_at`

func (c *pgCatalog) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	var p catalog.Product
	err := sqlx.GetContext(ctx, c.q, &p, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &p, nil
}

func (c *pgCatalog) ListProducts(ctx context.Context) ([]*catalog.Product, error) {
	var out []*catalog.Product
	if err := sqlx.SelectContext(ctx, c.q, &out, `SELECT `+productColumns+` FROM products ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func (c *pgCatalog) CreateProduct(ctx context.Context, p *catalog.Product) error {
	_, err := sqlx.NamedExecContext(ctx, c.q, `
		INSERT INTO products (`+productColumns+`)
		VALUES (:id, :name, :description, :category_id, :price, :stock_quantity, :active, :created_at, :updated_at)`, p)
	if isUniqueViolation(err) {
		return catalog.ErrDuplicateProduct
	}
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (c *pgCatalog) UpdateProduct(ctx context.Context, p *catalog.Product) error {
	res, err := sqlx.NamedExecContext(ctx, c.q, `
		UPDATE products
		SET name = :name, description = :description, category_id = :category_id,
		    price = :price, active = :active, updated_at = :updated_at
		WHERE id = :id`, p)
	if isUniqueViolation(err) {
		return catalog.ErrDuplicateProduct
	}
	if err != nil {
		return fmt.Errorf("update product %s: %w", p.ID, err)
	}
	if ok, err := affected(res); err != nil {
		return err
	} else if !ok {
		return catalog.ErrProductNotFound
	}
	return nil
}

func (c *pgCatalog) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	res, err := c.q.ExecContext(ctx,
		`UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = $3
		 WHERE id = $2 AND stock_quantity >= $1`,
		qty, productID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("decrement stock for %s: %w", productID, err)
	}
	return affected(res)
}

func (c *pgCatalog) IncrementStock(ctx context.Context, productID string, qty int) error {
	res, err := c.q.ExecContext(ctx,
		`UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = $3 WHERE id = $2`,
		qty, productID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("increment stock for %s: %w", productID, err)
	}
	if ok, err := affected(res); err != nil {
		return err
	} else if !ok {
		return catalog.ErrProductNotFound
	}
	return nil
}

func (c *pgCatalog) GetCategory(ctx context.Context, id string) (*catalog.Category, error) {
	var cat catalog.Category
	err := sqlx.GetContext(ctx, c.q, &cat, `SELECT id, name, active, created_at, updated_at FROM categories WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category %s: %w", id, err)
	}
	return &cat, nil
}

func (c *pgCatalog) ListCategories(ctx context.Context) ([]*catalog.Category, error) {
	var out []*catalog.Category
	if err := sqlx.SelectContext(ctx, c.q, &out, `SELECT id, name, active, created_at, updated_at FROM categories ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (c *pgCatalog) CreateCategory(ctx context.Context, cat *catalog.Category) error {
	_, err := sqlx.NamedExecContext(ctx, c.q, `
		INSERT INTO categories (id, name, active, created_at, updated_at)
		VALUES (:id, :name, :active, :created_at, :updated_at)`, cat)
	if isUniqueViolation(err) {
		return catalog.ErrDuplicateCategory
	}
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (c *pgCatalog) UpdateCategory(ctx context.Context, cat *catalog.Category) error {
	res, err := sqlx.NamedExecContext(ctx, c.q, `
		UPDATE categories SET name = :name, active = :active, updated_at = :updated_at WHERE id = :id`, cat)
	if isUniqueViolation(err) {
		return catalog.ErrDuplicateCategory
	}
	if err != nil {
		return fmt.Errorf("update category %s: %w", cat.ID, err)
	}
	if ok, err := affected(res); err != nil {
		return err
	} else if !ok {
		return catalog.ErrCategoryNotFound
	}
	return nil
}

// ============================================
// Promotions
// ============================================

type pgPromotion struct{ *pgRepo }

type offerRow struct {
	ID                 string          `db:"id"`
	Name               string          `db:"name"`
	DiscountPercentage decimal.Decimal `db:"discount_percentage"`
	Scope              string          `db:"scope"`
	ProductIDs         pq.StringArray  `db:"product_ids"`
	CategoryIDs        pq.StringArray  `db:"category_ids"`
	StartsAt           time.Time       `db:"starts_at"`
	EndsAt             time.Time       `db:"ends_at"`
	Active             bool            `db:"active"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

func (r offerRow) toOffer() *promotion.Offer {
	return &promotion.Offer{
		ID:                 r.ID,
		Name:               r.Name,
		DiscountPercentage: r.DiscountPercentage,
		Scope:              promotion.Scope(r.Scope),
		ProductIDs:         []string(r.ProductIDs),
		CategoryIDs:        []string(r.CategoryIDs),
		StartsAt:           r.StartsAt,
		EndsAt:             r.EndsAt,
		Active:             r.Active,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func toOfferRow(o *promotion.Offer) offerRow {
	return offerRow{
		ID:                 o.ID,
		Name:               o.Name,
		DiscountPercentage: o.DiscountPercentage,
		Scope:              string(o.Scope),
		ProductIDs:         pq.StringArray(o.ProductIDs),
		CategoryIDs:        pq.StringArray(o.CategoryIDs),
		StartsAt:           o.StartsAt,
		EndsAt:             o.EndsAt,
		Active:             o.Active,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

const offerColumns = `id, name, discount_percentage, scope, product_ids, category_ids, starts_at, ends_at, active, created_at, updated_at`

func (p *pgPromotion) selectOffers(ctx context.Context, query string, args ...any) ([]*promotion.Offer, error) {
	var rows []offerRow
	if err := sqlx.SelectContext(ctx, p.q, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*promotion.Offer, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toOffer())
	}
	return out, nil
}

func (p *pgPromotion) FindActiveOffers(ctx context.Context, productID, categoryID string, now time.Time) ([]*promotion.Offer, error) {
	offers, err := p.selectOffers(ctx, `
		SELECT `+offerColumns+` FROM offers
		WHERE active AND starts_at <= $3 AND ends_at >= $3
		  AND ((scope = 'product' AND $1 = ANY(product_ids))
		    OR (scope = 'category' AND $2 <> '' AND $2 = ANY(category_ids)))
		ORDER BY id`, productID, categoryID, now)
	if err != nil {
		return nil, fmt.Errorf("find offers for %s: %w", productID, err)
	}
	return offers, nil
}

func (p *pgPromotion) ListOffers(ctx context.Context) ([]*promotion.Offer, error) {
	offers, err := p.selectOffers(ctx, `SELECT `+offerColumns+` FROM offers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	return offers, nil
}

func (p *pgPromotion) GetOffer(ctx context.Context, id string) (*promotion.Offer, error) {
	offers, err := p.selectOffers(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get offer %s: %w", id, err)
	}
	if len(offers) == 0 {
		return nil, promotion.ErrOfferNotFound
	}
	return offers[0], nil
}

func (p *pgPromotion) CreateOffer(ctx context.Context, o *promotion.Offer) error {
	_, err := sqlx.NamedExecContext(ctx, p.q, `
		INSERT INTO offers (`+offerColumns+`)
		VALUES (:id, :name, :discount_percentage, :scope, :product_ids, :category_ids, :starts_at, :ends_at, :active, :created_at, :updated_at)`,
		toOfferRow(o))
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	return nil
}

func (p *pgPromotion) UpdateOffer(ctx context.Context, o *promotion.Offer) error {
	res, err := sqlx.NamedExecContext(ctx, p.q, `
		UPDATE offers
		SET name = :name, discount_percentage = :discount_percentage, scope = :scope,
		    product_ids = :product_ids, category_ids = :category_ids,
		    starts_at = :starts_at, ends_at = :ends_at, active = :active, updated_at = :updated_at
		WHERE id = :id`, toOfferRow(o))
	if err != nil {
		return fmt.Errorf("update offer %s: %w", o.ID, err)
	}
	if ok, err := affected(res); err != nil {
		return err
	} else if !ok {
		return promotion.ErrOfferNotFound
	}
	return nil
}

type couponRow struct {
	ID                 string          `db:"id"`
	Code               string          `db:"code"`
	DiscountPercentage decimal.Decimal `db:"discount_percentage"`
	MinPurchaseAmount  decimal.Decimal `db:"min_purchase_amount"`
	MaxDiscountAmount  decimal.Decimal `db:"max_discount_amount"`
	StartsAt           time.Time       `db:"starts_at"`
	ExpiresAt          time.Time       `db:"expires_at"`
	UsageLimit         int             `db:"usage_limit"`
	UsedCount          int             `db:"used_count"`
	Active             bool            `db:"active"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

func (r couponRow) toCoupon() *promotion.Coupon {
	c := promotion.Coupon(r)
	return &c
}

const couponColumns = `id, code, discount_percentage, min_purchase_amount, max_discount_amount, starts_at, expires_at, usage_limit, used_count, active, created_at, updated_at`

func (p *pgPromotion) FindCoupon(ctx context.Context, code string) (*promotion.Coupon, error) {
	var row couponRow
	err := sqlx.GetContext(ctx, p.q, &row, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, promotion.ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find coupon %s: %w", code, err)
	}
	return row.toCoupon(), nil
}

func (p *pgPromotion) ListCoupons(ctx context.Context) ([]*promotion.Coupon, error) {
	var rows []couponRow
	if err := sqlx.SelectContext(ctx, p.q, &rows, `SELECT `+couponColumns+` FROM coupons ORDER BY code`); err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	out := make([]*promotion.Coupon, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toCoupon())
	}
	return out, nil
}

func (p *pgPromotion) CreateCoupon(ctx context.Context, c *promotion.Coupon) error {
	_, err := sqlx.NamedExecContext(ctx, p.q, `
		INSERT INTO coupons (`+couponColumns+`)
		VALUES (:id, :code, :discount_percentage, :min_purchase_amount, :max_discount_amount,
		        :starts_at, :expires_at, :usage_limit, :used_count, :active, :created_at, :updated_at)`,
		couponRow(*c))
	if isUniqueViolation(err) {
		return promotion.ErrDuplicateCoupon
	}
	if err != nil {
		return fmt.Errorf("create coupon: %w", err)
	}
	return nil
}

func (p *pgPromotion) UpdateCoupon(ctx context.Context, c *promotion.Coupon) error {
	res, err := sqlx.NamedExecContext(ctx, p.q, `
		UPDATE coupons
		SET discount_percentage = :discount_percentage, min_purchase_amount = :min_purchase_amount,
		    max_discount_amount = :max_discount_amount, starts_at = :starts_at, expires_at = :expires_at,
		    usage_limit = :usage_limit, active = :active, updated_at = :updated_at
		WHERE code = :code`, couponRow(*c))
	if err != nil {
		return fmt.Errorf("update coupon %s: %w", c.Code, err)
	}
	if ok, err := affected(res); err != nil {
		return err
	} else if !ok {
		return promotion.ErrCouponNotFound
	}
	return nil
}

func (p *pgPromotion) RedeemCoupon(ctx context.Context, code string) (bool, error) {
	res, err := p.q.ExecContext(ctx, `
		UPDATE coupons SET used_count = used_count + 1, updated_at = $2
		WHERE code = $1 AND (usage_limit = 0 OR used_count < usage_limit)`,
		code, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("redeem coupon %s: %w", code, err)
	}
	return affected(res)
}

// ============================================
// Carts
// ============================================

type pgCarts struct{ *pgRepo }

func (c *pgCarts) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	lines := []cart.Line{}
	err := sqlx.SelectContext(ctx, c.q, &lines, `
		SELECT product_id, quantity, price_at_add, added_at
		FROM cart_lines WHERE user_id = $1 ORDER BY added_at, product_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart for %s: %w", userID, err)
	}
	return &cart.Cart{UserID: userID, Lines: lines}, nil
}

func (c *pgCarts) AddLine(ctx context.Context, userID string, line cart.Line) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO cart_lines (user_id, product_id, quantity, price_at_add, added_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, product_id) DO UPDATE
		SET quantity = cart_lines.quantity + EXCLUDED.quantity, price_at_add = EXCLUDED.price_at_add`,
		userID, line.ProductID, line.Quantity, line.PriceAtAdd, line.AddedAt)
	if err != nil {
		return fmt.Errorf("add cart line: %w", err)
	}
	return nil
}

func (c *pgCarts) SetQuantity(ctx context.Context, userID, productID string, qty int) error {
	res, err := c.q.ExecContext(ctx,
		`UPDATE cart_lines SET quantity = $3 WHERE user_id = $1 AND product_id = $2`,
		userID, productID, qty)
	if err != nil {
		return fmt.Errorf("set cart quantity: %w", err)
	}
	if ok, err := affected(res); err != nil {
		return err
	} else if !ok {
		return cart.ErrLineNotFound
	}
	return nil
}

func (c *pgCarts) RemoveLine(ctx context.Context, userID, productID string) error {
	res, err := c.q.ExecContext(ctx,
		`DELETE FROM cart_lines WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}
	if ok, err := affected(res); err != nil {
		return err
	} else if !ok {
		return cart.ErrLineNotFound
	}
	return nil
}

func (c *pgCarts) Clear(ctx context.Context, userID string) error {
	if _, err := c.q.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// ============================================
// Orders
// ============================================

type pgOrders struct{ *pgRepo }

type orderRow struct {
	ID                string          `db:"id"`
	UserID            string          `db:"user_id"`
	Lines             string          `db:"lines"`
	OriginalPrice     decimal.Decimal `db:"original_price"`
	Subtotal          decimal.Decimal `db:"subtotal"`
	CouponCode        string          `db:"coupon_code"`
	CouponDiscount    decimal.Decimal `db:"coupon_discount"`
	TotalPrice        decimal.Decimal `db:"total_price"`
	ShippingAddressID string          `db:"shipping_address_id"`
	PaymentMethod     string          `db:"payment_method"`
	Payment           sql.NullString  `db:"payment"`
	IdempotencyKey    string          `db:"idempotency_key"`
	Status            string          `db:"status"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

func (r orderRow) toOrder() (*order.Order, error) {
	o := &order.Order{
		ID:                r.ID,
		UserID:            r.UserID,
		OriginalPrice:     r.OriginalPrice,
		Subtotal:          r.Subtotal,
		CouponCode:        r.CouponCode,
		CouponDiscount:    r.CouponDiscount,
		TotalPrice:        r.TotalPrice,
		ShippingAddressID: r.ShippingAddressID,
		PaymentMethod:     order.PaymentMethod(r.PaymentMethod),
		IdempotencyKey:    r.IdempotencyKey,
		Status:            order.Status(r.Status),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(r.Lines), &o.Lines); err != nil {
		return nil, fmt.Errorf("decode lines of order %s: %w", r.ID, err)
	}
	if r.Payment.Valid {
		o.Payment = &order.PaymentReference{}
		if err := json.Unmarshal([]byte(r.Payment.String), o.Payment); err != nil {
			return nil, fmt.Errorf("decode payment of order %s: %w", r.ID, err)
		}
	}
	return o, nil
}

func toOrderRow(o *order.Order) (orderRow, error) {
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return orderRow{}, err
	}
	var payment sql.NullString
	if o.Payment != nil {
		raw, err := json.Marshal(o.Payment)
		if err != nil {
			return orderRow{}, err
		}
		payment = sql.NullString{String: string(raw), Valid: true}
	}
	return orderRow{
		ID:                o.ID,
		UserID:            o.UserID,
		Lines:             string(lines),
		OriginalPrice:     o.OriginalPrice,
		Subtotal:          o.Subtotal,
		CouponCode:        o.CouponCode,
		CouponDiscount:    o.CouponDiscount,
		TotalPrice:        o.TotalPrice,
		ShippingAddressID: o.ShippingAddressID,
		PaymentMethod:     string(o.PaymentMethod),
		Payment:           payment,
		IdempotencyKey:    o.IdempotencyKey,
		Status:            string(o.Status),
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}, nil
}

const orderColumns = `id, user_id, lines, original_price, subtotal, coupon_code, coupon_discount, total_price,
	shipping_address_id, payment_method, payment, idempotency_key, status, created_at, updated_at`

func (o *pgOrders) selectOrders(ctx context.Context, query string, args ...any) ([]*order.Order, error) {
	var rows []orderRow
	if err := sqlx.SelectContext(ctx, o.q, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*order.Order, 0, len(rows))
	for _, r := range rows {
		ord, err := r.toOrder()
		if err != nil {
			return nil, err
		}
		out = append(out, ord)
	}
	return out, nil
}

func (o *pgOrders) Create(ctx context.Context, ord *order.Order) error {
	row, err := toOrderRow(ord)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", ord.ID, err)
	}
	_, err = sqlx.NamedExecContext(ctx, o.q, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (:id, :user_id, :lines, :original_price, :subtotal, :coupon_code, :coupon_discount, :total_price,
		        :shipping_address_id, :payment_method, :payment, :idempotency_key, :status, :created_at, :updated_at)`, row)
	if isUniqueViolation(err) {
		return order.ErrDuplicateOrder
	}
	if err != nil {
		return fmt.Errorf("create order %s: %w", ord.ID, err)
	}
	return nil
}

func (o *pgOrders) FindByID(ctx context.Context, id string) (*order.Order, error) {
	orders, err := o.selectOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", id, err)
	}
	if len(orders) == 0 {
		return nil, order.ErrOrderNotFound
	}
	return orders[0], nil
}

func (o *pgOrders) FindByIdempotencyKey(ctx context.Context, userID, key string) (*order.Order, error) {
	orders, err := o.selectOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND idempotency_key = $2`, userID, key)
	if err != nil {
		return nil, fmt.Errorf("find order by idempotency key: %w", err)
	}
	if len(orders) == 0 {
		return nil, order.ErrOrderNotFound
	}
	return orders[0], nil
}

func (o *pgOrders) ListByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	orders, err := o.selectOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for %s: %w", userID, err)
	}
	return orders, nil
}

func (o *pgOrders) ListAll(ctx context.Context) ([]*order.Order, error) {
	orders, err := o.selectOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (o *pgOrders) UpdateStatus(ctx context.Context, id string, expected, next order.Status, at time.Time) (bool, error) {
	res, err := o.q.ExecContext(ctx,
		`UPDATE orders SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, string(expected), string(next), at)
	if err != nil {
		return false, fmt.Errorf("update status of order %s: %w", id, err)
	}
	return affected(res)
}

// ============================================
// Wallets
// ============================================

type pgWallets struct{ *pgRepo }

func (w *pgWallets) Get(ctx context.Context, userID string) (*wallet.Wallet, error) {
	var row struct {
		UserID    string          `db:"user_id"`
		Balance   decimal.Decimal `db:"balance"`
		CreatedAt time.Time       `db:"created_at"`
		UpdatedAt time.Time       `db:"updated_at"`
	}
	err := sqlx.GetContext(ctx, w.q, &row,
		`SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wallet.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet for %s: %w", userID, err)
	}

	txns := []wallet.Transaction{}
	err = sqlx.SelectContext(ctx, w.q, &txns, `
		SELECT id, user_id, amount, type, reason, order_id, created_at
		FROM wallet_transactions WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list wallet transactions for %s: %w", userID, err)
	}

	return &wallet.Wallet{
		UserID:       row.UserID,
		Balance:      row.Balance,
		Transactions: txns,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

func (w *pgWallets) insertTransaction(ctx context.Context, txn wallet.Transaction) error {
	_, err := sqlx.NamedExecContext(ctx, w.q, `
		INSERT INTO wallet_transactions (id, user_id, amount, type, reason, order_id, created_at)
		VALUES (:id, :user_id, :amount, :type, :reason, :order_id, :created_at)`, txn)
	if err != nil {
		return fmt.Errorf("record wallet transaction: %w", err)
	}
	return nil
}

// Credit must run inside a transaction so the balance and its log move together.
func (w *pgWallets) Credit(ctx context.Context, txn wallet.Transaction) error {
	_, err := w.q.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = wallets.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at`,
		txn.UserID, txn.Amount, txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("credit wallet for %s: %w", txn.UserID, err)
	}
	return w.insertTransaction(ctx, txn)
}

func (w *pgWallets) Debit(ctx context.Context, txn wallet.Transaction) (bool, error) {
	res, err := w.q.ExecContext(ctx, `
		UPDATE wallets SET balance = balance - $2, updated_at = $3
		WHERE user_id = $1 AND balance >= $2`,
		txn.UserID, txn.Amount, txn.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("debit wallet for %s: %w", txn.UserID, err)
	}
	ok, err := affected(res)
	if err != nil || !ok {
		return false, err
	}
	return true, w.insertTransaction(ctx, txn)
}

// ============================================
// Users
// ============================================

type pgUsers struct{ *pgRepo }

const userColumns = `id, email, password_hash, name, role, blocked, created_at`

func (u *pgUsers) Create(ctx context.Context, usr *user.User) error {
	_, err := sqlx.NamedExecContext(ctx, u.q, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :email, :password_hash, :name, :role, :blocked, :created_at)`, usr)
	if isUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (u *pgUsers) find(ctx context.Context, where string, arg any) (*user.User, error) {
	var usr user.User
	err := sqlx.GetContext(ctx, u.q, &usr, `SELECT `+userColumns+` FROM users WHERE `+where+` = $1`, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &usr, nil
}

func (u *pgUsers) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return u.find(ctx, "email", email)
}

func (u *pgUsers) FindByID(ctx context.Context, id string) (*user.User, error) {
	return u.find(ctx, "id", id)
}

func (u *pgUsers) List(ctx context.Context) ([]*user.User, error) {
	var users []*user.User
	if err := sqlx.SelectContext(ctx, u.q, &users, `SELECT `+userColumns+` FROM users ORDER BY email`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (u *pgUsers) update(ctx context.Context, query string, args ...any) error {
	res, err := u.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (u *pgUsers) SetBlocked(ctx context.Context, id string, blocked bool) error {
	return u.update(ctx, `UPDATE users SET blocked = $2 WHERE id = $1`, id, blocked)
}

func (u *pgUsers) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return u.update(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
}

// ============================================
// Outbox
// ============================================

type pgEvents struct{ *pgRepo }

// Append stores an event in the events table. Outside a transaction it is
// published straight away.
func (e *pgEvents) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	var currentVersion int
	err := sqlx.GetContext(ctx, e.q, &currentVersion,
		"SELECT COALESCE(MAX(version), 0) FROM events WHERE aggregate_id = $1", aggregateID)
	if err != nil {
		return nil, fmt.Errorf("next event version: %w", err)
	}

	event, err := newEvent(aggregateID, aggregateType, eventType, data, currentVersion+1)
	if err != nil {
		return nil, err
	}

	_, err = e.q.ExecContext(ctx,
		`INSERT INTO events (id, aggregate_id, aggregate_type, event_type, data, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID,
		event.AggregateID,
		event.AggregateType,
		event.EventType,
		string(event.Data),
		event.Version,
		event.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}

	if e.inTx {
		e.pending = append(e.pending, event)
	} else {
		dispatch(ctx, e.pub, []Event{event})
	}
	return &event, nil
}
