package infrastructure

import (
	"context"
	stderrors "errors"

	gosqlmysql "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopcore/internal/store/domain"
)

const mysqlDupEntry = 1062

// GormStore is the production implementation of domain.Store. Every unit
// of work maps to one database transaction; row locks inside it come from
// FOR UPDATE reads.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r domain.Repos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormRepos{tx: tx})
	})
}

type gormRepos struct {
	tx *gorm.DB
}

func (r *gormRepos) Customers() domain.CustomerRepository { return &gormCustomers{tx: r.tx} }
func (r *gormRepos) Products() domain.ProductRepository   { return &gormProducts{tx: r.tx} }
func (r *gormRepos) Skus() domain.SkuRepository           { return &gormSkus{tx: r.tx} }
func (r *gormRepos) Carts() domain.CartRepository         { return &gormCarts{tx: r.tx} }
func (r *gormRepos) Orders() domain.OrderRepository       { return &gormOrders{tx: r.tx} }

func isDupEntry(err error) bool {
	var myErr *gosqlmysql.MySQLError
	return stderrors.As(err, &myErr) && myErr.Number == mysqlDupEntry
}

type gormCustomers struct{ tx *gorm.DB }

func (g *gormCustomers) Find(ctx context.Context, id uint) (*domain.Customer, error) {
	var c domain.Customer
	err := g.tx.WithContext(ctx).First(&c, id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find customer")
	}
	return &c, nil
}

type gormProducts struct{ tx *gorm.DB }

func (g *gormProducts) Find(ctx context.Context, id uint) (*domain.Product, error) {
	var p domain.Product
	err := g.tx.WithContext(ctx).First(&p, id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Errorf("product %d not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "find product")
	}
	return &p, nil
}

func (g *gormProducts) IncrementSold(ctx context.Context, id uint, n int) error {
	err := g.tx.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", id).
		Update("sold", gorm.Expr("sold + ?", n)).Error
	return errors.Wrap(err, "increment sold")
}

type gormSkus struct{ tx *gorm.DB }

func (g *gormSkus) Find(ctx context.Context, id uint) (*domain.Sku, error) {
	return g.find(ctx, id, false)
}

// FindForUpdate takes a row lock so concurrent stock adjustments on the
// same SKU serialize at the database.
func (g *gormSkus) FindForUpdate(ctx context.Context, id uint) (*domain.Sku, error) {
	return g.find(ctx, id, true)
}

func (g *gormSkus) find(ctx context.Context, id uint, lock bool) (*domain.Sku, error) {
	tx := g.tx.WithContext(ctx)
	if lock {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var sku domain.Sku
	err := tx.First(&sku, id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.SkuNotFoundError{SkuID: id}
	}
	if err != nil {
		return nil, errors.Wrap(err, "find sku")
	}
	return &sku, nil
}

func (g *gormSkus) UpdateQuantity(ctx context.Context, id uint, quantity int) error {
	err := g.tx.WithContext(ctx).Model(&domain.Sku{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
	return errors.Wrap(err, "update sku quantity")
}

type gormCarts struct{ tx *gorm.DB }

func (g *gormCarts) EnsureCart(ctx context.Context, customerID uint) (*domain.Cart, error) {
	cart, err := g.FindCart(ctx, customerID)
	if err == nil {
		return cart, nil
	}
	if !stderrors.Is(err, domain.ErrCartItemNotFound) {
		return nil, err
	}
	fresh := &domain.Cart{CustomerID: customerID}
	if err := g.tx.WithContext(ctx).Create(fresh).Error; err != nil {
		if isDupEntry(err) {
			// Lost a create race; the winner's cart serves.
			return g.FindCart(ctx, customerID)
		}
		return nil, errors.Wrap(err, "create cart")
	}
	return fresh, nil
}

func (g *gormCarts) FindCart(ctx context.Context, customerID uint) (*domain.Cart, error) {
	var cart domain.Cart
	err := g.tx.WithContext(ctx).Where("customer_id = ?", customerID).First(&cart).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCartItemNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find cart")
	}
	return &cart, nil
}

func (g *gormCarts) Line(ctx context.Context, cartID, skuID uint) (*domain.CartLine, error) {
	var line domain.CartLine
	err := g.tx.WithContext(ctx).
		Where("cart_id = ? AND sku_id = ?", cartID, skuID).
		First(&line).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCartItemNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find cart line")
	}
	return &line, nil
}

func (g *gormCarts) Lines(ctx context.Context, cartID uint) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	err := g.tx.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at").
		Find(&lines).Error
	return lines, errors.Wrap(err, "list cart lines")
}

func (g *gormCarts) SaveLine(ctx context.Context, line *domain.CartLine) error {
	var err error
	if line.ID == 0 {
		err = g.tx.WithContext(ctx).Create(line).Error
		if isDupEntry(err) {
			return domain.ErrCartLineExists
		}
	} else {
		err = g.tx.WithContext(ctx).Save(line).Error
	}
	return errors.Wrap(err, "save cart line")
}

func (g *gormCarts) DeleteLine(ctx context.Context, cartID, skuID uint) error {
	err := g.tx.WithContext(ctx).
		Where("cart_id = ? AND sku_id = ?", cartID, skuID).
		Delete(&domain.CartLine{}).Error
	return errors.Wrap(err, "delete cart line")
}

func (g *gormCarts) DeleteLines(ctx context.Context, cartID uint, skuIDs []uint) error {
	if len(skuIDs) == 0 {
		return nil
	}
	err := g.tx.WithContext(ctx).
		Where("cart_id = ? AND sku_id IN ?", cartID, skuIDs).
		Delete(&domain.CartLine{}).Error
	return errors.Wrap(err, "delete cart lines")
}

type gormOrders struct{ tx *gorm.DB }

func (g *gormOrders) Create(ctx context.Context, order *domain.Order) error {
	err := g.tx.WithContext(ctx).Omit(clause.Associations).Create(order).Error
	return errors.Wrap(err, "create order")
}

func (g *gormOrders) CreateLines(ctx context.Context, lines []domain.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	err := g.tx.WithContext(ctx).Create(&lines).Error
	return errors.Wrap(err, "create order lines")
}

func (g *gormOrders) Find(ctx context.Context, id uint) (*domain.Order, error) {
	return g.find(ctx, id, false)
}

func (g *gormOrders) FindForUpdate(ctx context.Context, id uint) (*domain.Order, error) {
	return g.find(ctx, id, true)
}

func (g *gormOrders) find(ctx context.Context, id uint, lock bool) (*domain.Order, error) {
	tx := g.tx.WithContext(ctx)
	if lock {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order domain.Order
	err := tx.First(&order, id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find order")
	}
	return &order, nil
}

func (g *gormOrders) FindByCustomer(ctx context.Context, customerID uint) ([]domain.Order, error) {
	var orders []domain.Order
	err := g.tx.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, errors.Wrap(err, "list orders")
}

func (g *gormOrders) Lines(ctx context.Context, orderID uint) ([]domain.OrderLine, error) {
	var lines []domain.OrderLine
	err := g.tx.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&lines).Error
	return lines, errors.Wrap(err, "list order lines")
}

func (g *gormOrders) Save(ctx context.Context, order *domain.Order) error {
	err := g.tx.WithContext(ctx).Omit(clause.Associations).Save(order).Error
	return errors.Wrap(err, "save order")
}
