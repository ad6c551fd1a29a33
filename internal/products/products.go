// Package products manages the catalog. The sale price is always derived
// from the purchase price and profit margin; callers never set it
// directly.
package products

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"mercado-pos/domain"
	"mercado-pos/internal/money"
)

// Input is the operator-editable part of a product.
type Input struct {
	Name          string  `json:"name"`
	Barcode       string  `json:"barcode"`
	PurchasePrice float64 `json:"purchase_price"`
	ProfitMargin  int64   `json:"profit_margin"`
	Quantity      int64   `json:"quantity"`
}

// Service manages product records.
type Service struct {
	db  *sqlx.DB
	log *zap.Logger
}

// New constructs a Service.
func New(db *sqlx.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log}
}

const productColumns = `id, name, barcode, purchase_price, profit_margin, sale_price, quantity, created_at, updated_at`

// List returns products ordered by name, optionally filtered by a search
// term matched against name and barcode.
func (s *Service) List(search string, limit, offset int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	out := []domain.Product{}
	var err error
	if term := strings.TrimSpace(search); term != "" {
		like := "%" + term + "%"
		err = s.db.Select(&out, `
			SELECT `+productColumns+` FROM products
			WHERE name LIKE ? OR barcode LIKE ?
			ORDER BY name ASC LIMIT ? OFFSET ?`, like, like, limit, offset)
	} else {
		err = s.db.Select(&out, `
			SELECT `+productColumns+` FROM products
			ORDER BY name ASC LIMIT ? OFFSET ?`, limit, offset)
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to list products", err)
	}
	return out, nil
}

// Count returns how many products match the search term.
func (s *Service) Count(search string) (int64, error) {
	var n int64
	var err error
	if term := strings.TrimSpace(search); term != "" {
		like := "%" + term + "%"
		err = s.db.Get(&n, `SELECT COUNT(*) FROM products WHERE name LIKE ? OR barcode LIKE ?`, like, like)
	} else {
		err = s.db.Get(&n, `SELECT COUNT(*) FROM products`)
	}
	if err != nil {
		return 0, domain.Wrap(domain.KindInternal, "unable to count products", err)
	}
	return n, nil
}

// Get returns one product by id.
func (s *Service) Get(id int64) (*domain.Product, error) {
	var p domain.Product
	err := s.db.Get(&p, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "product not found")
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to load product", err)
	}
	return &p, nil
}

// GetByBarcode returns one product by barcode.
func (s *Service) GetByBarcode(barcode string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.Get(&p, `SELECT `+productColumns+` FROM products WHERE barcode = ?`, strings.TrimSpace(barcode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "product not found")
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to load product", err)
	}
	return &p, nil
}

// Create inserts a new product with its derived sale price.
func (s *Service) Create(in Input) (*domain.Product, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	barcode := strings.TrimSpace(in.Barcode)
	if exists, err := s.barcodeExists(barcode, 0); err != nil {
		return nil, err
	} else if exists {
		return nil, domain.E(domain.KindConflict, "a product with this barcode already exists")
	}

	salePrice := money.SalePrice(in.PurchasePrice, in.ProfitMargin)
	res, err := s.db.Exec(`
		INSERT INTO products (name, barcode, purchase_price, profit_margin, sale_price, quantity)
		VALUES (?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(in.Name), barcode, in.PurchasePrice, in.ProfitMargin, salePrice, in.Quantity)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to create product", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to create product", err)
	}
	s.log.Info("product created", zap.Int64("id", id), zap.String("barcode", barcode))
	return s.Get(id)
}

// Update rewrites a product, recomputing the sale price from the new
// purchase price and margin.
func (s *Service) Update(id int64, in Input) (*domain.Product, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	if err := validate(in); err != nil {
		return nil, err
	}
	barcode := strings.TrimSpace(in.Barcode)
	if exists, err := s.barcodeExists(barcode, id); err != nil {
		return nil, err
	} else if exists {
		return nil, domain.E(domain.KindConflict, "a product with this barcode already exists")
	}

	salePrice := money.SalePrice(in.PurchasePrice, in.ProfitMargin)
	_, err := s.db.Exec(`
		UPDATE products
		SET name = ?, barcode = ?, purchase_price = ?, profit_margin = ?,
		    sale_price = ?, quantity = ?, updated_at = datetime('now', 'localtime')
		WHERE id = ?`,
		strings.TrimSpace(in.Name), barcode, in.PurchasePrice, in.ProfitMargin, salePrice, in.Quantity, id)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to update product", err)
	}
	s.log.Info("product updated", zap.Int64("id", id))
	return s.Get(id)
}

// AdjustQuantity changes stock by delta (positive restock, negative
// correction). A negative delta uses the same conditional guard as the
// ledger so stock can never go below zero.
func (s *Service) AdjustQuantity(id, delta int64) (*domain.Product, error) {
	if delta == 0 {
		return s.Get(id)
	}
	var res sql.Result
	var err error
	if delta > 0 {
		res, err = s.db.Exec(`
			UPDATE products
			SET quantity = quantity + ?, updated_at = datetime('now', 'localtime')
			WHERE id = ?`, delta, id)
	} else {
		res, err = s.db.Exec(`
			UPDATE products
			SET quantity = quantity + ?, updated_at = datetime('now', 'localtime')
			WHERE id = ? AND quantity >= ?`, delta, id, -delta)
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to adjust stock", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to adjust stock", err)
	}
	if affected == 0 {
		p, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		return nil, domain.E(domain.KindConflict,
			fmt.Sprintf("insufficient stock for %q: available %d", p.Name, p.Quantity))
	}
	return s.Get(id)
}

// Delete removes a product. Past sales keep their denormalized snapshot.
func (s *Service) Delete(id int64) error {
	p, err := s.Get(id)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM products WHERE id = ?`, id); err != nil {
		return domain.Wrap(domain.KindInternal, "unable to delete product", err)
	}
	s.log.Info("product deleted", zap.Int64("id", id), zap.String("name", p.Name))
	return nil
}

// LowStock lists products at or below threshold, lowest first.
func (s *Service) LowStock(threshold int64) ([]domain.Product, error) {
	if threshold <= 0 {
		threshold = 5
	}
	out := []domain.Product{}
	err := s.db.Select(&out, `
		SELECT `+productColumns+` FROM products
		WHERE quantity <= ?
		ORDER BY quantity ASC, name ASC`, threshold)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to list low stock", err)
	}
	return out, nil
}

func (s *Service) barcodeExists(barcode string, excludeID int64) (bool, error) {
	var n int64
	err := s.db.Get(&n, `SELECT COUNT(*) FROM products WHERE barcode = ? AND id != ?`, barcode, excludeID)
	if err != nil {
		return false, domain.Wrap(domain.KindInternal, "unable to check barcode", err)
	}
	return n > 0, nil
}

func validate(in Input) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.E(domain.KindValidation, "name is required")
	}
	if strings.TrimSpace(in.Barcode) == "" {
		return domain.E(domain.KindValidation, "barcode is required")
	}
	if !money.ValidMonetary(in.PurchasePrice) {
		return domain.E(domain.KindValidation, "invalid purchase price")
	}
	if !money.ValidMargin(in.ProfitMargin) {
		return domain.E(domain.KindValidation, "profit margin must be between 0 and 1000")
	}
	if in.Quantity < 0 {
		return domain.E(domain.KindValidation, "quantity cannot be negative")
	}
	return nil
}
