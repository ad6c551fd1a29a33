// Package ledger commits PDV carts as sales while keeping stock
// consistent. A sale either fully lands (every record inserted, every
// decrement applied) or leaves the store untouched.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"mercado-pos/domain"
	"mercado-pos/internal/money"
)

// Service is the stock and sale ledger.
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

// ProductByBarcode looks up a product for the PDV scanner.
func (s *Service) ProductByBarcode(barcode string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.Get(&p, `
		SELECT id, name, barcode, purchase_price, profit_margin, sale_price, quantity
		FROM products
		WHERE barcode = ?`, barcode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "product not found")
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to look up product", err)
	}
	return &p, nil
}

// CheckStock reports whether required units of a product are available,
// along with the current quantity.
func (s *Service) CheckStock(productID, required int64) (bool, int64, error) {
	var current int64
	err := s.db.Get(&current, `SELECT quantity FROM products WHERE id = ?`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, domain.E(domain.KindNotFound, "product not found")
	}
	if err != nil {
		return false, 0, domain.Wrap(domain.KindInternal, "unable to check stock", err)
	}
	return current >= required, current, nil
}

// FinalizeSale commits items as one sale for userID, applying
// discountPercent to each unit price. All items succeed or none do: stock
// is re-checked per item inside the transaction, and the conditional
// decrement is the authoritative race guard. Returns the inserted sale
// record ids.
func (s *Service) FinalizeSale(items []domain.CartItem, userID int64, discountPercent float64) ([]int64, error) {
	if len(items) == 0 {
		return nil, domain.E(domain.KindValidation, "no items in sale")
	}
	if discountPercent < 0 || discountPercent > 100 {
		return nil, domain.E(domain.KindValidation, "discount must be between 0 and 100")
	}
	for _, item := range items {
		if !money.ValidQuantity(item.Quantity) {
			return nil, domain.E(domain.KindValidation,
				fmt.Sprintf("invalid quantity for %q", item.Name))
		}
		if !money.ValidMonetary(item.SalePrice) || !money.ValidMonetary(item.PurchasePrice) {
			return nil, domain.E(domain.KindValidation,
				fmt.Sprintf("invalid price for %q", item.Name))
		}
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to start sale", err)
	}
	defer tx.Rollback()

	saleTime := time.Now().Format("2006-01-02 15:04:05")
	saleIDs := make([]int64, 0, len(items))

	for _, item := range items {
		// Stock may have moved since the cart was built.
		var current int64
		err := tx.Get(&current, `SELECT quantity FROM products WHERE id = ?`, item.ProductID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindConflict, insufficientStock(item.Name, 0))
		}
		if err != nil {
			return nil, domain.Wrap(domain.KindInternal, "unable to verify stock", err)
		}
		if current < item.Quantity {
			return nil, domain.E(domain.KindConflict, insufficientStock(item.Name, current))
		}

		finalSalePrice := money.ApplyDiscount(item.SalePrice, discountPercent)
		total := money.Subtotal(finalSalePrice, item.Quantity)

		res, err := tx.Exec(`
			INSERT INTO sales (product_name, barcode, purchase_price, sale_price, quantity, total, sale_time, user_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.Name, item.Barcode, item.PurchasePrice, finalSalePrice,
			item.Quantity, total, saleTime, userID)
		if err != nil {
			return nil, domain.Wrap(domain.KindInternal, "unable to record sale", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, domain.Wrap(domain.KindInternal, "unable to record sale", err)
		}
		saleIDs = append(saleIDs, id)

		// The decrement itself guards against the race: zero rows affected
		// means someone sold the stock between the read above and here.
		res, err = tx.Exec(`
			UPDATE products
			SET quantity = quantity - ?,
			    updated_at = datetime('now', 'localtime')
			WHERE id = ? AND quantity >= ?`,
			item.Quantity, item.ProductID, item.Quantity)
		if err != nil {
			return nil, domain.Wrap(domain.KindInternal, "unable to update stock", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, domain.Wrap(domain.KindInternal, "unable to update stock", err)
		}
		if affected == 0 {
			return nil, domain.E(domain.KindConflict, insufficientStock(item.Name, current))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to finalize sale", err)
	}

	s.log.Info("sale finalized",
		zap.Int("items", len(items)),
		zap.Float64("discount_percent", discountPercent),
		zap.Int64("user_id", userID))
	return saleIDs, nil
}

// TodaySales lists today's sale records, newest first, optionally filtered
// by the user who made them.
func (s *Service) TodaySales(userID *int64) ([]domain.Sale, error) {
	query := `
		SELECT s.id, s.product_name, s.barcode, s.purchase_price, s.sale_price,
		       s.quantity, s.total, s.sale_time, s.user_id, s.created_at, u.username
		FROM sales s
		LEFT JOIN users u ON u.id = s.user_id
		WHERE DATE(s.created_at) = DATE('now', 'localtime')`
	args := []any{}
	if userID != nil {
		query += ` AND s.user_id = ?`
		args = append(args, *userID)
	}
	query += ` ORDER BY s.created_at DESC`

	sales := []domain.Sale{}
	if err := s.db.Select(&sales, query, args...); err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to list today's sales", err)
	}
	return sales, nil
}

// TodaySummary aggregates today's ledger for the PDV dashboard.
func (s *Service) TodaySummary() (domain.SalesSummary, error) {
	var sum domain.SalesSummary
	err := s.db.Get(&sum, `
		SELECT
			COUNT(*) AS total_items,
			COALESCE(SUM(quantity), 0) AS total_quantity,
			COALESCE(SUM(total), 0) AS total_revenue,
			COALESCE(SUM(purchase_price * quantity), 0) AS total_cost,
			COALESCE(SUM(total) - SUM(purchase_price * quantity), 0) AS total_profit
		FROM sales
		WHERE DATE(created_at) = DATE('now', 'localtime')`)
	if err != nil {
		return domain.SalesSummary{}, domain.Wrap(domain.KindInternal, "unable to summarize today's sales", err)
	}
	sum.TotalRevenue = money.Round(sum.TotalRevenue)
	sum.TotalCost = money.Round(sum.TotalCost)
	sum.TotalProfit = money.Round(sum.TotalProfit)
	return sum, nil
}

func insufficientStock(name string, available int64) string {
	return fmt.Sprintf("insufficient stock for %q: available %d", name, available)
}
