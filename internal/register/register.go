// Package register closes the cash register: it aggregates the open sales
// ledger and purges it atomically, "ending the day's till".
package register

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"mercado-pos/domain"
	"mercado-pos/internal/money"
)

// Service is the cash register closer.
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

// AllSales lists every record in the open ledger, oldest first, with the
// per-row profit computed.
func (s *Service) AllSales() ([]domain.Sale, error) {
	sales := []domain.Sale{}
	err := s.db.Select(&sales, `
		SELECT id, product_name, barcode, purchase_price, sale_price,
		       quantity, total, sale_time, user_id, created_at
		FROM sales
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to list sales", err)
	}
	for i := range sales {
		sales[i].Profit = money.Profit(sales[i].SalePrice, sales[i].PurchasePrice, sales[i].Quantity)
	}
	return sales, nil
}

// Summary aggregates the open ledger. An empty ledger returns all zeros.
func (s *Service) Summary() (domain.SalesSummary, error) {
	var sum domain.SalesSummary
	err := s.db.Get(&sum, `
		SELECT
			COUNT(*) AS total_items,
			COALESCE(SUM(quantity), 0) AS total_quantity,
			COALESCE(SUM(total), 0) AS total_revenue,
			COALESCE(SUM(purchase_price * quantity), 0) AS total_cost,
			COALESCE(SUM(total) - SUM(purchase_price * quantity), 0) AS total_profit
		FROM sales`)
	if err != nil {
		return domain.SalesSummary{}, domain.Wrap(domain.KindInternal, "unable to summarize sales", err)
	}
	sum.TotalRevenue = money.Round(sum.TotalRevenue)
	sum.TotalCost = money.Round(sum.TotalCost)
	sum.TotalProfit = money.Round(sum.TotalProfit)
	return sum, nil
}

// Count returns the number of records in the open ledger.
func (s *Service) Count() (int64, error) {
	var n int64
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM sales`); err != nil {
		return 0, domain.Wrap(domain.KindInternal, "unable to count sales", err)
	}
	return n, nil
}

// Close computes the summary, then deletes every sale record inside one
// transaction. Refuses to close an empty register. On any failure the
// ledger is left untouched.
func (s *Service) Close() (*domain.CloseResult, error) {
	summary, err := s.Summary()
	if err != nil {
		return nil, err
	}
	if summary.TotalItems == 0 {
		return nil, domain.E(domain.KindConflict, "nothing to close")
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to close register", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM sales`)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to close register", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to close register", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.Wrap(domain.KindInternal, "unable to close register", err)
	}

	s.log.Info("cash register closed",
		zap.Int64("deleted_records", deleted),
		zap.Float64("total_revenue", summary.TotalRevenue))
	return &domain.CloseResult{Summary: summary, DeletedRecords: deleted}, nil
}
