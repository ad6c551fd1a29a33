package ledger

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercado-pos/domain"
	"mercado-pos/internal/database"
	"mercado-pos/internal/migrations"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "mercado.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db))
	_, err = migrations.SeedAdmin(db)
	require.NoError(t, err)
	return db
}

func seedProduct(t *testing.T, db *sqlx.DB, name, barcode string, purchase, sale float64, qty int64) int64 {
	t.Helper()
	res, err := db.Exec(`
		INSERT INTO products (name, barcode, purchase_price, profit_margin, sale_price, quantity)
		VALUES (?, ?, ?, 0, ?, ?)`, name, barcode, purchase, sale, qty)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func productQuantity(t *testing.T, db *sqlx.DB, id int64) int64 {
	t.Helper()
	var q int64
	require.NoError(t, db.Get(&q, `SELECT quantity FROM products WHERE id = ?`, id))
	return q
}

func salesCount(t *testing.T, db *sqlx.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM sales`))
	return n
}

func TestFinalizeSaleWithDiscount(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil)
	id := seedProduct(t, db, "Rice 1kg", "789100000001", 6.00, 10.00, 5)

	saleIDs, err := svc.FinalizeSale([]domain.CartItem{{
		ProductID:     id,
		Name:          "Rice 1kg",
		Barcode:       "789100000001",
		PurchasePrice: 6.00,
		SalePrice:     10.00,
		Quantity:      3,
	}}, 1, 10)
	require.NoError(t, err)
	require.Len(t, saleIDs, 1)

	var sale domain.Sale
	require.NoError(t, db.Get(&sale, `
		SELECT id, product_name, barcode, purchase_price, sale_price, quantity, total, sale_time, user_id, created_at
		FROM sales WHERE id = ?`, saleIDs[0]))
	assert.InDelta(t, 9.00, sale.SalePrice, 1e-9)
	assert.InDelta(t, 27.00, sale.Total, 1e-9)
	assert.EqualValues(t, 3, sale.Quantity)

	assert.EqualValues(t, 2, productQuantity(t, db, id))
}

func TestFinalizeSaleNoDiscountKeepsPrice(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil)
	id := seedProduct(t, db, "Beans", "789100000002", 4.50, 7.99, 10)

	_, err := svc.FinalizeSale([]domain.CartItem{{
		ProductID: id, Name: "Beans", Barcode: "789100000002",
		PurchasePrice: 4.50, SalePrice: 7.99, Quantity: 2,
	}}, 1, 0)
	require.NoError(t, err)

	var sale domain.Sale
	require.NoError(t, db.Get(&sale, `
		SELECT id, product_name, barcode, purchase_price, sale_price, quantity, total, sale_time, user_id, created_at
		FROM sales ORDER BY id DESC LIMIT 1`))
	assert.InDelta(t, 7.99, sale.SalePrice, 1e-9)
	assert.InDelta(t, 15.98, sale.Total, 1e-9)
}

func TestFinalizeSaleRollsBackWhenLaterItemLacksStock(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil)
	first := seedProduct(t, db, "Milk", "789100000003", 3.00, 5.00, 10)
	second := seedProduct(t, db, "Coffee", "789100000004", 12.00, 20.00, 1)

	_, err := svc.FinalizeSale([]domain.CartItem{
		{ProductID: first, Name: "Milk", Barcode: "789100000003", PurchasePrice: 3.00, SalePrice: 5.00, Quantity: 2},
		{ProductID: second, Name: "Coffee", Barcode: "789100000004", PurchasePrice: 12.00, SalePrice: 20.00, Quantity: 3},
	}, 1, 0)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.Contains(t, err.Error(), "Coffee")
	assert.Contains(t, err.Error(), "available 1")

	// Nothing from the failed cart may persist.
	assert.EqualValues(t, 0, salesCount(t, db))
	assert.EqualValues(t, 10, productQuantity(t, db, first))
	assert.EqualValues(t, 1, productQuantity(t, db, second))
}

func TestFinalizeSaleInsufficientStockNamesItem(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil)
	id := seedProduct(t, db, "Sugar", "789100000005", 2.00, 3.50, 2)

	_, err := svc.FinalizeSale([]domain.CartItem{{
		ProductID: id, Name: "Sugar", Barcode: "789100000005",
		PurchasePrice: 2.00, SalePrice: 3.50, Quantity: 5,
	}}, 1, 0)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.Contains(t, err.Error(), `"Sugar"`)
	assert.Contains(t, err.Error(), "available 2")
	assert.EqualValues(t, 2, productQuantity(t, db, id))
}

func TestFinalizeSaleValidation(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil)
	item := domain.CartItem{ProductID: 1, Name: "X", SalePrice: 1, PurchasePrice: 1, Quantity: 1}

	cases := []struct {
		name     string
		items    []domain.CartItem
		discount float64
	}{
		{"empty cart", nil, 0},
		{"negative discount", []domain.CartItem{item}, -1},
		{"discount above 100", []domain.CartItem{item}, 101},
		{"zero quantity", []domain.CartItem{{ProductID: 1, Name: "X", SalePrice: 1, PurchasePrice: 1, Quantity: 0}}, 0},
		{"negative price", []domain.CartItem{{ProductID: 1, Name: "X", SalePrice: -1, PurchasePrice: 1, Quantity: 1}}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.FinalizeSale(tc.items, 1, tc.discount)
			require.Error(t, err)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}
	assert.EqualValues(t, 0, salesCount(t, db))
}

func TestFinalizeSaleUnknownProduct(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil)

	_, err := svc.FinalizeSale([]domain.CartItem{{
		ProductID: 999, Name: "Ghost", SalePrice: 1, PurchasePrice: 1, Quantity: 1,
	}}, 1, 0)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.Contains(t, err.Error(), "available 0")
}

func TestCheckStock(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil)
	id := seedProduct(t, db, "Flour", "789100000006", 1.50, 2.50, 4)

	ok, current, err := svc.CheckStock(id, 4)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 4, current)

	ok, current, err = svc.CheckStock(id, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 4, current)

	_, _, err = svc.CheckStock(999, 1)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestProductByBarcode(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil)
	seedProduct(t, db, "Oil", "789100000007", 5.00, 8.90, 6)

	p, err := svc.ProductByBarcode("789100000007")
	require.NoError(t, err)
	assert.Equal(t, "Oil", p.Name)
	assert.EqualValues(t, 6, p.Quantity)

	_, err = svc.ProductByBarcode("nope")
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestTodaySalesAndSummary(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil)
	id := seedProduct(t, db, "Bread", "789100000008", 0.50, 1.00, 100)

	_, err := svc.FinalizeSale([]domain.CartItem{{
		ProductID: id, Name: "Bread", Barcode: "789100000008",
		PurchasePrice: 0.50, SalePrice: 1.00, Quantity: 10,
	}}, 1, 0)
	require.NoError(t, err)

	sales, err := svc.TodaySales(nil)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "Bread", sales[0].ProductName)

	summary, err := svc.TodaySummary()
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.TotalItems)
	assert.EqualValues(t, 10, summary.TotalQuantity)
	assert.InDelta(t, 10.00, summary.TotalRevenue, 1e-9)
	assert.InDelta(t, 5.00, summary.TotalCost, 1e-9)
	assert.InDelta(t, 5.00, summary.TotalProfit, 1e-9)
}
