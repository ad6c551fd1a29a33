package domain

// Product is a catalog entry. SalePrice is always derived from
// PurchasePrice and ProfitMargin; it is never edited independently.
type Product struct {
	ID            int64   `db:"id" json:"id"`
	Name          string  `db:"name" json:"name"`
	Barcode       string  `db:"barcode" json:"barcode"`
	PurchasePrice float64 `db:"purchase_price" json:"purchase_price"`
	ProfitMargin  int64   `db:"profit_margin" json:"profit_margin"`
	SalePrice     float64 `db:"sale_price" json:"sale_price"`
	Quantity      int64   `db:"quantity" json:"quantity"`
	CreatedAt     string  `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt     string  `db:"updated_at" json:"updated_at,omitempty"`
}

// CartItem is one line of a PDV cart. Prices are snapshotted when the
// operator scans the product, so a concurrent catalog edit never reprices
// an open cart.
type CartItem struct {
	ProductID     int64   `json:"product_id"`
	Name          string  `json:"name"`
	Barcode       string  `json:"barcode"`
	PurchasePrice float64 `json:"purchase_price"`
	SalePrice     float64 `json:"sale_price"`
	Quantity      int64   `json:"quantity"`
}
