package domain

// Sale is a denormalized snapshot of product pricing at the moment of the
// sale. Rows are immutable once inserted; only the cash register close
// removes them, in bulk.
type Sale struct {
	ID            int64   `db:"id" json:"id"`
	ProductName   string  `db:"product_name" json:"product_name"`
	Barcode       string  `db:"barcode" json:"barcode"`
	PurchasePrice float64 `db:"purchase_price" json:"purchase_price"`
	SalePrice     float64 `db:"sale_price" json:"sale_price"`
	Quantity      int64   `db:"quantity" json:"quantity"`
	Total         float64 `db:"total" json:"total"`
	SaleTime      string  `db:"sale_time" json:"sale_time"`
	UserID        *int64  `db:"user_id" json:"user_id,omitempty"`
	Username      *string `db:"username" json:"username,omitempty"`
	CreatedAt     string  `db:"created_at" json:"created_at"`
	Profit        float64 `db:"-" json:"profit,omitempty"`
}

// SalesSummary aggregates the open ledger. All monetary fields are rounded
// to two decimals; an empty ledger yields the zero value, not an error.
type SalesSummary struct {
	TotalItems    int64   `db:"total_items" json:"total_items"`
	TotalQuantity int64   `db:"total_quantity" json:"total_quantity"`
	TotalRevenue  float64 `db:"total_revenue" json:"total_revenue"`
	TotalCost     float64 `db:"total_cost" json:"total_cost"`
	TotalProfit   float64 `db:"total_profit" json:"total_profit"`
}

// CloseResult is returned by a successful cash register close: the summary
// computed immediately before the purge plus the number of rows deleted.
type CloseResult struct {
	Summary        SalesSummary `json:"summary"`
	DeletedRecords int64        `json:"deleted_records"`
}
