package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// Run creates the store schema required by the POS.
func Run(db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			full_name TEXT,
			role TEXT NOT NULL DEFAULT 'operator'
				CHECK (role IN ('admin', 'manager', 'operator')),
			is_active INTEGER NOT NULL DEFAULT 1
				CHECK (is_active IN (0, 1)),
			created_at TEXT NOT NULL DEFAULT (datetime('now', 'localtime')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now', 'localtime'))
		);`,
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			barcode TEXT UNIQUE NOT NULL,
			purchase_price REAL NOT NULL CHECK (purchase_price >= 0),
			profit_margin INTEGER NOT NULL CHECK (profit_margin >= 0),
			sale_price REAL NOT NULL CHECK (sale_price >= 0),
			quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			created_at TEXT NOT NULL DEFAULT (datetime('now', 'localtime')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now', 'localtime'))
		);`,
		`CREATE TABLE IF NOT EXISTS sales (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			product_name TEXT NOT NULL,
			barcode TEXT NOT NULL,
			purchase_price REAL NOT NULL,
			sale_price REAL NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			total REAL NOT NULL,
			sale_time TEXT NOT NULL,
			user_id INTEGER,
			created_at TEXT NOT NULL DEFAULT (datetime('now', 'localtime')),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);`,
		`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);`,
		`CREATE INDEX IF NOT EXISTS idx_products_barcode ON products(barcode);`,
		`CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);`,
		`CREATE INDEX IF NOT EXISTS idx_products_quantity ON products(quantity);`,
		`CREATE INDEX IF NOT EXISTS idx_sales_created ON sales(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sales_user ON sales(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_sales_barcode ON sales(barcode);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SeedAdmin creates the default admin/admin account on first run. Returns
// true when the account was created.
func SeedAdmin(db *sqlx.DB) (bool, error) {
	var exists bool
	if err := db.Get(&exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username = 'admin')`); err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	if exists {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), 10)
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	_, err = db.Exec(
		`INSERT INTO users (username, password_hash, full_name, role, is_active) VALUES (?, ?, ?, ?, 1)`,
		"admin", string(hash), "Administrator", "admin")
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	return true, nil
}
