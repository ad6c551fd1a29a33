// Package money centralizes monetary arithmetic for the POS. Every price,
// discount and total goes through Round so repeated operations never
// accumulate floating-point drift.
package money

import "math"

// Round rounds to two decimal places, half away from zero, on a x100
// integer scale.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

// SalePrice derives the catalog sale price from the purchase price and an
// integer profit margin percentage.
func SalePrice(purchasePrice float64, profitMargin int64) float64 {
	return Round(purchasePrice * (1 + float64(profitMargin)/100))
}

// Subtotal computes the line total for one cart item.
func Subtotal(salePrice float64, quantity int64) float64 {
	if salePrice <= 0 || quantity <= 0 {
		return 0
	}
	return Round(salePrice * float64(quantity))
}

// ApplyDiscount reduces a unit price by discountPercent.
func ApplyDiscount(salePrice, discountPercent float64) float64 {
	if discountPercent <= 0 {
		return salePrice
	}
	return Round(salePrice * (1 - discountPercent/100))
}

// Profit is the rounded margin earned over quantity units.
func Profit(salePrice, purchasePrice float64, quantity int64) float64 {
	return Round((salePrice - purchasePrice) * float64(quantity))
}

// Value bounds match the original register limits.
const maxMonetary = 1_000_000

// ValidMonetary reports whether v is usable as a price or total.
func ValidMonetary(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v < maxMonetary
}

// ValidQuantity reports whether q is usable as a stock or sale quantity.
func ValidQuantity(q int64) bool {
	return q > 0 && q < maxMonetary
}

// ValidMargin reports whether m is a usable profit margin percentage.
func ValidMargin(m int64) bool {
	return m >= 0 && m <= 1000
}
