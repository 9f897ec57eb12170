package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultMinOrderKg is applied to products stored without an explicit floor.
var DefaultMinOrderKg = decimal.NewFromInt(3)

// EffectivePrice returns the sale price when it is set and undercuts the original price.
func EffectivePrice(original decimal.Decimal, sale *decimal.Decimal) decimal.Decimal {
	if sale != nil && sale.IsPositive() && sale.LessThan(original) {
		return *sale
	}
	return original
}

// NormaliseMinOrder falls back to DefaultMinOrderKg for unset or non-positive floors.
func NormaliseMinOrder(minOrder decimal.Decimal) decimal.Decimal {
	if !minOrder.IsPositive() {
		return DefaultMinOrderKg
	}
	return minOrder
}

// EffectivePrice returns the price charged per kg right now.
func (p Product) EffectivePrice() decimal.Decimal {
	return EffectivePrice(p.OriginalPrice, p.SalePrice)
}

// InStock reports whether at least one minimum order can be fulfilled from stock.
func (p Product) InStock() bool {
	return p.StockKg.GreaterThanOrEqual(NormaliseMinOrder(p.MinOrderKg))
}

// Snapshot projects the product into the read model used by clients.
func (p Product) Snapshot() ProductSnapshot {
	snap := ProductSnapshot{
		ID:             p.ID,
		Name:           p.Name,
		Variety:        p.Variety,
		ImageURL:       p.ImageURL,
		OriginalPrice:  p.OriginalPrice,
		EffectivePrice: p.EffectivePrice(),
		StockKg:        p.StockKg,
		MinOrderKg:     NormaliseMinOrder(p.MinOrderKg),
		InStock:        p.InStock(),
		Special:        p.Special,
	}
	if p.SalePrice != nil {
		sale := *p.SalePrice
		snap.SalePrice = &sale
	}
	return snap
}

// Valid reports whether the snapshot carries enough data to be put in a cart.
func (s ProductSnapshot) Valid() bool {
	if strings.TrimSpace(s.ID) == "" || strings.TrimSpace(s.Name) == "" {
		return false
	}
	return s.Price().IsPositive()
}

// Price returns the effective price, deriving it when a snapshot omits it.
func (s ProductSnapshot) Price() decimal.Decimal {
	if s.EffectivePrice.IsPositive() {
		return s.EffectivePrice
	}
	return EffectivePrice(s.OriginalPrice, s.SalePrice)
}

// LineTotal computes price × quantity rounded to paise.
func LineTotal(pricePerKg, quantityKg decimal.Decimal) decimal.Decimal {
	return pricePerKg.Mul(quantityKg).Round(2)
}

// FormatKg renders a kilogram quantity without trailing zeros ("3", "2.5").
func FormatKg(qty decimal.Decimal) string {
	return qty.String()
}
