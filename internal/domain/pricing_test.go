package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestEffectivePrice(t *testing.T) {
	sale := dec("120")
	higher := dec("200")
	zero := decimal.Zero

	cases := []struct {
		name string
		sale *decimal.Decimal
		want string
	}{
		{name: "no sale", sale: nil, want: "150"},
		{name: "sale below original", sale: &sale, want: "120"},
		{name: "sale above original", sale: &higher, want: "150"},
		{name: "zero sale", sale: &zero, want: "150"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EffectivePrice(dec("150"), tc.sale)
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestProductSnapshotDefaultsMinOrder(t *testing.T) {
	product := Product{
		ID:            "alphonso",
		Name:          "Alphonso",
		OriginalPrice: dec("180"),
		StockKg:       dec("2.5"),
	}

	snap := product.Snapshot()
	if !snap.MinOrderKg.Equal(DefaultMinOrderKg) {
		t.Fatalf("expected default min order %s, got %s", DefaultMinOrderKg, snap.MinOrderKg)
	}
	if snap.InStock {
		t.Fatalf("expected out of stock when stock below minimum")
	}

	product.StockKg = dec("3")
	if !product.Snapshot().InStock {
		t.Fatalf("expected in stock when stock equals minimum")
	}
}

func TestProductSnapshotValid(t *testing.T) {
	if (ProductSnapshot{ID: "p", Name: "n"}).Valid() {
		t.Fatalf("expected snapshot without price to be invalid")
	}
	snap := ProductSnapshot{ID: "p", Name: "n", OriginalPrice: dec("90")}
	if !snap.Valid() {
		t.Fatalf("expected snapshot deriving price from original to be valid")
	}
	if !snap.Price().Equal(dec("90")) {
		t.Fatalf("unexpected derived price %s", snap.Price())
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, ok := ParseOrderStatus(" out_for_delivery ")
	if !ok || status != OrderStatusOutForDelivery {
		t.Fatalf("expected OUT_FOR_DELIVERY, got %q (%v)", status, ok)
	}
	if _, ok := ParseOrderStatus("LOST"); ok {
		t.Fatalf("expected unknown status to fail")
	}
	if !OrderStatusCancelled.Terminal() || OrderStatusShipped.Terminal() {
		t.Fatalf("unexpected terminal flags")
	}
}

func TestOrderCloneDoesNotAliasItems(t *testing.T) {
	order := Order{Items: []OrderItem{{ProductName: "Alphonso", PricePerKg: dec("100")}}}
	cloned := order.Clone()
	cloned.Items[0].PricePerKg = dec("1")
	if !order.Items[0].PricePerKg.Equal(dec("100")) {
		t.Fatalf("clone mutated original items")
	}
}
