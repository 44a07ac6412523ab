package services

import (
	"github.com/shopspring/decimal"
)

// CartLine is a product and a quantity. A quantity of zero or less means the line
// is to be removed.
type CartLine struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

// ProductSnapshot is the product metadata a client caches alongside its cart.
type ProductSnapshot struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// CartEntry is a line of the client's working cart: the product as the client knows it
// plus the quantity.
type CartEntry struct {
	ProductSnapshot
	Quantity int `json:"quantity"`
}

// MergeCarts reconciles the client's local cart with the persisted one.
//
// A product present on both sides keeps the larger of the two quantities. A product
// only in the persisted cart is added using its snapshot from backup and dropped when
// backup has no snapshot for it. Local order is kept and persisted-only lines follow
// in persisted order. Merging the result again with the same persisted cart is a no-op.
func MergeCarts(local []CartEntry, persisted []CartLine, backup []ProductSnapshot) []CartEntry {
	merged := NormalizeEntries(local)
	index := make(map[uint]int, len(merged))
	for i, e := range merged {
		index[e.ID] = i
	}

	snapshots := make(map[uint]ProductSnapshot, len(backup))
	for _, p := range backup {
		snapshots[p.ID] = p
	}

	for _, line := range persisted {
		if line.Quantity <= 0 {
			continue
		}
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity = max(merged[i].Quantity, line.Quantity)
			continue
		}
		snap, ok := snapshots[line.ProductID]
		if !ok {
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, CartEntry{ProductSnapshot: snap, Quantity: line.Quantity})
	}
	return merged
}

// NormalizeEntries drops non-positive quantities and folds repeated products into
// their first occurrence, keeping the larger quantity.
func NormalizeEntries(entries []CartEntry) []CartEntry {
	out := make([]CartEntry, 0, len(entries))
	seen := make(map[uint]int, len(entries))
	for _, e := range entries {
		if e.Quantity <= 0 || e.ID == 0 {
			continue
		}
		if i, ok := seen[e.ID]; ok {
			out[i].Quantity = max(out[i].Quantity, e.Quantity)
			continue
		}
		seen[e.ID] = len(out)
		out = append(out, e)
	}
	return out
}

// NormalizeLines drops non-positive quantities; for repeated products the last line wins.
func NormalizeLines(lines []CartLine) []CartLine {
	out := make([]CartLine, 0, len(lines))
	seen := make(map[uint]int, len(lines))
	for _, l := range lines {
		if i, ok := seen[l.ProductID]; ok {
			out[i].Quantity = l.Quantity
			continue
		}
		seen[l.ProductID] = len(out)
		out = append(out, l)
	}
	kept := out[:0]
	for _, l := range out {
		if l.Quantity > 0 {
			kept = append(kept, l)
		}
	}
	return kept
}

func linesOf(entries []CartEntry) []CartLine {
	lines := make([]CartLine, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, CartLine{ProductID: e.ID, Quantity: e.Quantity})
	}
	return lines
}
