package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// CartService owns the persisted cart and its reconciliation with client carts.
type CartService struct {
	store  repositories.Store
	logger *slog.Logger
}

// NewCartService creates a new CartService.
func NewCartService(store repositories.Store, logger *slog.Logger) *CartService {
	return &CartService{store: store, logger: logger.With("service", "cart")}
}

// MergeResult is the outcome of a login-time merge. When Merged is false, Cart is the
// client's own cart, unchanged.
type MergeResult struct {
	Merged bool        `json:"merged"`
	Cart   []CartEntry `json:"cart"`
}

// GetCart returns the user's persisted cart lines.
func (s *CartService) GetCart(ctx context.Context, userID uint) ([]CartLine, error) {
	items, err := s.store.Carts().GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines := make([]CartLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, CartLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines, nil
}

// UpdateCart makes the persisted cart match lines exactly. Lines with a non-positive
// quantity are removals; for a repeated product the last line wins. Lines for products
// missing from the catalog are dropped.
func (s *CartService) UpdateCart(ctx context.Context, userID uint, lines []CartLine) ([]CartLine, error) {
	for _, l := range lines {
		if l.ProductID == 0 {
			return nil, validationf("cart line is missing productId")
		}
		if l.Quantity > maxLineQuantity {
			return nil, validationf("quantity for product %d must not exceed %d", l.ProductID, maxLineQuantity)
		}
	}
	lines = NormalizeLines(lines)

	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	catalog, err := catalogOf(ctx, s.store, ids)
	if err != nil {
		return nil, err
	}
	kept := make([]CartLine, 0, len(lines))
	for _, l := range lines {
		if _, ok := catalog[l.ProductID]; !ok {
			s.logger.Info("dropping cart line for unknown product", "user_id", userID, "product_id", l.ProductID)
			continue
		}
		kept = append(kept, l)
	}

	if err := s.store.Carts().Replace(ctx, userID, toCartItems(kept)); err != nil {
		return nil, err
	}
	return kept, nil
}

// MergeCart reconciles the client's pre-login cart with the persisted cart, at most once
// per session. The session flag, the read and the write share one transaction: if any
// step fails nothing is written, the flag stays unset and the client keeps its cart.
func (s *CartService) MergeCart(ctx context.Context, userID uint, sessionID string, local []CartEntry, backup []ProductSnapshot) (MergeResult, error) {
	unchanged := MergeResult{Merged: false, Cart: NormalizeEntries(local)}
	if sessionID == "" {
		return unchanged, validationf("cart merge requires a session")
	}

	var result MergeResult
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		claimed, err := tx.Sessions().ClaimCartMerge(ctx, sessionID, userID)
		if err != nil {
			return err
		}
		if !claimed {
			result = unchanged
			return nil
		}

		items, err := tx.Carts().GetByUser(ctx, userID)
		if err != nil {
			return err
		}
		persisted := make([]CartLine, 0, len(items))
		for _, it := range items {
			persisted = append(persisted, CartLine{ProductID: it.ProductID, Quantity: it.Quantity})
		}

		local, backup, err := resolveCatalog(ctx, tx, local, persisted, backup)
		if err != nil {
			return err
		}

		merged := MergeCarts(local, persisted, backup)
		if err := tx.Carts().Replace(ctx, userID, toCartItems(linesOf(merged))); err != nil {
			return err
		}
		result = MergeResult{Merged: true, Cart: merged}
		return nil
	})
	if err != nil {
		s.logger.Error("cart merge failed, keeping client cart", "user_id", userID, "session_id", sessionID, "error", err)
		return unchanged, fmt.Errorf("cart merge: %w", err)
	}

	if result.Merged {
		s.logger.Info("cart merged", "user_id", userID, "session_id", sessionID, "lines", len(result.Cart))
	} else {
		s.logger.Debug("cart already merged for session", "user_id", userID, "session_id", sessionID)
	}
	return result, nil
}

// resolveCatalog checks the merge inputs against the catalog. Local entries and backup
// snapshots for products that no longer exist are dropped, and persisted-only lines the
// client has no metadata for get a catalog snapshot. Persisted lines whose product is
// gone end up with no snapshot and are dropped by the merge.
func resolveCatalog(ctx context.Context, store repositories.Store, local []CartEntry, persisted []CartLine, backup []ProductSnapshot) ([]CartEntry, []ProductSnapshot, error) {
	ids := make([]uint, 0, len(local)+len(persisted)+len(backup))
	for _, e := range local {
		ids = append(ids, e.ID)
	}
	for _, l := range persisted {
		ids = append(ids, l.ProductID)
	}
	for _, p := range backup {
		ids = append(ids, p.ID)
	}
	catalog, err := catalogOf(ctx, store, ids)
	if err != nil {
		return nil, nil, err
	}

	known := make(map[uint]bool, len(local)+len(backup))
	keptLocal := make([]CartEntry, 0, len(local))
	for _, e := range local {
		if _, ok := catalog[e.ID]; ok {
			keptLocal = append(keptLocal, e)
			known[e.ID] = true
		}
	}
	snapshots := make([]ProductSnapshot, 0, len(backup)+len(persisted))
	for _, p := range backup {
		if _, ok := catalog[p.ID]; ok && !known[p.ID] {
			snapshots = append(snapshots, p)
			known[p.ID] = true
		}
	}
	for _, l := range persisted {
		if p, ok := catalog[l.ProductID]; ok && !known[l.ProductID] {
			snapshots = append(snapshots, snapshotOf(p))
			known[l.ProductID] = true
		}
	}
	return keptLocal, snapshots, nil
}

// catalogOf returns the existing products among ids, keyed by id.
func catalogOf(ctx context.Context, store repositories.Store, ids []uint) (map[uint]models.Product, error) {
	unique := slices.Compact(slices.Sorted(slices.Values(ids)))
	products, err := store.Products().GetByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	catalog := make(map[uint]models.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}
	return catalog, nil
}

func snapshotOf(p models.Product) ProductSnapshot {
	return ProductSnapshot{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
	}
}

func toCartItems(lines []CartLine) []models.CartItem {
	items := make([]models.CartItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.CartItem{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return items
}
