package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

const (
	ShippingFlat   = "flat"
	ShippingPickup = "pickup"
)

// maxLineQuantity caps a single cart line so per-product sums cannot overflow.
const maxLineQuantity = 10000

// CheckoutLine is one cart line submitted for purchase. Price is what the client
// displayed; the catalog price is what gets charged.
type CheckoutLine struct {
	ProductID uint
	Quantity  int
	Price     decimal.Decimal
}

type AddressInput struct {
	FullName   string
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
}

func (a AddressInput) empty() bool {
	return a.FullName == "" && a.Street == "" && a.City == "" && a.PostalCode == "" && a.Country == ""
}

func (a AddressInput) complete() bool {
	return a.FullName != "" && a.Street != "" && a.City != "" && a.Country != ""
}

// CheckoutRequest is everything the checkout needs. BuyerID is the authenticated
// user, nil for anonymous buyers.
type CheckoutRequest struct {
	BuyerID  *uint
	Lines    []CheckoutLine
	Shipping string

	Email           string
	Password        string
	ConfirmPassword string

	AddressID       *uint
	Billing         AddressInput
	ShippingAddress *AddressInput
}

func (r CheckoutRequest) createsAccount() bool {
	return r.Password != "" || r.ConfirmPassword != ""
}

type CheckoutResult struct {
	Order       *models.Order
	CreatedUser *models.User
}

// CheckoutService turns a cart into an order while keeping stock consistent.
type CheckoutService struct {
	store       repositories.Store
	publisher   events.Publisher
	logger      *slog.Logger
	shippingFee decimal.Decimal
}

// NewCheckoutService creates a new CheckoutService. publisher may be nil.
func NewCheckoutService(store repositories.Store, publisher events.Publisher, logger *slog.Logger, flatShippingFee decimal.Decimal) *CheckoutService {
	return &CheckoutService{
		store:       store,
		publisher:   publisher,
		logger:      logger.With("service", "checkout"),
		shippingFee: flatShippingFee,
	}
}

// ListAddresses returns the addresses saved at the user's past checkouts, oldest first.
func (s *CheckoutService) ListAddresses(ctx context.Context, userID uint) ([]models.Address, error) {
	return s.store.Addresses().ListByUser(ctx, userID)
}

type purchase struct {
	product  models.Product
	quantity int
}

// Checkout validates the cart against stock and then, in one transaction, creates the
// account and addresses if needed, the order and its items, and takes the stock.
// Nothing is written when any step fails.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	purchases, err := s.checkStock(ctx, s.store, req.Lines)
	if err != nil {
		return nil, err
	}

	var passwordHash string
	if req.createsAccount() {
		// Hash before the transaction opens so no locks are held during bcrypt.
		if passwordHash, err = HashPassword(req.Password); err != nil {
			return nil, err
		}
	}

	result := &CheckoutResult{}
	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		buyerID := req.BuyerID

		if req.createsAccount() {
			user, err := createAccount(ctx, tx, req, passwordHash)
			if err != nil {
				return err
			}
			result.CreatedUser = user
			buyerID = &user.ID
		}

		addressID, err := resolveAddress(ctx, tx, req, buyerID, result.CreatedUser != nil)
		if err != nil {
			return err
		}

		order := &models.Order{
			BuyerID:   buyerID,
			AddressID: addressID,
			Status:    models.OrderStatusPending,
			Shipping:  req.Shipping,
			Total:     s.total(purchases, req.Shipping),
			Items:     make([]models.OrderItem, 0, len(purchases)),
		}
		for _, p := range purchases {
			order.Items = append(order.Items, models.OrderItem{
				ProductID: p.product.ID,
				Quantity:  p.quantity,
				Price:     p.product.Price,
			})
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}

		if err := takeStock(ctx, tx, purchases); err != nil {
			return err
		}

		if buyerID != nil {
			ids := make([]uint, 0, len(purchases))
			for _, p := range purchases {
				ids = append(ids, p.product.ID)
			}
			if err := tx.Carts().RemoveProducts(ctx, *buyerID, ids); err != nil {
				return err
			}
		}

		result.Order = order
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict) || errors.Is(err, ErrForbidden) {
			s.logger.Warn("checkout rejected", "error", err)
		} else {
			s.logger.Error("checkout failed, rolled back", "error", err)
		}
		return nil, err
	}

	s.logger.Info("order placed", "order_id", result.Order.ID, "reference", result.Order.Reference, "total", result.Order.Total.StringFixed(2))
	events.Emit(s.publisher, s.logger, events.OrderCreated, s.orderCreatedEvent(result, req.Email))
	return result, nil
}

func (s *CheckoutService) validate(req CheckoutRequest) error {
	if len(req.Lines) == 0 {
		return validationf("cart is empty")
	}
	for _, l := range req.Lines {
		if l.ProductID == 0 {
			return validationf("cart line is missing productId")
		}
		if l.Quantity <= 0 {
			return validationf("quantity for product %d must be positive", l.ProductID)
		}
		if l.Quantity > maxLineQuantity {
			return validationf("quantity for product %d must not exceed %d", l.ProductID, maxLineQuantity)
		}
	}

	switch req.Shipping {
	case "", ShippingFlat, ShippingPickup:
	default:
		return validationf("unknown shipping method %q", req.Shipping)
	}

	if req.createsAccount() {
		if req.BuyerID != nil {
			return validationf("already signed in, cannot create an account")
		}
		if req.Email == "" {
			return validationf("email is required to create an account")
		}
		if req.Password != req.ConfirmPassword {
			return validationf("passwords do not match")
		}
	}

	if req.AddressID != nil {
		if req.BuyerID == nil {
			return validationf("a saved address requires signing in")
		}
		return nil
	}
	if !req.Billing.complete() {
		return validationf("billing address requires name, street, city and country")
	}
	if req.ShippingAddress != nil && !req.ShippingAddress.empty() && !req.ShippingAddress.complete() {
		return validationf("shipping address requires name, street, city and country")
	}
	return nil
}

// checkStock loads every product in the cart and compares requested quantities,
// summed per product, with current stock. Purchases come back ordered by product id.
func (s *CheckoutService) checkStock(ctx context.Context, store repositories.Store, lines []CheckoutLine) ([]purchase, error) {
	order := make([]uint, 0, len(lines))
	requested := make(map[uint]int, len(lines))
	claimed := make(map[uint]decimal.Decimal, len(lines))
	for _, l := range lines {
		if _, ok := requested[l.ProductID]; !ok {
			order = append(order, l.ProductID)
			claimed[l.ProductID] = l.Price
		}
		requested[l.ProductID] += l.Quantity
	}

	products, err := store.Products().GetByIDs(ctx, order)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	purchases := make([]purchase, 0, len(order))
	var shortages []StockShortage
	for _, id := range order {
		p, ok := byID[id]
		if !ok {
			return nil, validationf("product %d is no longer available", id)
		}
		qty := requested[id]
		if qty > p.Stock {
			shortages = append(shortages, StockShortage{ProductID: id, Name: p.Name, Requested: qty, Available: p.Stock})
			continue
		}
		if price := claimed[id]; !price.IsZero() && !price.Equal(p.Price) {
			s.logger.Warn("client price differs from catalog, charging catalog price",
				"product_id", id, "client_price", price.String(), "catalog_price", p.Price.String())
		}
		purchases = append(purchases, purchase{product: p, quantity: qty})
	}
	if len(shortages) > 0 {
		return nil, &InsufficientStockError{Shortages: shortages}
	}
	// Concurrent checkouts must lock product rows in the same order.
	slices.SortFunc(purchases, func(a, b purchase) int { return cmp.Compare(a.product.ID, b.product.ID) })
	return purchases, nil
}

func (s *CheckoutService) total(purchases []purchase, shipping string) decimal.Decimal {
	total := decimal.Zero
	for _, p := range purchases {
		total = total.Add(p.product.Price.Mul(decimal.NewFromInt(int64(p.quantity))))
	}
	if shipping == ShippingFlat {
		total = total.Add(s.shippingFee)
	}
	return total.Round(2)
}

func createAccount(ctx context.Context, tx repositories.Store, req CheckoutRequest, passwordHash string) (*models.User, error) {
	existing, err := tx.Users().GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("email '%s' already registered: %w", req.Email, ErrConflict)
	}
	user := &models.User{
		Name:     req.Billing.FullName,
		Email:    req.Email,
		Password: passwordHash,
		Role:     models.RoleCustomer,
	}
	if err := tx.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// resolveAddress returns the id of the address the order ships to, creating the billing
// and, when distinct, the shipping address.
func resolveAddress(ctx context.Context, tx repositories.Store, req CheckoutRequest, buyerID *uint, newAccount bool) (uint, error) {
	if req.AddressID != nil {
		addr, err := tx.Addresses().GetByID(ctx, *req.AddressID)
		if err != nil {
			return 0, err
		}
		if addr.UserID == nil || buyerID == nil || *addr.UserID != *buyerID {
			return 0, fmt.Errorf("address %d does not belong to the buyer: %w", addr.ID, ErrForbidden)
		}
		return addr.ID, nil
	}

	billing := newAddress(req.Billing, buyerID)
	if err := tx.Addresses().Create(ctx, billing); err != nil {
		return 0, err
	}
	if newAccount {
		if err := tx.Addresses().SetDefault(ctx, *buyerID, billing.ID); err != nil {
			return 0, err
		}
	}

	if req.ShippingAddress == nil || req.ShippingAddress.empty() || sameAddress(req.Billing, *req.ShippingAddress) {
		return billing.ID, nil
	}
	shipping := newAddress(*req.ShippingAddress, buyerID)
	if err := tx.Addresses().Create(ctx, shipping); err != nil {
		return 0, err
	}
	return shipping.ID, nil
}

func newAddress(in AddressInput, userID *uint) *models.Address {
	return &models.Address{
		UserID:     userID,
		FullName:   in.FullName,
		Street:     in.Street,
		City:       in.City,
		State:      in.State,
		PostalCode: in.PostalCode,
		Country:    in.Country,
		Phone:      in.Phone,
	}
}

func sameAddress(a, b AddressInput) bool {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return norm(a.FullName) == norm(b.FullName) &&
		norm(a.Street) == norm(b.Street) &&
		norm(a.City) == norm(b.City) &&
		norm(a.State) == norm(b.State) &&
		norm(a.PostalCode) == norm(b.PostalCode) &&
		norm(a.Country) == norm(b.Country)
}

// takeStock decrements stock with a conditional update per product. A line that lost a
// race with a concurrent checkout fails the whole transaction.
func takeStock(ctx context.Context, tx repositories.Store, purchases []purchase) error {
	for _, p := range purchases {
		ok, err := tx.Products().DecrementStock(ctx, p.product.ID, p.quantity)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		available := 0
		if current, err := tx.Products().GetByID(ctx, p.product.ID); err == nil {
			available = current.Stock
		}
		return &InsufficientStockError{Shortages: []StockShortage{{
			ProductID: p.product.ID,
			Name:      p.product.Name,
			Requested: p.quantity,
			Available: available,
		}}}
	}
	return nil
}

func (s *CheckoutService) orderCreatedEvent(res *CheckoutResult, email string) events.OrderCreatedEvent {
	ev := events.OrderCreatedEvent{
		OrderID:    res.Order.ID,
		Reference:  res.Order.Reference,
		BuyerID:    res.Order.BuyerID,
		Email:      email,
		Total:      res.Order.Total,
		OccurredAt: time.Now().UTC(),
	}
	for _, it := range res.Order.Items {
		ev.Items = append(ev.Items, events.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	return ev
}
