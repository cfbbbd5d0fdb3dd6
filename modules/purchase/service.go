package purchase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/example/storefront/domain/apperror"
	domaincatalog "github.com/example/storefront/domain/catalog"
	"github.com/example/storefront/domain/page"
	domain "github.com/example/storefront/domain/purchase"
	domainuser "github.com/example/storefront/domain/user"
	"github.com/example/storefront/modules/receipt"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
)

// maxReferenceAttempts bounds retries on reference collisions.
const maxReferenceAttempts = 3

// CheckoutInput holds the caller supplied checkout fields.
type CheckoutInput struct {
	CartID          string
	ShippingAddress string
	PaymentMethod   string
	PaymentAccount  string
}

// PurchaseUpdate holds optional purchase edits. Nil fields are left untouched.
type PurchaseUpdate struct {
	ShippingAddress *string
	PaymentMethod   *string
	PaymentAccount  *string
}

// ListInput selects a page of purchases.
type ListInput struct {
	UserID string
	Status string
	Offset int
	Limit  int
	Sort   string
	Order  string
}

// PurchaseService runs checkout and the purchase state machine.
type PurchaseService struct {
	repo      *Repository
	hasher    *AccountHasher
	reference func() string
	receipts  receipt.ReceiptPort
	logger    types.Logger
}

// NewPurchaseService creates a new PurchaseService. receipts may be nil, in
// which case payments report a receipt error.
func NewPurchaseService(repo *Repository, hasher *AccountHasher, reference func() string, receipts receipt.ReceiptPort, logger types.Logger) *PurchaseService {
	return &PurchaseService{
		repo:      repo,
		hasher:    hasher,
		reference: reference,
		receipts:  receipts,
		logger:    logger,
	}
}

// Checkout turns the caller's cart into a pending purchase. Payment fields are
// validated before anything is written; stock, purchase and cart changes
// commit together or not at all.
func (s *PurchaseService) Checkout(ctx context.Context, actor domainuser.Claims, in CheckoutInput) (*domain.Purchase, error) {
	if actor.UserID == "" {
		return nil, apperror.New(apperror.KindUnauthorized, "authentication required")
	}

	details := domain.PaymentDetails{
		Method:          domain.PaymentMethod(in.PaymentMethod),
		Account:         in.PaymentAccount,
		ShippingAddress: in.ShippingAddress,
	}.Normalize()
	if err := details.Validate(); err != nil {
		return nil, err
	}

	accountHash, err := s.hasher.Hash(details.Account)
	if err != nil {
		return nil, apperror.Internal("failed to hash payment account", err)
	}

	p := &domain.Purchase{
		ID:                  uuid.New().String(),
		UserID:              actor.UserID,
		Status:              domain.StatusPending,
		ShippingAddress:     details.ShippingAddress,
		PaymentMethod:       details.Method,
		PaymentAccountHash:  accountHash,
		PaymentAccountLast4: domain.Last4(details.Account),
	}

	err = s.repo.Transaction(ctx, func(tx *Repository) error {
		cartID, err := s.resolveCart(ctx, tx, actor.UserID, strings.TrimSpace(in.CartID))
		if err != nil {
			return err
		}

		rows, err := tx.CheckoutRows(ctx, cartID)
		if err != nil {
			return apperror.Internal("failed to load cart lines", err)
		}
		if len(rows) == 0 {
			return apperror.New(apperror.KindEmptyCart, "cart is empty")
		}
		for _, row := range rows {
			if row.Lifecycle == nil || *row.Lifecycle != domaincatalog.LifecycleActive || !row.Price.Valid {
				return apperror.Newf(apperror.KindInvalidState, "product %s is no longer available", row.ProductID)
			}
		}

		lines := make([]domain.Line, 0, len(rows))
		for _, row := range rows {
			ok, err := tx.DecrementStock(ctx, row.ProductID, row.Quantity)
			if err != nil {
				return apperror.Internal("failed to reserve stock", err)
			}
			if !ok {
				return apperror.Newf(apperror.KindConflict, "insufficient stock for %q", *row.Name)
			}
			lines = append(lines, domain.NewLine(row.ProductID, *row.Name, row.Quantity, row.Price.Decimal.Round(2)))
		}
		p.Lines = lines
		p.Total = domain.Total(lines)

		if err := s.insert(ctx, tx, p); err != nil {
			return err
		}

		deleted, err := tx.DeleteCartLines(ctx, cartID)
		if err != nil {
			return apperror.Internal("failed to clear cart", err)
		}
		if deleted == 0 {
			return apperror.New(apperror.KindEmptyCart, "cart is empty")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PurchaseService) resolveCart(ctx context.Context, tx *Repository, userID, cartID string) (string, error) {
	if cartID == "" {
		c, err := tx.FindCartByUser(ctx, userID)
		if errors.Is(err, ErrCartNotFound) {
			return "", apperror.New(apperror.KindNotFound, "cart not found")
		}
		if err != nil {
			return "", apperror.Internal("failed to load cart", err)
		}
		return c.ID, nil
	}

	c, err := tx.FindCart(ctx, cartID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		return "", apperror.Internal("failed to load cart", err)
	}
	// Foreign carts are reported as missing.
	if c == nil || c.UserID != userID {
		return "", apperror.New(apperror.KindNotFound, "cart not found")
	}
	return c.ID, nil
}

func (s *PurchaseService) insert(ctx context.Context, tx *Repository, p *domain.Purchase) error {
	for attempt := 1; ; attempt++ {
		p.Reference = s.reference()
		err := tx.Create(ctx, p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateReference) || attempt == maxReferenceAttempts {
			return apperror.Internal("failed to create purchase", err)
		}
	}
}

// Cancel moves a pending purchase to canceled and returns its lines to stock.
func (s *PurchaseService) Cancel(ctx context.Context, actor domainuser.Claims, id string) (*domain.Purchase, error) {
	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		p, err := s.load(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if err := p.Status.CanCancel(); err != nil {
			return err
		}

		ok, err := tx.Transition(ctx, p.ID, domain.StatusPending, domain.StatusCanceled, map[string]any{"canceled_at": time.Now()})
		if err != nil {
			return apperror.Internal("failed to cancel purchase", err)
		}
		if !ok {
			return s.transitionLost(ctx, tx, p.ID, domain.Status.CanCancel)
		}

		for _, l := range p.Lines {
			if err := tx.IncrementStock(ctx, l.ProductID, l.Quantity); err != nil {
				return apperror.Internal("failed to restock product", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

// PayResult is the outcome of a payment. ReceiptErr is set when the purchase
// was paid but its receipt could not be produced.
type PayResult struct {
	Purchase   *domain.Purchase
	ReceiptErr error
}

// Pay moves a pending purchase to paid, then renders its receipt. A receipt
// failure does not undo the payment.
func (s *PurchaseService) Pay(ctx context.Context, actor domainuser.Claims, id string) (*PayResult, error) {
	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		p, err := s.load(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if err := p.Status.CanPay(); err != nil {
			return err
		}
		ok, err := tx.Transition(ctx, p.ID, domain.StatusPending, domain.StatusPaid, map[string]any{"paid_at": time.Now()})
		if err != nil {
			return apperror.Internal("failed to pay purchase", err)
		}
		if !ok {
			return s.transitionLost(ctx, tx, p.ID, domain.Status.CanPay)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &PayResult{Purchase: p}
	if err := s.storeReceipt(ctx, p); err != nil {
		s.logger.WithError(err).Error("Receipt generation failed", "purchase_id", p.ID)
		result.ReceiptErr = err
	}
	return result, nil
}

// Update edits the shipping and payment fields of a pending purchase. The
// payment fields are checked with the checkout rules; totals never change.
func (s *PurchaseService) Update(ctx context.Context, actor domainuser.Claims, id string, upd PurchaseUpdate) (*domain.Purchase, error) {
	p, err := s.load(ctx, s.repo, actor, id)
	if err != nil {
		return nil, err
	}
	if err := p.Status.CanEdit(); err != nil {
		return nil, err
	}

	details := domain.PaymentDetails{Method: p.PaymentMethod, ShippingAddress: p.ShippingAddress}
	if upd.ShippingAddress != nil {
		details.ShippingAddress = *upd.ShippingAddress
	}
	if upd.PaymentMethod != nil {
		details.Method = domain.PaymentMethod(*upd.PaymentMethod)
	}
	if upd.PaymentAccount != nil {
		details.Account = *upd.PaymentAccount
	}
	details = details.Normalize()

	fields := map[string]any{}
	switch {
	case upd.PaymentAccount != nil:
		if err := details.Validate(); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(details.Account)
		if err != nil {
			return nil, apperror.Internal("failed to hash payment account", err)
		}
		fields["payment_account_hash"] = hash
		fields["payment_account_last4"] = domain.Last4(details.Account)
	case !details.Method.IsValid():
		return nil, apperror.New(apperror.KindInvalidInput, "payment_method must be credit_card or paypal")
	case details.Method != p.PaymentMethod:
		return nil, apperror.New(apperror.KindInvalidInput, "payment_account is required when changing payment_method")
	case details.ShippingAddress == "":
		return nil, apperror.New(apperror.KindInvalidInput, "shipping_address is required")
	}
	fields["payment_method"] = details.Method
	fields["shipping_address"] = details.ShippingAddress

	ok, err := s.repo.UpdatePending(ctx, p.ID, fields)
	if err != nil {
		return nil, apperror.Internal("failed to update purchase", err)
	}
	if !ok {
		return nil, s.transitionLost(ctx, s.repo, p.ID, domain.Status.CanEdit)
	}
	return s.reload(ctx, id)
}

// Get returns a purchase visible to the caller.
func (s *PurchaseService) Get(ctx context.Context, actor domainuser.Claims, id string) (*domain.Purchase, error) {
	return s.load(ctx, s.repo, actor, id)
}

// List returns a page of purchases. Clients only ever see their own.
func (s *PurchaseService) List(ctx context.Context, actor domainuser.Claims, in ListInput) ([]domain.Purchase, int64, int, int, error) {
	if actor.UserID == "" {
		return nil, 0, 0, 0, apperror.New(apperror.KindUnauthorized, "authentication required")
	}

	status := domain.Status(strings.TrimSpace(in.Status))
	if status != "" && !status.IsValid() {
		return nil, 0, 0, 0, apperror.Newf(apperror.KindInvalidInput, "unknown status %q", in.Status)
	}
	if in.Sort != "" {
		if _, ok := purchaseSortColumns[in.Sort]; !ok {
			return nil, 0, 0, 0, apperror.Newf(apperror.KindInvalidInput, "unsupported sort field %q", in.Sort)
		}
	}
	switch strings.ToLower(in.Order) {
	case "", "asc", "desc":
	default:
		return nil, 0, 0, 0, apperror.New(apperror.KindInvalidInput, "order must be asc or desc")
	}

	userID := actor.UserID
	if actor.IsAdmin() {
		userID = strings.TrimSpace(in.UserID)
	}

	offset, limit := page.Normalize(in.Offset, in.Limit)
	purchases, total, err := s.repo.List(ctx, Query{
		UserID: userID,
		Status: status,
		Offset: offset,
		Limit:  limit,
		Sort:   in.Sort,
		Order:  in.Order,
	})
	if err != nil {
		return nil, 0, 0, 0, apperror.Internal("failed to list purchases", err)
	}
	return purchases, total, offset, limit, nil
}

// Receipt returns the receipt of a paid purchase, rendering it again when the
// stored copy is missing.
func (s *PurchaseService) Receipt(ctx context.Context, actor domainuser.Claims, id string) (*receipt.GetReceiptResponse, error) {
	p, err := s.load(ctx, s.repo, actor, id)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.StatusPaid {
		return nil, apperror.Newf(apperror.KindInvalidState, "no receipt for a %s purchase", p.Status)
	}
	if s.receipts == nil {
		return nil, apperror.New(apperror.KindInternal, "receipt service unavailable")
	}

	doc, err := s.receipts.GetReceipt(ctx, p.ID)
	if err == nil {
		return doc, nil
	}
	if !apperror.Is(err, apperror.KindNotFound) {
		return nil, err
	}

	if err := s.storeReceipt(ctx, p); err != nil {
		return nil, err
	}
	return s.receipts.GetReceipt(ctx, p.ID)
}

func (s *PurchaseService) storeReceipt(ctx context.Context, p *domain.Purchase) error {
	if s.receipts == nil {
		return apperror.New(apperror.KindInternal, "receipt service unavailable")
	}
	rendered, err := s.receipts.RenderReceipt(ctx, toReceiptRequest(p))
	if err != nil {
		return err
	}
	if err := s.repo.SetReceiptKey(ctx, p.ID, rendered.Key); err != nil {
		return apperror.Internal("failed to record receipt key", err)
	}
	p.ReceiptKey = rendered.Key
	return nil
}

// load fetches a purchase and checks the caller may act on it.
func (s *PurchaseService) load(ctx context.Context, repo *Repository, actor domainuser.Claims, id string) (*domain.Purchase, error) {
	if actor.UserID == "" {
		return nil, apperror.New(apperror.KindUnauthorized, "authentication required")
	}
	p, err := repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.New(apperror.KindNotFound, "purchase not found")
		}
		return nil, apperror.Internal("failed to load purchase", err)
	}
	if !actor.IsAdmin() && p.UserID != actor.UserID {
		return nil, apperror.New(apperror.KindForbidden, "purchase belongs to another user")
	}
	return p, nil
}

func (s *PurchaseService) reload(ctx context.Context, id string) (*domain.Purchase, error) {
	p, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, apperror.Internal("failed to reload purchase", err)
	}
	return p, nil
}

// transitionLost explains a conditional update that matched no row: the
// status changed after it was read.
func (s *PurchaseService) transitionLost(ctx context.Context, repo *Repository, id string, check func(domain.Status) error) error {
	p, err := repo.Find(ctx, id)
	if err != nil {
		return apperror.Internal("failed to reload purchase", err)
	}
	if err := check(p.Status); err != nil {
		return err
	}
	return apperror.New(apperror.KindInvalidState, "purchase status changed concurrently")
}

func toReceiptRequest(p *domain.Purchase) receipt.RenderReceiptRequest {
	req := receipt.RenderReceiptRequest{
		PurchaseID:      p.ID,
		Reference:       p.Reference,
		UserID:          p.UserID,
		Status:          string(p.Status),
		PaymentMethod:   string(p.PaymentMethod),
		MaskedAccount:   p.MaskedAccount(),
		ShippingAddress: p.ShippingAddress,
		Total:           p.Total.StringFixed(2),
		Lines:           make([]receipt.ReceiptLine, 0, len(p.Lines)),
		CreatedAt:       p.CreatedAt,
	}
	if p.PaidAt != nil {
		req.PaidAt = *p.PaidAt
	}
	for _, l := range p.Lines {
		req.Lines = append(req.Lines, receipt.ReceiptLine{
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice.StringFixed(2),
			LineTotal:   l.LineTotal.StringFixed(2),
		})
	}
	return req
}
