package api

import (
	"strings"

	domainuser "github.com/example/storefront/domain/user"
	"github.com/example/storefront/modules/cart"
	"github.com/example/storefront/modules/catalog"
	"github.com/example/storefront/modules/purchase"
	"github.com/example/storefront/modules/user"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// Handlers translates HTTP requests into module port calls.
type Handlers struct {
	users     user.UserPort
	catalog   catalog.CatalogPort
	carts     cart.CartPort
	purchases purchase.PurchasePort
	logger    types.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(users user.UserPort, cat catalog.CatalogPort, carts cart.CartPort, purchases purchase.PurchasePort, logger types.Logger) *Handlers {
	return &Handlers{
		users:     users,
		catalog:   cat,
		carts:     carts,
		purchases: purchases,
		logger:    logger,
	}
}

func (h *Handlers) ok(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{Success: true, Message: message, Data: data})
}

func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	return writeError(c, h.logger, err)
}

// includeRetired honours the include_retired flag for admins only.
func includeRetired(c *fiber.Ctx) bool {
	actor := actorFrom(c)
	return actor.IsAdmin() && c.QueryBool("include_retired", false)
}

// Register handles POST /auth/register.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req user.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	resp, err := h.users.Register(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusCreated, "user registered", resp)
}

// Login handles POST /auth/login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req user.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Login == "" || req.Password == "" {
		return badRequest(c, "login and password are required")
	}
	resp, err := h.users.Login(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "", resp)
}

// Refresh handles POST /auth/refresh.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshBody
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return badRequest(c, "refresh_token is required")
	}
	resp, err := h.users.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "", resp)
}

// Profile handles GET /profile.
func (h *Handlers) Profile(c *fiber.Ctx) error {
	resp, err := h.users.GetUser(c.UserContext(), actorFrom(c).UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "", resp)
}

// ListUsers handles GET /users.
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	resp, err := h.users.ListUsers(c.UserContext(), user.ListUsersRequest{
		Offset: c.QueryInt("offset", 0),
		Limit:  c.QueryInt("limit", 0),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "", resp)
}

// GetUser handles GET /users/:id. Clients may only read their own account.
func (h *Handlers) GetUser(c *fiber.Ctx) error {
	actor := actorFrom(c)
	id := c.Params("id")
	if !actor.IsAdmin() && actor.UserID != id {
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: "cannot read another user's account",
		})
	}
	resp, err := h.users.GetUser(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "", resp)
}

// UpdateUser handles PUT /users/:id.
func (h *Handlers) UpdateUser(c *fiber.Ctx) error {
	var body UpdateUserBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req := user.UpdateUserRequest{
		Actor:    actorFrom(c),
		UserID:   c.Params("id"),
		Name:     body.Name,
		Surname:  body.Surname,
		Username: body.Username,
		Email:    body.Email,
	}
	if body.Role != nil {
		role := domainuser.Role(*body.Role)
		req.Role = &role
	}
	resp, err := h.users.UpdateUser(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "user updated", resp)
}

// ChangePassword handles PUT /users/:id/password.
func (h *Handlers) ChangePassword(c *fiber.Ctx) error {
	var body ChangePasswordBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	err := h.users.ChangePassword(c.UserContext(), user.ChangePasswordRequest{
		Actor:           actorFrom(c),
		UserID:          c.Params("id"),
		CurrentPassword: body.CurrentPassword,
		NewPassword:     body.NewPassword,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "password changed", nil)
}

// DeactivateUser handles DELETE /users/:id.
func (h *Handlers) DeactivateUser(c *fiber.Ctx) error {
	err := h.users.DeactivateUser(c.UserContext(), user.DeactivateUserRequest{
		Actor:  actorFrom(c),
		UserID: c.Params("id"),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "user deactivated", nil)
}

// ListCategories handles GET /categories.
func (h *Handlers) ListCategories(c *fiber.Ctx) error {
	resp, err := h.catalog.ListCategories(c.UserContext(), catalog.ListCategoriesRequest{
		Offset:         c.QueryInt("offset", 0),
		Limit:          c.QueryInt("limit", 0),
		Sort:           c.Query("sort"),
		Order:          c.Query("order"),
		Name:           c.Query("name"),
		IncludeRetired: includeRetired(c),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "", resp)
}

// GetCategory handles GET /categories/:id.
func (h *Handlers) GetCategory(c *fiber.Ctx) error {
	resp, err := h.catalog.GetCategory(c.UserContext(), catalog.GetCategoryRequest{
		ID:             c.Params("id"),
		IncludeRetired: includeRetired(c),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "", resp)
}

// CreateCategory handles POST /categories.
func (h *Handlers) CreateCategory(c *fiber.Ctx) error {
	var body CategoryBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	resp, err := h.catalog.CreateCategory(c.UserContext(), catalog.CreateCategoryRequest{Name: body.Name})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusCreated, "category created", resp)
}

// UpdateCategory handles PUT /categories/:id.
func (h *Handlers) UpdateCategory(c *fiber.Ctx) error {
	var body CategoryBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	resp, err := h.catalog.UpdateCategory(c.UserContext(), catalog.UpdateCategoryRequest{
		ID:   c.Params("id"),
		Name: body.Name,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "category updated", resp)
}

// RetireCategory handles DELETE /categories/:id. Its products move to the
// Default category.
func (h *Handlers) RetireCategory(c *fiber.Ctx) error {
	resp, err := h.catalog.RetireCategory(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "category retired", resp)
}

// ListProducts handles GET /products.
func (h *Handlers) ListProducts(c *fiber.Ctx) error {
	return h.listProducts(c, c.Query("name"))
}

// SearchProducts handles GET /products/search?q=.
func (h *Handlers) SearchProducts(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return badRequest(c, "query parameter q is required")
	}
	return h.listProducts(c, q)
}

func (h *Handlers) listProducts(c *fiber.Ctx, name string) error {
	resp, err := h.catalog.ListProducts(c.UserContext(), catalog.ListProductsRequest{
		Offset:         c.QueryInt("offset", 0),
		Limit:          c.QueryInt("limit", 0),
		Sort:           c.Query("sort"),
		Order:          c.Query("order"),
		CategoryID:     c.Query("category_id"),
		Name:           name,
		IncludeRetired: includeRetired(c),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "", resp)
}

// GetProduct handles GET /products/:id.
func (h *Handlers) GetProduct(c *fiber.Ctx) error {
	resp, err := h.catalog.GetProduct(c.UserContext(), catalog.GetProductRequest{
		ID:             c.Params("id"),
		IncludeRetired: includeRetired(c),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "", resp)
}

// CreateProduct handles POST /products.
func (h *Handlers) CreateProduct(c *fiber.Ctx) error {
	var body CreateProductBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	resp, err := h.catalog.CreateProduct(c.UserContext(), catalog.CreateProductRequest{
		Name:         body.Name,
		Description:  body.Description,
		Price:        body.Price,
		Stock:        body.Stock,
		CategoryID:   body.CategoryID,
		CategoryName: body.CategoryName,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusCreated, "product created", resp)
}

// UpdateProduct handles PUT /products/:id.
func (h *Handlers) UpdateProduct(c *fiber.Ctx) error {
	var body UpdateProductBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	resp, err := h.catalog.UpdateProduct(c.UserContext(), catalog.UpdateProductRequest{
		ID:          c.Params("id"),
		Name:        body.Name,
		Description: body.Description,
		Price:       body.Price,
		Stock:       body.Stock,
		CategoryID:  body.CategoryID,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "product updated", resp)
}

// RetireProduct handles DELETE /products/:id.
func (h *Handlers) RetireProduct(c *fiber.Ctx) error {
	if err := h.catalog.RetireProduct(c.UserContext(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "product retired", nil)
}

// RestockProduct handles POST /products/:id/restock.
func (h *Handlers) RestockProduct(c *fiber.Ctx) error {
	var body RestockBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	resp, err := h.catalog.RestockProduct(c.UserContext(), catalog.RestockProductRequest{
		ID:    c.Params("id"),
		Delta: body.Delta,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "stock adjusted", resp)
}

// GetCart handles GET /cart.
func (h *Handlers) GetCart(c *fiber.Ctx) error {
	resp, err := h.carts.GetCart(c.UserContext(), actorFrom(c).UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "", resp)
}

// AddCartItem handles POST /cart/items.
func (h *Handlers) AddCartItem(c *fiber.Ctx) error {
	var body CartItemBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	resp, err := h.carts.AddItem(c.UserContext(), cart.AddCartItemRequest{
		UserID:    actorFrom(c).UserID,
		ProductID: body.ProductID,
		Quantity:  body.Quantity,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "item added", resp)
}

// UpdateCartItem handles PUT /cart/items/:productId.
func (h *Handlers) UpdateCartItem(c *fiber.Ctx) error {
	var body CartItemBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	resp, err := h.carts.UpdateItem(c.UserContext(), cart.UpdateCartItemRequest{
		UserID:    actorFrom(c).UserID,
		ProductID: c.Params("productId"),
		Quantity:  body.Quantity,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "item updated", resp)
}

// RemoveCartItem handles DELETE /cart/items/:productId.
func (h *Handlers) RemoveCartItem(c *fiber.Ctx) error {
	resp, err := h.carts.RemoveItem(c.UserContext(), cart.RemoveCartItemRequest{
		UserID:    actorFrom(c).UserID,
		ProductID: c.Params("productId"),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "item removed", resp)
}

// ClearCart handles DELETE /cart.
func (h *Handlers) ClearCart(c *fiber.Ctx) error {
	resp, err := h.carts.ClearCart(c.UserContext(), actorFrom(c).UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "cart cleared", resp)
}

// Checkout handles POST /purchases.
func (h *Handlers) Checkout(c *fiber.Ctx) error {
	var body CheckoutBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	resp, err := h.purchases.Checkout(c.UserContext(), purchase.CheckoutRequest{
		Actor:           actorFrom(c),
		CartID:          body.CartID,
		ShippingAddress: body.ShippingAddress,
		PaymentMethod:   body.PaymentMethod,
		PaymentAccount:  body.PaymentAccount,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusCreated, "purchase created", resp)
}

// ListPurchases handles GET /purchases.
func (h *Handlers) ListPurchases(c *fiber.Ctx) error {
	resp, err := h.purchases.ListPurchases(c.UserContext(), purchase.ListPurchasesRequest{
		Actor:  actorFrom(c),
		UserID: c.Query("user_id"),
		Status: c.Query("status"),
		Offset: c.QueryInt("offset", 0),
		Limit:  c.QueryInt("limit", 0),
		Sort:   c.Query("sort"),
		Order:  c.Query("order"),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "", resp)
}

// GetPurchase handles GET /purchases/:id.
func (h *Handlers) GetPurchase(c *fiber.Ctx) error {
	resp, err := h.purchases.GetPurchase(c.UserContext(), h.purchaseID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "", resp)
}

// UpdatePurchase handles PUT /purchases/:id.
func (h *Handlers) UpdatePurchase(c *fiber.Ctx) error {
	var body UpdatePurchaseBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	resp, err := h.purchases.UpdatePurchase(c.UserContext(), purchase.UpdatePurchaseRequest{
		Actor:           actorFrom(c),
		PurchaseID:      c.Params("id"),
		ShippingAddress: body.ShippingAddress,
		PaymentMethod:   body.PaymentMethod,
		PaymentAccount:  body.PaymentAccount,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "purchase updated", resp)
}

// CancelPurchase handles POST /purchases/:id/cancel.
func (h *Handlers) CancelPurchase(c *fiber.Ctx) error {
	resp, err := h.purchases.CancelPurchase(c.UserContext(), h.purchaseID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return h.ok(c, fiber.StatusOK, "purchase canceled", resp)
}

// PayPurchase handles POST /purchases/:id/pay. A receipt failure still
// answers 200 with receipt_error set.
func (h *Handlers) PayPurchase(c *fiber.Ctx) error {
	resp, err := h.purchases.PayPurchase(c.UserContext(), h.purchaseID(c))
	if err != nil {
		return h.fail(c, err)
	}
	message := "purchase paid"
	if resp.ReceiptError != "" {
		message = "purchase paid, receipt unavailable"
	}
	return h.ok(c, fiber.StatusOK, message, resp)
}

// GetReceipt handles GET /purchases/:id/receipt and returns the document
// itself.
func (h *Handlers) GetReceipt(c *fiber.Ctx) error {
	resp, err := h.purchases.GetReceipt(c.UserContext(), h.purchaseID(c))
	if err != nil {
		return h.fail(c, err)
	}
	c.Set(fiber.HeaderContentType, resp.ContentType)
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+resp.Key+`"`)
	return c.Status(fiber.StatusOK).Send(resp.Content)
}

func (h *Handlers) purchaseID(c *fiber.Ctx) purchase.PurchaseIDRequest {
	return purchase.PurchaseIDRequest{Actor: actorFrom(c), PurchaseID: c.Params("id")}
}
